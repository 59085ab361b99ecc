// internal/handlers/admin.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/greenproof/greenproof-backend/internal/i18n"
	"github.com/greenproof/greenproof-backend/internal/models"
	"github.com/greenproof/greenproof-backend/internal/services"
	"github.com/greenproof/greenproof-backend/internal/utils"
)

type AdminHandler struct {
	adminService *services.AdminService
}

func NewAdminHandler(adminService *services.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// GET /api/admin/users
func (h *AdminHandler) GetUsers(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	filter := services.AdminUserFilter{
		PaginationParams: params,
		Role:             models.UserRole(c.Query("role")),
	}

	if verifiedStr := c.Query("isVerified"); verifiedStr != "" {
		if verified, err := strconv.ParseBool(verifiedStr); err == nil {
			filter.IsVerified = &verified
		}
	}

	users, total, err := h.adminService.GetUsers(c.Request.Context(), filter)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.PaginatedResponse(c, "users", users, utils.CreatePaginationResult(total, params))
}

// PUT /api/admin/users/:id/verify
func (h *AdminHandler) VerifyUser(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	adminID, ok := currentUser(c)
	if !ok {
		return
	}
	userID, ok := utils.ParseUUIDParam(c, "id", "user")
	if !ok {
		return
	}

	user, err := h.adminService.VerifyUser(c.Request.Context(), userID, adminID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.MessageResponse(c, i18n.T(lang, i18n.KeyUserVerified), gin.H{"user": user})
}

// GET /api/admin/activity-logs
func (h *AdminHandler) GetActivityLogs(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	userID, ok := optionalUUIDQuery(c, "userId")
	if !ok {
		return
	}

	logs, total, err := h.adminService.GetActivityLogs(c.Request.Context(), userID, params)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.PaginatedResponse(c, "activityLogs", logs, utils.CreatePaginationResult(total, params))
}
