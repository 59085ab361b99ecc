// internal/handlers/dashboard.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/greenproof/greenproof-backend/internal/i18n"
	"github.com/greenproof/greenproof-backend/internal/services"
	"github.com/greenproof/greenproof-backend/internal/utils"
)

type DashboardHandler struct {
	dashboardService *services.DashboardService
}

func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// GET /api/dashboard/overview
func (h *DashboardHandler) GetOverview(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	overview, err := h.dashboardService.GetOverview(c.Request.Context(), userID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, overview)
}

// GET /api/dashboard/analytics?timeframe=30d
func (h *DashboardHandler) GetAnalytics(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	analytics, err := h.dashboardService.GetAnalytics(c.Request.Context(), userID, c.Query("timeframe"))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, analytics)
}

// POST /api/carbon/calculate
func (h *DashboardHandler) CalculateCarbon(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.CarbonCalculateRequest
	if !bindJSON(c, &req) {
		return
	}

	calculation, err := h.dashboardService.CalculateCarbon(c.Request.Context(), userID, req.ProductID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.MessageResponse(c, i18n.T(lang, i18n.KeyCarbonCalculated), calculation)
}

// GET /api/carbon/dashboard
func (h *DashboardHandler) GetCarbonDashboard(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	dashboard, err := h.dashboardService.GetCarbonDashboard(c.Request.Context(), userID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, dashboard)
}
