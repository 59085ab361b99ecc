// internal/handlers/credential.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/greenproof/greenproof-backend/internal/i18n"
	"github.com/greenproof/greenproof-backend/internal/models"
	"github.com/greenproof/greenproof-backend/internal/services"
	"github.com/greenproof/greenproof-backend/internal/utils"
)

type CredentialHandler struct {
	credentialService *services.CredentialService
}

func NewCredentialHandler(credentialService *services.CredentialService) *CredentialHandler {
	return &CredentialHandler{credentialService: credentialService}
}

// GET /api/credentials
func (h *CredentialHandler) GetCredentials(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	params := utils.GetPaginationParams(c)

	searchParams := services.CredentialSearchParams{
		PaginationParams: params,
		Type:             models.CredentialType(c.Query("type")),
		Status:           models.CredentialStatus(c.Query("status")),
	}
	if searchParams.IssuerID, ok = optionalUUIDQuery(c, "issuer"); !ok {
		return
	}
	if searchParams.HolderID, ok = optionalUUIDQuery(c, "holder"); !ok {
		return
	}

	credentials, total, err := h.credentialService.GetCredentials(c.Request.Context(), userID, searchParams)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.PaginatedResponse(c, "credentials", credentials, utils.CreatePaginationResult(total, params))
}

// POST /api/credentials
func (h *CredentialHandler) CreateCredential(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.CreateCredentialRequest
	if !bindJSON(c, &req) {
		return
	}

	credential, err := h.credentialService.CreateCredential(c.Request.Context(), userID, &req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, i18n.T(lang, i18n.KeyCredentialCreated), gin.H{"credential": credential})
}

// GET /api/credentials/:id
func (h *CredentialHandler) GetCredential(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	credentialID, ok := utils.ParseUUIDParam(c, "id", "credential")
	if !ok {
		return
	}

	credential, err := h.credentialService.GetCredential(c.Request.Context(), credentialID, userID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"credential": credential})
}

// GET /api/credentials/:id/qr
func (h *CredentialHandler) GetCredentialQRCode(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	credentialID, ok := utils.ParseUUIDParam(c, "id", "credential")
	if !ok {
		return
	}

	qr, err := h.credentialService.GetCredentialQRCode(c.Request.Context(), credentialID, userID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"qrCode": qr})
}

// PUT /api/credentials/:id
func (h *CredentialHandler) UpdateCredential(c *gin.Context) {
	var req services.UpdateCredentialRequest
	h.mutate(c, i18n.KeyCredentialUpdated, &req, func(c *gin.Context, ids credentialIDs) (*services.ExpandedCredential, error) {
		return h.credentialService.UpdateCredential(c.Request.Context(), ids.credential, ids.user, &req)
	})
}

// PUT /api/credentials/:id/submit
func (h *CredentialHandler) SubmitCredential(c *gin.Context) {
	h.mutate(c, i18n.KeyCredentialSubmitted, nil, func(c *gin.Context, ids credentialIDs) (*services.ExpandedCredential, error) {
		return h.credentialService.SubmitCredential(c.Request.Context(), ids.credential, ids.user)
	})
}

// PUT /api/credentials/:id/verify
func (h *CredentialHandler) VerifyCredential(c *gin.Context) {
	var req services.VerifyCredentialRequest
	h.mutate(c, i18n.KeyCredentialVerified, &req, func(c *gin.Context, ids credentialIDs) (*services.ExpandedCredential, error) {
		return h.credentialService.VerifyCredential(c.Request.Context(), ids.credential, ids.user, &req)
	})
}

// PUT /api/credentials/:id/reject
func (h *CredentialHandler) RejectCredential(c *gin.Context) {
	var req services.ReasonRequest
	h.mutate(c, i18n.KeyCredentialRejected, &req, func(c *gin.Context, ids credentialIDs) (*services.ExpandedCredential, error) {
		return h.credentialService.RejectCredential(c.Request.Context(), ids.credential, ids.user, req.Reason)
	})
}

// PUT /api/credentials/:id/revoke
func (h *CredentialHandler) RevokeCredential(c *gin.Context) {
	var req services.ReasonRequest
	h.mutate(c, i18n.KeyCredentialRevoked, &req, func(c *gin.Context, ids credentialIDs) (*services.ExpandedCredential, error) {
		return h.credentialService.RevokeCredential(c.Request.Context(), ids.credential, ids.user, req.Reason)
	})
}

// PUT /api/credentials/:id/requirements/:index
func (h *CredentialHandler) MarkRequirement(c *gin.Context) {
	var req services.MarkRequirementRequest
	h.mutate(c, i18n.KeyCredentialRequirementMarked, &req, func(c *gin.Context, ids credentialIDs) (*services.ExpandedCredential, error) {
		index, ok := parseIndexParam(c, "index")
		if !ok {
			return nil, nil
		}
		return h.credentialService.MarkRequirement(c.Request.Context(), ids.credential, ids.user, index, &req)
	})
}

// PUT /api/credentials/:id/evidence/:index/verify
func (h *CredentialHandler) VerifyEvidence(c *gin.Context) {
	h.mutate(c, i18n.KeyCredentialEvidenceVerified, nil, func(c *gin.Context, ids credentialIDs) (*services.ExpandedCredential, error) {
		index, ok := parseIndexParam(c, "index")
		if !ok {
			return nil, nil
		}
		return h.credentialService.VerifyEvidence(c.Request.Context(), ids.credential, ids.user, index)
	})
}

type credentialIDs struct {
	user       uuid.UUID
	credential uuid.UUID
}

// mutate runs the shared steps of every state-changing credential route:
// resolve the caller and path id, bind the optional body, call the service
// and answer {"credential": ...}. A nil credential with a nil error means
// the callback has already written a response.
func (h *CredentialHandler) mutate(c *gin.Context, messageKey string, req interface{}, call func(*gin.Context, credentialIDs) (*services.ExpandedCredential, error)) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	credentialID, ok := utils.ParseUUIDParam(c, "id", "credential")
	if !ok {
		return
	}
	if req != nil && !bindJSON(c, req) {
		return
	}

	credential, err := call(c, credentialIDs{user: userID, credential: credentialID})
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	if credential == nil {
		return
	}

	utils.MessageResponse(c, i18n.T(lang, messageKey), gin.H{"credential": credential})
}
