// internal/handlers/health.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/greenproof/greenproof-backend/internal/i18n"
	"github.com/greenproof/greenproof-backend/internal/utils"
)

// Pinger reports whether the backing store is reachable.
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	ping    Pinger
	version string
	started time.Time
}

func NewHealthHandler(ping Pinger, version string) *HealthHandler {
	return &HealthHandler{ping: ping, version: version, started: time.Now()}
}

// GET /api/health
func (h *HealthHandler) Health(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	status := gin.H{
		"status":    "ok",
		"version":   h.version,
		"uptime":    time.Since(h.started).Round(time.Second).String(),
		"timestamp": time.Now().UTC(),
	}

	if h.ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			status["status"] = "degraded"
			status["database"] = "unreachable"
			c.JSON(http.StatusServiceUnavailable, utils.APIResponse{
				Success: false,
				Data:    status,
				Error:   &utils.APIError{Code: "SERVICE_UNAVAILABLE", Message: err.Error()},
			})
			return
		}
		status["database"] = "ok"
	}

	utils.MessageResponse(c, i18n.T(lang, i18n.KeyHealthy), status)
}
