// internal/utils/errors.go
package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/greenproof/greenproof-backend/internal/apperrors"
)

// HandleServiceError converts a service error into the JSON error envelope.
// Domain errors keep their message; anything else is logged and answered
// with a generic 500.
func HandleServiceError(c *gin.Context, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		logrus.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"error":  err.Error(),
		}).Error("Unhandled service error")
		InternalErrorResponse(c, "")
		return
	}

	switch {
	case errors.Is(appErr, apperrors.ErrValidation):
		ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", appErr.Message, nil)
	case errors.Is(appErr, apperrors.ErrNotFound):
		if appErr.Resource != "" {
			NotFoundResponse(c, appErr.Resource)
			return
		}
		ErrorResponse(c, http.StatusNotFound, "NOT_FOUND", appErr.Message, nil)
	case errors.Is(appErr, apperrors.ErrForbidden):
		ForbiddenResponse(c, appErr.Message)
	case errors.Is(appErr, apperrors.ErrUnauthorized):
		UnauthorizedResponse(c, appErr.Message)
	case errors.Is(appErr, apperrors.ErrPrecondition):
		ErrorResponse(c, http.StatusBadRequest, "PRECONDITION_FAILED", appErr.Message, nil)
	case errors.Is(appErr, apperrors.ErrConflict):
		ConflictResponse(c, appErr.Message)
	default:
		InternalErrorResponse(c, "")
	}
}
