// internal/repository/expiry.go
package repository

import (
	"time"

	"github.com/greenproof/greenproof-backend/internal/lifecycle"
	"github.com/greenproof/greenproof-backend/internal/models"
)

func applyExpiry(c models.Credential, now time.Time) (models.Credential, bool) {
	return lifecycle.ApplyExpiry(c, now)
}

func withExpiry(c models.Credential, now time.Time) models.Credential {
	out, _ := lifecycle.ApplyExpiry(c, now)
	return out
}
