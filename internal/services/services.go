// internal/services/services.go
package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/greenproof/greenproof-backend/internal/apperrors"
	"github.com/greenproof/greenproof-backend/internal/lifecycle"
	"github.com/greenproof/greenproof-backend/internal/models"
	"github.com/greenproof/greenproof-backend/internal/repository"
)

// resolveActor loads the authenticated user so that authorization decisions
// use the stored role rather than the one baked into the token.
func resolveActor(ctx context.Context, users repository.UserRepository, userID uuid.UUID) (lifecycle.Actor, *models.User, error) {
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return lifecycle.Actor{}, nil, apperrors.Unauthorized("user no longer exists")
		}
		return lifecycle.Actor{}, nil, err
	}
	return lifecycle.Actor{ID: user.ID, Role: user.Role}, user, nil
}

func pageOf(page, limit int) repository.Page {
	return repository.Page{Page: page, Limit: limit}
}

// PageRequest carries the paging part of a list query.
type PageRequest struct {
	Page  int
	Limit int
}
