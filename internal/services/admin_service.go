// internal/services/admin_service.go
package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/greenproof/greenproof-backend/internal/apperrors"
	"github.com/greenproof/greenproof-backend/internal/models"
	"github.com/greenproof/greenproof-backend/internal/repository"
	"github.com/greenproof/greenproof-backend/internal/utils"
)

type AdminService struct {
	store               repository.Store
	notificationService *NotificationService
	now                 repository.Clock
}

type AdminUserFilter struct {
	utils.PaginationParams
	Role       models.UserRole `json:"role,omitempty"`
	IsVerified *bool           `json:"isVerified,omitempty"`
}

func NewAdminService(store repository.Store, notificationService *NotificationService, clock repository.Clock) *AdminService {
	return &AdminService{
		store:               store,
		notificationService: notificationService,
		now:                 clock,
	}
}

func (s *AdminService) GetUsers(ctx context.Context, filter AdminUserFilter) ([]models.User, int64, error) {
	if filter.Role != "" && !filter.Role.IsValid() {
		return nil, 0, apperrors.Validation("invalid role %q", filter.Role)
	}

	return s.store.Users().List(ctx, repository.UserFilter{
		Role:       filter.Role,
		IsVerified: filter.IsVerified,
		Search:     filter.Search,
		Page:       pageOf(filter.Page, filter.Limit),
	})
}

// VerifyUser marks an account as verified and records the action in the
// activity log.
func (s *AdminService) VerifyUser(ctx context.Context, userID, adminID uuid.UUID) (*models.User, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsVerified {
		return nil, apperrors.Precondition("user is already verified")
	}

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		user.IsVerified = true
		if err := tx.Users().Update(ctx, user); err != nil {
			return err
		}

		resourceID := user.ID
		return tx.ActivityLogs().Create(ctx, &models.ActivityLog{
			UserID:       &adminID,
			Action:       "admin.verify_user",
			ResourceType: "user",
			ResourceID:   &resourceID,
			StatusCode:   200,
		})
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"admin_id": adminID,
	}).Info("User verified by admin")

	s.notificationService.AccountVerified(ctx, user)
	return user, nil
}

func (s *AdminService) GetActivityLogs(ctx context.Context, userID *uuid.UUID, params utils.PaginationParams) ([]models.ActivityLog, int64, error) {
	return s.store.ActivityLogs().List(ctx, userID, pageOf(params.Page, params.Limit))
}
