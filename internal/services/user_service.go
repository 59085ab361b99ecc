// internal/services/user_service.go
package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/greenproof/greenproof-backend/internal/models"
	"github.com/greenproof/greenproof-backend/internal/repository"
	"github.com/greenproof/greenproof-backend/internal/utils"
)

type UserService struct {
	store repository.Store
	now   repository.Clock
}

type UpdateUserProfileRequest struct {
	Name            *string                 `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Organization    *string                 `json:"organization,omitempty" validate:"omitempty,max=255"`
	HederaAccountID *string                 `json:"hederaAccountId,omitempty" validate:"omitempty,max=64"`
	Profile         *models.UserProfile     `json:"profile,omitempty"`
	Preferences     *models.UserPreferences `json:"preferences,omitempty"`
}

type AddVerificationDocumentRequest struct {
	Type string `json:"type" validate:"required,oneof=business_license certification identity_document"`
	URL  string `json:"url" validate:"required,url"`
}

// PublicProfile is what anyone may see about a user.
type PublicProfile struct {
	ID           uuid.UUID          `json:"id"`
	Name         string             `json:"name"`
	Role         models.UserRole    `json:"role"`
	Organization string             `json:"organization,omitempty"`
	IsVerified   bool               `json:"isVerified"`
	Profile      models.UserProfile `json:"profile"`
	CreatedAt    time.Time          `json:"createdAt"`
}

func NewUserService(store repository.Store, clock repository.Clock) *UserService {
	return &UserService{
		store: store,
		now:   clock,
	}
}

func (s *UserService) GetPublicProfile(ctx context.Context, userID uuid.UUID) (*PublicProfile, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := user.Profile
	// Contact details stay private.
	profile.Phone = ""
	profile.Address.Street = ""
	profile.Address.ZipCode = ""

	return &PublicProfile{
		ID:           user.ID,
		Name:         user.Name,
		Role:         user.Role,
		Organization: user.Organization,
		IsVerified:   user.IsVerified,
		Profile:      profile,
		CreatedAt:    user.CreatedAt,
	}, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, req *UpdateUserProfileRequest) (*models.User, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = utils.SanitizeText(*req.Name)
	}
	if req.Organization != nil {
		user.Organization = utils.SanitizeText(*req.Organization)
	}
	if req.HederaAccountID != nil {
		if *req.HederaAccountID == "" {
			user.HederaAccountID = nil
		} else {
			id := *req.HederaAccountID
			user.HederaAccountID = &id
		}
	}
	if req.Profile != nil {
		profile := *req.Profile
		profile.Description = utils.SanitizeText(profile.Description)
		user.Profile = profile
	}
	if req.Preferences != nil {
		prefs := *req.Preferences
		if prefs.Language == "" {
			prefs.Language = "en"
		}
		if prefs.Timezone == "" {
			prefs.Timezone = "UTC"
		}
		user.Preferences = prefs
	}

	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *UserService) AddVerificationDocument(ctx context.Context, userID uuid.UUID, req *AddVerificationDocumentRequest) (*models.User, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.VerificationDocuments = append(user.VerificationDocuments, models.VerificationDocument{
		Type:       req.Type,
		URL:        req.URL,
		UploadedAt: s.now(),
	})

	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}
