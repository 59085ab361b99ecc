// internal/services/credential_service.go
package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/greenproof/greenproof-backend/internal/apperrors"
	"github.com/greenproof/greenproof-backend/internal/lifecycle"
	"github.com/greenproof/greenproof-backend/internal/models"
	"github.com/greenproof/greenproof-backend/internal/repository"
	"github.com/greenproof/greenproof-backend/internal/utils"
)

type CredentialService struct {
	store               repository.Store
	qrService           *QRService
	notificationService *NotificationService
	now                 repository.Clock
}

type ValidityPeriodRequest struct {
	IssuedAt  *time.Time `json:"issuedAt,omitempty"`
	ExpiresAt time.Time  `json:"expiresAt" validate:"required"`
}

type CreateCredentialRequest struct {
	Name                 string                  `json:"name" validate:"required,max=255"`
	Type                 models.CredentialType   `json:"type" validate:"required,credential_type"`
	Holder               uuid.UUID               `json:"holder"`
	Product              *uuid.UUID              `json:"product,omitempty"`
	GuardianPolicyID     string                  `json:"guardianPolicyId" validate:"required,max=255"`
	GuardianCredentialID *string                 `json:"guardianCredentialId,omitempty" validate:"omitempty,max=255"`
	HederaTokenID        *string                 `json:"hederaTokenId,omitempty" validate:"omitempty,max=64"`
	ValidityPeriod       ValidityPeriodRequest   `json:"validityPeriod"`
	Criteria             models.Criteria         `json:"criteria"`
	Evidence             []models.Evidence       `json:"evidence,omitempty"`
	Impact               models.Impact           `json:"impact"`
	Metadata             models.Metadata         `json:"metadata"`
	Status               models.CredentialStatus `json:"status,omitempty" validate:"omitempty,oneof=draft pending_verification"`
}

type ValidityPatchRequest struct {
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

type UpdateCredentialRequest struct {
	Name                 *string               `json:"name,omitempty" validate:"omitempty,max=255"`
	Product              *uuid.UUID            `json:"product,omitempty"`
	GuardianPolicyID     *string               `json:"guardianPolicyId,omitempty" validate:"omitempty,max=255"`
	GuardianCredentialID *string               `json:"guardianCredentialId,omitempty" validate:"omitempty,max=255"`
	HederaTokenID        *string               `json:"hederaTokenId,omitempty" validate:"omitempty,max=64"`
	ValidityPeriod       *ValidityPatchRequest `json:"validityPeriod,omitempty"`
	Evidence             *[]models.Evidence    `json:"evidence,omitempty"`
	Criteria             *models.Criteria      `json:"criteria,omitempty"`
	Impact               *models.Impact        `json:"impact,omitempty"`
	Metadata             *models.Metadata      `json:"metadata,omitempty"`
}

type VerifyCredentialRequest struct {
	VerificationMethod models.VerificationMethod `json:"verificationMethod" validate:"required,verification_method"`
	Notes              string                    `json:"notes" validate:"max=2000"`
	Score              *float64                  `json:"score,omitempty" validate:"omitempty,gte=0,lte=100"`
}

type ReasonRequest struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}

type MarkRequirementRequest struct {
	IsMet    *bool  `json:"isMet" validate:"required"`
	Evidence string `json:"evidence" validate:"max=2000"`
}

type CredentialSearchParams struct {
	utils.PaginationParams
	Type     models.CredentialType
	Status   models.CredentialStatus
	IssuerID *uuid.UUID
	HolderID *uuid.UUID
}

// certificationLink says how a transition changes the product's
// certification list.
type certificationLink int

const (
	linkNone certificationLink = iota
	linkAdd
	linkRemove
)

type credentialRule func(c models.Credential, actor lifecycle.Actor, now time.Time) (models.Credential, error)

func NewCredentialService(store repository.Store, qrService *QRService, notificationService *NotificationService, clock repository.Clock) *CredentialService {
	return &CredentialService{
		store:               store,
		qrService:           qrService,
		notificationService: notificationService,
		now:                 clock,
	}
}

func (s *CredentialService) CreateCredential(ctx context.Context, issuerID uuid.UUID, req *CreateCredentialRequest) (*ExpandedCredential, error) {
	actor, _, err := resolveActor(ctx, s.store.Users(), issuerID)
	if err != nil {
		return nil, err
	}

	if req.Holder != uuid.Nil {
		if err := s.requireUser(ctx, req.Holder); err != nil {
			return nil, err
		}
	}
	if req.Product != nil {
		if err := s.requireProduct(ctx, *req.Product); err != nil {
			return nil, err
		}
	}

	credential, err := lifecycle.Issue(actor, lifecycle.IssueInput{
		Name:                 utils.SanitizeText(req.Name),
		Type:                 req.Type,
		HolderID:             req.Holder,
		ProductID:            req.Product,
		GuardianPolicyID:     req.GuardianPolicyID,
		GuardianCredentialID: req.GuardianCredentialID,
		HederaTokenID:        req.HederaTokenID,
		IssuedAt:             req.ValidityPeriod.IssuedAt,
		ExpiresAt:            req.ValidityPeriod.ExpiresAt,
		Criteria:             req.Criteria,
		Evidence:             sanitizeEvidence(req.Evidence),
		Impact:               req.Impact,
		Metadata:             sanitizeMetadata(req.Metadata),
		InitialStatus:        req.Status,
	}, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.store.Credentials().Create(ctx, &credential); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"credential_id": credential.ID,
		"issuer_id":     credential.IssuerID,
		"holder_id":     credential.HolderID,
		"status":        credential.Status,
	}).Info("Credential issued")

	if credential.Status == models.CredentialStatusPendingVerification {
		s.notificationService.CredentialEvent(ctx, &credential, models.AuditSubmitted, "")
	}

	return ExpandCredential(ctx, s.store, &credential)
}

func (s *CredentialService) GetCredential(ctx context.Context, credentialID, userID uuid.UUID) (*ExpandedCredential, error) {
	actor, _, err := resolveActor(ctx, s.store.Users(), userID)
	if err != nil {
		return nil, err
	}

	credential, err := s.store.Credentials().GetByID(ctx, credentialID)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.CanView(*credential, actor); err != nil {
		return nil, err
	}

	return ExpandCredential(ctx, s.store, credential)
}

// GetCredentials lists credentials newest first. Non-admins only ever see
// credentials they issued or hold, whatever filters they pass.
func (s *CredentialService) GetCredentials(ctx context.Context, userID uuid.UUID, params CredentialSearchParams) ([]ExpandedCredential, int64, error) {
	actor, _, err := resolveActor(ctx, s.store.Users(), userID)
	if err != nil {
		return nil, 0, err
	}
	if params.Type != "" && !params.Type.IsValid() {
		return nil, 0, apperrors.Validation("invalid credential type %q", params.Type)
	}
	if params.Status != "" && !params.Status.IsValid() {
		return nil, 0, apperrors.Validation("invalid credential status %q", params.Status)
	}

	filter := repository.CredentialFilter{
		Type:     params.Type,
		Status:   params.Status,
		IssuerID: params.IssuerID,
		HolderID: params.HolderID,
		Page:     pageOf(params.Page, params.Limit),
	}
	if !actor.IsAdmin() {
		filter.ParticipantID = &actor.ID
	}

	credentials, total, err := s.store.Credentials().List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	expanded, err := ExpandCredentials(ctx, s.store, credentials, false)
	if err != nil {
		return nil, 0, err
	}
	return expanded, total, nil
}

func (s *CredentialService) UpdateCredential(ctx context.Context, credentialID, userID uuid.UUID, req *UpdateCredentialRequest) (*ExpandedCredential, error) {
	if req.Product != nil {
		if err := s.requireProduct(ctx, *req.Product); err != nil {
			return nil, err
		}
	}

	patch := lifecycle.Patch{
		Name:                 req.Name,
		ProductID:            req.Product,
		GuardianPolicyID:     req.GuardianPolicyID,
		GuardianCredentialID: req.GuardianCredentialID,
		HederaTokenID:        req.HederaTokenID,
		Criteria:             req.Criteria,
		Impact:               req.Impact,
	}
	if req.Name != nil {
		name := utils.SanitizeText(*req.Name)
		patch.Name = &name
	}
	if req.ValidityPeriod != nil {
		patch.ExpiresAt = req.ValidityPeriod.ExpiresAt
	}
	if req.Evidence != nil {
		evidence := sanitizeEvidence(*req.Evidence)
		patch.Evidence = &evidence
	}
	if req.Metadata != nil {
		metadata := sanitizeMetadata(*req.Metadata)
		patch.Metadata = &metadata
	}

	return s.transition(ctx, credentialID, userID, linkNone, func(c models.Credential, actor lifecycle.Actor, now time.Time) (models.Credential, error) {
		return lifecycle.Update(c, actor, patch, now)
	})
}

func (s *CredentialService) SubmitCredential(ctx context.Context, credentialID, userID uuid.UUID) (*ExpandedCredential, error) {
	return s.transition(ctx, credentialID, userID, linkNone, lifecycle.Submit)
}

func (s *CredentialService) MarkRequirement(ctx context.Context, credentialID, userID uuid.UUID, index int, req *MarkRequirementRequest) (*ExpandedCredential, error) {
	evidence := utils.SanitizeText(req.Evidence)
	return s.transition(ctx, credentialID, userID, linkNone, func(c models.Credential, actor lifecycle.Actor, now time.Time) (models.Credential, error) {
		return lifecycle.MarkRequirement(c, actor, index, *req.IsMet, evidence, now)
	})
}

func (s *CredentialService) VerifyEvidence(ctx context.Context, credentialID, userID uuid.UUID, index int) (*ExpandedCredential, error) {
	return s.transition(ctx, credentialID, userID, linkNone, func(c models.Credential, actor lifecycle.Actor, now time.Time) (models.Credential, error) {
		return lifecycle.VerifyEvidence(c, actor, index, now)
	})
}

// VerifyCredential completes verification and links the credential to its
// product in the same transaction.
func (s *CredentialService) VerifyCredential(ctx context.Context, credentialID, userID uuid.UUID, req *VerifyCredentialRequest) (*ExpandedCredential, error) {
	in := lifecycle.VerifyInput{
		Method: req.VerificationMethod,
		Notes:  utils.SanitizeText(req.Notes),
		Score:  req.Score,
	}
	return s.transition(ctx, credentialID, userID, linkAdd, func(c models.Credential, actor lifecycle.Actor, now time.Time) (models.Credential, error) {
		return lifecycle.Verify(c, actor, in, now)
	})
}

func (s *CredentialService) RejectCredential(ctx context.Context, credentialID, userID uuid.UUID, reason string) (*ExpandedCredential, error) {
	reason = utils.SanitizeText(reason)
	return s.transition(ctx, credentialID, userID, linkNone, func(c models.Credential, actor lifecycle.Actor, now time.Time) (models.Credential, error) {
		return lifecycle.Reject(c, actor, reason, now)
	})
}

// RevokeCredential withdraws the credential and unlinks it from its product
// in the same transaction.
func (s *CredentialService) RevokeCredential(ctx context.Context, credentialID, userID uuid.UUID, reason string) (*ExpandedCredential, error) {
	reason = utils.SanitizeText(reason)
	return s.transition(ctx, credentialID, userID, linkRemove, func(c models.Credential, actor lifecycle.Actor, now time.Time) (models.Credential, error) {
		return lifecycle.Revoke(c, actor, reason, now)
	})
}

func (s *CredentialService) GetCredentialQRCode(ctx context.Context, credentialID, userID uuid.UUID) (*QRCodeResult, error) {
	actor, _, err := resolveActor(ctx, s.store.Users(), userID)
	if err != nil {
		return nil, err
	}

	credential, err := s.store.Credentials().GetByID(ctx, credentialID)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.CanView(*credential, actor); err != nil {
		return nil, err
	}

	return s.qrService.ForCredential(credential.ID)
}

// transition loads a credential, applies rule and saves the result, all in
// one transaction. A failed rule leaves the stored credential untouched.
func (s *CredentialService) transition(ctx context.Context, credentialID, userID uuid.UUID, link certificationLink, rule credentialRule) (*ExpandedCredential, error) {
	actor, _, err := resolveActor(ctx, s.store.Users(), userID)
	if err != nil {
		return nil, err
	}

	var updated models.Credential
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		current, err := tx.Credentials().GetByID(ctx, credentialID)
		if err != nil {
			return err
		}

		next, err := rule(*current, actor, s.now())
		if err != nil {
			return err
		}

		if err := tx.Credentials().Save(ctx, &next); err != nil {
			return err
		}
		updated = next

		if link == linkNone || next.ProductID == nil {
			return nil
		}
		return linkCertification(ctx, tx, *next.ProductID, next.ID, link)
	})
	if err != nil {
		return nil, err
	}

	action := updated.AuditTrail[len(updated.AuditTrail)-1]
	logrus.WithFields(logrus.Fields{
		"credential_id": updated.ID,
		"action":        action.Action,
		"status":        updated.Status,
		"user_id":       actor.ID,
	}).Info("Credential updated")

	s.notificationService.CredentialEvent(ctx, &updated, action.Action, action.Notes)

	return ExpandCredential(ctx, s.store, &updated)
}

func linkCertification(ctx context.Context, tx repository.Store, productID, credentialID uuid.UUID, link certificationLink) error {
	product, err := tx.Products().GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logrus.WithFields(logrus.Fields{
				"product_id":    productID,
				"credential_id": credentialID,
			}).Warn("Credential references a missing product")
			return nil
		}
		return err
	}

	switch link {
	case linkAdd:
		if product.HasCertification(credentialID) {
			return nil
		}
		product.AddCertification(credentialID)
	case linkRemove:
		if !product.HasCertification(credentialID) {
			return nil
		}
		product.RemoveCertification(credentialID)
	}
	return tx.Products().Update(ctx, product)
}

func (s *CredentialService) requireUser(ctx context.Context, id uuid.UUID) error {
	if _, err := s.store.Users().GetByID(ctx, id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.Validation("holder %s does not exist", id)
		}
		return err
	}
	return nil
}

func (s *CredentialService) requireProduct(ctx context.Context, id uuid.UUID) error {
	if _, err := s.store.Products().GetByID(ctx, id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.Validation("product %s does not exist", id)
		}
		return err
	}
	return nil
}

func sanitizeEvidence(in []models.Evidence) []models.Evidence {
	if in == nil {
		return nil
	}
	out := make([]models.Evidence, len(in))
	for i, e := range in {
		e.Title = utils.SanitizeText(e.Title)
		e.Description = utils.SanitizeText(e.Description)
		out[i] = e
	}
	return out
}

func sanitizeMetadata(m models.Metadata) models.Metadata {
	m.Tags = utils.SanitizeStrings(m.Tags)
	m.Keywords = utils.SanitizeStrings(m.Keywords)
	return m
}
