package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/greenproof/greenproof-backend/internal/apperrors"
	"github.com/greenproof/greenproof-backend/internal/models"
	"github.com/greenproof/greenproof-backend/internal/utils"
)

type CredentialServiceTestSuite struct {
	suite.Suite
	env      *testEnv
	producer *models.User
	holder   *models.User
	verifier *models.User
	admin    *models.User
	stranger *models.User
	product  *models.Product
}

func (s *CredentialServiceTestSuite) SetupTest() {
	s.env = newTestEnv(s.T())
	s.producer = s.env.user(s.T(), "producer", models.RoleProducer)
	s.holder = s.env.user(s.T(), "holder", models.RoleConsumer)
	s.verifier = s.env.user(s.T(), "verifier", models.RoleVerifier)
	s.admin = s.env.user(s.T(), "admin", models.RoleAdmin)
	s.stranger = s.env.user(s.T(), "stranger", models.RoleConsumer)
	s.product = s.env.product(s.T(), s.producer)
}

func (s *CredentialServiceTestSuite) issuePending() *ExpandedCredential {
	req := s.env.credentialRequest(s.holder, s.product)
	req.Status = models.CredentialStatusPendingVerification
	c, err := s.env.credentials.CreateCredential(s.env.ctx, s.producer.ID, req)
	s.Require().NoError(err)
	return c
}

func (s *CredentialServiceTestSuite) TestIssueThenVerify() {
	created := s.issuePending()
	s.Equal(models.CredentialStatusPendingVerification, created.Status)
	s.Equal("producer", created.Issuer.Name)
	s.Equal("holder", created.Holder.Name)
	s.Require().NotNil(created.Product)
	s.Equal(s.product.SKU, created.Product.SKU)

	verified, err := s.env.credentials.VerifyCredential(s.env.ctx, created.ID, s.verifier.ID, &VerifyCredentialRequest{
		VerificationMethod: models.MethodThirdPartyAudit,
		Notes:              "<b>all good</b>",
		Score:              ptr(85.0),
	})
	s.Require().NoError(err)

	s.Equal(models.CredentialStatusVerified, verified.Status)
	s.Require().NotNil(verified.Verification)
	s.Equal(85.0, *verified.Verification.Score)
	s.Equal("all good", verified.Verification.Notes)
	s.Equal("verifier", verified.Verification.Verifier.Name)
	s.Equal(s.env.clock.now, verified.Verification.VerifiedAt)
	s.Require().Len(verified.AuditTrail, 2)
	s.Equal(models.AuditCreated, verified.AuditTrail[0].Action)
	s.Equal(models.AuditVerified, verified.AuditTrail[1].Action)

	product, err := s.env.store.Products().GetByID(s.env.ctx, s.product.ID)
	s.Require().NoError(err)
	s.True(product.HasCertification(created.ID))
}

func (s *CredentialServiceTestSuite) TestVerifyRequiresPending() {
	c, err := s.env.credentials.CreateCredential(s.env.ctx, s.producer.ID, s.env.credentialRequest(s.holder, s.product))
	s.Require().NoError(err)

	_, err = s.env.credentials.VerifyCredential(s.env.ctx, c.ID, s.verifier.ID, &VerifyCredentialRequest{
		VerificationMethod: models.MethodDocumentReview,
	})
	s.ErrorIs(err, apperrors.ErrPrecondition)

	stored, err := s.env.store.Credentials().GetByID(s.env.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(models.CredentialStatusDraft, stored.Status)
	s.Len(stored.AuditTrail, 1)
	s.Nil(stored.Verification)

	product, err := s.env.store.Products().GetByID(s.env.ctx, s.product.ID)
	s.Require().NoError(err)
	s.Empty(product.Certifications)
}

func (s *CredentialServiceTestSuite) TestOnlyVerifiersVerify() {
	c := s.issuePending()
	_, err := s.env.credentials.VerifyCredential(s.env.ctx, c.ID, s.producer.ID, &VerifyCredentialRequest{
		VerificationMethod: models.MethodSiteVisit,
	})
	s.ErrorIs(err, apperrors.ErrForbidden)
}

func (s *CredentialServiceTestSuite) TestSubmitUpdateAndRequirements() {
	c, err := s.env.credentials.CreateCredential(s.env.ctx, s.producer.ID, s.env.credentialRequest(s.holder, nil))
	s.Require().NoError(err)

	updated, err := s.env.credentials.UpdateCredential(s.env.ctx, c.ID, s.producer.ID, &UpdateCredentialRequest{
		Name: ptr("GOTS organic 2026"),
	})
	s.Require().NoError(err)
	s.Equal("GOTS organic 2026", updated.Name)
	s.Equal(models.AuditUpdated, updated.AuditTrail[len(updated.AuditTrail)-1].Action)

	_, err = s.env.credentials.SubmitCredential(s.env.ctx, c.ID, s.stranger.ID)
	s.ErrorIs(err, apperrors.ErrForbidden)

	submitted, err := s.env.credentials.SubmitCredential(s.env.ctx, c.ID, s.producer.ID)
	s.Require().NoError(err)
	s.Equal(models.CredentialStatusPendingVerification, submitted.Status)
	s.Len(submitted.AuditTrail, 3)

	_, err = s.env.credentials.UpdateCredential(s.env.ctx, c.ID, s.producer.ID, &UpdateCredentialRequest{Name: ptr("late edit")})
	s.ErrorIs(err, apperrors.ErrPrecondition)

	marked, err := s.env.credentials.MarkRequirement(s.env.ctx, c.ID, s.verifier.ID, 0, &MarkRequirementRequest{IsMet: ptr(true), Evidence: "lab report"})
	s.Require().NoError(err)
	s.True(marked.Criteria.Requirements[0].IsMet)
	s.Equal(s.verifier.ID, *marked.Criteria.Requirements[0].VerifiedBy)

	_, err = s.env.credentials.MarkRequirement(s.env.ctx, c.ID, s.verifier.ID, 5, &MarkRequirementRequest{IsMet: ptr(true)})
	s.ErrorIs(err, apperrors.ErrValidation)

	evidence, err := s.env.credentials.VerifyEvidence(s.env.ctx, c.ID, s.verifier.ID, 0)
	s.Require().NoError(err)
	s.Require().NotNil(evidence.Evidence[0].VerifiedAt)
	s.Len(evidence.AuditTrail, 5)
}

func (s *CredentialServiceTestSuite) TestRejectNeedsPendingAndReason() {
	c := s.issuePending()

	rejected, err := s.env.credentials.RejectCredential(s.env.ctx, c.ID, s.verifier.ID, "missing documents")
	s.Require().NoError(err)
	s.Equal(models.CredentialStatusRejected, rejected.Status)
	s.Equal("missing documents", rejected.AuditTrail[len(rejected.AuditTrail)-1].Notes)

	_, err = s.env.credentials.RejectCredential(s.env.ctx, c.ID, s.verifier.ID, "again")
	s.ErrorIs(err, apperrors.ErrPrecondition)
}

func (s *CredentialServiceTestSuite) TestRevoke() {
	c := s.issuePending()
	_, err := s.env.credentials.VerifyCredential(s.env.ctx, c.ID, s.verifier.ID, &VerifyCredentialRequest{
		VerificationMethod: models.MethodDocumentReview,
	})
	s.Require().NoError(err)

	_, err = s.env.credentials.RevokeCredential(s.env.ctx, c.ID, s.verifier.ID, "not mine")
	s.ErrorIs(err, apperrors.ErrForbidden)
	_, err = s.env.credentials.RevokeCredential(s.env.ctx, c.ID, s.holder.ID, "not mine either")
	s.ErrorIs(err, apperrors.ErrForbidden)

	revoked, err := s.env.credentials.RevokeCredential(s.env.ctx, c.ID, s.producer.ID, "supplier changed")
	s.Require().NoError(err)
	s.Equal(models.CredentialStatusRevoked, revoked.Status)
	s.Len(revoked.AuditTrail, 3)

	product, err := s.env.store.Products().GetByID(s.env.ctx, s.product.ID)
	s.Require().NoError(err)
	s.False(product.HasCertification(c.ID))

	_, err = s.env.credentials.RevokeCredential(s.env.ctx, c.ID, s.admin.ID, "twice")
	s.ErrorIs(err, apperrors.ErrPrecondition)
}

func (s *CredentialServiceTestSuite) TestVisibility() {
	c := s.issuePending()

	_, err := s.env.credentials.GetCredential(s.env.ctx, c.ID, s.stranger.ID)
	s.ErrorIs(err, apperrors.ErrForbidden)

	_, err = s.env.credentials.GetCredentialQRCode(s.env.ctx, c.ID, s.stranger.ID)
	s.ErrorIs(err, apperrors.ErrForbidden)

	for _, viewer := range []*models.User{s.producer, s.holder, s.admin} {
		got, err := s.env.credentials.GetCredential(s.env.ctx, c.ID, viewer.ID)
		s.Require().NoError(err, viewer.Name)
		s.Equal(c.ID, got.ID)
	}

	qr, err := s.env.credentials.GetCredentialQRCode(s.env.ctx, c.ID, s.holder.ID)
	s.Require().NoError(err)
	s.Equal("https://app.greenproof.test/credential/"+c.ID.String(), qr.Data)

	_, err = s.env.credentials.GetCredential(s.env.ctx, uuid.New(), s.admin.ID)
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *CredentialServiceTestSuite) TestExpiredOnRead() {
	c := s.issuePending()
	_, err := s.env.credentials.VerifyCredential(s.env.ctx, c.ID, s.verifier.ID, &VerifyCredentialRequest{
		VerificationMethod: models.MethodAutomatedCheck,
	})
	s.Require().NoError(err)

	s.env.clock.Advance(366 * 24 * time.Hour)

	got, err := s.env.credentials.GetCredential(s.env.ctx, c.ID, s.holder.ID)
	s.Require().NoError(err)
	s.Equal(models.CredentialStatusExpired, got.Status)
	s.True(got.ValidityPeriod.IsExpired)
	last := got.AuditTrail[len(got.AuditTrail)-1]
	s.Equal(models.AuditExpired, last.Action)
	s.Nil(last.PerformedBy)
}

func (s *CredentialServiceTestSuite) TestListScopingAndPagination() {
	for i := 0; i < 12; i++ {
		_, err := s.env.credentials.CreateCredential(s.env.ctx, s.producer.ID, s.env.credentialRequest(s.holder, nil))
		s.Require().NoError(err)
	}
	_, err := s.env.credentials.CreateCredential(s.env.ctx, s.admin.ID, s.env.credentialRequest(s.admin, nil))
	s.Require().NoError(err)

	page := utils.PaginationParams{Page: 2, Limit: 10}

	items, total, err := s.env.credentials.GetCredentials(s.env.ctx, s.holder.ID, CredentialSearchParams{PaginationParams: page})
	s.Require().NoError(err)
	s.EqualValues(12, total)
	s.Len(items, 2)
	s.Equal(2, utils.TotalPages(total, 10))

	// Filters cannot widen a non-admin's view.
	items, total, err = s.env.credentials.GetCredentials(s.env.ctx, s.stranger.ID, CredentialSearchParams{
		HolderID:         &s.holder.ID,
		PaginationParams: utils.PaginationParams{Page: 1, Limit: 10},
	})
	s.Require().NoError(err)
	s.Zero(total)
	s.Empty(items)

	_, total, err = s.env.credentials.GetCredentials(s.env.ctx, s.admin.ID, CredentialSearchParams{PaginationParams: page})
	s.Require().NoError(err)
	s.EqualValues(13, total)

	_, _, err = s.env.credentials.GetCredentials(s.env.ctx, s.admin.ID, CredentialSearchParams{Status: "bogus"})
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *CredentialServiceTestSuite) TestIssueChecksReferences() {
	req := s.env.credentialRequest(s.holder, nil)
	req.Holder = uuid.New()
	_, err := s.env.credentials.CreateCredential(s.env.ctx, s.producer.ID, req)
	s.ErrorIs(err, apperrors.ErrValidation)

	req = s.env.credentialRequest(s.holder, nil)
	req.Product = ptr(uuid.New())
	_, err = s.env.credentials.CreateCredential(s.env.ctx, s.producer.ID, req)
	s.ErrorIs(err, apperrors.ErrValidation)

	_, err = s.env.credentials.CreateCredential(s.env.ctx, s.verifier.ID, s.env.credentialRequest(s.holder, nil))
	s.ErrorIs(err, apperrors.ErrForbidden)
}

func (s *CredentialServiceTestSuite) TestNotificationsOnTransitions() {
	c := s.issuePending()
	_, err := s.env.credentials.RejectCredential(s.env.ctx, c.ID, s.verifier.ID, "blurry photos")
	s.Require().NoError(err)

	notices, total, err := s.env.notifications.List(s.env.ctx, s.holder.ID, false, PageRequest{})
	s.Require().NoError(err)
	s.EqualValues(2, total)
	s.Equal(models.NotificationCredentialRejected, notices[0].Type)
	s.Contains(notices[0].Message, "blurry photos")

	_, total, err = s.env.notifications.List(s.env.ctx, s.producer.ID, false, PageRequest{})
	s.Require().NoError(err)
	s.EqualValues(2, total)

	// submitted + rejected, each to holder and issuer
	s.Len(s.env.mail, 4)

	s.Require().NoError(s.env.notifications.MarkRead(s.env.ctx, notices[0].ID, s.holder.ID))
	_, total, err = s.env.notifications.List(s.env.ctx, s.holder.ID, true, PageRequest{})
	s.Require().NoError(err)
	s.EqualValues(1, total)
}

func TestCredentialServiceSuite(t *testing.T) {
	suite.Run(t, new(CredentialServiceTestSuite))
}

func TestCredentialWithoutProductSkipsLink(t *testing.T) {
	env := newTestEnv(t)
	producer := env.user(t, "p", models.RoleProducer)
	verifier := env.user(t, "v", models.RoleVerifier)

	req := env.credentialRequest(producer, nil)
	req.Status = models.CredentialStatusPendingVerification
	c, err := env.credentials.CreateCredential(env.ctx, producer.ID, req)
	require.NoError(t, err)

	verified, err := env.credentials.VerifyCredential(env.ctx, c.ID, verifier.ID, &VerifyCredentialRequest{
		VerificationMethod: models.MethodDocumentReview,
	})
	require.NoError(t, err)
	assert.Nil(t, verified.Product)
	assert.Equal(t, models.CredentialStatusVerified, verified.Status)
}
