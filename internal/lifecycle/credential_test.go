package lifecycle

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenproof/greenproof-backend/internal/apperrors"
	"github.com/greenproof/greenproof-backend/internal/models"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func producer() Actor { return Actor{ID: uuid.New(), Role: models.RoleProducer} }
func verifier() Actor { return Actor{ID: uuid.New(), Role: models.RoleVerifier} }
func admin() Actor    { return Actor{ID: uuid.New(), Role: models.RoleAdmin} }
func consumer() Actor { return Actor{ID: uuid.New(), Role: models.RoleConsumer} }

func issueInput(holder uuid.UUID) IssueInput {
	return IssueInput{
		Name:             "Organic cotton 2026",
		Type:             models.CredentialOrganicCertification,
		HolderID:         holder,
		GuardianPolicyID: "gp-1",
		ExpiresAt:        now.AddDate(1, 0, 0),
		Criteria: models.Criteria{
			Standard: "GOTS",
			Version:  "7.0",
			Requirements: []models.Requirement{
				{Criterion: "No synthetic pesticides"},
				{Criterion: "Traceable fibre origin"},
			},
		},
		Evidence: []models.Evidence{
			{Type: models.EvidenceCertificate, Title: "Field audit", URL: "https://files.example.com/a.pdf"},
		},
	}
}

func issued(t *testing.T, issuer Actor, status models.CredentialStatus) models.Credential {
	t.Helper()
	in := issueInput(uuid.New())
	in.InitialStatus = status
	c, err := Issue(issuer, in, now)
	require.NoError(t, err)
	return c
}

func lastAction(c models.Credential) models.AuditAction {
	return c.AuditTrail[len(c.AuditTrail)-1].Action
}

func TestIssue(t *testing.T) {
	issuer := producer()
	holder := uuid.New()

	c, err := Issue(issuer, issueInput(holder), now)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, c.ID)
	assert.Equal(t, models.CredentialStatusDraft, c.Status)
	assert.Equal(t, issuer.ID, c.IssuerID)
	assert.Equal(t, holder, c.HolderID)
	assert.Equal(t, now, c.ValidityPeriod.IssuedAt)
	assert.False(t, c.ValidityPeriod.IsExpired)
	assert.Equal(t, now, c.Evidence[0].UploadedAt)
	require.Len(t, c.AuditTrail, 1)
	assert.Equal(t, models.AuditCreated, c.AuditTrail[0].Action)
	assert.Equal(t, issuer.ID, *c.AuditTrail[0].PerformedBy)
}

func TestIssueRules(t *testing.T) {
	holder := uuid.New()

	tests := []struct {
		name   string
		actor  Actor
		mutate func(*IssueInput)
		kind   error
	}{
		{"consumer cannot issue", consumer(), func(*IssueInput) {}, apperrors.ErrForbidden},
		{"verifier cannot issue", verifier(), func(*IssueInput) {}, apperrors.ErrForbidden},
		{"missing expiry", producer(), func(in *IssueInput) { in.ExpiresAt = time.Time{} }, apperrors.ErrValidation},
		{"missing policy", producer(), func(in *IssueInput) { in.GuardianPolicyID = " " }, apperrors.ErrValidation},
		{"unknown type", producer(), func(in *IssueInput) { in.Type = "greenish" }, apperrors.ErrValidation},
		{"verified initial status", producer(), func(in *IssueInput) { in.InitialStatus = models.CredentialStatusVerified }, apperrors.ErrValidation},
		{"bad evidence type", producer(), func(in *IssueInput) { in.Evidence[0].Type = "video" }, apperrors.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := issueInput(holder)
			tt.mutate(&in)
			_, err := Issue(tt.actor, in, now)
			assert.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestIssueAllowsPendingAndAdmin(t *testing.T) {
	c := issued(t, admin(), models.CredentialStatusPendingVerification)
	assert.Equal(t, models.CredentialStatusPendingVerification, c.Status)
	assert.Len(t, c.AuditTrail, 1)
}

func TestSubmit(t *testing.T) {
	issuer := producer()
	c := issued(t, issuer, "")

	_, err := Submit(c, producer(), now)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	out, err := Submit(c, issuer, now)
	require.NoError(t, err)
	assert.Equal(t, models.CredentialStatusPendingVerification, out.Status)
	assert.Len(t, out.AuditTrail, 2)
	assert.Equal(t, models.AuditSubmitted, lastAction(out))

	assert.Equal(t, models.CredentialStatusDraft, c.Status, "input snapshot must not change")
	assert.Len(t, c.AuditTrail, 1)

	_, err = Submit(out, issuer, now)
	assert.ErrorIs(t, err, apperrors.ErrPrecondition)
}

func TestVerify(t *testing.T) {
	c := issued(t, producer(), models.CredentialStatusPendingVerification)
	v := verifier()
	score := 85.0

	out, err := Verify(c, v, VerifyInput{Method: models.MethodDocumentReview, Notes: "ok", Score: &score}, now)
	require.NoError(t, err)

	assert.Equal(t, models.CredentialStatusVerified, out.Status)
	require.NotNil(t, out.Verification)
	assert.Equal(t, v.ID, out.Verification.Verifier)
	assert.Equal(t, now, out.Verification.VerifiedAt)
	assert.Equal(t, 85.0, *out.Verification.Score)
	require.Len(t, out.AuditTrail, 2)
	assert.Equal(t, models.AuditCreated, out.AuditTrail[0].Action)
	assert.Equal(t, models.AuditVerified, out.AuditTrail[1].Action)
	assert.Nil(t, c.Verification)
}

func TestVerifyRequiresPending(t *testing.T) {
	v := verifier()
	for _, status := range []models.CredentialStatus{
		models.CredentialStatusDraft,
		models.CredentialStatusVerified,
		models.CredentialStatusRejected,
		models.CredentialStatusExpired,
		models.CredentialStatusRevoked,
	} {
		t.Run(string(status), func(t *testing.T) {
			c := issued(t, producer(), "")
			c.Status = status

			out, err := Verify(c, v, VerifyInput{Method: models.MethodSiteVisit}, now)
			assert.ErrorIs(t, err, apperrors.ErrPrecondition)
			assert.Equal(t, status, out.Status)
			assert.Len(t, out.AuditTrail, 1)
			assert.Nil(t, out.Verification)
		})
	}
}

func TestVerifyRules(t *testing.T) {
	c := issued(t, producer(), models.CredentialStatusPendingVerification)

	_, err := Verify(c, producer(), VerifyInput{Method: models.MethodSiteVisit}, now)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	tooHigh := 101.0
	_, err = Verify(c, verifier(), VerifyInput{Method: models.MethodSiteVisit, Score: &tooHigh}, now)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = Verify(c, verifier(), VerifyInput{Method: "guesswork"}, now)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = Verify(c, verifier(), VerifyInput{Method: models.MethodSiteVisit}, now.AddDate(2, 0, 0))
	assert.ErrorIs(t, err, apperrors.ErrPrecondition)

	_, err = Verify(c, admin(), VerifyInput{Method: models.MethodThirdPartyAudit}, now)
	assert.NoError(t, err)
}

func TestReject(t *testing.T) {
	c := issued(t, producer(), models.CredentialStatusPendingVerification)

	_, err := Reject(c, consumer(), "no", now)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = Reject(c, verifier(), "  ", now)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	out, err := Reject(c, verifier(), "evidence unreadable", now)
	require.NoError(t, err)
	assert.Equal(t, models.CredentialStatusRejected, out.Status)
	assert.Equal(t, models.AuditRejected, lastAction(out))
	assert.Equal(t, "evidence unreadable", out.AuditTrail[1].Notes)

	draft := issued(t, producer(), "")
	_, err = Reject(draft, verifier(), "early", now)
	assert.ErrorIs(t, err, apperrors.ErrPrecondition)
}

func TestRevoke(t *testing.T) {
	issuer := producer()
	c := issued(t, issuer, models.CredentialStatusPendingVerification)
	score := 90.0
	c, err := Verify(c, verifier(), VerifyInput{Method: models.MethodSiteVisit, Score: &score}, now)
	require.NoError(t, err)

	_, err = Revoke(c, producer(), "not mine", now)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = Revoke(c, verifier(), "not mine either", now)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	out, err := Revoke(c, issuer, "supplier changed", now)
	require.NoError(t, err)
	assert.Equal(t, models.CredentialStatusRevoked, out.Status)
	assert.Len(t, out.AuditTrail, 3)
	assert.Equal(t, models.AuditRevoked, lastAction(out))

	_, err = Revoke(out, admin(), "again", now)
	assert.ErrorIs(t, err, apperrors.ErrPrecondition)
}

func TestRevokeByAdminFromDraft(t *testing.T) {
	c := issued(t, producer(), "")
	out, err := Revoke(c, admin(), "withdrawn", now)
	require.NoError(t, err)
	assert.Equal(t, models.CredentialStatusRevoked, out.Status)
}

func TestUpdate(t *testing.T) {
	issuer := producer()
	c := issued(t, issuer, "")
	name := "Organic cotton 2026 (rev. 2)"

	out, err := Update(c, issuer, Patch{Name: &name}, now)
	require.NoError(t, err)
	assert.Equal(t, name, out.Name)
	assert.Equal(t, models.AuditUpdated, lastAction(out))
	assert.Equal(t, name, out.AuditTrail[1].Changes["name"])

	_, err = Update(c, issuer, Patch{}, now)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = Update(c, producer(), Patch{Name: &name}, now)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	pending, err := Submit(c, issuer, now)
	require.NoError(t, err)
	_, err = Update(pending, issuer, Patch{Name: &name}, now)
	assert.ErrorIs(t, err, apperrors.ErrPrecondition)
}

func TestMarkRequirementAndVerifyEvidence(t *testing.T) {
	c := issued(t, producer(), models.CredentialStatusPendingVerification)
	v := verifier()

	out, err := MarkRequirement(c, v, 1, true, "lot 42 records", now)
	require.NoError(t, err)
	req := out.Criteria.Requirements[1]
	assert.True(t, req.IsMet)
	assert.Equal(t, "lot 42 records", req.Evidence)
	assert.Equal(t, v.ID, *req.VerifiedBy)
	assert.Nil(t, c.Criteria.Requirements[1].VerifiedBy)

	_, err = MarkRequirement(c, v, 5, true, "", now)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	out, err = VerifyEvidence(out, v, 0, now)
	require.NoError(t, err)
	assert.Equal(t, v.ID, *out.Evidence[0].VerifiedBy)
	assert.Len(t, out.AuditTrail, 3)
	assert.Equal(t, models.AuditUpdated, lastAction(out))

	_, err = VerifyEvidence(out, producer(), 0, now)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestCanView(t *testing.T) {
	issuer := producer()
	c := issued(t, issuer, "")
	holder := Actor{ID: c.HolderID, Role: models.RoleConsumer}

	assert.NoError(t, CanView(c, issuer))
	assert.NoError(t, CanView(c, holder))
	assert.NoError(t, CanView(c, admin()))
	assert.ErrorIs(t, CanView(c, consumer()), apperrors.ErrForbidden)
	assert.ErrorIs(t, CanView(c, verifier()), apperrors.ErrForbidden)
}

func TestApplyExpiry(t *testing.T) {
	c := issued(t, producer(), models.CredentialStatusPendingVerification)
	c, err := Verify(c, verifier(), VerifyInput{Method: models.MethodSiteVisit}, now)
	require.NoError(t, err)

	same, changed := ApplyExpiry(c, now)
	assert.False(t, changed)
	assert.Equal(t, models.CredentialStatusVerified, same.Status)

	later := c.ValidityPeriod.ExpiresAt.Add(time.Second)
	out, changed := ApplyExpiry(c, later)
	require.True(t, changed)
	assert.True(t, out.ValidityPeriod.IsExpired)
	assert.Equal(t, models.CredentialStatusExpired, out.Status)
	assert.Equal(t, models.AuditExpired, lastAction(out))
	assert.Nil(t, out.AuditTrail[len(out.AuditTrail)-1].PerformedBy)

	_, changed = ApplyExpiry(out, later.Add(time.Hour))
	assert.False(t, changed, "expiry is applied once")
}

func TestApplyExpiryOnNonVerified(t *testing.T) {
	c := issued(t, producer(), "")
	out, changed := ApplyExpiry(c, c.ValidityPeriod.ExpiresAt.Add(time.Minute))

	assert.True(t, changed)
	assert.True(t, out.ValidityPeriod.IsExpired)
	assert.Equal(t, models.CredentialStatusDraft, out.Status)
	assert.Len(t, out.AuditTrail, 1)
}

func TestApplyExpiryAtBoundary(t *testing.T) {
	c := issued(t, producer(), "")
	out, changed := ApplyExpiry(c, c.ValidityPeriod.ExpiresAt)
	assert.False(t, changed)
	assert.False(t, out.ValidityPeriod.IsExpired)
}
