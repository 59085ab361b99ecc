// internal/lifecycle/credential.go
package lifecycle

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/greenproof/greenproof-backend/internal/apperrors"
	"github.com/greenproof/greenproof-backend/internal/models"
)

// Every rule in this file takes a credential snapshot by value and returns a
// new snapshot. The input is never modified, so a failed rule leaves the
// caller's copy exactly as it was.

const (
	MinScore = 0
	MaxScore = 100
)

type IssueInput struct {
	Name                 string
	Type                 models.CredentialType
	HolderID             uuid.UUID
	ProductID            *uuid.UUID
	GuardianPolicyID     string
	GuardianCredentialID *string
	HederaTokenID        *string
	IssuedAt             *time.Time
	ExpiresAt            time.Time
	Criteria             models.Criteria
	Evidence             []models.Evidence
	Impact               models.Impact
	Metadata             models.Metadata
	// InitialStatus is draft when empty. Only draft and pending_verification
	// are accepted.
	InitialStatus models.CredentialStatus
}

// Issue builds a new credential owned by the issuing actor.
func Issue(actor Actor, in IssueInput, now time.Time) (models.Credential, error) {
	if !actor.HasRole(models.RoleProducer, models.RoleAdmin) {
		return models.Credential{}, apperrors.Forbidden("only producers can issue credentials")
	}
	if strings.TrimSpace(in.Name) == "" {
		return models.Credential{}, apperrors.Validation("credential name is required")
	}
	if !in.Type.IsValid() {
		return models.Credential{}, apperrors.Validation("invalid credential type %q", in.Type)
	}
	if in.HolderID == uuid.Nil {
		return models.Credential{}, apperrors.Validation("credential holder is required")
	}
	if strings.TrimSpace(in.GuardianPolicyID) == "" {
		return models.Credential{}, apperrors.Validation("guardianPolicyId is required")
	}
	if in.ExpiresAt.IsZero() {
		return models.Credential{}, apperrors.Validation("validityPeriod.expiresAt is required")
	}
	if strings.TrimSpace(in.Criteria.Standard) == "" {
		return models.Credential{}, apperrors.Validation("criteria.standard is required")
	}
	if err := validateEvidence(in.Evidence); err != nil {
		return models.Credential{}, err
	}

	status := in.InitialStatus
	if status == "" {
		status = models.CredentialStatusDraft
	}
	if status != models.CredentialStatusDraft && status != models.CredentialStatusPendingVerification {
		return models.Credential{}, apperrors.Validation("initial status must be draft or pending_verification")
	}

	issuedAt := now
	if in.IssuedAt != nil && !in.IssuedAt.IsZero() {
		issuedAt = *in.IssuedAt
	}
	if !in.ExpiresAt.After(issuedAt) {
		return models.Credential{}, apperrors.Validation("validityPeriod.expiresAt must be after issuedAt")
	}

	src := models.Credential{
		Name:                 strings.TrimSpace(in.Name),
		Type:                 in.Type,
		IssuerID:             actor.ID,
		HolderID:             in.HolderID,
		ProductID:            in.ProductID,
		GuardianPolicyID:     in.GuardianPolicyID,
		GuardianCredentialID: in.GuardianCredentialID,
		HederaTokenID:        in.HederaTokenID,
		Status:               status,
		ValidityPeriod: models.ValidityPeriod{
			IssuedAt:  issuedAt,
			ExpiresAt: in.ExpiresAt,
		},
		Evidence: in.Evidence,
		Criteria: in.Criteria,
		Impact:   in.Impact,
		Metadata: in.Metadata,
	}
	c := src.Clone()
	c.EnsureID()
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.Criteria.Requirements == nil {
		c.Criteria.Requirements = []models.Requirement{}
	}
	if c.Evidence == nil {
		c.Evidence = []models.Evidence{}
	}
	for i := range c.Evidence {
		if c.Evidence[i].UploadedAt.IsZero() {
			c.Evidence[i].UploadedAt = now
		}
	}
	if c.Impact.CarbonReduction != nil && c.Impact.CarbonReduction.Unit == "" {
		c.Impact.CarbonReduction.Unit = models.DefaultCarbonUnit
	}
	c.ValidityPeriod.IsExpired = now.After(c.ValidityPeriod.ExpiresAt)

	appendAudit(&c, models.AuditCreated, &actor.ID, now, "", nil)
	return c, nil
}

// Submit moves a draft into the verification queue.
func Submit(c models.Credential, actor Actor, now time.Time) (models.Credential, error) {
	if err := requireIssuerOrAdmin(c, actor, "submit"); err != nil {
		return c, err
	}
	if c.Status != models.CredentialStatusDraft {
		return c, apperrors.Precondition("credential is %s, only draft credentials can be submitted", c.Status)
	}
	if c.ValidityPeriod.IsExpired {
		return c, apperrors.Precondition("credential validity period has ended")
	}

	out := c.Clone()
	out.Status = models.CredentialStatusPendingVerification
	out.UpdatedAt = now
	appendAudit(&out, models.AuditSubmitted, &actor.ID, now, "", nil)
	return out, nil
}

// Patch lists the fields a draft may replace. Nil fields are left alone.
type Patch struct {
	Name                 *string
	ProductID            *uuid.UUID
	GuardianPolicyID     *string
	GuardianCredentialID *string
	HederaTokenID        *string
	ExpiresAt            *time.Time
	Evidence             *[]models.Evidence
	Criteria             *models.Criteria
	Impact               *models.Impact
	Metadata             *models.Metadata
}

// Update replaces fields of a draft credential.
func Update(c models.Credential, actor Actor, p Patch, now time.Time) (models.Credential, error) {
	if err := requireIssuerOrAdmin(c, actor, "update"); err != nil {
		return c, err
	}
	if c.Status != models.CredentialStatusDraft {
		return c, apperrors.Precondition("credential is %s, only draft credentials can be edited", c.Status)
	}

	out := c.Clone()
	changes := models.JSONB{}

	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return c, apperrors.Validation("credential name is required")
		}
		out.Name = name
		changes["name"] = name
	}
	if p.ProductID != nil {
		id := *p.ProductID
		out.ProductID = &id
		changes["product"] = id.String()
	}
	if p.GuardianPolicyID != nil {
		if strings.TrimSpace(*p.GuardianPolicyID) == "" {
			return c, apperrors.Validation("guardianPolicyId is required")
		}
		out.GuardianPolicyID = *p.GuardianPolicyID
		changes["guardianPolicyId"] = *p.GuardianPolicyID
	}
	if p.GuardianCredentialID != nil {
		v := *p.GuardianCredentialID
		out.GuardianCredentialID = &v
		changes["guardianCredentialId"] = v
	}
	if p.HederaTokenID != nil {
		v := *p.HederaTokenID
		out.HederaTokenID = &v
		changes["hederaTokenId"] = v
	}
	if p.ExpiresAt != nil {
		if !p.ExpiresAt.After(out.ValidityPeriod.IssuedAt) {
			return c, apperrors.Validation("validityPeriod.expiresAt must be after issuedAt")
		}
		out.ValidityPeriod.ExpiresAt = *p.ExpiresAt
		out.ValidityPeriod.IsExpired = now.After(*p.ExpiresAt)
		changes["expiresAt"] = p.ExpiresAt.UTC().Format(time.RFC3339)
	}
	if p.Evidence != nil {
		if err := validateEvidence(*p.Evidence); err != nil {
			return c, err
		}
		replacement := models.Credential{Evidence: *p.Evidence}.Clone()
		out.Evidence = replacement.Evidence
		for i := range out.Evidence {
			if out.Evidence[i].UploadedAt.IsZero() {
				out.Evidence[i].UploadedAt = now
			}
		}
		changes["evidence"] = len(out.Evidence)
	}
	if p.Criteria != nil {
		if strings.TrimSpace(p.Criteria.Standard) == "" {
			return c, apperrors.Validation("criteria.standard is required")
		}
		replacement := models.Credential{Criteria: *p.Criteria}.Clone()
		out.Criteria = replacement.Criteria
		changes["criteria"] = out.Criteria.Standard
	}
	if p.Impact != nil {
		replacement := models.Credential{Impact: *p.Impact}.Clone()
		out.Impact = replacement.Impact
		if out.Impact.CarbonReduction != nil && out.Impact.CarbonReduction.Unit == "" {
			out.Impact.CarbonReduction.Unit = models.DefaultCarbonUnit
		}
		changes["impact"] = true
	}
	if p.Metadata != nil {
		replacement := models.Credential{Metadata: *p.Metadata}.Clone()
		out.Metadata = replacement.Metadata
		changes["metadata"] = true
	}

	if len(changes) == 0 {
		return c, apperrors.Validation("no changes supplied")
	}

	out.UpdatedAt = now
	appendAudit(&out, models.AuditUpdated, &actor.ID, now, "", changes)
	return out, nil
}

// MarkRequirement records a verifier's assessment of one criteria requirement.
func MarkRequirement(c models.Credential, actor Actor, index int, isMet bool, evidence string, now time.Time) (models.Credential, error) {
	if err := requireVerifier(actor, "assess"); err != nil {
		return c, err
	}
	if c.Status != models.CredentialStatusPendingVerification {
		return c, apperrors.Precondition("credential is not pending verification")
	}
	if index < 0 || index >= len(c.Criteria.Requirements) {
		return c, apperrors.Validation("requirement index %d out of range", index)
	}

	out := c.Clone()
	req := &out.Criteria.Requirements[index]
	req.IsMet = isMet
	if evidence != "" {
		req.Evidence = evidence
	}
	verifier, at := actor.ID, now
	req.VerifiedBy = &verifier
	req.VerifiedAt = &at
	out.UpdatedAt = now

	appendAudit(&out, models.AuditUpdated, &actor.ID, now, "", models.JSONB{
		"requirement": index,
		"criterion":   req.Criterion,
		"isMet":       isMet,
	})
	return out, nil
}

// VerifyEvidence marks one evidence attachment as checked by the actor.
func VerifyEvidence(c models.Credential, actor Actor, index int, now time.Time) (models.Credential, error) {
	if err := requireVerifier(actor, "check evidence on"); err != nil {
		return c, err
	}
	if c.Status != models.CredentialStatusPendingVerification {
		return c, apperrors.Precondition("credential is not pending verification")
	}
	if index < 0 || index >= len(c.Evidence) {
		return c, apperrors.Validation("evidence index %d out of range", index)
	}

	out := c.Clone()
	ev := &out.Evidence[index]
	verifier, at := actor.ID, now
	ev.VerifiedBy = &verifier
	ev.VerifiedAt = &at
	out.UpdatedAt = now

	appendAudit(&out, models.AuditUpdated, &actor.ID, now, "", models.JSONB{
		"evidence": index,
		"title":    ev.Title,
		"verified": true,
	})
	return out, nil
}

type VerifyInput struct {
	Method models.VerificationMethod
	Notes  string
	Score  *float64
}

// Verify completes verification of a pending credential.
func Verify(c models.Credential, actor Actor, in VerifyInput, now time.Time) (models.Credential, error) {
	if err := requireVerifier(actor, "verify"); err != nil {
		return c, err
	}
	if c.Status != models.CredentialStatusPendingVerification {
		return c, apperrors.Precondition("credential is not pending verification")
	}
	// A verified credential past expiry would flip to expired on save.
	if c.ValidityPeriod.IsExpired || now.After(c.ValidityPeriod.ExpiresAt) {
		return c, apperrors.Precondition("credential validity period has ended")
	}
	if !in.Method.IsValid() {
		return c, apperrors.Validation("invalid verification method %q", in.Method)
	}
	if in.Score != nil && (*in.Score < MinScore || *in.Score > MaxScore) {
		return c, apperrors.Validation("score must be between %d and %d", MinScore, MaxScore)
	}

	out := c.Clone()
	v := models.Verification{
		Verifier:           actor.ID,
		VerifiedAt:         now,
		VerificationMethod: in.Method,
		Notes:              in.Notes,
	}
	if in.Score != nil {
		score := *in.Score
		v.Score = &score
	}
	out.Verification = &v
	out.Status = models.CredentialStatusVerified
	out.UpdatedAt = now

	appendAudit(&out, models.AuditVerified, &actor.ID, now, in.Notes, nil)
	return out, nil
}

// Reject declines a pending credential.
func Reject(c models.Credential, actor Actor, reason string, now time.Time) (models.Credential, error) {
	if err := requireVerifier(actor, "reject"); err != nil {
		return c, err
	}
	if c.Status != models.CredentialStatusPendingVerification {
		return c, apperrors.Precondition("credential is not pending verification")
	}
	if strings.TrimSpace(reason) == "" {
		return c, apperrors.Validation("a rejection reason is required")
	}

	out := c.Clone()
	out.Status = models.CredentialStatusRejected
	out.UpdatedAt = now
	appendAudit(&out, models.AuditRejected, &actor.ID, now, reason, nil)
	return out, nil
}

// Revoke withdraws a credential. Only the issuer or an admin may revoke, and
// terminal credentials stay as they are.
func Revoke(c models.Credential, actor Actor, reason string, now time.Time) (models.Credential, error) {
	if err := requireIssuerOrAdmin(c, actor, "revoke"); err != nil {
		return c, err
	}
	if c.Status.IsTerminal() {
		return c, apperrors.Precondition("credential is already %s", c.Status)
	}

	out := c.Clone()
	out.Status = models.CredentialStatusRevoked
	out.UpdatedAt = now
	appendAudit(&out, models.AuditRevoked, &actor.ID, now, reason, nil)
	return out, nil
}

// ApplyExpiry brings the derived expiry state in line with now. It reports
// whether anything changed. A verified credential past its expiry becomes
// expired and receives a system audit entry.
func ApplyExpiry(c models.Credential, now time.Time) (models.Credential, bool) {
	expired := now.After(c.ValidityPeriod.ExpiresAt)
	flip := expired && c.Status == models.CredentialStatusVerified
	if c.ValidityPeriod.IsExpired == expired && !flip {
		return c, false
	}

	out := c.Clone()
	out.ValidityPeriod.IsExpired = expired
	if flip {
		out.Status = models.CredentialStatusExpired
		appendAudit(&out, models.AuditExpired, nil, now, "validity period ended", nil)
	}
	out.UpdatedAt = now
	return out, true
}

func appendAudit(c *models.Credential, action models.AuditAction, by *uuid.UUID, at time.Time, notes string, changes models.JSONB) {
	var performer *uuid.UUID
	if by != nil {
		id := *by
		performer = &id
	}
	c.AuditTrail = append(c.AuditTrail, models.AuditEntry{
		Action:      action,
		PerformedBy: performer,
		Timestamp:   at,
		Notes:       notes,
		Changes:     changes,
	})
}

func validateEvidence(evidence []models.Evidence) error {
	for i, e := range evidence {
		if !e.Type.IsValid() {
			return apperrors.Validation("evidence[%d]: invalid type %q", i, e.Type)
		}
		if strings.TrimSpace(e.Title) == "" {
			return apperrors.Validation("evidence[%d]: title is required", i)
		}
		if strings.TrimSpace(e.URL) == "" {
			return apperrors.Validation("evidence[%d]: url is required", i)
		}
	}
	return nil
}
