// internal/models/credential.go
package models

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Credential struct {
	BaseModel
	Name                 string                          `json:"name" gorm:"size:255;not null"`
	Type                 CredentialType                  `json:"type" gorm:"type:varchar(40);not null;index"`
	IssuerID             uuid.UUID                       `json:"issuer" gorm:"type:uuid;not null;index"`
	HolderID             uuid.UUID                       `json:"holder" gorm:"type:uuid;not null;index"`
	ProductID            *uuid.UUID                      `json:"product,omitempty" gorm:"type:uuid;index"`
	GuardianPolicyID     string                          `json:"guardianPolicyId" gorm:"size:255;not null"`
	GuardianCredentialID *string                         `json:"guardianCredentialId,omitempty" gorm:"uniqueIndex;size:255"`
	HederaTokenID        *string                         `json:"hederaTokenId,omitempty" gorm:"uniqueIndex;size:64"`
	Status               CredentialStatus                `json:"status" gorm:"type:varchar(30);default:'draft';index"`
	ValidityPeriod       ValidityPeriod                  `json:"validityPeriod" gorm:"embedded;embeddedPrefix:validity_"`
	Evidence             datatypes.JSONSlice[Evidence]   `json:"evidence" gorm:"type:jsonb"`
	Criteria             Criteria                        `json:"criteria" gorm:"type:jsonb"`
	Verification         *Verification                   `json:"verification,omitempty" gorm:"type:jsonb"`
	Impact               Impact                          `json:"impact" gorm:"type:jsonb"`
	Metadata             Metadata                        `json:"metadata" gorm:"type:jsonb"`
	AuditTrail           datatypes.JSONSlice[AuditEntry] `json:"auditTrail" gorm:"type:jsonb"`
}

type ValidityPeriod struct {
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt" gorm:"not null;index"`
	IsExpired bool      `json:"isExpired" gorm:"default:false"`
}

type Evidence struct {
	Type        EvidenceType `json:"type"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url"`
	Hash        string       `json:"hash,omitempty"`
	UploadedAt  time.Time    `json:"uploadedAt"`
	VerifiedBy  *uuid.UUID   `json:"verifiedBy,omitempty"`
	VerifiedAt  *time.Time   `json:"verifiedAt,omitempty"`
}

type Requirement struct {
	Criterion  string     `json:"criterion"`
	IsMet      bool       `json:"isMet"`
	Evidence   string     `json:"evidence,omitempty"`
	VerifiedBy *uuid.UUID `json:"verifiedBy,omitempty"`
	VerifiedAt *time.Time `json:"verifiedAt,omitempty"`
}

type Criteria struct {
	Standard     string        `json:"standard"`
	Version      string        `json:"version,omitempty"`
	Requirements []Requirement `json:"requirements"`
}

func (c Criteria) Value() (driver.Value, error) { return jsonValue(c) }

func (c *Criteria) Scan(value interface{}) error {
	if value == nil {
		*c = Criteria{}
		return nil
	}
	return scanJSON(value, c)
}

type Verification struct {
	Verifier           uuid.UUID          `json:"verifier"`
	VerifiedAt         time.Time          `json:"verifiedAt"`
	VerificationMethod VerificationMethod `json:"verificationMethod"`
	Notes              string             `json:"notes,omitempty"`
	Score              *float64           `json:"score,omitempty"`
}

func (v Verification) Value() (driver.Value, error) { return jsonValue(v) }

func (v *Verification) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	return scanJSON(value, v)
}

type CarbonReduction struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

type Impact struct {
	CarbonReduction     *CarbonReduction `json:"carbonReduction,omitempty"`
	SocialImpact        string           `json:"socialImpact,omitempty"`
	EnvironmentalImpact string           `json:"environmentalImpact,omitempty"`
	EconomicImpact      string           `json:"economicImpact,omitempty"`
}

func (i Impact) Value() (driver.Value, error) { return jsonValue(i) }

func (i *Impact) Scan(value interface{}) error {
	if value == nil {
		*i = Impact{}
		return nil
	}
	return scanJSON(value, i)
}

type Metadata struct {
	Tags         []string `json:"tags,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
	CustomFields JSONB    `json:"customFields,omitempty"`
}

func (m Metadata) Value() (driver.Value, error) { return jsonValue(m) }

func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = Metadata{}
		return nil
	}
	return scanJSON(value, m)
}

// AuditEntry is one immutable record in a credential's audit trail.
// PerformedBy is nil for system transitions such as expiry.
type AuditEntry struct {
	Action      AuditAction `json:"action"`
	PerformedBy *uuid.UUID  `json:"performedBy,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
	Notes       string      `json:"notes,omitempty"`
	Changes     JSONB       `json:"changes,omitempty"`
}

func (c *Credential) IsIssuer(userID uuid.UUID) bool {
	return c.IssuerID == userID
}

func (c *Credential) IsHolder(userID uuid.UUID) bool {
	return c.HolderID == userID
}

// Clone returns a deep copy. Lifecycle rules work on clones so that the
// caller's snapshot is never mutated.
func (c Credential) Clone() Credential {
	out := c
	out.ProductID = cloneUUID(c.ProductID)
	out.GuardianCredentialID = cloneString(c.GuardianCredentialID)
	out.HederaTokenID = cloneString(c.HederaTokenID)

	if c.Evidence != nil {
		out.Evidence = make(datatypes.JSONSlice[Evidence], len(c.Evidence))
		for i, e := range c.Evidence {
			e.VerifiedBy = cloneUUID(e.VerifiedBy)
			e.VerifiedAt = cloneTime(e.VerifiedAt)
			out.Evidence[i] = e
		}
	}

	if c.Criteria.Requirements != nil {
		out.Criteria.Requirements = make([]Requirement, len(c.Criteria.Requirements))
		for i, r := range c.Criteria.Requirements {
			r.VerifiedBy = cloneUUID(r.VerifiedBy)
			r.VerifiedAt = cloneTime(r.VerifiedAt)
			out.Criteria.Requirements[i] = r
		}
	}

	if c.Verification != nil {
		v := *c.Verification
		if v.Score != nil {
			score := *v.Score
			v.Score = &score
		}
		out.Verification = &v
	}

	if c.Impact.CarbonReduction != nil {
		cr := *c.Impact.CarbonReduction
		out.Impact.CarbonReduction = &cr
	}

	out.Metadata.Tags = cloneStrings(c.Metadata.Tags)
	out.Metadata.Keywords = cloneStrings(c.Metadata.Keywords)
	out.Metadata.CustomFields = c.Metadata.CustomFields.Clone()

	if c.AuditTrail != nil {
		out.AuditTrail = make(datatypes.JSONSlice[AuditEntry], len(c.AuditTrail))
		for i, a := range c.AuditTrail {
			a.PerformedBy = cloneUUID(a.PerformedBy)
			a.Changes = a.Changes.Clone()
			out.AuditTrail[i] = a
		}
	}
	return out
}
