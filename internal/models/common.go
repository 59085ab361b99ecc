// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time      `json:"createdAt" gorm:"index"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// BeforeCreate assigns the id client side so that callers can reference a
// record before the insert returns.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	b.EnsureID()
	return nil
}

func (b *BaseModel) EnsureID() {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	return scanJSON(value, j)
}

// Clone returns a shallow copy of the top-level map.
func (j JSONB) Clone() JSONB {
	if j == nil {
		return nil
	}
	out := make(JSONB, len(j))
	for k, v := range j {
		out[k] = v
	}
	return out
}

func jsonValue(v interface{}) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func scanJSON(value interface{}, dst interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", value)
	}
}

func cloneUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

// Enums
type UserRole string

const (
	RoleProducer UserRole = "producer"
	RoleConsumer UserRole = "consumer"
	RoleVerifier UserRole = "verifier"
	RoleAdmin    UserRole = "admin"
)

func (r UserRole) IsValid() bool {
	switch r {
	case RoleProducer, RoleConsumer, RoleVerifier, RoleAdmin:
		return true
	}
	return false
}

type ProductCategory string

const (
	CategoryAgriculture ProductCategory = "agriculture"
	CategoryTextiles    ProductCategory = "textiles"
	CategoryElectronics ProductCategory = "electronics"
	CategoryFood        ProductCategory = "food"
	CategoryCosmetics   ProductCategory = "cosmetics"
	CategoryEnergy      ProductCategory = "energy"
	CategoryOther       ProductCategory = "other"
)

func (c ProductCategory) IsValid() bool {
	switch c {
	case CategoryAgriculture, CategoryTextiles, CategoryElectronics, CategoryFood,
		CategoryCosmetics, CategoryEnergy, CategoryOther:
		return true
	}
	return false
}

type ProductStatus string

const (
	ProductStatusDraft               ProductStatus = "draft"
	ProductStatusPendingVerification ProductStatus = "pending_verification"
	ProductStatusVerified            ProductStatus = "verified"
	ProductStatusRejected            ProductStatus = "rejected"
	ProductStatusArchived            ProductStatus = "archived"
)

func (s ProductStatus) IsValid() bool {
	switch s {
	case ProductStatusDraft, ProductStatusPendingVerification, ProductStatusVerified,
		ProductStatusRejected, ProductStatusArchived:
		return true
	}
	return false
}

type SupplyChainStageName string

const (
	StageRawMaterials SupplyChainStageName = "raw_materials"
	StageProduction   SupplyChainStageName = "production"
	StagePackaging    SupplyChainStageName = "packaging"
	StageTransport    SupplyChainStageName = "transport"
	StageRetail       SupplyChainStageName = "retail"
	StageEndOfLife    SupplyChainStageName = "end_of_life"
)

type DataSource string

const (
	DataSourceManual   DataSource = "manual"
	DataSourceIoT      DataSource = "iot"
	DataSourceAPI      DataSource = "api"
	DataSourceDocument DataSource = "document"
)

type CredentialType string

const (
	CredentialOrganicCertification   CredentialType = "organic_certification"
	CredentialFairTrade              CredentialType = "fair_trade"
	CredentialCarbonNeutral          CredentialType = "carbon_neutral"
	CredentialRecyclable             CredentialType = "recyclable"
	CredentialCrueltyFree            CredentialType = "cruelty_free"
	CredentialSustainableMaterials   CredentialType = "sustainable_materials"
	CredentialEnergyEfficient        CredentialType = "energy_efficient"
	CredentialWaterConservation      CredentialType = "water_conservation"
	CredentialBiodiversityProtection CredentialType = "biodiversity_protection"
	CredentialSocialResponsibility   CredentialType = "social_responsibility"
	CredentialRegenerativeAgri       CredentialType = "regenerative_agriculture"
	CredentialCircularEconomy        CredentialType = "circular_economy"
)

func (t CredentialType) IsValid() bool {
	switch t {
	case CredentialOrganicCertification, CredentialFairTrade, CredentialCarbonNeutral,
		CredentialRecyclable, CredentialCrueltyFree, CredentialSustainableMaterials,
		CredentialEnergyEfficient, CredentialWaterConservation, CredentialBiodiversityProtection,
		CredentialSocialResponsibility, CredentialRegenerativeAgri, CredentialCircularEconomy:
		return true
	}
	return false
}

type CredentialStatus string

const (
	CredentialStatusDraft               CredentialStatus = "draft"
	CredentialStatusPendingVerification CredentialStatus = "pending_verification"
	CredentialStatusVerified            CredentialStatus = "verified"
	CredentialStatusRejected            CredentialStatus = "rejected"
	CredentialStatusExpired             CredentialStatus = "expired"
	CredentialStatusRevoked             CredentialStatus = "revoked"
)

func (s CredentialStatus) IsValid() bool {
	switch s {
	case CredentialStatusDraft, CredentialStatusPendingVerification, CredentialStatusVerified,
		CredentialStatusRejected, CredentialStatusExpired, CredentialStatusRevoked:
		return true
	}
	return false
}

// IsTerminal reports whether no further lifecycle transition is possible.
func (s CredentialStatus) IsTerminal() bool {
	return s == CredentialStatusRejected || s == CredentialStatusExpired || s == CredentialStatusRevoked
}

type EvidenceType string

const (
	EvidenceDocument    EvidenceType = "document"
	EvidenceImage       EvidenceType = "image"
	EvidenceSensorData  EvidenceType = "sensor_data"
	EvidenceTestResult  EvidenceType = "test_result"
	EvidenceAuditReport EvidenceType = "audit_report"
	EvidenceCertificate EvidenceType = "certificate"
)

func (t EvidenceType) IsValid() bool {
	switch t {
	case EvidenceDocument, EvidenceImage, EvidenceSensorData, EvidenceTestResult,
		EvidenceAuditReport, EvidenceCertificate:
		return true
	}
	return false
}

type VerificationMethod string

const (
	MethodDocumentReview  VerificationMethod = "document_review"
	MethodSiteVisit       VerificationMethod = "site_visit"
	MethodThirdPartyAudit VerificationMethod = "third_party_audit"
	MethodAutomatedCheck  VerificationMethod = "automated_check"
)

func (m VerificationMethod) IsValid() bool {
	switch m {
	case MethodDocumentReview, MethodSiteVisit, MethodThirdPartyAudit, MethodAutomatedCheck:
		return true
	}
	return false
}

type AuditAction string

const (
	AuditCreated   AuditAction = "created"
	AuditSubmitted AuditAction = "submitted"
	AuditVerified  AuditAction = "verified"
	AuditRejected  AuditAction = "rejected"
	AuditExpired   AuditAction = "expired"
	AuditRevoked   AuditAction = "revoked"
	AuditUpdated   AuditAction = "updated"
)

func (a AuditAction) IsValid() bool {
	switch a {
	case AuditCreated, AuditSubmitted, AuditVerified, AuditRejected, AuditExpired, AuditRevoked, AuditUpdated:
		return true
	}
	return false
}

const DefaultCarbonUnit = "kg CO2e"
