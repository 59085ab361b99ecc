// internal/models/product.go
package models

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

type Product struct {
	BaseModel
	Name                 string                                `json:"name" gorm:"size:255;not null"`
	Description          string                                `json:"description" gorm:"type:text;not null"`
	ProducerID           uuid.UUID                             `json:"producer" gorm:"type:uuid;not null;index"`
	Category             ProductCategory                       `json:"category" gorm:"type:varchar(30);not null;index"`
	SKU                  string                                `json:"sku" gorm:"uniqueIndex;size:100;not null"`
	QRCode               string                                `json:"qrCode" gorm:"uniqueIndex;size:150;not null"`
	HederaTokenID        *string                               `json:"hederaTokenId,omitempty" gorm:"uniqueIndex;size:64"`
	SupplyChain          datatypes.JSONSlice[SupplyChainStage] `json:"supplyChain" gorm:"type:jsonb"`
	SustainabilityScore  SustainabilityScore                   `json:"sustainabilityScore" gorm:"embedded;embeddedPrefix:score_"`
	TotalCarbonFootprint CarbonTotal                           `json:"totalCarbonFootprint" gorm:"embedded;embeddedPrefix:carbon_"`
	Certifications       pq.StringArray                        `json:"certifications" gorm:"type:text[]"`
	Status               ProductStatus                         `json:"status" gorm:"type:varchar(30);default:'draft';index"`
	Images               datatypes.JSONSlice[ProductImage]     `json:"images" gorm:"type:jsonb"`
	Specifications       Specifications                        `json:"specifications" gorm:"type:jsonb"`
	Pricing              Pricing                               `json:"pricing" gorm:"embedded;embeddedPrefix:pricing_"`
	Tags                 pq.StringArray                        `json:"tags" gorm:"type:text[]"`
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Location struct {
	Country     string       `json:"country,omitempty"`
	City        string       `json:"city,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

type CarbonFootprint struct {
	Value             float64 `json:"value"`
	Unit              string  `json:"unit"`
	CalculationMethod string  `json:"calculationMethod,omitempty"`
}

type StageEvidence struct {
	Type        string    `json:"type" validate:"omitempty,oneof=image document sensor_data certificate"`
	URL         string    `json:"url,omitempty"`
	Description string    `json:"description,omitempty"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

type SupplyChainStage struct {
	Stage           SupplyChainStageName `json:"stage"`
	Location        Location             `json:"location"`
	Timestamp       time.Time            `json:"timestamp"`
	CarbonFootprint *CarbonFootprint     `json:"carbonFootprint,omitempty"`
	DataSource      DataSource           `json:"dataSource,omitempty"`
	Evidence        []StageEvidence      `json:"evidence"`
}

type SustainabilityScore struct {
	Overall       float64 `json:"overall" gorm:"default:0"`
	Carbon        float64 `json:"carbon" gorm:"default:0"`
	Social        float64 `json:"social" gorm:"default:0"`
	Environmental float64 `json:"environmental" gorm:"default:0"`
}

type CarbonTotal struct {
	Value          float64   `json:"value" gorm:"default:0"`
	Unit           string    `json:"unit" gorm:"size:20;default:'kg CO2e'"`
	LastCalculated time.Time `json:"lastCalculated"`
}

type ProductImage struct {
	URL       string `json:"url"`
	Alt       string `json:"alt,omitempty"`
	IsPrimary bool   `json:"isPrimary"`
}

type Dimensions struct {
	Length float64 `json:"length,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
	Unit   string  `json:"unit,omitempty"`
}

type Specifications struct {
	Weight     float64    `json:"weight,omitempty"`
	Dimensions Dimensions `json:"dimensions"`
	Materials  []string   `json:"materials,omitempty"`
	Packaging  string     `json:"packaging,omitempty"`
}

func (s Specifications) Value() (driver.Value, error) { return jsonValue(s) }

func (s *Specifications) Scan(value interface{}) error {
	if value == nil {
		*s = Specifications{}
		return nil
	}
	return scanJSON(value, s)
}

type Pricing struct {
	Currency string  `json:"currency" gorm:"size:3;default:'USD'"`
	Price    float64 `json:"price,omitempty"`
	Unit     string  `json:"unit,omitempty" gorm:"size:30"`
}

// IsOwnedBy reports whether userID is the producer of p.
func (p *Product) IsOwnedBy(userID uuid.UUID) bool {
	return p.ProducerID == userID
}

// HasCertification reports whether the credential id is linked to p.
func (p *Product) HasCertification(credentialID uuid.UUID) bool {
	id := credentialID.String()
	for _, c := range p.Certifications {
		if c == id {
			return true
		}
	}
	return false
}

func (p *Product) AddCertification(credentialID uuid.UUID) {
	if !p.HasCertification(credentialID) {
		p.Certifications = append(p.Certifications, credentialID.String())
	}
}

func (p *Product) RemoveCertification(credentialID uuid.UUID) {
	id := credentialID.String()
	kept := p.Certifications[:0:0]
	for _, c := range p.Certifications {
		if c != id {
			kept = append(kept, c)
		}
	}
	p.Certifications = kept
}

// Clone returns a copy that shares no mutable state with p.
func (p Product) Clone() Product {
	out := p
	out.HederaTokenID = cloneString(p.HederaTokenID)
	out.Certifications = pq.StringArray(cloneStrings(p.Certifications))
	out.Tags = pq.StringArray(cloneStrings(p.Tags))
	out.Specifications.Materials = cloneStrings(p.Specifications.Materials)
	if p.Images != nil {
		out.Images = append(datatypes.JSONSlice[ProductImage](nil), p.Images...)
	}
	if p.SupplyChain != nil {
		out.SupplyChain = make(datatypes.JSONSlice[SupplyChainStage], len(p.SupplyChain))
		for i, stage := range p.SupplyChain {
			if stage.CarbonFootprint != nil {
				fp := *stage.CarbonFootprint
				stage.CarbonFootprint = &fp
			}
			if stage.Location.Coordinates != nil {
				coords := *stage.Location.Coordinates
				stage.Location.Coordinates = &coords
			}
			stage.Evidence = append([]StageEvidence(nil), stage.Evidence...)
			out.SupplyChain[i] = stage
		}
	}
	return out
}

// ProductSummary is the projection used when a credential expands its product.
type ProductSummary struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	SKU      string          `json:"sku"`
	Category ProductCategory `json:"category,omitempty"`
}

func (p *Product) Summary() *ProductSummary {
	return &ProductSummary{
		ID:       p.ID.String(),
		Name:     p.Name,
		SKU:      p.SKU,
		Category: p.Category,
	}
}
