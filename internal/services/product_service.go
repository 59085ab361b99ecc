// internal/services/product_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/greenproof/greenproof-backend/internal/apperrors"
	"github.com/greenproof/greenproof-backend/internal/lifecycle"
	"github.com/greenproof/greenproof-backend/internal/models"
	"github.com/greenproof/greenproof-backend/internal/repository"
	"github.com/greenproof/greenproof-backend/internal/utils"
)

// Placeholder sustainability score assigned whenever the supply chain is
// recalculated. No scoring model exists yet.
var placeholderScore = models.SustainabilityScore{
	Overall:       75,
	Carbon:        80,
	Social:        70,
	Environmental: 75,
}

type ProductService struct {
	store     repository.Store
	qrService *QRService
	now       repository.Clock
}

type CreateProductRequest struct {
	Name           string                 `json:"name" validate:"required,min=2,max=255"`
	Description    string                 `json:"description" validate:"required,max=5000"`
	Category       models.ProductCategory `json:"category" validate:"required,product_category"`
	HederaTokenID  *string                `json:"hederaTokenId,omitempty" validate:"omitempty,max=64"`
	Specifications *models.Specifications `json:"specifications,omitempty"`
	Pricing        *models.Pricing        `json:"pricing,omitempty"`
	Images         []models.ProductImage  `json:"images,omitempty" validate:"omitempty,dive"`
	Tags           []string               `json:"tags,omitempty" validate:"omitempty,max=20,dive,max=50"`
}

// UpdateProductRequest replaces every editable field. SKU, QR payload,
// producer, supply chain and certifications are managed elsewhere.
type UpdateProductRequest struct {
	Name           string                 `json:"name" validate:"required,min=2,max=255"`
	Description    string                 `json:"description" validate:"required,max=5000"`
	Category       models.ProductCategory `json:"category" validate:"required,product_category"`
	Status         models.ProductStatus   `json:"status" validate:"omitempty,product_status"`
	Specifications models.Specifications  `json:"specifications"`
	Pricing        models.Pricing         `json:"pricing"`
	Images         []models.ProductImage  `json:"images" validate:"omitempty,dive"`
	Tags           []string               `json:"tags" validate:"omitempty,max=20,dive,max=50"`
}

type AddSupplyChainStageRequest struct {
	Stage           models.SupplyChainStageName `json:"stage" validate:"required,oneof=raw_materials production packaging transport retail end_of_life"`
	Location        models.Location             `json:"location"`
	Timestamp       *time.Time                  `json:"timestamp,omitempty"`
	CarbonFootprint *models.CarbonFootprint     `json:"carbonFootprint,omitempty"`
	DataSource      models.DataSource           `json:"dataSource,omitempty" validate:"omitempty,oneof=manual iot api document"`
	Evidence        []models.StageEvidence      `json:"evidence,omitempty" validate:"omitempty,dive"`
}

type ProductSearchParams struct {
	utils.PaginationParams
	Category   models.ProductCategory
	ProducerID *uuid.UUID
	Status     models.ProductStatus
}

// CreatedProduct is the create response: the product plus a rendering of
// its QR payload.
type CreatedProduct struct {
	Product *models.Product `json:"product"`
	QRCode  *QRCodeResult   `json:"qrCode"`
}

func NewProductService(store repository.Store, qrService *QRService, clock repository.Clock) *ProductService {
	return &ProductService{
		store:     store,
		qrService: qrService,
		now:       clock,
	}
}

func (s *ProductService) CreateProduct(ctx context.Context, producerID uuid.UUID, req *CreateProductRequest) (*CreatedProduct, error) {
	actor, _, err := resolveActor(ctx, s.store.Users(), producerID)
	if err != nil {
		return nil, err
	}
	if !actor.HasRole(models.RoleProducer, models.RoleAdmin) {
		return nil, apperrors.Forbidden("only producers can create products")
	}

	now := s.now()
	sku := GenerateSKU(req.Category, now)

	product := &models.Product{
		Name:          utils.SanitizeText(req.Name),
		Description:   utils.SanitizeText(req.Description),
		ProducerID:    actor.ID,
		Category:      req.Category,
		SKU:           sku,
		QRCode:        GenerateQRPayload(sku, now),
		HederaTokenID: req.HederaTokenID,
		SupplyChain:   datatypes.JSONSlice[models.SupplyChainStage]{},
		TotalCarbonFootprint: models.CarbonTotal{
			Unit:           models.DefaultCarbonUnit,
			LastCalculated: now,
		},
		Certifications: pq.StringArray{},
		Status:         models.ProductStatusDraft,
		Images:         datatypes.JSONSlice[models.ProductImage](req.Images),
		Tags:           pq.StringArray(utils.SanitizeStrings(req.Tags)),
	}
	if req.Specifications != nil {
		product.Specifications = *req.Specifications
	}
	if req.Pricing != nil {
		product.Pricing = *req.Pricing
	}
	normalizePricing(&product.Pricing)

	if err := s.store.Products().Create(ctx, product); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"product_id":  product.ID,
		"producer_id": product.ProducerID,
		"sku":         product.SKU,
	}).Info("Product created")

	qr, err := s.qrService.Generate(product.QRCode)
	if err != nil {
		return nil, err
	}

	return &CreatedProduct{Product: product, QRCode: qr}, nil
}

func (s *ProductService) GetProduct(ctx context.Context, productID uuid.UUID) (*ExpandedProduct, error) {
	product, err := s.store.Products().GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	return ExpandProduct(ctx, s.store, product)
}

func (s *ProductService) GetProductByQRCode(ctx context.Context, qrCode string) (*ExpandedProduct, error) {
	product, err := s.store.Products().GetByQRCode(ctx, qrCode)
	if err != nil {
		return nil, err
	}
	return ExpandProduct(ctx, s.store, product)
}

func (s *ProductService) GetProducts(ctx context.Context, params ProductSearchParams) ([]ExpandedProduct, int64, error) {
	if params.Category != "" && !params.Category.IsValid() {
		return nil, 0, apperrors.Validation("invalid product category %q", params.Category)
	}
	if params.Status != "" && !params.Status.IsValid() {
		return nil, 0, apperrors.Validation("invalid product status %q", params.Status)
	}

	products, total, err := s.store.Products().List(ctx, repository.ProductFilter{
		Category:   params.Category,
		ProducerID: params.ProducerID,
		Status:     params.Status,
		Search:     params.Search,
		SortBy:     params.Sort,
		SortDesc:   params.Order == "desc",
		Page:       pageOf(params.Page, params.Limit),
	})
	if err != nil {
		return nil, 0, err
	}

	expanded, err := ExpandProducts(ctx, s.store, products, false)
	if err != nil {
		return nil, 0, err
	}
	return expanded, total, nil
}

func (s *ProductService) UpdateProduct(ctx context.Context, productID, userID uuid.UUID, req *UpdateProductRequest) (*models.Product, error) {
	product, err := s.loadOwned(ctx, productID, userID, "update")
	if err != nil {
		return nil, err
	}

	product.Name = utils.SanitizeText(req.Name)
	product.Description = utils.SanitizeText(req.Description)
	product.Category = req.Category
	if req.Status != "" {
		product.Status = req.Status
	}
	product.Specifications = req.Specifications
	product.Pricing = req.Pricing
	normalizePricing(&product.Pricing)
	product.Images = datatypes.JSONSlice[models.ProductImage](req.Images)
	product.Tags = pq.StringArray(utils.SanitizeStrings(req.Tags))

	if err := s.store.Products().Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// AddSupplyChainStage appends a stage and recalculates the carbon total and
// score before saving.
func (s *ProductService) AddSupplyChainStage(ctx context.Context, productID, userID uuid.UUID, req *AddSupplyChainStageRequest) (*models.Product, error) {
	product, err := s.loadOwned(ctx, productID, userID, "update")
	if err != nil {
		return nil, err
	}

	now := s.now()
	stage := models.SupplyChainStage{
		Stage:           req.Stage,
		Location:        req.Location,
		Timestamp:       now,
		CarbonFootprint: req.CarbonFootprint,
		DataSource:      req.DataSource,
		Evidence:        req.Evidence,
	}
	if req.Timestamp != nil && !req.Timestamp.IsZero() {
		stage.Timestamp = *req.Timestamp
	}
	if stage.DataSource == "" {
		stage.DataSource = models.DataSourceManual
	}
	if stage.CarbonFootprint != nil {
		if stage.CarbonFootprint.Value < 0 {
			return nil, apperrors.Validation("carbonFootprint.value must not be negative")
		}
		if stage.CarbonFootprint.Unit == "" {
			stage.CarbonFootprint.Unit = models.DefaultCarbonUnit
		}
	}
	if stage.Evidence == nil {
		stage.Evidence = []models.StageEvidence{}
	}
	for i := range stage.Evidence {
		stage.Evidence[i].Description = utils.SanitizeText(stage.Evidence[i].Description)
		if stage.Evidence[i].UploadedAt.IsZero() {
			stage.Evidence[i].UploadedAt = now
		}
	}

	product.SupplyChain = append(product.SupplyChain, stage)
	Recalculate(product, now)

	if err := s.store.Products().Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *ProductService) DeleteProduct(ctx context.Context, productID, userID uuid.UUID) error {
	product, err := s.loadOwned(ctx, productID, userID, "delete")
	if err != nil {
		return err
	}

	if err := s.store.Products().Delete(ctx, product.ID); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"product_id": product.ID,
		"user_id":    userID,
	}).Info("Product deleted")
	return nil
}

func (s *ProductService) GetProductQRCode(ctx context.Context, productID uuid.UUID) (*QRCodeResult, error) {
	if _, err := s.store.Products().GetByID(ctx, productID); err != nil {
		return nil, err
	}
	return s.qrService.ForProduct(productID)
}

func (s *ProductService) loadOwned(ctx context.Context, productID, userID uuid.UUID, verb string) (*models.Product, error) {
	actor, _, err := resolveActor(ctx, s.store.Users(), userID)
	if err != nil {
		return nil, err
	}

	product, err := s.store.Products().GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if !canManageProduct(product, actor) {
		return nil, apperrors.Forbidden("not authorized to %s this product", verb)
	}
	return product, nil
}

func canManageProduct(p *models.Product, actor lifecycle.Actor) bool {
	return actor.IsAdmin() || p.IsOwnedBy(actor.ID)
}

// Recalculate replaces the carbon total with the sum of the stage values and
// resets the sustainability score.
func Recalculate(p *models.Product, now time.Time) {
	var total float64
	for _, stage := range p.SupplyChain {
		if stage.CarbonFootprint != nil {
			total += stage.CarbonFootprint.Value
		}
	}

	p.TotalCarbonFootprint = models.CarbonTotal{
		Value:          total,
		Unit:           models.DefaultCarbonUnit,
		LastCalculated: now,
	}
	p.SustainabilityScore = placeholderScore
}

// GenerateSKU builds GP-<CATEGORY>-<unix millis>-<8 hex>.
func GenerateSKU(category models.ProductCategory, now time.Time) string {
	return fmt.Sprintf("GP-%s-%d-%s", strings.ToUpper(string(category)), now.UnixMilli(), uuid.New().String()[:8])
}

// GenerateQRPayload derives the scan payload stored on a product.
func GenerateQRPayload(sku string, now time.Time) string {
	return fmt.Sprintf("GP-%s-%d", sku, now.UnixMilli())
}

func normalizePricing(p *models.Pricing) {
	if p.Currency == "" {
		p.Currency = "USD"
	}
	p.Currency = strings.ToUpper(p.Currency)
}
