package services

import (
	"fmt"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenproof/greenproof-backend/internal/apperrors"
	"github.com/greenproof/greenproof-backend/internal/models"
	"github.com/greenproof/greenproof-backend/internal/utils"
)

func TestCreateProduct(t *testing.T) {
	env := newTestEnv(t)
	producer := env.user(t, "producer", models.RoleProducer)

	created, err := env.products.CreateProduct(env.ctx, producer.ID, &CreateProductRequest{
		Name:        "Fair coffee <script>x</script>",
		Description: "Single origin beans",
		Category:    models.CategoryFood,
		Pricing:     &models.Pricing{Price: 12.5, Currency: "eur"},
		Tags:        []string{"coffee"},
	})
	require.NoError(t, err)

	p := created.Product
	assert.Equal(t, "Fair coffee", p.Name)
	assert.Equal(t, producer.ID, p.ProducerID)
	assert.Equal(t, models.ProductStatusDraft, p.Status)
	assert.Equal(t, "EUR", p.Pricing.Currency)
	assert.Empty(t, p.SupplyChain)
	assert.Empty(t, p.Certifications)

	skuPattern := fmt.Sprintf(`^GP-FOOD-%d-[0-9a-f]{8}$`, env.clock.now.UnixMilli())
	assert.Regexp(t, regexp.MustCompile(skuPattern), p.SKU)
	assert.Equal(t, fmt.Sprintf("GP-%s-%d", p.SKU, env.clock.now.UnixMilli()), p.QRCode)

	require.NotNil(t, created.QRCode)
	assert.Equal(t, p.QRCode, created.QRCode.Data)
	assert.Contains(t, created.QRCode.DataURL, "data:image/png;base64,")

	found, err := env.products.GetProductByQRCode(env.ctx, p.QRCode)
	require.NoError(t, err)
	assert.Equal(t, p.ID, found.ID)
	assert.Equal(t, "producer", found.Producer.Name)
}

func TestCreateProductRequiresProducer(t *testing.T) {
	env := newTestEnv(t)
	consumer := env.user(t, "consumer", models.RoleConsumer)

	_, err := env.products.CreateProduct(env.ctx, consumer.ID, &CreateProductRequest{
		Name:        "Bottle",
		Description: "Reusable bottle",
		Category:    models.CategoryOther,
	})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = env.products.CreateProduct(env.ctx, uuid.New(), &CreateProductRequest{Name: "x"})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestAddSupplyChainStageRecalculates(t *testing.T) {
	env := newTestEnv(t)
	producer := env.user(t, "producer", models.RoleProducer)
	other := env.user(t, "other", models.RoleProducer)
	product := env.product(t, producer)

	stages := []AddSupplyChainStageRequest{
		{Stage: models.StageRawMaterials, CarbonFootprint: &models.CarbonFootprint{Value: 2.5}},
		{Stage: models.StageProduction, CarbonFootprint: &models.CarbonFootprint{Value: 4, Unit: "kg CO2e"}},
		{Stage: models.StageTransport, Location: models.Location{Country: "DE"}},
	}
	var updated *models.Product
	for i := range stages {
		var err error
		updated, err = env.products.AddSupplyChainStage(env.ctx, product.ID, producer.ID, &stages[i])
		require.NoError(t, err)
	}

	require.Len(t, updated.SupplyChain, 3)
	assert.Equal(t, models.DataSourceManual, updated.SupplyChain[0].DataSource)
	assert.Equal(t, models.DefaultCarbonUnit, updated.SupplyChain[0].CarbonFootprint.Unit)
	assert.Equal(t, env.clock.now, updated.SupplyChain[2].Timestamp)
	assert.Equal(t, 6.5, updated.TotalCarbonFootprint.Value)
	assert.Equal(t, models.DefaultCarbonUnit, updated.TotalCarbonFootprint.Unit)
	assert.Equal(t, 75.0, updated.SustainabilityScore.Overall)
	assert.Equal(t, 80.0, updated.SustainabilityScore.Carbon)

	_, err := env.products.AddSupplyChainStage(env.ctx, product.ID, producer.ID, &AddSupplyChainStageRequest{
		Stage:           models.StagePackaging,
		CarbonFootprint: &models.CarbonFootprint{Value: -1},
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = env.products.AddSupplyChainStage(env.ctx, product.ID, other.ID, &stages[0])
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	stored, err := env.store.Products().GetByID(env.ctx, product.ID)
	require.NoError(t, err)
	assert.Len(t, stored.SupplyChain, 3)
}

func TestUpdateAndDeleteProduct(t *testing.T) {
	env := newTestEnv(t)
	producer := env.user(t, "producer", models.RoleProducer)
	admin := env.user(t, "admin", models.RoleAdmin)
	other := env.user(t, "other", models.RoleProducer)
	product := env.product(t, producer)

	req := &UpdateProductRequest{
		Name:        "Organic cotton tee v2",
		Description: "Now with recycled packaging",
		Category:    models.CategoryTextiles,
		Status:      models.ProductStatusVerified,
	}
	_, err := env.products.UpdateProduct(env.ctx, product.ID, other.ID, req)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	updated, err := env.products.UpdateProduct(env.ctx, product.ID, producer.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "Organic cotton tee v2", updated.Name)
	assert.Equal(t, models.ProductStatusVerified, updated.Status)
	assert.Equal(t, product.SKU, updated.SKU)

	qr, err := env.products.GetProductQRCode(env.ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://app.greenproof.test/product/"+product.ID.String(), qr.Data)

	require.NoError(t, env.products.DeleteProduct(env.ctx, product.ID, admin.ID))
	_, err = env.products.GetProduct(env.ctx, product.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGetProductsFiltersAndExpands(t *testing.T) {
	env := newTestEnv(t)
	producer := env.user(t, "producer", models.RoleProducer)
	verifier := env.user(t, "verifier", models.RoleVerifier)

	tee := env.product(t, producer)
	_, err := env.products.CreateProduct(env.ctx, producer.ID, &CreateProductRequest{
		Name:        "Oat milk",
		Description: "Carton of oat milk",
		Category:    models.CategoryFood,
	})
	require.NoError(t, err)

	req := env.credentialRequest(producer, tee)
	req.Status = models.CredentialStatusPendingVerification
	c, err := env.credentials.CreateCredential(env.ctx, producer.ID, req)
	require.NoError(t, err)
	_, err = env.credentials.VerifyCredential(env.ctx, c.ID, verifier.ID, &VerifyCredentialRequest{
		VerificationMethod: models.MethodSiteVisit,
	})
	require.NoError(t, err)

	items, total, err := env.products.GetProducts(env.ctx, ProductSearchParams{
		PaginationParams: utils.PaginationParams{Page: 1, Limit: 10},
		Category:         models.CategoryTextiles,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	require.Len(t, items[0].Certifications, 1)
	assert.Equal(t, c.ID, items[0].Certifications[0].ID)
	assert.Equal(t, models.CredentialStatusVerified, items[0].Certifications[0].Status)

	_, total, err = env.products.GetProducts(env.ctx, ProductSearchParams{ProducerID: &producer.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	_, _, err = env.products.GetProducts(env.ctx, ProductSearchParams{Category: "spaceships"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
