package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenproof/greenproof-backend/internal/apperrors"
	"github.com/greenproof/greenproof-backend/internal/models"
)

func addStage(t *testing.T, env *testEnv, p *models.Product, owner *models.User, value float64) {
	t.Helper()
	_, err := env.products.AddSupplyChainStage(env.ctx, p.ID, owner.ID, &AddSupplyChainStageRequest{
		Stage:           models.StageProduction,
		CarbonFootprint: &models.CarbonFootprint{Value: value},
	})
	require.NoError(t, err)
}

func TestOverviewByRole(t *testing.T) {
	env := newTestEnv(t)
	producer := env.user(t, "producer", models.RoleProducer)
	consumer := env.user(t, "consumer", models.RoleConsumer)
	verifier := env.user(t, "verifier", models.RoleVerifier)
	admin := env.user(t, "admin", models.RoleAdmin)

	tee := env.product(t, producer)
	addStage(t, env, tee, producer, 10)
	mug := env.product(t, producer)
	addStage(t, env, mug, producer, 5)

	pending := env.credentialRequest(consumer, tee)
	pending.Status = models.CredentialStatusPendingVerification
	c1, err := env.credentials.CreateCredential(env.ctx, producer.ID, pending)
	require.NoError(t, err)
	_, err = env.credentials.CreateCredential(env.ctx, producer.ID, pending)
	require.NoError(t, err)
	_, err = env.credentials.CreateCredential(env.ctx, producer.ID, env.credentialRequest(producer, nil))
	require.NoError(t, err)

	_, err = env.credentials.VerifyCredential(env.ctx, c1.ID, verifier.ID, &VerifyCredentialRequest{
		VerificationMethod: models.MethodDocumentReview,
	})
	require.NoError(t, err)

	got, err := env.dashboard.GetOverview(env.ctx, producer.ID)
	require.NoError(t, err)
	overview := got.(*DashboardOverview)
	assert.EqualValues(t, 2, overview.TotalProducts)
	assert.EqualValues(t, 3, overview.TotalCredentials)
	assert.EqualValues(t, 1, overview.VerifiedCredentials)
	assert.EqualValues(t, 1, overview.PendingCredentials)
	assert.Equal(t, 15.0, overview.TotalCarbonFootprint)
	assert.Equal(t, 75, overview.AverageSustainabilityScore)

	got, err = env.dashboard.GetOverview(env.ctx, consumer.ID)
	require.NoError(t, err)
	overview = got.(*DashboardOverview)
	assert.Zero(t, overview.TotalProducts)
	assert.EqualValues(t, 2, overview.TotalCredentials)

	got, err = env.dashboard.GetOverview(env.ctx, verifier.ID)
	require.NoError(t, err)
	verifierOverview := got.(*VerifierOverview)
	assert.EqualValues(t, 1, verifierOverview.TotalVerifiedCredentials)
	require.Len(t, verifierOverview.RecentVerifications, 1)
	assert.Equal(t, c1.ID, verifierOverview.RecentVerifications[0].ID)

	got, err = env.dashboard.GetOverview(env.ctx, admin.ID)
	require.NoError(t, err)
	overview = got.(*DashboardOverview)
	assert.EqualValues(t, 2, overview.TotalProducts)
	assert.EqualValues(t, 3, overview.TotalCredentials)
}

func TestAnalyticsTimeframe(t *testing.T) {
	env := newTestEnv(t)
	producer := env.user(t, "producer", models.RoleProducer)

	old := env.product(t, producer)
	addStage(t, env, old, producer, 7)
	_, err := env.credentials.CreateCredential(env.ctx, producer.ID, env.credentialRequest(producer, nil))
	require.NoError(t, err)

	env.clock.Advance(60 * 24 * time.Hour)

	recent := env.product(t, producer)
	addStage(t, env, recent, producer, 3)
	_, err = env.credentials.CreateCredential(env.ctx, producer.ID, env.credentialRequest(producer, nil))
	require.NoError(t, err)

	analytics, err := env.dashboard.GetAnalytics(env.ctx, producer.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "30d", analytics.Timeframe)
	assert.EqualValues(t, 1, analytics.TotalProducts)
	assert.EqualValues(t, 1, analytics.TotalCredentials)
	assert.Equal(t, 3.0, analytics.CarbonByCategory["textiles"])
	assert.EqualValues(t, 1, analytics.CredentialsByType["organic_certification"])
	assert.EqualValues(t, 1, analytics.CredentialsByStatus["draft"])

	analytics, err = env.dashboard.GetAnalytics(env.ctx, producer.ID, "all")
	require.NoError(t, err)
	assert.EqualValues(t, 2, analytics.TotalProducts)
	assert.Equal(t, 10.0, analytics.CarbonByCategory["textiles"])

	_, err = env.dashboard.GetAnalytics(env.ctx, producer.ID, "last week")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestParseTimeframe(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		in      string
		want    *time.Time
		wantErr bool
	}{
		{in: "7d", want: ptr(time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC))},
		{in: "90d", want: ptr(time.Date(2025, 12, 15, 0, 0, 0, 0, time.UTC))},
		{in: "1y", want: ptr(time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC))},
		{in: "all"},
		{in: "30", wantErr: true},
		{in: "-3d", wantErr: true},
		{in: "3w", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeframe(tt.in, now)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrValidation)
				return
			}
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "got %s", got)
		})
	}
}

func TestCalculateCarbon(t *testing.T) {
	env := newTestEnv(t)
	producer := env.user(t, "producer", models.RoleProducer)
	stranger := env.user(t, "stranger", models.RoleConsumer)
	product := env.product(t, producer)
	addStage(t, env, product, producer, 1.25)
	addStage(t, env, product, producer, 2)

	_, err := env.dashboard.CalculateCarbon(env.ctx, stranger.ID, product.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	env.clock.Advance(time.Hour)
	calc, err := env.dashboard.CalculateCarbon(env.ctx, producer.ID, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 3.25, calc.TotalCarbonFootprint.Value)
	assert.Equal(t, env.clock.now, calc.TotalCarbonFootprint.LastCalculated)
	assert.Equal(t, 75.0, calc.SustainabilityScore.Overall)
	assert.Len(t, calc.SupplyChainBreakdown, 2)

	stored, err := env.store.Products().GetByID(env.ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, env.clock.now, stored.TotalCarbonFootprint.LastCalculated)

	dashboard, err := env.dashboard.GetCarbonDashboard(env.ctx, producer.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, dashboard.TotalProducts)
	assert.Equal(t, 3.25, dashboard.TotalCarbonFootprint)
	assert.Equal(t, 3.25, dashboard.CarbonByCategory["textiles"])

	dashboard, err = env.dashboard.GetCarbonDashboard(env.ctx, stranger.ID)
	require.NoError(t, err)
	assert.Zero(t, dashboard.TotalProducts)
	assert.Zero(t, dashboard.AverageSustainabilityScore)
}
