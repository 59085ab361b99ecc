// internal/services/dashboard_service.go
package services

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/greenproof/greenproof-backend/internal/apperrors"
	"github.com/greenproof/greenproof-backend/internal/lifecycle"
	"github.com/greenproof/greenproof-backend/internal/models"
	"github.com/greenproof/greenproof-backend/internal/repository"
)

const (
	recentVerificationsLimit = 5
	defaultTimeframe         = "30d"
)

var timeframePattern = regexp.MustCompile(`^(\d{1,4})([dy])$`)

type DashboardService struct {
	store repository.Store
	now   repository.Clock
}

type DashboardOverview struct {
	TotalProducts              int64   `json:"totalProducts"`
	TotalCredentials           int64   `json:"totalCredentials"`
	VerifiedCredentials        int64   `json:"verifiedCredentials"`
	PendingCredentials         int64   `json:"pendingCredentials"`
	TotalCarbonFootprint       float64 `json:"totalCarbonFootprint"`
	AverageSustainabilityScore int     `json:"averageSustainabilityScore"`
}

// VerifierOverview replaces DashboardOverview for verifiers, who own neither
// products nor credentials.
type VerifierOverview struct {
	TotalVerifiedCredentials int64                `json:"totalVerifiedCredentials"`
	RecentVerifications      []ExpandedCredential `json:"recentVerifications"`
}

type DashboardAnalytics struct {
	Timeframe           string             `json:"timeframe"`
	CarbonByCategory    map[string]float64 `json:"carbonByCategory"`
	CredentialsByType   map[string]int64   `json:"credentialsByType"`
	CredentialsByStatus map[string]int64   `json:"credentialsByStatus"`
	TotalProducts       int64              `json:"totalProducts"`
	TotalCredentials    int64              `json:"totalCredentials"`
}

type StageBreakdown struct {
	Stage           models.SupplyChainStageName `json:"stage"`
	CarbonFootprint *models.CarbonFootprint     `json:"carbonFootprint,omitempty"`
	Location        models.Location             `json:"location"`
}

type CarbonCalculation struct {
	TotalCarbonFootprint models.CarbonTotal         `json:"totalCarbonFootprint"`
	SustainabilityScore  models.SustainabilityScore `json:"sustainabilityScore"`
	SupplyChainBreakdown []StageBreakdown           `json:"supplyChainBreakdown"`
}

type CarbonCalculateRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
}

type CarbonDashboard struct {
	TotalProducts              int64              `json:"totalProducts"`
	TotalCarbonFootprint       float64            `json:"totalCarbonFootprint"`
	AverageSustainabilityScore int                `json:"averageSustainabilityScore"`
	CarbonByCategory           map[string]float64 `json:"carbonByCategory"`
}

// scope describes which documents a requester's aggregates cover.
type scope struct {
	products    bool
	producerID  *uuid.UUID
	credentials repository.CredentialFilter
}

func NewDashboardService(store repository.Store, clock repository.Clock) *DashboardService {
	return &DashboardService{
		store: store,
		now:   clock,
	}
}

// GetOverview returns a *DashboardOverview, or a *VerifierOverview for
// verifiers.
func (s *DashboardService) GetOverview(ctx context.Context, userID uuid.UUID) (interface{}, error) {
	actor, _, err := resolveActor(ctx, s.store.Users(), userID)
	if err != nil {
		return nil, err
	}

	if actor.Role == models.RoleVerifier {
		return s.verifierOverview(ctx, actor)
	}

	sc := scopeFor(actor)
	products, err := s.products(ctx, sc, nil)
	if err != nil {
		return nil, err
	}
	credentials, err := s.credentials(ctx, sc, nil)
	if err != nil {
		return nil, err
	}

	overview := &DashboardOverview{
		TotalProducts:    int64(len(products)),
		TotalCredentials: int64(len(credentials)),
	}
	for _, c := range credentials {
		switch c.Status {
		case models.CredentialStatusVerified:
			overview.VerifiedCredentials++
		case models.CredentialStatusPendingVerification:
			overview.PendingCredentials++
		}
	}
	overview.TotalCarbonFootprint, overview.AverageSustainabilityScore = carbonTotals(products)

	return overview, nil
}

func (s *DashboardService) verifierOverview(ctx context.Context, actor lifecycle.Actor) (*VerifierOverview, error) {
	verifierID := actor.ID
	recent, total, err := s.store.Credentials().List(ctx, repository.CredentialFilter{
		VerifierID: &verifierID,
		Page:       repository.Page{Page: 1, Limit: recentVerificationsLimit},
	})
	if err != nil {
		return nil, err
	}

	expanded, err := ExpandCredentials(ctx, s.store, recent, false)
	if err != nil {
		return nil, err
	}

	return &VerifierOverview{
		TotalVerifiedCredentials: total,
		RecentVerifications:      expanded,
	}, nil
}

// GetAnalytics groups the requester's documents created within timeframe.
// timeframe is <n>d, <n>y or "all"; empty means 30 days.
func (s *DashboardService) GetAnalytics(ctx context.Context, userID uuid.UUID, timeframe string) (*DashboardAnalytics, error) {
	actor, _, err := resolveActor(ctx, s.store.Users(), userID)
	if err != nil {
		return nil, err
	}

	if timeframe == "" {
		timeframe = defaultTimeframe
	}
	since, err := ParseTimeframe(timeframe, s.now())
	if err != nil {
		return nil, err
	}

	sc := scopeFor(actor)
	products, err := s.products(ctx, sc, since)
	if err != nil {
		return nil, err
	}
	credentials, err := s.credentials(ctx, sc, since)
	if err != nil {
		return nil, err
	}

	analytics := &DashboardAnalytics{
		Timeframe:           timeframe,
		CarbonByCategory:    carbonByCategory(products),
		CredentialsByType:   map[string]int64{},
		CredentialsByStatus: map[string]int64{},
		TotalProducts:       int64(len(products)),
		TotalCredentials:    int64(len(credentials)),
	}
	for _, c := range credentials {
		analytics.CredentialsByType[string(c.Type)]++
		analytics.CredentialsByStatus[string(c.Status)]++
	}

	return analytics, nil
}

// CalculateCarbon recomputes and stores a product's carbon total and score.
func (s *DashboardService) CalculateCarbon(ctx context.Context, userID, productID uuid.UUID) (*CarbonCalculation, error) {
	actor, _, err := resolveActor(ctx, s.store.Users(), userID)
	if err != nil {
		return nil, err
	}

	product, err := s.store.Products().GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !canManageProduct(product, actor) {
		return nil, apperrors.Forbidden("not authorized to recalculate this product")
	}

	Recalculate(product, s.now())
	if err := s.store.Products().Update(ctx, product); err != nil {
		return nil, err
	}

	breakdown := make([]StageBreakdown, 0, len(product.SupplyChain))
	for _, stage := range product.SupplyChain {
		breakdown = append(breakdown, StageBreakdown{
			Stage:           stage.Stage,
			CarbonFootprint: stage.CarbonFootprint,
			Location:        stage.Location,
		})
	}

	return &CarbonCalculation{
		TotalCarbonFootprint: product.TotalCarbonFootprint,
		SustainabilityScore:  product.SustainabilityScore,
		SupplyChainBreakdown: breakdown,
	}, nil
}

// GetCarbonDashboard aggregates the requester's own products; admins see all.
func (s *DashboardService) GetCarbonDashboard(ctx context.Context, userID uuid.UUID) (*CarbonDashboard, error) {
	actor, _, err := resolveActor(ctx, s.store.Users(), userID)
	if err != nil {
		return nil, err
	}

	filter := repository.ProductFilter{}
	if !actor.IsAdmin() {
		filter.ProducerID = &actor.ID
	}
	products, _, err := s.store.Products().List(ctx, filter)
	if err != nil {
		return nil, err
	}

	dashboard := &CarbonDashboard{
		TotalProducts:    int64(len(products)),
		CarbonByCategory: carbonByCategory(products),
	}
	dashboard.TotalCarbonFootprint, dashboard.AverageSustainabilityScore = carbonTotals(products)
	return dashboard, nil
}

func scopeFor(actor lifecycle.Actor) scope {
	id := actor.ID
	switch actor.Role {
	case models.RoleAdmin:
		return scope{products: true}
	case models.RoleProducer:
		return scope{
			products:    true,
			producerID:  &id,
			credentials: repository.CredentialFilter{IssuerID: &id},
		}
	case models.RoleVerifier:
		return scope{credentials: repository.CredentialFilter{VerifierID: &id}}
	default:
		return scope{credentials: repository.CredentialFilter{HolderID: &id}}
	}
}

func (s *DashboardService) products(ctx context.Context, sc scope, since *time.Time) ([]models.Product, error) {
	if !sc.products {
		return nil, nil
	}
	products, _, err := s.store.Products().List(ctx, repository.ProductFilter{
		ProducerID:   sc.producerID,
		CreatedAfter: since,
	})
	return products, err
}

func (s *DashboardService) credentials(ctx context.Context, sc scope, since *time.Time) ([]models.Credential, error) {
	filter := sc.credentials
	filter.CreatedAfter = since
	credentials, _, err := s.store.Credentials().List(ctx, filter)
	return credentials, err
}

// ParseTimeframe turns "30d", "1y" or "all" into a lower bound on createdAt.
// "all" yields nil.
func ParseTimeframe(timeframe string, now time.Time) (*time.Time, error) {
	if timeframe == "all" {
		return nil, nil
	}
	m := timeframePattern.FindStringSubmatch(timeframe)
	if m == nil {
		return nil, apperrors.Validation("invalid timeframe %q, expected <n>d, <n>y or all", timeframe)
	}
	n, _ := strconv.Atoi(m[1])

	var since time.Time
	if m[2] == "y" {
		since = now.AddDate(-n, 0, 0)
	} else {
		since = now.AddDate(0, 0, -n)
	}
	return &since, nil
}

func carbonTotals(products []models.Product) (float64, int) {
	if len(products) == 0 {
		return 0, 0
	}
	var carbon, score float64
	for _, p := range products {
		carbon += p.TotalCarbonFootprint.Value
		score += p.SustainabilityScore.Overall
	}
	return carbon, int(math.Round(score / float64(len(products))))
}

func carbonByCategory(products []models.Product) map[string]float64 {
	out := map[string]float64{}
	for _, p := range products {
		out[string(p.Category)] += p.TotalCarbonFootprint.Value
	}
	return out
}
