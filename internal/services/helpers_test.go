package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/greenproof/greenproof-backend/internal/config"
	"github.com/greenproof/greenproof-backend/internal/models"
	"github.com/greenproof/greenproof-backend/internal/repository"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type sentMail struct {
	to      string
	subject string
}

type testEnv struct {
	ctx   context.Context
	clock *testClock
	store *repository.MemoryStore
	cfg   *config.Config
	mail  []sentMail

	auth          *AuthService
	users         *UserService
	admin         *AdminService
	products      *ProductService
	credentials   *CredentialService
	dashboard     *DashboardService
	notifications *NotificationService
	qr            *QRService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		ctx:   context.Background(),
		clock: &testClock{now: time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)},
		cfg: &config.Config{
			JWT:      config.JWTConfig{SecretKey: "test-secret", AccessTokenTTL: 1, RefreshTokenTTL: 24},
			Frontend: config.FrontendConfig{BaseURL: "https://app.greenproof.test"},
			Email: config.EmailConfig{
				SMTPHost:     "smtp.greenproof.test",
				SMTPPort:     "587",
				SMTPUsername: "mailer",
				FromEmail:    "noreply@greenproof.test",
			},
			Storage: config.StorageConfig{
				LocalPath:     t.TempDir(),
				PublicBaseURL: "/uploads",
				MaxUploadMB:   1,
			},
		},
	}
	env.store = repository.NewMemoryStore(env.clock.Now)

	env.qr = NewQRService(env.cfg.Frontend.BaseURL)
	env.notifications = NewNotificationService(env.store, env.cfg, env.clock.Now).
		WithMailSender(func(to, subject, body string) error {
			env.mail = append(env.mail, sentMail{to: to, subject: subject})
			return nil
		})
	env.auth = NewAuthService(env.store, env.cfg, env.clock.Now)
	env.users = NewUserService(env.store, env.clock.Now)
	env.admin = NewAdminService(env.store, env.notifications, env.clock.Now)
	env.products = NewProductService(env.store, env.qr, env.clock.Now)
	env.credentials = NewCredentialService(env.store, env.qr, env.notifications, env.clock.Now)
	env.dashboard = NewDashboardService(env.store, env.clock.Now)
	return env
}

func (env *testEnv) user(t *testing.T, name string, role models.UserRole) *models.User {
	t.Helper()
	u := &models.User{
		Email:       name + "@greenproof.test",
		Name:        name,
		Role:        role,
		Preferences: models.DefaultPreferences(),
	}
	require.NoError(t, u.SetPassword("secret123"))
	require.NoError(t, env.store.Users().Create(env.ctx, u))
	return u
}

func (env *testEnv) product(t *testing.T, producer *models.User) *models.Product {
	t.Helper()
	created, err := env.products.CreateProduct(env.ctx, producer.ID, &CreateProductRequest{
		Name:        "Organic cotton tee",
		Description: "Plain tee made from organic cotton",
		Category:    models.CategoryTextiles,
	})
	require.NoError(t, err)
	return created.Product
}

func (env *testEnv) credentialRequest(holder *models.User, product *models.Product) *CreateCredentialRequest {
	req := &CreateCredentialRequest{
		Name:             "GOTS organic",
		Type:             models.CredentialOrganicCertification,
		Holder:           holder.ID,
		GuardianPolicyID: "policy-1",
		ValidityPeriod: ValidityPeriodRequest{
			ExpiresAt: env.clock.now.AddDate(1, 0, 0),
		},
		Criteria: models.Criteria{
			Standard: "GOTS",
			Requirements: []models.Requirement{
				{Criterion: "Certified organic fibre"},
			},
		},
		Evidence: []models.Evidence{
			{Type: models.EvidenceCertificate, Title: "Certificate", URL: "https://files.greenproof.test/cert.pdf"},
		},
	}
	if product != nil {
		id := product.ID
		req.Product = &id
	}
	return req
}

func ptr[T any](v T) *T { return &v }
