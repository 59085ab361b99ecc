// internal/repository/repository.go
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/greenproof/greenproof-backend/internal/models"
)

// Clock returns the current time. Stores take one so that expiry can be
// evaluated against a fixed instant in tests.
type Clock func() time.Time

func SystemClock() time.Time {
	return time.Now().UTC()
}

// Page is a 1-based offset page. Zero values mean "no paging".
type Page struct {
	Page  int
	Limit int
}

func (p Page) Offset() int {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

type UserFilter struct {
	Role       models.UserRole
	IsVerified *bool
	Search     string
	Page
}

type ProductFilter struct {
	Category     models.ProductCategory
	ProducerID   *uuid.UUID
	Status       models.ProductStatus
	Search       string
	CreatedAfter *time.Time
	// SortBy is one of createdAt, name, sku, sustainabilityScore,
	// totalCarbonFootprint. Unknown values fall back to createdAt.
	SortBy   string
	SortDesc bool
	Page
}

type CredentialFilter struct {
	Type     models.CredentialType
	Status   models.CredentialStatus
	IssuerID *uuid.UUID
	HolderID *uuid.UUID
	// ParticipantID restricts results to credentials issued or held by the id.
	ParticipantID *uuid.UUID
	VerifierID    *uuid.UUID
	ProductID     *uuid.UUID
	CreatedAfter  *time.Time
	// IDs limits results to the given ids when non-nil.
	IDs []uuid.UUID
	Page
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.User, error)
	Update(ctx context.Context, user *models.User) error
	List(ctx context.Context, filter UserFilter) ([]models.User, int64, error)
}

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetByQRCode(ctx context.Context, qrCode string) (*models.Product, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ProductFilter) ([]models.Product, int64, error)
}

// CredentialRepository persists credentials and applies time-based expiry at
// every load and save.
type CredentialRepository interface {
	Create(ctx context.Context, credential *models.Credential) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Credential, error)
	Save(ctx context.Context, credential *models.Credential) error
	List(ctx context.Context, filter CredentialFilter) ([]models.Credential, int64, error)
	// SweepExpired applies expiry to every credential that is due and returns
	// how many were rewritten.
	SweepExpired(ctx context.Context) (int, error)
}

type ActivityLogRepository interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
	List(ctx context.Context, userID *uuid.UUID, page Page) ([]models.ActivityLog, int64, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, page Page) ([]models.Notification, int64, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID, at time.Time) error
}

// Store groups the repositories behind one handle.
type Store interface {
	Users() UserRepository
	Products() ProductRepository
	Credentials() CredentialRepository
	ActivityLogs() ActivityLogRepository
	Notifications() NotificationRepository
	// Transaction runs fn against a store whose writes commit together or
	// not at all.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}
