// internal/repository/gorm_store.go
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/greenproof/greenproof-backend/internal/apperrors"
	"github.com/greenproof/greenproof-backend/internal/database"
	"github.com/greenproof/greenproof-backend/internal/models"
)

// GormStore is the PostgreSQL backed Store.
type GormStore struct {
	db    *gorm.DB
	clock Clock
}

func NewGormStore(db *gorm.DB, clock Clock) *GormStore {
	if clock == nil {
		clock = SystemClock
	}
	return &GormStore{db: db, clock: clock}
}

func (s *GormStore) Users() UserRepository                 { return &gormUserRepo{db: s.db} }
func (s *GormStore) Products() ProductRepository           { return &gormProductRepo{db: s.db} }
func (s *GormStore) ActivityLogs() ActivityLogRepository   { return &gormActivityRepo{db: s.db} }
func (s *GormStore) Notifications() NotificationRepository { return &gormNotificationRepo{db: s.db} }

func (s *GormStore) Credentials() CredentialRepository {
	return &gormCredentialRepo{db: s.db, clock: s.clock}
}

// Ping checks that the database answers.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx, clock: s.clock})
	})
}

// translateError maps driver errors onto domain kinds.
func translateError(err error, resource string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.NotFound(resource)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperrors.Conflict("%s already exists", resource)
	}
	return fmt.Errorf("%s store: %w", resource, err)
}

func applyPage(q *gorm.DB, p Page) *gorm.DB {
	if p.Limit > 0 {
		q = q.Offset(p.Offset()).Limit(p.Limit)
	}
	return q
}

// Users

type gormUserRepo struct {
	db *gorm.DB
}

func (r *gormUserRepo) Create(ctx context.Context, user *models.User) error {
	return translateError(r.db.WithContext(ctx).Create(user).Error, "user")
}

func (r *gormUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "user")
	}
	return &user, nil
}

func (r *gormUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		return nil, translateError(err, "user")
	}
	return &user, nil
}

func (r *gormUserRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.User, error) {
	out := make(map[uuid.UUID]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, translateError(err, "user")
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (r *gormUserRepo) Update(ctx context.Context, user *models.User) error {
	return translateError(r.db.WithContext(ctx).Save(user).Error, "user")
}

func (r *gormUserRepo) List(ctx context.Context, filter UserFilter) ([]models.User, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.User{})
	if filter.Role != "" {
		q = q.Where("role = ?", filter.Role)
	}
	if filter.IsVerified != nil {
		q = q.Where("is_verified = ?", *filter.IsVerified)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		q = q.Where("(LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(organization) LIKE ?)", like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translateError(err, "user")
	}

	var users []models.User
	if err := applyPage(q.Order("created_at DESC"), filter.Page).Find(&users).Error; err != nil {
		return nil, 0, translateError(err, "user")
	}
	return users, total, nil
}

// Products

type gormProductRepo struct {
	db *gorm.DB
}

var productSortColumns = map[string]string{
	"createdAt":            "created_at",
	"name":                 "name",
	"sku":                  "sku",
	"sustainabilityScore":  "score_overall",
	"totalCarbonFootprint": "carbon_value",
}

func (r *gormProductRepo) Create(ctx context.Context, product *models.Product) error {
	return translateError(r.db.WithContext(ctx).Create(product).Error, "product")
}

func (r *gormProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "product")
	}
	return &product, nil
}

func (r *gormProductRepo) GetByQRCode(ctx context.Context, qrCode string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("qr_code = ?", qrCode).First(&product).Error; err != nil {
		return nil, translateError(err, "product")
	}
	return &product, nil
}

func (r *gormProductRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var products []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, translateError(err, "product")
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

func (r *gormProductRepo) Update(ctx context.Context, product *models.Product) error {
	return translateError(r.db.WithContext(ctx).Save(product).Error, "product")
}

func (r *gormProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	if result.Error != nil {
		return translateError(result.Error, "product")
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("product")
	}
	return nil
}

func (r *gormProductRepo) List(ctx context.Context, filter ProductFilter) ([]models.Product, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Product{})
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.ProducerID != nil {
		q = q.Where("producer_id = ?", *filter.ProducerID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		q = q.Where("(LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(sku) LIKE ?)", like, like, like)
	}
	if filter.CreatedAfter != nil {
		q = q.Where("created_at >= ?", *filter.CreatedAfter)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translateError(err, "product")
	}

	column, ok := productSortColumns[filter.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}

	var products []models.Product
	if err := applyPage(q.Order(column+" "+direction), filter.Page).Find(&products).Error; err != nil {
		return nil, 0, translateError(err, "product")
	}
	return products, total, nil
}

// Credentials

type gormCredentialRepo struct {
	db    *gorm.DB
	clock Clock
}

func (r *gormCredentialRepo) Create(ctx context.Context, credential *models.Credential) error {
	*credential = withExpiry(*credential, r.clock())
	return translateError(r.db.WithContext(ctx).Create(credential).Error, "credential")
}

func (r *gormCredentialRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Credential, error) {
	var credential models.Credential
	if err := r.db.WithContext(ctx).First(&credential, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "credential")
	}

	refreshed, changed := applyExpiry(credential, r.clock())
	if changed {
		if err := r.db.WithContext(ctx).Save(&refreshed).Error; err != nil {
			return nil, translateError(err, "credential")
		}
	}
	return &refreshed, nil
}

func (r *gormCredentialRepo) Save(ctx context.Context, credential *models.Credential) error {
	*credential = withExpiry(*credential, r.clock())
	return translateError(r.db.WithContext(ctx).Save(credential).Error, "credential")
}

func (r *gormCredentialRepo) SweepExpired(ctx context.Context) (int, error) {
	now := r.clock()
	var due []models.Credential
	err := r.db.WithContext(ctx).
		Where("validity_expires_at < ?", now).
		Where("(validity_is_expired = ? OR status = ?)", false, models.CredentialStatusVerified).
		Find(&due).Error
	if err != nil {
		return 0, translateError(err, "credential")
	}

	swept := 0
	for _, c := range due {
		refreshed, changed := applyExpiry(c, now)
		if !changed {
			continue
		}
		if err := r.db.WithContext(ctx).Save(&refreshed).Error; err != nil {
			return swept, translateError(err, "credential")
		}
		swept++
	}
	return swept, nil
}

func (r *gormCredentialRepo) List(ctx context.Context, filter CredentialFilter) ([]models.Credential, int64, error) {
	if _, err := r.SweepExpired(ctx); err != nil {
		return nil, 0, err
	}

	q := r.db.WithContext(ctx).Model(&models.Credential{})
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.IssuerID != nil {
		q = q.Where("issuer_id = ?", *filter.IssuerID)
	}
	if filter.HolderID != nil {
		q = q.Where("holder_id = ?", *filter.HolderID)
	}
	if filter.ParticipantID != nil {
		q = q.Where("(issuer_id = ? OR holder_id = ?)", *filter.ParticipantID, *filter.ParticipantID)
	}
	if filter.VerifierID != nil {
		q = q.Where("verification->>'verifier' = ?", filter.VerifierID.String())
	}
	if filter.ProductID != nil {
		q = q.Where("product_id = ?", *filter.ProductID)
	}
	if filter.CreatedAfter != nil {
		q = q.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.IDs != nil {
		if len(filter.IDs) == 0 {
			return []models.Credential{}, 0, nil
		}
		q = q.Where("id IN ?", filter.IDs)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translateError(err, "credential")
	}

	var credentials []models.Credential
	if err := applyPage(q.Order("created_at DESC"), filter.Page).Find(&credentials).Error; err != nil {
		return nil, 0, translateError(err, "credential")
	}
	return credentials, total, nil
}

// Activity logs

type gormActivityRepo struct {
	db *gorm.DB
}

func (r *gormActivityRepo) Create(ctx context.Context, entry *models.ActivityLog) error {
	return translateError(r.db.WithContext(ctx).Create(entry).Error, "activity log")
}

func (r *gormActivityRepo) List(ctx context.Context, userID *uuid.UUID, page Page) ([]models.ActivityLog, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.ActivityLog{})
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translateError(err, "activity log")
	}

	var entries []models.ActivityLog
	if err := applyPage(q.Order("created_at DESC"), page).Find(&entries).Error; err != nil {
		return nil, 0, translateError(err, "activity log")
	}
	return entries, total, nil
}

// Notifications

type gormNotificationRepo struct {
	db *gorm.DB
}

func (r *gormNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	return translateError(r.db.WithContext(ctx).Create(n).Error, "notification")
}

func (r *gormNotificationRepo) ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, page Page) ([]models.Notification, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("read_at IS NULL")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translateError(err, "notification")
	}

	var notifications []models.Notification
	if err := applyPage(q.Order("created_at DESC"), page).Find(&notifications).Error; err != nil {
		return nil, 0, translateError(err, "notification")
	}
	return notifications, total, nil
}

func (r *gormNotificationRepo) MarkRead(ctx context.Context, id, userID uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read_at", at)
	if result.Error != nil {
		return translateError(result.Error, "notification")
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("notification")
	}
	return nil
}
