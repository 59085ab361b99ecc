// internal/repository/memory_store.go
package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/greenproof/greenproof-backend/internal/apperrors"
	"github.com/greenproof/greenproof-backend/internal/models"
)

// MemoryStore keeps every entity in process memory. It mirrors the
// behaviour of GormStore closely enough to back service and handler tests.
// Values are cloned on the way in and out so callers never share state with
// the store.
type MemoryStore struct {
	mu    sync.RWMutex
	txMu  sync.Mutex
	clock Clock
	seq   int64

	users         map[uuid.UUID]memRecord[models.User]
	products      map[uuid.UUID]memRecord[models.Product]
	credentials   map[uuid.UUID]memRecord[models.Credential]
	activityLogs  map[uuid.UUID]memRecord[models.ActivityLog]
	notifications map[uuid.UUID]memRecord[models.Notification]
}

// memRecord remembers insertion order so that ties on createdAt sort stably.
type memRecord[T any] struct {
	seq   int64
	value T
}

func NewMemoryStore(clock Clock) *MemoryStore {
	if clock == nil {
		clock = SystemClock
	}
	return &MemoryStore{
		clock:         clock,
		users:         make(map[uuid.UUID]memRecord[models.User]),
		products:      make(map[uuid.UUID]memRecord[models.Product]),
		credentials:   make(map[uuid.UUID]memRecord[models.Credential]),
		activityLogs:  make(map[uuid.UUID]memRecord[models.ActivityLog]),
		notifications: make(map[uuid.UUID]memRecord[models.Notification]),
	}
}

func (m *MemoryStore) Users() UserRepository                 { return memUserRepo{m} }
func (m *MemoryStore) Products() ProductRepository           { return memProductRepo{m} }
func (m *MemoryStore) Credentials() CredentialRepository     { return memCredentialRepo{m} }
func (m *MemoryStore) ActivityLogs() ActivityLogRepository   { return memActivityRepo{m} }
func (m *MemoryStore) Notifications() NotificationRepository { return memNotificationRepo{m} }

// Transaction restores the previous contents when fn fails. Transactions are
// serialised against each other.
func (m *MemoryStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.RLock()
	snapshot := m.snapshot()
	m.mu.RUnlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.restore(snapshot)
		m.mu.Unlock()
		return err
	}
	return nil
}

type memSnapshot struct {
	users         map[uuid.UUID]memRecord[models.User]
	products      map[uuid.UUID]memRecord[models.Product]
	credentials   map[uuid.UUID]memRecord[models.Credential]
	activityLogs  map[uuid.UUID]memRecord[models.ActivityLog]
	notifications map[uuid.UUID]memRecord[models.Notification]
}

func copyMap[T any](in map[uuid.UUID]memRecord[T]) map[uuid.UUID]memRecord[T] {
	out := make(map[uuid.UUID]memRecord[T], len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// snapshot relies on stored values never being mutated in place: every write
// replaces the map entry with a fresh clone.
func (m *MemoryStore) snapshot() memSnapshot {
	return memSnapshot{
		users:         copyMap(m.users),
		products:      copyMap(m.products),
		credentials:   copyMap(m.credentials),
		activityLogs:  copyMap(m.activityLogs),
		notifications: copyMap(m.notifications),
	}
}

func (m *MemoryStore) restore(s memSnapshot) {
	m.users = s.users
	m.products = s.products
	m.credentials = s.credentials
	m.activityLogs = s.activityLogs
	m.notifications = s.notifications
}

func (m *MemoryStore) nextSeq() int64 {
	m.seq++
	return m.seq
}

func (m *MemoryStore) stamp(base *models.BaseModel, creating bool) {
	now := m.clock()
	base.EnsureID()
	if creating && base.CreatedAt.IsZero() {
		base.CreatedAt = now
	}
	base.UpdatedAt = now
}

// sortNewestFirst orders by createdAt descending, newest insert first on ties.
func sortNewestFirst[T any](records []memRecord[T], createdAt func(T) time.Time) {
	sort.SliceStable(records, func(i, j int) bool {
		ci, cj := createdAt(records[i].value), createdAt(records[j].value)
		if !ci.Equal(cj) {
			return ci.After(cj)
		}
		return records[i].seq > records[j].seq
	})
}

func paginate[T any](items []T, p Page) []T {
	if p.Limit <= 0 {
		return items
	}
	start := p.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func sameString(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}

// Users

type memUserRepo struct{ m *MemoryStore }

func (r memUserRepo) Create(ctx context.Context, user *models.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	for _, rec := range r.m.users {
		if rec.value.Email == user.Email || sameString(rec.value.HederaAccountID, user.HederaAccountID) {
			return apperrors.Conflict("user already exists")
		}
	}
	r.m.stamp(&user.BaseModel, true)
	r.m.users[user.ID] = memRecord[models.User]{seq: r.m.nextSeq(), value: user.Clone()}
	return nil
}

func (r memUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	rec, ok := r.m.users[id]
	if !ok {
		return nil, apperrors.NotFound("user")
	}
	user := rec.value.Clone()
	return &user, nil
}

func (r memUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, rec := range r.m.users {
		if rec.value.Email == email {
			user := rec.value.Clone()
			return &user, nil
		}
	}
	return nil, apperrors.NotFound("user")
}

func (r memUserRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	out := make(map[uuid.UUID]models.User, len(ids))
	for _, id := range ids {
		if rec, ok := r.m.users[id]; ok {
			out[id] = rec.value.Clone()
		}
	}
	return out, nil
}

func (r memUserRepo) Update(ctx context.Context, user *models.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	rec, ok := r.m.users[user.ID]
	if !ok {
		return apperrors.NotFound("user")
	}
	for id, other := range r.m.users {
		if id != user.ID && (other.value.Email == user.Email || sameString(other.value.HederaAccountID, user.HederaAccountID)) {
			return apperrors.Conflict("user already exists")
		}
	}
	r.m.stamp(&user.BaseModel, false)
	r.m.users[user.ID] = memRecord[models.User]{seq: rec.seq, value: user.Clone()}
	return nil
}

func (r memUserRepo) List(ctx context.Context, filter UserFilter) ([]models.User, int64, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	var matched []memRecord[models.User]
	for _, rec := range r.m.users {
		u := rec.value
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.IsVerified != nil && u.IsVerified != *filter.IsVerified {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(u.Name), search) &&
			!strings.Contains(u.Email, search) && !strings.Contains(strings.ToLower(u.Organization), search) {
			continue
		}
		matched = append(matched, rec)
	}
	sortNewestFirst(matched, func(u models.User) time.Time { return u.CreatedAt })

	users := make([]models.User, 0, len(matched))
	for _, rec := range paginate(matched, filter.Page) {
		users = append(users, rec.value.Clone())
	}
	return users, int64(len(matched)), nil
}

// Products

type memProductRepo struct{ m *MemoryStore }

func (r memProductRepo) conflict(p *models.Product) bool {
	for id, rec := range r.m.products {
		if id == p.ID {
			continue
		}
		if rec.value.SKU == p.SKU || rec.value.QRCode == p.QRCode || sameString(rec.value.HederaTokenID, p.HederaTokenID) {
			return true
		}
	}
	return false
}

func (r memProductRepo) Create(ctx context.Context, product *models.Product) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	r.m.stamp(&product.BaseModel, true)
	if r.conflict(product) {
		return apperrors.Conflict("product already exists")
	}
	r.m.products[product.ID] = memRecord[models.Product]{seq: r.m.nextSeq(), value: product.Clone()}
	return nil
}

func (r memProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	rec, ok := r.m.products[id]
	if !ok {
		return nil, apperrors.NotFound("product")
	}
	product := rec.value.Clone()
	return &product, nil
}

func (r memProductRepo) GetByQRCode(ctx context.Context, qrCode string) (*models.Product, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	for _, rec := range r.m.products {
		if rec.value.QRCode == qrCode {
			product := rec.value.Clone()
			return &product, nil
		}
	}
	return nil, apperrors.NotFound("product")
}

func (r memProductRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	out := make(map[uuid.UUID]models.Product, len(ids))
	for _, id := range ids {
		if rec, ok := r.m.products[id]; ok {
			out[id] = rec.value.Clone()
		}
	}
	return out, nil
}

func (r memProductRepo) Update(ctx context.Context, product *models.Product) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	rec, ok := r.m.products[product.ID]
	if !ok {
		return apperrors.NotFound("product")
	}
	if r.conflict(product) {
		return apperrors.Conflict("product already exists")
	}
	r.m.stamp(&product.BaseModel, false)
	r.m.products[product.ID] = memRecord[models.Product]{seq: rec.seq, value: product.Clone()}
	return nil
}

func (r memProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.products[id]; !ok {
		return apperrors.NotFound("product")
	}
	delete(r.m.products, id)
	return nil
}

func (r memProductRepo) List(ctx context.Context, filter ProductFilter) ([]models.Product, int64, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	var matched []memRecord[models.Product]
	for _, rec := range r.m.products {
		p := rec.value
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.ProducerID != nil && p.ProducerID != *filter.ProducerID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.CreatedAfter != nil && p.CreatedAt.Before(*filter.CreatedAfter) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) &&
			!strings.Contains(strings.ToLower(p.SKU), search) {
			continue
		}
		matched = append(matched, rec)
	}

	less := productLess(filter.SortBy)
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if filter.SortDesc {
			a, b = b, a
		}
		if less(a.value, b.value) {
			return true
		}
		if less(b.value, a.value) {
			return false
		}
		return a.seq < b.seq
	})

	products := make([]models.Product, 0, len(matched))
	for _, rec := range paginate(matched, filter.Page) {
		products = append(products, rec.value.Clone())
	}
	return products, int64(len(matched)), nil
}

func productLess(sortBy string) func(a, b models.Product) bool {
	switch sortBy {
	case "name":
		return func(a, b models.Product) bool { return a.Name < b.Name }
	case "sku":
		return func(a, b models.Product) bool { return a.SKU < b.SKU }
	case "sustainabilityScore":
		return func(a, b models.Product) bool {
			return a.SustainabilityScore.Overall < b.SustainabilityScore.Overall
		}
	case "totalCarbonFootprint":
		return func(a, b models.Product) bool {
			return a.TotalCarbonFootprint.Value < b.TotalCarbonFootprint.Value
		}
	default:
		return func(a, b models.Product) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}
}

// Credentials

type memCredentialRepo struct{ m *MemoryStore }

func (r memCredentialRepo) conflict(c *models.Credential) bool {
	for id, rec := range r.m.credentials {
		if id == c.ID {
			continue
		}
		if sameString(rec.value.GuardianCredentialID, c.GuardianCredentialID) ||
			sameString(rec.value.HederaTokenID, c.HederaTokenID) {
			return true
		}
	}
	return false
}

func (r memCredentialRepo) Create(ctx context.Context, credential *models.Credential) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	*credential = withExpiry(*credential, r.m.clock())
	r.m.stamp(&credential.BaseModel, true)
	if r.conflict(credential) {
		return apperrors.Conflict("credential already exists")
	}
	r.m.credentials[credential.ID] = memRecord[models.Credential]{seq: r.m.nextSeq(), value: credential.Clone()}
	return nil
}

func (r memCredentialRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Credential, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	rec, ok := r.m.credentials[id]
	if !ok {
		return nil, apperrors.NotFound("credential")
	}
	refreshed, changed := applyExpiry(rec.value, r.m.clock())
	if changed {
		r.m.credentials[id] = memRecord[models.Credential]{seq: rec.seq, value: refreshed.Clone()}
	}
	credential := refreshed.Clone()
	return &credential, nil
}

func (r memCredentialRepo) Save(ctx context.Context, credential *models.Credential) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	rec, ok := r.m.credentials[credential.ID]
	if !ok {
		return apperrors.NotFound("credential")
	}
	if r.conflict(credential) {
		return apperrors.Conflict("credential already exists")
	}
	*credential = withExpiry(*credential, r.m.clock())
	r.m.stamp(&credential.BaseModel, false)
	r.m.credentials[credential.ID] = memRecord[models.Credential]{seq: rec.seq, value: credential.Clone()}
	return nil
}

func (r memCredentialRepo) SweepExpired(ctx context.Context) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.sweepLocked(), nil
}

func (r memCredentialRepo) sweepLocked() int {
	now := r.m.clock()
	swept := 0
	for id, rec := range r.m.credentials {
		refreshed, changed := applyExpiry(rec.value, now)
		if !changed {
			continue
		}
		r.m.credentials[id] = memRecord[models.Credential]{seq: rec.seq, value: refreshed}
		swept++
	}
	return swept
}

func (r memCredentialRepo) List(ctx context.Context, filter CredentialFilter) ([]models.Credential, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	r.sweepLocked()

	var matched []memRecord[models.Credential]
	for _, rec := range r.m.credentials {
		if credentialMatches(rec.value, filter) {
			matched = append(matched, rec)
		}
	}
	sortNewestFirst(matched, func(c models.Credential) time.Time { return c.CreatedAt })

	credentials := make([]models.Credential, 0, len(matched))
	for _, rec := range paginate(matched, filter.Page) {
		credentials = append(credentials, rec.value.Clone())
	}
	return credentials, int64(len(matched)), nil
}

func credentialMatches(c models.Credential, f CredentialFilter) bool {
	switch {
	case f.Type != "" && c.Type != f.Type:
		return false
	case f.Status != "" && c.Status != f.Status:
		return false
	case f.IssuerID != nil && c.IssuerID != *f.IssuerID:
		return false
	case f.HolderID != nil && c.HolderID != *f.HolderID:
		return false
	case f.ParticipantID != nil && c.IssuerID != *f.ParticipantID && c.HolderID != *f.ParticipantID:
		return false
	case f.VerifierID != nil && (c.Verification == nil || c.Verification.Verifier != *f.VerifierID):
		return false
	case f.ProductID != nil && (c.ProductID == nil || *c.ProductID != *f.ProductID):
		return false
	case f.CreatedAfter != nil && c.CreatedAt.Before(*f.CreatedAfter):
		return false
	case f.IDs != nil && !containsID(f.IDs, c.ID):
		return false
	}
	return true
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// Activity logs

type memActivityRepo struct{ m *MemoryStore }

func (r memActivityRepo) Create(ctx context.Context, entry *models.ActivityLog) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	r.m.stamp(&entry.BaseModel, true)
	stored := *entry
	stored.RequestBody = entry.RequestBody.Clone()
	r.m.activityLogs[entry.ID] = memRecord[models.ActivityLog]{seq: r.m.nextSeq(), value: stored}
	return nil
}

func (r memActivityRepo) List(ctx context.Context, userID *uuid.UUID, page Page) ([]models.ActivityLog, int64, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	var matched []memRecord[models.ActivityLog]
	for _, rec := range r.m.activityLogs {
		if userID != nil && (rec.value.UserID == nil || *rec.value.UserID != *userID) {
			continue
		}
		matched = append(matched, rec)
	}
	sortNewestFirst(matched, func(a models.ActivityLog) time.Time { return a.CreatedAt })

	entries := make([]models.ActivityLog, 0, len(matched))
	for _, rec := range paginate(matched, page) {
		entries = append(entries, rec.value)
	}
	return entries, int64(len(matched)), nil
}

// Notifications

type memNotificationRepo struct{ m *MemoryStore }

func (r memNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	r.m.stamp(&n.BaseModel, true)
	r.m.notifications[n.ID] = memRecord[models.Notification]{seq: r.m.nextSeq(), value: *n}
	return nil
}

func (r memNotificationRepo) ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, page Page) ([]models.Notification, int64, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	var matched []memRecord[models.Notification]
	for _, rec := range r.m.notifications {
		if rec.value.UserID != userID || (unreadOnly && rec.value.IsRead()) {
			continue
		}
		matched = append(matched, rec)
	}
	sortNewestFirst(matched, func(n models.Notification) time.Time { return n.CreatedAt })

	notifications := make([]models.Notification, 0, len(matched))
	for _, rec := range paginate(matched, page) {
		notifications = append(notifications, rec.value)
	}
	return notifications, int64(len(matched)), nil
}

func (r memNotificationRepo) MarkRead(ctx context.Context, id, userID uuid.UUID, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	rec, ok := r.m.notifications[id]
	if !ok || rec.value.UserID != userID {
		return apperrors.NotFound("notification")
	}
	n := rec.value
	n.ReadAt = &at
	r.m.notifications[id] = memRecord[models.Notification]{seq: rec.seq, value: n}
	return nil
}
