package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/presenza-app/presenza/internal/domain"
	"github.com/presenza-app/presenza/internal/store"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

// fixedClock is a settable domain.Clock for temporal tests.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFixedClock(t time.Time) *fixedClock {
	return &fixedClock{t: t}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// mockTenantStore implements domain.TenantStore for testing.
type mockTenantStore struct {
	mu      sync.Mutex
	tenants map[uuid.UUID]*domain.Tenant
}

func newMockTenantStore() *mockTenantStore {
	return &mockTenantStore{tenants: make(map[uuid.UUID]*domain.Tenant)}
}

func (m *mockTenantStore) Create(ctx context.Context, t *domain.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.tenants {
		if existing.Code == t.Code {
			return store.ErrConflict
		}
	}
	t.ID = uuid.New()
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	m.tenants[t.ID] = t
	return nil
}

func (m *mockTenantStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return t, nil
}

func (m *mockTenantStore) GetByCode(ctx context.Context, code string) (*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tenants {
		if t.Code == code {
			return t, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockTenantStore) GetByAPIKeyHash(ctx context.Context, hash string) (*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tenants {
		if t.APIKeyHash == hash {
			return t, nil
		}
	}
	return nil, store.ErrNotFound
}

// mockUserStore implements domain.UserStore for testing. Setting
// forcedConflicts makes the next N Create calls fail with ErrConflict
// to exercise the allocate-and-insert retry loop.
type mockUserStore struct {
	mu              sync.Mutex
	users           map[uuid.UUID]*domain.User
	values          map[uuid.UUID][]domain.FieldValue
	forcedConflicts int
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{
		users:  make(map[uuid.UUID]*domain.User),
		values: make(map[uuid.UUID][]domain.FieldValue),
	}
}

func (m *mockUserStore) Create(ctx context.Context, u *domain.User, values []domain.FieldValue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.forcedConflicts > 0 {
		m.forcedConflicts--
		return store.ErrConflict
	}
	for _, existing := range m.users {
		if existing.Identifier == u.Identifier {
			return store.ErrConflict
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	m.users[u.ID] = u
	for i := range values {
		values[i].ID = uuid.New()
		values[i].UserID = u.ID
		values[i].CreatedAt = u.CreatedAt
	}
	m.values[u.ID] = values
	return nil
}

func (m *mockUserStore) GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (m *mockUserStore) GetByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Identifier == identifier {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockUserStore) IdentifierExists(ctx context.Context, identifier string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Identifier == identifier {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserStore) ListFieldValues(ctx context.Context, userID uuid.UUID, tenantID uuid.UUID) ([]domain.FieldValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok || u.TenantID != tenantID {
		return nil, nil
	}
	return m.values[userID], nil
}

// mockFormStore implements domain.FormStore for testing.
type mockFormStore struct {
	mu        sync.Mutex
	forms     map[uuid.UUID]*domain.FormTemplate
	fields    map[uuid.UUID][]domain.FieldTemplate
	intervals map[uuid.UUID]*domain.ArrivalDepartureInterval
}

func newMockFormStore() *mockFormStore {
	return &mockFormStore{
		forms:     make(map[uuid.UUID]*domain.FormTemplate),
		fields:    make(map[uuid.UUID][]domain.FieldTemplate),
		intervals: make(map[uuid.UUID]*domain.ArrivalDepartureInterval),
	}
}

func (m *mockFormStore) Create(ctx context.Context, f *domain.FormTemplate, fields []domain.FieldTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f.ID = uuid.New()
	f.CreatedAt = time.Now()
	f.UpdatedAt = f.CreatedAt
	m.forms[f.ID] = f
	for i := range fields {
		fields[i].ID = uuid.New()
		fields[i].FormID = f.ID
	}
	m.fields[f.ID] = fields
	return nil
}

func (m *mockFormStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.FormTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.forms[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return f, nil
}

func (m *mockFormStore) GetByIDAndTenant(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*domain.FormTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.forms[id]
	if !ok || f.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	return f, nil
}

func (m *mockFormStore) ListFieldTemplates(ctx context.Context, formID uuid.UUID) ([]domain.FieldTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fields := m.fields[formID]
	sort.SliceStable(fields, func(i, j int) bool {
		return fields[i].DisplayOrder < fields[j].DisplayOrder
	})
	return fields, nil
}

func (m *mockFormStore) GetInterval(ctx context.Context, formID uuid.UUID) (*domain.ArrivalDepartureInterval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	iv, ok := m.intervals[formID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return iv, nil
}

func (m *mockFormStore) UpsertInterval(ctx context.Context, iv *domain.ArrivalDepartureInterval) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	iv.UpdatedAt = time.Now()
	m.intervals[iv.FormID] = iv
	return nil
}

// mockPresenceStore implements domain.PresenceStore. RecordSameDay
// serializes under the mutex, mirroring the row lock of the postgres
// implementation.
type mockPresenceStore struct {
	mu        sync.Mutex
	presences []domain.Presence
	forms     *mockFormStore
	now       func() time.Time
}

func newMockPresenceStore(forms *mockFormStore, now func() time.Time) *mockPresenceStore {
	return &mockPresenceStore{forms: forms, now: now}
}

func (m *mockPresenceStore) RecordSameDay(ctx context.Context, p *domain.Presence, dayStart, dayEnd time.Time, classify domain.ClassifyFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var history []domain.Presence
	for i := len(m.presences) - 1; i >= 0; i-- {
		h := m.presences[i]
		if h.UserID == p.UserID && h.FormID == p.FormID && h.TenantID == p.TenantID &&
			!h.CreatedAt.Before(dayStart) && h.CreatedAt.Before(dayEnd) {
			history = append(history, h)
		}
	}
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].CreatedAt.After(history[j].CreatedAt)
	})

	p.Type = classify(history)
	p.ID = uuid.New()
	p.CreatedAt = m.now()
	m.presences = append(m.presences, *p)
	return nil
}

func (m *mockPresenceStore) ListByUser(ctx context.Context, userID uuid.UUID, tenantID uuid.UUID, limit int) ([]domain.PresenceWithForm, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.PresenceWithForm
	for _, p := range m.presences {
		if p.UserID == userID && p.TenantID == tenantID {
			pf := domain.PresenceWithForm{Presence: p}
			if f, ok := m.forms.forms[p.FormID]; ok {
				pf.FormName = f.Name
				pf.FormType = f.Type
			}
			out = append(out, pf)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
