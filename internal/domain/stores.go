package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Clock abstracts wall-clock time so admission windows and day-boundary
// classification are testable without real time.
type Clock interface {
	Now() time.Time
}

type TenantStore interface {
	Create(ctx context.Context, t *Tenant) error
	GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	GetByCode(ctx context.Context, code string) (*Tenant, error)
	GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*Tenant, error)
}

type UserStore interface {
	// Create inserts the user and its field values in one transaction.
	// A unique violation on the identifier column returns ErrConflict.
	Create(ctx context.Context, u *User, values []FieldValue) error
	GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*User, error)
	// GetByIdentifier looks up across all tenants; the identifier is
	// globally unique and the owning tenant is derived from the result.
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
	IdentifierExists(ctx context.Context, identifier string) (bool, error)
	ListFieldValues(ctx context.Context, userID uuid.UUID, tenantID uuid.UUID) ([]FieldValue, error)
}

type FormStore interface {
	Create(ctx context.Context, f *FormTemplate, fields []FieldTemplate) error
	// GetByID is tenant-agnostic: enrollment derives the tenant from the
	// chosen form rather than trusting the caller.
	GetByID(ctx context.Context, id uuid.UUID) (*FormTemplate, error)
	// GetByIDAndTenant filters by id AND tenant and is the primary
	// tenant-isolation guard for presence recording.
	GetByIDAndTenant(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*FormTemplate, error)
	ListFieldTemplates(ctx context.Context, formID uuid.UUID) ([]FieldTemplate, error)
	GetInterval(ctx context.Context, formID uuid.UUID) (*ArrivalDepartureInterval, error)
	// UpsertInterval replaces any existing interval for the form,
	// keeping the at-most-one invariant at the storage boundary.
	UpsertInterval(ctx context.Context, iv *ArrivalDepartureInterval) error
}

// ClassifyFunc decides the type of the next presence given the user's
// same-day history for the form, newest first. It must be pure; the
// store calls it while holding the serializing lock.
type ClassifyFunc func(history []Presence) PresenceType

type PresenceStore interface {
	// RecordSameDay reads the user's presences for (form, tenant) within
	// [dayStart, dayEnd), classifies, and inserts the new presence as
	// one serialized unit. The caller's Presence has its Type, ID and
	// CreatedAt filled in on success.
	RecordSameDay(ctx context.Context, p *Presence, dayStart, dayEnd time.Time, classify ClassifyFunc) error
	ListByUser(ctx context.Context, userID uuid.UUID, tenantID uuid.UUID, limit int) ([]PresenceWithForm, error)
}
