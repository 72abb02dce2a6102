package domain

import (
	"time"

	"github.com/google/uuid"
)

type UserStatus string

const (
	UserActive   UserStatus = "ACTIVE"
	UserInactive UserStatus = "INACTIVE"
)

// User is a visitor registered under exactly one tenant. The identifier
// is the opaque code presented at the kiosk; it is globally unique and
// immutable after enrollment.
type User struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	Identifier  string     `json:"identifier"`
	LastName    string     `json:"last_name"`
	FirstName   string     `json:"first_name"`
	Title       string     `json:"title"`
	Institution string     `json:"institution,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Email       string     `json:"email,omitempty"`
	Status      UserStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// FieldValue stores one submitted enrollment answer. Values are kept as
// the raw submitted string regardless of the declared field type.
type FieldValue struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	FieldTemplateID uuid.UUID `json:"field_template_id"`
	FormID          uuid.UUID `json:"form_id"`
	FieldType       FieldType `json:"field_type"`
	Value           string    `json:"value"`
	CreatedAt       time.Time `json:"created_at"`
}
