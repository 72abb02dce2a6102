package domain

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is an isolated organization. Every user, form, and presence
// belongs to exactly one tenant; no read or write may cross tenants.
type Tenant struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Code       string    `json:"code"`
	APIKeyHash string    `json:"-"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
