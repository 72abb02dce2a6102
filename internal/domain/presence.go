package domain

import (
	"time"

	"github.com/google/uuid"
)

type PresenceType string

const (
	PresenceSimple    PresenceType = "SIMPLE"
	PresenceArrival   PresenceType = "ARRIVAL"
	PresenceDeparture PresenceType = "DEPARTURE"
)

// Presence is an immutable attendance event. Rows are append-only;
// nothing in the system updates or deletes them.
type Presence struct {
	ID        uuid.UUID    `json:"id"`
	TenantID  uuid.UUID    `json:"tenant_id"`
	UserID    uuid.UUID    `json:"user_id"`
	FormID    uuid.UUID    `json:"form_id"`
	Type      PresenceType `json:"type"`
	CreatedAt time.Time    `json:"created_at"`
}

// PresenceWithForm annotates a presence with its form's name and type
// for history listings.
type PresenceWithForm struct {
	Presence
	FormName string   `json:"form_name"`
	FormType FormType `json:"form_type"`
}
