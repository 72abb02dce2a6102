package domain

import (
	"time"

	"github.com/google/uuid"
)

type FormPurpose string

const (
	PurposeEnrollment FormPurpose = "ENROLLMENT"
	PurposePresence   FormPurpose = "PRESENCE"
)

// FormType is only meaningful for PRESENCE forms.
type FormType string

const (
	SimplePresence   FormType = "SIMPLE_PRESENCE"
	ArrivalDeparture FormType = "ARRIVAL_DEPARTURE"
)

type FieldType string

const (
	FieldText     FieldType = "TEXT"
	FieldNumber   FieldType = "NUMBER"
	FieldDate     FieldType = "DATE"
	FieldSelect   FieldType = "SELECT"
	FieldCheckbox FieldType = "CHECKBOX"
	FieldTextarea FieldType = "TEXTAREA"
)

func ValidFieldType(s string) bool {
	switch FieldType(s) {
	case FieldText, FieldNumber, FieldDate, FieldSelect, FieldCheckbox, FieldTextarea:
		return true
	}
	return false
}

// FormTemplate is a tenant-owned form configuration: either an
// enrollment questionnaire or a presence-capture flow.
type FormTemplate struct {
	ID          uuid.UUID   `json:"id"`
	TenantID    uuid.UUID   `json:"tenant_id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Purpose     FormPurpose `json:"purpose"`
	Type        FormType    `json:"type,omitempty"`
	Active      bool        `json:"active"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// FieldTemplate is one input definition on an enrollment form.
type FieldTemplate struct {
	ID           uuid.UUID `json:"id"`
	FormID       uuid.UUID `json:"form_id"`
	Label        string    `json:"label"`
	FieldType    FieldType `json:"field_type"`
	Required     bool      `json:"required"`
	Options      []string  `json:"options,omitempty"`
	DisplayOrder int       `json:"display_order"`
}

// ArrivalDepartureInterval is the daily admission window of an
// ARRIVAL_DEPARTURE form. Times are "HH:mm" wall-clock strings in the
// server's time zone, reused every day. A form has at most one.
type ArrivalDepartureInterval struct {
	FormID    uuid.UUID `json:"form_id"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	UpdatedAt time.Time `json:"updated_at"`
}
