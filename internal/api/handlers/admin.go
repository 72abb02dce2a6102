package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/presenza-app/presenza/internal/api/middleware"
	"github.com/presenza-app/presenza/internal/domain"
	"github.com/presenza-app/presenza/internal/service"
	"github.com/presenza-app/presenza/internal/store"
)

// AdminHandler serves the tenant-authenticated provisioning surface:
// admin-created visitors, form creation, and interval configuration.
type AdminHandler struct {
	enrollment *service.EnrollmentService
	forms      domain.FormStore
}

func NewAdminHandler(enrollment *service.EnrollmentService, forms domain.FormStore) *AdminHandler {
	return &AdminHandler{enrollment: enrollment, forms: forms}
}

type createUserRequest struct {
	LastName    string `json:"last_name"`
	FirstName   string `json:"first_name"`
	Title       string `json:"title"`
	Institution string `json:"institution,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
}

// CreateUser registers a visitor under the authenticated tenant with a
// tenant-scoped identifier.
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.enrollment.RegisterByAdmin(r.Context(), tenant, service.AdminUserInput{
		LastName:    req.LastName,
		FirstName:   req.FirstName,
		Title:       req.Title,
		Institution: req.Institution,
		Phone:       req.Phone,
		Email:       req.Email,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrLastNameRequired),
			errors.Is(err, service.ErrFirstNameRequired):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to create user")
		}
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

type createFieldRequest struct {
	Label        string   `json:"label"`
	FieldType    string   `json:"field_type"`
	Required     bool     `json:"required"`
	Options      []string `json:"options,omitempty"`
	DisplayOrder int      `json:"display_order"`
}

type createFormRequest struct {
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Purpose     string               `json:"purpose"`
	Type        string               `json:"type,omitempty"`
	Fields      []createFieldRequest `json:"fields,omitempty"`
}

func (h *AdminHandler) CreateForm(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createFormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	purpose := domain.FormPurpose(req.Purpose)
	if purpose != domain.PurposeEnrollment && purpose != domain.PurposePresence {
		writeError(w, http.StatusBadRequest, "purpose must be ENROLLMENT or PRESENCE")
		return
	}

	form := &domain.FormTemplate{
		TenantID:    tenant.ID,
		Name:        req.Name,
		Description: req.Description,
		Purpose:     purpose,
		Active:      true,
	}

	if purpose == domain.PurposePresence {
		formType := domain.FormType(req.Type)
		if formType != domain.SimplePresence && formType != domain.ArrivalDeparture {
			writeError(w, http.StatusBadRequest, "type must be SIMPLE_PRESENCE or ARRIVAL_DEPARTURE")
			return
		}
		form.Type = formType
	}

	var fields []domain.FieldTemplate
	if purpose == domain.PurposeEnrollment {
		for _, f := range req.Fields {
			if f.Label == "" {
				writeError(w, http.StatusBadRequest, "field label is required")
				return
			}
			if !domain.ValidFieldType(f.FieldType) {
				writeError(w, http.StatusBadRequest, "invalid field_type "+f.FieldType)
				return
			}
			fields = append(fields, domain.FieldTemplate{
				Label:        f.Label,
				FieldType:    domain.FieldType(f.FieldType),
				Required:     f.Required,
				Options:      f.Options,
				DisplayOrder: f.DisplayOrder,
			})
		}
	}

	if err := h.forms.Create(r.Context(), form, fields); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create form")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"form":   form,
		"fields": fields,
	})
}

type setIntervalRequest struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// SetInterval configures or replaces the daily admission window of an
// ARRIVAL_DEPARTURE form. The upsert keeps at most one interval per
// form.
func (h *AdminHandler) SetInterval(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	formID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid form id")
		return
	}

	var req setIntervalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !service.ValidWallClock(req.StartTime) || !service.ValidWallClock(req.EndTime) {
		writeError(w, http.StatusBadRequest, "start_time and end_time must be HH:mm")
		return
	}

	form, err := h.forms.GetByIDAndTenant(r.Context(), formID, tenant.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "form not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load form")
		return
	}
	if form.Type != domain.ArrivalDeparture {
		writeError(w, http.StatusBadRequest, "form does not use arrival/departure intervals")
		return
	}

	iv := &domain.ArrivalDepartureInterval{
		FormID:    form.ID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}
	if err := h.forms.UpsertInterval(r.Context(), iv); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to set interval")
		return
	}

	writeJSON(w, http.StatusOK, iv)
}
