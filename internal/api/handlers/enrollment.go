package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/presenza-app/presenza/internal/service"
)

type EnrollmentHandler struct {
	svc *service.EnrollmentService
}

func NewEnrollmentHandler(svc *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{svc: svc}
}

type fieldValueRequest struct {
	FieldTemplateID string `json:"field_template_id"`
	Value           string `json:"value"`
}

type enrollRequest struct {
	FormID      string              `json:"form_id"`
	LastName    string              `json:"last_name"`
	FirstName   string              `json:"first_name"`
	Title       string              `json:"title"`
	Institution string              `json:"institution,omitempty"`
	Phone       string              `json:"phone,omitempty"`
	Email       string              `json:"email,omitempty"`
	FieldValues []fieldValueRequest `json:"field_values"`
}

func (h *EnrollmentHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	formID, err := uuid.Parse(req.FormID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid form_id")
		return
	}

	input := service.EnrollInput{
		FormID:      formID,
		LastName:    req.LastName,
		FirstName:   req.FirstName,
		Title:       req.Title,
		Institution: req.Institution,
		Phone:       req.Phone,
		Email:       req.Email,
	}
	for _, fv := range req.FieldValues {
		ftID, err := uuid.Parse(fv.FieldTemplateID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid field_template_id")
			return
		}
		input.FieldValues = append(input.FieldValues, service.FieldValueInput{
			FieldTemplateID: ftID,
			Value:           fv.Value,
		})
	}

	result, err := h.svc.Enroll(r.Context(), input)
	if err != nil {
		writeEnrollError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

func writeEnrollError(w http.ResponseWriter, err error) {
	var missing *service.MissingFieldError
	var unknown *service.UnknownFieldError
	switch {
	case errors.Is(err, service.ErrFormNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrFormInactive):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrLastNameRequired),
		errors.Is(err, service.ErrFirstNameRequired),
		errors.As(err, &missing),
		errors.As(err, &unknown):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "failed to enroll")
	}
}
