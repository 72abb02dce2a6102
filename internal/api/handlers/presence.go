package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/presenza-app/presenza/internal/service"
)

type PresenceHandler struct {
	svc *service.PresenceService
}

func NewPresenceHandler(svc *service.PresenceService) *PresenceHandler {
	return &PresenceHandler{svc: svc}
}

type recordPresenceRequest struct {
	Identifier string `json:"identifier"`
	FormID     string `json:"form_id"`
}

func (h *PresenceHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req recordPresenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Identifier == "" {
		writeError(w, http.StatusBadRequest, "identifier is required")
		return
	}
	formID, err := uuid.Parse(req.FormID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid form_id")
		return
	}

	result, err := h.svc.RecordPresence(r.Context(), req.Identifier, formID)
	if err != nil {
		writePresenceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

func (h *PresenceHandler) History(w http.ResponseWriter, r *http.Request) {
	identifier := r.URL.Query().Get("identifier")
	if identifier == "" {
		writeError(w, http.StatusBadRequest, "identifier is required")
		return
	}

	history, err := h.svc.GetHistory(r.Context(), identifier)
	if err != nil {
		writePresenceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"presences": history,
		"count":     len(history),
	})
}

func writePresenceError(w http.ResponseWriter, err error) {
	var oow *service.OutOfWindowError
	switch {
	case errors.Is(err, service.ErrUnknownIdentifier),
		errors.Is(err, service.ErrFormNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrFormInactive):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &oow):
		writeJSON(w, http.StatusForbidden, map[string]string{
			"error":      oow.Error(),
			"start_time": oow.Start,
			"end_time":   oow.End,
		})
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
