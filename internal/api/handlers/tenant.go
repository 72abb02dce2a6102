package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/presenza-app/presenza/internal/api/middleware"
	"github.com/presenza-app/presenza/internal/domain"
	"github.com/presenza-app/presenza/internal/store"
)

type TenantHandler struct {
	tenants domain.TenantStore
}

func NewTenantHandler(tenants domain.TenantStore) *TenantHandler {
	return &TenantHandler{tenants: tenants}
}

type createTenantRequest struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type createTenantResponse struct {
	Tenant *domain.Tenant `json:"tenant"`
	APIKey string         `json:"api_key"`
}

// Create provisions a tenant and returns its API key. The key is shown
// once; only its hash is stored.
func (h *TenantHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Code == "" {
		writeError(w, http.StatusBadRequest, "name and code are required")
		return
	}

	apiKey := uuid.NewString()
	tenant := &domain.Tenant{
		Name:       req.Name,
		Code:       req.Code,
		APIKeyHash: middleware.HashAPIKey(apiKey),
		Active:     true,
	}

	if err := h.tenants.Create(r.Context(), tenant); err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, "tenant code already taken")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create tenant")
		return
	}

	writeJSON(w, http.StatusCreated, createTenantResponse{Tenant: tenant, APIKey: apiKey})
}
