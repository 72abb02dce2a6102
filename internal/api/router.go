package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/presenza-app/presenza/internal/api/handlers"
	mw "github.com/presenza-app/presenza/internal/api/middleware"
	"github.com/presenza-app/presenza/internal/config"
	"github.com/presenza-app/presenza/internal/domain"
	"github.com/presenza-app/presenza/internal/metrics"
	"github.com/presenza-app/presenza/internal/service"
	"github.com/presenza-app/presenza/internal/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter wires stores, services and handlers into the HTTP surface.
func NewRouter(db *pgxpool.Pool, logger *zap.Logger) *chi.Mux {
	// Stores
	tenantStore := store.NewTenantStore(db)
	userStore := store.NewUserStore(db)
	formStore := store.NewFormStore(db)
	presenceStore := store.NewPresenceStore(db)

	m := metrics.New()
	clock := service.SystemClock{}

	// Services
	allocator := service.NewIdentifierAllocator(userStore, config.IdentifierMaxAttempts(), logger)
	admissionSvc := service.NewAdmissionService(formStore, clock, config.BypassAdmissionWindow(), logger)
	presenceSvc := service.NewPresenceService(userStore, tenantStore, presenceStore, admissionSvc, clock, m, logger)
	enrollmentSvc := service.NewEnrollmentService(userStore, tenantStore, formStore, allocator, m, logger)

	// Handlers
	tenantHandler := handlers.NewTenantHandler(tenantStore)
	enrollmentHandler := handlers.NewEnrollmentHandler(enrollmentSvc)
	presenceHandler := handlers.NewPresenceHandler(presenceSvc)
	adminHandler := handlers.NewAdminHandler(enrollmentSvc, formStore)

	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Metrics)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	// Health and metrics (no auth)
	r.Get("/health", healthHandler(db))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Tenant provisioning (no auth — bootstrap endpoint)
	r.Post("/v1/tenants", tenantHandler.Create)

	// Public kiosk endpoints: the visitor identifier is the only
	// credential, and the tenant is always derived server-side.
	r.Route("/v1", func(r chi.Router) {
		r.Post("/enroll", enrollmentHandler.Enroll)
		r.Post("/presences", presenceHandler.Record)
		r.Get("/presences/history", presenceHandler.History)

		// Admin surface, authenticated by tenant API key
		r.Route("/admin", func(r chi.Router) {
			r.Use(mw.APIKeyAuth(tenantStore))
			r.Post("/users", adminHandler.CreateUser)
			r.Post("/forms", adminHandler.CreateForm)
			r.Put("/forms/{id}/interval", adminHandler.SetInterval)
		})
	})

	return r
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

// Ensure stores satisfy the domain interfaces at compile time.
var (
	_ domain.TenantStore   = (*store.TenantStore)(nil)
	_ domain.UserStore     = (*store.UserStore)(nil)
	_ domain.FormStore     = (*store.FormStore)(nil)
	_ domain.PresenceStore = (*store.PresenceStore)(nil)
	_ domain.Clock         = service.SystemClock{}
)
