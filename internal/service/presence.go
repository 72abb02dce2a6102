package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/presenza-app/presenza/internal/domain"
	"github.com/presenza-app/presenza/internal/metrics"
	"github.com/presenza-app/presenza/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// ErrUnknownIdentifier is returned for identifiers that do not resolve
// to an active user of an active tenant. Deactivated users and tenants
// are hidden behind the same error as unknown codes.
var ErrUnknownIdentifier = errors.New("unknown identifier")

// HistoryLimit caps the number of presences returned by GetHistory.
const HistoryLimit = 50

// RecordResult is the outcome of a recorded presence.
type RecordResult struct {
	Presence *domain.Presence `json:"presence"`
	User     *domain.User     `json:"user"`
	Message  string           `json:"message"`
}

// PresenceService records presence events and serves visitor history.
// The tenant is always derived from the visitor's identifier, never
// supplied by the caller.
type PresenceService struct {
	users     domain.UserStore
	tenants   domain.TenantStore
	presences domain.PresenceStore
	admission *AdmissionService
	clock     domain.Clock
	// metrics is optional; tests run without a registry.
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewPresenceService(
	users domain.UserStore,
	tenants domain.TenantStore,
	presences domain.PresenceStore,
	admission *AdmissionService,
	clock domain.Clock,
	m *metrics.Metrics,
	logger *zap.Logger,
) *PresenceService {
	return &PresenceService{
		users:     users,
		tenants:   tenants,
		presences: presences,
		admission: admission,
		clock:     clock,
		metrics:   m,
		logger:    logger,
	}
}

// RecordPresence resolves the visitor, checks form admission within the
// visitor's tenant, classifies the event against the same-day history
// and persists it. Classification and insert run as one serialized unit
// in the presence store.
func (s *PresenceService) RecordPresence(ctx context.Context, identifier string, formID uuid.UUID) (*RecordResult, error) {
	if s.metrics != nil {
		timer := prometheus.NewTimer(s.metrics.RecordDuration)
		defer timer.ObserveDuration()
	}

	user, err := s.resolveUser(ctx, identifier)
	if err != nil {
		return nil, err
	}

	form, err := s.admission.ResolveAdmissibleForm(ctx, formID, user.TenantID, domain.PurposePresence)
	if err != nil {
		return nil, err
	}

	dayStart, dayEnd := DayBounds(s.clock.Now())

	presence := &domain.Presence{
		TenantID: user.TenantID,
		UserID:   user.ID,
		FormID:   form.ID,
	}
	err = s.presences.RecordSameDay(ctx, presence, dayStart, dayEnd, func(history []domain.Presence) domain.PresenceType {
		next, anomalous := ClassifyNext(form.Type, history)
		if anomalous {
			s.logger.Warn("non-alternating presence history, defaulting to arrival",
				zap.String("tenant_id", user.TenantID.String()),
				zap.String("user_id", user.ID.String()),
				zap.String("form_id", form.ID.String()),
				zap.String("last_type", string(history[0].Type)))
		}
		return next
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ObservePresence(string(presence.Type))
	}

	return &RecordResult{
		Presence: presence,
		User:     user,
		Message:  recordMessage(presence.Type),
	}, nil
}

// GetHistory returns up to HistoryLimit presences for the visitor
// within their tenant, newest first, annotated with form name and type.
func (s *PresenceService) GetHistory(ctx context.Context, identifier string) ([]domain.PresenceWithForm, error) {
	user, err := s.resolveUser(ctx, identifier)
	if err != nil {
		return nil, err
	}
	return s.presences.ListByUser(ctx, user.ID, user.TenantID, HistoryLimit)
}

func (s *PresenceService) resolveUser(ctx context.Context, identifier string) (*domain.User, error) {
	user, err := s.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnknownIdentifier
		}
		return nil, err
	}
	if user.Status != domain.UserActive {
		return nil, ErrUnknownIdentifier
	}

	tenant, err := s.tenants.GetByID(ctx, user.TenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnknownIdentifier
		}
		return nil, err
	}
	if !tenant.Active {
		return nil, ErrUnknownIdentifier
	}

	return user, nil
}

func recordMessage(t domain.PresenceType) string {
	switch t {
	case domain.PresenceArrival:
		return "arrival recorded"
	case domain.PresenceDeparture:
		return "departure recorded"
	default:
		return "presence recorded"
	}
}
