package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/presenza-app/presenza/internal/domain"
	"github.com/presenza-app/presenza/internal/store"
	"go.uber.org/zap"
)

var (
	// ErrFormNotFound covers a nonexistent form, a foreign tenant's
	// form, and a wrong-purpose form. The cases must stay
	// indistinguishable so callers cannot probe tenant topology.
	ErrFormNotFound = errors.New("form not found")
	ErrFormInactive = errors.New("form is not active")
)

// OutOfWindowError reports a presence submission outside the form's
// configured daily window. It carries the bounds for display.
type OutOfWindowError struct {
	Start string
	End   string
}

func (e *OutOfWindowError) Error() string {
	return fmt.Sprintf("submissions accepted between %s and %s", e.Start, e.End)
}

// AdmissionService resolves a form for a tenant and decides whether it
// currently accepts submissions.
type AdmissionService struct {
	forms domain.FormStore
	clock domain.Clock
	// bypassWindow disables the time-window check. Set only in the
	// non-production runtime mode; it is a test escape hatch, not a
	// security boundary.
	bypassWindow bool
	logger       *zap.Logger
}

func NewAdmissionService(forms domain.FormStore, clock domain.Clock, bypassWindow bool, logger *zap.Logger) *AdmissionService {
	return &AdmissionService{forms: forms, clock: clock, bypassWindow: bypassWindow, logger: logger}
}

// ResolveAdmissibleForm fetches the form filtered by id AND tenant,
// checks the active flag, and for timed arrival/departure forms checks
// the current wall-clock time against the configured interval
// (inclusive on both ends).
func (s *AdmissionService) ResolveAdmissibleForm(ctx context.Context, formID uuid.UUID, tenantID uuid.UUID, purpose domain.FormPurpose) (*domain.FormTemplate, error) {
	form, err := s.forms.GetByIDAndTenant(ctx, formID, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrFormNotFound
		}
		return nil, err
	}
	if form.Purpose != purpose {
		return nil, ErrFormNotFound
	}
	if !form.Active {
		return nil, ErrFormInactive
	}

	if purpose == domain.PurposePresence && form.Type == domain.ArrivalDeparture && !s.bypassWindow {
		if err := s.checkWindow(ctx, form); err != nil {
			return nil, err
		}
	}

	return form, nil
}

func (s *AdmissionService) checkWindow(ctx context.Context, form *domain.FormTemplate) error {
	iv, err := s.forms.GetInterval(ctx, form.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// No interval configured: the form accepts all day.
			return nil
		}
		return err
	}

	startMin, err := parseWallClock(iv.StartTime)
	if err != nil {
		s.logger.Error("malformed interval start, skipping window check",
			zap.String("form_id", form.ID.String()),
			zap.String("start_time", iv.StartTime),
			zap.Error(err))
		return nil
	}
	endMin, err := parseWallClock(iv.EndTime)
	if err != nil {
		s.logger.Error("malformed interval end, skipping window check",
			zap.String("form_id", form.ID.String()),
			zap.String("end_time", iv.EndTime),
			zap.Error(err))
		return nil
	}

	now := s.clock.Now()
	nowMin := now.Hour()*60 + now.Minute()
	if nowMin < startMin || nowMin > endMin {
		return &OutOfWindowError{Start: iv.StartTime, End: iv.EndTime}
	}
	return nil
}

// ValidWallClock reports whether s is a parseable "HH:mm" time.
func ValidWallClock(s string) bool {
	_, err := parseWallClock(s)
	return err == nil
}

// parseWallClock converts an "HH:mm" string to minutes since midnight.
func parseWallClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("parse wall clock %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("wall clock %q out of range", s)
	}
	return h*60 + m, nil
}
