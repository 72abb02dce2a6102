package service

import (
	"time"

	"github.com/presenza-app/presenza/internal/domain"
)

// ClassifyNext decides the type of the next presence from the user's
// same-day history for the form, ordered newest first.
//
// SIMPLE_PRESENCE forms always yield SIMPLE. ARRIVAL_DEPARTURE forms
// alternate starting with ARRIVAL: empty history means ARRIVAL, a most
// recent ARRIVAL means DEPARTURE, a most recent DEPARTURE starts a new
// ARRIVAL cycle. Any other type in the history is a data-integrity
// fault; the function falls back to ARRIVAL and reports it through the
// anomalous flag so the caller can log it instead of refusing service.
func ClassifyNext(formType domain.FormType, history []domain.Presence) (next domain.PresenceType, anomalous bool) {
	if formType == domain.SimplePresence {
		return domain.PresenceSimple, false
	}

	if len(history) == 0 {
		return domain.PresenceArrival, false
	}

	switch history[0].Type {
	case domain.PresenceArrival:
		return domain.PresenceDeparture, false
	case domain.PresenceDeparture:
		return domain.PresenceArrival, false
	default:
		return domain.PresenceArrival, true
	}
}

// DayBounds returns the half-open interval [local midnight, +24h)
// containing now, in now's location.
func DayBounds(now time.Time) (start, end time.Time) {
	start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return start, start.Add(24 * time.Hour)
}
