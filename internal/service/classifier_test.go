package service

import (
	"testing"
	"time"

	"github.com/presenza-app/presenza/internal/domain"
)

func history(types ...domain.PresenceType) []domain.Presence {
	out := make([]domain.Presence, len(types))
	for i, t := range types {
		out[i] = domain.Presence{Type: t}
	}
	return out
}

func TestClassifyNext_SimpleAlwaysSimple(t *testing.T) {
	tests := []struct {
		name    string
		history []domain.Presence
	}{
		{"empty", nil},
		{"after simple", history(domain.PresenceSimple)},
		{"after many", history(domain.PresenceSimple, domain.PresenceSimple, domain.PresenceSimple)},
		{"after foreign types", history(domain.PresenceArrival, domain.PresenceDeparture)},
	}

	for _, tc := range tests {
		next, anomalous := ClassifyNext(domain.SimplePresence, tc.history)
		if next != domain.PresenceSimple {
			t.Fatalf("%s: expected SIMPLE, got %s", tc.name, next)
		}
		if anomalous {
			t.Fatalf("%s: expected no anomaly", tc.name)
		}
	}
}

func TestClassifyNext_ArrivalDeparture(t *testing.T) {
	tests := []struct {
		name      string
		history   []domain.Presence
		expected  domain.PresenceType
		anomalous bool
	}{
		{"empty history starts with arrival", nil, domain.PresenceArrival, false},
		{"after arrival comes departure", history(domain.PresenceArrival), domain.PresenceDeparture, false},
		{"after departure a new cycle begins", history(domain.PresenceDeparture, domain.PresenceArrival), domain.PresenceArrival, false},
		{"second cycle alternates", history(domain.PresenceArrival, domain.PresenceDeparture, domain.PresenceArrival), domain.PresenceDeparture, false},
		{"simple in history is anomalous", history(domain.PresenceSimple), domain.PresenceArrival, true},
		{"unknown type is anomalous", history(domain.PresenceType("BOGUS")), domain.PresenceArrival, true},
	}

	for _, tc := range tests {
		next, anomalous := ClassifyNext(domain.ArrivalDeparture, tc.history)
		if next != tc.expected {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.expected, next)
		}
		if anomalous != tc.anomalous {
			t.Fatalf("%s: expected anomalous=%v, got %v", tc.name, tc.anomalous, anomalous)
		}
	}
}

// The alternation invariant: feeding each classification back into the
// history always produces ARRIVAL, DEPARTURE, ARRIVAL, ...
func TestClassifyNext_AlternationSequence(t *testing.T) {
	var seq []domain.Presence
	for i := 0; i < 10; i++ {
		next, anomalous := ClassifyNext(domain.ArrivalDeparture, seq)
		if anomalous {
			t.Fatalf("step %d: unexpected anomaly", i)
		}

		expected := domain.PresenceArrival
		if i%2 == 1 {
			expected = domain.PresenceDeparture
		}
		if next != expected {
			t.Fatalf("step %d: expected %s, got %s", i, expected, next)
		}

		// Prepend: history is newest first.
		seq = append([]domain.Presence{{Type: next}}, seq...)
	}
}

func TestDayBounds(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	now := time.Date(2024, 3, 15, 14, 30, 12, 0, loc)

	start, end := DayBounds(now)

	if !start.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, loc)) {
		t.Fatalf("expected local midnight, got %v", start)
	}
	if !end.Equal(start.Add(24 * time.Hour)) {
		t.Fatalf("expected midnight + 24h, got %v", end)
	}
	if !now.Before(end) || now.Before(start) {
		t.Fatal("now should fall inside its own day bounds")
	}
}
