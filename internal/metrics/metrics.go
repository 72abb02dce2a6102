package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the attendance engine.
type Metrics struct {
	PresencesRecorded    *prometheus.CounterVec
	Enrollments          prometheus.Counter
	IdentifierCollisions prometheus.Counter
	RecordDuration       prometheus.Histogram
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		PresencesRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "presenza_presences_recorded_total",
			Help: "Total number of presence events recorded, by type",
		}, []string{"type"}),
		Enrollments: promauto.NewCounter(prometheus.CounterOpts{
			Name: "presenza_enrollments_total",
			Help: "Total number of completed visitor enrollments",
		}),
		IdentifierCollisions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "presenza_identifier_collisions_total",
			Help: "Total number of identifier conflicts retried at insert time",
		}),
		RecordDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "presenza_record_presence_duration_seconds",
			Help:    "Duration of RecordPresence operations (kiosk critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObservePresence records one recorded presence of the given type.
func (m *Metrics) ObservePresence(presenceType string) {
	m.PresencesRecorded.WithLabelValues(presenceType).Inc()
}

// IncrementEnrollments records one completed enrollment.
func (m *Metrics) IncrementEnrollments() {
	m.Enrollments.Inc()
}
