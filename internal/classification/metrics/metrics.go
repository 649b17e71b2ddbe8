package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for classification.
type Metrics struct {
	// Outcomes by result and role resolution tier
	Outcomes *prometheus.CounterVec

	// Catalog integrity alerts raised while classifying
	IntegrityAlerts *prometheus.CounterVec

	Duration prometheus.Histogram
}

// New creates a new Metrics instance with all classification metrics registered.
func New() *Metrics {
	return &Metrics{
		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kyc_classifications_total",
			Help: "Total classifications by outcome and role resolution tier",
		}, []string{"outcome", "tier"}),

		IntegrityAlerts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kyc_catalog_integrity_alerts_total",
			Help: "Catalog integrity violations detected at classification time",
		}, []string{"kind"}),

		Duration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "kyc_classification_duration_seconds",
			Help:    "Duration of a full classification against one catalog snapshot",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
	}
}

// IncrementOutcome records a classification outcome.
func (m *Metrics) IncrementOutcome(outcome, tier string) {
	if m != nil {
		m.Outcomes.WithLabelValues(outcome, tier).Inc()
	}
}

func (m *Metrics) IncrementIntegrityAlert(kind string) {
	if m != nil {
		m.IntegrityAlerts.WithLabelValues(kind).Inc()
	}
}

// ObserveDuration records classification latency.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveDuration(start time.Time) {
	if m != nil {
		m.Duration.Observe(time.Since(start).Seconds())
	}
}
