package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the case workflow.
type Metrics struct {
	Transitions *prometheus.CounterVec

	// Submissions by outcome (sent, resent, failed)
	Submissions *prometheus.CounterVec

	// Wall time from dispatch until every applicable check is terminal
	EnrichmentDuration prometheus.Histogram

	LateResults *prometheus.CounterVec

	ConflictRetries prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kyc_case_transitions_total",
			Help: "Case status transitions",
		}, []string{"from", "to"}),

		Submissions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kyc_submissions_total",
			Help: "Downstream submissions by outcome",
		}, []string{"outcome"}),

		EnrichmentDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "kyc_enrichment_duration_seconds",
			Help:    "Time from enrichment dispatch until all applicable checks are terminal",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),

		LateResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kyc_case_late_results_total",
			Help: "Provider results that arrived after their attempt was abandoned",
		}, []string{"outcome"}),

		ConflictRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kyc_case_conflict_retries_total",
			Help: "Case writes retried after an optimistic concurrency conflict",
		}),
	}
}

func (m *Metrics) IncrementTransition(from, to string) {
	if m != nil {
		m.Transitions.WithLabelValues(from, to).Inc()
	}
}

func (m *Metrics) IncrementSubmission(outcome string) {
	if m != nil {
		m.Submissions.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ObserveEnrichment(start time.Time) {
	if m != nil {
		m.EnrichmentDuration.Observe(time.Since(start).Seconds())
	}
}

// IncrementLateResult records whether a late result was applied or discarded.
func (m *Metrics) IncrementLateResult(outcome string) {
	if m != nil {
		m.LateResults.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementConflictRetry() {
	if m != nil {
		m.ConflictRetries.Inc()
	}
}
