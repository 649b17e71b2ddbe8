package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for provider verification.
type Metrics struct {
	// Provider call latency by provider and outcome category
	AttemptLatency *prometheus.HistogramVec

	// Terminal check results by provider and status
	CheckResults *prometheus.CounterVec

	CacheHits *prometheus.CounterVec

	// 1 while a provider's circuit is open
	CircuitOpen *prometheus.GaugeVec

	LateResults *prometheus.CounterVec
}

// New creates a new Metrics instance with all verification metrics registered.
func New() *Metrics {
	return &Metrics{
		AttemptLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kyc_provider_attempt_duration_seconds",
			Help:    "Duration of provider check attempts by provider and outcome",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"provider", "outcome"}),

		CheckResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kyc_provider_checks_total",
			Help: "Terminal provider check results by provider and status",
		}, []string{"provider", "status"}),

		CacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kyc_provider_cache_hits_total",
			Help: "Provider checks served from the result cache",
		}, []string{"provider"}),

		CircuitOpen: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "kyc_provider_circuit_open",
			Help: "Whether the provider circuit breaker is open (1) or closed (0)",
		}, []string{"provider"}),

		LateResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kyc_provider_late_results_total",
			Help: "Provider results that arrived after their attempt was abandoned",
		}, []string{"provider"}),
	}
}

// ObserveAttempt records one provider call.
func (m *Metrics) ObserveAttempt(provider, outcome string, d time.Duration) {
	if m != nil {
		m.AttemptLatency.WithLabelValues(provider, outcome).Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementCheckResult(provider, status string) {
	if m != nil {
		m.CheckResults.WithLabelValues(provider, status).Inc()
	}
}

func (m *Metrics) IncrementCacheHit(provider string) {
	if m != nil {
		m.CacheHits.WithLabelValues(provider).Inc()
	}
}

func (m *Metrics) SetCircuitOpen(provider string, open bool) {
	if m == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	m.CircuitOpen.WithLabelValues(provider).Set(v)
}

func (m *Metrics) IncrementLateResult(provider string) {
	if m != nil {
		m.LateResults.WithLabelValues(provider).Inc()
	}
}
