package govern

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for the governance layer.
// All methods are safe on a nil receiver, so instrumentation is
// optional everywhere it is threaded through.
type Metrics struct {
	// Authorization decisions
	authorizations *prometheus.CounterVec
	rejections     *prometheus.CounterVec

	// Reported call outcomes
	outcomes    *prometheus.CounterVec
	callLatency *prometheus.HistogramVec

	// Budget position
	budgetSpent    prometheus.Gauge
	budgetSpentBy  *prometheus.GaugeVec
	budgetWarnings *prometheus.CounterVec

	// Breaker position (0=closed, 1=open, 2=half_open)
	breakerState *prometheus.GaugeVec
}

// NewMetrics creates a new Metrics instance with Prometheus collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		authorizations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loom_govern_authorizations_total",
				Help: "Total number of authorization decisions",
			},
			[]string{"dependency", "result"},
		),

		rejections: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loom_govern_rejections_total",
				Help: "Total number of rejected authorizations by reason",
			},
			[]string{"dependency", "reason"},
		),

		outcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loom_govern_call_outcomes_total",
				Help: "Total number of reported external call outcomes",
			},
			[]string{"dependency", "result"},
		),

		callLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "loom_govern_call_duration_seconds",
				Help:    "Reported external call latency in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~82s
			},
			[]string{"dependency"},
		),

		budgetSpent: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "loom_govern_budget_spent_dollars",
				Help: "Cumulative spend charged against the budget ceiling",
			},
		),

		budgetSpentBy: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "loom_govern_budget_spent_by_dependency_dollars",
				Help: "Cumulative spend per dependency",
			},
			[]string{"dependency"},
		),

		budgetWarnings: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loom_govern_budget_warnings_total",
				Help: "Total number of authorizations admitted past the warn threshold",
			},
			[]string{"dependency"},
		),

		breakerState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "loom_govern_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half_open)",
			},
			[]string{"dependency"},
		),
	}
}

// RecordAuthorization records an authorization decision.
func (m *Metrics) RecordAuthorization(dependency string, allowed bool) {
	if m == nil {
		return
	}
	result := "authorized"
	if !allowed {
		result = "rejected"
	}
	m.authorizations.WithLabelValues(dependency, result).Inc()
}

// RecordRejection records a rejection by reason.
func (m *Metrics) RecordRejection(dependency string, reason RejectReason) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(dependency, string(reason)).Inc()
}

// RecordOutcome records a reported call outcome.
func (m *Metrics) RecordOutcome(dependency string, success bool, latencySeconds float64) {
	if m == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	m.outcomes.WithLabelValues(dependency, result).Inc()
	if latencySeconds > 0 {
		m.callLatency.WithLabelValues(dependency).Observe(latencySeconds)
	}
}

// RecordBudgetWarning counts an admission past the warn threshold.
func (m *Metrics) RecordBudgetWarning(dependency string) {
	if m == nil {
		return
	}
	m.budgetWarnings.WithLabelValues(dependency).Inc()
}

// UpdateBudgetSpent updates the total and per-dependency spend gauges.
func (m *Metrics) UpdateBudgetSpent(dependency string, total, byDependency float64) {
	if m == nil {
		return
	}
	m.budgetSpent.Set(total)
	m.budgetSpentBy.WithLabelValues(dependency).Set(byDependency)
}

// UpdateBreakerState updates the breaker state gauge.
func (m *Metrics) UpdateBreakerState(dependency string, state float64) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(dependency).Set(state)
}
