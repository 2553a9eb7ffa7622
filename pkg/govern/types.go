package govern

import (
	"time"

	"tailor-hq/loom/pkg/govern/breaker"
	"tailor-hq/loom/pkg/govern/budget"
	"tailor-hq/loom/pkg/govern/quota"
)

// Outcome describes a completed external call for Report.
type Outcome struct {
	// Success is whether the call succeeded from the caller's point of
	// view. Failures feed the circuit breaker.
	Success bool

	// Cost is the actual cost of the call in USD. Zero for free calls.
	Cost float64

	// Latency is how long the call took. Optional, used for metrics.
	Latency time.Duration
}

// RejectReason classifies why Authorize refused a call.
type RejectReason string

const (
	// ReasonCircuitOpen means the dependency is judged unhealthy.
	// Retryable after the breaker's open timeout.
	ReasonCircuitOpen RejectReason = "circuit_open"

	// ReasonQuotaExceeded means no admission slot freed within the wait
	// ceiling. Retryable once the window slides or the day rolls over.
	ReasonQuotaExceeded RejectReason = "quota_exceeded"

	// ReasonBudgetExceeded means the spending ceiling is reached and
	// hard-stop enforcement is on. Not retryable without operator
	// action.
	ReasonBudgetExceeded RejectReason = "budget_exceeded"
)

// DependencyConfig bundles the per-dependency gate settings.
type DependencyConfig struct {
	// Quota holds the admission limits.
	Quota quota.Config

	// Breaker holds the circuit breaker thresholds.
	Breaker breaker.Config

	// EstimatedCostPerCall is the cost in USD assumed for the budget
	// advisory check before a call runs. Zero for free dependencies.
	EstimatedCostPerCall float64
}

// Config configures a Governor.
type Config struct {
	// Dependencies maps dependency names to their gate settings.
	Dependencies map[string]DependencyConfig

	// Budget holds the shared spending ceiling settings.
	Budget budget.Config

	// Metrics receives admission and outcome counters. Optional.
	Metrics *Metrics
}

// Stats is a point-in-time view of one dependency's governance state.
type Stats struct {
	Dependency          string    `json:"dependency"`
	UsedThisMinute      int64     `json:"used_this_minute"`
	RemainingThisMinute int64     `json:"remaining_this_minute"`
	UsedToday           int64     `json:"used_today"`
	RemainingToday      int64     `json:"remaining_today"`
	WindowResetAt       time.Time `json:"window_reset_at"`
	DailyResetAt        time.Time `json:"daily_reset_at"`
	BreakerState        string    `json:"breaker_state"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	Spent               float64   `json:"spent"`
}
