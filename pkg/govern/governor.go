package govern

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tailor-hq/loom/pkg/govern/breaker"
	"tailor-hq/loom/pkg/govern/budget"
	"tailor-hq/loom/pkg/govern/quota"
	"tailor-hq/loom/pkg/govern/snapshot"
)

// Governor coordinates the circuit breaker, quota limiter, and budget
// tracker for every configured dependency.
//
// The Governor is the only surface pipeline stages talk to. They call
// Authorize before an external call and Report after it completes.
//
// # Example
//
//	gov, err := govern.New(govern.Config{
//	    Dependencies: map[string]govern.DependencyConfig{
//	        "openai": {
//	            Quota:                quota.Config{PerMinute: 20, Daily: 200},
//	            EstimatedCostPerCall: 0.03,
//	        },
//	    },
//	    Budget: budget.Config{Ceiling: 50, EnforceHardStop: true},
//	})
//
//	permit, err := gov.Authorize(ctx, "openai")
//	if err != nil {
//	    // Branch on the rejection reason
//	}
//	// ... perform the external call ...
//	gov.Report("openai", govern.Outcome{Success: true, Cost: 0.028})
type Governor struct {
	registry  *quota.Registry
	breakers  map[string]*breaker.Breaker
	tracker   *budget.Tracker
	estimates map[string]float64
	metrics   *Metrics
	logger    *slog.Logger
}

// New creates a Governor from the given configuration. Invalid quota
// settings (negative limits) fail here rather than at call time.
func New(cfg Config) (*Governor, error) {
	g := &Governor{
		registry:  quota.NewRegistry(),
		breakers:  make(map[string]*breaker.Breaker, len(cfg.Dependencies)),
		tracker:   budget.NewTracker(cfg.Budget),
		estimates: make(map[string]float64, len(cfg.Dependencies)),
		metrics:   cfg.Metrics,
		logger:    slog.Default().With("component", "govern"),
	}

	for name, dep := range cfg.Dependencies {
		if name == "" {
			return nil, fmt.Errorf("dependency name cannot be empty")
		}
		if dep.EstimatedCostPerCall < 0 {
			return nil, fmt.Errorf("dependency %q: estimated cost must not be negative", name)
		}
		if _, err := g.registry.Ensure(name, dep.Quota); err != nil {
			return nil, fmt.Errorf("dependency %q: %w", name, err)
		}
		g.breakers[name] = breaker.New(name, dep.Breaker)
		g.estimates[name] = dep.EstimatedCostPerCall
	}

	return g, nil
}

// Authorize decides whether a call to the named dependency may proceed.
// It consults the circuit breaker, then acquires a quota slot (which
// may wait until one frees, the context is cancelled, or the configured
// wait ceiling elapses), then checks the budget advisory.
//
// On refusal it returns a RejectedError whose Reason tells the caller
// which gate refused. Context cancellation while waiting for quota is
// returned as the context's own error, not a rejection.
//
// On success the returned permit obliges the caller to Report the
// outcome once the call completes. The quota slot is consumed either
// way.
func (g *Governor) Authorize(ctx context.Context, dependency string) (*quota.Permit, error) {
	limiter, ok := g.registry.Get(dependency)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDependency, dependency)
	}
	br := g.breakers[dependency]

	allowed, trial := br.Admit()
	if !allowed {
		return nil, g.reject(&RejectedError{
			Dependency: dependency,
			Reason:     ReasonCircuitOpen,
			RetryAfter: br.RetryAfter(),
			Err:        ErrCircuitOpen,
		})
	}

	permit, err := limiter.Acquire(ctx)
	if err != nil {
		// A claimed half-open trial must be handed back when the call
		// never reaches the dependency.
		if trial {
			br.ReleaseTrial()
		}

		var exceeded *quota.ExceededError
		if errors.As(err, &exceeded) {
			return nil, g.reject(&RejectedError{
				Dependency: dependency,
				Reason:     ReasonQuotaExceeded,
				RetryAfter: exceeded.RetryAfter,
				Err:        err,
			})
		}
		// Context cancellation or deadline, pass through unchanged.
		return nil, err
	}

	// The quota slot stays consumed even when the budget refuses:
	// admission happened, and external limits count attempts.
	switch g.tracker.CheckAvailable(g.estimates[dependency]) {
	case budget.DecisionExceeded:
		if trial {
			br.ReleaseTrial()
		}
		return nil, g.reject(&RejectedError{
			Dependency: dependency,
			Reason:     ReasonBudgetExceeded,
			Overrun:    g.tracker.Overrun(),
			Err:        ErrBudgetExceeded,
		})

	case budget.DecisionWarn:
		g.metrics.RecordBudgetWarning(dependency)
		g.logger.Warn("budget warn threshold crossed",
			"dependency", dependency,
			"spent", g.tracker.Spent(),
			"ceiling", g.tracker.Ceiling(),
		)
	}

	g.metrics.RecordAuthorization(dependency, true)
	return permit, nil
}

// Report records the outcome of a completed call. Success and failure
// feed the circuit breaker; the actual cost is charged to the budget
// regardless of success, since providers bill attempts that errored
// mid-flight too.
func (g *Governor) Report(dependency string, outcome Outcome) {
	br, ok := g.breakers[dependency]
	if !ok {
		g.logger.Warn("outcome reported for unknown dependency",
			"dependency", dependency,
		)
		return
	}

	if outcome.Success {
		br.RecordSuccess()
	} else {
		br.RecordFailure()
	}
	g.tracker.Report(dependency, outcome.Cost)

	g.metrics.RecordOutcome(dependency, outcome.Success, outcome.Latency.Seconds())
	g.metrics.UpdateBreakerState(dependency, float64(br.State()))
	g.metrics.UpdateBudgetSpent(dependency, g.tracker.Spent(), g.tracker.SpentBy(dependency))
}

// Stats returns the current governance state for one dependency.
func (g *Governor) Stats(dependency string) (Stats, error) {
	limiter, ok := g.registry.Get(dependency)
	if !ok {
		return Stats{}, fmt.Errorf("%w: %q", ErrUnknownDependency, dependency)
	}
	return g.statsFor(limiter), nil
}

// StatsAll returns the current state for every dependency, ordered by
// name.
func (g *Governor) StatsAll() []Stats {
	limiters := g.registry.All()
	stats := make([]Stats, 0, len(limiters))
	for _, limiter := range limiters {
		stats = append(stats, g.statsFor(limiter))
	}
	return stats
}

// Budget returns the shared budget tracker, for operator surfaces that
// reset ceilings or inspect the breakdown.
func (g *Governor) Budget() *budget.Tracker {
	return g.tracker
}

// Snapshot implements snapshot.Source, producing one record per
// dependency for the persistence scheduler.
func (g *Governor) Snapshot() []*snapshot.Record {
	stats := g.StatsAll()
	now := time.Now().UTC()

	records := make([]*snapshot.Record, 0, len(stats))
	for _, st := range stats {
		limit := st.UsedThisMinute + st.RemainingThisMinute
		if st.RemainingThisMinute < 0 {
			limit = -1
		}
		daily := st.UsedToday + st.RemainingToday
		if st.RemainingToday < 0 {
			daily = -1
		}
		records = append(records, &snapshot.Record{
			Name:                st.Dependency,
			LimitPerMinute:      limit,
			DailyLimit:          daily,
			WindowCount:         st.UsedThisMinute,
			DailyCount:          st.UsedToday,
			BreakerState:        st.BreakerState,
			ConsecutiveFailures: st.ConsecutiveFailures,
			Spent:               st.Spent,
			TakenAt:             now,
		})
	}
	return records
}

func (g *Governor) statsFor(limiter *quota.Limiter) Stats {
	qs := limiter.Stats()
	br := g.breakers[qs.Dependency]

	return Stats{
		Dependency:          qs.Dependency,
		UsedThisMinute:      qs.UsedThisMinute,
		RemainingThisMinute: qs.RemainingThisMinute,
		UsedToday:           qs.UsedToday,
		RemainingToday:      qs.RemainingToday,
		WindowResetAt:       qs.WindowResetAt,
		DailyResetAt:        qs.DailyResetAt,
		BreakerState:        br.State().String(),
		ConsecutiveFailures: br.ConsecutiveFailures(),
		Spent:               g.tracker.SpentBy(qs.Dependency),
	}
}

// reject logs a refusal with its counters and updates metrics before
// handing the error back.
func (g *Governor) reject(rejected *RejectedError) error {
	g.metrics.RecordAuthorization(rejected.Dependency, false)
	g.metrics.RecordRejection(rejected.Dependency, rejected.Reason)

	attrs := []any{
		"dependency", rejected.Dependency,
		"reason", string(rejected.Reason),
	}
	if st, err := g.Stats(rejected.Dependency); err == nil {
		attrs = append(attrs,
			"used_this_minute", st.UsedThisMinute,
			"used_today", st.UsedToday,
			"breaker_state", st.BreakerState,
			"spent", st.Spent,
		)
	}
	if rejected.RetryAfter > 0 {
		attrs = append(attrs, "retry_after", rejected.RetryAfter)
	}
	if rejected.Reason == ReasonBudgetExceeded {
		attrs = append(attrs, "overrun", rejected.Overrun, "ceiling", g.tracker.Ceiling())
	}
	g.logger.Warn("call rejected", attrs...)

	return rejected
}
