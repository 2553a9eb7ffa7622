package govern

import (
	"context"
	"errors"
	"testing"
	"time"

	"tailor-hq/loom/pkg/govern/breaker"
	"tailor-hq/loom/pkg/govern/budget"
	"tailor-hq/loom/pkg/govern/quota"
)

func newTestGovernor(t *testing.T, cfg Config) *Governor {
	t.Helper()
	g, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return g
}

func TestGovernor_AuthorizeHappyPath(t *testing.T) {
	g := newTestGovernor(t, Config{
		Dependencies: map[string]DependencyConfig{
			"openai": {Quota: quota.Config{PerMinute: 10, Daily: 100}},
		},
	})

	permit, err := g.Authorize(context.Background(), "openai")
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if permit == nil {
		t.Fatal("expected a permit")
	}
	if permit.Dependency != "openai" {
		t.Errorf("permit dependency = %q, want openai", permit.Dependency)
	}

	st, err := g.Stats("openai")
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if st.UsedThisMinute != 1 {
		t.Errorf("used this minute = %d, want 1", st.UsedThisMinute)
	}
	if st.BreakerState != "closed" {
		t.Errorf("breaker state = %q, want closed", st.BreakerState)
	}
}

func TestGovernor_AuthorizeUnknownDependency(t *testing.T) {
	g := newTestGovernor(t, Config{})

	_, err := g.Authorize(context.Background(), "nope")
	if !errors.Is(err, ErrUnknownDependency) {
		t.Errorf("err = %v, want ErrUnknownDependency", err)
	}
	if _, ok := AsRejected(err); ok {
		t.Error("unknown dependency must not look like a governed rejection")
	}
}

func TestGovernor_RejectsWhenCircuitOpen(t *testing.T) {
	g := newTestGovernor(t, Config{
		Dependencies: map[string]DependencyConfig{
			"crawler": {
				Quota:   quota.Config{PerMinute: 10, Daily: 100},
				Breaker: breaker.Config{FailureThreshold: 2, OpenTimeout: time.Minute},
			},
		},
	})

	g.Report("crawler", Outcome{Success: false})
	g.Report("crawler", Outcome{Success: false})

	_, err := g.Authorize(context.Background(), "crawler")
	rejected, ok := AsRejected(err)
	if !ok {
		t.Fatalf("err = %v, want RejectedError", err)
	}
	if rejected.Reason != ReasonCircuitOpen {
		t.Errorf("reason = %q, want circuit_open", rejected.Reason)
	}
	if !errors.Is(err, ErrCircuitOpen) {
		t.Error("rejection should unwrap to ErrCircuitOpen")
	}
	if rejected.RetryAfter <= 0 {
		t.Errorf("retry after = %s, want positive", rejected.RetryAfter)
	}

	// The circuit gate runs before quota, so no slot was consumed.
	st, _ := g.Stats("crawler")
	if st.UsedThisMinute != 0 {
		t.Errorf("used this minute = %d, want 0", st.UsedThisMinute)
	}
}

func TestGovernor_RejectsWhenQuotaExhausted(t *testing.T) {
	g := newTestGovernor(t, Config{
		Dependencies: map[string]DependencyConfig{
			"gmail": {
				Quota: quota.Config{
					PerMinute: 1,
					Daily:     quota.Unlimited,
					MaxWait:   5 * time.Millisecond,
				},
			},
		},
	})

	if _, err := g.Authorize(context.Background(), "gmail"); err != nil {
		t.Fatalf("first Authorize failed: %v", err)
	}

	_, err := g.Authorize(context.Background(), "gmail")
	rejected, ok := AsRejected(err)
	if !ok {
		t.Fatalf("err = %v, want RejectedError", err)
	}
	if rejected.Reason != ReasonQuotaExceeded {
		t.Errorf("reason = %q, want quota_exceeded", rejected.Reason)
	}
	if !errors.Is(err, quota.ErrQuotaExceeded) {
		t.Error("rejection should unwrap to quota.ErrQuotaExceeded")
	}
	if rejected.RetryAfter <= 0 {
		t.Errorf("retry after = %s, want positive", rejected.RetryAfter)
	}
}

func TestGovernor_CancellationIsNotARejection(t *testing.T) {
	g := newTestGovernor(t, Config{
		Dependencies: map[string]DependencyConfig{
			"gmail": {
				Quota: quota.Config{PerMinute: 1, Daily: quota.Unlimited, MaxWait: time.Minute},
			},
		},
	})

	if _, err := g.Authorize(context.Background(), "gmail"); err != nil {
		t.Fatalf("first Authorize failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := g.Authorize(ctx, "gmail")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want context.DeadlineExceeded", err)
	}
	if _, ok := AsRejected(err); ok {
		t.Error("cancellation must not be classified as a rejection")
	}
}

func TestGovernor_BudgetHardStopRejects(t *testing.T) {
	g := newTestGovernor(t, Config{
		Dependencies: map[string]DependencyConfig{
			"openai": {
				Quota:                quota.Config{PerMinute: 10, Daily: 100},
				EstimatedCostPerCall: 0.05,
			},
		},
		Budget: budget.Config{Ceiling: 1.00, EnforceHardStop: true},
	})

	g.Report("openai", Outcome{Success: true, Cost: 1.10})

	_, err := g.Authorize(context.Background(), "openai")
	rejected, ok := AsRejected(err)
	if !ok {
		t.Fatalf("err = %v, want RejectedError", err)
	}
	if rejected.Reason != ReasonBudgetExceeded {
		t.Errorf("reason = %q, want budget_exceeded", rejected.Reason)
	}
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Error("rejection should unwrap to ErrBudgetExceeded")
	}
	if rejected.Overrun < 0.09 || rejected.Overrun > 0.11 {
		t.Errorf("overrun = %.2f, want ~0.10", rejected.Overrun)
	}

	// The quota slot consumed before the budget check is not refunded.
	st, _ := g.Stats("openai")
	if st.UsedThisMinute != 1 {
		t.Errorf("used this minute = %d, want 1", st.UsedThisMinute)
	}
}

func TestGovernor_BudgetAdvisoryWithoutHardStop(t *testing.T) {
	g := newTestGovernor(t, Config{
		Dependencies: map[string]DependencyConfig{
			"openai": {
				Quota:                quota.Config{PerMinute: 10, Daily: 100},
				EstimatedCostPerCall: 0.05,
			},
		},
		Budget: budget.Config{Ceiling: 1.00, EnforceHardStop: false},
	})

	g.Report("openai", Outcome{Success: true, Cost: 5.00})

	if _, err := g.Authorize(context.Background(), "openai"); err != nil {
		t.Errorf("advisory budget must not reject, got %v", err)
	}
}

func TestGovernor_ReportFeedsBreakerAndBudget(t *testing.T) {
	g := newTestGovernor(t, Config{
		Dependencies: map[string]DependencyConfig{
			"openai": {
				Quota:   quota.Config{PerMinute: 10, Daily: 100},
				Breaker: breaker.Config{FailureThreshold: 3},
			},
		},
		Budget: budget.Config{Ceiling: 100},
	})

	g.Report("openai", Outcome{Success: false, Cost: 0.03})
	g.Report("openai", Outcome{Success: false, Cost: 0.03})

	st, _ := g.Stats("openai")
	if st.ConsecutiveFailures != 2 {
		t.Errorf("consecutive failures = %d, want 2", st.ConsecutiveFailures)
	}
	if st.Spent < 0.059 || st.Spent > 0.061 {
		t.Errorf("spent = %.3f, want 0.06", st.Spent)
	}

	// Failed calls still cost money; a later success resets the streak.
	g.Report("openai", Outcome{Success: true, Cost: 0.03, Latency: 250 * time.Millisecond})
	st, _ = g.Stats("openai")
	if st.ConsecutiveFailures != 0 {
		t.Errorf("consecutive failures = %d, want 0 after success", st.ConsecutiveFailures)
	}
	if st.Spent < 0.089 || st.Spent > 0.091 {
		t.Errorf("spent = %.3f, want 0.09", st.Spent)
	}
}

func TestGovernor_ReportUnknownDependencyIsNoop(t *testing.T) {
	g := newTestGovernor(t, Config{})

	// Must not panic or invent state.
	g.Report("ghost", Outcome{Success: true, Cost: 1})

	if len(g.StatsAll()) != 0 {
		t.Error("reporting an unknown dependency must not create state")
	}
}

func TestGovernor_HalfOpenTrialReleasedOnQuotaRejection(t *testing.T) {
	g := newTestGovernor(t, Config{
		Dependencies: map[string]DependencyConfig{
			"crawler": {
				Quota:   quota.Config{PerMinute: 0, Daily: 100, MaxWait: time.Millisecond},
				Breaker: breaker.Config{FailureThreshold: 1, OpenTimeout: 10 * time.Millisecond},
			},
		},
	})

	g.Report("crawler", Outcome{Success: false})
	time.Sleep(20 * time.Millisecond)

	// The half-open trial is claimed, then abandoned when the disabled
	// quota refuses. The trial slot must free for the next caller.
	for i := 0; i < 2; i++ {
		_, err := g.Authorize(context.Background(), "crawler")
		rejected, ok := AsRejected(err)
		if !ok {
			t.Fatalf("attempt %d: err = %v, want RejectedError", i, err)
		}
		if rejected.Reason != ReasonQuotaExceeded {
			t.Fatalf("attempt %d: reason = %q, want quota_exceeded", i, rejected.Reason)
		}
	}
}

func TestGovernor_StatsAllSorted(t *testing.T) {
	g := newTestGovernor(t, Config{
		Dependencies: map[string]DependencyConfig{
			"openai":  {Quota: quota.Config{PerMinute: 10, Daily: 100}},
			"gmail":   {Quota: quota.Config{PerMinute: 5, Daily: 50}},
			"crawler": {Quota: quota.Config{PerMinute: 2, Daily: 20}},
		},
	})

	stats := g.StatsAll()
	if len(stats) != 3 {
		t.Fatalf("len = %d, want 3", len(stats))
	}
	want := []string{"crawler", "gmail", "openai"}
	for i, name := range want {
		if stats[i].Dependency != name {
			t.Errorf("stats[%d] = %q, want %q", i, stats[i].Dependency, name)
		}
	}
}

func TestGovernor_SnapshotRecords(t *testing.T) {
	g := newTestGovernor(t, Config{
		Dependencies: map[string]DependencyConfig{
			"openai": {Quota: quota.Config{PerMinute: 10, Daily: quota.Unlimited}},
		},
		Budget: budget.Config{Ceiling: 100},
	})

	if _, err := g.Authorize(context.Background(), "openai"); err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	g.Report("openai", Outcome{Success: true, Cost: 0.25})

	records := g.Snapshot()
	if len(records) != 1 {
		t.Fatalf("len = %d, want 1", len(records))
	}
	rec := records[0]
	if rec.Name != "openai" {
		t.Errorf("name = %q, want openai", rec.Name)
	}
	if rec.LimitPerMinute != 10 {
		t.Errorf("limit per minute = %d, want 10", rec.LimitPerMinute)
	}
	if rec.DailyLimit != -1 {
		t.Errorf("daily limit = %d, want -1 for unlimited", rec.DailyLimit)
	}
	if rec.WindowCount != 1 {
		t.Errorf("window count = %d, want 1", rec.WindowCount)
	}
	if rec.BreakerState != "closed" {
		t.Errorf("breaker state = %q, want closed", rec.BreakerState)
	}
	if rec.Spent != 0.25 {
		t.Errorf("spent = %.2f, want 0.25", rec.Spent)
	}
	if rec.TakenAt.IsZero() {
		t.Error("taken at must be set")
	}
}

func TestGovernor_InvalidConfigFailsConstruction(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"negative per-minute limit", Config{
			Dependencies: map[string]DependencyConfig{
				"bad": {Quota: quota.Config{PerMinute: -1}},
			},
		}},
		{"negative estimated cost", Config{
			Dependencies: map[string]DependencyConfig{
				"bad": {EstimatedCostPerCall: -0.5},
			},
		}},
		{"empty dependency name", Config{
			Dependencies: map[string]DependencyConfig{
				"": {},
			},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Error("expected construction error")
			}
		})
	}
}
