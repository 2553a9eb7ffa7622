package budget

import (
	"fmt"
	"sync"
)

// DefaultWarnThreshold is the fraction of the ceiling at which
// CheckAvailable starts answering DecisionWarn.
const DefaultWarnThreshold = 0.8

// Decision is the advisory outcome of a budget check.
type Decision int

const (
	// DecisionOK means the estimated spend fits comfortably.
	DecisionOK Decision = iota

	// DecisionWarn means the estimated spend crosses the warn
	// threshold; the call may proceed but the operator should hear
	// about it.
	DecisionWarn

	// DecisionExceeded means the ceiling is (or would be) blown and
	// hard-stop enforcement is on; the call must not be attempted.
	DecisionExceeded
)

// String returns the lowercase decision name used in logs.
func (d Decision) String() string {
	switch d {
	case DecisionOK:
		return "ok"
	case DecisionWarn:
		return "warn"
	case DecisionExceeded:
		return "exceeded"
	default:
		return fmt.Sprintf("unknown(%d)", int(d))
	}
}

// Config contains the spending policy.
type Config struct {
	// Ceiling is the maximum cumulative spend in USD. Zero or
	// negative means no budget is enforced.
	Ceiling float64

	// WarnThreshold is the fraction of the ceiling (0..1] at which
	// checks start warning. Defaults to DefaultWarnThreshold.
	WarnThreshold float64

	// EnforceHardStop refuses cost-bearing calls once the ceiling is
	// reached. When false the tracker only warns.
	EnforceHardStop bool
}

// Tracker is the process-wide cost accountant. All methods are safe
// for concurrent use.
type Tracker struct {
	cfg Config

	mu           sync.RWMutex
	spent        float64
	byDependency map[string]float64
}

// NewTracker creates a tracker with the given policy.
func NewTracker(cfg Config) *Tracker {
	if cfg.WarnThreshold <= 0 || cfg.WarnThreshold > 1 {
		cfg.WarnThreshold = DefaultWarnThreshold
	}
	return &Tracker{
		cfg:          cfg,
		byDependency: make(map[string]float64),
	}
}

// CheckAvailable answers whether a call with the given estimated cost
// should be attempted. The answer is advisory; Report remains
// authoritative either way.
func (t *Tracker) CheckAvailable(estimatedCost float64) Decision {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.cfg.Ceiling <= 0 {
		return DecisionOK
	}

	projected := t.spent + estimatedCost
	if t.cfg.EnforceHardStop && (t.spent >= t.cfg.Ceiling || projected > t.cfg.Ceiling) {
		return DecisionExceeded
	}
	if projected >= t.cfg.WarnThreshold*t.cfg.Ceiling {
		return DecisionWarn
	}
	return DecisionOK
}

// Report records the actual cost of a completed call against the named
// dependency. Negative costs are ignored; spend never decreases.
func (t *Tracker) Report(dependency string, actualCost float64) {
	if actualCost <= 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.spent += actualCost
	t.byDependency[dependency] += actualCost
}

// Spent returns the cumulative spend across all dependencies.
func (t *Tracker) Spent() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.spent
}

// SpentBy returns the cumulative spend for one dependency.
func (t *Tracker) SpentBy(dependency string) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.byDependency[dependency]
}

// Breakdown returns a copy of the per-dependency spend map.
func (t *Tracker) Breakdown() map[string]float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]float64, len(t.byDependency))
	for dep, amount := range t.byDependency {
		out[dep] = amount
	}
	return out
}

// Ceiling returns the configured ceiling.
func (t *Tracker) Ceiling() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cfg.Ceiling
}

// Overrun returns how far spend exceeds the ceiling, or zero while the
// budget holds. Used to tell the operator by how much the ceiling was
// hit, as opposed to a generic failure.
func (t *Tracker) Overrun() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.cfg.Ceiling <= 0 || t.spent <= t.cfg.Ceiling {
		return 0
	}
	return t.spent - t.cfg.Ceiling
}

// Reset zeroes all counters. This is a deliberate operator action, not
// part of the normal lifecycle: nothing in the call flow invokes it.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.spent = 0
	t.byDependency = make(map[string]float64)
}

// UpdateCeiling replaces the ceiling, typically after an operator
// raises the budget via a configuration reload.
func (t *Tracker) UpdateCeiling(ceiling float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cfg.Ceiling = ceiling
}
