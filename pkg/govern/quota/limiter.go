package quota

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// windowLength is the span of the sliding per-minute window.
const windowLength = time.Minute

// maxPollInterval caps how long a waiter sleeps between admission
// attempts, so a mis-estimated retry hint cannot strand it.
const maxPollInterval = 250 * time.Millisecond

// Limiter admits calls to one external dependency, enforcing a sliding
// per-minute window and a UTC-daily counter. See the package
// documentation for the admission algorithm.
type Limiter struct {
	name string
	cfg  Config

	mu         sync.Mutex
	window     []time.Time // admission timestamps, oldest first
	dailyCount int64
	dayStart   time.Time // start of the current UTC day

	// now is swapped out by tests for deterministic clocks.
	now func() time.Time
}

// NewLimiter creates a limiter for the named dependency. The
// configuration is validated; negative limits are rejected here rather
// than at call time.
func NewLimiter(name string, cfg Config) (*Limiter, error) {
	if name == "" {
		return nil, fmt.Errorf("limiter name cannot be empty")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("limiter %q: %w", name, err)
	}
	if cfg.MaxWait == 0 {
		cfg.MaxWait = DefaultMaxWait
	}

	l := &Limiter{
		name: name,
		cfg:  cfg,
		now:  time.Now,
	}
	l.dayStart = utcDayStart(l.now())
	return l, nil
}

// Name returns the dependency name this limiter guards.
func (l *Limiter) Name() string {
	return l.name
}

// Acquire blocks until a slot is admitted, the limiter's MaxWait
// elapses, or ctx is cancelled. On success the returned Permit records
// the admission; the slot is consumed and never refunded.
//
// A wait that exceeds MaxWait returns an *ExceededError wrapping
// ErrQuotaExceeded. Cancellation returns ctx.Err() directly and leaves
// no counter residue. A zero-configured limit fails fast with
// ErrDependencyDisabled, without waiting.
func (l *Limiter) Acquire(ctx context.Context) (*Permit, error) {
	if l.cfg.Passthrough {
		return &Permit{Dependency: l.name, AdmittedAt: l.now()}, nil
	}
	if err := l.disabledErr(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	deadline := l.now().Add(l.cfg.MaxWait)

	for {
		l.mu.Lock()
		now := l.now()
		if l.tryAdmitLocked(now) {
			l.mu.Unlock()
			return &Permit{Dependency: l.name, AdmittedAt: now}, nil
		}
		wait, dimension := l.retryAfterLocked(now)
		l.mu.Unlock()

		remaining := deadline.Sub(now)
		// Waiting is futile once the earliest possible slot lies
		// beyond the deadline.
		if remaining <= 0 || wait > remaining {
			return nil, &ExceededError{
				Dependency: l.name,
				Dimension:  dimension,
				RetryAfter: wait,
				Err:        ErrQuotaExceeded,
			}
		}

		sleep := wait
		if sleep > maxPollInterval {
			sleep = maxPollInterval
		}
		if sleep < time.Millisecond {
			sleep = time.Millisecond
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// TryAcquire performs a single check-and-increment attempt and returns
// immediately. It reports whether a slot was admitted.
func (l *Limiter) TryAcquire() bool {
	if l.cfg.Passthrough {
		return true
	}
	if l.cfg.PerMinute == 0 || l.cfg.Daily == 0 {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tryAdmitLocked(l.now())
}

// Stats returns a point-in-time view of the limiter's counters. Stale
// window entries are pruned first, so the numbers reflect the current
// instant.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.rollDayLocked(now)
	l.pruneLocked(now)

	s := Stats{
		Dependency:     l.name,
		UsedThisMinute: int64(len(l.window)),
		UsedToday:      l.dailyCount,
		DailyResetAt:   l.dayStart.Add(24 * time.Hour),
	}

	if l.cfg.PerMinute == Unlimited {
		s.RemainingThisMinute = -1
	} else {
		s.RemainingThisMinute = maxInt64(0, l.cfg.PerMinute-s.UsedThisMinute)
	}
	if l.cfg.Daily == Unlimited {
		s.RemainingToday = -1
	} else {
		s.RemainingToday = maxInt64(0, l.cfg.Daily-s.UsedToday)
	}
	if len(l.window) > 0 {
		s.WindowResetAt = l.window[0].Add(windowLength)
	}
	return s
}

// Reset clears the window and the daily counter. This is an
// administrative operation for tests and operational recovery; normal
// call flow never resets.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.window = l.window[:0]
	l.dailyCount = 0
	l.dayStart = utcDayStart(l.now())
}

// tryAdmitLocked is the single admission primitive: prune, roll the
// day, check both dimensions, and record, all under the lock. Both the
// blocking and the non-blocking entry points go through here, so the
// check and the increment can never be observed separately.
func (l *Limiter) tryAdmitLocked(now time.Time) bool {
	l.rollDayLocked(now)
	l.pruneLocked(now)

	if l.cfg.PerMinute != Unlimited && int64(len(l.window)) >= l.cfg.PerMinute {
		return false
	}
	if l.cfg.Daily != Unlimited && l.dailyCount >= l.cfg.Daily {
		return false
	}

	l.window = append(l.window, now)
	l.dailyCount++
	return true
}

// pruneLocked drops window entries older than windowLength.
func (l *Limiter) pruneLocked(now time.Time) {
	cutoff := now.Add(-windowLength)
	i := 0
	for i < len(l.window) && !l.window[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.window = append(l.window[:0], l.window[i:]...)
	}
}

// rollDayLocked resets the daily counter when an admission attempt
// first observes a UTC day boundary.
func (l *Limiter) rollDayLocked(now time.Time) {
	day := utcDayStart(now)
	if day.After(l.dayStart) {
		l.dailyCount = 0
		l.dayStart = day
	}
}

// retryAfterLocked estimates how long until the binding dimension could
// free a slot. The daily limit dominates: no window slot helps while
// the day's budget is spent.
func (l *Limiter) retryAfterLocked(now time.Time) (time.Duration, string) {
	if l.cfg.Daily != Unlimited && l.dailyCount >= l.cfg.Daily {
		return l.dayStart.Add(24 * time.Hour).Sub(now), "daily"
	}
	if l.cfg.PerMinute != Unlimited && int64(len(l.window)) >= l.cfg.PerMinute {
		return l.window[0].Add(windowLength).Sub(now), "per_minute"
	}
	return 0, ""
}

// disabledErr reports a zero-configured limit as a fast failure.
func (l *Limiter) disabledErr() error {
	dimension := ""
	switch {
	case l.cfg.PerMinute == 0:
		dimension = "per_minute"
	case l.cfg.Daily == 0:
		dimension = "daily"
	default:
		return nil
	}
	return &ExceededError{
		Dependency: l.name,
		Dimension:  dimension,
		Err:        ErrDependencyDisabled,
	}
}

// utcDayStart truncates t to midnight UTC.
func utcDayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
