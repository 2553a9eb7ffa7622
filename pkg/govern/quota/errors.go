package quota

import (
	"errors"
	"fmt"
	"time"
)

// Error sentinels for admission failures. Both are transient: capacity
// frees as the window slides or the UTC day rolls over. Configuration
// mistakes (negative limits) are rejected by Config.Validate at startup
// and never surface here.
var (
	// ErrQuotaExceeded is returned when no slot freed within the wait
	// ceiling, or immediately by TryAcquire when no slot is available.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrDependencyDisabled is returned when a limit dimension is
	// configured to zero, switching the dependency off entirely.
	ErrDependencyDisabled = errors.New("dependency disabled by configuration")
)

// ExceededError reports a failed admission with enough context for the
// caller to decide when a retry could succeed.
type ExceededError struct {
	// Dependency is the limiter's name.
	Dependency string

	// Dimension is the limit that rejected the call ("per_minute" or
	// "daily").
	Dimension string

	// RetryAfter estimates how long until a slot frees. Zero when the
	// dependency is disabled.
	RetryAfter time.Duration

	// Err is ErrQuotaExceeded or ErrDependencyDisabled.
	Err error
}

// Error implements the error interface.
func (e *ExceededError) Error() string {
	if errors.Is(e.Err, ErrDependencyDisabled) {
		return fmt.Sprintf("dependency %q is disabled (%s limit is zero)", e.Dependency, e.Dimension)
	}
	if e.RetryAfter > 0 {
		return fmt.Sprintf("dependency %q %s quota exceeded (retry after %s)",
			e.Dependency, e.Dimension, e.RetryAfter.Round(time.Millisecond))
	}
	return fmt.Sprintf("dependency %q %s quota exceeded", e.Dependency, e.Dimension)
}

// Unwrap returns the sentinel for errors.Is checks.
func (e *ExceededError) Unwrap() error {
	return e.Err
}

// Validate rejects configurations that can never admit correctly.
// Negative limits are a programming or deployment mistake, not a
// runtime condition, so they fail at construction time.
func (c Config) Validate() error {
	if c.PerMinute < 0 {
		return fmt.Errorf("per-minute limit must not be negative, got %d", c.PerMinute)
	}
	if c.Daily < 0 {
		return fmt.Errorf("daily limit must not be negative, got %d", c.Daily)
	}
	if c.MaxWait < 0 {
		return fmt.Errorf("max wait must not be negative, got %s", c.MaxWait)
	}
	return nil
}
