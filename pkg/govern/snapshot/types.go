package snapshot

import (
	"context"
	"time"
)

// Record is the persisted view of one dependency's governance state at
// a single instant.
type Record struct {
	// Name is the dependency name.
	Name string `json:"name"`

	// LimitPerMinute is the configured per-minute quota. -1 when
	// unlimited.
	LimitPerMinute int64 `json:"limit_per_minute"`

	// DailyLimit is the configured daily quota. -1 when unlimited.
	DailyLimit int64 `json:"daily_limit"`

	// WindowCount is the number of admissions in the trailing
	// 60-second window.
	WindowCount int64 `json:"window_count"`

	// DailyCount is the number of admissions this UTC day.
	DailyCount int64 `json:"daily_count"`

	// BreakerState is the circuit breaker state name.
	BreakerState string `json:"breaker_state"`

	// ConsecutiveFailures is the breaker's current failure streak.
	ConsecutiveFailures int `json:"consecutive_failures"`

	// Spent is the cumulative cost charged to this dependency in USD.
	Spent float64 `json:"spent"`

	// TakenAt is when the snapshot was collected.
	TakenAt time.Time `json:"taken_at"`
}

// Source produces the current governance state, one record per
// dependency. The call governor implements this.
type Source interface {
	Snapshot() []*Record
}

// Backend stores snapshot records. Implementations must be safe for
// concurrent use.
type Backend interface {
	// Save persists a batch of records collected at the same instant.
	Save(ctx context.Context, records []*Record) error

	// Latest returns the most recent record for a dependency, or nil
	// when none exists.
	Latest(ctx context.Context, name string) (*Record, error)

	// List returns the most recent record for every dependency,
	// ordered by name.
	List(ctx context.Context) ([]*Record, error)

	// Prune removes records taken before the cutoff and returns how
	// many were deleted.
	Prune(ctx context.Context, olderThan time.Time) (int, error)

	// Close releases held resources. The backend must not be used
	// afterwards.
	Close() error
}
