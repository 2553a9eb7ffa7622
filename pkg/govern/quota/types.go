package quota

import (
	"math"
	"time"
)

// Unlimited disables a limit dimension. A Limiter configured with
// PerMinute: Unlimited performs no per-minute check at all; likewise
// for Daily.
const Unlimited int64 = math.MaxInt64

// DefaultMaxWait bounds how long Acquire waits for a slot when the
// configuration does not say otherwise.
const DefaultMaxWait = 60 * time.Second

// Config contains the admission limits for a single dependency.
type Config struct {
	// PerMinute is the maximum number of admissions in any trailing
	// 60-second window. Zero disables the dependency entirely
	// (Acquire fails fast). Use Unlimited to skip the check.
	PerMinute int64

	// Daily is the maximum number of admissions per UTC calendar day.
	// Zero disables the dependency entirely. Use Unlimited to skip
	// the check.
	Daily int64

	// MaxWait is the per-call ceiling on how long Acquire waits for a
	// slot. Defaults to DefaultMaxWait when zero.
	MaxWait time.Duration

	// Passthrough admits every call immediately without recording.
	// Set when rate limiting is globally disabled.
	Passthrough bool
}

// Permit is proof of admission for one external call. A consumed permit
// is never refunded: real provider rate limits count attempted calls,
// not successful ones.
type Permit struct {
	// Dependency is the name the permit was issued for.
	Dependency string

	// AdmittedAt is when admission succeeded.
	AdmittedAt time.Time
}

// Stats is a point-in-time view of a limiter's counters.
type Stats struct {
	// Dependency is the limiter's name.
	Dependency string

	// UsedThisMinute is the number of admissions in the trailing
	// 60-second window.
	UsedThisMinute int64

	// RemainingThisMinute is how many admissions the window still
	// permits. -1 when the per-minute dimension is unlimited.
	RemainingThisMinute int64

	// UsedToday is the number of admissions since the start of the
	// current UTC day.
	UsedToday int64

	// RemainingToday is how many admissions the daily limit still
	// permits. -1 when the daily dimension is unlimited.
	RemainingToday int64

	// WindowResetAt is when the oldest window entry expires and a
	// per-minute slot frees. Zero when the window is empty.
	WindowResetAt time.Time

	// DailyResetAt is the next UTC midnight, when the daily counter
	// rolls over.
	DailyResetAt time.Time
}
