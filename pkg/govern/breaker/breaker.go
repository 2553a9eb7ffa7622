package breaker

import (
	"fmt"
	"sync"
	"time"
)

// State identifies the breaker's position in its state machine.
type State int

const (
	// StateClosed admits all traffic and counts consecutive failures.
	StateClosed State = iota

	// StateOpen refuses all traffic until OpenTimeout elapses.
	StateOpen

	// StateHalfOpen admits one trial call at a time while probing
	// recovery.
	StateHalfOpen
)

// String returns the lowercase state name used in logs and snapshots.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Config contains the thresholds governing state transitions.
type Config struct {
	// FailureThreshold is the number of consecutive failures that
	// opens a closed breaker. Default 5.
	FailureThreshold int

	// SuccessThreshold is the number of consecutive half-open
	// successes that closes the breaker. Default 1.
	SuccessThreshold int

	// OpenTimeout is how long the breaker stays open before a trial
	// call is admitted. Default 30s.
	OpenTimeout time.Duration
}

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 1
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = 30 * time.Second
	}
	return c
}

// Breaker is a circuit breaker for one external dependency. The zero
// value is not usable; create breakers with New.
type Breaker struct {
	name string
	cfg  Config

	mu             sync.Mutex
	state          State
	failures       int // consecutive failures (closed state)
	successes      int // consecutive successes (half-open state)
	trialInFlight  bool
	lastTransition time.Time

	// now is swapped out by tests for deterministic clocks.
	now func() time.Time
}

// New creates a closed breaker for the named dependency.
func New(name string, cfg Config) *Breaker {
	b := &Breaker{
		name:  name,
		cfg:   cfg.withDefaults(),
		state: StateClosed,
		now:   time.Now,
	}
	b.lastTransition = b.now()
	return b
}

// Name returns the dependency name this breaker guards.
func (b *Breaker) Name() string {
	return b.name
}

// Allow reports whether a call may be attempted right now. Checking an
// open breaker whose timeout has elapsed moves it to half-open and
// claims the single trial slot for the caller; every other concurrent
// caller is refused until that trial resolves via RecordSuccess or
// RecordFailure.
func (b *Breaker) Allow() bool {
	allowed, _ := b.Admit()
	return allowed
}

// Admit is Allow plus whether this caller claimed the half-open trial
// slot. A claimed trial must be resolved by RecordSuccess or
// RecordFailure, or handed back with ReleaseTrial when the call is
// abandoned before reaching the dependency.
func (b *Breaker) Admit() (allowed, trial bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true, false

	case StateOpen:
		if b.now().Sub(b.lastTransition) >= b.cfg.OpenTimeout {
			b.transitionLocked(StateHalfOpen)
			b.successes = 0
			b.trialInFlight = true
			return true, true
		}
		return false, false

	case StateHalfOpen:
		if !b.trialInFlight {
			b.trialInFlight = true
			return true, true
		}
		return false, false

	default:
		return false, false
	}
}

// RecordSuccess reports a successful call. In the closed state it
// resets the consecutive-failure count; in half-open it resolves the
// trial and closes the breaker once SuccessThreshold consecutive
// successes accumulate. A success reported after the breaker has
// already reopened is ignored.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failures = 0

	case StateHalfOpen:
		b.trialInFlight = false
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			b.transitionLocked(StateClosed)
			b.failures = 0
			b.successes = 0
		}
	}
}

// RecordFailure reports a failed call. In the closed state it counts
// toward FailureThreshold; in half-open a single failure reopens the
// breaker immediately and restarts the cooldown timer.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.transitionLocked(StateOpen)
		}

	case StateHalfOpen:
		b.trialInFlight = false
		b.successes = 0
		b.transitionLocked(StateOpen)
	}
}

// RetryAfter returns how long until an open breaker would admit a
// trial call. Zero in any other state.
func (b *Breaker) RetryAfter() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateOpen {
		return 0
	}
	remaining := b.cfg.OpenTimeout - b.now().Sub(b.lastTransition)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ReleaseTrial returns a claimed half-open trial slot without counting
// a success or failure. Callers use it when an admitted call is
// abandoned before reaching the dependency, so the next caller can
// claim the trial instead of waiting forever.
func (b *Breaker) ReleaseTrial() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.trialInFlight = false
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// ConsecutiveFailures returns the current consecutive-failure count.
func (b *Breaker) ConsecutiveFailures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// transitionLocked moves to a new state and stamps the transition time.
// Caller must hold the lock.
func (b *Breaker) transitionLocked(to State) {
	b.state = to
	b.lastTransition = b.now()
}
