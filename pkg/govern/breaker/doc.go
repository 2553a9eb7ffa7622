// Package breaker implements a per-dependency circuit breaker for
// failing external services.
//
// # State Machine
//
// The breaker moves between three states:
//
//   - Closed: normal traffic. Consecutive failures are counted; any
//     success resets the count. Reaching FailureThreshold opens the
//     breaker.
//   - Open: all calls are refused without being attempted. After
//     OpenTimeout has elapsed, the next admission attempt (and only
//     that one) moves the breaker to half-open. There is no background
//     timer; the transition is evaluated on admission.
//   - HalfOpen: exactly one trial call is in flight at a time. A
//     failure reopens the breaker immediately and restarts the timer.
//     SuccessThreshold consecutive successes close it.
//
// Admitting a single trial at a time keeps a flapping dependency from
// being bombarded the instant its cooldown expires: while a trial is
// unresolved, concurrent callers are refused as if the breaker were
// still open.
//
// # Thread Safety
//
// All methods are safe for concurrent use. State, counters, and the
// trial-in-flight claim live behind one mutex, so two concurrent
// failures are both counted and two racing admission attempts can
// never both claim the half-open trial.
package breaker
