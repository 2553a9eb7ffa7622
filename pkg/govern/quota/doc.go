// Package quota provides per-dependency call admission with a sliding
// per-minute window and a UTC-daily counter.
//
// # Overview
//
// Every metered external dependency (an LLM completion endpoint, a web
// crawler) gets one Limiter, held in a process-wide Registry. A pipeline
// stage must acquire a Permit before calling out:
//
//	lim := registry.Ensure("openai", quota.Config{PerMinute: 20, Daily: 500})
//	permit, err := lim.Acquire(ctx)
//	if err != nil {
//	    // quota exhausted, deadline hit, or ctx cancelled
//	}
//
// # Sliding Window
//
// The per-minute limit is a true sliding window over admission timestamps:
// on every admission attempt, timestamps older than 60 seconds are pruned,
// then the check and the increment happen inside a single critical section.
// No 60-second window ever holds more admissions than the configured limit,
// and there is no reset spike at minute boundaries.
//
// # Daily Counter
//
// The daily limit counts admissions since the start of the current UTC day.
// The counter rolls over when an admission attempt first observes the day
// boundary; no background timer is involved.
//
// # Waiting
//
// Acquire blocks the calling goroutine until a slot frees, the limiter's
// MaxWait elapses, or ctx is cancelled. Blocking a goroutine is Go's
// cooperative suspension, so a single wait loop serves both synchronous and
// asynchronous callers. TryAcquire is the non-blocking variant. A cancelled
// or timed-out Acquire leaves no trace: nothing is recorded unless admission
// actually succeeded. There is no fairness guarantee across waiters; any
// waiter may win when capacity frees.
//
// # Thread Safety
//
// All operations are safe for concurrent use. Each Limiter serializes its
// window and counter behind a single mutex with a small critical section
// (prune + check + record). Limiters for distinct dependency names share no
// locks.
package quota
