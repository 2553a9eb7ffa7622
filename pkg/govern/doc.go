// Package govern is the admission facade for external calls.
//
// # Overview
//
// Every outbound call to a paid or rate-limited dependency passes
// through a Governor. Authorize composes three gates in a fixed order:
//
//  1. Circuit breaker: is the dependency considered healthy?
//  2. Quota: is there an admission slot in the per-minute window and
//     under the daily cap? May wait for a slot to free.
//  3. Budget: would the estimated cost breach the spending ceiling?
//
// The first gate to refuse short-circuits the rest and yields a
// RejectedError carrying a reason the caller can branch on: use cached
// data when the circuit is open, defer to the next window when quota is
// exhausted, abort the job when the budget is spent.
//
// After the actual call completes the caller must invoke Report, which
// feeds the outcome to the breaker and charges the actual cost to the
// budget. A consumed quota slot is never refunded, whatever the
// outcome.
//
// # Thread Safety
//
// Governor is safe for concurrent use. State for distinct dependencies
// is independent; admission checks for one dependency never contend
// with another.
package govern
