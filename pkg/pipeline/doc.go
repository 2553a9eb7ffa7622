// Package pipeline runs jobs whose stages call governed external
// dependencies.
//
// # Overview
//
// A Job is an ordered list of stages. Before each stage's external call
// the runner asks the governor for authorization and maps a refusal to
// the stage policy:
//
//   - circuit open: run the stage's fallback (cached or degraded
//     result) when one exists, otherwise mark the stage degraded
//   - quota exceeded: defer the stage to a later window
//   - budget exceeded: abort the whole job with an explicit message
//     stating the ceiling was hit and by how much
//
// After each attempted call the runner reports the outcome back, so the
// breaker and the budget always see what actually happened. The
// governance layer never retries; deferral and backoff decisions stay
// here, with the caller.
package pipeline
