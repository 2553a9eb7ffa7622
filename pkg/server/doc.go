// Package server provides the monitoring HTTP server for the governance layer.
//
// The server is a read-mostly surface for the operator: it exposes per-dependency
// usage counters, breaker states, and budget standing, plus the Prometheus
// scrape endpoint. It never sits in the call path of governed work.
//
// # Routes
//
//   - GET /healthz - Liveness probe (always returns 200 while running)
//   - GET /api/v1/stats - Usage counters and breaker state for every dependency
//   - GET /api/v1/stats/{dependency} - Same, for a single dependency
//   - GET /api/v1/budget - Spend, ceiling, and per-dependency breakdown
//   - POST /api/v1/budget/reset - Operator reset of the budget hard stop
//   - GET /metrics - Prometheus metrics (when telemetry.metrics.enabled)
//
// The budget hard stop latches once tripped; POST /api/v1/budget/reset is the
// only way to clear it without restarting the process.
//
// # Graceful Shutdown
//
// Start blocks until the context is cancelled or Shutdown is called, then
// stops accepting new connections and waits up to the configured shutdown
// timeout for in-flight requests to drain.
//
// # Thread Safety
//
// All server operations are thread-safe and can be called concurrently from
// multiple goroutines.
package server
