// Package snapshot persists point-in-time governance state for
// external monitoring and dashboards.
//
// Snapshots are observational only: admission decisions never read
// them back, and a process restart starts all counters fresh. A Source
// (the call governor) produces one Record per governed dependency; a
// Backend stores them; the Scheduler drives periodic collection and
// retention pruning on a cron schedule.
//
// Two backends ship: an in-memory backend holding only the latest
// record per dependency, and a SQLite backend that appends history
// rows, suitable for feeding a dashboard across restarts.
package snapshot
