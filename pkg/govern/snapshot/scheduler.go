package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// SchedulerConfig configures snapshot collection and pruning.
type SchedulerConfig struct {
	// CollectSchedule is the cron expression for snapshot collection.
	// Supports the @every syntax. Default: "@every 1m".
	CollectSchedule string

	// PruneSchedule is the cron expression for history pruning.
	// If empty, pruning is disabled.
	//
	// Common cron expressions:
	//   - "0 3 * * *"    - Daily at 3 AM
	//   - "0 */6 * * *"  - Every 6 hours
	PruneSchedule string

	// Retention is how long to keep snapshot history. Records older
	// than this are removed by the prune job. Default: 7 days.
	Retention time.Duration
}

func (c *SchedulerConfig) withDefaults() SchedulerConfig {
	cfg := *c
	if cfg.CollectSchedule == "" {
		cfg.CollectSchedule = "@every 1m"
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 7 * 24 * time.Hour
	}
	return cfg
}

// Scheduler periodically collects snapshots from a Source, persists
// them to a Backend, and prunes aged history on a cron schedule.
type Scheduler struct {
	source  Source
	backend Backend
	cfg     SchedulerConfig
	cron    *cron.Cron
	mu      sync.Mutex
	logger  *slog.Logger
	running bool
}

// NewScheduler creates a new snapshot scheduler.
func NewScheduler(source Source, backend Backend, cfg SchedulerConfig) *Scheduler {
	return &Scheduler{
		source:  source,
		backend: backend,
		cfg:     cfg.withDefaults(),
		cron:    cron.New(),
		logger:  slog.Default().With("component", "snapshot.scheduler"),
	}
}

// Start begins scheduled collection and pruning. The scheduler stops
// when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	if _, err := cron.ParseStandard(s.cfg.CollectSchedule); err != nil {
		return fmt.Errorf("invalid collect schedule %q: %w", s.cfg.CollectSchedule, err)
	}

	if _, err := s.cron.AddFunc(s.cfg.CollectSchedule, func() {
		s.runCollection(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule collection: %w", err)
	}

	if s.cfg.PruneSchedule != "" {
		if _, err := cron.ParseStandard(s.cfg.PruneSchedule); err != nil {
			return fmt.Errorf("invalid prune schedule %q: %w", s.cfg.PruneSchedule, err)
		}
		if _, err := s.cron.AddFunc(s.cfg.PruneSchedule, func() {
			s.runPruning(ctx)
		}); err != nil {
			return fmt.Errorf("failed to schedule pruning: %w", err)
		}
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("snapshot scheduler started",
		"collect_schedule", s.cfg.CollectSchedule,
		"prune_schedule", s.cfg.PruneSchedule,
		"retention", s.cfg.Retention,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Collect performs one immediate collection cycle outside the schedule.
func (s *Scheduler) Collect(ctx context.Context) error {
	records := s.source.Snapshot()
	if len(records) == 0 {
		return nil
	}
	if err := s.backend.Save(ctx, records); err != nil {
		return fmt.Errorf("failed to save snapshots: %w", err)
	}
	return nil
}

// runCollection executes a collection cycle.
func (s *Scheduler) runCollection(ctx context.Context) {
	if err := s.Collect(ctx); err != nil {
		s.logger.Error("scheduled snapshot collection failed",
			"error", err,
		)
		return
	}
	s.logger.Debug("snapshot collection completed")
}

// runPruning executes a pruning cycle.
func (s *Scheduler) runPruning(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.cfg.Retention)

	deleted, err := s.backend.Prune(ctx, cutoff)
	if err != nil {
		s.logger.Error("scheduled snapshot pruning failed",
			"error", err,
		)
		return
	}

	if deleted > 0 {
		s.logger.Info("scheduled snapshot pruning completed",
			"deleted_count", deleted,
		)
	} else {
		s.logger.Debug("scheduled snapshot pruning completed, no records deleted")
	}
}

// Stop stops the scheduler and waits for any running jobs to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done() // Wait for running jobs to finish
		s.running = false
		s.logger.Info("snapshot scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// NextRun returns the next scheduled collection time.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return nil
	}

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}

	next := entries[0].Next
	return &next
}
