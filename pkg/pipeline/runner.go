package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tailor-hq/loom/pkg/govern"
)

// Runner executes jobs against a governor.
// It is safe for concurrent use; independent jobs may run in parallel.
type Runner struct {
	governor *govern.Governor
	logger   *slog.Logger
}

// NewRunner creates a runner backed by the given governor.
func NewRunner(governor *govern.Governor) *Runner {
	return &Runner{
		governor: governor,
		logger:   slog.Default().With("component", "pipeline"),
	}
}

// Run executes the job's stages in order and returns a report. Only a
// budget rejection aborts the run; other refusals resolve the affected
// stage and let the rest proceed. Context cancellation stops the run
// and returns the context's error alongside the partial report.
func (r *Runner) Run(ctx context.Context, job *Job) (*JobReport, error) {
	report := &JobReport{JobID: job.ID}
	logger := r.logger.With("job_id", job.ID)

	logger.Info("job started", "stages", len(job.Stages))

	for _, stage := range job.Stages {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		st, abort, err := r.runStage(ctx, logger, stage)
		if err != nil {
			return report, err
		}
		report.Stages = append(report.Stages, st)

		if abort {
			report.Aborted = true
			report.AbortMessage = abortMessage(st)
			r.abortRemainder(report, job, stage)

			logger.Error("job aborted", "stage", stage.Name, "message", report.AbortMessage)
			return report, nil
		}
	}

	logger.Info("job finished",
		"completed", countAction(report, ActionCompleted),
		"deferred", countAction(report, ActionDeferred),
		"degraded", countAction(report, ActionDegraded),
		"failed", countAction(report, ActionFailed),
	)
	return report, nil
}

// runStage authorizes and executes one stage. The second return value
// is true when the job must abort.
func (r *Runner) runStage(ctx context.Context, logger *slog.Logger, stage Stage) (StageReport, bool, error) {
	st := StageReport{Stage: stage.Name, Dependency: stage.Dependency}

	_, err := r.governor.Authorize(ctx, stage.Dependency)
	if err != nil {
		rejected, ok := govern.AsRejected(err)
		if !ok {
			// Context cancellation or a wiring mistake; stop the run.
			return st, false, err
		}

		switch rejected.Reason {
		case govern.ReasonCircuitOpen:
			return r.degrade(ctx, logger, stage, st, rejected), false, nil

		case govern.ReasonQuotaExceeded:
			st.Action = ActionDeferred
			st.RetryAfter = rejected.RetryAfter
			st.Err = rejected
			logger.Info("stage deferred",
				"stage", stage.Name,
				"dependency", stage.Dependency,
				"retry_after", rejected.RetryAfter,
			)
			return st, false, nil

		case govern.ReasonBudgetExceeded:
			st.Action = ActionAborted
			st.Err = rejected
			return st, true, nil

		default:
			return st, false, err
		}
	}

	start := time.Now()
	result, callErr := stage.Call(ctx)
	st.Latency = time.Since(start)

	r.governor.Report(stage.Dependency, govern.Outcome{
		Success: callErr == nil,
		Cost:    result.Cost,
		Latency: st.Latency,
	})

	if callErr != nil {
		st.Action = ActionFailed
		st.Err = callErr
		logger.Warn("stage failed",
			"stage", stage.Name,
			"dependency", stage.Dependency,
			"error", callErr,
		)
		return st, false, nil
	}

	st.Action = ActionCompleted
	st.Result = &result
	return st, false, nil
}

// degrade resolves a circuit-open refusal: run the fallback when the
// stage has one, otherwise record the stage as degraded with no result.
func (r *Runner) degrade(ctx context.Context, logger *slog.Logger, stage Stage, st StageReport, rejected *govern.RejectedError) StageReport {
	st.Action = ActionDegraded
	st.RetryAfter = rejected.RetryAfter
	st.Err = rejected

	if stage.Fallback == nil {
		logger.Warn("stage degraded, no fallback",
			"stage", stage.Name,
			"dependency", stage.Dependency,
		)
		return st
	}

	result, err := stage.Fallback(ctx)
	if err != nil {
		st.Err = fmt.Errorf("fallback failed: %w", err)
		logger.Warn("stage fallback failed",
			"stage", stage.Name,
			"dependency", stage.Dependency,
			"error", err,
		)
		return st
	}

	st.Result = &result
	st.Err = nil
	logger.Info("stage served from fallback",
		"stage", stage.Name,
		"dependency", stage.Dependency,
	)
	return st
}

// abortRemainder marks every stage after the aborting one.
func (r *Runner) abortRemainder(report *JobReport, job *Job, aborted Stage) {
	seen := false
	for _, stage := range job.Stages {
		if stage.Name == aborted.Name {
			seen = true
			continue
		}
		if seen {
			report.Stages = append(report.Stages, StageReport{
				Stage:      stage.Name,
				Dependency: stage.Dependency,
				Action:     ActionAborted,
			})
		}
	}
}

func abortMessage(st StageReport) string {
	if rejected, ok := govern.AsRejected(st.Err); ok && rejected.Overrun > 0 {
		return fmt.Sprintf("budget ceiling hit, over by $%.2f; job aborted at stage %q", rejected.Overrun, st.Stage)
	}
	return fmt.Sprintf("budget ceiling hit; job aborted at stage %q", st.Stage)
}

func countAction(report *JobReport, action Action) int {
	n := 0
	for _, st := range report.Stages {
		if st.Action == action {
			n++
		}
	}
	return n
}
