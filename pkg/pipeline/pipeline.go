package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Result is what a stage's external call produced.
type Result struct {
	// Cost is the actual cost of the call in USD.
	Cost float64

	// Output is the stage's payload, opaque to the runner.
	Output any
}

// CallFunc performs the actual external call for a stage.
type CallFunc func(ctx context.Context) (Result, error)

// Stage is one unit of work against a single external dependency.
type Stage struct {
	// Name identifies the stage in reports and logs.
	Name string

	// Dependency is the governed dependency name the stage calls.
	Dependency string

	// Call performs the external call once authorization succeeds.
	Call CallFunc

	// Fallback, when set, produces a cached or degraded result if the
	// dependency's circuit is open. Fallbacks are not governed calls
	// and consume no quota.
	Fallback CallFunc
}

// Job is an ordered list of stages executed as one unit.
type Job struct {
	// ID is assigned at creation.
	ID string

	// Stages run in order. A budget abort stops the remainder.
	Stages []Stage
}

// NewJob creates a job with a fresh ID.
func NewJob(stages ...Stage) *Job {
	return &Job{
		ID:     uuid.New().String(),
		Stages: stages,
	}
}

// Action records how the runner resolved a stage.
type Action string

const (
	// ActionCompleted means the governed call ran and succeeded.
	ActionCompleted Action = "completed"

	// ActionFailed means the governed call ran and returned an error.
	ActionFailed Action = "failed"

	// ActionDegraded means the circuit was open and the stage used its
	// fallback, or was skipped when it had none.
	ActionDegraded Action = "degraded"

	// ActionDeferred means quota was exhausted; the stage should be
	// retried in a later window.
	ActionDeferred Action = "deferred"

	// ActionAborted means the budget ceiling stopped the job before
	// this stage ran.
	ActionAborted Action = "aborted"
)

// StageReport describes how one stage resolved.
type StageReport struct {
	Stage      string
	Dependency string
	Action     Action

	// Result is set for completed and degraded-with-fallback stages.
	Result *Result

	// RetryAfter hints when a deferred stage could be retried.
	RetryAfter time.Duration

	// Err holds the call or fallback error, if any.
	Err error

	// Latency is how long the governed call took.
	Latency time.Duration
}

// JobReport summarizes a finished run.
type JobReport struct {
	JobID  string
	Stages []StageReport

	// Aborted is set when the budget ceiling stopped the job.
	Aborted bool

	// AbortMessage states explicitly why the job aborted, including
	// how far past the ceiling the budget is. Empty unless Aborted.
	AbortMessage string
}

// Deferred returns the stages that should be retried later.
func (r *JobReport) Deferred() []StageReport {
	var deferred []StageReport
	for _, st := range r.Stages {
		if st.Action == ActionDeferred {
			deferred = append(deferred, st)
		}
	}
	return deferred
}
