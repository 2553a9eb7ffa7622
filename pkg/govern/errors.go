package govern

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrCircuitOpen is wrapped by rejections caused by an open or
	// busy half-open breaker.
	ErrCircuitOpen = errors.New("circuit open")

	// ErrBudgetExceeded is wrapped by rejections caused by the
	// spending ceiling.
	ErrBudgetExceeded = errors.New("budget exceeded")

	// ErrUnknownDependency is returned when no configuration exists
	// for the requested dependency name.
	ErrUnknownDependency = errors.New("unknown dependency")
)

// RejectedError is the typed refusal returned by Authorize. Callers
// branch on Reason to pick a fallback: cached data for circuit_open,
// deferral for quota_exceeded, job abort for budget_exceeded.
type RejectedError struct {
	// Dependency is the name the call was authorized against.
	Dependency string

	// Reason classifies the refusing gate.
	Reason RejectReason

	// RetryAfter estimates how long until a retry could succeed. Zero
	// when unknown or when retrying cannot help.
	RetryAfter time.Duration

	// Overrun is how far past the ceiling the budget is, in USD. Set
	// only for budget rejections.
	Overrun float64

	// Err is the underlying gate error.
	Err error
}

// Error implements the error interface.
func (e *RejectedError) Error() string {
	switch e.Reason {
	case ReasonCircuitOpen:
		if e.RetryAfter > 0 {
			return fmt.Sprintf("call to %q rejected: circuit open (retry after %s)",
				e.Dependency, e.RetryAfter.Round(time.Millisecond))
		}
		return fmt.Sprintf("call to %q rejected: circuit open", e.Dependency)
	case ReasonBudgetExceeded:
		if e.Overrun > 0 {
			return fmt.Sprintf("call to %q rejected: budget ceiling hit, over by $%.2f",
				e.Dependency, e.Overrun)
		}
		return fmt.Sprintf("call to %q rejected: budget ceiling hit", e.Dependency)
	default:
		return fmt.Sprintf("call to %q rejected: %v", e.Dependency, e.Err)
	}
}

// Unwrap returns the underlying gate error for errors.Is checks.
func (e *RejectedError) Unwrap() error {
	return e.Err
}

// AsRejected extracts a RejectedError from an error chain.
func AsRejected(err error) (*RejectedError, bool) {
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return rejected, true
	}
	return nil, false
}
