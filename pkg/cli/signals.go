package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// SignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// The returned stop function releases the signal registration; a second
// signal after cancellation terminates the process with the default
// behavior.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
