package job

import (
	"context"

	"github.com/jeethualex/harness/id"
)

// Cancellable is a handle that stops a live job's local work. Engines
// hand one to the manager when a job starts; the manager invokes it when
// the job is cancelled.
type Cancellable interface {
	Cancel(ctx context.Context) error
}

// CancelFunc adapts a plain function to the Cancellable interface.
type CancelFunc func(ctx context.Context) error

// Cancel implements Cancellable.
func (f CancelFunc) Cancel(ctx context.Context) error { return f(ctx) }

// Noop returns a Cancellable whose Cancel does nothing. It is the default
// handle for jobs that have no local work to stop.
func Noop() Cancellable {
	return CancelFunc(func(context.Context) error { return nil })
}

// ExecutionCanceller requests cancellation of a possibly remote, possibly
// already-finished computation. Implementations must be safe to call with
// unknown or settled job ids.
type ExecutionCanceller interface {
	CancelExecution(ctx context.Context, jobID id.JobID) error
}
