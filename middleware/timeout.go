package middleware

import (
	"context"
	"time"

	"github.com/jeethualex/harness/job"
)

// Timeout returns middleware that enforces an execution deadline on the
// run. A zero or negative duration disables the deadline. When the
// deadline is exceeded the run context is cancelled and the handler
// should return context.DeadlineExceeded.
func Timeout(d time.Duration) Middleware {
	return func(ctx context.Context, _ string, _ *job.Description, next Handler) error {
		if d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
		return next(ctx)
	}
}
