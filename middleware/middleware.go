// Package middleware provides composable middleware for training runs.
// Middleware wraps the run synchronously and can modify execution
// (recover from panics, log, add tracing, enforce deadlines, etc.).
package middleware

import (
	"context"

	"github.com/jeethualex/harness/job"
)

// Handler is the terminal function that executes the training logic.
type Handler func(ctx context.Context) error

// Middleware wraps a Handler with cross-cutting logic. It receives the
// current context, the engine owning the run, the run's job description,
// and the next handler to call. Middleware MUST call next to continue
// the chain (unless short-circuiting on error).
type Middleware func(ctx context.Context, engineID string, d *job.Description, next Handler) error

// Chain composes multiple middleware into a single Middleware.
// Middleware are applied right-to-left: the first middleware in the
// list is the outermost wrapper.
//
// Example: Chain(logging, recover, metrics) executes as:
//
//	logging → recover → metrics → handler
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, engineID string, d *job.Description, next Handler) error {
		// Build the chain from the end backwards.
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) error {
				return mw(ctx, engineID, d, prev)
			}
		}
		return h(ctx)
	}
}
