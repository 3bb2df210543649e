// Package trainer orchestrates training runs: admission through
// per-engine [Limits], execution through [Runner], bookkeeping through
// the job manager, with each run wrapped in the middleware chain.
//
// A run's life:
//
//	Train → Limits.Acquire → AddJob (queued, cancel handle installed)
//	      → goroutine: UpdateJob (executing) → middleware → eng.Train
//	      → FinishJob / MarkJobFailed → Limits.Release
//
// Cancellation goes through the job manager: CancelJob fires the run's
// cancel handle, eng.Train observes its context and returns, and the
// runner leaves the record alone because the cancel path has already
// settled it as cancelled.
package trainer
