package trainer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jeethualex/harness"
	"github.com/jeethualex/harness/engine"
	"github.com/jeethualex/harness/id"
	"github.com/jeethualex/harness/job"
	"github.com/jeethualex/harness/middleware"
)

// Runner executes training runs: one goroutine per run, admission
// through Limits, lifecycle bookkeeping through the job manager, the
// train call wrapped in the middleware chain.
type Runner struct {
	manager *job.Manager
	limits  *Limits
	mw      middleware.Middleware
	logger  *slog.Logger

	wg       sync.WaitGroup
	activeMu sync.Mutex
	active   map[string]context.CancelFunc
}

// NewRunner creates a Runner. The middleware are applied around every
// run, first one outermost.
func NewRunner(manager *job.Manager, limits *Limits, logger *slog.Logger, mws ...middleware.Middleware) *Runner {
	return &Runner{
		manager: manager,
		limits:  limits,
		mw:      middleware.Chain(mws...),
		logger:  logger,
		active:  make(map[string]context.CancelFunc),
	}
}

// Train starts a training run for eng. The returned description is the
// job tracking the run; the run itself executes in the background and
// settles the job when it ends. Returns ErrTrainingBusy when the
// engine's admission limits are saturated.
func (r *Runner) Train(ctx context.Context, eng engine.Engine, comment string) (job.Description, error) {
	engineID := eng.ID()
	if !r.limits.Acquire(engineID) {
		return job.Description{}, fmt.Errorf("trainer: train %q: %w", engineID, harness.ErrTrainingBusy)
	}

	// The run outlives the request that started it.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	desc := r.manager.AddJob(ctx, engineID,
		job.WithComment(comment),
		job.WithCancellable(job.CancelFunc(func(context.Context) error {
			cancel()
			return nil
		})),
	)

	r.track(desc.JobID, cancel)
	r.wg.Add(1)
	go r.run(runCtx, eng, desc, cancel)

	return desc, nil
}

// run drives one training run to a settled state.
func (r *Runner) run(ctx context.Context, eng engine.Engine, desc job.Description, cancel context.CancelFunc) {
	engineID := eng.ID()
	defer func() {
		r.untrack(desc.JobID)
		cancel()
		r.limits.Release(engineID)
		r.wg.Done()
	}()

	r.manager.UpdateJob(ctx, engineID, desc.JobID, job.StatusExecuting, nil)
	desc.Status = job.StatusExecuting

	err := r.mw(ctx, engineID, &desc, func(ctx context.Context) error {
		return eng.Train(ctx)
	})

	switch {
	case err == nil:
		r.manager.FinishJob(ctx, desc.JobID)
	case ctx.Err() != nil:
		// The run context was cancelled: either CancelJob settled the
		// record already, or shutdown abandoned the run for the next
		// startup sweep.
		r.logger.Info("training run cancelled",
			slog.String("engine_id", engineID),
			slog.String("job_id", desc.JobID.String()))
	default:
		r.logger.Debug("training run failed",
			slog.String("engine_id", engineID),
			slog.String("job_id", desc.JobID.String()),
			slog.String("error", err.Error()))
		r.manager.MarkJobFailed(ctx, desc.JobID)
	}
}

// Active returns the number of in-flight runs.
func (r *Runner) Active() int {
	r.activeMu.Lock()
	defer r.activeMu.Unlock()

	return len(r.active)
}

// Wait blocks until every in-flight run finishes. When ctx expires
// first, remaining runs are cancelled and their wind-down is still
// awaited; the abandoned jobs stay executing for the next startup's
// recovery sweep.
func (r *Runner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		r.logger.Warn("trainer shutdown timed out, cancelling active runs")
		r.cancelActiveRuns()
		<-done
		return ctx.Err()
	}
}

func (r *Runner) track(jobID id.JobID, cancel context.CancelFunc) {
	r.activeMu.Lock()
	r.active[jobID.String()] = cancel
	r.activeMu.Unlock()
}

func (r *Runner) untrack(jobID id.JobID) {
	r.activeMu.Lock()
	delete(r.active, jobID.String())
	r.activeMu.Unlock()
}

func (r *Runner) cancelActiveRuns() {
	r.activeMu.Lock()
	defer r.activeMu.Unlock()

	for jobID, cancel := range r.active {
		r.logger.Warn("cancelling active run", slog.String("job_id", jobID))
		cancel()
	}
}
