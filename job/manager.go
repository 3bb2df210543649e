package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jeethualex/harness"
	"github.com/jeethualex/harness/backoff"
	"github.com/jeethualex/harness/id"
)

// DefaultExpireAfter is how long a job may stay non-terminal before reads
// report it as expired.
const DefaultExpireAfter = 12 * time.Hour

// recentTerminal caps how many settled jobs ActiveJobs reports per engine.
const recentTerminal = 10

// defaultWriteAttempts is the total number of tries for one background
// bookkeeping write.
const defaultWriteAttempts = 3

// Manager tracks training jobs across engines: durable records in a
// Store, live cancellation handles in a Registry. Bookkeeping writes run
// in the background with retries and log their failures; CancelJob is the
// one operation that waits for its durable write.
type Manager struct {
	store       Store
	registry    *Registry
	canceller   ExecutionCanceller
	logger      *slog.Logger
	expireAfter time.Duration
	retry       backoff.Strategy
	attempts    int
	now         func() time.Time
	writes      sync.WaitGroup
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger for bookkeeping and cancellation events.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithExpireAfter sets how long a job may stay non-terminal before reads
// report it as expired.
func WithExpireAfter(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.expireAfter = d
	}
}

// WithExecutionCanceller sets the external backend asked to stop remote
// work when a job is cancelled.
func WithExecutionCanceller(c ExecutionCanceller) ManagerOption {
	return func(m *Manager) {
		m.canceller = c
	}
}

// WithWriteRetry sets the backoff strategy and the total attempt count
// for background bookkeeping writes.
func WithWriteRetry(s backoff.Strategy, attempts int) ManagerOption {
	return func(m *Manager) {
		m.retry = s
		if attempts > 0 {
			m.attempts = attempts
		}
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a Manager backed by the given store.
func NewManager(store Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:       store,
		registry:    NewRegistry(),
		canceller:   noopCanceller{},
		logger:      slog.Default(),
		expireAfter: DefaultExpireAfter,
		retry:       backoff.DefaultStrategy(),
		attempts:    defaultWriteAttempts,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// AddJob accepts a new job for engineID and returns its description. The
// live registry entry is installed synchronously, so the job is
// cancellable and reportable at once; the durable insert happens in the
// background and a failure there is logged, never surfaced.
func (m *Manager) AddJob(ctx context.Context, engineID string, opts ...Option) Description {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Handle == nil {
		o.Handle = Noop()
	}

	now := m.now()
	r := &Record{
		Entity:   harness.Entity{CreatedAt: now, UpdatedAt: now},
		ID:       id.NewJobID(),
		EngineID: engineID,
		Status:   o.Status,
		Comment:  o.Comment,
		ExpireAt: now.Add(m.expireAfter),
	}

	desc := r.Description()
	m.registry.Put(engineID, o.Handle, desc)

	m.async(ctx, "insert", r.ID, func(ctx context.Context) error {
		err := m.store.InsertJob(ctx, r)
		if errors.Is(err, harness.ErrJobAlreadyExists) {
			// A retried insert can race its own earlier attempt.
			return nil
		}

		return err
	})

	return desc
}

// UpdateJob records a status change for a live job: the registry entry
// is replaced with the new status and the new handle (a rebuilt run may
// hand over a fresh handle for the same logical job), then the durable
// write runs in the background. A job with no live entry has settled
// already and the update is dropped, so a late status change cannot
// resurrect a cancelled record. Settling transitions go through
// FinishJob and MarkJobFailed, which also stamp the completion time.
func (m *Manager) UpdateJob(ctx context.Context, engineID string, jobID id.JobID, status Status, handle Cancellable) {
	lj, ok := m.registry.Find(engineID, jobID)
	if !ok {
		return
	}

	desc := lj.Description
	desc.Status = status
	if handle == nil {
		handle = lj.Handle
	}
	m.registry.Replace(engineID, jobID, handle, desc)

	m.async(ctx, "update", jobID, func(ctx context.Context) error {
		return m.store.UpdateJobStatus(ctx, jobID, status, nil)
	})
}

// ActiveJobs reports the engine's jobs for the status surface: every
// record still queued or executing after the expiration overlay, plus up
// to 10 of the most recently created settled ones, ordered with
// non-terminal statuses first.
func (m *Manager) ActiveJobs(ctx context.Context, engineID string) ([]Description, error) {
	records, err := m.store.ListJobsByEngine(ctx, engineID)
	if err != nil {
		return nil, fmt.Errorf("job: list jobs for engine %q: %w", engineID, err)
	}

	now := m.now()
	out := make([]Description, 0, len(records))
	terminal := 0
	for _, r := range records {
		d := r.DescriptionAt(now)
		if !d.Status.Terminal() {
			out = append(out, d)

			continue
		}
		if terminal < recentTerminal {
			out = append(out, d)
			terminal++
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Status.Ordinal() < out[j].Status.Ordinal()
	})

	return out, nil
}

// FinishJob settles jobID as successful, stamping the completion time.
// The durable write runs in the background; once it lands the live entry
// is dropped wherever it is registered.
func (m *Manager) FinishJob(ctx context.Context, jobID id.JobID) {
	m.settle(ctx, "finish", jobID, StatusSuccessful)
}

// MarkJobFailed settles jobID as failed, stamping the completion time.
func (m *Manager) MarkJobFailed(ctx context.Context, jobID id.JobID) {
	m.settle(ctx, "fail", jobID, StatusFailed)
}

// CancelJob stops a live job: the local handle first, then the external
// execution backend, then the durable record is marked cancelled. The
// durable write is the one step the caller waits on. Cancelling a job
// with no live entry, or one that already settled, is a no-op. Failures
// of the two cancel steps are logged and the chain keeps going.
func (m *Manager) CancelJob(ctx context.Context, engineID string, jobID id.JobID) error {
	lj, ok := m.registry.Find(engineID, jobID)
	if !ok {
		return nil
	}

	if err := lj.Handle.Cancel(ctx); err != nil {
		m.logger.Error("local cancel failed",
			slog.String("job_id", jobID.String()),
			slog.String("error", err.Error()))
	}

	if err := m.canceller.CancelExecution(ctx, jobID); err != nil {
		m.logger.Error("execution cancel failed",
			slog.String("job_id", jobID.String()),
			slog.String("error", err.Error()))
	}

	at := m.now()
	err := m.store.UpdateJobStatus(ctx, jobID, StatusCancelled, &at)
	switch {
	case err == nil:
		m.registry.Remove(jobID)
		m.logger.Info("job cancelled",
			slog.String("engine_id", engineID),
			slog.String("job_id", jobID.String()))
	case errors.Is(err, harness.ErrJobNotFound):
		// Settled or removed while we were cancelling.
		m.registry.Remove(jobID)
	default:
		// The live entry stays so the caller can retry.
		return fmt.Errorf("job: cancel %s: %w", jobID, err)
	}

	return nil
}

// RemoveJob deletes the durable record and any live entry for jobID. It
// does not check status first; callers make sure the job has settled.
//
// Deprecated: settled jobs age out of ActiveJobs on their own. Use
// RemoveAllJobs for engine teardown.
func (m *Manager) RemoveJob(ctx context.Context, jobID id.JobID) error {
	m.registry.Remove(jobID)
	if err := m.store.DeleteJob(ctx, jobID); err != nil && !errors.Is(err, harness.ErrJobNotFound) {
		return fmt.Errorf("job: remove %s: %w", jobID, err)
	}

	return nil
}

// RemoveAllJobs tears down every job owned by engineID: live handles are
// cancelled best-effort, then the durable records are bulk-deleted. It
// returns once both have settled.
func (m *Manager) RemoveAllJobs(ctx context.Context, engineID string) error {
	for _, lj := range m.registry.TakeAll(engineID) {
		if err := lj.Handle.Cancel(ctx); err != nil {
			m.logger.Error("cancel during engine teardown failed",
				slog.String("engine_id", engineID),
				slog.String("job_id", lj.Description.JobID.String()),
				slog.String("error", err.Error()))
		}
	}

	n, err := m.store.DeleteJobsByEngine(ctx, engineID)
	if err != nil {
		return fmt.Errorf("job: remove jobs for engine %q: %w", engineID, err)
	}

	m.logger.Info("engine jobs removed",
		slog.String("engine_id", engineID),
		slog.Int64("count", n))

	return nil
}

// AbortExecutingJobs fails every record that is still non-terminal,
// stamping the completion time. It is meant to run at process startup,
// where jobs left mid-flight by the previous process have no live
// handles anymore.
func (m *Manager) AbortExecutingJobs(ctx context.Context) error {
	n, err := m.store.FailNonTerminalJobs(ctx, m.now())
	if err != nil {
		return fmt.Errorf("job: abort executing jobs: %w", err)
	}
	if n > 0 {
		m.logger.Info("aborted stale jobs", slog.Int64("count", n))
	}

	return nil
}

// Drain waits for in-flight background writes to settle, or for ctx.
func (m *Manager) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.writes.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// settle writes a terminal status in the background and drops the live
// entry once the write lands.
func (m *Manager) settle(ctx context.Context, op string, jobID id.JobID, status Status) {
	at := m.now()
	m.async(ctx, op, jobID, func(ctx context.Context) error {
		if err := m.store.UpdateJobStatus(ctx, jobID, status, &at); err != nil {
			return err
		}
		m.registry.Remove(jobID)
		m.logger.Info("job settled",
			slog.String("job_id", jobID.String()),
			slog.String("status", string(status)))

		return nil
	})
}

// async runs one bookkeeping write in the background, detached from the
// caller's cancellation, retrying per the configured strategy. The final
// failure is logged, never surfaced.
func (m *Manager) async(ctx context.Context, op string, jobID id.JobID, fn func(context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	m.writes.Add(1)
	go func() {
		defer m.writes.Done()
		if err := m.withRetry(ctx, fn); err != nil {
			m.logger.Error("job bookkeeping write failed",
				slog.String("op", op),
				slog.String("job_id", jobID.String()),
				slog.String("error", err.Error()))
		}
	}()
}

func (m *Manager) withRetry(ctx context.Context, fn func(context.Context) error) error {
	var err error
	for attempt := 1; attempt <= m.attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(m.retry.Delay(attempt - 1)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err = fn(ctx); err == nil {
			return nil
		}
	}

	return err
}

type noopCanceller struct{}

func (noopCanceller) CancelExecution(context.Context, id.JobID) error { return nil }
