package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jeethualex/harness"
	"github.com/jeethualex/harness/engine"
	"github.com/jeethualex/harness/event"
	"github.com/jeethualex/harness/id"
	"github.com/jeethualex/harness/job"
)

// Compile-time checks that Store satisfies each subsystem contract.
var (
	_ job.Store    = (*Store)(nil)
	_ engine.Store = (*Store)(nil)
	_ event.Store  = (*Store)(nil)
)

// Store is a fully in-memory implementation of store.Store.
// Safe for concurrent access. Intended for unit testing and development.
type Store struct {
	mu sync.RWMutex

	jobs    map[string]*job.Record
	engines map[string]*engine.Instance
	events  map[string][]*event.Event // key: engine id
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		jobs:    make(map[string]*job.Record),
		engines: make(map[string]*engine.Instance),
		events:  make(map[string][]*event.Event),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle — Migrate / Ping / Close
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Job Store
// ──────────────────────────────────────────────────

// InsertJob persists a new job record.
func (m *Store) InsertJob(_ context.Context, r *job.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := r.ID.String()
	if _, exists := m.jobs[key]; exists {
		return harness.ErrJobAlreadyExists
	}
	cp := *r
	m.jobs[key] = &cp
	return nil
}

// GetJob retrieves a job record by ID.
func (m *Store) GetJob(_ context.Context, jobID id.JobID) (*job.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.jobs[jobID.String()]
	if !ok {
		return nil, harness.ErrJobNotFound
	}
	cp := *r
	return &cp, nil
}

// ListJobsByEngine returns the engine's job records, newest first.
func (m *Store) ListJobsByEngine(_ context.Context, engineID string) ([]*job.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*job.Record, 0, len(m.jobs))
	for _, r := range m.jobs {
		if r.EngineID != engineID {
			continue
		}
		cp := *r
		result = append(result, &cp)
	}

	// Newest first; IDs break creation-time ties (K-sortable).
	sort.Slice(result, func(i, k int) bool {
		if !result[i].CreatedAt.Equal(result[k].CreatedAt) {
			return result[i].CreatedAt.After(result[k].CreatedAt)
		}
		return result[i].ID.String() > result[k].ID.String()
	})

	return result, nil
}

// UpdateJobStatus writes a new status for an existing record. A non-nil
// completedAt stamps the completion time.
func (m *Store) UpdateJobStatus(_ context.Context, jobID id.JobID, status job.Status, completedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.jobs[jobID.String()]
	if !ok {
		return harness.ErrJobNotFound
	}
	r.Status = status
	if completedAt != nil {
		at := *completedAt
		r.CompletedAt = &at
	}
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// FailNonTerminalJobs marks every record not yet settled as failed with
// the given completion time. The check is against the settled statuses
// themselves, not Terminal(), so a stray stored "expired" tag is swept
// rather than skipped.
func (m *Store) FailNonTerminalJobs(_ context.Context, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	var count int64
	for _, r := range m.jobs {
		switch r.Status {
		case job.StatusSuccessful, job.StatusFailed, job.StatusCancelled:
			continue
		}
		r.Status = job.StatusFailed
		t := at
		r.CompletedAt = &t
		r.UpdatedAt = now
		count++
	}
	return count, nil
}

// DeleteJob removes a job record by ID.
func (m *Store) DeleteJob(_ context.Context, jobID id.JobID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := jobID.String()
	if _, ok := m.jobs[key]; !ok {
		return harness.ErrJobNotFound
	}
	delete(m.jobs, key)
	return nil
}

// DeleteJobsByEngine removes every job record owned by the engine.
func (m *Store) DeleteJobsByEngine(_ context.Context, engineID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for key, r := range m.jobs {
		if r.EngineID == engineID {
			delete(m.jobs, key)
			count++
		}
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// Engine Store
// ──────────────────────────────────────────────────

// CreateEngine persists a new engine instance.
func (m *Store) CreateEngine(_ context.Context, inst *engine.Instance) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.engines[inst.EngineID]; exists {
		return harness.ErrEngineExists
	}
	cp := *inst
	m.engines[inst.EngineID] = &cp
	return nil
}

// GetEngine retrieves an engine instance by id.
func (m *Store) GetEngine(_ context.Context, engineID string) (*engine.Instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	inst, ok := m.engines[engineID]
	if !ok {
		return nil, harness.ErrEngineNotFound
	}
	cp := *inst
	return &cp, nil
}

// ListEngines returns all engine instances ordered by creation time.
func (m *Store) ListEngines(_ context.Context) ([]*engine.Instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*engine.Instance, 0, len(m.engines))
	for _, inst := range m.engines {
		cp := *inst
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, k int) bool {
		return result[i].CreatedAt.Before(result[k].CreatedAt)
	})

	return result, nil
}

// UpdateEngine persists changes to an existing engine instance.
func (m *Store) UpdateEngine(_ context.Context, inst *engine.Instance) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.engines[inst.EngineID]; !ok {
		return harness.ErrEngineNotFound
	}
	cp := *inst
	cp.UpdatedAt = time.Now().UTC()
	m.engines[inst.EngineID] = &cp
	return nil
}

// DeleteEngine removes an engine instance by id.
func (m *Store) DeleteEngine(_ context.Context, engineID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.engines[engineID]; !ok {
		return harness.ErrEngineNotFound
	}
	delete(m.engines, engineID)
	return nil
}

// ──────────────────────────────────────────────────
// Event Store
// ──────────────────────────────────────────────────

// AppendEvent persists a new event under the given engine.
func (m *Store) AppendEvent(_ context.Context, engineID string, evt *event.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *evt
	m.events[engineID] = append(m.events[engineID], &cp)
	return nil
}

// ListEvents returns the engine's events ordered by event time ascending.
func (m *Store) ListEvents(_ context.Context, engineID string, opts event.ListOpts) ([]*event.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*event.Event, 0, len(m.events[engineID]))
	for _, evt := range m.events[engineID] {
		if !opts.Since.IsZero() && evt.EventTime.Before(opts.Since) {
			continue
		}
		cp := *evt
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, k int) bool {
		return result[i].EventTime.Before(result[k].EventTime)
	})

	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}

	return result, nil
}

// DeleteEvents removes every event of the engine.
func (m *Store) DeleteEvents(_ context.Context, engineID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := int64(len(m.events[engineID]))
	delete(m.events, engineID)
	return count, nil
}
