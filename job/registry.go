package job

import (
	"sync"

	"github.com/jeethualex/harness/id"
)

// LiveJob pairs a job's cancellation handle with its current description.
type LiveJob struct {
	Handle      Cancellable
	Description Description
}

// Registry tracks the live jobs of each engine: the jobs whose
// cancellation handles exist in this process. It is a capability cache
// only; the durable store stays authoritative for status and for what
// jobs exist. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string][]LiveJob
}

// NewRegistry creates an empty live-job registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string][]LiveJob),
	}
}

// Put registers a live job for the engine. The newest entry sits at the
// front of the engine's list.
func (r *Registry) Put(engineID string, handle Cancellable, desc Description) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[engineID] = append([]LiveJob{{Handle: handle, Description: desc}}, r.entries[engineID]...)
}

// Replace swaps the engine's entry for jobID with a new description and
// handle. Returns false if no entry matches.
func (r *Registry) Replace(engineID string, jobID id.JobID, handle Cancellable, desc Description) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.entries[engineID]
	for i, lj := range list {
		if lj.Description.JobID.String() == jobID.String() {
			list[i] = LiveJob{Handle: handle, Description: desc}

			return true
		}
	}

	return false
}

// Find returns the engine's live entry for jobID.
func (r *Registry) Find(engineID string, jobID id.JobID) (LiveJob, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, lj := range r.entries[engineID] {
		if lj.Description.JobID.String() == jobID.String() {
			return lj, true
		}
	}

	return LiveJob{}, false
}

// TakeAll removes and returns every live entry for the engine.
func (r *Registry) TakeAll(engineID string) []LiveJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.entries[engineID]
	delete(r.entries, engineID)

	return list
}

// Remove drops jobID from whichever engine holds it. Call sites that
// settle a job do not always know the owning engine, so this scans.
func (r *Registry) Remove(jobID id.JobID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for engineID, list := range r.entries {
		for i, lj := range list {
			if lj.Description.JobID.String() == jobID.String() {
				r.entries[engineID] = append(list[:i], list[i+1:]...)
				if len(r.entries[engineID]) == 0 {
					delete(r.entries, engineID)
				}

				return true
			}
		}
	}

	return false
}

// Len returns the total number of live entries across all engines.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, list := range r.entries {
		n += len(list)
	}

	return n
}
