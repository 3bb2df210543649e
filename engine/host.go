package engine

import "sync"

// Host tracks the live engine instances of this process. It is the
// engine counterpart of the live job registry: a capability cache over
// the durable instance store. Safe for concurrent use.
type Host struct {
	mu      sync.RWMutex
	engines map[string]Engine
}

// NewHost creates an empty host.
func NewHost() *Host {
	return &Host{
		engines: make(map[string]Engine),
	}
}

// Put installs a live engine under its id, replacing any previous one.
func (h *Host) Put(eng Engine) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.engines[eng.ID()] = eng
}

// Get returns the live engine for engineID.
func (h *Host) Get(engineID string) (Engine, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	eng, ok := h.engines[engineID]

	return eng, ok
}

// Remove drops and returns the live engine for engineID.
func (h *Host) Remove(engineID string) (Engine, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	eng, ok := h.engines[engineID]
	if ok {
		delete(h.engines, engineID)
	}

	return eng, ok
}

// List returns the live engines in no particular order.
func (h *Host) List() []Engine {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Engine, 0, len(h.engines))
	for _, eng := range h.engines {
		out = append(out, eng)
	}

	return out
}

// IDs returns the ids of the live engines in no particular order.
func (h *Host) IDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.engines))
	for engineID := range h.engines {
		out = append(out, engineID)
	}

	return out
}

// Len returns the number of live engines.
func (h *Host) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.engines)
}
