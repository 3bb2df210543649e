package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jeethualex/harness"
	"github.com/jeethualex/harness/event"
)

// Factory builds a live Engine from its durable instance description.
// The event store gives the engine access to its dataset.
type Factory func(inst *Instance, events event.Store, logger *slog.Logger) (Engine, error)

// Factories maps factory names to constructors. Instances reference a
// factory by name; unknown names fail instantiation. Safe for
// concurrent use.
type Factories struct {
	mu     sync.RWMutex
	byName map[string]Factory
}

// NewFactories creates an empty factory registry.
func NewFactories() *Factories {
	return &Factories{
		byName: make(map[string]Factory),
	}
}

// Register adds a factory under the given name, replacing any previous
// registration.
func (f *Factories) Register(name string, fn Factory) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byName[name] = fn
}

// Get returns the factory registered under name.
// Returns false if none is registered.
func (f *Factories) Get(name string) (Factory, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	fn, ok := f.byName[name]

	return fn, ok
}

// Names returns all registered factory names.
func (f *Factories) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.byName))
	for name := range f.byName {
		names = append(names, name)
	}

	return names
}

// Build instantiates the engine for inst using its named factory.
func (f *Factories) Build(_ context.Context, inst *Instance, events event.Store, logger *slog.Logger) (Engine, error) {
	fn, ok := f.Get(inst.Factory)
	if !ok {
		return nil, fmt.Errorf("engine: factory %q for engine %q: %w", inst.Factory, inst.EngineID, harness.ErrUnknownFactory)
	}

	eng, err := fn(inst, events, logger)
	if err != nil {
		return nil, fmt.Errorf("engine: build %q with factory %q: %w", inst.EngineID, inst.Factory, err)
	}

	return eng, nil
}
