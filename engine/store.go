package engine

import "context"

// Store defines the persistence contract for engine instances.
type Store interface {
	// CreateEngine persists a new instance.
	CreateEngine(ctx context.Context, inst *Instance) error

	// GetEngine retrieves an instance by engine id.
	GetEngine(ctx context.Context, engineID string) (*Instance, error)

	// ListEngines returns all instances ordered by creation time.
	ListEngines(ctx context.Context) ([]*Instance, error)

	// UpdateEngine persists changes to an existing instance.
	UpdateEngine(ctx context.Context, inst *Instance) error

	// DeleteEngine removes an instance by engine id.
	DeleteEngine(ctx context.Context, engineID string) error
}
