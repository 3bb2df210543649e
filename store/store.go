// Package store defines the aggregate persistence interface. Each
// subsystem (job, engine, event) defines its own store interface. The
// composite Store composes them all. Backends: Mongo, Postgres, Redis,
// and Memory.
package store

import (
	"context"

	"github.com/jeethualex/harness/engine"
	"github.com/jeethualex/harness/event"
	"github.com/jeethualex/harness/job"
)

// Store is the aggregate persistence interface. A single backend (mongo,
// postgres, redis, memory) implements all of the subsystem stores.
type Store interface {
	job.Store
	engine.Store
	event.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
