package event

import (
	"context"
	"time"
)

// ListOpts controls filtering for event list queries.
type ListOpts struct {
	// Since filters to events whose EventTime is at or after this
	// instant. Zero means no lower bound.
	Since time.Time
	// Limit is the maximum number of events to return. Zero means no
	// limit.
	Limit int
}

// Store defines the persistence contract for events.
type Store interface {
	// AppendEvent persists a new event under the given engine.
	AppendEvent(ctx context.Context, engineID string, evt *Event) error

	// ListEvents returns the engine's events ordered by event time
	// ascending.
	ListEvents(ctx context.Context, engineID string, opts ListOpts) ([]*Event, error)

	// DeleteEvents removes every event of the engine and returns the
	// number removed.
	DeleteEvents(ctx context.Context, engineID string) (int64, error)
}
