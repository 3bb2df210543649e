package engine

import (
	"context"
	"encoding/json"

	"github.com/jeethualex/harness"
	"github.com/jeethualex/harness/event"
)

// Engine is a live recommender serving one engine id. Implementations
// own their model state; harness feeds them events, runs their training,
// and routes queries to them.
type Engine interface {
	// ID returns the engine's resource id.
	ID() string

	// Input feeds one ingested event into the engine's dataset.
	Input(ctx context.Context, evt *event.Event) error

	// Query answers a recommendation query against the current model.
	Query(ctx context.Context, query json.RawMessage) (json.RawMessage, error)

	// Train rebuilds the model from the dataset. Long-running;
	// implementations honor ctx cancellation.
	Train(ctx context.Context) error

	// Destroy releases everything the engine holds. Called at teardown,
	// after the engine's jobs and events are gone.
	Destroy(ctx context.Context) error
}

// Instance is the durable description of one configured engine: which
// factory builds it and with what parameters. The EngineID is the
// caller-chosen resource id.
type Instance struct {
	harness.Entity

	EngineID string          `json:"engineId"`
	Factory  string          `json:"engineFactory"`
	Params   json.RawMessage `json:"params,omitempty"`
}
