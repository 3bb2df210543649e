// Package event defines the ingestion data model engines train on.
package event

import (
	"encoding/json"
	"time"

	"github.com/jeethualex/harness"
	"github.com/jeethualex/harness/id"
)

// Event is one ingested datapoint for an engine: a user action such as
// "buy" or "view", or a property change. The ID is assigned at ingestion;
// EventTime is when the action happened on the client side.
type Event struct {
	harness.Entity

	ID               id.EventID      `json:"eventId"`
	Name             string          `json:"event"`
	EntityType       string          `json:"entityType"`
	EntityID         string          `json:"entityId"`
	TargetEntityType string          `json:"targetEntityType,omitempty"`
	TargetEntityID   string          `json:"targetEntityId,omitempty"`
	Properties       json.RawMessage `json:"properties,omitempty"`
	EventTime        time.Time       `json:"eventTime"`
}
