package harness

import "time"

// Entity carries the timestamps shared by durable records.
type Entity struct {
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at"`
}

// NewEntity returns an Entity stamped with the current UTC time.
func NewEntity() Entity {
	now := time.Now().UTC()
	return Entity{CreatedAt: now, UpdatedAt: now}
}

// Touch refreshes UpdatedAt. Stores call it before persisting a change.
func (e *Entity) Touch() {
	e.UpdatedAt = time.Now().UTC()
}
