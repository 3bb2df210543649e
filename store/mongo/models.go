package mongo

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jeethualex/harness"
	"github.com/jeethualex/harness/engine"
	"github.com/jeethualex/harness/event"
	"github.com/jeethualex/harness/id"
	"github.com/jeethualex/harness/job"
)

// ── Job model ─────────────────────────────────────────────────────

type jobModel struct {
	ID          string     `bson:"_id"`
	EngineID    string     `bson:"engine_id"`
	Status      string     `bson:"status"`
	Comment     string     `bson:"comment"`
	CompletedAt *time.Time `bson:"completed_at,omitempty"`
	ExpireAt    time.Time  `bson:"expire_at"`
	CreatedAt   time.Time  `bson:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at"`
}

func toJobModel(r *job.Record) *jobModel {
	return &jobModel{
		ID:          r.ID.String(),
		EngineID:    r.EngineID,
		Status:      string(r.Status),
		Comment:     r.Comment,
		CompletedAt: r.CompletedAt,
		ExpireAt:    r.ExpireAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func fromJobModel(m *jobModel) (*job.Record, error) {
	parsedID, err := id.ParseJobID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("harness/mongo: job id %q: %w: %v", m.ID, harness.ErrBadRecord, err)
	}

	status, err := job.ParseStatus(m.Status)
	if err != nil {
		return nil, fmt.Errorf("harness/mongo: job %s: %w", m.ID, err)
	}

	return &job.Record{
		Entity: harness.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:          parsedID,
		EngineID:    m.EngineID,
		Status:      status,
		Comment:     m.Comment,
		CompletedAt: m.CompletedAt,
		ExpireAt:    m.ExpireAt,
	}, nil
}

// ── Engine model ──────────────────────────────────────────────────

type engineModel struct {
	ID        string    `bson:"_id"`
	Factory   string    `bson:"factory"`
	Params    []byte    `bson:"params,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func toEngineModel(inst *engine.Instance) *engineModel {
	return &engineModel{
		ID:        inst.EngineID,
		Factory:   inst.Factory,
		Params:    []byte(inst.Params),
		CreatedAt: inst.CreatedAt,
		UpdatedAt: inst.UpdatedAt,
	}
}

func fromEngineModel(m *engineModel) *engine.Instance {
	return &engine.Instance{
		Entity: harness.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		EngineID: m.ID,
		Factory:  m.Factory,
		Params:   json.RawMessage(m.Params),
	}
}

// ── Event model ───────────────────────────────────────────────────

type eventModel struct {
	ID               string    `bson:"_id"`
	EngineID         string    `bson:"engine_id"`
	Name             string    `bson:"name"`
	EntityType       string    `bson:"entity_type"`
	EntityID         string    `bson:"entity_id"`
	TargetEntityType string    `bson:"target_entity_type,omitempty"`
	TargetEntityID   string    `bson:"target_entity_id,omitempty"`
	Properties       []byte    `bson:"properties,omitempty"`
	EventTime        time.Time `bson:"event_time"`
	CreatedAt        time.Time `bson:"created_at"`
	UpdatedAt        time.Time `bson:"updated_at"`
}

func toEventModel(engineID string, evt *event.Event) *eventModel {
	return &eventModel{
		ID:               evt.ID.String(),
		EngineID:         engineID,
		Name:             evt.Name,
		EntityType:       evt.EntityType,
		EntityID:         evt.EntityID,
		TargetEntityType: evt.TargetEntityType,
		TargetEntityID:   evt.TargetEntityID,
		Properties:       []byte(evt.Properties),
		EventTime:        evt.EventTime,
		CreatedAt:        evt.CreatedAt,
		UpdatedAt:        evt.UpdatedAt,
	}
}

func fromEventModel(m *eventModel) (*event.Event, error) {
	parsedID, err := id.ParseEventID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("harness/mongo: event id %q: %w: %v", m.ID, harness.ErrBadRecord, err)
	}

	return &event.Event{
		Entity: harness.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:               parsedID,
		Name:             m.Name,
		EntityType:       m.EntityType,
		EntityID:         m.EntityID,
		TargetEntityType: m.TargetEntityType,
		TargetEntityID:   m.TargetEntityID,
		Properties:       json.RawMessage(m.Properties),
		EventTime:        m.EventTime,
	}, nil
}
