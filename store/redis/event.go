package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jeethualex/harness"
	"github.com/jeethualex/harness/event"
	"github.com/jeethualex/harness/id"
)

// AppendEvent persists a new event under the given engine.
func (s *Store) AppendEvent(ctx context.Context, engineID string, evt *event.Event) error {
	eID := evt.ID.String()

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, eventKey(eID), eventToMap(engineID, evt))
	pipe.ZAdd(ctx, engineEventsKey(engineID), goredis.Z{
		Score:  float64(evt.EventTime.UnixMilli()),
		Member: eID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("harness/redis: append event: %w", err)
	}
	return nil
}

// ListEvents returns the engine's events ordered by event time ascending.
func (s *Store) ListEvents(ctx context.Context, engineID string, opts event.ListOpts) ([]*event.Event, error) {
	rangeBy := &goredis.ZRangeBy{Min: "-inf", Max: "+inf"}
	if !opts.Since.IsZero() {
		rangeBy.Min = strconv.FormatInt(opts.Since.UnixMilli(), 10)
	}
	if opts.Limit > 0 {
		rangeBy.Count = int64(opts.Limit)
	}

	ids, err := s.client.ZRangeByScore(ctx, engineEventsKey(engineID), rangeBy).Result()
	if err != nil {
		return nil, fmt.Errorf("harness/redis: list events zrangebyscore: %w", err)
	}

	events := make([]*event.Event, 0, len(ids))
	for _, eID := range ids {
		vals, getErr := s.client.HGetAll(ctx, eventKey(eID)).Result()
		if getErr != nil {
			return nil, fmt.Errorf("harness/redis: list events get: %w", getErr)
		}
		if len(vals) == 0 {
			continue
		}

		evt, convErr := mapToEvent(vals)
		if convErr != nil {
			s.logger.Error("skipping undecodable event",
				slog.String("event_id", eID),
				slog.String("error", convErr.Error()))
			continue
		}
		events = append(events, evt)
	}
	return events, nil
}

// DeleteEvents removes every event of the engine.
func (s *Store) DeleteEvents(ctx context.Context, engineID string) (int64, error) {
	setKey := engineEventsKey(engineID)
	ids, err := s.client.ZRange(ctx, setKey, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("harness/redis: delete events zrange: %w", err)
	}

	pipe := s.client.TxPipeline()
	for _, eID := range ids {
		pipe.Del(ctx, eventKey(eID))
	}
	pipe.Del(ctx, setKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("harness/redis: delete events: %w", err)
	}
	return int64(len(ids)), nil
}

// ── helpers ──

func eventToMap(engineID string, evt *event.Event) map[string]interface{} {
	m := map[string]interface{}{
		"id":          evt.ID.String(),
		"engine_id":   engineID,
		"name":        evt.Name,
		"entity_type": evt.EntityType,
		"entity_id":   evt.EntityID,
		"event_time":  evt.EventTime.Format(time.RFC3339Nano),
		"created_at":  evt.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":  evt.UpdatedAt.Format(time.RFC3339Nano),
	}
	if evt.TargetEntityType != "" {
		m["target_entity_type"] = evt.TargetEntityType
	}
	if evt.TargetEntityID != "" {
		m["target_entity_id"] = evt.TargetEntityID
	}
	if len(evt.Properties) > 0 {
		m["properties"] = string(evt.Properties)
	}
	return m
}

func mapToEvent(m map[string]string) (*event.Event, error) {
	eID, err := id.ParseEventID(m["id"])
	if err != nil {
		return nil, fmt.Errorf("harness/redis: event id %q: %w: %v", m["id"], harness.ErrBadRecord, err)
	}

	eventTime, _ := time.Parse(time.RFC3339Nano, m["event_time"]) //nolint:errcheck // best-effort parse from trusted Redis data
	createdAt, _ := time.Parse(time.RFC3339Nano, m["created_at"]) //nolint:errcheck // best-effort parse from trusted Redis data
	updatedAt, _ := time.Parse(time.RFC3339Nano, m["updated_at"]) //nolint:errcheck // best-effort parse from trusted Redis data

	evt := &event.Event{
		Entity: harness.Entity{
			CreatedAt: createdAt,
			UpdatedAt: updatedAt,
		},
		ID:               eID,
		Name:             m["name"],
		EntityType:       m["entity_type"],
		EntityID:         m["entity_id"],
		TargetEntityType: m["target_entity_type"],
		TargetEntityID:   m["target_entity_id"],
		EventTime:        eventTime,
	}
	if v := m["properties"]; v != "" {
		evt.Properties = []byte(v)
	}
	return evt, nil
}
