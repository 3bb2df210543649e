package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/jeethualex/harness/event"
)

// AppendEvent persists a new event under the given engine.
func (s *Store) AppendEvent(ctx context.Context, engineID string, evt *event.Event) error {
	m := toEventModel(engineID, evt)
	_, err := s.db.Collection(colEvents).InsertOne(ctx, m)
	if err != nil {
		return fmt.Errorf("harness/mongo: append event: %w", err)
	}
	return nil
}

// ListEvents returns the engine's events ordered by event time ascending.
func (s *Store) ListEvents(ctx context.Context, engineID string, opts event.ListOpts) ([]*event.Event, error) {
	filter := bson.M{"engine_id": engineID}
	if !opts.Since.IsZero() {
		filter["event_time"] = bson.M{"$gte": opts.Since}
	}

	findOpts := options.Find().SetSort(bson.D{
		{Key: "event_time", Value: 1},
		{Key: "_id", Value: 1},
	})
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}

	cursor, err := s.db.Collection(colEvents).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("harness/mongo: list events: %w", err)
	}
	defer cursor.Close(ctx)

	var models []eventModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("harness/mongo: list events decode: %w", err)
	}

	events := make([]*event.Event, 0, len(models))
	for i := range models {
		evt, convErr := fromEventModel(&models[i])
		if convErr != nil {
			s.logger.Error("skipping undecodable event",
				slog.String("event_id", models[i].ID),
				slog.String("error", convErr.Error()))
			continue
		}
		events = append(events, evt)
	}
	return events, nil
}

// DeleteEvents removes every event of the engine.
func (s *Store) DeleteEvents(ctx context.Context, engineID string) (int64, error) {
	res, err := s.db.Collection(colEvents).DeleteMany(ctx, bson.M{"engine_id": engineID})
	if err != nil {
		return 0, fmt.Errorf("harness/mongo: delete events: %w", err)
	}
	return res.DeletedCount, nil
}
