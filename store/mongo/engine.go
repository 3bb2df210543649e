package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/jeethualex/harness"
	"github.com/jeethualex/harness/engine"
)

// CreateEngine persists a new engine instance.
func (s *Store) CreateEngine(ctx context.Context, inst *engine.Instance) error {
	m := toEngineModel(inst)
	_, err := s.db.Collection(colEngines).InsertOne(ctx, m)
	if err != nil {
		if isDuplicateKey(err) {
			return harness.ErrEngineExists
		}
		return fmt.Errorf("harness/mongo: create engine: %w", err)
	}
	return nil
}

// GetEngine retrieves an engine instance by engine id.
func (s *Store) GetEngine(ctx context.Context, engineID string) (*engine.Instance, error) {
	var m engineModel
	err := s.db.Collection(colEngines).FindOne(ctx, bson.M{"_id": engineID}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, harness.ErrEngineNotFound
		}
		return nil, fmt.Errorf("harness/mongo: get engine: %w", err)
	}
	return fromEngineModel(&m), nil
}

// ListEngines returns all engine instances ordered by creation time.
func (s *Store) ListEngines(ctx context.Context) ([]*engine.Instance, error) {
	findOpts := options.Find().SetSort(bson.D{
		{Key: "created_at", Value: 1},
		{Key: "_id", Value: 1},
	})

	cursor, err := s.db.Collection(colEngines).Find(ctx, bson.M{}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("harness/mongo: list engines: %w", err)
	}
	defer cursor.Close(ctx)

	var models []engineModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("harness/mongo: list engines decode: %w", err)
	}

	instances := make([]*engine.Instance, 0, len(models))
	for i := range models {
		instances = append(instances, fromEngineModel(&models[i]))
	}
	return instances, nil
}

// UpdateEngine persists changes to an existing engine instance.
func (s *Store) UpdateEngine(ctx context.Context, inst *engine.Instance) error {
	m := toEngineModel(inst)
	m.UpdatedAt = now()
	res, err := s.db.Collection(colEngines).ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	if err != nil {
		return fmt.Errorf("harness/mongo: update engine: %w", err)
	}
	if res.MatchedCount == 0 {
		return harness.ErrEngineNotFound
	}
	return nil
}

// DeleteEngine removes an engine instance by engine id.
func (s *Store) DeleteEngine(ctx context.Context, engineID string) error {
	res, err := s.db.Collection(colEngines).DeleteOne(ctx, bson.M{"_id": engineID})
	if err != nil {
		return fmt.Errorf("harness/mongo: delete engine: %w", err)
	}
	if res.DeletedCount == 0 {
		return harness.ErrEngineNotFound
	}
	return nil
}
