package redis

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jeethualex/harness"
	"github.com/jeethualex/harness/engine"
)

// CreateEngine persists a new engine instance.
func (s *Store) CreateEngine(ctx context.Context, inst *engine.Instance) error {
	key := engineKey(inst.EngineID)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("harness/redis: create engine exists: %w", err)
	}
	if exists > 0 {
		return harness.ErrEngineExists
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, instanceToMap(inst))
	pipe.SAdd(ctx, engineIDsKey, inst.EngineID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("harness/redis: create engine: %w", err)
	}
	return nil
}

// GetEngine retrieves an engine instance by engine id.
func (s *Store) GetEngine(ctx context.Context, engineID string) (*engine.Instance, error) {
	vals, err := s.client.HGetAll(ctx, engineKey(engineID)).Result()
	if err != nil {
		return nil, fmt.Errorf("harness/redis: get engine: %w", err)
	}
	if len(vals) == 0 {
		return nil, harness.ErrEngineNotFound
	}
	return mapToInstance(vals), nil
}

// ListEngines returns all engine instances ordered by creation time.
func (s *Store) ListEngines(ctx context.Context) ([]*engine.Instance, error) {
	ids, err := s.client.SMembers(ctx, engineIDsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("harness/redis: list engines smembers: %w", err)
	}

	instances := make([]*engine.Instance, 0, len(ids))
	for _, engineID := range ids {
		inst, getErr := s.GetEngine(ctx, engineID)
		if getErr != nil {
			s.logger.Error("skipping unreadable engine instance",
				slog.String("engine_id", engineID),
				slog.String("error", getErr.Error()))
			continue
		}
		instances = append(instances, inst)
	}

	sort.Slice(instances, func(i, k int) bool {
		if instances[i].CreatedAt.Equal(instances[k].CreatedAt) {
			return instances[i].EngineID < instances[k].EngineID
		}
		return instances[i].CreatedAt.Before(instances[k].CreatedAt)
	})
	return instances, nil
}

// UpdateEngine persists changes to an existing engine instance.
func (s *Store) UpdateEngine(ctx context.Context, inst *engine.Instance) error {
	key := engineKey(inst.EngineID)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("harness/redis: update engine exists: %w", err)
	}
	if exists == 0 {
		return harness.ErrEngineNotFound
	}

	fields := instanceToMap(inst)
	fields["updated_at"] = time.Now().UTC().Format(time.RFC3339Nano)

	if _, err := s.client.HSet(ctx, key, fields).Result(); err != nil {
		return fmt.Errorf("harness/redis: update engine: %w", err)
	}
	return nil
}

// DeleteEngine removes an engine instance by engine id.
func (s *Store) DeleteEngine(ctx context.Context, engineID string) error {
	key := engineKey(engineID)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("harness/redis: delete engine exists: %w", err)
	}
	if exists == 0 {
		return harness.ErrEngineNotFound
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.SRem(ctx, engineIDsKey, engineID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("harness/redis: delete engine: %w", err)
	}
	return nil
}

// ── helpers ──

func instanceToMap(inst *engine.Instance) map[string]interface{} {
	return map[string]interface{}{
		"id":         inst.EngineID,
		"factory":    inst.Factory,
		"params":     string(inst.Params),
		"created_at": inst.CreatedAt.Format(time.RFC3339Nano),
		"updated_at": inst.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func mapToInstance(m map[string]string) *engine.Instance {
	createdAt, _ := time.Parse(time.RFC3339Nano, m["created_at"]) //nolint:errcheck // best-effort parse from trusted Redis data
	updatedAt, _ := time.Parse(time.RFC3339Nano, m["updated_at"]) //nolint:errcheck // best-effort parse from trusted Redis data

	inst := &engine.Instance{
		Entity: harness.Entity{
			CreatedAt: createdAt,
			UpdatedAt: updatedAt,
		},
		EngineID: m["id"],
		Factory:  m["factory"],
	}
	if v := m["params"]; v != "" {
		inst.Params = []byte(v)
	}
	return inst
}
