package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jeethualex/harness"
	"github.com/jeethualex/harness/engine"
)

// CreateEngine persists a new engine instance.
func (s *Store) CreateEngine(ctx context.Context, inst *engine.Instance) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO harness_engines (id, factory, params, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		inst.EngineID, inst.Factory, inst.Params, inst.CreatedAt, inst.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return harness.ErrEngineExists
		}
		return fmt.Errorf("harness/postgres: create engine: %w", err)
	}
	return nil
}

// GetEngine retrieves an engine instance by engine id.
func (s *Store) GetEngine(ctx context.Context, engineID string) (*engine.Instance, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, factory, params, created_at, updated_at
		FROM harness_engines
		WHERE id = $1`,
		engineID,
	)

	inst, err := scanInstance(row)
	if err != nil {
		if isNoRows(err) {
			return nil, harness.ErrEngineNotFound
		}
		return nil, fmt.Errorf("harness/postgres: get engine: %w", err)
	}
	return inst, nil
}

// ListEngines returns all engine instances ordered by creation time.
func (s *Store) ListEngines(ctx context.Context) ([]*engine.Instance, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, factory, params, created_at, updated_at
		FROM harness_engines
		ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("harness/postgres: list engines: %w", err)
	}
	defer rows.Close()

	var instances []*engine.Instance
	for rows.Next() {
		inst, scanErr := scanInstance(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("harness/postgres: scan engine row: %w", scanErr)
		}
		instances = append(instances, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("harness/postgres: iterate engine rows: %w", err)
	}
	return instances, nil
}

// UpdateEngine persists changes to an existing engine instance.
func (s *Store) UpdateEngine(ctx context.Context, inst *engine.Instance) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE harness_engines SET
			factory = $2,
			params = $3,
			updated_at = NOW()
		WHERE id = $1`,
		inst.EngineID, inst.Factory, inst.Params,
	)
	if err != nil {
		return fmt.Errorf("harness/postgres: update engine: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return harness.ErrEngineNotFound
	}
	return nil
}

// DeleteEngine removes an engine instance by engine id.
func (s *Store) DeleteEngine(ctx context.Context, engineID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM harness_engines WHERE id = $1`, engineID)
	if err != nil {
		return fmt.Errorf("harness/postgres: delete engine: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return harness.ErrEngineNotFound
	}
	return nil
}

// scanInstance scans a single engine instance row.
func scanInstance(row pgx.Row) (*engine.Instance, error) {
	var inst engine.Instance
	err := row.Scan(
		&inst.EngineID, &inst.Factory, &inst.Params,
		&inst.CreatedAt, &inst.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inst, nil
}
