package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/jeethualex/harness"
	"github.com/jeethualex/harness/event"
	"github.com/jeethualex/harness/id"
)

// AppendEvent persists a new event under the given engine.
func (s *Store) AppendEvent(ctx context.Context, engineID string, evt *event.Event) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO harness_events (
			id, engine_id, name, entity_type, entity_id,
			target_entity_type, target_entity_id, properties,
			event_time, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11
		)`,
		evt.ID.String(), engineID, evt.Name, evt.EntityType, evt.EntityID,
		evt.TargetEntityType, evt.TargetEntityID, evt.Properties,
		evt.EventTime, evt.CreatedAt, evt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("harness/postgres: append event: %w", err)
	}
	return nil
}

// ListEvents returns the engine's events ordered by event time ascending.
func (s *Store) ListEvents(ctx context.Context, engineID string, opts event.ListOpts) ([]*event.Event, error) {
	query := `
		SELECT
			id, name, entity_type, entity_id,
			target_entity_type, target_entity_id, properties,
			event_time, created_at, updated_at
		FROM harness_events
		WHERE engine_id = $1`
	args := []interface{}{engineID}
	argIdx := 2

	if !opts.Since.IsZero() {
		query += fmt.Sprintf(" AND event_time >= $%d", argIdx)
		args = append(args, opts.Since)
		argIdx++
	}

	query += " ORDER BY event_time ASC, id ASC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("harness/postgres: list events: %w", err)
	}
	defer rows.Close()

	var events []*event.Event
	for rows.Next() {
		evt, scanErr := scanEvent(rows)
		if scanErr != nil {
			s.logger.Error("skipping undecodable event",
				slog.String("error", scanErr.Error()))
			continue
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("harness/postgres: iterate event rows: %w", err)
	}
	return events, nil
}

// DeleteEvents removes every event of the engine.
func (s *Store) DeleteEvents(ctx context.Context, engineID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM harness_events WHERE engine_id = $1`, engineID)
	if err != nil {
		return 0, fmt.Errorf("harness/postgres: delete events: %w", err)
	}
	return tag.RowsAffected(), nil
}

// scanEvent scans a single event row.
func scanEvent(row pgx.Row) (*event.Event, error) {
	var (
		evt   event.Event
		idStr string
	)
	err := row.Scan(
		&idStr, &evt.Name, &evt.EntityType, &evt.EntityID,
		&evt.TargetEntityType, &evt.TargetEntityID, &evt.Properties,
		&evt.EventTime, &evt.CreatedAt, &evt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	parsedID, parseErr := id.ParseEventID(idStr)
	if parseErr != nil {
		return nil, fmt.Errorf("harness/postgres: event id %q: %w: %v", idStr, harness.ErrBadRecord, parseErr)
	}
	evt.ID = parsedID

	return &evt, nil
}
