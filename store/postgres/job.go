package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jeethualex/harness"
	"github.com/jeethualex/harness/id"
	"github.com/jeethualex/harness/job"
)

// InsertJob persists a new job record.
func (s *Store) InsertJob(ctx context.Context, r *job.Record) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO harness_jobs (
			id, engine_id, status, comment,
			completed_at, expire_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8
		)`,
		r.ID.String(), r.EngineID, string(r.Status), r.Comment,
		r.CompletedAt, r.ExpireAt, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return harness.ErrJobAlreadyExists
		}
		return fmt.Errorf("harness/postgres: insert job: %w", err)
	}
	return nil
}

// GetJob retrieves a job record by ID.
func (s *Store) GetJob(ctx context.Context, jobID id.JobID) (*job.Record, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT
			id, engine_id, status, comment,
			completed_at, expire_at, created_at, updated_at
		FROM harness_jobs
		WHERE id = $1`,
		jobID.String(),
	)

	r, err := scanRecord(row)
	if err != nil {
		if isNoRows(err) {
			return nil, harness.ErrJobNotFound
		}
		return nil, fmt.Errorf("harness/postgres: get job: %w", err)
	}
	return r, nil
}

// ListJobsByEngine returns every record owned by the engine, newest first.
// Records whose stored status no longer parses are skipped with a logged
// decode error.
func (s *Store) ListJobsByEngine(ctx context.Context, engineID string) ([]*job.Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT
			id, engine_id, status, comment,
			completed_at, expire_at, created_at, updated_at
		FROM harness_jobs
		WHERE engine_id = $1
		ORDER BY created_at DESC, id DESC`,
		engineID,
	)
	if err != nil {
		return nil, fmt.Errorf("harness/postgres: list jobs by engine: %w", err)
	}
	defer rows.Close()

	return s.collectRecords(rows)
}

// UpdateJobStatus writes a new status for an existing record. A nil
// completedAt leaves the completion column untouched.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID id.JobID, status job.Status, completedAt *time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE harness_jobs SET
			status = $2,
			completed_at = COALESCE($3, completed_at),
			updated_at = NOW()
		WHERE id = $1`,
		jobID.String(), string(status), completedAt,
	)
	if err != nil {
		return fmt.Errorf("harness/postgres: update job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return harness.ErrJobNotFound
	}
	return nil
}

// FailNonTerminalJobs marks every record not yet terminal as failed with
// the given completion time. The filter is negative so records with a
// corrupt status tag are swept too.
func (s *Store) FailNonTerminalJobs(ctx context.Context, at time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE harness_jobs SET
			status = 'failed',
			completed_at = $1,
			updated_at = NOW()
		WHERE status NOT IN ('successful', 'failed', 'cancelled')`,
		at,
	)
	if err != nil {
		return 0, fmt.Errorf("harness/postgres: fail non-terminal jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteJob removes a job record by ID.
func (s *Store) DeleteJob(ctx context.Context, jobID id.JobID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM harness_jobs WHERE id = $1`, jobID.String())
	if err != nil {
		return fmt.Errorf("harness/postgres: delete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return harness.ErrJobNotFound
	}
	return nil
}

// DeleteJobsByEngine removes every record owned by the engine.
func (s *Store) DeleteJobsByEngine(ctx context.Context, engineID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM harness_jobs WHERE engine_id = $1`, engineID)
	if err != nil {
		return 0, fmt.Errorf("harness/postgres: delete jobs by engine: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ── scan helpers ──

// scanRecord scans a single job record row.
func scanRecord(row pgx.Row) (*job.Record, error) {
	var (
		r         job.Record
		idStr     string
		statusStr string
	)
	err := row.Scan(
		&idStr, &r.EngineID, &statusStr, &r.Comment,
		&r.CompletedAt, &r.ExpireAt, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	parsedID, parseErr := id.ParseJobID(idStr)
	if parseErr != nil {
		return nil, fmt.Errorf("harness/postgres: job id %q: %w: %v", idStr, harness.ErrBadRecord, parseErr)
	}
	r.ID = parsedID

	status, statusErr := job.ParseStatus(statusStr)
	if statusErr != nil {
		return nil, fmt.Errorf("harness/postgres: job %s: %w", idStr, statusErr)
	}
	r.Status = status

	return &r, nil
}

// collectRecords collects all job records from query rows, skipping rows
// that no longer decode.
func (s *Store) collectRecords(rows pgx.Rows) ([]*job.Record, error) {
	var records []*job.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			s.logger.Error("skipping undecodable job record",
				slog.String("error", err.Error()))
			continue
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("harness/postgres: iterate job rows: %w", err)
	}
	return records, nil
}
