package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jeethualex/harness"
	"github.com/jeethualex/harness/id"
	"github.com/jeethualex/harness/job"
)

// InsertJob stores the record as a Hash and adds it to the engine's
// Sorted Set, scored by creation time.
func (s *Store) InsertJob(ctx context.Context, r *job.Record) error {
	jID := r.ID.String()
	key := jobKey(jID)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("harness/redis: insert check exists: %w", err)
	}
	if exists > 0 {
		return harness.ErrJobAlreadyExists
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, recordToMap(r))
	pipe.SAdd(ctx, jobIDsKey, jID)
	pipe.ZAdd(ctx, engineJobsKey(r.EngineID), goredis.Z{
		Score:  float64(r.CreatedAt.UnixMilli()),
		Member: jID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("harness/redis: insert job: %w", err)
	}
	return nil
}

// GetJob retrieves a job record by ID.
func (s *Store) GetJob(ctx context.Context, jobID id.JobID) (*job.Record, error) {
	return s.getJobByKey(ctx, jobKey(jobID.String()))
}

// ListJobsByEngine returns every record owned by the engine, newest first.
// Records whose stored fields no longer decode are skipped with a logged
// error.
func (s *Store) ListJobsByEngine(ctx context.Context, engineID string) ([]*job.Record, error) {
	ids, err := s.client.ZRevRange(ctx, engineJobsKey(engineID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("harness/redis: list jobs zrevrange: %w", err)
	}

	records := make([]*job.Record, 0, len(ids))
	for _, jID := range ids {
		r, getErr := s.getJobByKey(ctx, jobKey(jID))
		if getErr != nil {
			s.logger.Error("skipping undecodable job record",
				slog.String("job_id", jID),
				slog.String("error", getErr.Error()))
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

// UpdateJobStatus writes a new status for an existing record. A non-nil
// completedAt stamps the terminal completion time.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID id.JobID, status job.Status, completedAt *time.Time) error {
	key := jobKey(jobID.String())

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("harness/redis: update status exists: %w", err)
	}
	if exists == 0 {
		return harness.ErrJobNotFound
	}

	fields := map[string]interface{}{
		"status":     string(status),
		"updated_at": time.Now().UTC().Format(time.RFC3339Nano),
	}
	if completedAt != nil {
		fields["completed_at"] = completedAt.Format(time.RFC3339Nano)
	}

	if _, err := s.client.HSet(ctx, key, fields).Result(); err != nil {
		return fmt.Errorf("harness/redis: update job status: %w", err)
	}
	return nil
}

// FailNonTerminalJobs marks every record not yet settled as failed with
// the given completion time. The check is against the settled statuses
// themselves, not Terminal(), so a stray stored "expired" tag is swept
// rather than skipped.
func (s *Store) FailNonTerminalJobs(ctx context.Context, at time.Time) (int64, error) {
	ids, err := s.client.SMembers(ctx, jobIDsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("harness/redis: fail non-terminal smembers: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	var count int64
	for _, jID := range ids {
		key := jobKey(jID)
		status, getErr := s.client.HGet(ctx, key, "status").Result()
		if getErr != nil {
			if errors.Is(getErr, goredis.Nil) {
				continue
			}
			return count, fmt.Errorf("harness/redis: fail non-terminal get status: %w", getErr)
		}
		switch job.Status(status) {
		case job.StatusSuccessful, job.StatusFailed, job.StatusCancelled:
			continue
		}

		_, setErr := s.client.HSet(ctx, key,
			"status", string(job.StatusFailed),
			"completed_at", at.Format(time.RFC3339Nano),
			"updated_at", now,
		).Result()
		if setErr != nil {
			return count, fmt.Errorf("harness/redis: fail non-terminal update: %w", setErr)
		}
		count++
	}
	return count, nil
}

// DeleteJob removes a job record by ID.
func (s *Store) DeleteJob(ctx context.Context, jobID id.JobID) error {
	jID := jobID.String()
	key := jobKey(jID)

	// Owning engine is needed to remove the sorted-set membership.
	engineID, err := s.client.HGet(ctx, key, "engine_id").Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return harness.ErrJobNotFound
		}
		return fmt.Errorf("harness/redis: delete job get engine: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.SRem(ctx, jobIDsKey, jID)
	pipe.ZRem(ctx, engineJobsKey(engineID), jID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("harness/redis: delete job: %w", err)
	}
	return nil
}

// DeleteJobsByEngine removes every record owned by the engine.
func (s *Store) DeleteJobsByEngine(ctx context.Context, engineID string) (int64, error) {
	setKey := engineJobsKey(engineID)
	ids, err := s.client.ZRange(ctx, setKey, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("harness/redis: delete jobs zrange: %w", err)
	}

	pipe := s.client.TxPipeline()
	for _, jID := range ids {
		pipe.Del(ctx, jobKey(jID))
		pipe.SRem(ctx, jobIDsKey, jID)
	}
	pipe.Del(ctx, setKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("harness/redis: delete jobs by engine: %w", err)
	}
	return int64(len(ids)), nil
}

// ── helpers ──

func recordToMap(r *job.Record) map[string]interface{} {
	m := map[string]interface{}{
		"id":         r.ID.String(),
		"engine_id":  r.EngineID,
		"status":     string(r.Status),
		"comment":    r.Comment,
		"expire_at":  r.ExpireAt.Format(time.RFC3339Nano),
		"created_at": r.CreatedAt.Format(time.RFC3339Nano),
		"updated_at": r.UpdatedAt.Format(time.RFC3339Nano),
	}
	if r.CompletedAt != nil {
		m["completed_at"] = r.CompletedAt.Format(time.RFC3339Nano)
	}
	return m
}

func (s *Store) getJobByKey(ctx context.Context, key string) (*job.Record, error) {
	vals, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("harness/redis: get job: %w", err)
	}
	if len(vals) == 0 {
		return nil, harness.ErrJobNotFound
	}
	return mapToRecord(vals)
}

func mapToRecord(m map[string]string) (*job.Record, error) {
	jID, err := id.ParseJobID(m["id"])
	if err != nil {
		return nil, fmt.Errorf("harness/redis: job id %q: %w: %v", m["id"], harness.ErrBadRecord, err)
	}

	status, err := job.ParseStatus(m["status"])
	if err != nil {
		return nil, fmt.Errorf("harness/redis: job %s: %w", m["id"], err)
	}

	expireAt, _ := time.Parse(time.RFC3339Nano, m["expire_at"])   //nolint:errcheck // best-effort parse from trusted Redis data
	createdAt, _ := time.Parse(time.RFC3339Nano, m["created_at"]) //nolint:errcheck // best-effort parse from trusted Redis data
	updatedAt, _ := time.Parse(time.RFC3339Nano, m["updated_at"]) //nolint:errcheck // best-effort parse from trusted Redis data

	r := &job.Record{
		Entity: harness.Entity{
			CreatedAt: createdAt,
			UpdatedAt: updatedAt,
		},
		ID:       jID,
		EngineID: m["engine_id"],
		Status:   status,
		Comment:  m["comment"],
		ExpireAt: expireAt,
	}

	if v := m["completed_at"]; v != "" {
		t, _ := time.Parse(time.RFC3339Nano, v) //nolint:errcheck // best-effort parse from trusted Redis data
		r.CompletedAt = &t
	}

	return r, nil
}
