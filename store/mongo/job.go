package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/jeethualex/harness"
	"github.com/jeethualex/harness/id"
	"github.com/jeethualex/harness/job"
)

// InsertJob persists a new job record.
func (s *Store) InsertJob(ctx context.Context, r *job.Record) error {
	m := toJobModel(r)
	_, err := s.db.Collection(colJobs).InsertOne(ctx, m)
	if err != nil {
		if isDuplicateKey(err) {
			return harness.ErrJobAlreadyExists
		}
		return fmt.Errorf("harness/mongo: insert job: %w", err)
	}
	return nil
}

// GetJob retrieves a job record by ID.
func (s *Store) GetJob(ctx context.Context, jobID id.JobID) (*job.Record, error) {
	var m jobModel
	err := s.db.Collection(colJobs).FindOne(ctx, bson.M{"_id": jobID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, harness.ErrJobNotFound
		}
		return nil, fmt.Errorf("harness/mongo: get job: %w", err)
	}
	return fromJobModel(&m)
}

// ListJobsByEngine returns every record owned by the engine, newest first.
// Records whose stored status no longer parses are skipped with a logged
// decode error.
func (s *Store) ListJobsByEngine(ctx context.Context, engineID string) ([]*job.Record, error) {
	findOpts := options.Find().SetSort(bson.D{
		{Key: "created_at", Value: -1},
		{Key: "_id", Value: -1},
	})

	cursor, err := s.db.Collection(colJobs).Find(ctx, bson.M{"engine_id": engineID}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("harness/mongo: list jobs by engine: %w", err)
	}
	defer cursor.Close(ctx)

	var models []jobModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("harness/mongo: list jobs decode: %w", err)
	}

	records := make([]*job.Record, 0, len(models))
	for i := range models {
		r, convErr := fromJobModel(&models[i])
		if convErr != nil {
			s.logger.Error("skipping undecodable job record",
				slog.String("job_id", models[i].ID),
				slog.String("error", convErr.Error()))
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

// UpdateJobStatus writes a new status for an existing record. A non-nil
// completedAt stamps the terminal completion time.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID id.JobID, status job.Status, completedAt *time.Time) error {
	set := bson.M{
		"status":     string(status),
		"updated_at": now(),
	}
	if completedAt != nil {
		set["completed_at"] = *completedAt
	}

	res, err := s.db.Collection(colJobs).UpdateOne(ctx,
		bson.M{"_id": jobID.String()},
		bson.M{"$set": set},
	)
	if err != nil {
		return fmt.Errorf("harness/mongo: update job status: %w", err)
	}
	if res.MatchedCount == 0 {
		return harness.ErrJobNotFound
	}
	return nil
}

// FailNonTerminalJobs marks every record not yet terminal as failed with
// the given completion time. The filter is negative so records with a
// corrupt status tag are swept too.
func (s *Store) FailNonTerminalJobs(ctx context.Context, at time.Time) (int64, error) {
	filter := bson.M{"status": bson.M{"$nin": []string{
		string(job.StatusSuccessful),
		string(job.StatusFailed),
		string(job.StatusCancelled),
	}}}

	res, err := s.db.Collection(colJobs).UpdateMany(ctx, filter, bson.M{
		"$set": bson.M{
			"status":       string(job.StatusFailed),
			"completed_at": at,
			"updated_at":   now(),
		},
	})
	if err != nil {
		return 0, fmt.Errorf("harness/mongo: fail non-terminal jobs: %w", err)
	}
	return res.ModifiedCount, nil
}

// DeleteJob removes a job record by ID.
func (s *Store) DeleteJob(ctx context.Context, jobID id.JobID) error {
	res, err := s.db.Collection(colJobs).DeleteOne(ctx, bson.M{"_id": jobID.String()})
	if err != nil {
		return fmt.Errorf("harness/mongo: delete job: %w", err)
	}
	if res.DeletedCount == 0 {
		return harness.ErrJobNotFound
	}
	return nil
}

// DeleteJobsByEngine removes every record owned by the engine.
func (s *Store) DeleteJobsByEngine(ctx context.Context, engineID string) (int64, error) {
	res, err := s.db.Collection(colJobs).DeleteMany(ctx, bson.M{"engine_id": engineID})
	if err != nil {
		return 0, fmt.Errorf("harness/mongo: delete jobs by engine: %w", err)
	}
	return res.DeletedCount, nil
}
