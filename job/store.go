package job

import (
	"context"
	"time"

	"github.com/jeethualex/harness/id"
)

// Store defines the persistence contract for job records.
//
// Stores do not police status transitions; concurrent writers to the same
// record resolve by commit order. On reads, a persisted status tag that no
// longer parses fails that record, not the whole query: list operations
// skip the bad record with a logged decode error, single-record lookups
// return it.
type Store interface {
	// InsertJob persists a new record.
	InsertJob(ctx context.Context, r *Record) error

	// GetJob retrieves a record by ID.
	GetJob(ctx context.Context, jobID id.JobID) (*Record, error)

	// ListJobsByEngine returns every record owned by the engine, ordered
	// by creation time descending.
	ListJobsByEngine(ctx context.Context, engineID string) ([]*Record, error)

	// UpdateJobStatus writes a new status for an existing record.
	// completedAt, when non-nil, stamps the terminal completion time.
	UpdateJobStatus(ctx context.Context, jobID id.JobID, status Status, completedAt *time.Time) error

	// FailNonTerminalJobs marks every record whose status is not terminal
	// as failed with the given completion time, and returns the number of
	// records changed.
	FailNonTerminalJobs(ctx context.Context, at time.Time) (int64, error)

	// DeleteJob removes a record by ID.
	DeleteJob(ctx context.Context, jobID id.JobID) error

	// DeleteJobsByEngine removes every record owned by the engine and
	// returns the number removed.
	DeleteJobsByEngine(ctx context.Context, engineID string) (int64, error)
}
