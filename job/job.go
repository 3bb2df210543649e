package job

import (
	"fmt"
	"time"

	"github.com/jeethualex/harness"
	"github.com/jeethualex/harness/id"
)

// Status represents the lifecycle status of a job.
type Status string

const (
	// StatusQueued means the job is accepted and waiting to execute.
	StatusQueued Status = "queued"
	// StatusExecuting means the job is currently running.
	StatusExecuting Status = "executing"
	// StatusSuccessful means the job finished successfully.
	StatusSuccessful Status = "successful"
	// StatusFailed means the job failed and will not be retried.
	StatusFailed Status = "failed"
	// StatusCancelled means the job was cancelled on request.
	StatusCancelled Status = "cancelled"
	// StatusExpired means the job outlived its expiration deadline without
	// settling. Stores never persist it; reads derive it from ExpireAt.
	StatusExpired Status = "expired"
)

// ParseStatus converts a stored status tag into a Status. Unknown tags
// fail closed.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusQueued, StatusExecuting, StatusSuccessful, StatusFailed,
		StatusCancelled, StatusExpired:
		return Status(s), nil
	default:
		return "", fmt.Errorf("job: parse status %q: %w", s, harness.ErrUnknownStatus)
	}
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccessful, StatusFailed, StatusCancelled, StatusExpired:
		return true
	default:
		return false
	}
}

// Ordinal returns the sort rank of the status for status-ordered listings.
// Non-terminal statuses rank first.
func (s Status) Ordinal() int {
	switch s {
	case StatusQueued:
		return 0
	case StatusExecuting:
		return 1
	case StatusSuccessful:
		return 2
	case StatusFailed:
		return 3
	case StatusCancelled:
		return 4
	case StatusExpired:
		return 5
	default:
		return 6
	}
}

// Record is the durable bookkeeping row for one training job.
type Record struct {
	harness.Entity

	ID          id.JobID   `json:"jobId"`
	EngineID    string     `json:"engineId"`
	Status      Status     `json:"status"`
	Comment     string     `json:"comment"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	ExpireAt    time.Time  `json:"expireAt"`
}

// EffectiveStatus returns the status reads should report at the given
// time: a record still queued or executing past its ExpireAt reports
// expired, the stored value otherwise. The stored status is untouched.
func (r *Record) EffectiveStatus(now time.Time) Status {
	if !r.Status.Terminal() && !now.Before(r.ExpireAt) {
		return StatusExpired
	}

	return r.Status
}

// Description returns the record's public projection with the stored
// status.
func (r *Record) Description() Description {
	return Description{
		JobID:       r.ID,
		Status:      r.Status,
		Comment:     r.Comment,
		CreatedAt:   r.CreatedAt,
		CompletedAt: r.CompletedAt,
	}
}

// DescriptionAt returns the projection with the expiration overlay
// applied at the given time.
func (r *Record) DescriptionAt(now time.Time) Description {
	d := r.Description()
	d.Status = r.EffectiveStatus(now)

	return d
}

// Description is the public projection of a Record, with the owning
// engine and the expiration deadline stripped. It is what the status
// surface serializes.
type Description struct {
	JobID       id.JobID   `json:"jobId"`
	Status      Status     `json:"status"`
	Comment     string     `json:"comment"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}
