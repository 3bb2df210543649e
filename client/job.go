package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jeethualex/harness/api"
	"github.com/jeethualex/harness/id"
	"github.com/jeethualex/harness/job"
)

// StartJob starts a training run for the engine and returns the job
// tracking it. The run executes on the server in the background; poll
// ActiveJobs for its progress.
func (c *Client) StartJob(ctx context.Context, engineID, comment string) (job.Description, error) {
	var desc job.Description
	req := api.StartJobRequest{Comment: comment}
	if err := c.do(ctx, http.MethodPost, enginePath(engineID)+"/jobs", req, &desc); err != nil {
		return job.Description{}, fmt.Errorf("client: start job for %q: %w", engineID, err)
	}
	return desc, nil
}

// ActiveJobs returns the engine's queued and executing jobs plus its
// most recent settled ones.
func (c *Client) ActiveJobs(ctx context.Context, engineID string) ([]job.Description, error) {
	var jobs []job.Description
	if err := c.do(ctx, http.MethodGet, enginePath(engineID)+"/jobs", nil, &jobs); err != nil {
		return nil, fmt.Errorf("client: list jobs for %q: %w", engineID, err)
	}
	return jobs, nil
}

// CancelJob cancels a training run. Cancelling a finished or unknown
// job is not an error.
func (c *Client) CancelJob(ctx context.Context, engineID string, jobID id.JobID) error {
	if err := c.do(ctx, http.MethodDelete, enginePath(engineID)+"/jobs/"+jobID.String(), nil, nil); err != nil {
		return fmt.Errorf("client: cancel job %s: %w", jobID, err)
	}
	return nil
}

// JobStatuses returns the active jobs of every engine on the server,
// keyed by engine id.
func (c *Client) JobStatuses(ctx context.Context) (map[string][]job.Description, error) {
	var statuses map[string][]job.Description
	if err := c.do(ctx, http.MethodGet, "/jobs/statuses", nil, &statuses); err != nil {
		return nil, fmt.Errorf("client: job statuses: %w", err)
	}
	return statuses, nil
}
