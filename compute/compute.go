// Package compute talks to external batch backends that execute training
// work outside this process. It supplies job.ExecutionCanceller
// implementations for the job manager's cancel path.
package compute

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jeethualex/harness/id"
	"github.com/jeethualex/harness/job"
)

// Client cancels batches on a remote compute backend over HTTP. Cancelling
// issues DELETE {base}/batches/{jobId}; a 404 means the batch is unknown or
// already settled and is not an error.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ job.ExecutionCanceller = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a Client for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// CancelExecution implements job.ExecutionCanceller.
func (c *Client) CancelExecution(ctx context.Context, jobID id.JobID) error {
	url := c.baseURL + "/batches/" + jobID.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("compute: cancel batch %s: %w", jobID, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("compute: cancel batch %s: %w", jobID, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		// Unknown to the backend: the batch never started or already settled.
		c.logger.Debug("batch not found on compute backend",
			slog.String("job_id", jobID.String()),
		)
		return nil
	default:
		return fmt.Errorf("compute: cancel batch %s: unexpected status %d", jobID, resp.StatusCode)
	}
}

// Noop is an ExecutionCanceller with no backend. Every cancellation
// succeeds immediately.
type Noop struct{}

var _ job.ExecutionCanceller = Noop{}

// CancelExecution implements job.ExecutionCanceller.
func (Noop) CancelExecution(context.Context, id.JobID) error { return nil }
