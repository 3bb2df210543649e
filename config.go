package harness

import "time"

// Config holds configuration for a harness server.
type Config struct {
	// Addr is the listen address for the HTTP API.
	Addr string

	// JobExpireAfter is how long a job may remain non-terminal before
	// reads report it as expired.
	JobExpireAfter time.Duration

	// TrainConcurrency is the maximum number of training runs executing
	// concurrently for a single engine.
	TrainConcurrency int

	// TrainInterval is the minimum spacing between accepted training
	// requests for a single engine. Zero disables the spacing check.
	TrainInterval time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration

	// ComputeURL is the base URL of an external batch backend that runs
	// training work. Empty means no remote cancellation is attempted.
	ComputeURL string
}

// DefaultConfig returns a Config with sensible defaults: one training
// run per engine at a time, no start spacing, jobs expiring after 12h.
func DefaultConfig() Config {
	return Config{
		Addr:             ":9090",
		JobExpireAfter:   12 * time.Hour,
		TrainConcurrency: 1,
		ShutdownTimeout:  30 * time.Second,
	}
}
