package job

// Options configures a job at creation time.
type Options struct {
	// Comment is a free-text annotation stored with the job. Immutable
	// after creation.
	Comment string

	// Status is the initial status. Defaults to StatusQueued.
	Status Status

	// Handle is the cancellation handle registered for the job.
	Handle Cancellable
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Status: StatusQueued,
		Handle: Noop(),
	}
}

// Option is a functional option for AddJob.
type Option func(*Options)

// WithComment annotates the job with a free-text comment.
func WithComment(c string) Option {
	return func(o *Options) {
		o.Comment = c
	}
}

// WithInitStatus sets the initial status for the job.
func WithInitStatus(s Status) Option {
	return func(o *Options) {
		o.Status = s
	}
}

// WithCancellable registers the cancellation handle for the job.
func WithCancellable(c Cancellable) Option {
	return func(o *Options) {
		o.Handle = c
	}
}
