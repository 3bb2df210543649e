package harness

import "errors"

var (
	// Store errors.
	ErrNoStore         = errors.New("harness: no store configured")
	ErrStoreClosed     = errors.New("harness: store closed")
	ErrMigrationFailed = errors.New("harness: migration failed")

	// Not found errors.
	ErrJobNotFound    = errors.New("harness: job not found")
	ErrEngineNotFound = errors.New("harness: engine not found")
	ErrEventNotFound  = errors.New("harness: event not found")

	// Conflict errors.
	ErrJobAlreadyExists = errors.New("harness: job already exists")
	ErrEngineExists     = errors.New("harness: engine already exists")

	// Decode errors.
	ErrUnknownStatus = errors.New("harness: unknown job status")
	ErrBadRecord     = errors.New("harness: bad record")

	// Engine errors.
	ErrUnknownFactory = errors.New("harness: unknown engine factory")
	ErrTrainingBusy   = errors.New("harness: training capacity exhausted")
)
