package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/jeethualex/harness/job"
)

// Logging returns middleware that logs run start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, engineID string, d *job.Description, next Handler) error {
		logger.Info("training started",
			slog.String("engine_id", engineID),
			slog.String("job_id", d.JobID.String()),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("training failed",
				slog.String("engine_id", engineID),
				slog.String("job_id", d.JobID.String()),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("training completed",
				slog.String("engine_id", engineID),
				slog.String("job_id", d.JobID.String()),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
