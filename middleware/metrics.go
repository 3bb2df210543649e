package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jeethualex/harness/job"
)

// meterName is the instrumentation scope name for harness metrics.
const meterName = "github.com/jeethualex/harness"

// Metrics returns middleware that records per-run training metrics using
// the global OTel MeterProvider. If no MeterProvider is configured, noop
// instruments are used and this middleware becomes a pass-through.
//
// Instruments:
//   - harness.train.duration (Float64Histogram): run time in seconds,
//     with attributes: engine_id, status ("ok" or "error")
//   - harness.train.runs (Int64Counter): total runs,
//     with attributes: engine_id, status ("ok" or "error")
func Metrics() Middleware {
	meter := otel.Meter(meterName)
	return MetricsWithMeter(meter)
}

// MetricsWithMeter returns metrics middleware using the provided meter.
// This variant allows injecting a specific MeterProvider for testing.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// Create instruments once at middleware construction time.
	// OTel instruments are safe for concurrent use. On error, the API
	// returns noop instruments so the middleware degrades gracefully.
	duration, dErr := meter.Float64Histogram(
		"harness.train.duration",
		metric.WithDescription("Duration of a training run in seconds"),
		metric.WithUnit("s"),
	)
	_ = dErr // noop fallback guaranteed by OTel API contract

	runs, rErr := meter.Int64Counter(
		"harness.train.runs",
		metric.WithDescription("Total number of training runs"),
		metric.WithUnit("{run}"),
	)
	_ = rErr // noop fallback guaranteed by OTel API contract

	return func(ctx context.Context, engineID string, _ *job.Description, next Handler) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start).Seconds()

		status := "ok"
		if err != nil {
			status = "error"
		}

		attrs := metric.WithAttributes(
			attribute.String("engine_id", engineID),
			attribute.String("status", status),
		)

		duration.Record(ctx, elapsed, attrs)
		runs.Add(ctx, 1, attrs)

		return err
	}
}
