// Package backoff provides retry delay strategies for the job manager's
// background bookkeeping writes. All strategies are stateless and safe
// for concurrent use.
package backoff

import (
	"math/rand/v2"
	"time"
)

// Strategy computes the delay before a retry attempt.
type Strategy interface {
	// Delay returns how long to wait before retry attempt n (1-indexed).
	// Attempt 1 is the first retry after the initial failure.
	Delay(attempt int) time.Duration
}

// ──────────────────────────────────────────────────
// Constant
// ──────────────────────────────────────────────────

// Constant always returns the same delay regardless of attempt number.
type Constant struct {
	Interval time.Duration
}

// NewConstant creates a constant backoff strategy.
func NewConstant(interval time.Duration) *Constant {
	return &Constant{Interval: interval}
}

// Delay returns the fixed interval.
func (c *Constant) Delay(_ int) time.Duration {
	return c.Interval
}

// ──────────────────────────────────────────────────
// Exponential
// ──────────────────────────────────────────────────

// Exponential doubles the delay each attempt, capped at Max.
type Exponential struct {
	Initial time.Duration
	Max     time.Duration
}

// NewExponential creates an exponential backoff strategy.
func NewExponential(initial, maxDelay time.Duration) *Exponential {
	return &Exponential{Initial: initial, Max: maxDelay}
}

// Delay returns Initial * 2^(attempt-1), capped at Max.
func (e *Exponential) Delay(attempt int) time.Duration {
	return e.base(attempt)
}

func (e *Exponential) base(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := e.Initial
	for i := 1; i < attempt; i++ {
		d <<= 1
		if d <= 0 || (e.Max > 0 && d >= e.Max) {
			// Overflow or past the cap; no point doubling further.
			if e.Max > 0 {
				return e.Max
			}
			return d
		}
	}
	if e.Max > 0 && d > e.Max {
		return e.Max
	}
	return d
}

// ──────────────────────────────────────────────────
// ExponentialWithJitter
// ──────────────────────────────────────────────────

// ExponentialWithJitter draws a random delay from [0, base] where base
// doubles each attempt, capped at Max. The spread keeps simultaneous
// retries from hitting the store in lockstep.
type ExponentialWithJitter struct {
	exp Exponential
}

// NewExponentialWithJitter creates an exponential backoff with full jitter.
func NewExponentialWithJitter(initial, maxDelay time.Duration) *ExponentialWithJitter {
	return &ExponentialWithJitter{exp: Exponential{Initial: initial, Max: maxDelay}}
}

// Delay returns a random duration in [0, Initial * 2^(attempt-1)],
// capped at Max.
func (e *ExponentialWithJitter) Delay(attempt int) time.Duration {
	base := e.exp.base(attempt)
	if base <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(base) + 1)) //nolint:gosec // jitter intentionally uses non-crypto rand
}

// ──────────────────────────────────────────────────
// Default
// ──────────────────────────────────────────────────

// DefaultStrategy returns the default backoff used by the job manager's
// background writes: ExponentialWithJitter with 1s initial and 1m max.
func DefaultStrategy() Strategy {
	return NewExponentialWithJitter(1*time.Second, 1*time.Minute)
}
