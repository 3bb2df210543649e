package trainer

import (
	"sync"

	"golang.org/x/time/rate"
)

// Config defines per-engine training admission: how many runs may
// execute simultaneously and how fast new runs may start.
type Config struct {
	// MaxConcurrent limits simultaneous training runs for one engine.
	// Zero means no limit.
	MaxConcurrent int

	// RateLimit is the maximum sustained run starts per second. Zero
	// disables rate limiting.
	RateLimit float64

	// RateBurst is the burst size for the token-bucket rate limiter.
	// Defaults to 1 if RateLimit is set but RateBurst is zero.
	RateBurst int
}

// DefaultConfig returns the default admission policy: one training run
// per engine at a time, no rate limit.
func DefaultConfig() Config {
	return Config{MaxConcurrent: 1}
}

// engineState tracks runtime admission state for a single engine.
type engineState struct {
	config  Config
	limiter *rate.Limiter
	active  int
}

// Limits controls per-engine training admission. Engines without an
// explicit configuration use the defaults given at construction. It is
// safe for concurrent use.
type Limits struct {
	mu       sync.Mutex
	defaults Config
	engines  map[string]*engineState
}

// NewLimits creates a Limits applying def to every engine without an
// explicit configuration.
func NewLimits(def Config) *Limits {
	return &Limits{
		defaults: def,
		engines:  make(map[string]*engineState),
	}
}

func newEngineState(cfg Config) *engineState {
	es := &engineState{config: cfg}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		es.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return es
}

// SetEngineConfig overrides the admission policy for one engine.
// Calling it again replaces the previous override; the active count
// carries over.
func (l *Limits) SetEngineConfig(engineID string, cfg Config) {
	l.mu.Lock()
	defer l.mu.Unlock()

	existing := l.engines[engineID]
	es := newEngineState(cfg)
	if existing != nil {
		es.active = existing.active
	}
	l.engines[engineID] = es
}

// Acquire checks rate and concurrency limits for the engine. If a new
// run may start it increments the active counter and returns true. The
// caller MUST call Release when the run completes.
func (l *Limits) Acquire(engineID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	es := l.state(engineID)
	if es.limiter != nil && !es.limiter.Allow() {
		return false
	}
	if es.config.MaxConcurrent > 0 && es.active >= es.config.MaxConcurrent {
		return false
	}
	es.active++

	return true
}

// Release decrements the engine's active run count.
func (l *Limits) Release(engineID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if es := l.engines[engineID]; es != nil && es.active > 0 {
		es.active--
	}
}

// ActiveCount returns the engine's current number of active runs.
func (l *Limits) ActiveCount(engineID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if es := l.engines[engineID]; es != nil {
		return es.active
	}
	return 0
}

// state returns the engine's admission state, creating it from the
// defaults on first use. Caller holds l.mu.
func (l *Limits) state(engineID string) *engineState {
	es := l.engines[engineID]
	if es == nil {
		es = newEngineState(l.defaults)
		l.engines[engineID] = es
	}
	return es
}
