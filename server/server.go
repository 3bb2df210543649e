// Package server wires all harness subsystems together: store, job
// manager, factory registry, engine host, trainer, and the HTTP API.
//
// This package exists to break the import cycle: the root harness
// package defines Entity and the error sentinels (imported by job,
// engine, event) and so cannot import those packages back. The server
// package sits above all subsystem packages and below main.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jeethualex/harness"
	"github.com/jeethualex/harness/api"
	"github.com/jeethualex/harness/compute"
	"github.com/jeethualex/harness/engine"
	"github.com/jeethualex/harness/engines/itempop"
	"github.com/jeethualex/harness/job"
	mw "github.com/jeethualex/harness/middleware"
	"github.com/jeethualex/harness/store"
	"github.com/jeethualex/harness/trainer"
)

// Server is the assembled harness process: one store, one job manager,
// one engine host, one training runner, one HTTP listener.
type Server struct {
	store     store.Store
	manager   *job.Manager
	factories *engine.Factories
	host      *engine.Host
	limits    *trainer.Limits
	runner    *trainer.Runner
	logger    *slog.Logger

	addr       string
	httpServer *http.Server
	listener   net.Listener

	expireAfter  time.Duration
	trainDefault trainer.Config
	trainTimeout time.Duration
	computeURL   string
	canceller    job.ExecutionCanceller
	mws          []mw.Middleware

	// OpenTelemetry providers (optional; nil means use global).
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	started bool
}

// Option configures a Server.
type Option func(*Server)

// WithStore sets the persistence backend. Required.
func WithStore(st store.Store) Option {
	return func(s *Server) {
		s.store = st
	}
}

// WithConfig applies a harness.Config in one shot. Zero-valued fields
// keep their defaults; later granular options still override.
func WithConfig(cfg harness.Config) Option {
	return func(s *Server) {
		if cfg.Addr != "" {
			s.addr = cfg.Addr
		}
		if cfg.JobExpireAfter > 0 {
			s.expireAfter = cfg.JobExpireAfter
		}
		if cfg.TrainConcurrency > 0 || cfg.TrainInterval > 0 {
			tc := trainer.Config{MaxConcurrent: cfg.TrainConcurrency}
			if cfg.TrainInterval > 0 {
				tc.RateLimit = 1.0 / cfg.TrainInterval.Seconds()
				tc.RateBurst = 1
			}
			s.trainDefault = tc
		}
		s.computeURL = cfg.ComputeURL
	}
}

// WithLogger sets the structured logger shared by every subsystem.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAddr sets the HTTP listen address.
func WithAddr(addr string) Option {
	return func(s *Server) {
		if addr != "" {
			s.addr = addr
		}
	}
}

// WithExpireAfter sets how long jobs stay non-terminal before reads
// report them expired.
func WithExpireAfter(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.expireAfter = d
		}
	}
}

// WithExecutionCanceller sets the external canceller invoked when a job
// is cancelled, typically a compute backend client.
func WithExecutionCanceller(c job.ExecutionCanceller) Option {
	return func(s *Server) {
		s.canceller = c
	}
}

// WithFactory registers an engine factory under name. The built-in
// factories stay registered.
func WithFactory(name string, fn engine.Factory) Option {
	return func(s *Server) {
		s.factories.Register(name, fn)
	}
}

// WithTrainerDefaults sets the admission policy applied to engines
// without an explicit configuration.
func WithTrainerDefaults(cfg trainer.Config) Option {
	return func(s *Server) {
		s.trainDefault = cfg
	}
}

// WithTrainTimeout bounds every training run. Zero means unbounded.
func WithTrainTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.trainTimeout = d
	}
}

// WithMiddleware adds middleware around every training run, after the
// default chain.
func WithMiddleware(m mw.Middleware) Option {
	return func(s *Server) {
		s.mws = append(s.mws, m)
	}
}

// WithTracerProvider sets a custom OTel TracerProvider. When set, the
// tracing middleware uses this provider instead of the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Server) {
		s.tracerProvider = tp
	}
}

// WithMeterProvider sets a custom OTel MeterProvider. When set, the
// metrics middleware uses this provider instead of the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Server) {
		s.meterProvider = mp
	}
}

// Build assembles a Server from options. The store is required; every
// other component is constructed here and shares the server's logger.
func Build(opts ...Option) (*Server, error) {
	def := harness.DefaultConfig()
	s := &Server{
		factories:    engine.NewFactories(),
		host:         engine.NewHost(),
		logger:       slog.Default(),
		addr:         def.Addr,
		expireAfter:  def.JobExpireAfter,
		trainDefault: trainer.Config{MaxConcurrent: def.TrainConcurrency},
	}
	s.factories.Register(itempop.FactoryName, itempop.Factory)

	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		return nil, harness.ErrNoStore
	}

	if s.canceller == nil && s.computeURL != "" {
		s.canceller = compute.New(s.computeURL, compute.WithLogger(s.logger))
	}

	managerOpts := []job.ManagerOption{
		job.WithLogger(s.logger),
		job.WithExpireAfter(s.expireAfter),
	}
	if s.canceller != nil {
		managerOpts = append(managerOpts, job.WithExecutionCanceller(s.canceller))
	}
	s.manager = job.NewManager(s.store, managerOpts...)

	// Build tracing middleware (custom provider or global).
	var tracingMw mw.Middleware
	if s.tracerProvider != nil {
		tracingMw = mw.TracingWithTracer(s.tracerProvider.Tracer("github.com/jeethualex/harness"))
	} else {
		tracingMw = mw.Tracing()
	}

	// Build metrics middleware (custom provider or global).
	var metricsMw mw.Middleware
	if s.meterProvider != nil {
		metricsMw = mw.MetricsWithMeter(s.meterProvider.Meter("github.com/jeethualex/harness"))
	} else {
		metricsMw = mw.Metrics()
	}

	// Default run chain: recover → tracing → metrics → logging → timeout.
	allMws := []mw.Middleware{
		mw.Recover(s.logger),
		tracingMw,
		metricsMw,
		mw.Logging(s.logger),
	}
	if s.trainTimeout > 0 {
		allMws = append(allMws, mw.Timeout(s.trainTimeout))
	}
	allMws = append(allMws, s.mws...)

	s.limits = trainer.NewLimits(s.trainDefault)
	s.runner = trainer.NewRunner(s.manager, s.limits, s.logger, allMws...)

	a := api.New(s.store, s.manager, s.host, s.factories, s.runner, api.WithLogger(s.logger))
	s.httpServer = &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// Start brings the process up: migrate the store, fail jobs left
// mid-flight by the previous process, rebuild the hosted engines from
// their persisted instances, then serve HTTP. It returns once the
// listener is accepting.
func (s *Server) Start(ctx context.Context) error {
	if err := s.store.Migrate(ctx); err != nil {
		return fmt.Errorf("server: migrate store: %w", err)
	}

	if err := s.manager.AbortExecutingJobs(ctx); err != nil {
		return fmt.Errorf("server: abort stale jobs: %w", err)
	}

	if err := s.rehostEngines(ctx); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.addr, err)
	}
	s.listener = ln
	s.started = true

	s.logger.Info("harness serving", slog.String("addr", ln.Addr().String()))
	go func() {
		if serveErr := s.httpServer.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("http server error", slog.String("error", serveErr.Error()))
		}
	}()

	return nil
}

// rehostEngines rebuilds every persisted engine instance through the
// factory registry. An instance whose factory fails to build is skipped
// with a warning; its record stays for the next deploy to pick up.
func (s *Server) rehostEngines(ctx context.Context) error {
	instances, err := s.store.ListEngines(ctx)
	if err != nil {
		return fmt.Errorf("server: list engines: %w", err)
	}

	for _, inst := range instances {
		eng, buildErr := s.factories.Build(ctx, inst, s.store, s.logger)
		if buildErr != nil {
			s.logger.Warn("skipping engine instance",
				slog.String("engine_id", inst.EngineID),
				slog.String("factory", inst.Factory),
				slog.String("error", buildErr.Error()))
			continue
		}
		s.host.Put(eng)
	}

	s.logger.Info("engines hosted", slog.Int("count", s.host.Len()))
	return nil
}

// Stop winds the process down: close the listener to stop intake, wait
// for in-flight training runs, drain the manager's background writes,
// then close the store. Intermediate failures are logged; the store
// close error is returned.
func (s *Server) Stop(ctx context.Context) error {
	if s.started {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("http shutdown error", slog.String("error", err.Error()))
		}
	}

	if err := s.runner.Wait(ctx); err != nil {
		s.logger.Warn("training runs abandoned at shutdown", slog.String("error", err.Error()))
	}

	if err := s.manager.Drain(ctx); err != nil {
		s.logger.Warn("job bookkeeping drain incomplete", slog.String("error", err.Error()))
	}

	return s.store.Close()
}

// Addr returns the bound listen address. Before Start it returns the
// configured address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Handler returns the HTTP handler, for serving through an outer mux or
// in tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Manager returns the job manager.
func (s *Server) Manager() *job.Manager { return s.manager }

// Host returns the live engine host.
func (s *Server) Host() *engine.Host { return s.host }

// Factories returns the engine factory registry.
func (s *Server) Factories() *engine.Factories { return s.factories }

// Limits returns the trainer admission limits.
func (s *Server) Limits() *trainer.Limits { return s.limits }

// Store returns the persistence backend.
func (s *Server) Store() store.Store { return s.store }
