package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/jeethualex/harness/engine"
	"github.com/jeethualex/harness/job"
	"github.com/jeethualex/harness/store"
	"github.com/jeethualex/harness/trainer"
)

// API wires the HTTP handlers for the harness resource surface: engine
// instances, event ingest, queries, and training jobs.
type API struct {
	store     store.Store
	manager   *job.Manager
	host      *engine.Host
	factories *engine.Factories
	runner    *trainer.Runner
	logger    *slog.Logger
}

// Option configures an API.
type Option func(*API)

// WithLogger sets the logger used for request-path failures.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates an API over the given components.
func New(st store.Store, manager *job.Manager, host *engine.Host, factories *engine.Factories, runner *trainer.Runner, opts ...Option) *API {
	a := &API{
		store:     st,
		manager:   manager,
		host:      host,
		factories: factories,
		runner:    runner,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handler returns the fully assembled http.Handler with all routes.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	a.RegisterRoutes(r)
	return r
}

// RegisterRoutes registers all harness API routes into the given router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.NotFound(a.notFound)
	r.MethodNotAllowed(a.methodNotAllowed)

	r.Get("/healthz", a.healthz)
	r.Get("/jobs/statuses", a.jobStatuses)

	r.Route("/engines", func(r chi.Router) {
		r.Post("/", a.createEngine)
		r.Get("/", a.listEngines)

		r.Route("/{engineId}", func(r chi.Router) {
			r.Get("/", a.getEngine)
			r.Delete("/", a.deleteEngine)
			r.Post("/events", a.ingestEvent)
			r.Post("/queries", a.queryEngine)
			r.Post("/jobs", a.startJob)
			r.Get("/jobs", a.listJobs)
			r.Delete("/jobs/{jobId}", a.cancelJob)
		})
	})
}

func (a *API) healthz(w http.ResponseWriter, r *http.Request) {
	if err := a.store.Ping(r.Context()); err != nil {
		a.logger.Error("health check failed", slog.String("error", err.Error()))
		writeError(w, http.StatusServiceUnavailable, codeUnavailable, "store unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) notFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, codeNotFound, "resource not found")
}

func (a *API) methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
}
