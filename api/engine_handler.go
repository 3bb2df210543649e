package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jeethualex/harness"
	"github.com/jeethualex/harness/engine"
)

// CreateEngineRequest is the body of POST /engines.
type CreateEngineRequest struct {
	EngineID string          `json:"engineId"`
	Factory  string          `json:"engineFactory"`
	Params   json.RawMessage `json:"params,omitempty"`
}

func (a *API) createEngine(w http.ResponseWriter, r *http.Request) {
	var req CreateEngineRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if req.EngineID == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "engineId is required")
		return
	}
	if req.Factory == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "engineFactory is required")
		return
	}

	inst := &engine.Instance{
		Entity:   harness.NewEntity(),
		EngineID: req.EngineID,
		Factory:  req.Factory,
		Params:   req.Params,
	}

	// Build before persisting so a bad factory or params never leaves
	// an instance record behind. Build only fails on client input, an
	// unknown factory name or params the factory rejects.
	eng, err := a.factories.Build(r.Context(), inst, a.store, a.logger)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	if err := a.store.CreateEngine(r.Context(), inst); err != nil {
		a.respondError(w, err)
		return
	}
	a.host.Put(eng)

	writeJSON(w, http.StatusCreated, inst)
}

func (a *API) listEngines(w http.ResponseWriter, r *http.Request) {
	instances, err := a.store.ListEngines(r.Context())
	if err != nil {
		a.respondError(w, err)
		return
	}
	if instances == nil {
		instances = []*engine.Instance{}
	}
	writeJSON(w, http.StatusOK, instances)
}

func (a *API) getEngine(w http.ResponseWriter, r *http.Request) {
	inst, err := a.store.GetEngine(r.Context(), chi.URLParam(r, "engineId"))
	if err != nil {
		a.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

// deleteEngine tears an engine down in dependency order: jobs first,
// then events, then the instance record, and finally the live engine.
func (a *API) deleteEngine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	engineID := chi.URLParam(r, "engineId")

	if _, err := a.store.GetEngine(ctx, engineID); err != nil {
		a.respondError(w, err)
		return
	}

	if err := a.manager.RemoveAllJobs(ctx, engineID); err != nil {
		a.respondError(w, fmt.Errorf("remove jobs: %w", err))
		return
	}
	if _, err := a.store.DeleteEvents(ctx, engineID); err != nil {
		a.respondError(w, fmt.Errorf("delete events: %w", err))
		return
	}
	if err := a.store.DeleteEngine(ctx, engineID); err != nil {
		a.respondError(w, err)
		return
	}

	if eng, ok := a.host.Remove(engineID); ok {
		if err := eng.Destroy(ctx); err != nil {
			a.logger.Error("engine destroy failed",
				slog.String("engine_id", engineID),
				slog.String("error", err.Error()),
			)
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"engineId": engineID})
}
