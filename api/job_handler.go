package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jeethualex/harness"
	"github.com/jeethualex/harness/id"
	"github.com/jeethualex/harness/job"
)

// StartJobRequest is the optional body of POST /engines/{engineId}/jobs.
type StartJobRequest struct {
	Comment string `json:"comment,omitempty"`
}

func (a *API) startJob(w http.ResponseWriter, r *http.Request) {
	engineID := chi.URLParam(r, "engineId")

	eng, ok := a.host.Get(engineID)
	if !ok {
		a.respondError(w, harness.ErrEngineNotFound)
		return
	}

	var req StartJobRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	desc, err := a.runner.Train(r.Context(), eng, req.Comment)
	if err != nil {
		a.respondError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, desc)
}

func (a *API) listJobs(w http.ResponseWriter, r *http.Request) {
	engineID := chi.URLParam(r, "engineId")

	if _, ok := a.host.Get(engineID); !ok {
		a.respondError(w, harness.ErrEngineNotFound)
		return
	}

	jobs, err := a.manager.ActiveJobs(r.Context(), engineID)
	if err != nil {
		a.respondError(w, err)
		return
	}
	if jobs == nil {
		jobs = []job.Description{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

// cancelJob is idempotent: cancelling a finished or unknown job is a
// success, matching retried DELETEs from clients.
func (a *API) cancelJob(w http.ResponseWriter, r *http.Request) {
	engineID := chi.URLParam(r, "engineId")

	jobID, err := id.ParseJobID(chi.URLParam(r, "jobId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, fmt.Sprintf("invalid job id: %v", err))
		return
	}

	if err := a.manager.CancelJob(r.Context(), engineID, jobID); err != nil {
		a.respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"jobId": jobID.String()})
}

// jobStatuses reports the active jobs of every registered engine in one
// response, keyed by engine id.
func (a *API) jobStatuses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	instances, err := a.store.ListEngines(ctx)
	if err != nil {
		a.respondError(w, err)
		return
	}

	statuses := make(map[string][]job.Description, len(instances))
	for _, inst := range instances {
		jobs, err := a.manager.ActiveJobs(ctx, inst.EngineID)
		if err != nil {
			a.respondError(w, err)
			return
		}
		if jobs == nil {
			jobs = []job.Description{}
		}
		statuses[inst.EngineID] = jobs
	}

	writeJSON(w, http.StatusOK, statuses)
}
