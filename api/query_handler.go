package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jeethualex/harness"
)

// queryEngine passes the raw query body to the live engine and relays
// its answer verbatim. The query format belongs to the engine, not to
// the transport.
func (a *API) queryEngine(w http.ResponseWriter, r *http.Request) {
	engineID := chi.URLParam(r, "engineId")

	eng, ok := a.host.Get(engineID)
	if !ok {
		a.respondError(w, harness.ErrEngineNotFound)
		return
	}

	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if len(body) == 0 {
		body = []byte("{}")
	}

	result, err := eng.Query(r.Context(), json.RawMessage(body))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result)
}
