package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jeethualex/harness"
	"github.com/jeethualex/harness/event"
	"github.com/jeethualex/harness/id"
)

// ingestEvent feeds one event into the live engine. The engine owns
// the dataset write, so a validation failure never reaches the store.
func (a *API) ingestEvent(w http.ResponseWriter, r *http.Request) {
	engineID := chi.URLParam(r, "engineId")

	eng, ok := a.host.Get(engineID)
	if !ok {
		a.respondError(w, harness.ErrEngineNotFound)
		return
	}

	var evt event.Event
	if err := decodeJSON(w, r, &evt); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	// Server-assigned identity; a client-supplied eventId is ignored.
	evt.ID = id.NewEventID()
	evt.Entity = harness.NewEntity()
	if evt.EventTime.IsZero() {
		evt.EventTime = time.Now().UTC()
	}

	if err := eng.Input(r.Context(), &evt); err != nil {
		if isNotFound(err) {
			a.respondError(w, err)
			return
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"eventId": evt.ID.String()})
}
