package api_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jeethualex/harness/api"
	"github.com/jeethualex/harness/engine"
	"github.com/jeethualex/harness/engines/itempop"
	"github.com/jeethualex/harness/event"
	"github.com/jeethualex/harness/id"
	"github.com/jeethualex/harness/job"
	"github.com/jeethualex/harness/store/memory"
	"github.com/jeethualex/harness/trainer"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// gatedEngine blocks in Train until its gate closes or the run context
// ends. It keeps runs in flight long enough to observe them.
type gatedEngine struct {
	id   string
	gate chan struct{}
}

func (g *gatedEngine) ID() string                                { return g.id }
func (g *gatedEngine) Input(context.Context, *event.Event) error { return nil }
func (g *gatedEngine) Destroy(context.Context) error             { return nil }

func (g *gatedEngine) Query(_ context.Context, q json.RawMessage) (json.RawMessage, error) {
	return q, nil
}

func (g *gatedEngine) Train(ctx context.Context) error {
	select {
	case <-g.gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type fixture struct {
	handler http.Handler
	store   *memory.Store
	host    *engine.Host
	manager *job.Manager
	runner  *trainer.Runner
	gate    chan struct{}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st := memory.New()
	manager := job.NewManager(st, job.WithLogger(testLogger()))
	host := engine.NewHost()
	runner := trainer.NewRunner(manager, trainer.NewLimits(trainer.DefaultConfig()), testLogger())

	gate := make(chan struct{})
	factories := engine.NewFactories()
	factories.Register(itempop.FactoryName, itempop.Factory)
	factories.Register("gated", func(inst *engine.Instance, _ event.Store, _ *slog.Logger) (engine.Engine, error) {
		return &gatedEngine{id: inst.EngineID, gate: gate}, nil
	})

	a := api.New(st, manager, host, factories, runner, api.WithLogger(testLogger()))
	return &fixture{
		handler: a.Handler(),
		store:   st,
		host:    host,
		manager: manager,
		runner:  runner,
		gate:    gate,
	}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func (f *fixture) createEngine(t *testing.T, engineID, factory string) {
	t.Helper()

	rr := f.do(t, http.MethodPost, "/engines",
		`{"engineId":"`+engineID+`","engineFactory":"`+factory+`"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create engine %q: status = %d, body %s", engineID, rr.Code, rr.Body)
	}
}

func decodeErr(t *testing.T, rr *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()

	var resp api.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error envelope: %v (body %s)", err, rr.Body)
	}
	return resp
}

func waitJobStatus(t *testing.T, st *memory.Store, jobID id.JobID, want job.Status) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		r, err := st.GetJob(context.Background(), jobID)
		if err == nil && r.Status == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached %q", jobID, want)
}

func settle(t *testing.T, f *fixture) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.runner.Wait(ctx); err != nil {
		t.Fatalf("runner wait: %v", err)
	}
}

// ── engines ──

func TestCreateEngine(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPost, "/engines",
		`{"engineId":"shop","engineFactory":"itempop","params":{"num":5}}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body)
	}

	var inst engine.Instance
	if err := json.Unmarshal(rr.Body.Bytes(), &inst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if inst.EngineID != "shop" || inst.Factory != "itempop" {
		t.Fatalf("instance = %+v", inst)
	}
	if inst.CreatedAt.IsZero() {
		t.Fatal("createdAt not stamped")
	}

	if _, ok := f.host.Get("shop"); !ok {
		t.Fatal("engine not hosted after create")
	}
	if _, err := f.store.GetEngine(context.Background(), "shop"); err != nil {
		t.Fatalf("instance not persisted: %v", err)
	}
}

func TestCreateEngineRejectsBadRequests(t *testing.T) {
	f := newFixture(t)
	f.createEngine(t, "shop", "itempop")

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"malformed json", `{"engineId":`, http.StatusBadRequest, "BAD_REQUEST"},
		{"missing engine id", `{"engineFactory":"itempop"}`, http.StatusBadRequest, "BAD_REQUEST"},
		{"missing factory", `{"engineId":"other"}`, http.StatusBadRequest, "BAD_REQUEST"},
		{"unknown factory", `{"engineId":"other","engineFactory":"nope"}`, http.StatusBadRequest, "BAD_REQUEST"},
		{"duplicate id", `{"engineId":"shop","engineFactory":"itempop"}`, http.StatusConflict, "ALREADY_EXISTS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := f.do(t, http.MethodPost, "/engines", tt.body)
			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", rr.Code, tt.wantCode, rr.Body)
			}
			if resp := decodeErr(t, rr); resp.Error.Code != tt.wantErr {
				t.Fatalf("error code = %q, want %q", resp.Error.Code, tt.wantErr)
			}
		})
	}
}

func TestGetEngine(t *testing.T) {
	f := newFixture(t)
	f.createEngine(t, "shop", "itempop")

	rr := f.do(t, http.MethodGet, "/engines/shop", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	rr = f.do(t, http.MethodGet, "/engines/nope", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
	if resp := decodeErr(t, rr); resp.Error.Code != "NOT_FOUND" {
		t.Fatalf("error code = %q", resp.Error.Code)
	}
}

func TestListEngines(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodGet, "/engines", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != "[]" {
		t.Fatalf("empty list = %s, want []", got)
	}

	f.createEngine(t, "shop", "itempop")
	f.createEngine(t, "news", "itempop")

	var instances []engine.Instance
	rr = f.do(t, http.MethodGet, "/engines", "")
	if err := json.Unmarshal(rr.Body.Bytes(), &instances); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(instances) != 2 {
		t.Fatalf("len = %d, want 2", len(instances))
	}
}

func TestDeleteEngineTearsEverythingDown(t *testing.T) {
	f := newFixture(t)
	f.createEngine(t, "shop", "itempop")

	rr := f.do(t, http.MethodPost, "/engines/shop/events",
		`{"event":"buy","entityType":"user","entityId":"u1","targetEntityType":"item","targetEntityId":"i1"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("ingest: status = %d, body %s", rr.Code, rr.Body)
	}

	rr = f.do(t, http.MethodPost, "/engines/shop/jobs", "")
	if rr.Code != http.StatusAccepted {
		t.Fatalf("start job: status = %d, body %s", rr.Code, rr.Body)
	}
	settle(t, f)

	rr = f.do(t, http.MethodDelete, "/engines/shop", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("delete: status = %d, body %s", rr.Code, rr.Body)
	}

	ctx := context.Background()
	if _, err := f.store.GetEngine(ctx, "shop"); err == nil {
		t.Fatal("instance still stored after delete")
	}
	if evts, _ := f.store.ListEvents(ctx, "shop", event.ListOpts{}); len(evts) != 0 {
		t.Fatalf("%d events survived delete", len(evts))
	}
	if jobs, _ := f.store.ListJobsByEngine(ctx, "shop"); len(jobs) != 0 {
		t.Fatalf("%d jobs survived delete", len(jobs))
	}
	if _, ok := f.host.Get("shop"); ok {
		t.Fatal("engine still hosted after delete")
	}

	rr = f.do(t, http.MethodDelete, "/engines/shop", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete: status = %d, want 404", rr.Code)
	}
}

// ── events and queries ──

func TestIngestEvent(t *testing.T) {
	f := newFixture(t)
	f.createEngine(t, "shop", "itempop")

	rr := f.do(t, http.MethodPost, "/engines/shop/events",
		`{"event":"buy","entityType":"user","entityId":"u1","targetEntityType":"item","targetEntityId":"i1"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body)
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, err := id.ParseEventID(resp["eventId"]); err != nil {
		t.Fatalf("eventId %q: %v", resp["eventId"], err)
	}

	evts, err := f.store.ListEvents(context.Background(), "shop", event.ListOpts{})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(evts) != 1 {
		t.Fatalf("stored events = %d, want 1", len(evts))
	}
	if evts[0].EventTime.IsZero() {
		t.Fatal("eventTime not defaulted")
	}
}

func TestIngestEventRejectsBadRequests(t *testing.T) {
	f := newFixture(t)
	f.createEngine(t, "shop", "itempop")

	tests := []struct {
		name     string
		path     string
		body     string
		wantCode int
	}{
		{"unknown engine", "/engines/nope/events", `{"event":"buy","entityId":"u1"}`, http.StatusNotFound},
		{"malformed json", "/engines/shop/events", `{"event":`, http.StatusBadRequest},
		{"missing entity id", "/engines/shop/events", `{"event":"buy"}`, http.StatusBadRequest},
		{"missing name", "/engines/shop/events", `{"entityId":"u1"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := f.do(t, http.MethodPost, tt.path, tt.body)
			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", rr.Code, tt.wantCode, rr.Body)
			}
		})
	}
}

func TestQueryEngine(t *testing.T) {
	f := newFixture(t)
	f.createEngine(t, "shop", "itempop")

	for _, item := range []string{"i1", "i1", "i2"} {
		rr := f.do(t, http.MethodPost, "/engines/shop/events",
			`{"event":"buy","entityType":"user","entityId":"u1","targetEntityType":"item","targetEntityId":"`+item+`"}`)
		if rr.Code != http.StatusCreated {
			t.Fatalf("ingest: status = %d", rr.Code)
		}
	}

	rr := f.do(t, http.MethodPost, "/engines/shop/jobs", "")
	if rr.Code != http.StatusAccepted {
		t.Fatalf("start job: status = %d, body %s", rr.Code, rr.Body)
	}
	settle(t, f)

	rr = f.do(t, http.MethodPost, "/engines/shop/queries", `{"num":1}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body)
	}

	var result itempop.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.Result) != 1 || result.Result[0].Item != "i1" {
		t.Fatalf("result = %+v, want top item i1", result)
	}
}

func TestQueryEngineRejectsBadQuery(t *testing.T) {
	f := newFixture(t)
	f.createEngine(t, "shop", "itempop")

	rr := f.do(t, http.MethodPost, "/engines/shop/queries", `{"num":"one"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}

	rr = f.do(t, http.MethodPost, "/engines/nope/queries", `{}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

// ── jobs ──

func TestStartJob(t *testing.T) {
	f := newFixture(t)
	f.createEngine(t, "shop", "itempop")

	rr := f.do(t, http.MethodPost, "/engines/shop/jobs", `{"comment":"nightly"}`)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body)
	}

	var desc job.Description
	if err := json.Unmarshal(rr.Body.Bytes(), &desc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if desc.JobID.IsNil() {
		t.Fatal("jobId not assigned")
	}
	if desc.Comment != "nightly" {
		t.Fatalf("comment = %q", desc.Comment)
	}

	waitJobStatus(t, f.store, desc.JobID, job.StatusSuccessful)
	settle(t, f)
}

func TestStartJobUnknownEngine(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPost, "/engines/nope/jobs", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestStartJobBusy(t *testing.T) {
	f := newFixture(t)
	f.createEngine(t, "slow", "gated")

	rr := f.do(t, http.MethodPost, "/engines/slow/jobs", "")
	if rr.Code != http.StatusAccepted {
		t.Fatalf("first start: status = %d", rr.Code)
	}

	rr = f.do(t, http.MethodPost, "/engines/slow/jobs", "")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second start: status = %d, want 429", rr.Code)
	}
	if resp := decodeErr(t, rr); resp.Error.Code != "TRAINING_BUSY" {
		t.Fatalf("error code = %q", resp.Error.Code)
	}

	close(f.gate)
	settle(t, f)
}

func TestCancelJob(t *testing.T) {
	f := newFixture(t)
	f.createEngine(t, "slow", "gated")

	rr := f.do(t, http.MethodPost, "/engines/slow/jobs", "")
	if rr.Code != http.StatusAccepted {
		t.Fatalf("start: status = %d", rr.Code)
	}
	var desc job.Description
	if err := json.Unmarshal(rr.Body.Bytes(), &desc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	waitJobStatus(t, f.store, desc.JobID, job.StatusExecuting)

	rr = f.do(t, http.MethodDelete, "/engines/slow/jobs/"+desc.JobID.String(), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("cancel: status = %d, body %s", rr.Code, rr.Body)
	}

	rec, err := f.store.GetJob(context.Background(), desc.JobID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if rec.Status != job.StatusCancelled {
		t.Fatalf("status = %q, want cancelled", rec.Status)
	}

	// Cancelling again, or cancelling an unknown job, still succeeds.
	rr = f.do(t, http.MethodDelete, "/engines/slow/jobs/"+desc.JobID.String(), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("repeat cancel: status = %d", rr.Code)
	}
	rr = f.do(t, http.MethodDelete, "/engines/slow/jobs/"+id.NewJobID().String(), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("unknown cancel: status = %d", rr.Code)
	}

	rr = f.do(t, http.MethodDelete, "/engines/slow/jobs/not-an-id", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad id cancel: status = %d, want 400", rr.Code)
	}

	settle(t, f)
}

func TestListActiveJobs(t *testing.T) {
	f := newFixture(t)
	f.createEngine(t, "shop", "itempop")

	rr := f.do(t, http.MethodGet, "/engines/shop/jobs", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != "[]" {
		t.Fatalf("empty list = %s, want []", got)
	}

	rr = f.do(t, http.MethodPost, "/engines/shop/jobs", "")
	if rr.Code != http.StatusAccepted {
		t.Fatalf("start: status = %d", rr.Code)
	}
	var desc job.Description
	if err := json.Unmarshal(rr.Body.Bytes(), &desc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	waitJobStatus(t, f.store, desc.JobID, job.StatusSuccessful)
	settle(t, f)

	var jobs []job.Description
	rr = f.do(t, http.MethodGet, "/engines/shop/jobs", "")
	if err := json.Unmarshal(rr.Body.Bytes(), &jobs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(jobs) != 1 || jobs[0].JobID != desc.JobID {
		t.Fatalf("jobs = %+v", jobs)
	}
	if jobs[0].Status != job.StatusSuccessful {
		t.Fatalf("status = %q, want successful", jobs[0].Status)
	}

	rr = f.do(t, http.MethodGet, "/engines/nope/jobs", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown engine: status = %d, want 404", rr.Code)
	}
}

func TestJobStatuses(t *testing.T) {
	f := newFixture(t)
	f.createEngine(t, "shop", "itempop")
	f.createEngine(t, "news", "itempop")

	rr := f.do(t, http.MethodPost, "/engines/shop/jobs", "")
	if rr.Code != http.StatusAccepted {
		t.Fatalf("start: status = %d", rr.Code)
	}
	var desc job.Description
	if err := json.Unmarshal(rr.Body.Bytes(), &desc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	waitJobStatus(t, f.store, desc.JobID, job.StatusSuccessful)
	settle(t, f)

	rr = f.do(t, http.MethodGet, "/jobs/statuses", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var statuses map[string][]job.Description
	if err := json.Unmarshal(rr.Body.Bytes(), &statuses); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("engines = %d, want 2", len(statuses))
	}
	if len(statuses["shop"]) != 1 {
		t.Fatalf("shop jobs = %+v", statuses["shop"])
	}
	if len(statuses["news"]) != 0 {
		t.Fatalf("news jobs = %+v", statuses["news"])
	}
}

// ── routing and health ──

func TestHealthz(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodGet, "/healthz", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "ok" {
		t.Fatalf("body = %+v", resp)
	}
}

func TestRouterErrorEnvelope(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodGet, "/nope", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
	if resp := decodeErr(t, rr); resp.Error.Code != "NOT_FOUND" {
		t.Fatalf("error code = %q", resp.Error.Code)
	}

	rr = f.do(t, http.MethodPut, "/engines", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rr.Code)
	}
	if resp := decodeErr(t, rr); resp.Error.Code != "METHOD_NOT_ALLOWED" {
		t.Fatalf("error code = %q", resp.Error.Code)
	}
}
