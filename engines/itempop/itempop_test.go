package itempop_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jeethualex/harness"
	"github.com/jeethualex/harness/engine"
	"github.com/jeethualex/harness/engines/itempop"
	"github.com/jeethualex/harness/event"
	"github.com/jeethualex/harness/id"
	"github.com/jeethualex/harness/store/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEngine(t *testing.T, params string) (engine.Engine, *memory.Store) {
	t.Helper()

	st := memory.New()
	inst := &engine.Instance{
		Entity:   harness.NewEntity(),
		EngineID: "movies",
		Factory:  itempop.FactoryName,
	}
	if params != "" {
		inst.Params = json.RawMessage(params)
	}

	eng, err := itempop.Factory(inst, st, testLogger())
	if err != nil {
		t.Fatalf("Factory: %v", err)
	}
	return eng, st
}

func feed(t *testing.T, eng engine.Engine, name, entityID, targetID string) {
	t.Helper()

	now := time.Now().UTC()
	evt := &event.Event{
		Entity:           harness.Entity{CreatedAt: now, UpdatedAt: now},
		ID:               id.NewEventID(),
		Name:             name,
		EntityType:       "user",
		EntityID:         entityID,
		TargetEntityType: "item",
		TargetEntityID:   targetID,
		EventTime:        now,
	}
	if err := eng.Input(context.Background(), evt); err != nil {
		t.Fatalf("Input: %v", err)
	}
}

func train(t *testing.T, eng engine.Engine) {
	t.Helper()
	if err := eng.Train(context.Background()); err != nil {
		t.Fatalf("Train: %v", err)
	}
}

func query(t *testing.T, eng engine.Engine, q string) itempop.Result {
	t.Helper()

	out, err := eng.Query(context.Background(), json.RawMessage(q))
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	var res itempop.Result
	if err := json.Unmarshal(out, &res); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	return res
}

// ── Factory Tests ─────────────────────────────────────

func TestFactory_BadParams(t *testing.T) {
	inst := &engine.Instance{
		Entity:   harness.NewEntity(),
		EngineID: "movies",
		Factory:  itempop.FactoryName,
		Params:   json.RawMessage(`{"num": "twenty"}`),
	}

	if _, err := itempop.Factory(inst, memory.New(), testLogger()); err == nil {
		t.Fatal("expected error for malformed params")
	}
}

func TestEngine_ID(t *testing.T) {
	eng, _ := newEngine(t, "")
	if got := eng.ID(); got != "movies" {
		t.Errorf("ID() = %q, want %q", got, "movies")
	}
}

// ── Input Tests ───────────────────────────────────────

func TestInput_AppendsToDataset(t *testing.T) {
	eng, st := newEngine(t, "")

	feed(t, eng, "buy", "user-1", "item-a")
	feed(t, eng, "buy", "user-2", "item-a")

	evts, err := st.ListEvents(context.Background(), "movies", event.ListOpts{})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(evts) != 2 {
		t.Errorf("stored events = %d, want 2", len(evts))
	}
}

func TestInput_Validation(t *testing.T) {
	eng, _ := newEngine(t, "")
	now := time.Now().UTC()

	tests := []struct {
		name string
		evt  *event.Event
	}{
		{"missing name", &event.Event{
			Entity:    harness.Entity{CreatedAt: now, UpdatedAt: now},
			ID:        id.NewEventID(),
			EntityID:  "user-1",
			EventTime: now,
		}},
		{"missing entity id", &event.Event{
			Entity:    harness.Entity{CreatedAt: now, UpdatedAt: now},
			ID:        id.NewEventID(),
			Name:      "buy",
			EventTime: now,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := eng.Input(context.Background(), tt.evt); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

// ── Train and Query Tests ─────────────────────────────

func TestTrain_RanksByCount(t *testing.T) {
	eng, _ := newEngine(t, "")

	feed(t, eng, "buy", "user-1", "item-a")
	feed(t, eng, "buy", "user-2", "item-a")
	feed(t, eng, "buy", "user-3", "item-a")
	feed(t, eng, "buy", "user-1", "item-c")
	feed(t, eng, "buy", "user-2", "item-c")
	feed(t, eng, "buy", "user-1", "item-b")

	train(t, eng)

	res := query(t, eng, `{"num": 10}`)
	want := []itempop.Rank{
		{Item: "item-a", Score: 3},
		{Item: "item-c", Score: 2},
		{Item: "item-b", Score: 1},
	}
	if len(res.Result) != len(want) {
		t.Fatalf("result size = %d, want %d", len(res.Result), len(want))
	}
	for i, r := range res.Result {
		if r != want[i] {
			t.Errorf("result[%d] = %+v, want %+v", i, r, want[i])
		}
	}
}

func TestTrain_TieBreaksByItem(t *testing.T) {
	eng, _ := newEngine(t, "")

	feed(t, eng, "buy", "user-1", "item-z")
	feed(t, eng, "buy", "user-1", "item-a")

	train(t, eng)

	res := query(t, eng, "")
	if len(res.Result) != 2 {
		t.Fatalf("result size = %d, want 2", len(res.Result))
	}
	if res.Result[0].Item != "item-a" || res.Result[1].Item != "item-z" {
		t.Errorf("tie order = %q, %q; want item-a, item-z",
			res.Result[0].Item, res.Result[1].Item)
	}
}

func TestTrain_EventNameFilter(t *testing.T) {
	eng, _ := newEngine(t, `{"eventNames": ["buy"]}`)

	feed(t, eng, "buy", "user-1", "item-a")
	feed(t, eng, "view", "user-1", "item-b")
	feed(t, eng, "view", "user-2", "item-b")

	train(t, eng)

	res := query(t, eng, "")
	if len(res.Result) != 1 {
		t.Fatalf("result size = %d, want 1", len(res.Result))
	}
	if res.Result[0].Item != "item-a" {
		t.Errorf("top item = %q, want item-a", res.Result[0].Item)
	}
}

func TestTrain_FallsBackToEntityID(t *testing.T) {
	eng, _ := newEngine(t, "")

	// No target entity: the event describes the item itself.
	feed(t, eng, "like", "item-solo", "")

	train(t, eng)

	res := query(t, eng, "")
	if len(res.Result) != 1 || res.Result[0].Item != "item-solo" {
		t.Errorf("result = %+v, want single item-solo", res.Result)
	}
}

func TestTrain_Cancelled(t *testing.T) {
	eng, _ := newEngine(t, "")
	feed(t, eng, "buy", "user-1", "item-a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := eng.Train(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Train on cancelled ctx = %v, want context.Canceled", err)
	}
}

func TestQuery_Untrained(t *testing.T) {
	eng, _ := newEngine(t, "")

	res := query(t, eng, "")
	if len(res.Result) != 0 {
		t.Errorf("untrained result = %+v, want empty", res.Result)
	}
}

func TestQuery_NumLimits(t *testing.T) {
	eng, _ := newEngine(t, `{"num": 2}`)

	feed(t, eng, "buy", "user-1", "item-a")
	feed(t, eng, "buy", "user-1", "item-b")
	feed(t, eng, "buy", "user-1", "item-c")

	train(t, eng)

	if res := query(t, eng, ""); len(res.Result) != 2 {
		t.Errorf("default num result size = %d, want 2", len(res.Result))
	}
	if res := query(t, eng, `{"num": 1}`); len(res.Result) != 1 {
		t.Errorf("num=1 result size = %d, want 1", len(res.Result))
	}
	if res := query(t, eng, `{"num": 50}`); len(res.Result) != 3 {
		t.Errorf("num=50 result size = %d, want 3", len(res.Result))
	}
}

func TestQuery_BadPayload(t *testing.T) {
	eng, _ := newEngine(t, "")

	if _, err := eng.Query(context.Background(), json.RawMessage(`{"num":`)); err == nil {
		t.Fatal("expected error for malformed query")
	}
}

// ── Destroy Tests ─────────────────────────────────────

func TestDestroy_DropsModel(t *testing.T) {
	eng, _ := newEngine(t, "")

	feed(t, eng, "buy", "user-1", "item-a")
	train(t, eng)

	if err := eng.Destroy(context.Background()); err != nil {
		t.Fatalf("Destroy: %v", err)
	}

	res := query(t, eng, "")
	if len(res.Result) != 0 {
		t.Errorf("post-destroy result = %+v, want empty", res.Result)
	}
}
