package engine_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jeethualex/harness"
	"github.com/jeethualex/harness/engine"
	"github.com/jeethualex/harness/event"
	"github.com/jeethualex/harness/store/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeEngine is a minimal Engine for registry tests.
type fakeEngine struct {
	id string
}

func (f *fakeEngine) ID() string                                { return f.id }
func (f *fakeEngine) Input(context.Context, *event.Event) error { return nil }
func (f *fakeEngine) Train(context.Context) error               { return nil }
func (f *fakeEngine) Destroy(context.Context) error             { return nil }

func (f *fakeEngine) Query(_ context.Context, q json.RawMessage) (json.RawMessage, error) {
	return q, nil
}

func newInstance(engineID, factory string) *engine.Instance {
	now := time.Now().UTC()
	return &engine.Instance{
		Entity:   harness.Entity{CreatedAt: now, UpdatedAt: now},
		EngineID: engineID,
		Factory:  factory,
		Params:   json.RawMessage(`{"k":10}`),
	}
}

// ──────────────────────────────────────────────────
// Factories
// ──────────────────────────────────────────────────

func TestFactories_RegisterAndGet(t *testing.T) {
	t.Parallel()
	factories := engine.NewFactories()

	if _, ok := factories.Get("itempop"); ok {
		t.Fatal("Get on an empty registry returned a factory")
	}

	factories.Register("itempop", func(inst *engine.Instance, _ event.Store, _ *slog.Logger) (engine.Engine, error) {
		return &fakeEngine{id: inst.EngineID}, nil
	})

	if _, ok := factories.Get("itempop"); !ok {
		t.Fatal("registered factory not found")
	}

	names := factories.Names()
	if len(names) != 1 || names[0] != "itempop" {
		t.Fatalf("Names() = %v, want [itempop]", names)
	}
}

func TestFactories_RegisterReplaces(t *testing.T) {
	t.Parallel()
	factories := engine.NewFactories()

	factories.Register("itempop", func(*engine.Instance, event.Store, *slog.Logger) (engine.Engine, error) {
		return nil, errors.New("old factory")
	})
	factories.Register("itempop", func(inst *engine.Instance, _ event.Store, _ *slog.Logger) (engine.Engine, error) {
		return &fakeEngine{id: inst.EngineID}, nil
	})

	eng, err := factories.Build(context.Background(), newInstance("movies", "itempop"), memory.New(), testLogger())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if eng.ID() != "movies" {
		t.Fatalf("ID() = %q, want %q", eng.ID(), "movies")
	}
}

func TestFactories_Build(t *testing.T) {
	t.Parallel()
	factories := engine.NewFactories()
	events := memory.New()

	var gotInst *engine.Instance
	var gotEvents event.Store
	factories.Register("itempop", func(inst *engine.Instance, ev event.Store, logger *slog.Logger) (engine.Engine, error) {
		gotInst = inst
		gotEvents = ev
		if logger == nil {
			t.Error("factory received a nil logger")
		}
		return &fakeEngine{id: inst.EngineID}, nil
	})

	inst := newInstance("movies", "itempop")
	eng, err := factories.Build(context.Background(), inst, events, testLogger())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if eng.ID() != "movies" {
		t.Fatalf("ID() = %q, want %q", eng.ID(), "movies")
	}
	if gotInst != inst {
		t.Error("factory received a different instance")
	}
	if gotEvents != event.Store(events) {
		t.Error("factory received a different event store")
	}
}

func TestFactories_BuildUnknownFactory(t *testing.T) {
	t.Parallel()
	factories := engine.NewFactories()

	_, err := factories.Build(context.Background(), newInstance("movies", "nope"), memory.New(), testLogger())
	if !errors.Is(err, harness.ErrUnknownFactory) {
		t.Fatalf("expected ErrUnknownFactory, got %v", err)
	}
}

func TestFactories_BuildFactoryError(t *testing.T) {
	t.Parallel()
	factories := engine.NewFactories()

	sentinel := errors.New("bad params")
	factories.Register("itempop", func(*engine.Instance, event.Store, *slog.Logger) (engine.Engine, error) {
		return nil, sentinel
	})

	_, err := factories.Build(context.Background(), newInstance("movies", "itempop"), memory.New(), testLogger())
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped factory error, got %v", err)
	}
}

// ──────────────────────────────────────────────────
// Host
// ──────────────────────────────────────────────────

func TestHost_PutGetRemove(t *testing.T) {
	t.Parallel()
	host := engine.NewHost()

	if _, ok := host.Get("movies"); ok {
		t.Fatal("Get on an empty host returned an engine")
	}

	eng := &fakeEngine{id: "movies"}
	host.Put(eng)

	got, ok := host.Get("movies")
	if !ok {
		t.Fatal("installed engine not found")
	}
	if got.ID() != "movies" {
		t.Fatalf("ID() = %q, want %q", got.ID(), "movies")
	}

	removed, ok := host.Remove("movies")
	if !ok || removed.ID() != "movies" {
		t.Fatalf("Remove = %v, %v; want the installed engine", removed, ok)
	}
	if _, ok := host.Get("movies"); ok {
		t.Fatal("engine still present after Remove")
	}
	if _, ok := host.Remove("movies"); ok {
		t.Fatal("second Remove found an engine")
	}
}

func TestHost_PutReplaces(t *testing.T) {
	t.Parallel()
	host := engine.NewHost()

	first := &fakeEngine{id: "movies"}
	second := &fakeEngine{id: "movies"}
	host.Put(first)
	host.Put(second)

	if host.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", host.Len())
	}
	got, _ := host.Get("movies")
	if got != engine.Engine(second) {
		t.Fatal("Put did not replace the previous engine")
	}
}

func TestHost_ListAndIDs(t *testing.T) {
	t.Parallel()
	host := engine.NewHost()

	for _, engineID := range []string{"movies", "books", "games"} {
		host.Put(&fakeEngine{id: engineID})
	}

	if host.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", host.Len())
	}

	ids := host.IDs()
	sort.Strings(ids)
	want := []string{"books", "games", "movies"}
	for i, w := range want {
		if ids[i] != w {
			t.Fatalf("IDs() = %v, want %v", ids, want)
		}
	}

	if got := len(host.List()); got != 3 {
		t.Fatalf("len(List()) = %d, want 3", got)
	}
}

func TestHost_Concurrent(t *testing.T) {
	t.Parallel()
	host := engine.NewHost()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			engineID := fmt.Sprintf("engine-%d", n%10)
			host.Put(&fakeEngine{id: engineID})
			host.Get(engineID)
			if n%3 == 0 {
				host.Remove(engineID)
			}
		}(i)
	}
	wg.Wait()

	if host.Len() > 10 {
		t.Fatalf("Len() = %d, want at most 10", host.Len())
	}
}
