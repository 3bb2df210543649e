// Package itempop implements a popularity recommender: Train counts the
// engine's events per target item and ranks items by count, Query returns
// the top of the ranking. It is deliberately small; it exists to prove the
// engine plug surface end to end.
package itempop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jeethualex/harness/engine"
	"github.com/jeethualex/harness/event"
)

// FactoryName is the name this engine registers under.
const FactoryName = "itempop"

// DefaultNum is how many items a query returns when the caller does not
// say otherwise.
const DefaultNum = 20

// checkEvery bounds how many events Train processes between context
// checks.
const checkEvery = 1024

// Params configures an itempop engine instance.
type Params struct {
	// EventNames filters which event names contribute to popularity.
	// Empty means every event counts.
	EventNames []string `json:"eventNames,omitempty"`
	// Num is the default result size for queries that do not set one.
	Num int `json:"num,omitempty"`
}

// Query is the wire form of an itempop query.
type Query struct {
	// Num overrides the engine's default result size.
	Num int `json:"num,omitempty"`
}

// Rank is one entry of the popularity table.
type Rank struct {
	Item  string  `json:"item"`
	Score float64 `json:"score"`
}

// Result is the wire form of a query answer.
type Result struct {
	Result []Rank `json:"result"`
}

// Engine is a live itempop instance. The ranked model is rebuilt by Train
// and read by Query; both sides share one RWMutex.
type Engine struct {
	id      string
	params  Params
	counted map[string]bool
	events  event.Store
	logger  *slog.Logger

	mu        sync.RWMutex
	model     []Rank
	trainedAt time.Time
}

var _ engine.Engine = (*Engine)(nil)

// Factory builds an itempop Engine from its instance description.
func Factory(inst *engine.Instance, events event.Store, logger *slog.Logger) (engine.Engine, error) {
	var p Params
	if len(inst.Params) > 0 {
		if err := json.Unmarshal(inst.Params, &p); err != nil {
			return nil, fmt.Errorf("itempop: parse params: %w", err)
		}
	}
	if p.Num <= 0 {
		p.Num = DefaultNum
	}

	counted := make(map[string]bool, len(p.EventNames))
	for _, name := range p.EventNames {
		counted[name] = true
	}

	return &Engine{
		id:      inst.EngineID,
		params:  p,
		counted: counted,
		events:  events,
		logger:  logger,
	}, nil
}

// ID returns the engine's resource id.
func (e *Engine) ID() string { return e.id }

// Input validates the event and appends it to the engine's dataset.
func (e *Engine) Input(ctx context.Context, evt *event.Event) error {
	if evt.Name == "" {
		return errors.New("itempop: event missing name")
	}
	if evt.EntityID == "" {
		return errors.New("itempop: event missing entityId")
	}

	if err := e.events.AppendEvent(ctx, e.id, evt); err != nil {
		return fmt.Errorf("itempop: append event: %w", err)
	}
	return nil
}

// Train rebuilds the popularity table from the engine's events. It checks
// ctx periodically so long scans stay cancellable.
func (e *Engine) Train(ctx context.Context) error {
	evts, err := e.events.ListEvents(ctx, e.id, event.ListOpts{})
	if err != nil {
		return fmt.Errorf("itempop: list events: %w", err)
	}

	tally := make(map[string]float64)
	for i, evt := range evts {
		if i%checkEvery == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}

		if len(e.counted) > 0 && !e.counted[evt.Name] {
			continue
		}
		item := evt.TargetEntityID
		if item == "" {
			item = evt.EntityID
		}
		tally[item]++
	}

	model := make([]Rank, 0, len(tally))
	for item, score := range tally {
		model = append(model, Rank{Item: item, Score: score})
	}
	sort.Slice(model, func(i, k int) bool {
		if model[i].Score == model[k].Score {
			return model[i].Item < model[k].Item
		}
		return model[i].Score > model[k].Score
	})

	now := time.Now().UTC()
	e.mu.Lock()
	e.model = model
	e.trainedAt = now
	e.mu.Unlock()

	e.logger.Info("popularity model trained",
		slog.String("engine_id", e.id),
		slog.Int("events", len(evts)),
		slog.Int("items", len(model)))
	return nil
}

// Query returns the top-ranked items as {"result": [...]}. An untrained
// engine answers with an empty ranking.
func (e *Engine) Query(_ context.Context, query json.RawMessage) (json.RawMessage, error) {
	var q Query
	if len(query) > 0 {
		if err := json.Unmarshal(query, &q); err != nil {
			return nil, fmt.Errorf("itempop: parse query: %w", err)
		}
	}
	num := q.Num
	if num <= 0 {
		num = e.params.Num
	}

	e.mu.RLock()
	top := e.model
	if len(top) > num {
		top = top[:num]
	}
	res := Result{Result: make([]Rank, len(top))}
	copy(res.Result, top)
	e.mu.RUnlock()

	out, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("itempop: marshal result: %w", err)
	}
	return out, nil
}

// Destroy drops the model. The host deletes the engine's events and jobs
// before calling this.
func (e *Engine) Destroy(context.Context) error {
	e.mu.Lock()
	e.model = nil
	e.trainedAt = time.Time{}
	e.mu.Unlock()

	e.logger.Info("engine destroyed", slog.String("engine_id", e.id))
	return nil
}

// TrainedAt reports when the model was last rebuilt. Zero means never.
func (e *Engine) TrainedAt() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.trainedAt
}
