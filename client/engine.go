package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jeethualex/harness/api"
	"github.com/jeethualex/harness/engine"
)

// CreateEngine registers a new engine instance. A non-nil params value
// is marshalled and handed to the factory.
func (c *Client) CreateEngine(ctx context.Context, engineID, factory string, params any) (*engine.Instance, error) {
	req := api.CreateEngineRequest{EngineID: engineID, Factory: factory}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("client: marshal params: %w", err)
		}
		req.Params = raw
	}

	var inst engine.Instance
	if err := c.do(ctx, http.MethodPost, "/engines", req, &inst); err != nil {
		return nil, fmt.Errorf("client: create engine %q: %w", engineID, err)
	}
	return &inst, nil
}

// ListEngines returns every registered engine instance.
func (c *Client) ListEngines(ctx context.Context) ([]*engine.Instance, error) {
	var instances []*engine.Instance
	if err := c.do(ctx, http.MethodGet, "/engines", nil, &instances); err != nil {
		return nil, fmt.Errorf("client: list engines: %w", err)
	}
	return instances, nil
}

// GetEngine returns one engine instance.
func (c *Client) GetEngine(ctx context.Context, engineID string) (*engine.Instance, error) {
	var inst engine.Instance
	if err := c.do(ctx, http.MethodGet, enginePath(engineID), nil, &inst); err != nil {
		return nil, fmt.Errorf("client: get engine %q: %w", engineID, err)
	}
	return &inst, nil
}

// DeleteEngine tears an engine down: its jobs, its events, its instance
// record, and the live engine.
func (c *Client) DeleteEngine(ctx context.Context, engineID string) error {
	if err := c.do(ctx, http.MethodDelete, enginePath(engineID), nil, nil); err != nil {
		return fmt.Errorf("client: delete engine %q: %w", engineID, err)
	}
	return nil
}

// Query sends a recommendation query to the engine and returns its raw
// JSON answer.
func (c *Client) Query(ctx context.Context, engineID string, query any) (json.RawMessage, error) {
	var result json.RawMessage
	if err := c.do(ctx, http.MethodPost, enginePath(engineID)+"/queries", query, &result); err != nil {
		return nil, fmt.Errorf("client: query engine %q: %w", engineID, err)
	}
	return result, nil
}

func enginePath(engineID string) string {
	return "/engines/" + url.PathEscape(engineID)
}
