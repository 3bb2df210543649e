package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jeethualex/harness/event"
	"github.com/jeethualex/harness/id"
)

// SendEvent ingests one event into the engine's dataset and returns the
// server-assigned event id. The ID, Entity, and a zero EventTime on evt
// are filled in by the server.
func (c *Client) SendEvent(ctx context.Context, engineID string, evt *event.Event) (id.EventID, error) {
	var resp struct {
		EventID id.EventID `json:"eventId"`
	}
	if err := c.do(ctx, http.MethodPost, enginePath(engineID)+"/events", evt, &resp); err != nil {
		return id.Nil, fmt.Errorf("client: send event to %q: %w", engineID, err)
	}
	return resp.EventID, nil
}
