package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/msantori/syncline/internal/entity"
	"github.com/msantori/syncline/internal/sync"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// envelope is the wire shape of one streamed event.
type envelope struct {
	Type    string          `json:"type"`
	Key     string          `json:"key,omitempty"`
	Entity  json.RawMessage `json:"entity,omitempty"`
	Delta   entity.Delta    `json:"delta,omitempty"`
	OriginT int64           `json:"origin_ts,omitempty"`
	Events  []envelope      `json:"events,omitempty"`
}

// Subscribe opens the websocket event stream for one collection. Events
// arrive ordered per connection; the channel closes when the stream ends.
// The engine does not reconnect on its own.
func (c *Collection[T]) Subscribe(ctx context.Context, collection string) (<-chan sync.Event[T], func(), error) {
	wsURL := strings.Replace(c.client.baseURL, "https://", "wss://", 1)
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	wsURL += "/v1/stream?" + url.Values{"collection": {collection}}.Encode()

	var opts *websocket.DialOptions
	if c.client.token != "" {
		opts = &websocket.DialOptions{
			HTTPHeader: map[string][]string{"Authorization": {"Bearer " + c.client.token}},
		}
	}
	conn, _, err := websocket.Dial(ctx, wsURL, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("stream dial %s: %w", collection, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan sync.Event[T], 64)

	go func() {
		defer close(out)
		defer conn.Close(websocket.StatusNormalClosure, "")
		for {
			var env envelope
			if err := wsjson.Read(ctx, conn, &env); err != nil {
				if ctx.Err() == nil {
					c.client.logger.Warn("event stream closed",
						zap.String("collection", collection),
						zap.Error(err))
				}
				return
			}
			ev, err := decodeEnvelope[T](env)
			if err != nil {
				c.client.logger.Warn("malformed event dropped",
					zap.String("collection", collection),
					zap.Error(err))
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, cancel, nil
}

func decodeEnvelope[T entity.Snapshot[T]](env envelope) (sync.Event[T], error) {
	switch env.Type {
	case "created":
		var e T
		if err := json.Unmarshal(env.Entity, &e); err != nil {
			return sync.Event[T]{}, fmt.Errorf("decode created entity: %w", err)
		}
		return sync.Created(e, env.OriginT), nil
	case "patched":
		if env.Key == "" {
			return sync.Event[T]{}, fmt.Errorf("patched event without key")
		}
		return sync.Patched[T](env.Key, env.Delta, env.OriginT), nil
	case "deleted":
		if env.Key == "" {
			return sync.Event[T]{}, fmt.Errorf("deleted event without key")
		}
		return sync.Deleted[T](env.Key, env.OriginT), nil
	case "batch":
		events := make([]sync.Event[T], 0, len(env.Events))
		for _, sub := range env.Events {
			ev, err := decodeEnvelope[T](sub)
			if err != nil {
				return sync.Event[T]{}, err
			}
			events = append(events, ev)
		}
		return sync.Batch(events...), nil
	default:
		return sync.Event[T]{}, fmt.Errorf("unknown event type %q", env.Type)
	}
}
