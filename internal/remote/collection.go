package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/msantori/syncline/internal/entity"
	"github.com/msantori/syncline/internal/sync"
)

// pageResponse is the wire shape of a paginated fetch.
type pageResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Items   []json.RawMessage `json:"items"`
	AsOf    int64             `json:"as_of,omitempty"`
}

// actionRequest is the wire shape of a mutation submission.
type actionRequest struct {
	RequestID string       `json:"request_id"`
	Kind      string       `json:"kind"`
	Key       string       `json:"key,omitempty"`
	Delta     entity.Delta `json:"delta,omitempty"`
	Entity    any          `json:"entity,omitempty"`
}

// actionResponse is the wire shape of a mutation outcome.
type actionResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Entity  json.RawMessage `json:"entity,omitempty"`
	Key     string          `json:"key,omitempty"`
	Delta   entity.Delta    `json:"delta,omitempty"`
	OriginT int64           `json:"origin_ts,omitempty"`
}

// Collection adapts the client to one entity type, implementing
// sync.Fetcher, sync.Mutator, and sync.EventSource.
type Collection[T entity.Snapshot[T]] struct {
	client *Client
}

// NewCollection creates a typed remote adapter.
func NewCollection[T entity.Snapshot[T]](client *Client) *Collection[T] {
	return &Collection[T]{client: client}
}

// FetchPage requests one page of the collection.
func (c *Collection[T]) FetchPage(ctx context.Context, collection string, page, pageSize int, filters map[string]string) (sync.Page[T], error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))
	for k, v := range filters {
		q.Set(k, v)
	}

	var resp pageResponse
	if err := c.client.get(ctx, "/v1/collections/"+url.PathEscape(collection)+"/entities", q, &resp); err != nil {
		return sync.Page[T]{}, fmt.Errorf("fetch page %d of %s: %w", page, collection, err)
	}
	if !resp.Success {
		return sync.Page[T]{}, fmt.Errorf("fetch page %d of %s: %s", page, collection, resp.Message)
	}

	items := make([]T, 0, len(resp.Items))
	for _, raw := range resp.Items {
		var e T
		if err := json.Unmarshal(raw, &e); err != nil {
			return sync.Page[T]{}, fmt.Errorf("decode entity in %s: %w", collection, err)
		}
		items = append(items, e)
	}
	return sync.Page[T]{Items: items, AsOf: resp.AsOf}, nil
}

// Submit sends one mutation and decodes the authoritative result.
func (c *Collection[T]) Submit(ctx context.Context, action sync.Action[T]) (*sync.MutationResult[T], error) {
	req := actionRequest{
		RequestID: action.RequestID,
		Kind:      string(action.Kind),
		Key:       action.Key,
		Delta:     action.Delta,
	}
	if action.Creates() {
		req.Entity = action.Entity
	}

	var resp actionResponse
	if err := c.client.post(ctx, "/v1/collections/"+url.PathEscape(action.Collection)+"/actions", req, &resp); err != nil {
		return nil, fmt.Errorf("submit %s: %w", action.Kind, err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("submit %s: %s", action.Kind, resp.Message)
	}

	result := &sync.MutationResult[T]{
		Key:    resp.Key,
		Delta:  resp.Delta,
		Origin: resp.OriginT,
	}
	if len(resp.Entity) > 0 {
		var e T
		if err := json.Unmarshal(resp.Entity, &e); err != nil {
			return nil, fmt.Errorf("decode mutation entity: %w", err)
		}
		result.Entity = e
		result.HasEntity = true
	}
	return result, nil
}
