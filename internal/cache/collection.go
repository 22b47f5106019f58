package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/msantori/syncline/internal/entity"
	"github.com/msantori/syncline/internal/sync"
	"go.uber.org/zap"
)

// Collection adapts the raw cache DB to one entity type, implementing
// sync.Cache. Entries that fail to decode are skipped, not fatal: cached
// data is best effort by contract.
type Collection[T entity.Snapshot[T]] struct {
	db     *DB
	logger *zap.Logger
}

// NewCollection creates a typed cache adapter.
func NewCollection[T entity.Snapshot[T]](db *DB, logger *zap.Logger) *Collection[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collection[T]{db: db, logger: logger}
}

// Load returns every cached snapshot of the collection, most recent first.
func (c *Collection[T]) Load(ctx context.Context, collection string) ([]sync.Stored[T], error) {
	rows, err := c.db.List(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("cache list %s: %w", collection, err)
	}
	out := make([]sync.Stored[T], 0, len(rows))
	for _, r := range rows {
		var e T
		if err := json.Unmarshal(r.Payload, &e); err != nil {
			c.logger.Warn("cached entity skipped",
				zap.String("collection", collection),
				zap.String("key", r.EntityKey),
				zap.Error(err))
			continue
		}
		out = append(out, sync.Stored[T]{Entity: e, Origin: r.OriginTS})
	}
	return out, nil
}

// Put serializes and upserts the given snapshots.
func (c *Collection[T]) Put(ctx context.Context, collection string, items []sync.Stored[T]) error {
	rows := make([]Row, 0, len(items))
	for _, s := range items {
		payload, err := json.Marshal(s.Entity)
		if err != nil {
			return fmt.Errorf("encode %s/%s: %w", collection, s.Entity.Key(), err)
		}
		rows = append(rows, Row{
			EntityKey: s.Entity.Key(),
			Payload:   payload,
			OriginTS:  s.Origin,
			SortKey:   s.Entity.SortKey(),
		})
	}
	if err := c.db.Upsert(ctx, collection, rows); err != nil {
		return fmt.Errorf("cache put %s: %w", collection, err)
	}
	return nil
}

// Delete removes one cached snapshot. Idempotent.
func (c *Collection[T]) Delete(ctx context.Context, collection, key string) error {
	if err := c.db.Remove(ctx, collection, key); err != nil {
		return fmt.Errorf("cache delete %s/%s: %w", collection, key, err)
	}
	return nil
}
