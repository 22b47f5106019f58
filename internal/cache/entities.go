package cache

import (
	"context"
	"time"
)

// Row is one serialized cache entry.
type Row struct {
	EntityKey string
	Payload   []byte
	OriginTS  int64
	SortKey   int64
}

// List returns every entry of one collection ordered by sort key descending.
func (db *DB) List(ctx context.Context, collectionKey string) ([]Row, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT entity_key, payload, origin_ts, sort_key
		FROM entities
		WHERE collection_key = ?
		ORDER BY sort_key DESC, entity_key ASC`, collectionKey)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.EntityKey, &r.Payload, &r.OriginTS, &r.SortKey); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Upsert writes the given entries in one transaction (idempotent on
// collection_key + entity_key).
func (db *DB) Upsert(ctx context.Context, collectionKey string, entries []Row) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()
	for _, r := range entries {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO entities (collection_key, entity_key, payload, origin_ts, sort_key, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(collection_key, entity_key) DO UPDATE SET
				payload = excluded.payload,
				origin_ts = excluded.origin_ts,
				sort_key = excluded.sort_key,
				updated_at = excluded.updated_at`,
			collectionKey, r.EntityKey, r.Payload, r.OriginTS, r.SortKey, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Remove deletes one entry. Idempotent.
func (db *DB) Remove(ctx context.Context, collectionKey, entityKey string) error {
	_, err := db.ExecContext(ctx, `
		DELETE FROM entities WHERE collection_key = ? AND entity_key = ?`,
		collectionKey, entityKey)
	return err
}

// Purge drops every entry of one collection.
func (db *DB) Purge(ctx context.Context, collectionKey string) error {
	_, err := db.ExecContext(ctx, `
		DELETE FROM entities WHERE collection_key = ?`, collectionKey)
	return err
}
