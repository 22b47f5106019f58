// Package entity defines the domain snapshots the sync engine operates on.
//
// Snapshots are immutable values: Apply returns a copy with the delta fields
// replaced and never mutates the receiver, so holders of an old snapshot are
// unaffected by later merges.
package entity

// Delta is a partial set of field values keyed by field name.
type Delta map[string]any

// Clone returns a shallow copy of the delta.
func (d Delta) Clone() Delta {
	out := make(Delta, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Entity is implemented by every domain record the engine tracks.
type Entity interface {
	// Key returns the stable identifier once server-assigned, or the
	// client temporary key while a write is pending.
	Key() string
	// SortKey returns the ordering key in millis (recency for chats,
	// origin time for messages).
	SortKey() int64
	// Pinned reports whether the entity is forced to the front of any
	// ordered listing regardless of recency.
	Pinned() bool
}

// Snapshot is an Entity that can merge field deltas into new copies.
type Snapshot[T any] interface {
	Entity
	// Apply returns a copy with the delta fields replaced. Unknown
	// field names are ignored.
	Apply(d Delta) T
	// Fields returns the full field map, suitable for treating a whole
	// snapshot as a patch covering all its fields.
	Fields() Delta
	// WithKey returns a copy under a different key. Used to stamp
	// client temporary keys on optimistic writes.
	WithKey(key string) T
}

// Sync states carried by every entity in the shared "sync_state" field.
const (
	SyncClean   = ""
	SyncPending = "pending"
	SyncFailed  = "failed"
)

// FieldSyncState is the shared per-entity write status field.
const FieldSyncState = "sync_state"

func str(d Delta, field string, cur string) string {
	if v, ok := d[field]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return cur
}

func i64(d Delta, field string, cur int64) int64 {
	if v, ok := d[field]; ok {
		switch n := v.(type) {
		case int64:
			return n
		case int:
			return int64(n)
		case float64:
			// JSON-decoded deltas arrive as float64.
			return int64(n)
		}
	}
	return cur
}

func boolean(d Delta, field string, cur bool) bool {
	if v, ok := d[field]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return cur
}
