// Package sync implements the entity synchronization engine: the merge of
// cache, paginated fetch, and real-time event inputs into one store per
// collection.
package sync

import "github.com/msantori/syncline/internal/entity"

// EventKind tags the variants of a sync event.
type EventKind int

const (
	// EventCreated carries a full entity snapshot.
	EventCreated EventKind = iota
	// EventPatched carries a field delta for an existing entity.
	EventPatched
	// EventDeleted removes an entity by key.
	EventDeleted
	// EventBatch groups events delivered together.
	EventBatch
)

func (k EventKind) String() string {
	switch k {
	case EventCreated:
		return "created"
	case EventPatched:
		return "patched"
	case EventDeleted:
		return "deleted"
	case EventBatch:
		return "batch"
	default:
		return "unknown"
	}
}

// Event is an incremental change to one collection. Events are transient:
// they are never retained after being folded into the store.
type Event[T entity.Snapshot[T]] struct {
	Kind EventKind

	// Entity is set for EventCreated.
	Entity T
	// Key is set for EventPatched and EventDeleted.
	Key string
	// Delta is set for EventPatched.
	Delta entity.Delta
	// Origin is the origin timestamp in millis of the field values this
	// event carries, assigned at the source of truth.
	Origin int64

	// Events is set for EventBatch.
	Events []Event[T]
}

// Created builds a creation event.
func Created[T entity.Snapshot[T]](e T, origin int64) Event[T] {
	return Event[T]{Kind: EventCreated, Entity: e, Key: e.Key(), Origin: origin}
}

// Patched builds a field-patch event.
func Patched[T entity.Snapshot[T]](key string, d entity.Delta, origin int64) Event[T] {
	return Event[T]{Kind: EventPatched, Key: key, Delta: d, Origin: origin}
}

// Deleted builds a deletion event.
func Deleted[T entity.Snapshot[T]](key string, origin int64) Event[T] {
	return Event[T]{Kind: EventDeleted, Key: key, Origin: origin}
}

// Batch groups events into one.
func Batch[T entity.Snapshot[T]](events ...Event[T]) Event[T] {
	return Event[T]{Kind: EventBatch, Events: events}
}

// Change describes one applied store mutation. It is published on the bus
// under "change.<collection>.<kind>" and is the sole coupling point to the
// notification subsystem.
type Change struct {
	Collection string
	Key        string
	Kind       EventKind
}
