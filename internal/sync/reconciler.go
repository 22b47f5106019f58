package sync

import (
	"time"

	"github.com/msantori/syncline/internal/bus"
	"github.com/msantori/syncline/internal/entity"
	"github.com/msantori/syncline/internal/store"
	"go.uber.org/zap"
)

// Reconciler is the single authority for turning events into store
// mutations. Both remote events and the results of local mutations pass
// through it, so one merge algorithm covers every source.
//
// Two rules prevent a slower fetch from clobbering a newer live patch:
//
//   - staleness: a field is only replaced when the event's origin timestamp
//     is strictly newer than the one recorded for that field. A Created for
//     an existing key is treated as a patch covering all its fields, and a
//     Created at or before a recorded deletion is dropped entirely, so both
//     orders of a fetch/delete race converge on the same state.
//   - idempotency: redelivery of an identical event finds no newer field and
//     folds to a no-op. Detection is by origin timestamps, never by event
//     identifiers; the transport may legitimately redeliver.
type Reconciler[T entity.Snapshot[T]] struct {
	collection string
	store      *store.Store[T]
	bus        *bus.Bus
	logger     *zap.Logger
}

// NewReconciler creates a reconciler bound to one collection's store.
func NewReconciler[T entity.Snapshot[T]](collection string, st *store.Store[T], b *bus.Bus, logger *zap.Logger) *Reconciler[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler[T]{
		collection: collection,
		store:      st,
		bus:        b,
		logger:     logger,
	}
}

// Apply folds one event into the store. Returns true if anything changed.
func (r *Reconciler[T]) Apply(ev Event[T]) bool {
	switch ev.Kind {
	case EventCreated:
		return r.applyCreated(ev)
	case EventPatched:
		return r.applyPatched(ev)
	case EventDeleted:
		return r.applyDeleted(ev)
	case EventBatch:
		applied := false
		for _, sub := range ev.Events {
			if r.Apply(sub) {
				applied = true
			}
		}
		return applied
	default:
		r.logger.Warn("unknown event kind dropped", zap.Int("kind", int(ev.Kind)))
		return false
	}
}

func (r *Reconciler[T]) applyCreated(ev Event[T]) bool {
	key := ev.Entity.Key()
	if _, exists := r.store.Get(key); exists {
		// A full snapshot for a known key is a patch over all its
		// fields, subject to the same staleness rule, so a fetch that
		// returns after a live edit does not resurrect stale data.
		n := r.store.ApplyPatch(key, ev.Entity.Fields(), ev.Origin)
		if n <= 0 {
			return false
		}
		r.notify(key, EventPatched)
		return true
	}
	if !r.store.Upsert(ev.Entity, ev.Origin) {
		return false
	}
	r.notify(key, EventCreated)
	return true
}

func (r *Reconciler[T]) applyPatched(ev Event[T]) bool {
	n := r.store.ApplyPatch(ev.Key, ev.Delta, ev.Origin)
	switch {
	case n < 0:
		// Some transports deliver metadata events slightly before the
		// entity's creation event; a later Created carries the end
		// state, so this is a deferred no-op and never retried.
		r.logger.Info("reconciliation anomaly: patch for unknown key",
			zap.String("collection", r.collection),
			zap.String("key", ev.Key))
		return false
	case n == 0:
		return false
	default:
		r.notify(ev.Key, EventPatched)
		return true
	}
}

func (r *Reconciler[T]) applyDeleted(ev Event[T]) bool {
	if !r.store.Remove(ev.Key, ev.Origin) {
		return false
	}
	r.notify(ev.Key, EventDeleted)
	return true
}

// Promote atomically replaces a temporary optimistic entity with the
// server-assigned final one. Consumers observe either the temporary or the
// final snapshot, never both, never neither.
func (r *Reconciler[T]) Promote(tempKey string, final T, origin int64) {
	r.store.Replace(tempKey, final, origin)
	r.notify(final.Key(), EventCreated)
}

func (r *Reconciler[T]) notify(key string, kind EventKind) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(bus.Event{
		Kind:      "change." + r.collection + "." + kind.String(),
		Timestamp: time.Now(),
		Payload: Change{
			Collection: r.collection,
			Key:        key,
			Kind:       kind,
		},
	})
}
