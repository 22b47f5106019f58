// Package store holds the authoritative in-memory collection for one entity
// family, plus its loading and error metadata.
package store

import (
	"cmp"
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/msantori/syncline/internal/entity"
	"go.uber.org/zap"
)

// Store keeps at most one snapshot per entity key together with the origin
// timestamp of every field, so stale patches can be rejected field by field.
// Deletions leave a tombstone carrying their origin, so a slower snapshot
// from before the deletion cannot resurrect the key.
//
// The owning coordinator is the only writer; reads may happen concurrently
// from any goroutine.
type Store[T entity.Snapshot[T]] struct {
	mu         sync.RWMutex
	entities   map[string]T
	origins    map[string]map[string]int64
	tombstones map[string]int64
	rev        uint64

	loading     bool
	loadingMore bool
	hasMore     bool
	lastErr     error
	lastFetch   time.Time

	logger *zap.Logger
}

// New creates an empty store.
func New[T entity.Snapshot[T]](logger *zap.Logger) *Store[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store[T]{
		entities:   make(map[string]T),
		origins:    make(map[string]map[string]int64),
		tombstones: make(map[string]int64),
		logger:     logger,
	}
}

// Get returns the current snapshot for key, if present. No side effects.
func (s *Store[T]) Get(key string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[key]
	return e, ok
}

// Len returns the number of entities currently held.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// Rev returns the revision counter, bumped by every mutating operation.
func (s *Store[T]) Rev() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rev
}

// Upsert inserts or replaces the snapshot by its own key, recording origin as
// the origin timestamp of every field. An upsert at or before a recorded
// deletion is rejected; a strictly newer one resurrects the key. Returns
// whether the snapshot landed.
func (s *Store[T]) Upsert(e T, origin int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := e.Key()
	if ts, ok := s.tombstones[key]; ok {
		if origin <= ts {
			s.logger.Debug("upsert older than deletion dropped",
				zap.String("key", key),
				zap.Int64("origin", origin),
				zap.Int64("deleted_at", ts))
			return false
		}
		delete(s.tombstones, key)
	}
	s.upsertLocked(e, origin)
	s.rev++
	return true
}

func (s *Store[T]) upsertLocked(e T, origin int64) {
	key := e.Key()
	s.entities[key] = e
	fields := make(map[string]int64)
	for f := range e.Fields() {
		fields[f] = origin
	}
	s.origins[key] = fields
}

// ApplyPatch merges only the delta fields whose recorded origin timestamp is
// strictly older than origin. Returns the number of fields applied. A patch
// for an absent key is a logged no-op (the key may simply not have arrived
// yet), reported as -1.
func (s *Store[T]) ApplyPatch(key string, d entity.Delta, origin int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.entities[key]
	if !ok {
		if _, dead := s.tombstones[key]; dead {
			// Patch for a deleted key: expected after a deletion won a
			// race, plain no-op rather than an anomaly.
			return 0
		}
		s.logger.Debug("patch for unknown key deferred",
			zap.String("key", key),
			zap.Int64("origin", origin))
		return -1
	}

	fields := s.origins[key]
	if fields == nil {
		fields = make(map[string]int64)
		s.origins[key] = fields
	}

	fresh := make(entity.Delta, len(d))
	for f, v := range d {
		if fields[f] >= origin {
			continue
		}
		fresh[f] = v
	}
	if len(fresh) == 0 {
		return 0
	}

	s.entities[key] = cur.Apply(fresh)
	for f := range fresh {
		fields[f] = origin
	}
	s.rev++
	return len(fresh)
}

// Remove deletes the snapshot and records a tombstone at origin. The
// tombstone is kept even when the key is absent, so a deletion arriving
// ahead of the entity it targets still blocks older data. Returns whether an
// entity was removed; the newest deletion origin always wins.
func (s *Store[T]) Remove(key string, origin int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ts, ok := s.tombstones[key]; !ok || origin > ts {
		s.tombstones[key] = origin
	}
	if _, ok := s.entities[key]; !ok {
		return false
	}
	delete(s.entities, key)
	delete(s.origins, key)
	s.rev++
	return true
}

// Replace atomically removes tempKey and inserts final under its own key in a
// single revision, so no reader ever observes both or neither.
func (s *Store[T]) Replace(tempKey string, final T, origin int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entities, tempKey)
	delete(s.origins, tempKey)
	// The promotion is authoritative: the server just assigned this key.
	delete(s.tombstones, final.Key())
	s.upsertLocked(final, origin)
	s.rev++
}

// All returns a restartable iterator over the current snapshots: pinned
// entities first, each group ordered by sort key descending, ties broken by
// entity key ascending. The sequence is computed once per call and is not
// affected by later mutations.
func (s *Store[T]) All() iter.Seq[T] {
	s.mu.RLock()
	out := make([]T, 0, len(s.entities))
	for _, e := range s.entities {
		out = append(out, e)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b T) int {
		if a.Pinned() != b.Pinned() {
			if a.Pinned() {
				return -1
			}
			return 1
		}
		if c := cmp.Compare(b.SortKey(), a.SortKey()); c != 0 {
			return c
		}
		return cmp.Compare(a.Key(), b.Key())
	})

	return func(yield func(T) bool) {
		for _, e := range out {
			if !yield(e) {
				return
			}
		}
	}
}

// Keys returns the current entity keys in no particular order.
func (s *Store[T]) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.entities))
	for k := range s.entities {
		keys = append(keys, k)
	}
	return keys
}

// FieldOrigin returns the recorded origin timestamp for one field of one
// entity, or zero when unknown.
func (s *Store[T]) FieldOrigin(key, field string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.origins[key][field]
}
