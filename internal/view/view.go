// Package view provides read-only projections of an entity store under a
// filter/sort/search configuration. A view never mutates the store.
package view

import (
	"cmp"
	"slices"
	"strings"
	"sync"

	"github.com/msantori/syncline/internal/entity"
	"github.com/msantori/syncline/internal/status"
	"github.com/msantori/syncline/internal/store"
)

// Phase tags the collection-level state a consumer must handle.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseReady
	PhaseError
)

// State is the tagged projection result, matched exhaustively by consumers:
// Loading carries nothing, Ready carries items, Error carries the reason.
// A collection that loaded once stays Ready with its last data even when a
// later fetch fails; Meta.LastError carries the recorded failure.
type State[T entity.Snapshot[T]] struct {
	Phase Phase
	Items []T
	Err   error
	Meta  store.Meta
}

// Config describes one projection. Zero value passes everything through in
// store order (pinned first, then recency).
type Config[T entity.Snapshot[T]] struct {
	// Filter keeps entities it returns true for. Nil keeps all.
	Filter func(T) bool
	// Compare overrides the store ordering. Ties are re-broken by entity
	// key for determinism.
	Compare func(a, b T) int
	// Match implements search; consulted only when a query is set.
	Match func(e T, query string) bool
}

// View is a derived projection, recomputed only when the store revision or
// the configuration changes.
type View[T entity.Snapshot[T]] struct {
	store   *store.Store[T]
	stateFn func() status.State

	mu      sync.Mutex
	cfg     Config[T]
	query   string
	cfgRev  uint64
	lastRev uint64
	lastCfg uint64
	cached  []T
	valid   bool
}

// New creates a view over st. stateFn reports the owning coordinator's
// lifecycle state; nil means always ready.
func New[T entity.Snapshot[T]](st *store.Store[T], stateFn func() status.State, cfg Config[T]) *View[T] {
	return &View[T]{store: st, stateFn: stateFn, cfg: cfg}
}

// SetConfig replaces the projection configuration.
func (v *View[T]) SetConfig(cfg Config[T]) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cfg = cfg
	v.cfgRev++
}

// SetQuery replaces the search query. Callers debounce keystrokes before
// this lands (see Observer).
func (v *View[T]) SetQuery(q string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.query == q {
		return
	}
	v.query = q
	v.cfgRev++
}

// Query returns the current search query.
func (v *View[T]) Query() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.query
}

// Snapshot returns the current projection, recomputing at most once per
// store revision/config change.
func (v *View[T]) Snapshot() State[T] {
	meta := v.store.Meta()
	phase := PhaseReady
	if v.stateFn != nil {
		switch v.stateFn() {
		case status.Uninitialized, status.LoadingCache, status.LoadingNetwork:
			phase = PhaseLoading
		case status.Error:
			phase = PhaseError
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	rev := v.store.Rev()
	if !v.valid || rev != v.lastRev || v.cfgRev != v.lastCfg {
		v.cached = v.compute()
		v.lastRev = rev
		v.lastCfg = v.cfgRev
		v.valid = true
	}

	st := State[T]{Phase: phase, Meta: meta}
	switch phase {
	case PhaseReady:
		st.Items = v.cached
	case PhaseError:
		st.Err = meta.LastError
	}
	return st
}

func (v *View[T]) compute() []T {
	var out []T
	query := strings.TrimSpace(v.query)
	for e := range v.store.All() {
		if v.cfg.Filter != nil && !v.cfg.Filter(e) {
			continue
		}
		if query != "" && v.cfg.Match != nil && !v.cfg.Match(e, query) {
			continue
		}
		out = append(out, e)
	}
	if v.cfg.Compare != nil {
		slices.SortStableFunc(out, func(a, b T) int {
			if c := v.cfg.Compare(a, b); c != 0 {
				return c
			}
			return cmp.Compare(a.Key(), b.Key())
		})
	}
	return out
}
