package sync

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/msantori/syncline/internal/bus"
	"github.com/msantori/syncline/internal/entity"
	"github.com/msantori/syncline/internal/outbox"
	"github.com/msantori/syncline/internal/status"
	"github.com/msantori/syncline/internal/store"
	"go.uber.org/zap"
)

// Deps are the injected collaborators for one coordinator.
type Deps[T entity.Snapshot[T]] struct {
	Cache   Cache[T]
	Fetcher Fetcher[T]
	Events  EventSource[T]
	Mutator Mutator[T]
	Bus     *bus.Bus
	Logger  *zap.Logger
}

// Options tune one coordinator instance.
type Options struct {
	PageSize int
	Filters  map[string]string
}

// Outcome is the terminal result of one Mutate call.
type Outcome[T entity.Snapshot[T]] struct {
	Key       string
	Entity    T
	HasEntity bool
	Err       error
}

// Coordinator orchestrates one collection: it sequences cache load, network
// fetch, and event subscription, and funnels every store mutation through a
// single owning goroutine so the staleness and idempotency guarantees hold
// without ad hoc locking.
type Coordinator[T entity.Snapshot[T]] struct {
	collection string
	store      *store.Store[T]
	rec        *Reconciler[T]
	cursor     *Cursor
	pending    *outbox.Tracker[T]
	machine    *status.Machine

	cache   Cache[T]
	fetcher Fetcher[T]
	events  EventSource[T]
	mutator Mutator[T]
	bus     *bus.Bus
	logger  *zap.Logger

	filters map[string]string

	ops  chan func()
	done chan struct{}

	started atomic.Bool
	alive   atomic.Bool
	cancel  context.CancelFunc

	// Owned by the run loop.
	eventCh       <-chan Event[T]
	stopEvents    func()
	fetchInFlight bool
	loadedOnce    bool
}

// NewCoordinator creates a coordinator for one collection key. A chat list
// has one instance; a message thread or group roster has one per
// conversation/group id.
func NewCoordinator[T entity.Snapshot[T]](collection string, deps Deps[T], opts Options) *Coordinator[T] {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("collection", collection))

	st := store.New[T](logger)
	return &Coordinator[T]{
		collection: collection,
		store:      st,
		rec:        NewReconciler(collection, st, deps.Bus, logger),
		cursor:     NewCursor(opts.PageSize),
		pending:    outbox.NewTracker[T](logger),
		machine:    status.NewMachine(collection, deps.Bus),
		cache:      deps.Cache,
		fetcher:    deps.Fetcher,
		events:     deps.Events,
		mutator:    deps.Mutator,
		bus:        deps.Bus,
		logger:     logger,
		filters:    opts.Filters,
		ops:        make(chan func(), 64),
		done:       make(chan struct{}),
	}
}

// Collection returns the collection key.
func (c *Coordinator[T]) Collection() string { return c.collection }

// Store returns the owned entity store. Callers may read; all writes go
// through the coordinator.
func (c *Coordinator[T]) Store() *store.Store[T] { return c.store }

// State returns the current lifecycle state.
func (c *Coordinator[T]) State() status.State { return c.machine.Current() }

// Start boots the collection: cache load, first page fetch, then the event
// subscription. Idempotent; later calls are no-ops.
func (c *Coordinator[T]) Start(ctx context.Context) {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	c.alive.Store(true)
	ctx, c.cancel = context.WithCancel(ctx)

	go c.run(ctx)
	go c.bootstrap(ctx)
}

// Close tears the coordinator down: the event subscription is cancelled and
// any in-flight fetch completes but is discarded.
func (c *Coordinator[T]) Close() {
	if !c.alive.CompareAndSwap(true, false) {
		return
	}
	if c.cancel != nil {
		c.cancel()
	}
}

// run is the single owning goroutine: every store mutation happens here.
func (c *Coordinator[T]) run(ctx context.Context) {
	defer close(c.done)
	defer func() {
		if c.stopEvents != nil {
			c.stopEvents()
		}
	}()
	defer c.flushOps()
	for {
		select {
		case fn := <-c.ops:
			fn()
		case ev, ok := <-c.eventCh:
			if !ok {
				c.eventCh = nil
				continue
			}
			if c.rec.Apply(ev) {
				c.unpersist(ev)
			}
		case <-ctx.Done():
			return
		}
	}
}

// post schedules fn on the run loop unless the coordinator is closed,
// reporting whether it was accepted. Late fetch results land here and are
// dropped once the store declared itself destroyed; callers that owe someone
// an answer must deliver it themselves on rejection.
func (c *Coordinator[T]) post(fn func()) bool {
	if !c.alive.Load() {
		return false
	}
	select {
	case c.ops <- fn:
		return true
	case <-c.done:
		return false
	}
}

// flushOps runs the closures still queued when the loop exits, so an
// outcome accepted just before shutdown is delivered rather than stranded.
func (c *Coordinator[T]) flushOps() {
	for {
		select {
		case fn := <-c.ops:
			fn()
		default:
			return
		}
	}
}

func (c *Coordinator[T]) bootstrap(ctx context.Context) {
	_ = c.machine.Transition(status.LoadingCache)
	c.store.SetLoading(true)

	cached, err := c.cache.Load(ctx, c.collection)
	if err != nil {
		// Cache read failures are swallowed: an empty cache and a
		// failed one look the same from here.
		c.logger.Warn("cache load failed, starting empty",
			zap.Error(newFailure(FailureCacheRead, c.collection, err)))
		cached = nil
	}
	c.post(func() {
		for _, s := range cached {
			c.rec.Apply(Created(s.Entity, s.Origin))
		}
	})

	_ = c.machine.Transition(status.LoadingNetwork)
	page, ferr := c.fetcher.FetchPage(ctx, c.collection, c.cursor.Next(), c.cursor.PageSize(), c.filters)
	c.post(func() { c.finishFirstLoad(page, ferr) })

	if c.events == nil {
		return
	}
	ch, stop, serr := c.events.Subscribe(ctx, c.collection)
	if serr != nil {
		// No retry loop inside the engine; the subscription owner may
		// restart the coordinator.
		c.logger.Error("event subscription failed", zap.Error(serr))
		return
	}
	c.post(func() {
		c.eventCh = ch
		c.stopEvents = stop
	})
}

func (c *Coordinator[T]) finishFirstLoad(page Page[T], err error) {
	c.store.SetLoading(false)
	if err != nil {
		failure := newFailure(FailureNetwork, c.collection, err)
		c.store.SetError(failure)
		if c.store.Len() == 0 {
			// First load, no cache to fall back on.
			_ = c.machine.Transition(status.Error)
			c.logger.Error("first load failed with empty cache", zap.Error(failure))
			return
		}
		// Stale but present beats a blank screen.
		_ = c.machine.Transition(status.Ready)
		c.loadedOnce = true
		c.logger.Warn("first fetch failed, serving cached data", zap.Error(failure))
		return
	}

	origin := c.pageOrigin(page)
	for _, item := range page.Items {
		c.rec.Apply(Created(item, origin))
	}
	c.cursor.Advance(len(page.Items))
	c.store.SetHasMore(c.cursor.HasMore())
	c.store.MarkFetched(time.Now())
	c.loadedOnce = true
	_ = c.machine.Transition(status.Ready)
	c.persist(page.Items, origin)
}

// LoadMore fetches the next page. No-op while exhausted or a fetch is
// already in flight.
func (c *Coordinator[T]) LoadMore(ctx context.Context) {
	c.post(func() {
		if !c.cursor.HasMore() || c.fetchInFlight || !c.loadedOnce {
			return
		}
		c.fetchInFlight = true
		c.store.SetLoadingMore(true)
		pageIdx := c.cursor.Next()
		size := c.cursor.PageSize()
		go func() {
			page, err := c.fetcher.FetchPage(ctx, c.collection, pageIdx, size, c.filters)
			c.post(func() { c.finishLoadMore(page, err) })
		}()
	})
}

func (c *Coordinator[T]) finishLoadMore(page Page[T], err error) {
	c.fetchInFlight = false
	c.store.SetLoadingMore(false)
	if err != nil {
		// A failed fetch never advances the cursor.
		c.store.SetError(newFailure(FailureNetwork, c.collection, err))
		c.logger.Warn("load more failed", zap.Error(err))
		return
	}
	origin := c.pageOrigin(page)
	for _, item := range page.Items {
		c.rec.Apply(Created(item, origin))
	}
	c.cursor.Advance(len(page.Items))
	c.store.SetHasMore(c.cursor.HasMore())
	c.store.MarkFetched(time.Now())
	c.persist(page.Items, origin)
}

// Refresh re-fetches the first page sized to the retained window, so a
// refresh never shrinks what the user already scrolled through. Entities
// outside the refreshed window are left untouched. On a collection whose
// first load failed outright, Refresh retries that first load instead.
func (c *Coordinator[T]) Refresh(ctx context.Context) {
	c.post(func() {
		if c.fetchInFlight {
			return
		}
		if !c.loadedOnce {
			c.retryFirstLoad(ctx)
			return
		}
		if err := c.machine.Transition(status.Refreshing); err != nil {
			return
		}
		c.fetchInFlight = true
		size := c.cursor.Retained()
		go func() {
			page, err := c.fetcher.FetchPage(ctx, c.collection, 0, size, c.filters)
			c.post(func() { c.finishRefresh(page, size, err) })
		}()
	})
}

// retryFirstLoad re-runs the first page fetch after a failed start. Only the
// Error state qualifies; a bootstrap still in flight is left alone.
func (c *Coordinator[T]) retryFirstLoad(ctx context.Context) {
	if c.machine.Current() != status.Error {
		return
	}
	if err := c.machine.Transition(status.LoadingNetwork); err != nil {
		return
	}
	c.fetchInFlight = true
	c.store.SetLoading(true)
	pageIdx := c.cursor.Next()
	size := c.cursor.PageSize()
	go func() {
		page, err := c.fetcher.FetchPage(ctx, c.collection, pageIdx, size, c.filters)
		c.post(func() {
			c.fetchInFlight = false
			c.finishFirstLoad(page, err)
		})
	}()
}

func (c *Coordinator[T]) finishRefresh(page Page[T], requested int, err error) {
	c.fetchInFlight = false
	if err != nil {
		c.store.SetError(newFailure(FailureNetwork, c.collection, err))
		_ = c.machine.Transition(status.Ready)
		c.logger.Warn("refresh failed, keeping current data", zap.Error(err))
		return
	}
	origin := c.pageOrigin(page)
	for _, item := range page.Items {
		c.rec.Apply(Created(item, origin))
	}
	c.cursor.RecordRefresh(len(page.Items), requested)
	c.store.SetHasMore(c.cursor.HasMore())
	c.store.MarkFetched(time.Now())
	_ = c.machine.Transition(status.Ready)
	c.persist(page.Items, origin)
}

// Mutate performs one user-initiated write: optimistic local apply, network
// submission, authoritative result through the reconciler. The returned
// channel receives the outcome exactly once.
func (c *Coordinator[T]) Mutate(ctx context.Context, action Action[T]) <-chan Outcome[T] {
	if action.RequestID == "" {
		action.RequestID = uuid.NewString()
	}
	action.Collection = c.collection
	result := make(chan Outcome[T], 1)

	if !c.alive.Load() {
		result <- Outcome[T]{Key: action.Key, Err: newFailure(FailureMutation, c.collection, ErrClosed)}
		return result
	}

	if action.Creates() {
		c.mutateCreate(ctx, action, result)
	} else {
		c.mutatePatch(ctx, action, result)
	}
	return result
}

func (c *Coordinator[T]) mutateCreate(ctx context.Context, action Action[T], result chan Outcome[T]) {
	w := c.pending.Begin()
	now := time.Now().UnixMilli()
	temp := action.Entity.WithKey(w.TempKey).Apply(entity.Delta{entity.FieldSyncState: entity.SyncPending})

	c.logger.Info("optimistic create",
		zap.String("request_id", action.RequestID),
		zap.String("temp_key", w.TempKey))

	c.post(func() {
		c.rec.Apply(Created(temp, now))
	})

	go func() {
		res, err := c.mutator.Submit(ctx, action)
		delivered := c.post(func() {
			if err != nil {
				failure := newFailure(FailureMutation, c.collection, err)
				// Keep the entity so the UI can offer retry
				// without losing user input.
				c.rec.Apply(Patched[T](w.TempKey, entity.Delta{entity.FieldSyncState: entity.SyncFailed}, originAfter(now)))
				c.pending.Resolve(w.TempKey, outbox.Outcome[T]{Err: failure})
				result <- Outcome[T]{Key: w.TempKey, Err: failure}
				c.logger.Warn("create failed",
					zap.String("request_id", action.RequestID),
					zap.Error(err))
				return
			}

			final := c.finalEntity(temp, res)
			origin := res.Origin
			if origin <= now {
				origin = originAfter(now)
			}
			c.rec.Promote(w.TempKey, final, origin)
			c.pending.Resolve(w.TempKey, outbox.Outcome[T]{Entity: final})
			result <- Outcome[T]{Key: final.Key(), Entity: final, HasEntity: true}
			c.persist([]T{final}, origin)
			c.logger.Info("create acknowledged",
				zap.String("request_id", action.RequestID),
				zap.String("temp_key", w.TempKey),
				zap.String("key", final.Key()))
		})
		if !delivered {
			c.pending.Resolve(w.TempKey, outbox.Outcome[T]{Err: ErrClosed})
			result <- Outcome[T]{Key: w.TempKey, Err: newFailure(FailureMutation, c.collection, ErrClosed)}
		}
	}()
}

func (c *Coordinator[T]) mutatePatch(ctx context.Context, action Action[T], result chan Outcome[T]) {
	now := time.Now().UnixMilli()
	optimistic := action.Delta.Clone()
	optimistic[entity.FieldSyncState] = entity.SyncPending

	c.post(func() {
		c.rec.Apply(Patched[T](action.Key, optimistic, now))
	})

	go func() {
		res, err := c.mutator.Submit(ctx, action)
		delivered := c.post(func() {
			if err != nil {
				failure := newFailure(FailureMutation, c.collection, err)
				// Never silently revert: the entity stays with
				// its optimistic fields flagged as failed.
				c.rec.Apply(Patched[T](action.Key, entity.Delta{entity.FieldSyncState: entity.SyncFailed}, originAfter(now)))
				result <- Outcome[T]{Key: action.Key, Err: failure}
				c.logger.Warn("mutation failed",
					zap.String("request_id", action.RequestID),
					zap.String("kind", string(action.Kind)),
					zap.Error(err))
				return
			}

			origin := res.Origin
			if origin <= now {
				origin = originAfter(now)
			}
			if res.HasEntity {
				c.rec.Apply(Created(res.Entity.Apply(entity.Delta{entity.FieldSyncState: entity.SyncClean}), origin))
			} else {
				key := res.Key
				if key == "" {
					key = action.Key
				}
				delta := res.Delta.Clone()
				if delta == nil {
					delta = entity.Delta{}
				}
				delta[entity.FieldSyncState] = entity.SyncClean
				c.rec.Apply(Patched[T](key, delta, origin))
			}
			if e, ok := c.store.Get(action.Key); ok {
				c.persist([]T{e}, origin)
			}
			result <- Outcome[T]{Key: action.Key}
		})
		if !delivered {
			result <- Outcome[T]{Key: action.Key, Err: newFailure(FailureMutation, c.collection, ErrClosed)}
		}
	}()
}

func (c *Coordinator[T]) finalEntity(temp T, res *MutationResult[T]) T {
	if res.HasEntity {
		return res.Entity.Apply(entity.Delta{entity.FieldSyncState: entity.SyncClean})
	}
	final := temp
	if res.Delta != nil {
		final = final.Apply(res.Delta)
	}
	if res.Key != "" {
		final = final.WithKey(res.Key)
	}
	return final.Apply(entity.Delta{entity.FieldSyncState: entity.SyncClean})
}

// persist re-writes the affected entities to the cache, fire-and-forget.
func (c *Coordinator[T]) persist(items []T, origin int64) {
	if c.cache == nil || len(items) == 0 {
		return
	}
	stored := make([]Stored[T], 0, len(items))
	for _, e := range items {
		stored = append(stored, Stored[T]{Entity: e, Origin: origin})
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.cache.Put(ctx, c.collection, stored); err != nil {
			c.logger.Warn("cache write failed", zap.Error(err))
		}
	}()
}

// unpersist drops deleted entities from the cache, fire-and-forget, so they
// do not resurrect on next start.
func (c *Coordinator[T]) unpersist(ev Event[T]) {
	if c.cache == nil {
		return
	}
	var keys []string
	var collect func(Event[T])
	collect = func(e Event[T]) {
		switch e.Kind {
		case EventDeleted:
			keys = append(keys, e.Key)
		case EventBatch:
			for _, sub := range e.Events {
				collect(sub)
			}
		}
	}
	collect(ev)
	if len(keys) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, key := range keys {
			if err := c.cache.Delete(ctx, c.collection, key); err != nil {
				c.logger.Warn("cache delete failed",
					zap.String("key", key),
					zap.Error(err))
			}
		}
	}()
}

func (c *Coordinator[T]) pageOrigin(page Page[T]) int64 {
	if page.AsOf > 0 {
		return page.AsOf
	}
	return time.Now().UnixMilli()
}

// originAfter returns a timestamp strictly later than ts, so a follow-up
// patch in the same millisecond still wins over the optimistic one.
func originAfter(ts int64) int64 {
	now := time.Now().UnixMilli()
	if now > ts {
		return now
	}
	return ts + 1
}
