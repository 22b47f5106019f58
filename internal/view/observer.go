package view

import (
	"context"
	"time"

	"github.com/msantori/syncline/internal/bus"
	"github.com/msantori/syncline/internal/debounce"
	"github.com/msantori/syncline/internal/entity"
	"go.uber.org/zap"
)

// Observer turns a view into a stream of states, re-emitted whenever the
// collection changes. Search input goes through a debounce so a burst of
// keystrokes yields one recompute.
type Observer[T entity.Snapshot[T]] struct {
	view       *View[T]
	bus        *bus.Bus
	collection string
	sched      *debounce.Scheduler
	delay      time.Duration
	trigger    chan struct{}
	logger     *zap.Logger
}

// NewObserver creates an observer for one collection's view. delay is the
// search debounce interval.
func NewObserver[T entity.Snapshot[T]](v *View[T], b *bus.Bus, collection string, delay time.Duration, logger *zap.Logger) *Observer[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	if delay <= 0 {
		delay = 250 * time.Millisecond
	}
	return &Observer[T]{
		view:       v,
		bus:        b,
		collection: collection,
		sched:      debounce.NewScheduler(),
		delay:      delay,
		trigger:    make(chan struct{}, 1),
		logger:     logger,
	}
}

// Search schedules a debounced query change. Bursts of edits collapse into
// one emission after the delay.
func (o *Observer[T]) Search(query string) {
	o.sched.Schedule("query", o.delay, func() {
		o.view.SetQuery(query)
		o.poke()
	})
}

// Observe streams view states until ctx is done. The current state is
// emitted immediately, then once per applied change, lifecycle transition,
// or debounced search update. Slow consumers miss intermediate states, never
// the latest: emission is coalesced, not queued.
func (o *Observer[T]) Observe(ctx context.Context) <-chan State[T] {
	out := make(chan State[T], 1)

	changes, unsubChanges := o.bus.Subscribe("change."+o.collection+".", 64)
	states, unsubStates := o.bus.Subscribe("collection."+o.collection+".", 16)

	go func() {
		defer close(out)
		defer unsubChanges()
		defer unsubStates()
		defer o.sched.Stop()

		emit := func() {
			st := o.view.Snapshot()
			// Coalesce: replace a not-yet-consumed state.
			select {
			case out <- st:
			default:
				select {
				case <-out:
				default:
				}
				out <- st
			}
		}

		emit()
		for {
			select {
			case <-changes:
				emit()
			case <-states:
				emit()
			case <-o.trigger:
				emit()
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (o *Observer[T]) poke() {
	select {
	case o.trigger <- struct{}{}:
	default:
	}
}
