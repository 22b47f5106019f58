// Package outbox tracks optimistic writes between "user action taken" and
// "server has assigned identity".
package outbox

import (
	"fmt"
	"sync"
	"time"

	"github.com/msantori/syncline/internal/entity"
	"go.uber.org/zap"
)

// Outcome is the terminal result of one optimistic write.
type Outcome[T entity.Snapshot[T]] struct {
	Entity T
	Err    error
}

// Write is one in-flight creation. It exists from the moment the user acts
// until the server responds or fails terminally; it is never persisted.
type Write[T entity.Snapshot[T]] struct {
	TempKey     string
	SubmittedAt time.Time
	done        chan Outcome[T]
}

// Done returns a channel that receives the outcome exactly once.
func (w *Write[T]) Done() <-chan Outcome[T] { return w.done }

// Tracker maps client-generated temporary keys to pending server responses.
type Tracker[T entity.Snapshot[T]] struct {
	mu     sync.Mutex
	writes map[string]*Write[T]
	seq    uint64
	logger *zap.Logger
}

// NewTracker creates an empty tracker.
func NewTracker[T entity.Snapshot[T]](logger *zap.Logger) *Tracker[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker[T]{
		writes: make(map[string]*Write[T]),
		logger: logger,
	}
}

// Begin mints a new write under a unique temporary key. The key combines the
// wall clock with a process-local counter so keys stay distinguishable even
// within one millisecond.
func (t *Tracker[T]) Begin() *Write[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	w := &Write[T]{
		TempKey:     fmt.Sprintf("tmp-%d-%d", time.Now().UnixMilli(), t.seq),
		SubmittedAt: time.Now(),
		done:        make(chan Outcome[T], 1),
	}
	t.writes[w.TempKey] = w
	return w
}

// Resolve delivers the outcome for tempKey and removes the write. A write is
// removed exactly once; resolving an unknown key is a logged no-op.
func (t *Tracker[T]) Resolve(tempKey string, out Outcome[T]) {
	t.mu.Lock()
	w, ok := t.writes[tempKey]
	if ok {
		delete(t.writes, tempKey)
	}
	t.mu.Unlock()

	if !ok {
		t.logger.Debug("resolve for unknown write", zap.String("temp_key", tempKey))
		return
	}
	w.done <- out
	close(w.done)
}

// Pending reports whether tempKey still awaits its server response.
func (t *Tracker[T]) Pending(tempKey string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.writes[tempKey]
	return ok
}

// Len returns the number of in-flight writes.
func (t *Tracker[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.writes)
}
