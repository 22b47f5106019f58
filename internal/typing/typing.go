// Package typing tracks ephemeral "user is typing" signals per chat. A
// signal auto-expires after a quiet period unless refreshed; the state lives
// only here and is never persisted or fetched.
package typing

import (
	"sync"
	"time"

	"github.com/msantori/syncline/internal/bus"
	"github.com/msantori/syncline/internal/debounce"
)

// Signal is the bus payload for typing changes, published under
// "typing.<chat>.started" and "typing.<chat>.stopped".
type Signal struct {
	ChatID string
	UserID string
	Active bool
}

// Tracker coalesces typing signals through a debounce scheduler.
type Tracker struct {
	mu     sync.Mutex
	active map[string]map[string]struct{}
	sched  *debounce.Scheduler
	bus    *bus.Bus
	expiry time.Duration
}

// NewTracker creates a tracker with the given quiet period.
func NewTracker(b *bus.Bus, expiry time.Duration) *Tracker {
	if expiry <= 0 {
		expiry = 4 * time.Second
	}
	return &Tracker{
		active: make(map[string]map[string]struct{}),
		sched:  debounce.NewScheduler(),
		bus:    b,
		expiry: expiry,
	}
}

// Note records that user is typing in chat. Repeated notes restart the
// expiry delay; the stopped signal fires only after a full quiet period.
func (t *Tracker) Note(chatID, userID string) {
	t.mu.Lock()
	users, ok := t.active[chatID]
	if !ok {
		users = make(map[string]struct{})
		t.active[chatID] = users
	}
	_, already := users[userID]
	users[userID] = struct{}{}
	t.mu.Unlock()

	if !already {
		t.publish(chatID, userID, true)
	}
	t.sched.Schedule(chatID+"\x00"+userID, t.expiry, func() {
		t.expire(chatID, userID)
	})
}

// Typing returns the users currently typing in chat.
func (t *Tracker) Typing(chatID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	users := make([]string, 0, len(t.active[chatID]))
	for u := range t.active[chatID] {
		users = append(users, u)
	}
	return users
}

// Stop cancels all pending expirations.
func (t *Tracker) Stop() { t.sched.Stop() }

func (t *Tracker) expire(chatID, userID string) {
	t.mu.Lock()
	users := t.active[chatID]
	if users == nil {
		t.mu.Unlock()
		return
	}
	if _, ok := users[userID]; !ok {
		t.mu.Unlock()
		return
	}
	delete(users, userID)
	if len(users) == 0 {
		delete(t.active, chatID)
	}
	t.mu.Unlock()
	t.publish(chatID, userID, false)
}

func (t *Tracker) publish(chatID, userID string, active bool) {
	if t.bus == nil {
		return
	}
	kind := "typing." + chatID + ".stopped"
	if active {
		kind = "typing." + chatID + ".started"
	}
	t.bus.Publish(bus.Event{
		Kind:      kind,
		Timestamp: time.Now(),
		Payload:   Signal{ChatID: chatID, UserID: userID, Active: active},
	})
}
