// Package status tracks the lifecycle of one synced collection.
package status

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/msantori/syncline/internal/bus"
)

// State represents a collection lifecycle state.
type State string

const (
	Uninitialized  State = "UNINITIALIZED"
	LoadingCache   State = "LOADING_CACHE"
	LoadingNetwork State = "LOADING_NETWORK"
	Ready          State = "READY"
	Refreshing     State = "REFRESHING"
	Error          State = "ERROR"
)

// validTransitions defines allowed state transitions. A collection that has
// loaded once never returns to a loading state; later fetches are refreshes.
var validTransitions = map[State][]State{
	Uninitialized:  {LoadingCache, Error},
	LoadingCache:   {LoadingNetwork, Error},
	LoadingNetwork: {Ready, Error},
	Ready:          {Refreshing, Error},
	Refreshing:     {Ready, Error},
	Error:          {Ready, Refreshing, LoadingNetwork},
}

// Machine tracks and enforces lifecycle transitions for one collection.
type Machine struct {
	mu         sync.RWMutex
	collection string
	current    State
	bus        *bus.Bus
}

// NewMachine creates a machine starting in Uninitialized.
func NewMachine(collection string, b *bus.Bus) *Machine {
	return &Machine{
		collection: collection,
		current:    Uninitialized,
		bus:        b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns an error if the
// transition is not allowed.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:      "collection." + m.collection + ".state",
			Timestamp: time.Now(),
			Payload: StatusChange{
				Collection: m.collection,
				From:       from,
				To:         to,
			},
		})
	}
	return nil
}

// StatusChange is the payload for lifecycle change events.
type StatusChange struct {
	Collection string
	From       State
	To         State
}
