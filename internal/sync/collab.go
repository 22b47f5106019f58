package sync

import (
	"context"

	"github.com/msantori/syncline/internal/entity"
)

// Stored pairs a cached snapshot with the origin timestamp it was persisted
// with, so cached data loses against anything fresher.
type Stored[T entity.Snapshot[T]] struct {
	Entity T
	Origin int64
}

// Cache is the persisted local cache collaborator. Eventually consistent, no
// transactional guarantees; read failures are treated as an empty cache.
type Cache[T entity.Snapshot[T]] interface {
	Load(ctx context.Context, collection string) ([]Stored[T], error)
	Put(ctx context.Context, collection string, items []Stored[T]) error
	Delete(ctx context.Context, collection, key string) error
}

// Page is one paginated fetch response.
type Page[T entity.Snapshot[T]] struct {
	Items []T
	// AsOf is the server snapshot timestamp in millis used as the origin
	// of every returned field. Zero means unknown; the coordinator stamps
	// receipt time instead.
	AsOf int64
}

// Fetcher is the paginated request/response collaborator.
type Fetcher[T entity.Snapshot[T]] interface {
	FetchPage(ctx context.Context, collection string, page, pageSize int, filters map[string]string) (Page[T], error)
}

// EventSource is the push-style real-time collaborator. The returned channel
// delivers events ordered per connection and is closed when the subscription
// ends; stop cancels it.
type EventSource[T entity.Snapshot[T]] interface {
	Subscribe(ctx context.Context, collection string) (events <-chan Event[T], stop func(), err error)
}

// ActionKind names a user-initiated write.
type ActionKind string

const (
	ActionSend     ActionKind = "send"
	ActionEdit     ActionKind = "edit"
	ActionDelete   ActionKind = "delete"
	ActionArchive  ActionKind = "archive"
	ActionPin      ActionKind = "pin"
	ActionMute     ActionKind = "mute"
	ActionMarkRead ActionKind = "mark_read"
	ActionSetRole  ActionKind = "set_role"
	ActionBan      ActionKind = "ban"
)

// Action is one user-initiated write routed through a coordinator.
//
// Creating actions (ActionSend) carry the optimistic Entity and leave Key
// empty; the coordinator mints the temporary key. Every other action targets
// an existing Key with a field Delta.
type Action[T entity.Snapshot[T]] struct {
	Kind ActionKind
	// Collection is stamped by the coordinator before submission.
	Collection string
	Key        string
	Delta      entity.Delta
	Entity     T
	// RequestID correlates logs and the submission; assigned by the
	// coordinator when empty.
	RequestID string
}

// Creates reports whether the action creates a new entity.
func (a Action[T]) Creates() bool { return a.Kind == ActionSend }

// MutationResult is the authoritative outcome of a submitted action.
type MutationResult[T entity.Snapshot[T]] struct {
	// Entity is the server's snapshot for creating actions (and any
	// mutation the server answers with a full record).
	Entity    T
	HasEntity bool
	// Key and Delta describe a patch outcome when no full entity is
	// returned.
	Key    string
	Delta  entity.Delta
	Origin int64
}

// Mutator is the mutation-submission collaborator.
type Mutator[T entity.Snapshot[T]] interface {
	Submit(ctx context.Context, action Action[T]) (*MutationResult[T], error)
}
