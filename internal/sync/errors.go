package sync

import (
	"errors"
	"fmt"
)

// ErrClosed reports an operation against a coordinator that was closed or
// never started.
var ErrClosed = errors.New("coordinator closed")

// FailureKind classifies engine failures.
type FailureKind int

const (
	// FailureCacheRead is non-fatal; the cache is treated as empty.
	FailureCacheRead FailureKind = iota
	// FailureNetwork surfaces as collection-level error only when no data
	// is otherwise available; existing data stays visible.
	FailureNetwork
	// FailureMutation is surfaced to the initiating caller and flagged on
	// the affected optimistic entity.
	FailureMutation
	// FailureAnomaly is an event referencing an unknown key, recorded as a
	// deferred no-op.
	FailureAnomaly
)

func (k FailureKind) String() string {
	switch k {
	case FailureCacheRead:
		return "cache_read"
	case FailureNetwork:
		return "network"
	case FailureMutation:
		return "mutation"
	case FailureAnomaly:
		return "anomaly"
	default:
		return "unknown"
	}
}

// Failure wraps an underlying error with its classification and collection.
type Failure struct {
	Kind       FailureKind
	Collection string
	Err        error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s failure on %s: %v", f.Kind, f.Collection, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

func newFailure(kind FailureKind, collection string, err error) *Failure {
	return &Failure{Kind: kind, Collection: collection, Err: err}
}
