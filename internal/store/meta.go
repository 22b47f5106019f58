package store

import "time"

// Meta is a point-in-time copy of the collection-level metadata.
type Meta struct {
	Loading     bool
	LoadingMore bool
	HasMore     bool
	LastError   error
	LastFetch   time.Time
}

// Meta returns the current collection metadata.
func (s *Store[T]) Meta() Meta {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Meta{
		Loading:     s.loading,
		LoadingMore: s.loadingMore,
		HasMore:     s.hasMore,
		LastError:   s.lastErr,
		LastFetch:   s.lastFetch,
	}
}

// SetLoading flags the initial load in progress.
func (s *Store[T]) SetLoading(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading == v {
		return
	}
	s.loading = v
	s.rev++
}

// SetLoadingMore flags a pagination fetch in progress.
func (s *Store[T]) SetLoadingMore(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadingMore == v {
		return
	}
	s.loadingMore = v
	s.rev++
}

// SetHasMore records the pagination heuristic from the latest response.
func (s *Store[T]) SetHasMore(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasMore == v {
		return
	}
	s.hasMore = v
	s.rev++
}

// SetError records the most recent failure. A nil err clears it.
func (s *Store[T]) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastErr == nil && err == nil {
		return
	}
	s.lastErr = err
	s.rev++
}

// MarkFetched records a successful network fetch time and clears the error.
func (s *Store[T]) MarkFetched(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFetch = at
	s.lastErr = nil
	s.rev++
}
