package sync

// Cursor tracks page position and exhaustion for one collection's forward
// fetch. Pure state; the coordinator drives it.
type Cursor struct {
	pageIndex int
	pageSize  int
	hasMore   bool
}

// NewCursor creates a cursor at page zero. hasMore starts true: nothing is
// known until the first response.
func NewCursor(pageSize int) *Cursor {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &Cursor{pageSize: pageSize, hasMore: true}
}

// Next returns the page index the next fetch should request.
func (c *Cursor) Next() int { return c.pageIndex }

// PageSize returns the configured page size.
func (c *Cursor) PageSize() int { return c.pageSize }

// HasMore reports the exhaustion heuristic from the most recent response.
func (c *Cursor) HasMore() bool { return c.hasMore }

// Advance records a successful fetch of received items and moves to the next
// page. A page shorter than pageSize means the collection is exhausted; a
// full page means there might be more (the source API gives no exact count,
// so a final page that exactly fills pageSize reports hasMore=true until the
// next fetch comes back empty).
func (c *Cursor) Advance(received int) {
	c.pageIndex++
	c.hasMore = received >= c.pageSize
}

// Retained returns how many entities the pages fetched so far cover, with a
// minimum of one page. Refresh uses this so a refreshed window never shrinks
// below what the user has scrolled through.
func (c *Cursor) Retained() int {
	if c.pageIndex <= 1 {
		return c.pageSize
	}
	return c.pageIndex * c.pageSize
}

// RecordRefresh folds a refresh of the retained window into the cursor. The
// page position is unchanged; only exhaustion is recomputed, so the cursor
// and the collection metadata never disagree after a refresh.
func (c *Cursor) RecordRefresh(received, requested int) {
	c.hasMore = received >= requested
}
