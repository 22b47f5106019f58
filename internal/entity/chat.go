package entity

// Chat field names, as they appear in deltas and serialized payloads.
const (
	ChatFieldName         = "name"
	ChatFieldPinned       = "pinned"
	ChatFieldArchived     = "archived"
	ChatFieldMuted        = "muted"
	ChatFieldUnreadCount  = "unread_count"
	ChatFieldLastActivity = "last_activity_at"
	ChatFieldPreview      = "preview"
)

// Chat is one conversation in the chat list.
type Chat struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	IsGroup        bool   `json:"is_group"`
	IsPinned       bool   `json:"pinned"`
	Archived       bool   `json:"archived"`
	Muted          bool   `json:"muted"`
	UnreadCount    int64  `json:"unread_count"`
	LastActivityAt int64  `json:"last_activity_at"`
	Preview        string `json:"preview"`
	SyncState      string `json:"sync_state,omitempty"`
}

func (c Chat) Key() string    { return c.ID }
func (c Chat) SortKey() int64 { return c.LastActivityAt }
func (c Chat) Pinned() bool   { return c.IsPinned }

// Apply returns a copy of the chat with the delta fields replaced.
func (c Chat) Apply(d Delta) Chat {
	c.Name = str(d, ChatFieldName, c.Name)
	c.IsPinned = boolean(d, ChatFieldPinned, c.IsPinned)
	c.Archived = boolean(d, ChatFieldArchived, c.Archived)
	c.Muted = boolean(d, ChatFieldMuted, c.Muted)
	c.UnreadCount = i64(d, ChatFieldUnreadCount, c.UnreadCount)
	c.LastActivityAt = i64(d, ChatFieldLastActivity, c.LastActivityAt)
	c.Preview = str(d, ChatFieldPreview, c.Preview)
	c.SyncState = str(d, FieldSyncState, c.SyncState)
	return c
}

// Fields returns the full field map of the chat.
func (c Chat) Fields() Delta {
	return Delta{
		ChatFieldName:         c.Name,
		ChatFieldPinned:       c.IsPinned,
		ChatFieldArchived:     c.Archived,
		ChatFieldMuted:        c.Muted,
		ChatFieldUnreadCount:  c.UnreadCount,
		ChatFieldLastActivity: c.LastActivityAt,
		ChatFieldPreview:      c.Preview,
		FieldSyncState:        c.SyncState,
	}
}

// WithKey returns a copy of the chat under a different id.
func (c Chat) WithKey(key string) Chat {
	c.ID = key
	return c
}
