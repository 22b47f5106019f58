package entity

// Message field names.
const (
	MessageFieldBody      = "body"
	MessageFieldStatus    = "status"
	MessageFieldEditedAt  = "edited_at"
	MessageFieldTimestamp = "timestamp"
	MessageFieldDeleted   = "deleted"
)

// Message delivery statuses.
const (
	MessageSending   = "sending"
	MessageSent      = "sent"
	MessageDelivered = "delivered"
	MessageRead      = "read"
	MessageFailed    = "failed"
)

// Message is one message inside a conversation.
type Message struct {
	ID         string `json:"id"`
	ChatID     string `json:"chat_id"`
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name,omitempty"`
	Body       string `json:"body"`
	Status     string `json:"status"`
	FromMe     bool   `json:"from_me"`
	Timestamp  int64  `json:"timestamp"`
	EditedAt   int64  `json:"edited_at,omitempty"`
	Deleted    bool   `json:"deleted,omitempty"`
	SyncState  string `json:"sync_state,omitempty"`
}

func (m Message) Key() string    { return m.ID }
func (m Message) SortKey() int64 { return m.Timestamp }
func (m Message) Pinned() bool   { return false }

// Apply returns a copy of the message with the delta fields replaced.
func (m Message) Apply(d Delta) Message {
	m.Body = str(d, MessageFieldBody, m.Body)
	m.Status = str(d, MessageFieldStatus, m.Status)
	m.EditedAt = i64(d, MessageFieldEditedAt, m.EditedAt)
	m.Timestamp = i64(d, MessageFieldTimestamp, m.Timestamp)
	m.Deleted = boolean(d, MessageFieldDeleted, m.Deleted)
	m.SyncState = str(d, FieldSyncState, m.SyncState)
	return m
}

// Fields returns the full field map of the message.
func (m Message) Fields() Delta {
	return Delta{
		MessageFieldBody:      m.Body,
		MessageFieldStatus:    m.Status,
		MessageFieldEditedAt:  m.EditedAt,
		MessageFieldTimestamp: m.Timestamp,
		MessageFieldDeleted:   m.Deleted,
		FieldSyncState:        m.SyncState,
	}
}

// WithKey returns a copy of the message under a different id.
func (m Message) WithKey(key string) Message {
	m.ID = key
	return m
}
