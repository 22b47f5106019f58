package entity

// Member field names.
const (
	MemberFieldDisplayName = "display_name"
	MemberFieldRole        = "role"
	MemberFieldOnline      = "online"
	MemberFieldBanned      = "banned"
	MemberFieldMuted       = "muted"
)

// Member roles.
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
	RoleOwner  = "owner"
)

// Member is one participant of a group roster.
type Member struct {
	UserID      string `json:"user_id"`
	GroupID     string `json:"group_id"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	Online      bool   `json:"online"`
	Banned      bool   `json:"banned"`
	Muted       bool   `json:"muted"`
	JoinedAt    int64  `json:"joined_at"`
	SyncState   string `json:"sync_state,omitempty"`
}

func (m Member) Key() string    { return m.UserID }
func (m Member) SortKey() int64 { return m.JoinedAt }
func (m Member) Pinned() bool   { return false }

// Apply returns a copy of the member with the delta fields replaced.
func (m Member) Apply(d Delta) Member {
	m.DisplayName = str(d, MemberFieldDisplayName, m.DisplayName)
	m.Role = str(d, MemberFieldRole, m.Role)
	m.Online = boolean(d, MemberFieldOnline, m.Online)
	m.Banned = boolean(d, MemberFieldBanned, m.Banned)
	m.Muted = boolean(d, MemberFieldMuted, m.Muted)
	m.SyncState = str(d, FieldSyncState, m.SyncState)
	return m
}

// Fields returns the full field map of the member.
func (m Member) Fields() Delta {
	return Delta{
		MemberFieldDisplayName: m.DisplayName,
		MemberFieldRole:        m.Role,
		MemberFieldOnline:      m.Online,
		MemberFieldBanned:      m.Banned,
		MemberFieldMuted:       m.Muted,
		FieldSyncState:         m.SyncState,
	}
}

// WithKey returns a copy of the member under a different user id.
func (m Member) WithKey(key string) Member {
	m.UserID = key
	return m
}
