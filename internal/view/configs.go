package view

import (
	"cmp"
	"strings"

	"github.com/msantori/syncline/internal/entity"
)

// ChatFilter selects which chats a chat-list projection keeps.
type ChatFilter struct {
	IncludeArchived bool
	IncludeMuted    bool
	UnreadOnly      bool
}

// ChatListConfig is the chat-list projection: pinned first, then recency
// (the store order), with an archived/muted/unread predicate and name/preview
// search.
func ChatListConfig(f ChatFilter) Config[entity.Chat] {
	return Config[entity.Chat]{
		Filter: func(c entity.Chat) bool {
			if c.Archived && !f.IncludeArchived {
				return false
			}
			if c.Muted && !f.IncludeMuted {
				return false
			}
			if f.UnreadOnly && c.UnreadCount == 0 {
				return false
			}
			return true
		},
		Match: func(c entity.Chat, query string) bool {
			q := strings.ToLower(query)
			return strings.Contains(strings.ToLower(c.Name), q) ||
				strings.Contains(strings.ToLower(c.Preview), q)
		},
	}
}

// ThreadConfig is the message-thread projection: strictly by origin time
// descending for most-recent-first consumption, deleted messages hidden,
// body search.
func ThreadConfig() Config[entity.Message] {
	return Config[entity.Message]{
		Filter: func(m entity.Message) bool { return !m.Deleted },
		Compare: func(a, b entity.Message) int {
			return cmp.Compare(b.Timestamp, a.Timestamp)
		},
		Match: func(m entity.Message, query string) bool {
			return strings.Contains(strings.ToLower(m.Body), strings.ToLower(query))
		},
	}
}

// RosterConfig is the group-roster projection: owners and admins first, then
// by display name, banned members hidden, name search.
func RosterConfig() Config[entity.Member] {
	rank := func(role string) int {
		switch role {
		case entity.RoleOwner:
			return 0
		case entity.RoleAdmin:
			return 1
		default:
			return 2
		}
	}
	return Config[entity.Member]{
		Filter: func(m entity.Member) bool { return !m.Banned },
		Compare: func(a, b entity.Member) int {
			if c := cmp.Compare(rank(a.Role), rank(b.Role)); c != 0 {
				return c
			}
			return cmp.Compare(strings.ToLower(a.DisplayName), strings.ToLower(b.DisplayName))
		},
		Match: func(m entity.Member, query string) bool {
			return strings.Contains(strings.ToLower(m.DisplayName), strings.ToLower(query))
		},
	}
}
