package view

import (
	"errors"
	"testing"

	"github.com/msantori/syncline/internal/entity"
	"github.com/msantori/syncline/internal/status"
	"github.com/msantori/syncline/internal/store"
)

func chatStore(chats ...entity.Chat) *store.Store[entity.Chat] {
	st := store.New[entity.Chat](nil)
	for _, c := range chats {
		st.Upsert(c, 1000)
	}
	return st
}

func keys[T entity.Snapshot[T]](items []T) []string {
	out := make([]string, len(items))
	for i, e := range items {
		out[i] = e.Key()
	}
	return out
}

func TestSnapshotPassThrough(t *testing.T) {
	st := chatStore(
		entity.Chat{ID: "old", LastActivityAt: 1},
		entity.Chat{ID: "new", LastActivityAt: 2},
		entity.Chat{ID: "pin", LastActivityAt: 0, IsPinned: true},
	)
	v := New(st, nil, Config[entity.Chat]{})

	snap := v.Snapshot()
	if snap.Phase != PhaseReady {
		t.Fatalf("Phase = %v", snap.Phase)
	}
	got := keys(snap.Items)
	want := []string{"pin", "new", "old"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestChatListFilter(t *testing.T) {
	st := chatStore(
		entity.Chat{ID: "a", LastActivityAt: 4},
		entity.Chat{ID: "b", LastActivityAt: 3, Archived: true},
		entity.Chat{ID: "c", LastActivityAt: 2, Muted: true},
		entity.Chat{ID: "d", LastActivityAt: 1, UnreadCount: 3},
	)
	v := New(st, nil, ChatListConfig(ChatFilter{}))

	got := keys(v.Snapshot().Items)
	if len(got) != 2 || got[0] != "a" || got[1] != "d" {
		t.Errorf("default filter = %v, want [a d]", got)
	}

	v.SetConfig(ChatListConfig(ChatFilter{IncludeArchived: true, IncludeMuted: true, UnreadOnly: true}))
	got = keys(v.Snapshot().Items)
	if len(got) != 1 || got[0] != "d" {
		t.Errorf("unread-only filter = %v, want [d]", got)
	}
}

func TestSearchQuery(t *testing.T) {
	st := chatStore(
		entity.Chat{ID: "a", Name: "Work Chat", LastActivityAt: 2},
		entity.Chat{ID: "b", Name: "Family", Preview: "see you at work", LastActivityAt: 1},
		entity.Chat{ID: "c", Name: "News", LastActivityAt: 3},
	)
	v := New(st, nil, ChatListConfig(ChatFilter{}))

	v.SetQuery("work")
	got := keys(v.Snapshot().Items)
	if len(got) != 2 {
		t.Fatalf("query hits = %v, want name and preview matches", got)
	}

	v.SetQuery("")
	if got := v.Snapshot().Items; len(got) != 3 {
		t.Errorf("cleared query returned %d items, want 3", len(got))
	}
}

func TestThreadOrderingAndDeletedHidden(t *testing.T) {
	st := store.New[entity.Message](nil)
	st.Upsert(entity.Message{ID: "m1", Body: "first", Timestamp: 100}, 1)
	st.Upsert(entity.Message{ID: "m2", Body: "second", Timestamp: 200}, 1)
	st.Upsert(entity.Message{ID: "m3", Body: "gone", Timestamp: 300, Deleted: true}, 1)

	v := New(st, nil, ThreadConfig())
	got := keys(v.Snapshot().Items)
	want := []string{"m2", "m1"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("thread = %v, want %v", got, want)
	}
}

func TestRosterRanking(t *testing.T) {
	st := store.New[entity.Member](nil)
	st.Upsert(entity.Member{UserID: "u1", DisplayName: "zoe", Role: entity.RoleMember}, 1)
	st.Upsert(entity.Member{UserID: "u2", DisplayName: "Ann", Role: entity.RoleAdmin}, 1)
	st.Upsert(entity.Member{UserID: "u3", DisplayName: "Bo", Role: entity.RoleOwner}, 1)
	st.Upsert(entity.Member{UserID: "u4", DisplayName: "Cal", Role: entity.RoleMember, Banned: true}, 1)

	v := New(st, nil, RosterConfig())
	got := keys(v.Snapshot().Items)
	want := []string{"u3", "u2", "u1"}
	if len(got) != 3 {
		t.Fatalf("roster = %v, want banned member hidden", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("roster = %v, want %v", got, want)
		}
	}
}

func TestRecomputeGating(t *testing.T) {
	st := chatStore(entity.Chat{ID: "a"})
	computes := 0
	v := New(st, nil, Config[entity.Chat]{
		Filter: func(entity.Chat) bool { computes++; return true },
	})

	v.Snapshot()
	v.Snapshot()
	v.Snapshot()
	if computes != 1 {
		t.Errorf("filter ran %d times across unchanged snapshots, want 1", computes)
	}

	st.Upsert(entity.Chat{ID: "b"}, 2000)
	v.Snapshot()
	if computes != 3 { // one per entity on the recompute
		t.Errorf("filter ran %d times after store change, want 3", computes)
	}

	computes = 0
	v.SetQuery("x")
	v.Snapshot()
	if computes == 0 {
		t.Error("query change did not trigger a recompute")
	}
}

func TestPhases(t *testing.T) {
	st := chatStore()
	state := status.LoadingCache
	v := New(st, func() status.State { return state }, Config[entity.Chat]{})

	if got := v.Snapshot().Phase; got != PhaseLoading {
		t.Errorf("Phase = %v, want loading", got)
	}

	state = status.Ready
	if got := v.Snapshot().Phase; got != PhaseReady {
		t.Errorf("Phase = %v, want ready", got)
	}

	// A refresh keeps serving data; only unrecoverable startup failure is
	// an error phase.
	state = status.Refreshing
	if got := v.Snapshot().Phase; got != PhaseReady {
		t.Errorf("Phase = %v, want ready while refreshing", got)
	}

	state = status.Error
	st.SetError(errors.New("first load failed"))
	snap := v.Snapshot()
	if snap.Phase != PhaseError {
		t.Errorf("Phase = %v, want error", snap.Phase)
	}
	if snap.Err == nil {
		t.Error("error phase must carry the failure")
	}
	if snap.Items != nil {
		t.Error("error phase must not carry items")
	}
}
