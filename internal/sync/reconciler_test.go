package sync

import (
	"testing"
	"time"

	"github.com/msantori/syncline/internal/bus"
	"github.com/msantori/syncline/internal/entity"
	"github.com/msantori/syncline/internal/store"
)

func newTestReconciler(t *testing.T) (*Reconciler[entity.Chat], *store.Store[entity.Chat], *bus.Bus) {
	t.Helper()
	st := store.New[entity.Chat](nil)
	b := bus.New()
	return NewReconciler("chats", st, b, nil), st, b
}

func TestReconcilerCreated(t *testing.T) {
	rec, st, _ := newTestReconciler(t)

	if !rec.Apply(Created(entity.Chat{ID: "c1", Name: "one"}, 1000)) {
		t.Fatal("first Created must apply")
	}
	got, ok := st.Get("c1")
	if !ok || got.Name != "one" {
		t.Fatalf("Get(c1) = %+v, %v", got, ok)
	}
}

func TestReconcilerIdempotentRedelivery(t *testing.T) {
	rec, st, _ := newTestReconciler(t)
	ev := Created(entity.Chat{ID: "c1", Name: "one"}, 1000)

	rec.Apply(ev)
	rev := st.Rev()
	if rec.Apply(ev) {
		t.Error("redelivered event must fold to a no-op")
	}
	if st.Rev() != rev {
		t.Error("redelivered event must not bump the revision")
	}
}

func TestReconcilerCreatedForExistingKeyIsPatch(t *testing.T) {
	rec, st, _ := newTestReconciler(t)
	rec.Apply(Created(entity.Chat{ID: "c1", Name: "one"}, 1000))
	rec.Apply(Patched[entity.Chat]("c1", entity.Delta{entity.ChatFieldName: "edited live"}, 5000))

	// A slower fetch now returns the pre-edit snapshot.
	rec.Apply(Created(entity.Chat{ID: "c1", Name: "one", Preview: "hi"}, 3000))

	got, _ := st.Get("c1")
	if got.Name != "edited live" {
		t.Errorf("Name = %q, stale fetch clobbered a newer edit", got.Name)
	}
	if got.Preview != "hi" {
		t.Errorf("Preview = %q, fresh fields of the fetch must still land", got.Preview)
	}
}

func TestReconcilerEventOrderCommutes(t *testing.T) {
	// Fetch-then-event and event-then-fetch must converge to the same state.
	fetch := Created(entity.Chat{ID: "c1", Name: "fetched", UnreadCount: 2}, 2000)
	live := Patched[entity.Chat]("c1", entity.Delta{entity.ChatFieldUnreadCount: int64(0)}, 3000)

	recA, stA, _ := newTestReconciler(t)
	recA.Apply(fetch)
	recA.Apply(live)

	recB, stB, _ := newTestReconciler(t)
	recB.Apply(Created(entity.Chat{ID: "c1", Name: "fetched", UnreadCount: 0}, 3000))
	recB.Apply(fetch)

	a, _ := stA.Get("c1")
	b, _ := stB.Get("c1")
	if a.UnreadCount != 0 || b.UnreadCount != 0 {
		t.Errorf("UnreadCount = %d / %d, want 0 in both orders", a.UnreadCount, b.UnreadCount)
	}
}

func TestReconcilerPatchUnknownKeyDeferred(t *testing.T) {
	rec, st, _ := newTestReconciler(t)

	if rec.Apply(Patched[entity.Chat]("ghost", entity.Delta{entity.ChatFieldName: "x"}, 1000)) {
		t.Error("patch for unknown key must be a no-op")
	}
	if st.Len() != 0 {
		t.Error("deferred patch must not create an entity")
	}

	// The later Created carries the end state; the dropped patch is never
	// replayed.
	rec.Apply(Created(entity.Chat{ID: "ghost", Name: "final"}, 2000))
	got, _ := st.Get("ghost")
	if got.Name != "final" {
		t.Errorf("Name = %q, want final", got.Name)
	}
}

func TestReconcilerDeleted(t *testing.T) {
	rec, st, _ := newTestReconciler(t)
	rec.Apply(Created(entity.Chat{ID: "c1"}, 1000))

	if !rec.Apply(Deleted[entity.Chat]("c1", 2000)) {
		t.Error("delete of a present key must apply")
	}
	if rec.Apply(Deleted[entity.Chat]("c1", 3000)) {
		t.Error("repeated delete must be a no-op")
	}
	if st.Len() != 0 {
		t.Errorf("Len = %d, want 0", st.Len())
	}
}

func TestReconcilerDeleteCommutesWithFetch(t *testing.T) {
	// A fetched snapshot and a live deletion of the same chat can arrive in
	// either order. Both orders must land on the same state.
	snapshot := Created(entity.Chat{ID: "c1", Name: "one"}, 1000)
	deletion := Deleted[entity.Chat]("c1", 2000)

	fetchFirst, a, _ := newTestReconciler(t)
	fetchFirst.Apply(snapshot)
	fetchFirst.Apply(deletion)

	deleteFirst, b, _ := newTestReconciler(t)
	deleteFirst.Apply(deletion)
	if deleteFirst.Apply(snapshot) {
		t.Error("snapshot older than the deletion must fold to a no-op")
	}

	if a.Len() != 0 || b.Len() != 0 {
		t.Errorf("Len = %d and %d, both orders must end with the chat gone", a.Len(), b.Len())
	}

	// A create genuinely newer than the deletion brings the chat back.
	if !deleteFirst.Apply(Created(entity.Chat{ID: "c1", Name: "again"}, 3000)) {
		t.Error("create newer than the deletion must apply")
	}
	if got, ok := b.Get("c1"); !ok || got.Name != "again" {
		t.Errorf("Get(c1) = %+v, %v after newer create", got, ok)
	}
}

func TestReconcilerBatch(t *testing.T) {
	rec, st, _ := newTestReconciler(t)

	applied := rec.Apply(Batch(
		Created(entity.Chat{ID: "c1"}, 1000),
		Created(entity.Chat{ID: "c2"}, 1000),
		Deleted[entity.Chat]("c1", 2000),
	))
	if !applied {
		t.Error("batch with effective members must report applied")
	}
	if st.Len() != 1 {
		t.Errorf("Len = %d, want 1", st.Len())
	}
	if _, ok := st.Get("c2"); !ok {
		t.Error("c2 missing after batch")
	}
}

func TestReconcilerPublishesChanges(t *testing.T) {
	rec, _, b := newTestReconciler(t)
	ch, unsub := b.Subscribe("change.chats.", 8)
	defer unsub()

	rec.Apply(Created(entity.Chat{ID: "c1"}, 1000))
	rec.Apply(Patched[entity.Chat]("c1", entity.Delta{entity.ChatFieldName: "x"}, 2000))
	rec.Apply(Deleted[entity.Chat]("c1", 3000))

	wantKinds := []EventKind{EventCreated, EventPatched, EventDeleted}
	for i, want := range wantKinds {
		select {
		case evt := <-ch:
			change, ok := evt.Payload.(Change)
			if !ok {
				t.Fatalf("event %d payload is %T", i, evt.Payload)
			}
			if change.Kind != want || change.Key != "c1" {
				t.Errorf("event %d = %+v, want kind %v", i, change, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("no bus event %d", i)
		}
	}
}

func TestReconcilerPromote(t *testing.T) {
	rec, st, b := newTestReconciler(t)
	rec.Apply(Created(entity.Chat{ID: "tmp-1", Name: "draft", SyncState: entity.SyncPending}, 1000))

	ch, unsub := b.Subscribe("change.chats.created", 4)
	defer unsub()

	rec.Promote("tmp-1", entity.Chat{ID: "srv-9", Name: "draft"}, 2000)

	if _, ok := st.Get("tmp-1"); ok {
		t.Error("temporary entity survived promotion")
	}
	if _, ok := st.Get("srv-9"); !ok {
		t.Error("final entity missing after promotion")
	}
	select {
	case evt := <-ch:
		if evt.Payload.(Change).Key != "srv-9" {
			t.Errorf("change key = %q, want srv-9", evt.Payload.(Change).Key)
		}
	case <-time.After(time.Second):
		t.Fatal("no created notification after promotion")
	}
}
