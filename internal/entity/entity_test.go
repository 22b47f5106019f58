package entity

import "testing"

func TestApplyDoesNotMutateReceiver(t *testing.T) {
	orig := Chat{ID: "c1", Name: "before"}
	edited := orig.Apply(Delta{ChatFieldName: "after"})

	if orig.Name != "before" {
		t.Errorf("receiver mutated: Name = %q", orig.Name)
	}
	if edited.Name != "after" {
		t.Errorf("copy not updated: Name = %q", edited.Name)
	}
}

func TestApplyIgnoresUnknownAndMistypedFields(t *testing.T) {
	c := Chat{ID: "c1", Name: "x", UnreadCount: 2}
	got := c.Apply(Delta{
		"no_such_field":      "y",
		ChatFieldName:        42,       // wrong type, ignored
		ChatFieldUnreadCount: int64(5), // valid
	})
	if got.Name != "x" {
		t.Errorf("Name = %q, mistyped value applied", got.Name)
	}
	if got.UnreadCount != 5 {
		t.Errorf("UnreadCount = %d, want 5", got.UnreadCount)
	}
}

func TestApplyJSONNumbers(t *testing.T) {
	// Deltas decoded from the wire carry numbers as float64.
	m := Message{ID: "m1"}
	got := m.Apply(Delta{MessageFieldTimestamp: float64(1700000000123)})
	if got.Timestamp != 1700000000123 {
		t.Errorf("Timestamp = %d", got.Timestamp)
	}
}

func TestFieldsRoundTrip(t *testing.T) {
	c := Chat{
		ID:             "c1",
		Name:           "team",
		IsPinned:       true,
		Archived:       false,
		Muted:          true,
		UnreadCount:    7,
		LastActivityAt: 123,
		Preview:        "hello",
		SyncState:      SyncPending,
	}

	var blank Chat
	rebuilt := blank.WithKey("c1").Apply(c.Fields())
	if rebuilt != c {
		t.Errorf("rebuilt = %+v, want %+v", rebuilt, c)
	}
}

func TestDeltaClone(t *testing.T) {
	d := Delta{ChatFieldName: "a"}
	c := d.Clone()
	c[ChatFieldName] = "b"
	if d[ChatFieldName] != "a" {
		t.Error("Clone shares storage with the original")
	}
}

func TestWithKey(t *testing.T) {
	m := Message{ID: "tmp-1", Body: "hi"}
	got := m.WithKey("srv-1")
	if got.ID != "srv-1" || got.Body != "hi" {
		t.Errorf("WithKey = %+v", got)
	}
	if m.ID != "tmp-1" {
		t.Error("WithKey mutated the receiver")
	}
}
