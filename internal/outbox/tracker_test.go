package outbox

import (
	"errors"
	"testing"
	"time"

	"github.com/msantori/syncline/internal/entity"
)

func TestBeginMintsUniqueKeys(t *testing.T) {
	tr := NewTracker[entity.Message](nil)

	seen := make(map[string]bool)
	for range 100 {
		w := tr.Begin()
		if seen[w.TempKey] {
			t.Fatalf("duplicate temp key %q", w.TempKey)
		}
		seen[w.TempKey] = true
	}
	if tr.Len() != 100 {
		t.Errorf("Len = %d, want 100", tr.Len())
	}
}

func TestResolveDeliversOnce(t *testing.T) {
	tr := NewTracker[entity.Message](nil)
	w := tr.Begin()

	if !tr.Pending(w.TempKey) {
		t.Error("write not pending after Begin")
	}

	tr.Resolve(w.TempKey, Outcome[entity.Message]{Entity: entity.Message{ID: "m1"}})

	select {
	case out := <-w.Done():
		if out.Entity.ID != "m1" {
			t.Errorf("outcome entity = %+v", out.Entity)
		}
	case <-time.After(time.Second):
		t.Fatal("outcome never delivered")
	}

	if tr.Pending(w.TempKey) {
		t.Error("write still pending after Resolve")
	}

	// The channel is closed after delivery; a second read yields the zero
	// outcome rather than blocking.
	select {
	case out, ok := <-w.Done():
		if ok {
			t.Errorf("unexpected second outcome %+v", out)
		}
	case <-time.After(time.Second):
		t.Fatal("done channel not closed")
	}
}

func TestResolveFailure(t *testing.T) {
	tr := NewTracker[entity.Message](nil)
	w := tr.Begin()

	wantErr := errors.New("rejected")
	tr.Resolve(w.TempKey, Outcome[entity.Message]{Err: wantErr})

	out := <-w.Done()
	if !errors.Is(out.Err, wantErr) {
		t.Errorf("Err = %v, want %v", out.Err, wantErr)
	}
}

func TestResolveUnknownKeyNoOp(t *testing.T) {
	tr := NewTracker[entity.Message](nil)
	tr.Resolve("tmp-0-0", Outcome[entity.Message]{})
	if tr.Len() != 0 {
		t.Errorf("Len = %d, want 0", tr.Len())
	}
}
