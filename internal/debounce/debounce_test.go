package debounce

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduleFires(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	fired := make(chan struct{})
	s.Schedule("k", 10*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("action never fired")
	}
	if s.Pending("k") {
		t.Error("key still pending after fire")
	}
}

func TestScheduleCoalesces(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var runs atomic.Int32
	for range 10 {
		s.Schedule("k", 20*time.Millisecond, func() { runs.Add(1) })
		time.Sleep(2 * time.Millisecond)
	}

	time.Sleep(100 * time.Millisecond)
	if got := runs.Load(); got != 1 {
		t.Errorf("action ran %d times, want 1", got)
	}
}

func TestIndependentKeys(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var runs atomic.Int32
	s.Schedule("a", 10*time.Millisecond, func() { runs.Add(1) })
	s.Schedule("b", 10*time.Millisecond, func() { runs.Add(1) })

	time.Sleep(100 * time.Millisecond)
	if got := runs.Load(); got != 2 {
		t.Errorf("actions ran %d times, want 2", got)
	}
}

func TestCancel(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var runs atomic.Int32
	s.Schedule("k", 20*time.Millisecond, func() { runs.Add(1) })
	s.Cancel("k")

	if s.Pending("k") {
		t.Error("key pending after Cancel")
	}
	time.Sleep(60 * time.Millisecond)
	if got := runs.Load(); got != 0 {
		t.Errorf("cancelled action ran %d times", got)
	}
}

func TestStopRejectsFurtherWork(t *testing.T) {
	s := NewScheduler()

	var runs atomic.Int32
	s.Schedule("k", 20*time.Millisecond, func() { runs.Add(1) })
	s.Stop()
	s.Schedule("k2", time.Millisecond, func() { runs.Add(1) })

	time.Sleep(60 * time.Millisecond)
	if got := runs.Load(); got != 0 {
		t.Errorf("actions ran %d times after Stop", got)
	}
	if s.Pending("k2") {
		t.Error("Stop-ed scheduler accepted work")
	}
}
