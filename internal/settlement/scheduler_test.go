package settlement

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestManualScheduler_RunsOnlyWhenDue(t *testing.T) {
	s := NewManualScheduler()
	var order []string
	s.Schedule("b", 2*time.Second, func() { order = append(order, "b") })
	s.Schedule("a", time.Second, func() { order = append(order, "a") })
	s.Schedule("c", 2*time.Second, func() { order = append(order, "c") })

	if n := s.Advance(999 * time.Millisecond); n != 0 {
		t.Fatalf("Advance(999ms) ran %d tasks, want 0", n)
	}
	if n := s.Advance(time.Millisecond); n != 1 {
		t.Fatalf("Advance to 1s ran %d tasks, want 1", n)
	}
	if n := s.Advance(time.Second); n != 2 {
		t.Fatalf("Advance to 2s ran %d tasks, want 2", n)
	}
	want := []string{"a", "b", "c"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("run order = %v, want %v", order, want)
		}
	}
}

func TestManualScheduler_CancelAndReplace(t *testing.T) {
	s := NewManualScheduler()
	var ran []string
	s.Schedule("x", time.Second, func() { ran = append(ran, "first") })
	s.Schedule("x", time.Second, func() { ran = append(ran, "second") })
	s.Schedule("y", time.Second, func() { ran = append(ran, "y") })

	if !s.Cancel("y") {
		t.Error("Cancel(y) = false, want true")
	}
	if s.Cancel("y") {
		t.Error("second Cancel(y) = true")
	}
	s.RunAll()
	if len(ran) != 1 || ran[0] != "second" {
		t.Errorf("ran = %v, want [second]", ran)
	}
	if s.Pending() != 0 {
		t.Errorf("Pending() = %d after RunAll", s.Pending())
	}
}

func TestManualScheduler_RunAllFollowsChains(t *testing.T) {
	s := NewManualScheduler()
	var count int
	s.Schedule("first", time.Second, func() {
		count++
		s.Schedule("second", time.Minute, func() { count++ })
	})
	if n := s.RunAll(); n != 2 || count != 2 {
		t.Errorf("RunAll() = %d, count = %d, want 2 and 2", n, count)
	}
}

func TestTimerScheduler_FiresAfterDelay(t *testing.T) {
	s := NewTimerScheduler()
	defer s.Stop()

	done := make(chan struct{})
	start := time.Now()
	s.Schedule("p1", 20*time.Millisecond, func() { close(done) })

	select {
	case <-done:
		if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
			t.Errorf("task fired after %v, before its delay", elapsed)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("task never fired")
	}
	s.Wait()
	if s.Pending() != 0 {
		t.Errorf("Pending() = %d after firing", s.Pending())
	}
}

func TestTimerScheduler_CancelAndStop(t *testing.T) {
	s := NewTimerScheduler()
	var fired atomic.Int32
	s.Schedule("a", time.Hour, func() { fired.Add(1) })
	s.Schedule("b", time.Hour, func() { fired.Add(1) })

	if !s.Cancel("a") {
		t.Error("Cancel(a) = false")
	}
	s.Stop()
	s.Schedule("c", 0, func() { fired.Add(1) })
	s.Wait()

	if fired.Load() != 0 {
		t.Errorf("%d tasks fired, want 0", fired.Load())
	}
	if s.Pending() != 0 {
		t.Errorf("Pending() = %d after Stop", s.Pending())
	}
}
