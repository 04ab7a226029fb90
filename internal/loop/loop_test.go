package loop

import (
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestAfterFuncFiresAtDeadline(t *testing.T) {
	l := New(epoch)
	fired := 0
	l.AfterFunc(180*time.Millisecond, func() { fired++ })

	l.Advance(179 * time.Millisecond)
	if fired != 0 {
		t.Fatalf("timer fired early")
	}
	l.Advance(time.Millisecond)
	if fired != 1 {
		t.Fatalf("expected timer to fire once, got %d", fired)
	}
	l.Advance(time.Second)
	if fired != 1 {
		t.Fatalf("timer fired again: %d", fired)
	}
}

func TestCancelFromSiblingTimer(t *testing.T) {
	l := New(epoch)
	var order []string
	var cancelB func()
	l.AfterFunc(10*time.Millisecond, func() {
		order = append(order, "a")
		cancelB()
	})
	cancelB = l.AfterFunc(20*time.Millisecond, func() { order = append(order, "b") })

	l.Advance(time.Second)
	if diff := cmp.Diff([]string{"a"}, order); diff != "" {
		t.Fatalf("unexpected order (-want +got):\n%s", diff)
	}
	if l.Pending() != 0 {
		t.Fatalf("expected no pending timers, got %d", l.Pending())
	}
}

func TestRequestFrameRunsNextTickOnly(t *testing.T) {
	l := New(epoch)
	runs := 0
	l.RequestFrame(func() {
		runs++
		l.RequestFrame(func() { runs += 10 })
	})
	l.Advance(16 * time.Millisecond)
	if runs != 1 {
		t.Fatalf("expected nested frame to wait for the next tick, runs=%d", runs)
	}
	l.Advance(16 * time.Millisecond)
	if runs != 11 {
		t.Fatalf("expected nested frame on second tick, runs=%d", runs)
	}
}

func TestPostFromGoroutine(t *testing.T) {
	l := New(epoch)
	var wg sync.WaitGroup
	got := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Post(func() { got++ })
		}()
	}
	wg.Wait()
	l.Advance(0)
	if got != 8 {
		t.Fatalf("expected 8 posted callbacks, got %d", got)
	}
}
