// Package loop is the single-threaded scheduler behind the editor. The host
// calls Tick once per frame; timers, next-frame callbacks and continuations
// posted from other goroutines all run inside Tick.
package loop

import (
	"sync"
	"time"
)

type timer struct {
	id       uint64
	deadline time.Time
	fn       func()
}

type Loop struct {
	now    time.Time
	nextID uint64
	timers []timer
	frames []func()

	mu     sync.Mutex
	posted []func()
}

func New(now time.Time) *Loop {
	return &Loop{now: now}
}

// Now returns the time of the last Tick.
func (l *Loop) Now() time.Time { return l.now }

// AfterFunc schedules fn to run on the first Tick at or after now+d. The
// returned cancel func is idempotent.
func (l *Loop) AfterFunc(d time.Duration, fn func()) (cancel func()) {
	l.nextID++
	id := l.nextID
	l.timers = append(l.timers, timer{id: id, deadline: l.now.Add(d), fn: fn})
	return func() { l.cancelTimer(id) }
}

func (l *Loop) cancelTimer(id uint64) {
	for i := range l.timers {
		if l.timers[i].id == id {
			l.timers = append(l.timers[:i:i], l.timers[i+1:]...)
			return
		}
	}
}

// Pending reports the number of armed timers.
func (l *Loop) Pending() int { return len(l.timers) }

// RequestFrame queues fn for the next Tick, like requestAnimationFrame.
func (l *Loop) RequestFrame(fn func()) {
	if fn == nil {
		return
	}
	l.frames = append(l.frames, fn)
}

// Post hands fn to the loop from any goroutine.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.posted = append(l.posted, fn)
	l.mu.Unlock()
}

// Tick advances the clock and runs, in order: posted continuations, due
// timers (by deadline) and the frame callbacks queued before this Tick.
func (l *Loop) Tick(now time.Time) {
	if now.After(l.now) {
		l.now = now
	}

	l.mu.Lock()
	posted := l.posted
	l.posted = nil
	l.mu.Unlock()
	for _, fn := range posted {
		fn()
	}

	// One at a time: a timer callback may cancel another due timer.
	for {
		i := l.earliestDue()
		if i < 0 {
			break
		}
		t := l.timers[i]
		l.timers = append(l.timers[:i:i], l.timers[i+1:]...)
		t.fn()
	}

	frames := l.frames
	l.frames = nil
	for _, fn := range frames {
		fn()
	}
}

func (l *Loop) earliestDue() int {
	best := -1
	for i, t := range l.timers {
		if t.deadline.After(l.now) {
			continue
		}
		if best < 0 || t.deadline.Before(l.timers[best].deadline) {
			best = i
		}
	}
	return best
}

// Advance is Tick(Now()+d).
func (l *Loop) Advance(d time.Duration) {
	l.Tick(l.now.Add(d))
}
