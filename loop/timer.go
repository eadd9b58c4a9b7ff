package loop

import (
	"sync/atomic"
	"time"
)

// Timer is a cancellable handle for a repeating or one-shot scheduled
// callback. Stop prevents any further invocation, including one already
// enqueued for the next cycle.
type Timer struct {
	name     string
	fn       func() error
	deadline time.Time
	interval time.Duration // Zero for one-shot
	stopped  atomic.Bool
}

// Stop cancels the timer.
func (t *Timer) Stop() { t.stopped.Store(true) }

// Stopped reports whether the timer has been cancelled.
func (t *Timer) Stopped() bool { return t.stopped.Load() }

// SetInterval schedules fn to run every d, first firing one interval from
// now. The callback runs as ordinary next-cycle work, so it observes the
// same ordering rules as Enqueue.
func (l *Loop) SetInterval(name string, d time.Duration, fn func() error) *Timer {
	return l.addTimer(name, d, d, fn)
}

// SetTimeout schedules fn to run once after d.
func (l *Loop) SetTimeout(name string, d time.Duration, fn func() error) *Timer {
	return l.addTimer(name, d, 0, fn)
}

func (l *Loop) addTimer(name string, delay, interval time.Duration, fn func() error) *Timer {
	t := &Timer{
		name:     name,
		fn:       fn,
		deadline: l.clock.Now().Add(delay),
		interval: interval,
	}
	l.mu.Lock()
	l.timers = append(l.timers, t)
	l.mu.Unlock()
	return t
}

// pollTimers fires due timers by enqueuing their callbacks. Timers fire
// only while the loop runs, never while it drains.
func (l *Loop) pollTimers() {
	if l.State() != StateRunning {
		return
	}
	now := l.clock.Now()

	l.mu.Lock()
	var due []*Timer
	kept := l.timers[:0]
	for _, t := range l.timers {
		if t.stopped.Load() {
			continue
		}
		if !now.Before(t.deadline) {
			due = append(due, t)
			if t.interval <= 0 {
				continue
			}
			t.deadline = now.Add(t.interval)
		}
		kept = append(kept, t)
	}
	l.timers = kept
	l.mu.Unlock()

	for _, t := range due {
		t := t
		l.Enqueue(t.name, func() error {
			if t.stopped.Load() {
				return nil
			}
			return t.fn()
		})
	}
}
