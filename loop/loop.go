package loop

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ErrLoopStopped is the designated stop signal. A work item or hook that
// returns it (or wraps it) cancels all queued and pending work and ends
// the loop cleanly; Run reports no error. Any other error terminates the
// loop and propagates.
var ErrLoopStopped = errors.New("loop: stop requested")

// State is the loop lifecycle phase.
type State int32

const (
	StateNotStarted State = iota
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Hook names a lifecycle notification point.
type Hook uint8

const (
	HookStarted Hook = iota
	HookStopped
	HookCycleStart
	HookCycleEnd
)

type workItem struct {
	name  string
	fn    func() error
	async func() *Future
}

type pendingItem struct {
	name string
	fut  *Future
}

type hookSub struct {
	id   uuid.UUID
	hook Hook
	name string
	fn   func() error
}

// Loop is a cooperative scheduler. One goroutine runs the cycle loop;
// everything enqueued executes there, one cycle after it was enqueued.
type Loop struct {
	clock    Clock
	interval time.Duration

	state atomic.Int32
	cycle atomic.Uint64

	mu     sync.Mutex
	queue  []workItem
	timers []*Timer
	subs   []hookSub

	// Cycle-goroutine state, never touched elsewhere
	pending []pendingItem

	hostPoller func() error
}

// New creates a loop paced to one cycle per interval. A zero interval
// runs cycles back to back.
func New(clock Clock, interval time.Duration) *Loop {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Loop{clock: clock, interval: interval}
}

// State returns the current lifecycle phase.
func (l *Loop) State() State { return State(l.state.Load()) }

// Cycle returns the current cycle counter. It wraps on overflow.
func (l *Loop) Cycle() uint64 { return l.cycle.Load() }

// PendingCount returns the number of in-flight asynchronous items. Only
// meaningful from the cycle goroutine.
func (l *Loop) PendingCount() int { return len(l.pending) }

// SetHostPoller installs the per-cycle host input hook, called after the
// cycle's work batch. Must be set before Run.
func (l *Loop) SetHostPoller(fn func() error) { l.hostPoller = fn }

// Enqueue schedules fn to run on the next cycle. Once the loop is
// draining or stopped the call is a no-op.
func (l *Loop) Enqueue(name string, fn func() error) {
	if s := l.State(); s != StateNotStarted && s != StateRunning {
		return
	}
	l.mu.Lock()
	l.queue = append(l.queue, workItem{name: name, fn: fn})
	l.mu.Unlock()
}

// EnqueueAsync schedules fn for the next cycle; the future it returns is
// polled at every subsequent cycle boundary until it settles. A nil
// future means the work completed synchronously.
func (l *Loop) EnqueueAsync(name string, fn func() *Future) {
	if s := l.State(); s != StateNotStarted && s != StateRunning {
		return
	}
	l.mu.Lock()
	l.queue = append(l.queue, workItem{name: name, async: fn})
	l.mu.Unlock()
}

// Subscribe registers fn on a lifecycle hook and returns its handle.
func (l *Loop) Subscribe(h Hook, name string, fn func() error) uuid.UUID {
	id := uuid.New()
	l.mu.Lock()
	l.subs = append(l.subs, hookSub{id: id, hook: h, name: name, fn: fn})
	l.mu.Unlock()
	return id
}

// Unsubscribe removes a hook registration.
func (l *Loop) Unsubscribe(id uuid.UUID) {
	l.mu.Lock()
	for i, s := range l.subs {
		if s.id == id {
			l.subs = append(l.subs[:i], l.subs[i+1:]...)
			break
		}
	}
	l.mu.Unlock()
}

// Stop requests cooperative shutdown. No new work is accepted; in-flight
// pending items are polled until they settle, then the loop exits.
func (l *Loop) Stop() {
	l.state.CompareAndSwap(int32(StateRunning), int32(StateDraining))
}

// Start runs the loop on its own goroutine and returns a future that
// settles with Run's result.
func (l *Loop) Start() *Future {
	fut, settle := NewPromise()
	go func() {
		settle(l.Run())
	}()
	return fut
}

// Run drives the cycle loop on the calling goroutine until a stop is
// requested and all pending work has drained, or a work item fails.
func (l *Loop) Run() error {
	if !l.state.CompareAndSwap(int32(StateNotStarted), int32(StateRunning)) {
		return fmt.Errorf("loop: Run on %s loop", l.State())
	}

	err := l.fire(HookStarted)
	if err == nil {
		err = l.cycleLoop()
	}

	l.state.Store(int32(StateStopped))
	l.fire(HookStopped) // Nothing is listening for hook errors anymore
	if errors.Is(err, ErrLoopStopped) {
		return nil
	}
	return err
}

func (l *Loop) cycleLoop() error {
	deadline := l.clock.Now().Add(l.interval)
	for {
		l.cycle.Add(1)

		if err := l.classify(l.fire(HookCycleStart)); err != nil {
			return err
		}

		// Snapshot the queue so work enqueued during this cycle waits for
		// the next one
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		if err := l.pollPending(); err != nil {
			return err
		}
		l.pollTimers()

		for _, w := range batch {
			if err := l.classify(l.runItem(w)); err != nil {
				return err
			}
		}

		if l.hostPoller != nil && l.State() == StateRunning {
			if err := l.classify(safeCall("host poll", l.hostPoller)); err != nil {
				return err
			}
		}

		if err := l.classify(l.fire(HookCycleEnd)); err != nil {
			return err
		}

		if l.State() == StateDraining && len(l.pending) == 0 && l.queueLen() == 0 {
			return nil
		}

		if l.interval > 0 {
			now := l.clock.Now()
			if sleep := deadline.Sub(now); sleep > 0 {
				l.clock.Sleep(sleep)
			}
			deadline = deadline.Add(l.interval)
			if now.Sub(deadline) > 2*l.interval {
				// Too far behind to catch up; resync instead of bursting
				deadline = now.Add(l.interval)
			}
		}
	}
}

// classify applies the three-way failure policy: nil passes, the stop
// signal cancels everything for a clean exit, other errors terminate the
// loop unless it is already draining, in which case nothing can observe
// them and they are swallowed.
func (l *Loop) classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrLoopStopped):
		l.mu.Lock()
		l.queue = nil
		l.timers = nil
		l.mu.Unlock()
		l.pending = nil
		l.state.Store(int32(StateDraining))
		return err
	case l.State() != StateRunning:
		return nil
	default:
		return err
	}
}

func (l *Loop) runItem(w workItem) error {
	if w.async == nil {
		return safeCall(w.name, w.fn)
	}
	var fut *Future
	if err := safeCall(w.name, func() error {
		fut = w.async()
		return nil
	}); err != nil {
		return err
	}
	if fut == nil || fut.Done() {
		if fut != nil {
			return fut.Err()
		}
		return nil
	}
	l.pending = append(l.pending, pendingItem{name: w.name, fut: fut})
	return nil
}

func (l *Loop) pollPending() error {
	kept := l.pending[:0]
	for i, p := range l.pending {
		if !p.fut.Done() {
			kept = append(kept, p)
			continue
		}
		if err := l.classify(p.fut.Err()); err != nil {
			if errors.Is(err, ErrLoopStopped) {
				l.pending = nil
			} else {
				l.pending = append(kept, l.pending[i+1:]...)
			}
			return err
		}
	}
	l.pending = kept
	return nil
}

func (l *Loop) fire(h Hook) error {
	l.mu.Lock()
	var fns []hookSub
	for _, s := range l.subs {
		if s.hook == h {
			fns = append(fns, s)
		}
	}
	l.mu.Unlock()

	for _, s := range fns {
		if err := safeCall(s.name, s.fn); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loop) queueLen() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// safeCall converts a work-item panic into an error so the failure policy
// applies uniformly.
func safeCall(name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", name, r)
		}
	}()
	return fn()
}
