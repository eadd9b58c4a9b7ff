// Package loop implements a cooperative single-threaded scheduler: work
// is enqueued for the next cycle, asynchronous operations are polled at
// cycle boundaries, and all state mutation happens on the one goroutine
// driving the cycle loop.
package loop

import (
	"sync"
	"time"
)

// Clock abstracts time for the scheduler so cycle pacing and timers can
// be driven deterministically in tests.
type Clock interface {
	Now() time.Time

	// Sleep pauses the cycle goroutine for d.
	Sleep(d time.Duration)
}

// SystemClock is the real wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time        { return time.Now() }
func (SystemClock) Sleep(d time.Duration) { time.Sleep(d) }

// MockClock advances only when told to. Sleep advances the clock instead
// of blocking, so a paced loop runs as fast as the test harness allows.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMockClock starts a mock clock at a fixed arbitrary instant.
func NewMockClock() *MockClock {
	return &MockClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *MockClock) Sleep(d time.Duration) {
	c.Advance(d)
}

// Advance moves the clock forward by d.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Set jumps the clock to t.
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}
