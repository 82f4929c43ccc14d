package testutil

import (
	"sync"
	"time"
)

// Clock provides deterministic, monotonically increasing times for tests.
// Every Now call advances the clock by one step.
type Clock struct {
	mu      sync.Mutex
	current time.Time
	step    time.Duration
}

// NewClock returns a clock initialized to a fixed UTC start time.
func NewClock() *Clock {
	return NewClockAt(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
}

// NewClockAt returns a clock starting at start.
func NewClockAt(start time.Time) *Clock {
	return &Clock{current: start, step: time.Second}
}

// Now returns the next time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = c.current.Add(c.step)

	return c.current
}

// Set moves the clock so the next Now returns t plus one step.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = t
}
