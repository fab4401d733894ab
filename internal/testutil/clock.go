package testutil

import (
	"sync"
	"time"

	"github.com/roach88/yeardle/internal/day"
)

// FixedClock is a day.Clock that only moves when told to.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock returns a clock pinned to noon UTC on the given YYYY-MM-DD day.
func NewFixedClock(d string) *FixedClock {
	return &FixedClock{now: day.MustParse(d).Time().Add(12 * time.Hour)}
}

// NewFixedClockAt returns a clock pinned to an exact instant.
func NewFixedClockAt(t time.Time) *FixedClock {
	return &FixedClock{now: t}
}

// Now returns the pinned instant.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// AdvanceDays moves the clock forward by n calendar days.
func (c *FixedClock) AdvanceDays(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.AddDate(0, 0, n)
}

// Today is shorthand for day.Today(c).
func (c *FixedClock) Today() day.Day {
	return day.Today(c)
}
