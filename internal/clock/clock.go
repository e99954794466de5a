// Package clock abstracts the time source used when stamping and checking
// token time claims.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses the real system clock.
type SystemClock struct{}

// NewSystemClock creates a clock that uses the real system time.
func NewSystemClock() *SystemClock {
	return &SystemClock{}
}

// Now returns the current system time.
func (c *SystemClock) Now() time.Time {
	return time.Now()
}

// FixtureClock is a controllable clock for tests. It is safe for concurrent use
// so it can back an Engine shared by several goroutines.
type FixtureClock struct {
	mu          sync.RWMutex
	currentTime time.Time
}

// NewFixtureClock creates a fixture clock starting at startTime.
// A zero startTime uses time.Now().
func NewFixtureClock(startTime time.Time) *FixtureClock {
	if startTime.IsZero() {
		startTime = time.Now()
	}
	return &FixtureClock{currentTime: startTime}
}

// Now returns the current fixture time.
func (c *FixtureClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentTime
}

// Set moves the clock to t.
func (c *FixtureClock) Set(t time.Time) {
	c.mu.Lock()
	c.currentTime = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d.
func (c *FixtureClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.currentTime = c.currentTime.Add(d)
	c.mu.Unlock()
}

// Rewind moves the clock backward by d.
func (c *FixtureClock) Rewind(d time.Duration) {
	c.Advance(-d)
}
