package types

import (
	"sync"
	"time"
)

// Clock abstracts the current time so that due times can be tested deterministically
type Clock interface {
	Now() time.Time
}

// RealClock reads the wall clock in UTC
type RealClock struct{}

// Now implements Clock
func (RealClock) Now() time.Time {
	return time.Now().UTC()
}

// ManualClock is a Clock that only moves when told to, thread safe
type ManualClock struct {
	now  time.Time
	lock *sync.Mutex
}

// NewManualClock creates a ManualClock reading now
func NewManualClock(now time.Time) *ManualClock {
	return &ManualClock{now: now, lock: new(sync.Mutex)}
}

// Now implements Clock
func (c *ManualClock) Now() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

// Advance moves the clock forward by d
func (c *ManualClock) Advance(d time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.now = c.now.Add(d)
}
