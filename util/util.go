package util

import "sync/atomic"

// Counter is a thread safe monotonic counter used to number sweeps and deliveries
type Counter struct {
	n atomic.Uint64
}

// NewCounter instantiates Counter starting at 0
func NewCounter() *Counter {
	return &Counter{}
}

// Next returns the current value and advances the counter
func (c *Counter) Next() uint64 {
	return c.n.Add(1) - 1
}

// Value returns the number of times Next was called
func (c *Counter) Value() uint64 {
	return c.n.Load()
}
