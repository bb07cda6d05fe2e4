package types

import (
	"container/heap"
	"errors"
	"sync"
	"time"
)

var (
	// ErrDuplicateTimeout is returned when a timeout that is still pending is inserted again
	ErrDuplicateTimeout = errors.New("timeout already pending")
	// ErrStoreCorrupted is returned when the heap and the index of the store disagree
	ErrStoreCorrupted = errors.New("timeout store corrupted")
)

// timeoutHeap orders pending timeouts by due time, earliest at index 0
type timeoutHeap []*Timeout

func (h timeoutHeap) Len() int { return len(h) }

func (h timeoutHeap) Less(i, j int) bool { return h[i].DueAt.Before(h[j].DueAt) }

func (h timeoutHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timeoutHeap) Push(x any) {
	*h = append(*h, x.(*Timeout))
}

func (h *timeoutHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}

// TimeoutStore holds the pending timeouts, thread safe.
// Insert and ExtractDue are mutually exclusive and never block on I/O.
type TimeoutStore struct {
	timeouts timeoutHeap
	index    map[TimeoutID]struct{}
	lock     *sync.Mutex
}

// NewTimeoutStore creates an empty TimeoutStore
func NewTimeoutStore() *TimeoutStore {
	return &TimeoutStore{
		timeouts: make(timeoutHeap, 0),
		index:    make(map[TimeoutID]struct{}),
		lock:     new(sync.Mutex),
	}
}

// Insert adds the timeout to the store. The timeout is visible to every
// ExtractDue call that starts after Insert returns.
func (s *TimeoutStore) Insert(t *Timeout) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.index[t.ID]; ok {
		return ErrDuplicateTimeout
	}
	s.index[t.ID] = struct{}{}
	heap.Push(&s.timeouts, t)
	return nil
}

// ExtractDue removes and returns all timeouts with DueAt <= now, earliest first.
// Timeouts that are not due are left untouched.
func (s *TimeoutStore) ExtractDue(now time.Time) ([]*Timeout, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if len(s.timeouts) != len(s.index) {
		return nil, ErrStoreCorrupted
	}

	due := make([]*Timeout, 0)
	for len(s.timeouts) > 0 && s.timeouts[0].IsDue(now) {
		t := heap.Pop(&s.timeouts).(*Timeout)
		if _, ok := s.index[t.ID]; !ok {
			return nil, ErrStoreCorrupted
		}
		delete(s.index, t.ID)
		due = append(due, t)
	}
	return due, nil
}

// Count returns the number of pending timeouts
func (s *TimeoutStore) Count() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.timeouts)
}

// Snapshot returns copies of the pending timeouts ordered by due time
func (s *TimeoutStore) Snapshot() []*Timeout {
	s.lock.Lock()
	c := make(timeoutHeap, len(s.timeouts))
	for i, t := range s.timeouts {
		c[i] = t.Clone()
	}
	s.lock.Unlock()

	result := make([]*Timeout, 0, len(c))
	for c.Len() > 0 {
		result = append(result, heap.Pop(&c).(*Timeout))
	}
	return result
}
