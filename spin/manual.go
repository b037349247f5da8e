/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package spin

import (
	"sync"
	"time"
)

// ManualScheduler is a virtual-clock Scheduler. Nothing fires until Advance is
// called, and callbacks run on the goroutine calling Advance.
type ManualScheduler struct {
	mu      sync.Mutex
	now     time.Duration
	seq     uint64
	pending map[*manualTimer]struct{}
}

// NewManualScheduler returns a scheduler whose clock starts at zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{
		pending: make(map[*manualTimer]struct{}),
	}
}

type manualTimer struct {
	s     *ManualScheduler
	due   time.Duration
	every time.Duration
	seq   uint64
	fn    func()
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if _, ok := t.s.pending[t]; !ok {
		return false
	}
	delete(t.s.pending, t)

	return true
}

func (s *ManualScheduler) add(d, every time.Duration, fn func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	t := &manualTimer{
		s:     s,
		due:   s.now + max(d, 0),
		every: every,
		seq:   s.seq,
		fn:    fn,
	}
	s.pending[t] = struct{}{}

	return t
}

// After schedules fn once, d from the current virtual time.
func (s *ManualScheduler) After(d time.Duration, fn func()) Timer {
	return s.add(d, 0, fn)
}

// Every schedules fn every d. A non-positive period is treated as one nanosecond.
func (s *ManualScheduler) Every(d time.Duration, fn func()) Timer {
	if d <= 0 {
		d = time.Nanosecond
	}
	return s.add(d, d, fn)
}

// next pops the earliest timer due at or before limit, rescheduling
// repeating timers.
func (s *ManualScheduler) next(limit time.Duration) *manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()

	var found *manualTimer
	for t := range s.pending {
		if t.due > limit {
			continue
		}
		if found == nil || t.due < found.due || (t.due == found.due && t.seq < found.seq) {
			found = t
		}
	}
	if found == nil {
		return nil
	}

	s.now = found.due

	if found.every > 0 {
		s.seq++
		fired := *found
		found.due += found.every
		found.seq = s.seq
		return &fired
	}

	delete(s.pending, found)

	return found
}

// Advance moves the virtual clock forward by d, running every callback that
// falls due in order of due time, then scheduling order.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	limit := s.now + d
	s.mu.Unlock()

	for t := s.next(limit); t != nil; t = s.next(limit) {
		t.fn()
	}

	s.mu.Lock()
	s.now = limit
	s.mu.Unlock()
}

// Now returns the virtual time elapsed since the scheduler was created.
func (s *ManualScheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.now
}

// Pending returns the number of timers still scheduled.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.pending)
}
