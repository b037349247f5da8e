/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package spin

import (
	"sync/atomic"
	"time"
)

// Timer is a pending callback. Stop reports whether it prevented the callback
// from running; stopping an already-stopped or already-fired one-shot timer
// returns false.
type Timer interface {
	Stop() bool
}

// Scheduler defers callbacks. Implementations must run every callback on the
// same goroutine the engine is driven from.
type Scheduler interface {
	After(d time.Duration, fn func()) Timer
	Every(d time.Duration, fn func()) Timer
}

// LoopScheduler backs timers with the runtime clock and hands each due
// callback to an event loop through its task channel. Once done is closed no
// further callbacks are posted.
type LoopScheduler struct {
	tasks chan<- func()
	done  <-chan struct{}
}

// NewLoopScheduler returns a scheduler posting to tasks until done is closed.
func NewLoopScheduler(tasks chan<- func(), done <-chan struct{}) *LoopScheduler {
	return &LoopScheduler{
		tasks: tasks,
		done:  done,
	}
}

type loopTimer struct {
	stopped atomic.Bool
	timer   *time.Timer
	quit    chan struct{}
}

func (t *loopTimer) Stop() bool {
	if t.stopped.Swap(true) {
		return false
	}

	if t.timer != nil {
		t.timer.Stop()
	}
	if t.quit != nil {
		close(t.quit)
	}

	return true
}

func (s *LoopScheduler) post(t *loopTimer, task func()) {
	select {
	case s.tasks <- task:
	case <-t.quit:
	case <-s.done:
	}
}

// After runs fn on the loop once d has elapsed.
func (s *LoopScheduler) After(d time.Duration, fn func()) Timer {
	t := &loopTimer{}

	t.timer = time.AfterFunc(d, func() {
		s.post(t, func() {
			// A timer stopped after being queued must not run.
			if t.stopped.CompareAndSwap(false, true) {
				fn()
			}
		})
	})

	return t
}

// Every runs fn on the loop every d until stopped. Ticks that arrive while
// the loop is busy are dropped by the underlying ticker.
func (s *LoopScheduler) Every(d time.Duration, fn func()) Timer {
	t := &loopTimer{quit: make(chan struct{})}
	ticker := time.NewTicker(d)

	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.post(t, func() {
					if !t.stopped.Load() {
						fn()
					}
				})
			case <-t.quit:
				return
			case <-s.done:
				return
			}
		}
	}()

	return t
}
