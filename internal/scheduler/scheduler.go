// Package scheduler implements the single-shot deferred callback timer
// (spec §4.7): at most one pending timer at any instant, cancellable,
// idempotent. Grounded on the teacher's internal/indexer/watcher.go, which
// coalesces file-system events behind a single debounced timer.
package scheduler

import (
	"sync"
	"time"
)

// Scheduler wraps time.AfterFunc with the cancel-before-reschedule
// discipline spec §4.7 requires.
type Scheduler struct {
	mu    sync.Mutex
	timer *time.Timer
	next  time.Time
}

// New returns an idle Scheduler.
func New() *Scheduler {
	return &Scheduler{}
}

// Schedule cancels any existing timer, arms a new one for delay from now,
// and returns the wall-clock time it's scheduled to fire.
func (s *Scheduler) Schedule(delay time.Duration, cb func()) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}

	s.next = time.Now().Add(delay)
	s.timer = time.AfterFunc(delay, cb)
	return s.next
}

// Cancel clears any pending timer. Idempotent: calling it with nothing
// scheduled is a no-op.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.next = time.Time{}
}

// Pending reports whether a timer has been scheduled and not cancelled, and
// if so, when it was due to fire. A timer that has already fired is still
// reported until the next Schedule or Cancel.
func (s *Scheduler) Pending() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer == nil {
		return time.Time{}, false
	}
	return s.next, true
}
