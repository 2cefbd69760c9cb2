package harness

import (
	"sync"
	"time"
)

// signal is a manual-reset, single-shot milestone. It transitions from
// unsignaled to signaled exactly once and stays signaled; redundant
// Set calls are no-ops. The channel close gives waiters a
// release/acquire boundary over state written before Set.
type signal struct {
	once sync.Once
	ch   chan struct{}
}

func newSignal() *signal {
	return &signal{ch: make(chan struct{})}
}

// Set marks the milestone reached.
func (s *signal) Set() {
	s.once.Do(func() { close(s.ch) })
}

// Done returns a channel closed once the milestone is reached.
func (s *signal) Done() <-chan struct{} {
	return s.ch
}

// IsSet reports whether the milestone has been reached.
func (s *signal) IsSet() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}

// WaitTimeout blocks until the milestone is reached or the timeout
// elapses, reporting which happened.
func (s *signal) WaitTimeout(d time.Duration) bool {
	select {
	case <-s.ch:
		return true
	case <-time.After(d):
		return false
	}
}
