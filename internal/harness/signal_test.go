package harness

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSignalSetOnce(t *testing.T) {
	s := newSignal()
	assert.False(t, s.IsSet())

	s.Set()
	assert.True(t, s.IsSet())

	// Redundant sets are no-ops, not panics.
	s.Set()
	assert.True(t, s.IsSet())
}

func TestSignalWaitTimeout(t *testing.T) {
	s := newSignal()

	start := time.Now()
	assert.False(t, s.WaitTimeout(20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	s.Set()
	assert.True(t, s.WaitTimeout(time.Millisecond))
}

func TestSignalReleasesConcurrentWaiters(t *testing.T) {
	s := newSignal()

	var wg sync.WaitGroup
	results := make([]bool, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.WaitTimeout(time.Second)
		}(i)
	}

	s.Set()
	wg.Wait()
	for _, ok := range results {
		assert.True(t, ok)
	}
}

func TestSignalDoneSelectable(t *testing.T) {
	s := newSignal()

	select {
	case <-s.Done():
		t.Fatal("signal reported done before Set")
	default:
	}

	s.Set()
	select {
	case <-s.Done():
	default:
		t.Fatal("signal not done after Set")
	}
}
