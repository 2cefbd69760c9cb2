package harness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/quicharness/internal/quic"
)

func TestWaitForZeroRttTicketArrivesMidPoll(t *testing.T) {
	c, handle, failer := newClientFixture(t, nil)

	go func() {
		time.Sleep(8 * time.Millisecond)
		handle.ArmResumptionTicket([]byte("ticket"))
	}()

	assert.True(t, c.WaitForZeroRttTicket())
	assert.Empty(t, failer.all())
}

func TestWaitForZeroRttTicketExhausted(t *testing.T) {
	c, _, failer := newClientFixture(t, nil)

	start := time.Now()
	assert.False(t, c.WaitForZeroRttTicket())
	settings := testSettings()
	assert.GreaterOrEqual(t, time.Since(start),
		time.Duration(settings.TicketPollAttempts)*settings.TicketPollInterval)

	failures := failer.all()
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "WaitForZeroRttTicket failed after 3 attempts")
}

func TestWaitForPeerCloseTimeout(t *testing.T) {
	c, handle, failer := newClientFixture(t, nil)

	require.Equal(t, quic.StatusSuccess, c.Start(quic.AddressFamilyUnspec, "localhost", 4433))
	handle.DeliverConnected(false)

	assert.False(t, c.WaitForPeerClose())

	failures := failer.all()
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "WaitForPeerClose timed out")
}

func TestWaitsReturnImmediatelyOnceSignaled(t *testing.T) {
	c, handle, _ := newClientFixture(t, nil)

	require.Equal(t, quic.StatusSuccess, c.Start(quic.AddressFamilyUnspec, "localhost", 4433))
	handle.DeliverConnected(false)
	require.True(t, c.WaitForConnectionComplete())

	// Milestones stay signaled; repeated waits are instant.
	start := time.Now()
	for i := 0; i < 10; i++ {
		assert.True(t, c.WaitForConnectionComplete())
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}
