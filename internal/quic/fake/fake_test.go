package fake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/quicharness/internal/quic"
)

func openConn(t *testing.T, handler quic.EventHandler) *Conn {
	t.Helper()
	reg := NewRegistration(nil)
	conn, status := reg.ConnectionOpen(handler)
	require.Equal(t, quic.StatusSuccess, status)
	return conn.(*Conn)
}

func TestConnectionOpenScriptedFailure(t *testing.T) {
	reg := NewRegistration(nil)
	reg.FailConnectionOpen(quic.StatusOutOfMemory)

	conn, status := reg.ConnectionOpen(nil)
	assert.Equal(t, quic.StatusOutOfMemory, status)
	assert.Nil(t, conn)

	// The script is consumed; the next open succeeds.
	conn, status = reg.ConnectionOpen(nil)
	require.Equal(t, quic.StatusSuccess, status)
	assert.NotNil(t, conn)
	assert.Equal(t, conn, quic.Connection(reg.LastConn()))
}

func TestParamTypeEnforcement(t *testing.T) {
	conn := openConn(t, nil)

	// Wrong typed representation.
	assert.Equal(t, quic.StatusInvalidParameter,
		conn.SetParam(quic.ParamIdleTimeout, uint32(100)))
	assert.Equal(t, quic.StatusSuccess,
		conn.SetParam(quic.ParamIdleTimeout, uint64(100)))

	// Get-only keys reject writes.
	assert.Equal(t, quic.StatusInvalidParameter,
		conn.SetParam(quic.ParamStatistics, quic.Statistics{}))
	assert.Equal(t, quic.StatusInvalidParameter,
		conn.SetParam(quic.ParamLocalBidiStreamCount, uint16(1)))

	// Set-only keys reject reads.
	var sec *quic.SecurityConfig
	assert.Equal(t, quic.StatusInvalidParameter,
		conn.GetParam(quic.ParamSecurityConfig, &sec))
}

func TestScriptedParamFailuresConsumedInOrder(t *testing.T) {
	conn := openConn(t, nil)
	conn.FailSetParam(quic.ParamIdleTimeout, quic.StatusInvalidState, quic.StatusInternalError)

	assert.Equal(t, quic.StatusInvalidState, conn.SetParam(quic.ParamIdleTimeout, uint64(1)))
	assert.Equal(t, quic.StatusInternalError, conn.SetParam(quic.ParamIdleTimeout, uint64(1)))
	assert.Equal(t, quic.StatusSuccess, conn.SetParam(quic.ParamIdleTimeout, uint64(1)))
}

func TestForceKeyUpdateBumpsStatistics(t *testing.T) {
	conn := openConn(t, nil)

	require.Equal(t, quic.StatusSuccess, conn.SetParam(quic.ParamForceKeyUpdate, nil))
	require.Equal(t, quic.StatusSuccess, conn.SetParam(quic.ParamForceKeyUpdate, nil))

	var stats quic.Statistics
	require.Equal(t, quic.StatusSuccess, conn.GetParam(quic.ParamStatistics, &stats))
	assert.Equal(t, uint32(2), stats.KeyUpdateCount)

	// A payload is not accepted.
	assert.Equal(t, quic.StatusInvalidParameter,
		conn.SetParam(quic.ParamForceKeyUpdate, uint64(1)))
}

func TestResumptionStateProbe(t *testing.T) {
	conn := openConn(t, nil)

	assert.Equal(t, quic.StatusNotFound, conn.GetParam(quic.ParamResumptionState, nil))

	conn.ArmResumptionTicket([]byte("ticket-bytes"))
	assert.Equal(t, quic.StatusBufferTooSmall, conn.GetParam(quic.ParamResumptionState, nil))

	var ticket []byte
	require.Equal(t, quic.StatusSuccess, conn.GetParam(quic.ParamResumptionState, &ticket))
	assert.Equal(t, []byte("ticket-bytes"), ticket)
}

func TestShutdownDeliversTerminalEvent(t *testing.T) {
	var events []quic.EventType
	var peerAcked bool
	handler := func(event *quic.Event) quic.Status {
		events = append(events, event.Type)
		if event.Type == quic.EventShutdownComplete {
			peerAcked = event.ShutdownComplete.PeerAcknowledged
		}
		return quic.StatusSuccess
	}

	conn := openConn(t, handler)
	conn.Shutdown(quic.ShutdownNone, 0)

	require.Equal(t, []quic.EventType{quic.EventShutdownComplete}, events)
	assert.True(t, peerAcked)

	// A second shutdown is a no-op.
	conn.Shutdown(quic.ShutdownNone, 0)
	assert.Len(t, events, 1)
}

func TestSilentShutdownSkipsPeerAck(t *testing.T) {
	var peerAcked bool
	handler := func(event *quic.Event) quic.Status {
		if event.Type == quic.EventShutdownComplete {
			peerAcked = event.ShutdownComplete.PeerAcknowledged
		}
		return quic.StatusSuccess
	}

	conn := openConn(t, handler)
	conn.Shutdown(quic.ShutdownSilent, 0)
	assert.False(t, peerAcked)
}

func TestCloseIdempotentAndCounted(t *testing.T) {
	conn := openConn(t, nil)

	conn.Close()
	conn.Close()
	assert.Equal(t, 2, conn.CloseCount())

	// No delivery or parameter access after close.
	assert.Equal(t, quic.StatusInvalidState, conn.DeliverConnected(false))
	assert.Equal(t, quic.StatusInvalidParameter, conn.SetParam(quic.ParamIdleTimeout, uint64(1)))
	var v uint64
	assert.Equal(t, quic.StatusInvalidParameter, conn.GetParam(quic.ParamIdleTimeout, &v))
}

func TestStartRecordsRemoteAddress(t *testing.T) {
	conn := openConn(t, nil)
	require.False(t, conn.Started())

	require.Equal(t, quic.StatusSuccess,
		conn.Start(quic.AddressFamilyIPv4, "localhost", 4433))
	assert.True(t, conn.Started())

	var addr quic.Addr
	require.Equal(t, quic.StatusSuccess, conn.GetParam(quic.ParamRemoteAddress, &addr))
	assert.Equal(t, uint16(4433), addr.Port)
}

func TestAcceptedConnStartsStarted(t *testing.T) {
	reg := NewRegistration(nil)
	conn := reg.Accept()
	assert.True(t, conn.Started())
	assert.NotEqual(t, "", conn.ID().String())
}

func TestStreamStartDeliversAssignedID(t *testing.T) {
	conn := openConn(t, nil)

	var startedID uint64
	handler := func(event *quic.StreamEvent) quic.Status {
		if event.Type == quic.StreamEventStartComplete {
			startedID = event.StartComplete.ID
		}
		return quic.StatusSuccess
	}

	stream, status := conn.StreamOpen(quic.StreamOpenNone, handler)
	require.Equal(t, quic.StatusSuccess, status)
	fs := stream.(*Stream)

	require.Equal(t, quic.StatusSuccess, stream.Start(quic.StreamStartNone))
	assert.Equal(t, fs.ID(), startedID)

	// Stream identifiers are distinct across opens.
	stream2, status := conn.StreamOpen(quic.StreamOpenNone, nil)
	require.Equal(t, quic.StatusSuccess, status)
	assert.NotEqual(t, fs.ID(), stream2.(*Stream).ID())
}

func TestStreamShutdownDeliversTerminalEvent(t *testing.T) {
	conn := openConn(t, nil)

	var sawShutdown bool
	handler := func(event *quic.StreamEvent) quic.Status {
		if event.Type == quic.StreamEventShutdownComplete {
			sawShutdown = true
		}
		return quic.StatusSuccess
	}

	stream, status := conn.StreamOpen(quic.StreamOpenNone, handler)
	require.Equal(t, quic.StatusSuccess, status)

	require.Equal(t, quic.StatusSuccess, stream.Shutdown(quic.StreamShutdownGraceful, 0))
	assert.True(t, sawShutdown)

	stream.Close()
	stream.Close()
	assert.Equal(t, 2, stream.(*Stream).CloseCount())
}
