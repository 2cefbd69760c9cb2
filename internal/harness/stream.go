package harness

import (
	"sync"

	"example.com/quicharness/internal/logger"
	"example.com/quicharness/internal/quic"
)

// StreamShutdownCallback is invoked inline from the event goroutine
// when the stream reaches its terminal event.
type StreamShutdownCallback func(s *Stream)

// Stream wraps a single QUIC stream handle the way Connection wraps a
// connection: set-once state written by the stream's event handler, a
// waitable shutdown milestone, and an idempotent Close.
type Stream struct {
	stream   quic.Stream
	log      *logger.Logger
	failer   Failer
	settings Settings

	shutdownCallback StreamShutdownCallback

	mu                 sync.Mutex
	id                 uint64
	startStatus        quic.Status
	peerSendShutdown   bool
	peerSendAborted    bool
	peerAbortErrorCode uint64
	connectionShutdown bool
	isShutdown         bool

	shutdownComplete *signal

	closeOnce sync.Once
}

func newStream(c *Connection, shutdown StreamShutdownCallback) *Stream {
	return &Stream{
		log:              c.log,
		failer:           c.failer,
		settings:         c.settings,
		shutdownCallback: shutdown,
		startStatus:      quic.StatusPending,
		shutdownComplete: newSignal(),
	}
}

// streamFromConnection opens and starts a local stream on the fixture's
// underlying handle. Ownership of the returned wrapper transfers to the
// caller.
func streamFromConnection(c *Connection, shutdown StreamShutdownCallback, flags quic.StreamOpenFlags) (*Stream, quic.Status) {
	if c.conn == nil {
		return nil, quic.StatusInvalidState
	}
	s := newStream(c, shutdown)

	stream, status := c.conn.StreamOpen(flags, s.handleEvent)
	if status.Failed() {
		return nil, status
	}
	s.stream = stream

	if status = stream.Start(quic.StreamStartNone); status.Failed() {
		stream.Close()
		return nil, status
	}
	return s, quic.StatusSuccess
}

// StreamFromPeerHandle wraps a stream handle delivered by a
// peer-stream-started event. The wrapper takes ownership of the handle.
func StreamFromPeerHandle(c *Connection, stream quic.Stream, shutdown StreamShutdownCallback) *Stream {
	s := newStream(c, shutdown)
	s.stream = stream
	s.startStatus = quic.StatusSuccess
	stream.SetHandler(s.handleEvent)
	return s
}

// Close releases the stream handle. Idempotent.
func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		if s.stream != nil {
			s.stream.Close()
		}
	})
}

// Shutdown begins closing the stream.
func (s *Stream) Shutdown(flags quic.StreamShutdownFlags, errorCode uint64) quic.Status {
	if s.stream == nil {
		return quic.StatusInvalidState
	}
	return s.stream.Shutdown(flags, errorCode)
}

// WaitForShutdownComplete blocks until the stream's terminal event has
// been observed. Returns false and reports a failure on timeout.
func (s *Stream) WaitForShutdownComplete() bool {
	if !s.shutdownComplete.WaitTimeout(s.settings.WaitTimeout) {
		s.failer.Failf("Stream WaitForShutdownComplete timed out after %v.", s.settings.WaitTimeout)
		return false
	}
	return true
}

// ID returns the stream's assigned identifier, valid once start has
// completed.
func (s *Stream) ID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// StartStatus returns the outcome of the stream start, StatusPending
// until the start-complete event arrives.
func (s *Stream) StartStatus() quic.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startStatus
}

// GetPeerSendShutdown reports whether the peer gracefully finished
// sending.
func (s *Stream) GetPeerSendShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peerSendShutdown
}

// GetPeerSendAborted reports whether the peer aborted its send
// direction.
func (s *Stream) GetPeerSendAborted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peerSendAborted
}

// GetPeerAbortErrorCode returns the peer's abort code. Valid only when
// GetPeerSendAborted reports true.
func (s *Stream) GetPeerAbortErrorCode() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peerAbortErrorCode
}

// GetConnectionShutdown reports whether the stream went down because
// the whole connection did.
func (s *Stream) GetConnectionShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectionShutdown
}

// IsShutdown reports whether the stream's terminal event has been
// observed.
func (s *Stream) IsShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isShutdown
}

// handleEvent mirrors the connection dispatcher for stream events:
// set-once writes, milestone signaling, inline callback, always
// success.
func (s *Stream) handleEvent(event *quic.StreamEvent) quic.Status {
	switch event.Type {

	case quic.StreamEventStartComplete:
		s.mu.Lock()
		s.startStatus = event.StartComplete.Status
		s.id = event.StartComplete.ID
		s.mu.Unlock()

	case quic.StreamEventPeerSendShutdown:
		s.mu.Lock()
		s.peerSendShutdown = true
		s.mu.Unlock()

	case quic.StreamEventPeerSendAborted:
		s.mu.Lock()
		s.peerSendAborted = true
		s.peerAbortErrorCode = event.PeerSendAborted.ErrorCode
		s.mu.Unlock()

	case quic.StreamEventShutdownComplete:
		s.mu.Lock()
		s.isShutdown = true
		s.connectionShutdown = event.ShutdownComplete.ConnectionShutdown
		cb := s.shutdownCallback
		s.mu.Unlock()
		s.shutdownComplete.Set()
		if cb != nil {
			cb(s)
		}

	default:
		// Receive and send-complete events carry data-path details the
		// fixture does not track.
	}

	return quic.StatusSuccess
}
