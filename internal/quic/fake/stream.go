package fake

import (
	"sync"

	"example.com/quicharness/internal/logger"
	"example.com/quicharness/internal/quic"
)

// Stream is a single fake stream handle.
type Stream struct {
	conn *Conn
	log  *logger.Logger

	dispatchMu sync.Mutex

	mu            sync.Mutex
	id            uint64
	flags         quic.StreamOpenFlags
	handler       quic.StreamEventHandler
	startFailures []quic.Status
	started       bool
	closed        bool
	closeCount    int
}

func newStream(conn *Conn, id uint64, flags quic.StreamOpenFlags, handler quic.StreamEventHandler) *Stream {
	return &Stream{
		conn:    conn,
		log:     conn.log.With(logger.LogFields{"stream_id": id}),
		id:      id,
		flags:   flags,
		handler: handler,
	}
}

// ID returns the stream identifier assigned at open.
func (s *Stream) ID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// CloseCount reports how many times Close has been called.
func (s *Stream) CloseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCount
}

// FailStart scripts statuses for upcoming Start calls.
func (s *Stream) FailStart(statuses ...quic.Status) {
	s.mu.Lock()
	s.startFailures = append(s.startFailures, statuses...)
	s.mu.Unlock()
}

// SetHandler implements quic.Stream.
func (s *Stream) SetHandler(handler quic.StreamEventHandler) {
	s.mu.Lock()
	s.handler = handler
	s.mu.Unlock()
}

// Start implements quic.Stream. A successful start delivers the
// start-complete event with the assigned identifier.
func (s *Stream) Start(flags quic.StreamStartFlags) quic.Status {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return quic.StatusInvalidParameter
	}
	if len(s.startFailures) > 0 {
		status := s.startFailures[0]
		s.startFailures = s.startFailures[1:]
		if status.Failed() {
			s.mu.Unlock()
			return status
		}
	}
	s.started = true
	id := s.id
	s.mu.Unlock()

	s.deliver(&quic.StreamEvent{
		Type: quic.StreamEventStartComplete,
		StartComplete: quic.StreamStartCompleteEvent{
			Status: quic.StatusSuccess,
			ID:     id,
		},
	})
	return quic.StatusSuccess
}

// Shutdown implements quic.Stream. An abortive or graceful shutdown
// delivers the stream's terminal event.
func (s *Stream) Shutdown(flags quic.StreamShutdownFlags, errorCode uint64) quic.Status {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return quic.StatusInvalidParameter
	}
	s.mu.Unlock()

	s.log.Debug("stream shutdown", logger.LogFields{
		"flags": uint32(flags), "error_code": errorCode,
	})
	s.deliver(&quic.StreamEvent{
		Type: quic.StreamEventShutdownComplete,
		ShutdownComplete: quic.StreamShutdownCompleteEvent{
			ConnectionShutdown: false,
		},
	})
	return quic.StatusSuccess
}

// Close implements quic.Stream. Idempotent.
func (s *Stream) Close() {
	s.mu.Lock()
	s.closeCount++
	s.closed = true
	s.mu.Unlock()
}

func (s *Stream) deliver(event *quic.StreamEvent) quic.Status {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	handler := s.handler
	closed := s.closed
	s.mu.Unlock()

	if closed || handler == nil {
		return quic.StatusInvalidState
	}
	return handler(event)
}

// DeliverPeerSendShutdown injects a graceful peer send-direction close.
func (s *Stream) DeliverPeerSendShutdown() quic.Status {
	return s.deliver(&quic.StreamEvent{Type: quic.StreamEventPeerSendShutdown})
}

// DeliverPeerSendAborted injects an abortive peer send-direction close.
func (s *Stream) DeliverPeerSendAborted(errorCode uint64) quic.Status {
	return s.deliver(&quic.StreamEvent{
		Type:            quic.StreamEventPeerSendAborted,
		PeerSendAborted: quic.StreamPeerSendAbortedEvent{ErrorCode: errorCode},
	})
}

// DeliverShutdownComplete injects the stream's terminal event.
// connectionShutdown marks a stream torn down by its parent connection.
func (s *Stream) DeliverShutdownComplete(connectionShutdown bool) quic.Status {
	return s.deliver(&quic.StreamEvent{
		Type: quic.StreamEventShutdownComplete,
		ShutdownComplete: quic.StreamShutdownCompleteEvent{
			ConnectionShutdown: connectionShutdown,
		},
	})
}
