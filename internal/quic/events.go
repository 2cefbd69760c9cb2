package quic

import "fmt"

// EventType enumerates connection events. The harness recognizes the
// first six; drivers may deliver others, which handlers are expected to
// accept and ignore.
type EventType uint32

const (
	// EventConnected fires when the handshake completes.
	EventConnected EventType = iota
	// EventShutdownInitiatedByTransport fires when the local stack or
	// the peer's transport layer terminates the connection.
	EventShutdownInitiatedByTransport
	// EventShutdownInitiatedByPeer fires when the peer application
	// closes the connection with an error code.
	EventShutdownInitiatedByPeer
	// EventShutdownComplete is the terminal event. The handle may be
	// closed once it has been delivered.
	EventShutdownComplete
	// EventPeerAddressChanged fires when the peer migrates to a new
	// address.
	EventPeerAddressChanged
	// EventPeerStreamStarted fires when the peer opens a stream. The
	// handler takes ownership of the carried stream handle.
	EventPeerStreamStarted

	// Events below are delivered by some drivers and ignored by the
	// harness.
	EventLocalAddressChanged
	EventStreamsAvailable
	EventDatagramStateChanged
	EventResumed
)

func (t EventType) String() string {
	switch t {
	case EventConnected:
		return "CONNECTED"
	case EventShutdownInitiatedByTransport:
		return "SHUTDOWN_INITIATED_BY_TRANSPORT"
	case EventShutdownInitiatedByPeer:
		return "SHUTDOWN_INITIATED_BY_PEER"
	case EventShutdownComplete:
		return "SHUTDOWN_COMPLETE"
	case EventPeerAddressChanged:
		return "PEER_ADDRESS_CHANGED"
	case EventPeerStreamStarted:
		return "PEER_STREAM_STARTED"
	case EventLocalAddressChanged:
		return "LOCAL_ADDRESS_CHANGED"
	case EventStreamsAvailable:
		return "STREAMS_AVAILABLE"
	case EventDatagramStateChanged:
		return "DATAGRAM_STATE_CHANGED"
	case EventResumed:
		return "RESUMED"
	default:
		return fmt.Sprintf("EVENT(%d)", uint32(t))
	}
}

// Event is a connection event. Only the sub-struct matching Type is
// populated.
type Event struct {
	Type EventType

	Connected                    ConnectedEvent
	ShutdownInitiatedByTransport TransportShutdownEvent
	ShutdownInitiatedByPeer      PeerShutdownEvent
	ShutdownComplete             ShutdownCompleteEvent
	PeerAddressChanged           PeerAddressChangedEvent
	PeerStreamStarted            PeerStreamStartedEvent
}

// ConnectedEvent carries handshake-completion details.
type ConnectedEvent struct {
	SessionResumed bool
	NegotiatedALPN string
}

// TransportShutdownEvent carries the status the transport closed with.
type TransportShutdownEvent struct {
	Status    Status
	ErrorCode uint64
}

// PeerShutdownEvent carries the application error code the peer closed
// with. Error codes are 62-bit QUIC variable-length integers.
type PeerShutdownEvent struct {
	ErrorCode uint64
}

// ShutdownCompleteEvent reports how the shutdown ended.
type ShutdownCompleteEvent struct {
	// PeerAcknowledged is false when the shutdown timed out without the
	// peer confirming it.
	PeerAcknowledged   bool
	HandshakeCompleted bool
}

// PeerAddressChangedEvent carries the peer's new address.
type PeerAddressChangedEvent struct {
	Addr Addr
}

// PeerStreamStartedEvent carries the handle of a peer-opened stream.
type PeerStreamStartedEvent struct {
	Stream Stream
	Flags  StreamOpenFlags
}

// EventHandler receives connection events on the driver's event
// goroutine. The returned status is reported back to the driver;
// handlers must not block on waitables the connection's owner controls.
type EventHandler func(event *Event) Status

// StreamEventType enumerates stream events.
type StreamEventType uint32

const (
	StreamEventStartComplete StreamEventType = iota
	StreamEventReceive
	StreamEventSendComplete
	StreamEventPeerSendShutdown
	StreamEventPeerSendAborted
	StreamEventShutdownComplete
)

func (t StreamEventType) String() string {
	switch t {
	case StreamEventStartComplete:
		return "START_COMPLETE"
	case StreamEventReceive:
		return "RECEIVE"
	case StreamEventSendComplete:
		return "SEND_COMPLETE"
	case StreamEventPeerSendShutdown:
		return "PEER_SEND_SHUTDOWN"
	case StreamEventPeerSendAborted:
		return "PEER_SEND_ABORTED"
	case StreamEventShutdownComplete:
		return "STREAM_SHUTDOWN_COMPLETE"
	default:
		return fmt.Sprintf("STREAM_EVENT(%d)", uint32(t))
	}
}

// StreamEvent is a stream event. Only the sub-struct matching Type is
// populated.
type StreamEvent struct {
	Type StreamEventType

	StartComplete    StreamStartCompleteEvent
	PeerSendAborted  StreamPeerSendAbortedEvent
	ShutdownComplete StreamShutdownCompleteEvent
}

// StreamStartCompleteEvent reports the outcome of Start and the
// stream's assigned ID.
type StreamStartCompleteEvent struct {
	Status Status
	ID     uint64
}

// StreamPeerSendAbortedEvent carries the peer's abort error code.
type StreamPeerSendAbortedEvent struct {
	ErrorCode uint64
}

// StreamShutdownCompleteEvent is the stream's terminal event.
type StreamShutdownCompleteEvent struct {
	// ConnectionShutdown is true when the stream went down because the
	// whole connection did.
	ConnectionShutdown bool
}

// StreamEventHandler receives stream events on the driver's event
// goroutine.
type StreamEventHandler func(event *StreamEvent) Status
