// Package quic defines the contract between the connection test harness
// and an underlying QUIC implementation. The harness treats the stack as
// an opaque provider of connection handles, an untyped parameter API and
// an event callback; any driver satisfying these interfaces can sit
// underneath it.
package quic

import (
	"fmt"
	"net"
)

// AddressFamily selects the IP version used when starting a connection.
type AddressFamily uint16

const (
	AddressFamilyUnspec AddressFamily = iota
	AddressFamilyIPv4
	AddressFamilyIPv6
)

func (f AddressFamily) String() string {
	switch f {
	case AddressFamilyUnspec:
		return "unspec"
	case AddressFamilyIPv4:
		return "ipv4"
	case AddressFamilyIPv6:
		return "ipv6"
	default:
		return fmt.Sprintf("family(%d)", uint16(f))
	}
}

// Addr is the socket address shape used by the local/remote address
// parameters.
type Addr struct {
	IP   net.IP
	Port uint16
}

// Family reports the address family implied by the IP field.
func (a Addr) Family() AddressFamily {
	switch {
	case a.IP == nil:
		return AddressFamilyUnspec
	case a.IP.To4() != nil:
		return AddressFamilyIPv4
	default:
		return AddressFamilyIPv6
	}
}

// Equal reports whether two addresses carry the same IP and port.
func (a Addr) Equal(other Addr) bool {
	return a.Port == other.Port && a.IP.Equal(other.IP)
}

func (a Addr) String() string {
	host := ""
	if a.IP != nil {
		host = a.IP.String()
	}
	return net.JoinHostPort(host, fmt.Sprintf("%d", a.Port))
}

// ShutdownFlags modifies ConnectionShutdown behavior.
type ShutdownFlags uint32

const (
	ShutdownNone ShutdownFlags = 0
	// ShutdownSilent tears the connection down without informing the peer.
	ShutdownSilent ShutdownFlags = 1 << 0
)

// StreamOpenFlags modifies StreamOpen behavior.
type StreamOpenFlags uint32

const (
	StreamOpenNone           StreamOpenFlags = 0
	StreamOpenUnidirectional StreamOpenFlags = 1 << 0
	StreamOpenZeroRTT        StreamOpenFlags = 1 << 1
)

// StreamStartFlags modifies stream Start behavior.
type StreamStartFlags uint32

const (
	StreamStartNone StreamStartFlags = 0
	// StreamStartImmediate informs the peer of the stream before any data
	// is queued on it.
	StreamStartImmediate StreamStartFlags = 1 << 0
)

// StreamShutdownFlags selects which directions of a stream to shut down
// and how.
type StreamShutdownFlags uint32

const (
	StreamShutdownGraceful     StreamShutdownFlags = 1 << 0
	StreamShutdownAbortSend    StreamShutdownFlags = 1 << 1
	StreamShutdownAbortReceive StreamShutdownFlags = 1 << 2
	StreamShutdownAbort                            = StreamShutdownAbortSend | StreamShutdownAbortReceive
)

// Registration is the parent handle connections are opened against.
type Registration interface {
	// ConnectionOpen allocates a new, unstarted connection whose events
	// will be delivered to handler on the driver's event goroutine.
	ConnectionOpen(handler EventHandler) (Connection, Status)
}

// Connection is a single QUIC connection handle. The driver guarantees
// at most one event callback in flight per connection; all other
// methods may be called from any goroutine.
type Connection interface {
	// SetHandler replaces the event handler. Used for handles accepted
	// by a listener, which arrive without one installed.
	SetHandler(handler EventHandler)

	// Start begins the client handshake toward serverName:port. The port
	// is in host byte order.
	Start(family AddressFamily, serverName string, port uint16) Status

	// Shutdown begins closing the connection with an application error
	// code. Completion is reported via the ShutdownComplete event.
	Shutdown(flags ShutdownFlags, errorCode uint64)

	// Close releases the handle. No events are delivered afterwards.
	// Closing an already-closed handle is a no-op.
	Close()

	// SetParam writes a connection parameter. value must be the typed
	// representation the key expects; payloadless operations pass nil.
	SetParam(key ParamKey, value any) Status

	// GetParam reads a connection parameter into value, which must be a
	// pointer to the key's typed representation. A nil value performs a
	// zero-sized query: StatusBufferTooSmall indicates the parameter has
	// data available.
	GetParam(key ParamKey, value any) Status

	// StreamOpen allocates a new local stream on the connection.
	StreamOpen(flags StreamOpenFlags, handler StreamEventHandler) (Stream, Status)
}

// Stream is a single QUIC stream handle.
type Stream interface {
	// SetHandler replaces the stream event handler. Used for handles
	// delivered by PeerStreamStarted, which arrive without one.
	SetHandler(handler StreamEventHandler)

	Start(flags StreamStartFlags) Status
	Shutdown(flags StreamShutdownFlags, errorCode uint64) Status

	// Close releases the stream handle. Idempotent.
	Close()
}
