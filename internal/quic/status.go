package quic

import "fmt"

// Status is the result code surfaced by every driver call. Values pass
// through the harness unchanged; only StatusInvalidState receives
// special treatment (the post-handshake retry discipline).
type Status uint32

const (
	StatusSuccess Status = iota
	StatusPending
	StatusOutOfMemory
	StatusInvalidParameter
	// StatusInvalidState indicates the operation is not allowed in the
	// connection's current state. Setting the local address and forcing
	// key/CID updates legitimately return this during the narrow window
	// between handshake completion and handshake confirmation.
	StatusInvalidState
	StatusNotSupported
	StatusNotFound
	// StatusBufferTooSmall doubles as the "data available" answer to a
	// zero-sized GetParam query.
	StatusBufferTooSmall
	StatusHandshakeFailure
	StatusAborted
	StatusAddressInUse
	StatusConnectionTimeout
	StatusConnectionIdle
	StatusInternalError
	StatusConnectionRefused
	StatusProtocolError
	StatusVersionNegotiationError
	StatusUnreachable
	StatusUserCanceled
	StatusALPNNegotiationFailure
)

// Failed reports whether s represents a failure. StatusPending counts
// as success: the operation was accepted and will complete later.
func (s Status) Failed() bool {
	return s != StatusSuccess && s != StatusPending
}

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusPending:
		return "pending"
	case StatusOutOfMemory:
		return "out of memory"
	case StatusInvalidParameter:
		return "invalid parameter"
	case StatusInvalidState:
		return "invalid state"
	case StatusNotSupported:
		return "not supported"
	case StatusNotFound:
		return "not found"
	case StatusBufferTooSmall:
		return "buffer too small"
	case StatusHandshakeFailure:
		return "handshake failure"
	case StatusAborted:
		return "aborted"
	case StatusAddressInUse:
		return "address in use"
	case StatusConnectionTimeout:
		return "connection timeout"
	case StatusConnectionIdle:
		return "connection idle"
	case StatusInternalError:
		return "internal error"
	case StatusConnectionRefused:
		return "connection refused"
	case StatusProtocolError:
		return "protocol error"
	case StatusVersionNegotiationError:
		return "version negotiation error"
	case StatusUnreachable:
		return "unreachable"
	case StatusUserCanceled:
		return "user canceled"
	case StatusALPNNegotiationFailure:
		return "alpn negotiation failure"
	default:
		return fmt.Sprintf("status(%d)", uint32(s))
	}
}
