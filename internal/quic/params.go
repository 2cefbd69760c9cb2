package quic

import (
	"crypto/tls"
	"fmt"
	"time"
)

// ParamKey identifies a connection parameter in the untyped get/set
// API. The comment on each key names the typed representation SetParam
// expects and GetParam fills.
type ParamKey uint32

const (
	// ParamQUICVersion is the negotiated protocol version. uint32.
	ParamQUICVersion ParamKey = iota
	// ParamLocalAddress is the local socket address. Addr. Setting it
	// after the handshake migrates the connection; this is only allowed
	// once the handshake is confirmed.
	ParamLocalAddress
	// ParamRemoteAddress is the peer's socket address. Addr.
	ParamRemoteAddress
	// ParamIdleTimeout is the idle timeout in milliseconds. uint64.
	ParamIdleTimeout
	// ParamDisconnectTimeout is the disconnect timeout in milliseconds.
	// uint32.
	ParamDisconnectTimeout
	// ParamPeerBidiStreamCount is the number of bidirectional streams
	// the peer is allowed to open. uint16.
	ParamPeerBidiStreamCount
	// ParamPeerUnidiStreamCount is the number of unidirectional streams
	// the peer is allowed to open. uint16.
	ParamPeerUnidiStreamCount
	// ParamLocalBidiStreamCount is the number of bidirectional streams
	// the local endpoint may open. uint16. Get-only.
	ParamLocalBidiStreamCount
	// ParamLocalUnidiStreamCount is the number of unidirectional streams
	// the local endpoint may open. uint16. Get-only.
	ParamLocalUnidiStreamCount
	// ParamStatistics is the connection statistics snapshot. Statistics.
	// Get-only.
	ParamStatistics
	// ParamCertValidationFlags controls certificate chain validation.
	// CertValidationFlags.
	ParamCertValidationFlags
	// ParamKeepAlive is the keep-alive ping interval in milliseconds.
	// uint32. Zero disables keep-alives.
	ParamKeepAlive
	// ParamShareUDPBinding allows multiple connections to share one UDP
	// socket. bool.
	ParamShareUDPBinding
	// ParamStreamSchedulingScheme selects how queued streams share the
	// send path. StreamSchedulingScheme.
	ParamStreamSchedulingScheme
	// ParamSecurityConfig installs the TLS credentials used to respond
	// to the handshake. *SecurityConfig. Set-only.
	ParamSecurityConfig
	// ParamTestTransportParameter injects a private transport parameter
	// into the handshake. PrivateTransportParameter. Set-only.
	ParamTestTransportParameter
	// ParamSendBuffering enables internal buffering of send data. bool.
	ParamSendBuffering
	// ParamForceKeyUpdate triggers a 1-RTT key rotation. Payloadless;
	// only valid once the handshake is confirmed.
	ParamForceKeyUpdate
	// ParamForceCIDUpdate retires the current connection ID. Payloadless;
	// only valid once the handshake is confirmed.
	ParamForceCIDUpdate
	// ParamResumptionState is the serialized resumption ticket. []byte.
	// A zero-sized query answers StatusBufferTooSmall once a ticket has
	// been received.
	ParamResumptionState
)

func (k ParamKey) String() string {
	switch k {
	case ParamQUICVersion:
		return "QUIC_VERSION"
	case ParamLocalAddress:
		return "LOCAL_ADDRESS"
	case ParamRemoteAddress:
		return "REMOTE_ADDRESS"
	case ParamIdleTimeout:
		return "IDLE_TIMEOUT"
	case ParamDisconnectTimeout:
		return "DISCONNECT_TIMEOUT"
	case ParamPeerBidiStreamCount:
		return "PEER_BIDI_STREAM_COUNT"
	case ParamPeerUnidiStreamCount:
		return "PEER_UNIDI_STREAM_COUNT"
	case ParamLocalBidiStreamCount:
		return "LOCAL_BIDI_STREAM_COUNT"
	case ParamLocalUnidiStreamCount:
		return "LOCAL_UNIDI_STREAM_COUNT"
	case ParamStatistics:
		return "STATISTICS"
	case ParamCertValidationFlags:
		return "CERT_VALIDATION_FLAGS"
	case ParamKeepAlive:
		return "KEEP_ALIVE"
	case ParamShareUDPBinding:
		return "SHARE_UDP_BINDING"
	case ParamStreamSchedulingScheme:
		return "STREAM_SCHEDULING_SCHEME"
	case ParamSecurityConfig:
		return "SEC_CONFIG"
	case ParamTestTransportParameter:
		return "TEST_TRANSPORT_PARAMETER"
	case ParamSendBuffering:
		return "SEND_BUFFERING"
	case ParamForceKeyUpdate:
		return "FORCE_KEY_UPDATE"
	case ParamForceCIDUpdate:
		return "FORCE_CID_UPDATE"
	case ParamResumptionState:
		return "RESUMPTION_STATE"
	default:
		return fmt.Sprintf("PARAM(%d)", uint32(k))
	}
}

// CertValidationFlags relaxes certificate chain validation. Test
// deployments use self-signed certificates, so fixtures default to
// ignoring an unknown CA and a mismatched common name.
type CertValidationFlags uint32

const (
	CertFlagIgnoreUnknownCA      CertValidationFlags = 1 << 0
	CertFlagIgnoreCertCNInvalid  CertValidationFlags = 1 << 1
	CertFlagIgnoreCertExpiration CertValidationFlags = 1 << 2
)

// StreamSchedulingScheme selects how queued streams share the send path.
type StreamSchedulingScheme uint32

const (
	SchedulingFIFO StreamSchedulingScheme = iota
	SchedulingRoundRobin
)

func (s StreamSchedulingScheme) String() string {
	switch s {
	case SchedulingFIFO:
		return "fifo"
	case SchedulingRoundRobin:
		return "round-robin"
	default:
		return fmt.Sprintf("scheme(%d)", uint32(s))
	}
}

// SecurityConfig carries the TLS credentials a connection responds to
// the handshake with. Opaque to the harness; only the driver looks
// inside.
type SecurityConfig struct {
	Certificate tls.Certificate
}

// NewSecurityConfig wraps a certificate for use with
// ParamSecurityConfig.
func NewSecurityConfig(cert tls.Certificate) *SecurityConfig {
	return &SecurityConfig{Certificate: cert}
}

// PrivateTransportParameter is a raw transport parameter injected into
// the handshake, used to exercise the peer's handling of unknown
// parameters.
type PrivateTransportParameter struct {
	Type  uint16
	Value []byte
}

// Statistics is a point-in-time snapshot of connection counters.
type Statistics struct {
	CorrelationID uint64

	VersionNegotiation  bool
	StatelessRetry      bool
	ResumptionAttempted bool
	ResumptionSucceeded bool

	Rtt time.Duration

	SendTotalPackets           uint64
	SendRetransmittablePackets uint64
	SendSuspectedLostPackets   uint64
	SendSpuriousLostPackets    uint64
	SendTotalBytes             uint64

	RecvTotalPackets     uint64
	RecvReorderedPackets uint64
	RecvDroppedPackets   uint64
	RecvDuplicatePackets uint64
	RecvTotalBytes       uint64

	KeyUpdateCount uint32
}
