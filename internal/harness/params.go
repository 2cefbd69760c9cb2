package harness

import (
	"time"

	"example.com/quicharness/internal/quic"
)

// getParam is the shared getter shape: read the parameter into a typed
// slot; on failure report through the failer and return the typed zero
// value.
func getParam[T any](c *Connection, key quic.ParamKey) T {
	var value T
	if c.conn == nil {
		c.failer.Failf("GetParam(%v) on a fixture with no handle.", key)
		return value
	}
	if status := c.conn.GetParam(key, &value); status.Failed() {
		c.failer.Failf("GetParam(%v) failed, %v.", key, status)
		var zero T
		return zero
	}
	return value
}

func (c *Connection) setParam(key quic.ParamKey, value interface{}) quic.Status {
	if c.conn == nil {
		return quic.StatusInvalidState
	}
	return c.conn.SetParam(key, value)
}

// setParamRetry applies the retry policy: as long as the stack answers
// invalid-state, the call is retried up to the configured number of
// additional attempts with a sleep in between. Any other status,
// success included, is surfaced immediately.
func (c *Connection) setParamRetry(key quic.ParamKey, value interface{}) quic.Status {
	if c.conn == nil {
		return quic.StatusInvalidState
	}
	status := c.conn.SetParam(key, value)
	for try := 0; status == quic.StatusInvalidState && try < c.settings.Retry.MaxRetries; try++ {
		time.Sleep(c.settings.Retry.Interval)
		status = c.conn.SetParam(key, value)
	}
	return status
}

// GetQuicVersion returns the negotiated protocol version.
func (c *Connection) GetQuicVersion() uint32 {
	return getParam[uint32](c, quic.ParamQUICVersion)
}

// SetQuicVersion pins the protocol version to negotiate.
func (c *Connection) SetQuicVersion(value uint32) quic.Status {
	return c.setParam(quic.ParamQUICVersion, value)
}

// GetLocalAddr returns the local socket address.
func (c *Connection) GetLocalAddr() (quic.Addr, quic.Status) {
	var addr quic.Addr
	if c.conn == nil {
		return addr, quic.StatusInvalidState
	}
	status := c.conn.GetParam(quic.ParamLocalAddress, &addr)
	return addr, status
}

// SetLocalAddr rebinds the connection to a new local address. A client
// is not allowed to change address until the handshake is confirmed,
// which can lag the connected milestone, so the retry policy applies.
func (c *Connection) SetLocalAddr(addr quic.Addr) quic.Status {
	return c.setParamRetry(quic.ParamLocalAddress, addr)
}

// GetRemoteAddr returns the peer's socket address.
func (c *Connection) GetRemoteAddr() (quic.Addr, quic.Status) {
	var addr quic.Addr
	if c.conn == nil {
		return addr, quic.StatusInvalidState
	}
	status := c.conn.GetParam(quic.ParamRemoteAddress, &addr)
	return addr, status
}

// SetRemoteAddr overrides the peer address to connect to.
func (c *Connection) SetRemoteAddr(addr quic.Addr) quic.Status {
	return c.setParam(quic.ParamRemoteAddress, addr)
}

// GetIdleTimeout returns the idle timeout in milliseconds.
func (c *Connection) GetIdleTimeout() uint64 {
	return getParam[uint64](c, quic.ParamIdleTimeout)
}

// SetIdleTimeout sets the idle timeout in milliseconds.
func (c *Connection) SetIdleTimeout(valueMs uint64) quic.Status {
	return c.setParam(quic.ParamIdleTimeout, valueMs)
}

// GetDisconnectTimeout returns the disconnect timeout in milliseconds.
func (c *Connection) GetDisconnectTimeout() uint32 {
	return getParam[uint32](c, quic.ParamDisconnectTimeout)
}

// SetDisconnectTimeout sets the disconnect timeout in milliseconds.
func (c *Connection) SetDisconnectTimeout(valueMs uint32) quic.Status {
	return c.setParam(quic.ParamDisconnectTimeout, valueMs)
}

// GetPeerBidiStreamCount returns how many bidirectional streams the
// peer may open.
func (c *Connection) GetPeerBidiStreamCount() uint16 {
	return getParam[uint16](c, quic.ParamPeerBidiStreamCount)
}

// SetPeerBidiStreamCount sets how many bidirectional streams the peer
// may open.
func (c *Connection) SetPeerBidiStreamCount(value uint16) quic.Status {
	return c.setParam(quic.ParamPeerBidiStreamCount, value)
}

// GetPeerUnidiStreamCount returns how many unidirectional streams the
// peer may open.
func (c *Connection) GetPeerUnidiStreamCount() uint16 {
	return getParam[uint16](c, quic.ParamPeerUnidiStreamCount)
}

// SetPeerUnidiStreamCount sets how many unidirectional streams the peer
// may open.
func (c *Connection) SetPeerUnidiStreamCount(value uint16) quic.Status {
	return c.setParam(quic.ParamPeerUnidiStreamCount, value)
}

// GetLocalBidiStreamCount returns how many bidirectional streams the
// local endpoint may open.
func (c *Connection) GetLocalBidiStreamCount() uint16 {
	return getParam[uint16](c, quic.ParamLocalBidiStreamCount)
}

// GetLocalUnidiStreamCount returns how many unidirectional streams the
// local endpoint may open.
func (c *Connection) GetLocalUnidiStreamCount() uint16 {
	return getParam[uint16](c, quic.ParamLocalUnidiStreamCount)
}

// GetStatistics returns a snapshot of the connection counters.
func (c *Connection) GetStatistics() quic.Statistics {
	return getParam[quic.Statistics](c, quic.ParamStatistics)
}

// GetCertValidationFlags returns the certificate validation flags.
func (c *Connection) GetCertValidationFlags() quic.CertValidationFlags {
	return getParam[quic.CertValidationFlags](c, quic.ParamCertValidationFlags)
}

// SetCertValidationFlags overrides certificate chain validation.
func (c *Connection) SetCertValidationFlags(flags quic.CertValidationFlags) quic.Status {
	return c.setParam(quic.ParamCertValidationFlags, flags)
}

// GetKeepAlive returns the keep-alive interval in milliseconds.
func (c *Connection) GetKeepAlive() uint32 {
	return getParam[uint32](c, quic.ParamKeepAlive)
}

// SetKeepAlive sets the keep-alive interval in milliseconds. Zero
// disables keep-alives.
func (c *Connection) SetKeepAlive(valueMs uint32) quic.Status {
	return c.setParam(quic.ParamKeepAlive, valueMs)
}

// GetShareUdpBinding reports whether the connection shares its UDP
// socket.
func (c *Connection) GetShareUdpBinding() bool {
	return getParam[bool](c, quic.ParamShareUDPBinding)
}

// SetShareUdpBinding toggles UDP socket sharing.
func (c *Connection) SetShareUdpBinding(value bool) quic.Status {
	return c.setParam(quic.ParamShareUDPBinding, value)
}

// GetPriorityScheme returns the stream scheduling scheme.
func (c *Connection) GetPriorityScheme() quic.StreamSchedulingScheme {
	return getParam[quic.StreamSchedulingScheme](c, quic.ParamStreamSchedulingScheme)
}

// SetPriorityScheme selects the stream scheduling scheme.
func (c *Connection) SetPriorityScheme(scheme quic.StreamSchedulingScheme) quic.Status {
	return c.setParam(quic.ParamStreamSchedulingScheme, scheme)
}

// SetSecurityConfig installs the TLS credentials the connection
// responds to the handshake with.
func (c *Connection) SetSecurityConfig(sec *quic.SecurityConfig) quic.Status {
	return c.setParam(quic.ParamSecurityConfig, sec)
}

// SetTestTransportParameter injects a private transport parameter into
// the handshake.
func (c *Connection) SetTestTransportParameter(param quic.PrivateTransportParameter) quic.Status {
	return c.setParam(quic.ParamTestTransportParameter, param)
}

// ForceKeyUpdate triggers a 1-RTT key rotation. Only allowed once the
// handshake is confirmed, which can lag the connected milestone, so the
// retry policy applies.
func (c *Connection) ForceKeyUpdate() quic.Status {
	return c.setParamRetry(quic.ParamForceKeyUpdate, nil)
}

// ForceCidUpdate retires the current connection ID. Only allowed once
// the handshake is confirmed, so the retry policy applies.
func (c *Connection) ForceCidUpdate() quic.Status {
	return c.setParamRetry(quic.ParamForceCIDUpdate, nil)
}

// HasNewZeroRttTicket reports whether a resumption ticket is available,
// probed through a zero-sized resumption-state query.
func (c *Connection) HasNewZeroRttTicket() bool {
	if c.conn == nil {
		return false
	}
	return c.conn.GetParam(quic.ParamResumptionState, nil) == quic.StatusBufferTooSmall
}
