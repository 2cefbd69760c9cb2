// Package harness wraps a single QUIC connection in a synchronous
// facade for integration tests. The underlying stack delivers events on
// its own goroutine; the fixture translates them into waitable
// milestones and set-once state, exposes typed accessors over the
// untyped parameter API, and records expected-vs-actual terminal
// outcomes for later assertion.
package harness

import (
	"sync"

	"example.com/quicharness/internal/logger"
	"example.com/quicharness/internal/quic"
)

// NewStreamCallback is invoked inline from the event goroutine for each
// peer-started stream. The callback takes ownership of the stream
// handle.
type NewStreamCallback func(c *Connection, stream quic.Stream, flags quic.StreamOpenFlags)

// ShutdownCompleteCallback is invoked inline from the event goroutine
// when the connection reaches its terminal event, before the terminal
// sink is notified.
type ShutdownCompleteCallback func(c *Connection)

// TerminalSink is notified after the shutdown-complete event has been
// recorded and the user callback has run. The sink, not the dispatcher,
// decides whether to drop the last owning reference to the fixture.
type TerminalSink interface {
	ConnectionShutdownComplete(c *Connection)
}

// autoReleaseSink closes the fixture from inside the event goroutine.
// Fixtures using it must not be referenced by the test after
// shutdown-complete is observed.
type autoReleaseSink struct{}

func (autoReleaseSink) ConnectionShutdownComplete(c *Connection) { c.Close() }

// Connection owns one underlying QUIC connection handle from
// construction to Close. Two goroutines interact with it: the driver's
// event goroutine, which is the sole writer of connection state after
// construction, and the test goroutine, which configures expectations,
// calls accessors and blocks in Wait* methods. State fields are
// set-once from their zero value and never cleared, so a field observed
// after its milestone signaled is stable.
type Connection struct {
	conn     quic.Connection
	log      *logger.Logger
	failer   Failer
	settings Settings

	isServer      bool
	useSendBuffer bool

	newStreamCallback NewStreamCallback

	mu                       sync.Mutex
	started                  bool
	connected                bool
	resumed                  bool
	peerAddrChanged          bool
	peerClosed               bool
	peerCloseErrorCode       uint64
	transportClosed          bool
	transportCloseStatus     quic.Status
	isShutdown               bool
	shutdownTimedOut         bool
	expectedResumed          bool
	expectedTransportStatus  quic.Status
	expectedPeerCloseErrCode uint64
	shutdownCompleteCallback ShutdownCompleteCallback
	context                  interface{}

	sink TerminalSink

	connectionComplete *signal
	peerClosedSignal   *signal
	shutdownComplete   *signal

	closeOnce sync.Once
	released  *signal
}

// Option configures a fixture at construction.
type Option func(*Connection)

// WithFailer installs the assertion sink. FailerFunc(t.Errorf) plugs a
// *testing.T in directly.
func WithFailer(f Failer) Option {
	return func(c *Connection) { c.failer = f }
}

// WithLogger installs a logger. Fixtures default to a no-op logger.
func WithLogger(log *logger.Logger) Option {
	return func(c *Connection) { c.log = log }
}

// WithSettings overrides the wait/retry tuning.
func WithSettings(s Settings) Option {
	return func(c *Connection) { c.settings = s }
}

// WithSendBuffer enables send buffering. Applied once at construction,
// client fixtures only.
func WithSendBuffer(enabled bool) Option {
	return func(c *Connection) { c.useSendBuffer = enabled }
}

// WithAutoRelease makes the fixture close itself from the event
// goroutine once the shutdown-complete event has been observed and the
// user callback has run. The caller must hold no reference to the
// fixture past that point.
func WithAutoRelease() Option {
	return func(c *Connection) { c.sink = autoReleaseSink{} }
}

// WithTerminalSink installs a custom sink notified on the terminal
// event. Overrides WithAutoRelease.
func WithTerminalSink(sink TerminalSink) Option {
	return func(c *Connection) { c.sink = sink }
}

// WithContext attaches an opaque user value, readable via Context.
func WithContext(ctx interface{}) Option {
	return func(c *Connection) { c.context = ctx }
}

func newConnection(newStream NewStreamCallback, server bool, opts []Option) *Connection {
	c := &Connection{
		isServer:                server,
		started:                 server,
		newStreamCallback:       newStream,
		expectedTransportStatus: quic.StatusSuccess,
		settings:                DefaultSettings(),
		connectionComplete:      newSignal(),
		peerClosedSignal:        newSignal(),
		shutdownComplete:        newSignal(),
		released:                newSignal(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.NewNop()
	}
	if c.failer == nil {
		c.failer = loggerFailer{log: c.log}
	}
	return c
}

// NewClient builds a client-side fixture by opening a fresh connection
// against the registration. The fixture is unstarted; call Start to
// begin the handshake. Construction failures are reported through the
// failer and leave the fixture with a nil handle; its operations then
// surface an invalid-state status.
func NewClient(reg quic.Registration, newStream NewStreamCallback, opts ...Option) *Connection {
	c := newConnection(newStream, false, opts)

	conn, status := reg.ConnectionOpen(c.handleEvent)
	if status.Failed() {
		c.failer.Failf("ConnectionOpen failed, %v.", status)
	} else {
		c.conn = conn
		if st := c.conn.SetParam(quic.ParamSendBuffering, c.useSendBuffer); st.Failed() {
			c.failer.Failf("SetParam(SEND_BUFFERING) failed, %v.", st)
		}
	}

	c.applyDefaultCertFlags()
	return c
}

// NewServer builds a server-side fixture around an already-accepted
// connection handle. The fixture counts as started immediately.
func NewServer(conn quic.Connection, newStream NewStreamCallback, opts ...Option) *Connection {
	c := newConnection(newStream, true, opts)

	if conn == nil {
		c.failer.Failf("Invalid handle passed into harness connection.")
	} else {
		c.conn = conn
		c.conn.SetHandler(c.handleEvent)
	}

	c.applyDefaultCertFlags()
	return c
}

// Test deployments use self-signed certificates, so the root cannot be
// validated. Tests may override with SetCertValidationFlags.
func (c *Connection) applyDefaultCertFlags() {
	if c.conn == nil {
		return
	}
	c.SetCertValidationFlags(quic.CertFlagIgnoreUnknownCA | quic.CertFlagIgnoreCertCNInvalid)
}

// Close releases the underlying handle. Idempotent; the handle is
// released exactly once regardless of how often Close is called or
// whether an auto-release sink already ran.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		if c.conn != nil {
			c.conn.Close()
		}
		c.released.Set()
		c.log.Debug("fixture closed", nil)
	})
}

// Released reports whether the underlying handle has been released.
// Useful as a weak observer for auto-release fixtures.
func (c *Connection) Released() bool {
	return c.released.IsSet()
}

// Start begins the client handshake. Marks the fixture started on
// success.
func (c *Connection) Start(family quic.AddressFamily, serverName string, port uint16) quic.Status {
	if c.conn == nil {
		return quic.StatusInvalidState
	}
	status := c.conn.Start(family, serverName, port)
	if !status.Failed() {
		c.mu.Lock()
		c.started = true
		c.mu.Unlock()
	}
	return status
}

// Shutdown begins closing the connection with an application error
// code. Completion is observed via WaitForShutdownComplete.
func (c *Connection) Shutdown(flags quic.ShutdownFlags, errorCode uint64) {
	if c.conn == nil {
		return
	}
	c.conn.Shutdown(flags, errorCode)
}

// NewStream allocates a local stream on the connection. Ownership of
// the returned stream transfers to the caller; the fixture keeps no
// reference to it.
func (c *Connection) NewStream(shutdownHandler StreamShutdownCallback, flags quic.StreamOpenFlags) (*Stream, quic.Status) {
	return streamFromConnection(c, shutdownHandler, flags)
}

// SetShutdownCompleteCallback installs a callback invoked inline on the
// terminal event, before the terminal sink.
func (c *Connection) SetShutdownCompleteCallback(cb ShutdownCompleteCallback) {
	c.mu.Lock()
	c.shutdownCompleteCallback = cb
	c.mu.Unlock()
}

// SetExpectedResumed declares that the handshake is expected to resume
// a previous session; a non-resumed Connected event then reports a
// failure.
func (c *Connection) SetExpectedResumed(expected bool) {
	c.mu.Lock()
	c.expectedResumed = expected
	c.mu.Unlock()
}

// SetExpectedTransportCloseStatus declares the status a transport-level
// close is expected to carry.
func (c *Connection) SetExpectedTransportCloseStatus(status quic.Status) {
	c.mu.Lock()
	c.expectedTransportStatus = status
	c.mu.Unlock()
}

// SetExpectedPeerCloseErrorCode declares the application error code a
// peer-initiated close is expected to carry.
func (c *Connection) SetExpectedPeerCloseErrorCode(code uint64) {
	c.mu.Lock()
	c.expectedPeerCloseErrCode = code
	c.mu.Unlock()
}

// Context returns the opaque user value attached at construction or via
// SetContext.
func (c *Connection) Context() interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.context
}

// SetContext replaces the opaque user value.
func (c *Connection) SetContext(ctx interface{}) {
	c.mu.Lock()
	c.context = ctx
	c.mu.Unlock()
}

// IsServer reports the fixture's role.
func (c *Connection) IsServer() bool { return c.isServer }

// IsStarted reports whether Start succeeded (clients) or the handle was
// accepted (servers).
func (c *Connection) IsStarted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

// IsConnected reports whether the handshake completed.
func (c *Connection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// IsResumed reports whether the handshake resumed a previous session.
func (c *Connection) IsResumed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resumed
}

// GetPeerAddrChanged reports whether the peer ever migrated. Sticky.
func (c *Connection) GetPeerAddrChanged() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peerAddrChanged
}

// GetPeerClosed reports whether the peer application closed the
// connection.
func (c *Connection) GetPeerClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peerClosed
}

// GetPeerCloseErrorCode returns the peer's close code. Valid only when
// GetPeerClosed reports true.
func (c *Connection) GetPeerCloseErrorCode() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peerCloseErrorCode
}

// GetTransportClosed reports whether the transport terminated the
// connection.
func (c *Connection) GetTransportClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transportClosed
}

// GetTransportCloseStatus returns the transport close status. Valid
// only when GetTransportClosed reports true.
func (c *Connection) GetTransportCloseStatus() quic.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transportCloseStatus
}

// IsShutdown reports whether the terminal event has been observed.
func (c *Connection) IsShutdown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isShutdown
}

// GetShutdownTimedOut reports whether shutdown completed without the
// peer acknowledging it.
func (c *Connection) GetShutdownTimedOut() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shutdownTimedOut
}

// handleEvent is the dispatcher: the sole writer of fixture state after
// construction. It runs on the driver's event goroutine, must not block
// on any waitable the fixture owns, and always reports success back to
// the stack, even after recording an expectation mismatch.
func (c *Connection) handleEvent(event *quic.Event) quic.Status {
	switch event.Type {

	case quic.EventConnected:
		c.mu.Lock()
		c.connected = true
		c.resumed = event.Connected.SessionResumed
		mismatch := c.expectedResumed && !c.resumed
		c.mu.Unlock()
		if mismatch {
			c.failer.Failf("Resumption was expected!")
		}
		c.log.Debug("connected", logger.LogFields{"resumed": event.Connected.SessionResumed})
		c.connectionComplete.Set()

	case quic.EventShutdownInitiatedByTransport:
		status := event.ShutdownInitiatedByTransport.Status
		c.mu.Lock()
		c.transportClosed = true
		c.transportCloseStatus = status
		mismatch := status != c.expectedTransportStatus
		c.mu.Unlock()
		if mismatch {
			c.failer.Failf("Unexpected transport close status, %v.", status)
		}
		c.log.Debug("transport shutdown", logger.LogFields{"status": status.String()})
		c.connectionComplete.Set()

	case quic.EventShutdownInitiatedByPeer:
		code := event.ShutdownInitiatedByPeer.ErrorCode
		c.mu.Lock()
		c.peerClosed = true
		c.peerCloseErrorCode = code
		mismatch := code != c.expectedPeerCloseErrCode
		c.mu.Unlock()
		if mismatch {
			c.failer.Failf("Unexpected peer close error code, %d.", code)
		}
		c.log.Debug("peer shutdown", logger.LogFields{"error_code": code})
		c.connectionComplete.Set()
		c.peerClosedSignal.Set()

	case quic.EventShutdownComplete:
		c.mu.Lock()
		c.isShutdown = true
		c.shutdownTimedOut = !event.ShutdownComplete.PeerAcknowledged
		cb := c.shutdownCompleteCallback
		sink := c.sink
		c.mu.Unlock()
		c.log.Debug("shutdown complete", logger.LogFields{"peer_acknowledged": event.ShutdownComplete.PeerAcknowledged})
		c.shutdownComplete.Set()
		if cb != nil {
			cb(c)
		}
		// The sink may release the fixture; no access past this point.
		if sink != nil {
			sink.ConnectionShutdownComplete(c)
		}

	case quic.EventPeerAddressChanged:
		c.mu.Lock()
		c.peerAddrChanged = true
		c.mu.Unlock()
		c.log.Debug("peer address changed", logger.LogFields{"addr": event.PeerAddressChanged.Addr.String()})

	case quic.EventPeerStreamStarted:
		stream := event.PeerStreamStarted.Stream
		if stream == nil {
			c.failer.Failf("Null stream handle in peer stream started event.")
			break
		}
		if c.newStreamCallback == nil {
			c.failer.Failf("Peer stream started with no new-stream callback configured.")
			stream.Close()
			break
		}
		c.newStreamCallback(c, stream, event.PeerStreamStarted.Flags)

	default:
		// Unrecognized events are accepted and ignored.
	}

	return quic.StatusSuccess
}
