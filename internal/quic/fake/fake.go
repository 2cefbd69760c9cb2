// Package fake is an in-memory driver implementing the quic contract.
// It stores parameters, lets tests script per-call failures and inject
// events, and serializes event delivery the way a real stack's event
// goroutine would. The harness tests and the demo runner sit on top of
// it.
package fake

import (
	"net"
	"reflect"
	"sync"

	"github.com/google/uuid"

	"example.com/quicharness/internal/logger"
	"example.com/quicharness/internal/quic"
)

// Registration is the parent handle fake connections are opened
// against.
type Registration struct {
	log *logger.Logger

	mu           sync.Mutex
	openFailures []quic.Status
	conns        []*Conn
}

// NewRegistration creates a registration. A nil logger is replaced by a
// no-op one.
func NewRegistration(log *logger.Logger) *Registration {
	if log == nil {
		log = logger.NewNop()
	}
	return &Registration{log: log}
}

// FailConnectionOpen scripts statuses for upcoming ConnectionOpen
// calls, consumed one per call.
func (r *Registration) FailConnectionOpen(statuses ...quic.Status) {
	r.mu.Lock()
	r.openFailures = append(r.openFailures, statuses...)
	r.mu.Unlock()
}

// ConnectionOpen implements quic.Registration.
func (r *Registration) ConnectionOpen(handler quic.EventHandler) (quic.Connection, quic.Status) {
	r.mu.Lock()
	if len(r.openFailures) > 0 {
		status := r.openFailures[0]
		r.openFailures = r.openFailures[1:]
		r.mu.Unlock()
		if status.Failed() {
			return nil, status
		}
	} else {
		r.mu.Unlock()
	}

	conn := newConn(r.log, handler, false)
	r.mu.Lock()
	r.conns = append(r.conns, conn)
	r.mu.Unlock()
	return conn, quic.StatusSuccess
}

// LastConn returns the most recently opened or accepted connection, or
// nil. Lets callers of ConnectionOpen-based constructors reach back to
// the fake handle for scripting.
func (r *Registration) LastConn() *Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.conns) == 0 {
		return nil
	}
	return r.conns[len(r.conns)-1]
}

// Accept fabricates an already-accepted server-side connection, the
// shape a listener would hand to a server fixture: no handler installed
// yet, handshake in progress.
func (r *Registration) Accept() *Conn {
	conn := newConn(r.log, nil, true)
	r.mu.Lock()
	r.conns = append(r.conns, conn)
	r.mu.Unlock()
	return conn
}

// Conn is a single fake connection handle.
type Conn struct {
	id  uuid.UUID
	log *logger.Logger

	// dispatchMu serializes event delivery: at most one callback in
	// flight, as the contract requires.
	dispatchMu sync.Mutex

	mu                sync.Mutex
	handler           quic.EventHandler
	params            map[quic.ParamKey]interface{}
	setFailures       map[quic.ParamKey][]quic.Status
	getFailures       map[quic.ParamKey][]quic.Status
	startFailures     []quic.Status
	streamOpenStatus  []quic.Status
	streamStartScript []quic.Status
	started           bool
	closed            bool
	closeCount        int
	shutdownDelivered bool
	hasTicket         bool
	nextStreamID      uint64
	resumptionTicket  []byte
}

func newConn(log *logger.Logger, handler quic.EventHandler, accepted bool) *Conn {
	id := uuid.New()
	c := &Conn{
		id:      id,
		log:     log.With(logger.LogFields{"conn_id": id.String()}),
		handler: handler,
		started: accepted,
		params: map[quic.ParamKey]interface{}{
			quic.ParamQUICVersion:            uint32(1),
			quic.ParamLocalAddress:           quic.Addr{IP: loopback(), Port: 0},
			quic.ParamRemoteAddress:          quic.Addr{},
			quic.ParamIdleTimeout:            uint64(30000),
			quic.ParamDisconnectTimeout:      uint32(16000),
			quic.ParamPeerBidiStreamCount:    uint16(0),
			quic.ParamPeerUnidiStreamCount:   uint16(0),
			quic.ParamLocalBidiStreamCount:   uint16(0),
			quic.ParamLocalUnidiStreamCount:  uint16(0),
			quic.ParamStatistics:             quic.Statistics{},
			quic.ParamCertValidationFlags:    quic.CertValidationFlags(0),
			quic.ParamKeepAlive:              uint32(0),
			quic.ParamShareUDPBinding:        false,
			quic.ParamStreamSchedulingScheme: quic.SchedulingFIFO,
			quic.ParamSendBuffering:          false,
		},
		setFailures: make(map[quic.ParamKey][]quic.Status),
		getFailures: make(map[quic.ParamKey][]quic.Status),
	}
	if accepted {
		c.params[quic.ParamRemoteAddress] = quic.Addr{IP: loopback(), Port: 4433}
	}
	c.log.Debug("connection created", logger.LogFields{"accepted": accepted})
	return c
}

// ID returns the connection's identifier.
func (c *Conn) ID() uuid.UUID { return c.id }

// FailSetParam scripts statuses for upcoming SetParam calls on key,
// consumed one per call.
func (c *Conn) FailSetParam(key quic.ParamKey, statuses ...quic.Status) {
	c.mu.Lock()
	c.setFailures[key] = append(c.setFailures[key], statuses...)
	c.mu.Unlock()
}

// FailGetParam scripts statuses for upcoming GetParam calls on key.
func (c *Conn) FailGetParam(key quic.ParamKey, statuses ...quic.Status) {
	c.mu.Lock()
	c.getFailures[key] = append(c.getFailures[key], statuses...)
	c.mu.Unlock()
}

// FailStart scripts statuses for upcoming Start calls.
func (c *Conn) FailStart(statuses ...quic.Status) {
	c.mu.Lock()
	c.startFailures = append(c.startFailures, statuses...)
	c.mu.Unlock()
}

// FailStreamOpen scripts statuses for upcoming StreamOpen calls.
func (c *Conn) FailStreamOpen(statuses ...quic.Status) {
	c.mu.Lock()
	c.streamOpenStatus = append(c.streamOpenStatus, statuses...)
	c.mu.Unlock()
}

// FailStreamStart scripts Start statuses handed to the next stream
// opened on this connection.
func (c *Conn) FailStreamStart(statuses ...quic.Status) {
	c.mu.Lock()
	c.streamStartScript = append(c.streamStartScript, statuses...)
	c.mu.Unlock()
}

// ArmResumptionTicket makes the zero-sized resumption-state query
// answer buffer-too-small, the way a stack that received a ticket
// would.
func (c *Conn) ArmResumptionTicket(ticket []byte) {
	c.mu.Lock()
	c.hasTicket = true
	c.resumptionTicket = append([]byte(nil), ticket...)
	c.mu.Unlock()
}

// Started reports whether Start has been called (or the handle was
// accepted).
func (c *Conn) Started() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

// CloseCount reports how many times Close has been called. The handle
// must be released exactly once, so fixtures are expected to keep this
// at one.
func (c *Conn) CloseCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCount
}

// SetHandler implements quic.Connection.
func (c *Conn) SetHandler(handler quic.EventHandler) {
	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()
}

// Start implements quic.Connection.
func (c *Conn) Start(family quic.AddressFamily, serverName string, port uint16) quic.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return quic.StatusInvalidParameter
	}
	if len(c.startFailures) > 0 {
		status := c.startFailures[0]
		c.startFailures = c.startFailures[1:]
		if status.Failed() {
			return status
		}
	}
	c.started = true
	c.params[quic.ParamRemoteAddress] = quic.Addr{IP: loopback(), Port: port}
	c.log.Debug("connection started", logger.LogFields{
		"family": family.String(), "server_name": serverName, "port": port,
	})
	return quic.StatusSuccess
}

// Shutdown implements quic.Connection. The terminal event is delivered
// synchronously; a silent shutdown never hears from the peer.
func (c *Conn) Shutdown(flags quic.ShutdownFlags, errorCode uint64) {
	c.mu.Lock()
	if c.closed || c.shutdownDelivered {
		c.mu.Unlock()
		return
	}
	c.shutdownDelivered = true
	c.mu.Unlock()

	c.log.Debug("connection shutdown", logger.LogFields{
		"flags": uint32(flags), "error_code": errorCode,
	})
	c.deliver(&quic.Event{
		Type: quic.EventShutdownComplete,
		ShutdownComplete: quic.ShutdownCompleteEvent{
			PeerAcknowledged:   flags&quic.ShutdownSilent == 0,
			HandshakeCompleted: true,
		},
	})
}

// Close implements quic.Connection. Idempotent; the call count is
// tracked for release-exactly-once assertions.
func (c *Conn) Close() {
	c.mu.Lock()
	c.closeCount++
	alreadyClosed := c.closed
	c.closed = true
	c.mu.Unlock()
	if !alreadyClosed {
		c.log.Debug("connection closed", nil)
	}
}

// settableParamTypes is the typed representation SetParam accepts per
// key. Keys missing here are get-only.
var settableParamTypes = map[quic.ParamKey]reflect.Type{
	quic.ParamQUICVersion:            reflect.TypeOf(uint32(0)),
	quic.ParamLocalAddress:           reflect.TypeOf(quic.Addr{}),
	quic.ParamRemoteAddress:          reflect.TypeOf(quic.Addr{}),
	quic.ParamIdleTimeout:            reflect.TypeOf(uint64(0)),
	quic.ParamDisconnectTimeout:      reflect.TypeOf(uint32(0)),
	quic.ParamPeerBidiStreamCount:    reflect.TypeOf(uint16(0)),
	quic.ParamPeerUnidiStreamCount:   reflect.TypeOf(uint16(0)),
	quic.ParamCertValidationFlags:    reflect.TypeOf(quic.CertValidationFlags(0)),
	quic.ParamKeepAlive:              reflect.TypeOf(uint32(0)),
	quic.ParamShareUDPBinding:        reflect.TypeOf(false),
	quic.ParamStreamSchedulingScheme: reflect.TypeOf(quic.SchedulingFIFO),
	quic.ParamSecurityConfig:         reflect.TypeOf((*quic.SecurityConfig)(nil)),
	quic.ParamTestTransportParameter: reflect.TypeOf(quic.PrivateTransportParameter{}),
	quic.ParamSendBuffering:          reflect.TypeOf(false),
}

// setOnlyParams never answer GetParam.
var setOnlyParams = map[quic.ParamKey]bool{
	quic.ParamSecurityConfig:         true,
	quic.ParamTestTransportParameter: true,
	quic.ParamForceKeyUpdate:         true,
	quic.ParamForceCIDUpdate:         true,
}

// SetParam implements quic.Connection.
func (c *Conn) SetParam(key quic.ParamKey, value interface{}) quic.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return quic.StatusInvalidParameter
	}
	if status, ok := popScript(c.setFailures, key); ok {
		return status
	}

	switch key {
	case quic.ParamForceKeyUpdate:
		if value != nil {
			return quic.StatusInvalidParameter
		}
		stats := c.params[quic.ParamStatistics].(quic.Statistics)
		stats.KeyUpdateCount++
		c.params[quic.ParamStatistics] = stats
		return quic.StatusSuccess

	case quic.ParamForceCIDUpdate:
		if value != nil {
			return quic.StatusInvalidParameter
		}
		return quic.StatusSuccess
	}

	expected, ok := settableParamTypes[key]
	if !ok {
		return quic.StatusInvalidParameter
	}
	if value == nil || reflect.TypeOf(value) != expected {
		return quic.StatusInvalidParameter
	}
	c.params[key] = value
	return quic.StatusSuccess
}

// GetParam implements quic.Connection.
func (c *Conn) GetParam(key quic.ParamKey, value interface{}) quic.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return quic.StatusInvalidParameter
	}
	if status, ok := popScript(c.getFailures, key); ok {
		return status
	}
	if setOnlyParams[key] {
		return quic.StatusInvalidParameter
	}

	if key == quic.ParamResumptionState {
		if value == nil {
			// Zero-sized query: buffer-too-small means a ticket exists.
			if c.hasTicket {
				return quic.StatusBufferTooSmall
			}
			return quic.StatusNotFound
		}
		out, ok := value.(*[]byte)
		if !ok {
			return quic.StatusInvalidParameter
		}
		if !c.hasTicket {
			return quic.StatusNotFound
		}
		*out = append([]byte(nil), c.resumptionTicket...)
		return quic.StatusSuccess
	}

	stored, ok := c.params[key]
	if !ok {
		return quic.StatusNotFound
	}
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || rv.Kind() != reflect.Ptr || rv.IsNil() {
		return quic.StatusInvalidParameter
	}
	sv := reflect.ValueOf(stored)
	if !sv.Type().AssignableTo(rv.Elem().Type()) {
		return quic.StatusInvalidParameter
	}
	rv.Elem().Set(sv)
	return quic.StatusSuccess
}

// StreamOpen implements quic.Connection.
func (c *Conn) StreamOpen(flags quic.StreamOpenFlags, handler quic.StreamEventHandler) (quic.Stream, quic.Status) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, quic.StatusInvalidParameter
	}
	if len(c.streamOpenStatus) > 0 {
		status := c.streamOpenStatus[0]
		c.streamOpenStatus = c.streamOpenStatus[1:]
		if status.Failed() {
			c.mu.Unlock()
			return nil, status
		}
	}
	id := c.nextStreamID
	c.nextStreamID += 4
	startScript := c.streamStartScript
	c.streamStartScript = nil
	c.mu.Unlock()

	stream := newStream(c, id, flags, handler)
	stream.startFailures = startScript
	return stream, quic.StatusSuccess
}

// deliver pushes a connection event through the handler, holding the
// dispatch lock so at most one callback is in flight.
func (c *Conn) deliver(event *quic.Event) quic.Status {
	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()

	c.mu.Lock()
	handler := c.handler
	closed := c.closed
	c.mu.Unlock()

	if closed || handler == nil {
		return quic.StatusInvalidState
	}
	c.log.Debug("delivering event", logger.LogFields{"type": event.Type.String()})
	return handler(event)
}

// DeliverConnected injects a handshake-completion event.
func (c *Conn) DeliverConnected(sessionResumed bool) quic.Status {
	return c.deliver(&quic.Event{
		Type:      quic.EventConnected,
		Connected: quic.ConnectedEvent{SessionResumed: sessionResumed},
	})
}

// DeliverTransportShutdown injects a transport-initiated close.
func (c *Conn) DeliverTransportShutdown(status quic.Status, errorCode uint64) quic.Status {
	return c.deliver(&quic.Event{
		Type: quic.EventShutdownInitiatedByTransport,
		ShutdownInitiatedByTransport: quic.TransportShutdownEvent{
			Status:    status,
			ErrorCode: errorCode,
		},
	})
}

// DeliverPeerShutdown injects a peer application close.
func (c *Conn) DeliverPeerShutdown(errorCode uint64) quic.Status {
	return c.deliver(&quic.Event{
		Type:                    quic.EventShutdownInitiatedByPeer,
		ShutdownInitiatedByPeer: quic.PeerShutdownEvent{ErrorCode: errorCode},
	})
}

// DeliverShutdownComplete injects the terminal event directly; tests
// use it to model shutdowns the fixture did not initiate.
func (c *Conn) DeliverShutdownComplete(peerAcknowledged bool) quic.Status {
	c.mu.Lock()
	c.shutdownDelivered = true
	c.mu.Unlock()
	return c.deliver(&quic.Event{
		Type: quic.EventShutdownComplete,
		ShutdownComplete: quic.ShutdownCompleteEvent{
			PeerAcknowledged: peerAcknowledged,
		},
	})
}

// DeliverPeerAddressChanged injects a peer migration event.
func (c *Conn) DeliverPeerAddressChanged(addr quic.Addr) quic.Status {
	return c.deliver(&quic.Event{
		Type:               quic.EventPeerAddressChanged,
		PeerAddressChanged: quic.PeerAddressChangedEvent{Addr: addr},
	})
}

// DeliverPeerStreamStarted injects a peer-opened stream and returns its
// fake handle so tests can observe ownership.
func (c *Conn) DeliverPeerStreamStarted(flags quic.StreamOpenFlags) (*Stream, quic.Status) {
	c.mu.Lock()
	id := c.nextStreamID + 1
	c.nextStreamID += 4
	c.mu.Unlock()

	stream := newStream(c, id, flags, nil)
	status := c.deliver(&quic.Event{
		Type: quic.EventPeerStreamStarted,
		PeerStreamStarted: quic.PeerStreamStartedEvent{
			Stream: stream,
			Flags:  flags,
		},
	})
	return stream, status
}

// DeliverNilPeerStream injects a peer-stream event carrying no handle,
// which fixtures must fail-assert on.
func (c *Conn) DeliverNilPeerStream() quic.Status {
	return c.deliver(&quic.Event{Type: quic.EventPeerStreamStarted})
}

// DeliverUnknown injects an event kind the harness does not recognize.
func (c *Conn) DeliverUnknown() quic.Status {
	return c.deliver(&quic.Event{Type: quic.EventDatagramStateChanged})
}

func popScript(scripts map[quic.ParamKey][]quic.Status, key quic.ParamKey) (quic.Status, bool) {
	queue := scripts[key]
	if len(queue) == 0 {
		return quic.StatusSuccess, false
	}
	status := queue[0]
	scripts[key] = queue[1:]
	return status, true
}

func loopback() net.IP {
	return net.IPv4(127, 0, 0, 1)
}
