package harness

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/quicharness/internal/quic"
	"example.com/quicharness/internal/quic/fake"
	"example.com/quicharness/internal/testutil"
)

func TestParamRoundTrips(t *testing.T) {
	c, _, failer := newClientFixture(t, nil)

	require.Equal(t, quic.StatusSuccess, c.SetQuicVersion(2))
	assert.Equal(t, uint32(2), c.GetQuicVersion())

	require.Equal(t, quic.StatusSuccess, c.SetIdleTimeout(60000))
	assert.Equal(t, uint64(60000), c.GetIdleTimeout())

	require.Equal(t, quic.StatusSuccess, c.SetDisconnectTimeout(5000))
	assert.Equal(t, uint32(5000), c.GetDisconnectTimeout())

	require.Equal(t, quic.StatusSuccess, c.SetPeerBidiStreamCount(100))
	assert.Equal(t, uint16(100), c.GetPeerBidiStreamCount())

	require.Equal(t, quic.StatusSuccess, c.SetPeerUnidiStreamCount(3))
	assert.Equal(t, uint16(3), c.GetPeerUnidiStreamCount())

	require.Equal(t, quic.StatusSuccess, c.SetKeepAlive(15000))
	assert.Equal(t, uint32(15000), c.GetKeepAlive())

	require.Equal(t, quic.StatusSuccess, c.SetShareUdpBinding(true))
	assert.True(t, c.GetShareUdpBinding())

	require.Equal(t, quic.StatusSuccess, c.SetPriorityScheme(quic.SchedulingRoundRobin))
	assert.Equal(t, quic.SchedulingRoundRobin, c.GetPriorityScheme())

	assert.Empty(t, failer.all())
}

func TestGetterFailureReportsAndReturnsZero(t *testing.T) {
	c, handle, failer := newClientFixture(t, nil)

	handle.FailGetParam(quic.ParamIdleTimeout, quic.StatusInternalError)
	assert.Equal(t, uint64(0), c.GetIdleTimeout())

	failures := failer.all()
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "GetParam(IDLE_TIMEOUT) failed")
}

func TestAddrAccessorsReturnStatus(t *testing.T) {
	c, handle, failer := newClientFixture(t, nil)

	require.Equal(t, quic.StatusSuccess, c.Start(quic.AddressFamilyUnspec, "localhost", 4433))

	remote, status := c.GetRemoteAddr()
	require.Equal(t, quic.StatusSuccess, status)
	assert.Equal(t, uint16(4433), remote.Port)

	// Address getters surface the status instead of reporting a test
	// failure; callers decide what a failure means.
	handle.FailGetParam(quic.ParamLocalAddress, quic.StatusInternalError)
	_, status = c.GetLocalAddr()
	assert.Equal(t, quic.StatusInternalError, status)
	assert.Empty(t, failer.all())
}

func TestSetLocalAddrRetriesInvalidState(t *testing.T) {
	c, handle, failer := newClientFixture(t, nil)

	handle.FailSetParam(quic.ParamLocalAddress, quic.StatusInvalidState, quic.StatusInvalidState)

	addr := quic.Addr{IP: net.IPv4(127, 0, 0, 1), Port: 5555}
	start := time.Now()
	status := c.SetLocalAddr(addr)
	elapsed := time.Since(start)

	require.Equal(t, quic.StatusSuccess, status)
	// Two scripted invalid-state answers mean two retry sleeps.
	assert.GreaterOrEqual(t, elapsed, 2*testSettings().Retry.Interval)

	got, status := c.GetLocalAddr()
	require.Equal(t, quic.StatusSuccess, status)
	assert.True(t, got.Equal(addr))
	assert.Empty(t, failer.all())
}

func TestForceKeyUpdateRetriesThenSucceeds(t *testing.T) {
	c, handle, failer := newClientFixture(t, nil)

	handle.FailSetParam(quic.ParamForceKeyUpdate, quic.StatusInvalidState, quic.StatusInvalidState)

	start := time.Now()
	status := c.ForceKeyUpdate()
	elapsed := time.Since(start)

	require.Equal(t, quic.StatusSuccess, status)
	assert.GreaterOrEqual(t, elapsed, 2*testSettings().Retry.Interval)
	assert.Equal(t, uint32(1), c.GetStatistics().KeyUpdateCount)
	assert.Empty(t, failer.all())
}

func TestForceKeyUpdateRetriesExhausted(t *testing.T) {
	c, handle, _ := newClientFixture(t, nil)

	// One more invalid-state answer than the retry budget.
	handle.FailSetParam(quic.ParamForceKeyUpdate,
		quic.StatusInvalidState, quic.StatusInvalidState,
		quic.StatusInvalidState, quic.StatusInvalidState)

	assert.Equal(t, quic.StatusInvalidState, c.ForceKeyUpdate())
	assert.Equal(t, uint32(0), c.GetStatistics().KeyUpdateCount)
}

func TestForceKeyUpdateNonRetryableStatus(t *testing.T) {
	c, handle, _ := newClientFixture(t, nil)

	handle.FailSetParam(quic.ParamForceKeyUpdate, quic.StatusInternalError)

	// Anything but invalid-state surfaces immediately, no retries.
	start := time.Now()
	assert.Equal(t, quic.StatusInternalError, c.ForceKeyUpdate())
	assert.Less(t, time.Since(start), testSettings().Retry.Interval)
}

func TestForceCidUpdate(t *testing.T) {
	c, handle, failer := newClientFixture(t, nil)

	handle.FailSetParam(quic.ParamForceCIDUpdate, quic.StatusInvalidState)
	assert.Equal(t, quic.StatusSuccess, c.ForceCidUpdate())
	assert.Empty(t, failer.all())
}

func TestSetSecurityConfig(t *testing.T) {
	c, _, failer := newServerFixture(t, nil)

	cert, err := testutil.GenerateSelfSignedCert("localhost")
	require.NoError(t, err)

	assert.Equal(t, quic.StatusSuccess, c.SetSecurityConfig(quic.NewSecurityConfig(cert)))
	assert.Empty(t, failer.all())
}

func TestSetTestTransportParameter(t *testing.T) {
	c, _, failer := newClientFixture(t, nil)

	param := quic.PrivateTransportParameter{Type: 0x1f00, Value: []byte{1, 2, 3}}
	assert.Equal(t, quic.StatusSuccess, c.SetTestTransportParameter(param))
	assert.Empty(t, failer.all())
}

func TestHasNewZeroRttTicket(t *testing.T) {
	c, handle, failer := newClientFixture(t, nil)

	assert.False(t, c.HasNewZeroRttTicket())

	handle.ArmResumptionTicket([]byte("ticket"))
	assert.True(t, c.HasNewZeroRttTicket())
	assert.Empty(t, failer.all())
}

func TestParamsOnFixtureWithoutHandle(t *testing.T) {
	failer := &recordingFailer{}
	reg := fake.NewRegistration(nil)
	reg.FailConnectionOpen(quic.StatusOutOfMemory)
	c := NewClient(reg, nil, WithFailer(failer), WithSettings(testSettings()))
	defer c.Close()

	assert.Equal(t, quic.StatusInvalidState, c.SetIdleTimeout(1000))
	assert.Equal(t, quic.StatusInvalidState, c.ForceKeyUpdate())
	_, status := c.GetLocalAddr()
	assert.Equal(t, quic.StatusInvalidState, status)
	assert.False(t, c.HasNewZeroRttTicket())
}

func TestLocalStreamCountsGetOnly(t *testing.T) {
	c, _, failer := newClientFixture(t, nil)

	assert.Equal(t, uint16(0), c.GetLocalBidiStreamCount())
	assert.Equal(t, uint16(0), c.GetLocalUnidiStreamCount())
	assert.Empty(t, failer.all())
}
