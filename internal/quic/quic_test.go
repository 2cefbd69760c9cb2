package quic

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusFailed(t *testing.T) {
	assert.False(t, StatusSuccess.Failed())
	assert.False(t, StatusPending.Failed())
	assert.True(t, StatusInvalidState.Failed())
	assert.True(t, StatusConnectionTimeout.Failed())
}

func TestAddrFamily(t *testing.T) {
	assert.Equal(t, AddressFamilyUnspec, Addr{}.Family())
	assert.Equal(t, AddressFamilyIPv4, Addr{IP: net.IPv4(10, 0, 0, 1)}.Family())
	assert.Equal(t, AddressFamilyIPv6, Addr{IP: net.ParseIP("::1")}.Family())
}

func TestAddrEqual(t *testing.T) {
	a := Addr{IP: net.IPv4(127, 0, 0, 1), Port: 443}
	b := Addr{IP: net.ParseIP("127.0.0.1"), Port: 443}
	assert.True(t, a.Equal(b))

	b.Port = 444
	assert.False(t, a.Equal(b))
}

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "CONNECTED", EventConnected.String())
	assert.Equal(t, "SHUTDOWN_COMPLETE", EventShutdownComplete.String())
}
