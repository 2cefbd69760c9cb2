package harness

import "time"

// WaitForConnectionComplete blocks until the handshake completes or the
// connection dies first, whichever comes first. Returns false and
// reports a failure on timeout.
func (c *Connection) WaitForConnectionComplete() bool {
	if !c.connectionComplete.WaitTimeout(c.settings.WaitTimeout) {
		c.failer.Failf("WaitForConnectionComplete timed out after %v.", c.settings.WaitTimeout)
		return false
	}
	return true
}

// WaitForShutdownComplete blocks until the terminal event has been
// observed. A fixture that was never started has nothing to wait for
// and returns true immediately.
func (c *Connection) WaitForShutdownComplete() bool {
	if !c.IsStarted() {
		return true
	}
	if !c.shutdownComplete.WaitTimeout(c.settings.WaitTimeout) {
		c.failer.Failf("WaitForShutdownComplete timed out after %v.", c.settings.WaitTimeout)
		return false
	}
	return true
}

// WaitForPeerClose blocks until the peer application closes the
// connection. Returns false and reports a failure on timeout.
func (c *Connection) WaitForPeerClose() bool {
	if !c.peerClosedSignal.WaitTimeout(c.settings.WaitTimeout) {
		c.failer.Failf("WaitForPeerClose timed out after %v.", c.settings.WaitTimeout)
		return false
	}
	return true
}

// WaitForZeroRttTicket polls for a resumption ticket. The stack raises
// no event when a ticket arrives, so the fixture probes the parameter
// API instead, up to the configured attempt count with a sleep between
// attempts.
func (c *Connection) WaitForZeroRttTicket() bool {
	for try := 0; try < c.settings.TicketPollAttempts; try++ {
		if c.HasNewZeroRttTicket() {
			return true
		}
		time.Sleep(c.settings.TicketPollInterval)
	}
	c.failer.Failf("WaitForZeroRttTicket failed after %d attempts.", c.settings.TicketPollAttempts)
	return false
}
