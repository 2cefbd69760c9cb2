package harness

import (
	"time"

	"example.com/quicharness/internal/config"
)

// RetryPolicy is the bounded-retry schedule applied to operations that
// can legitimately fail with an invalid-state status during the window
// between handshake completion and handshake confirmation: setting the
// local address, forcing a key update and forcing a CID update.
type RetryPolicy struct {
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int
	// Interval is the sleep before each retry.
	Interval time.Duration
}

// Settings tunes a fixture's waits and retries.
type Settings struct {
	// WaitTimeout bounds every Wait* call.
	WaitTimeout time.Duration
	// Retry is the post-handshake retry schedule.
	Retry RetryPolicy
	// TicketPollAttempts and TicketPollInterval shape the zero-RTT
	// ticket poll loop. The stack raises no event for ticket arrival,
	// so the fixture polls the resumption-state parameter instead.
	TicketPollAttempts int
	TicketPollInterval time.Duration
}

// DefaultSettings returns the tuning the fixture tests were written
// against: 2s waits, 3 retries at 100ms, 20 ticket polls at 100ms.
func DefaultSettings() Settings {
	return Settings{
		WaitTimeout: config.DefaultWaitTimeout,
		Retry: RetryPolicy{
			MaxRetries: config.DefaultRetryMaxAttempts,
			Interval:   config.DefaultRetryInterval,
		},
		TicketPollAttempts: config.DefaultTicketPollAttempts,
		TicketPollInterval: config.DefaultTicketPollInterval,
	}
}

// SettingsFromConfig converts a parsed harness configuration section
// into fixture settings.
func SettingsFromConfig(h *config.HarnessConfig) Settings {
	s := DefaultSettings()
	if h == nil {
		return s
	}
	if h.WaitTimeout != nil {
		s.WaitTimeout = h.WaitTimeoutDuration()
	}
	if h.RetryMaxAttempts != nil {
		s.Retry.MaxRetries = *h.RetryMaxAttempts
	}
	if h.RetryInterval != nil {
		s.Retry.Interval = h.RetryIntervalDuration()
	}
	if h.TicketPollAttempts != nil {
		s.TicketPollAttempts = *h.TicketPollAttempts
	}
	if h.TicketPollInterval != nil {
		s.TicketPollInterval = h.TicketPollIntervalDuration()
	}
	return s
}
