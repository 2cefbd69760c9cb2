package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// LogLevel defines the minimum severity for log output.
type LogLevel string

const (
	LogLevelDebug   LogLevel = "DEBUG"
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARNING"
	LogLevelError   LogLevel = "ERROR"
)

// Config is the top-level configuration structure for the harness.
type Config struct {
	Harness *HarnessConfig `toml:"harness,omitempty"`
	Logging *LoggingConfig `toml:"logging,omitempty"`
}

// HarnessConfig tunes the fixture's wait and retry behavior. All fields
// are optional; absent fields take the defaults below.
type HarnessConfig struct {
	// WaitTimeout bounds every Wait* call, e.g. "2s".
	WaitTimeout *string `toml:"wait_timeout,omitempty"`
	// RetryMaxAttempts is the number of additional attempts for
	// operations that can fail with an invalid-state status right after
	// the handshake.
	RetryMaxAttempts *int `toml:"retry_max_attempts,omitempty"`
	// RetryInterval is the sleep between those attempts, e.g. "100ms".
	RetryInterval *string `toml:"retry_interval,omitempty"`
	// TicketPollAttempts bounds the zero-RTT ticket poll loop.
	TicketPollAttempts *int `toml:"ticket_poll_attempts,omitempty"`
	// TicketPollInterval is the sleep between ticket polls, e.g. "100ms".
	TicketPollInterval *string `toml:"ticket_poll_interval,omitempty"`
	// UseSendBuffer enables send buffering on client fixtures.
	UseSendBuffer *bool `toml:"use_send_buffer,omitempty"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	LogLevel LogLevel `toml:"log_level,omitempty"`
	// Target is "stdout", "stderr" or a file path.
	Target string `toml:"target,omitempty"`
}

// Default harness tuning, matching the behavior the fixture tests were
// written against.
const (
	DefaultWaitTimeout        = 2 * time.Second
	DefaultRetryMaxAttempts   = 3
	DefaultRetryInterval      = 100 * time.Millisecond
	DefaultTicketPollAttempts = 20
	DefaultTicketPollInterval = 100 * time.Millisecond
)

// NewDefault returns a fully-populated configuration carrying every
// default value.
func NewDefault() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a TOML configuration file, applies defaults for absent
// fields and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s contains unknown keys: %v", path, undecoded)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Harness == nil {
		c.Harness = &HarnessConfig{}
	}
	h := c.Harness
	if h.WaitTimeout == nil {
		h.WaitTimeout = strPtr(DefaultWaitTimeout.String())
	}
	if h.RetryMaxAttempts == nil {
		h.RetryMaxAttempts = intPtr(DefaultRetryMaxAttempts)
	}
	if h.RetryInterval == nil {
		h.RetryInterval = strPtr(DefaultRetryInterval.String())
	}
	if h.TicketPollAttempts == nil {
		h.TicketPollAttempts = intPtr(DefaultTicketPollAttempts)
	}
	if h.TicketPollInterval == nil {
		h.TicketPollInterval = strPtr(DefaultTicketPollInterval.String())
	}
	if h.UseSendBuffer == nil {
		h.UseSendBuffer = boolPtr(false)
	}

	if c.Logging == nil {
		c.Logging = &LoggingConfig{}
	}
	if c.Logging.LogLevel == "" {
		c.Logging.LogLevel = LogLevelInfo
	}
	if c.Logging.Target == "" {
		c.Logging.Target = "stderr"
	}
}

// Validate checks field values after defaults have been applied.
func (c *Config) Validate() error {
	h := c.Harness
	if _, err := parseDuration("harness.wait_timeout", *h.WaitTimeout); err != nil {
		return err
	}
	if *h.RetryMaxAttempts < 0 {
		return fmt.Errorf("harness.retry_max_attempts must not be negative, got %d", *h.RetryMaxAttempts)
	}
	if _, err := parseDuration("harness.retry_interval", *h.RetryInterval); err != nil {
		return err
	}
	if *h.TicketPollAttempts < 1 {
		return fmt.Errorf("harness.ticket_poll_attempts must be at least 1, got %d", *h.TicketPollAttempts)
	}
	if _, err := parseDuration("harness.ticket_poll_interval", *h.TicketPollInterval); err != nil {
		return err
	}

	switch c.Logging.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError:
	default:
		return fmt.Errorf("logging.log_level must be one of DEBUG, INFO, WARNING, ERROR, got %q", c.Logging.LogLevel)
	}
	if c.Logging.Target == "" {
		return fmt.Errorf("logging.target must be stdout, stderr or a file path")
	}
	if IsFilePath(c.Logging.Target) {
		// The file itself is created on open; only a stat error other
		// than non-existence is a problem here.
		if _, err := os.Stat(c.Logging.Target); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("logging.target %s is not usable: %w", c.Logging.Target, err)
		}
	}
	return nil
}

// WaitTimeoutDuration returns the parsed wait timeout. Only valid after
// defaults have been applied.
func (h *HarnessConfig) WaitTimeoutDuration() time.Duration {
	return mustDuration(*h.WaitTimeout, DefaultWaitTimeout)
}

// RetryIntervalDuration returns the parsed retry interval.
func (h *HarnessConfig) RetryIntervalDuration() time.Duration {
	return mustDuration(*h.RetryInterval, DefaultRetryInterval)
}

// TicketPollIntervalDuration returns the parsed ticket poll interval.
func (h *HarnessConfig) TicketPollIntervalDuration() time.Duration {
	return mustDuration(*h.TicketPollInterval, DefaultTicketPollInterval)
}

// IsFilePath reports whether a log target names a file rather than a
// standard stream.
func IsFilePath(target string) bool {
	return target != "stdout" && target != "stderr" && target != ""
}

func parseDuration(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", field, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: duration must be positive, got %q", field, value)
	}
	return d, nil
}

func mustDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func boolPtr(b bool) *bool    { return &b }
