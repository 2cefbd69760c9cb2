package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "harness.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewDefault(t *testing.T) {
	cfg := NewDefault()

	require.NotNil(t, cfg.Harness)
	assert.Equal(t, DefaultWaitTimeout, cfg.Harness.WaitTimeoutDuration())
	assert.Equal(t, DefaultRetryMaxAttempts, *cfg.Harness.RetryMaxAttempts)
	assert.Equal(t, DefaultRetryInterval, cfg.Harness.RetryIntervalDuration())
	assert.Equal(t, DefaultTicketPollAttempts, *cfg.Harness.TicketPollAttempts)
	assert.Equal(t, DefaultTicketPollInterval, cfg.Harness.TicketPollIntervalDuration())
	assert.False(t, *cfg.Harness.UseSendBuffer)

	require.NotNil(t, cfg.Logging)
	assert.Equal(t, LogLevelInfo, cfg.Logging.LogLevel)
	assert.Equal(t, "stderr", cfg.Logging.Target)

	assert.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
[harness]
wait_timeout = "5s"
retry_max_attempts = 1
retry_interval = "50ms"
ticket_poll_attempts = 10
use_send_buffer = true

[logging]
log_level = "DEBUG"
target = "stdout"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Harness.WaitTimeoutDuration())
	assert.Equal(t, 1, *cfg.Harness.RetryMaxAttempts)
	assert.Equal(t, 50*time.Millisecond, cfg.Harness.RetryIntervalDuration())
	assert.Equal(t, 10, *cfg.Harness.TicketPollAttempts)
	assert.True(t, *cfg.Harness.UseSendBuffer)
	// Absent fields keep their defaults.
	assert.Equal(t, DefaultTicketPollInterval, cfg.Harness.TicketPollIntervalDuration())

	assert.Equal(t, LogLevelDebug, cfg.Logging.LogLevel)
	assert.Equal(t, "stdout", cfg.Logging.Target)
}

func TestLoadEmptyFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, DefaultWaitTimeout, cfg.Harness.WaitTimeoutDuration())
	assert.Equal(t, "stderr", cfg.Logging.Target)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeConfig(t, `
[harness]
wiat_timeout = "5s"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown keys")
}

func TestLoadRejectsBadDuration(t *testing.T) {
	_, err := Load(writeConfig(t, `
[harness]
wait_timeout = "yesterday"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoadRejectsNonPositiveDuration(t *testing.T) {
	_, err := Load(writeConfig(t, `
[harness]
retry_interval = "-100ms"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be positive")
}

func TestLoadRejectsNegativeRetries(t *testing.T) {
	_, err := Load(writeConfig(t, `
[harness]
retry_max_attempts = -1
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retry_max_attempts")
}

func TestLoadRejectsBadLogLevel(t *testing.T) {
	_, err := Load(writeConfig(t, `
[logging]
log_level = "LOUD"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestIsFilePath(t *testing.T) {
	assert.False(t, IsFilePath("stdout"))
	assert.False(t, IsFilePath("stderr"))
	assert.False(t, IsFilePath(""))
	assert.True(t, IsFilePath("/tmp/harness.log"))
	assert.True(t, IsFilePath("relative.log"))
}
