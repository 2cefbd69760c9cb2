// Package logger wraps zerolog behind a small structured-logging
// surface shared by the harness and the drivers underneath it.
package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"example.com/quicharness/internal/config"
)

// LogFields carries structured context attached to a log line.
type LogFields map[string]interface{}

// Logger is a leveled, structured logger.
type Logger struct {
	zl     zerolog.Logger
	output io.WriteCloser
}

// New creates a Logger from the logging configuration. File targets are
// opened in append mode.
func New(cfg *config.LoggingConfig) (*Logger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("logging configuration cannot be nil")
	}

	var output io.WriteCloser
	switch {
	case cfg.Target == "stdout":
		output = nopCloser{os.Stdout}
	case cfg.Target == "stderr", cfg.Target == "":
		output = nopCloser{os.Stderr}
	case config.IsFilePath(cfg.Target):
		file, err := os.OpenFile(cfg.Target, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", cfg.Target, err)
		}
		output = file
	default:
		return nil, fmt.Errorf("invalid log target: %s", cfg.Target)
	}

	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		if c, ok := output.(*os.File); ok {
			c.Close()
		}
		return nil, err
	}

	zl := zerolog.New(output).Level(level).With().Timestamp().Logger()
	return &Logger{zl: zl, output: output}, nil
}

// NewWriter creates a Logger emitting to an arbitrary writer at debug
// level. Intended for tests.
func NewWriter(w io.Writer) *Logger {
	zl := zerolog.New(w).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	return &Logger{zl: zl, output: nopCloser{w}}
}

// NewNop creates a Logger that discards everything.
func NewNop() *Logger {
	return &Logger{zl: zerolog.Nop(), output: nopCloser{io.Discard}}
}

func parseLevel(level config.LogLevel) (zerolog.Level, error) {
	switch level {
	case config.LogLevelDebug:
		return zerolog.DebugLevel, nil
	case config.LogLevelInfo, "":
		return zerolog.InfoLevel, nil
	case config.LogLevelWarning:
		return zerolog.WarnLevel, nil
	case config.LogLevelError:
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("unknown log level: %q", level)
	}
}

// With returns a child logger that attaches fields to every line.
func (l *Logger) With(fields LogFields) *Logger {
	return &Logger{
		zl:     l.zl.With().Fields(map[string]interface{}(fields)).Logger(),
		output: l.output,
	}
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, fields LogFields) {
	l.zl.Debug().Fields(map[string]interface{}(fields)).Msg(msg)
}

// Info logs at info level.
func (l *Logger) Info(msg string, fields LogFields) {
	l.zl.Info().Fields(map[string]interface{}(fields)).Msg(msg)
}

// Warn logs at warning level.
func (l *Logger) Warn(msg string, fields LogFields) {
	l.zl.Warn().Fields(map[string]interface{}(fields)).Msg(msg)
}

// Error logs at error level.
func (l *Logger) Error(msg string, fields LogFields) {
	l.zl.Error().Fields(map[string]interface{}(fields)).Msg(msg)
}

// Close releases a file-backed target. Standard streams are left open.
func (l *Logger) Close() error {
	return l.output.Close()
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
