package logging

import "github.com/vvka-141/dlsync/pkg/dlsync"

// NullLogger is a no-op logger that discards all log messages.
type NullLogger struct{}

var _ dlsync.Logger = (*NullLogger)(nil)

// NewNullLogger creates a new NullLogger.
func NewNullLogger() *NullLogger {
	return &NullLogger{}
}

// Verbose is a no-op.
func (l *NullLogger) Verbose(format string, args ...interface{}) {}

// Info is a no-op.
func (l *NullLogger) Info(format string, args ...interface{}) {}

// Error is a no-op.
func (l *NullLogger) Error(format string, args ...interface{}) {}
