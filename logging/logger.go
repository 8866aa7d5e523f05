// Package logging provides a tiny abstraction over structured loggers so the
// orchestration core can depend on a minimal interface (Logger) while callers
// plug in slog, zerolog or anything else. Components accept a Logger and fall
// back to NoOpLogger when given nil.
package logging

import "log/slog"

// Logger defines the minimal structured logging interface used throughout
// Colloquy. Args are alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter bridges a *slog.Logger to the Logger interface.
type SlogAdapter struct {
	inner *slog.Logger
}

func (s *SlogAdapter) Debug(msg string, args ...any) { s.inner.Debug(msg, args...) }
func (s *SlogAdapter) Info(msg string, args ...any)  { s.inner.Info(msg, args...) }
func (s *SlogAdapter) Warn(msg string, args ...any)  { s.inner.Warn(msg, args...) }
func (s *SlogAdapter) Error(msg string, args ...any) { s.inner.Error(msg, args...) }

// NewSlogAdapter wraps an existing *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{inner: logger}
}

// NewDefaultSlogLogger wraps slog.Default().
func NewDefaultSlogLogger() Logger {
	return NewSlogAdapter(slog.Default())
}

// NoOpLogger drops everything. It is the default for components
// constructed without an explicit logger.
type NoOpLogger struct{}

func (NoOpLogger) Debug(string, ...any) {}
func (NoOpLogger) Info(string, ...any)  {}
func (NoOpLogger) Warn(string, ...any)  {}
func (NoOpLogger) Error(string, ...any) {}

// OrDefault returns l when non-nil and NoOpLogger otherwise.
func OrDefault(l Logger) Logger {
	if l == nil {
		return NoOpLogger{}
	}
	return l
}
