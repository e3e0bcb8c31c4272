// Package logger defines the structured logger every component receives.
// Key/value pairs follow the zap SugaredLogger convention.
package logger

import (
	"context"
)

type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
	Fatal(msg string, keysAndValues ...any)
	// With returns a logger that adds keysAndValues to every entry.
	With(keysAndValues ...any) Logger
}

type noOpLogger struct{}

func (n *noOpLogger) Debug(string, ...any) {}
func (n *noOpLogger) Info(string, ...any)  {}
func (n *noOpLogger) Warn(string, ...any)  {}
func (n *noOpLogger) Error(string, ...any) {}
func (n *noOpLogger) Fatal(string, ...any) {}

func (n *noOpLogger) With(...any) Logger { return n }

var nop Logger = &noOpLogger{}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return nop
}

type contextKey struct{}

func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext returns the logger stored by WithLogger, or Nop.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(contextKey{}).(Logger); ok {
		return l
	}
	return nop
}
