// Package log provides the component-scoped logging used throughout the
// negotiation core.
//
// It is a thin wrapper over log/slog. Components obtain a *Logger bound
// to a component name and attach attributes per call site; the default
// handler is resolved lazily so callers can redirect output (e.g. in
// tests) without re-creating every component's logger.
package log

import (
	"context"
	"log/slog"
)

var defaultLogger = slog.Default()

// SetDefault redirects every component Logger to l.
func SetDefault(l *slog.Logger) {
	defaultLogger = l
	slog.SetDefault(l)
}

// Logger is a component-scoped handle over the current default slog.Logger.
type Logger struct {
	component string
}

// New returns a Logger scoped to component. Every call resolves the
// current default handler, so redirecting output via SetDefault affects
// loggers already handed out.
func New(component string) *Logger {
	return &Logger{component: component}
}

func (l *Logger) with() *slog.Logger {
	return defaultLogger.With("component", l.component)
}

// Debug logs msg at debug level.
func (l *Logger) Debug(msg string, args ...any) { l.with().Debug(msg, args...) }

// Warn logs msg at warn level.
func (l *Logger) Warn(msg string, args ...any) { l.with().Warn(msg, args...) }

// Error logs msg at error level.
func (l *Logger) Error(msg string, args ...any) { l.with().Error(msg, args...) }

// DebugContext logs msg at debug level with ctx attached for handlers
// that extract trace information from it.
func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.with().DebugContext(ctx, msg, args...)
}
