package logging

import (
	"context"
	"log/slog"
)

// DispatcherLogger adapts *slog.Logger to the dispatcher.Logger interface.
// Its records are tagged component=control.
type DispatcherLogger struct {
	logger *slog.Logger
	tick   func() int64
}

// NewDispatcherLogger creates a new DispatcherLogger wrapping a slog.Logger.
func NewDispatcherLogger(logger *slog.Logger) *DispatcherLogger {
	return &DispatcherLogger{logger: logger.With("component", "control")}
}

// AtTick returns a copy whose records carry the simulation tick reported by
// tick, so command logs are routed like other in-loop records.
func (l *DispatcherLogger) AtTick(tick func() int64) *DispatcherLogger {
	return &DispatcherLogger{logger: l.logger, tick: tick}
}

func (l *DispatcherLogger) ctx() context.Context {
	if l.tick == nil {
		return context.Background()
	}
	return WithTick(context.Background(), l.tick())
}

// Debug logs a debug message with optional key-value pairs.
func (l *DispatcherLogger) Debug(msg string, keysAndValues ...any) {
	l.logger.DebugContext(l.ctx(), msg, keysAndValues...)
}

// Info logs an info message with optional key-value pairs.
func (l *DispatcherLogger) Info(msg string, keysAndValues ...any) {
	l.logger.InfoContext(l.ctx(), msg, keysAndValues...)
}

// Error logs an error message with optional key-value pairs.
func (l *DispatcherLogger) Error(msg string, keysAndValues ...any) {
	l.logger.ErrorContext(l.ctx(), msg, keysAndValues...)
}
