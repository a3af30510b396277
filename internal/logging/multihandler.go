package logging

import (
	"context"
	"log/slog"
)

// Sink is one destination of the MultiHandler.
//
// Records logged with a tick on their context (see WithTick) come from inside
// the simulation loop and can number thousands per episode. TickLevel is the
// minimum level such a record needs to reach this sink; nil lets every
// tick record through. Records without a tick are only filtered by Handler.
type Sink struct {
	Handler   slog.Handler
	TickLevel slog.Leveler
}

func (s Sink) accepts(ctx context.Context, level slog.Level) bool {
	if s.TickLevel != nil && ctx != nil {
		if _, inTick := ctx.Value(tickKey).(int64); inTick && level < s.TickLevel.Level() {
			return false
		}
	}
	return s.Handler.Enabled(ctx, level)
}

// MultiHandler fans records out to several sinks.
type MultiHandler struct {
	sinks []Sink
}

// NewMultiHandler creates a handler writing to every sink with a handler.
func NewMultiHandler(sinks ...Sink) *MultiHandler {
	valid := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s.Handler != nil {
			valid = append(valid, s)
		}
	}
	return &MultiHandler{sinks: valid}
}

// Enabled reports whether any sink accepts a record at level.
func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range m.sinks {
		if s.accepts(ctx, level) {
			return true
		}
	}
	return false
}

// Handle passes a copy of the record to each accepting sink. A failing sink
// does not stop the others.
func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, s := range m.sinks {
		if s.accepts(ctx, r.Level) {
			_ = s.Handler.Handle(ctx, r.Clone())
		}
	}
	return nil
}

func (m *MultiHandler) derive(f func(slog.Handler) slog.Handler) *MultiHandler {
	sinks := make([]Sink, len(m.sinks))
	for i, s := range m.sinks {
		sinks[i] = Sink{Handler: f(s.Handler), TickLevel: s.TickLevel}
	}
	return &MultiHandler{sinks: sinks}
}

// WithAttrs adds attrs to every sink.
func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return m.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

// WithGroup opens group name on every sink.
func (m *MultiHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return m
	}
	return m.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}
