package logging

import (
	"context"
	"log/slog"
)

// ContextProvider is a function that returns dynamic context attributes.
type ContextProvider func() []slog.Attr

type ctxKey int

const (
	episodeKey ctxKey = iota
	tickKey
)

// WithEpisode tags records logged with ctx with the episode id.
func WithEpisode(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, episodeKey, id)
}

// WithTick tags records logged with ctx with the simulation tick.
func WithTick(ctx context.Context, tick int64) context.Context {
	return context.WithValue(ctx, tickKey, tick)
}

// ContextHandler wraps another handler and injects dynamic context attributes
// plus the episode and tick carried on the record's context.
type ContextHandler struct {
	inner    slog.Handler
	provider ContextProvider
}

// NewContextHandler creates a handler that adds dynamic context to each record.
func NewContextHandler(inner slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{
		inner:    inner,
		provider: provider,
	}
}

// Enabled delegates to the inner handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle adds dynamic context attributes and delegates to the inner handler.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.provider != nil {
		r.AddAttrs(h.provider()...)
	}
	if ctx != nil {
		if id, ok := ctx.Value(episodeKey).(string); ok {
			r.AddAttrs(slog.String("episode", id))
		}
		if tick, ok := ctx.Value(tickKey).(int64); ok {
			r.AddAttrs(slog.Int64("tick", tick))
		}
	}
	return h.inner.Handle(ctx, r)
}

// WithAttrs returns a new ContextHandler with the given attributes.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{
		inner:    h.inner.WithAttrs(attrs),
		provider: h.provider,
	}
}

// WithGroup returns a new ContextHandler with the given group.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{
		inner:    h.inner.WithGroup(name),
		provider: h.provider,
	}
}
