package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyduel/dogfight/internal/dispatcher"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestDispatcherLogger_Levels(t *testing.T) {
	tests := []struct {
		name  string
		log   func(*DispatcherLogger)
		level string
		msg   string
		attrs map[string]any
	}{
		{
			name:  "debug",
			log:   func(l *DispatcherLogger) { l.Debug("handling event", "command", ":STEP:", "args", 1) },
			level: "DEBUG",
			msg:   "handling event",
			attrs: map[string]any{"command": ":STEP:", "args": float64(1)},
		},
		{
			name:  "info",
			log:   func(l *DispatcherLogger) { l.Info("session reset", "seed", 42) },
			level: "INFO",
			msg:   "session reset",
			attrs: map[string]any{"seed": float64(42)},
		},
		{
			name:  "error",
			log:   func(l *DispatcherLogger) { l.Error("event failed", "command", ":ACTION:", "error", "invalid action") },
			level: "ERROR",
			msg:   "event failed",
			attrs: map[string]any{"command": ":ACTION:", "error": "invalid action"},
		},
		{
			name:  "no key values",
			log:   func(l *DispatcherLogger) { l.Info("ready") },
			level: "INFO",
			msg:   "ready",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			dl := NewDispatcherLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
			tt.log(dl)

			entries := decodeLines(t, &buf)
			require.Len(t, entries, 1)
			entry := entries[0]
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, tt.msg, entry["msg"])
			assert.Equal(t, "control", entry["component"])
			assert.NotContains(t, entry, "tick")
			for k, v := range tt.attrs {
				assert.Equal(t, v, entry[k], k)
			}
		})
	}
}

func TestDispatcherLogger_AtTickTagsRecords(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(NewContextHandler(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}), nil))

	tick := int64(0)
	dl := NewDispatcherLogger(base).AtTick(func() int64 { return tick })

	dl.Debug("handling event", "command", ":RESET:")
	tick = 17
	dl.Debug("handling event", "command", ":STEP:")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, float64(0), entries[0]["tick"])
	assert.Equal(t, float64(17), entries[1]["tick"])
	assert.Equal(t, ":STEP:", entries[1]["command"])
}

func TestDispatcherLogger_LoggedControlCommands(t *testing.T) {
	var local, shipped bytes.Buffer
	multi := NewMultiHandler(
		Sink{Handler: slog.NewJSONHandler(&local, &slog.HandlerOptions{Level: slog.LevelDebug})},
		Sink{Handler: slog.NewJSONHandler(&shipped, &slog.HandlerOptions{Level: slog.LevelDebug}), TickLevel: slog.LevelWarn},
	)
	base := slog.New(NewContextHandler(multi, nil))

	tick := int64(5)
	d, err := dispatcher.New(NewDispatcherLogger(base).AtTick(func() int64 { return tick }))
	require.NoError(t, err)
	t.Cleanup(d.Close)

	d.Register(":STEP:", func(e dispatcher.Event) (any, error) {
		tick++
		return tick, nil
	}, dispatcher.Logged())
	d.Register(":ACTION:", func(e dispatcher.Event) (any, error) {
		return nil, errors.New("unknown aircraft")
	}, dispatcher.Logged())

	_, err = d.Dispatch(dispatcher.Event{Command: ":STEP:"})
	require.NoError(t, err)
	_, err = d.Dispatch(dispatcher.Event{Command: ":ACTION:", Args: []string{"red_9", "fire"}})
	require.Error(t, err)

	entries := decodeLines(t, &local)
	require.Len(t, entries, 4)
	assert.Equal(t, "handling event", entries[0]["msg"])
	assert.Equal(t, float64(5), entries[0]["tick"])
	assert.Equal(t, "event complete", entries[1]["msg"])
	assert.Equal(t, float64(6), entries[1]["tick"])
	assert.Equal(t, ":ACTION:", entries[2]["command"])
	assert.Equal(t, "ERROR", entries[3]["level"])
	assert.Equal(t, "unknown aircraft", entries[3]["error"])

	// per-tick debug stays local, the failure is shipped
	shippedEntries := decodeLines(t, &shipped)
	require.Len(t, shippedEntries, 1)
	assert.Equal(t, "event failed", shippedEntries[0]["msg"])
	assert.Equal(t, ":ACTION:", shippedEntries[0]["command"])
	assert.Equal(t, "control", shippedEntries[0]["component"])
}
