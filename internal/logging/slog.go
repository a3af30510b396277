package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// swapped in tests
var (
	osStdout io.Writer = os.Stdout
	osPipe             = os.Pipe
)

// SlogManager manages slog-based logging with optional OTel integration.
type SlogManager struct {
	logger *slog.Logger

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider

	// Optional callbacks feeding run state into every record.
	GetEpisodeName  func() string
	GetEpisodeCount func() int
	IsStatusRunning func() bool
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup initializes the logging system with file and optional OTel output.
// If file is nil, records go to stdout. If provider is nil, OTel logging is
// disabled. Each shipped writer receives the records as JSON lines (Graylog,
// log shippers).
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider, shipped ...io.Writer) {
	lvl := parseLevel(level)
	m.logProvider = provider

	// Common handler options with RFC3339 time formatting
	handlerOpts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	// The local log keeps per-tick detail; shipped sinks only get tick
	// records at warn and above.
	var sinks []Sink

	local := osStdout
	if file != nil {
		local = file
	}
	sinks = append(sinks, Sink{Handler: slog.NewTextHandler(local, handlerOpts)})

	for _, w := range shipped {
		if w != nil {
			sinks = append(sinks, Sink{
				Handler:   slog.NewJSONHandler(w, handlerOpts),
				TickLevel: slog.LevelWarn,
			})
		}
	}

	if provider != nil {
		sinks = append(sinks, Sink{
			Handler:   otelslog.NewHandler("dogfight", otelslog.WithLoggerProvider(provider)),
			TickLevel: slog.LevelWarn,
		})
	}

	handler := NewContextHandler(NewMultiHandler(sinks...), m.contextAttrs)

	m.logger = slog.New(handler)
	m.logger.Info("Logging initialized", "level", level)
}

func (m *SlogManager) contextAttrs() []slog.Attr {
	var attrs []slog.Attr
	if m.GetEpisodeName != nil {
		if name := m.GetEpisodeName(); name != "" {
			attrs = append(attrs, slog.String("episodeName", name))
		}
	}
	if m.GetEpisodeCount != nil {
		attrs = append(attrs, slog.Int("episodesDone", m.GetEpisodeCount()))
	}
	if m.IsStatusRunning != nil {
		attrs = append(attrs, slog.Bool("running", m.IsStatusRunning()))
	}
	return attrs
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		// Return a default logger if Setup hasn't been called
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}

// WriteLog writes a log entry with the specified function name, data, and level.
func (m *SlogManager) WriteLog(functionName, data, level string) {
	if m.logger == nil {
		return
	}

	lvl := parseLevel(level)

	switch lvl {
	case slog.LevelDebug:
		m.logger.Debug(data, "function", functionName)
	case slog.LevelWarn:
		m.logger.Warn(data, "function", functionName)
	case slog.LevelError:
		m.logger.Error(data, "function", functionName)
	default:
		m.logger.Info(data, "function", functionName)
	}
}
