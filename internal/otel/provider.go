package otel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/skyduel/dogfight/internal/config"
)

// ErrNoExporter is returned when OTel is enabled without a log writer or endpoint.
var ErrNoExporter = errors.New("OTel enabled but no log writer or endpoint configured")

// Session identifies one process run in exported telemetry.
type Session struct {
	Version string
	Command string
	Started time.Time
}

func (s Session) resource(ctx context.Context, service string) (*resource.Resource, error) {
	version := s.Version
	if version == "" {
		version = "dev"
	}
	attrs := []attribute.KeyValue{
		semconv.ServiceName(service),
		semconv.ServiceVersion(version),
	}
	if !s.Started.IsZero() {
		attrs = append(attrs, semconv.ServiceInstanceID(s.Command+"-"+s.Started.UTC().Format("20060102T150405Z")))
	}
	if s.Command != "" {
		attrs = append(attrs, attribute.String("dogfight.command", s.Command))
	}
	return resource.New(ctx, resource.WithAttributes(attrs...))
}

// Provider manages the OpenTelemetry log provider and hands out meters.
type Provider struct {
	logProvider *sdklog.LoggerProvider
	config      config.OTelConfig
}

// New creates a new OTel provider. logWriter receives pretty printed
// records when non-nil; an OTLP exporter is added when cfg.Endpoint is
// set. A disabled config yields a no-op provider.
func New(cfg config.OTelConfig, logWriter io.Writer, session Session) (*Provider, error) {
	p := &Provider{config: cfg}
	if !cfg.Enabled {
		return p, nil
	}

	ctx := context.Background()
	res, err := session.resource(ctx, cfg.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var processors []sdklog.Processor
	if logWriter != nil {
		proc, err := fileProcessor(cfg, logWriter)
		if err != nil {
			return nil, err
		}
		processors = append(processors, proc)
	}
	if cfg.Endpoint != "" {
		proc, err := otlpProcessor(ctx, cfg)
		if err != nil {
			return nil, err
		}
		processors = append(processors, proc)
	}
	if len(processors) == 0 {
		return nil, ErrNoExporter
	}

	opts := []sdklog.LoggerProviderOption{sdklog.WithResource(res)}
	for _, proc := range processors {
		opts = append(opts, sdklog.WithProcessor(proc))
	}
	p.logProvider = sdklog.NewLoggerProvider(opts...)
	return p, nil
}

func fileProcessor(cfg config.OTelConfig, w io.Writer) (sdklog.Processor, error) {
	exp, err := stdoutlog.New(stdoutlog.WithWriter(w), stdoutlog.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("failed to create file log exporter: %w", err)
	}
	return sdklog.NewBatchProcessor(exp, sdklog.WithExportTimeout(cfg.BatchTimeout)), nil
}

func otlpProcessor(ctx context.Context, cfg config.OTelConfig) (sdklog.Processor, error) {
	opts := []otlploghttp.Option{otlploghttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlploghttp.WithInsecure())
	}
	exp, err := otlploghttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP log exporter: %w", err)
	}
	return sdklog.NewBatchProcessor(exp, sdklog.WithExportTimeout(cfg.BatchTimeout)), nil
}

// LoggerProvider returns the log provider for use with the otelslog bridge.
// Returns nil if OTel is not enabled.
func (p *Provider) LoggerProvider() *sdklog.LoggerProvider {
	return p.logProvider
}

// Meter returns a meter from the global provider, or a no-op meter when
// OTel is disabled.
func (p *Provider) Meter(name string) metric.Meter {
	if !p.config.Enabled {
		return noop.Meter{}
	}
	return otel.Meter(name)
}

// Flush forces a flush of pending logs.
func (p *Provider) Flush(ctx context.Context) error {
	if p.logProvider == nil {
		return nil
	}
	if err := p.logProvider.ForceFlush(ctx); err != nil {
		return fmt.Errorf("log flush failed: %w", err)
	}
	return nil
}

// Shutdown flushes and stops the log provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.logProvider == nil {
		return nil
	}
	if err := p.logProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("log shutdown failed: %w", err)
	}
	return nil
}

// Enabled returns whether OTel is enabled.
func (p *Provider) Enabled() bool {
	return p.config.Enabled
}
