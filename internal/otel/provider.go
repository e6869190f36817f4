// Package otel sets up the OpenTelemetry log pipeline of a session. Records
// go to the session log file, to an OTLP collector, or to both.
package otel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/demolens/tickstate/internal/config"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ErrNoExporter is returned when OTel is enabled with neither a log file
// nor a collector endpoint.
var ErrNoExporter = errors.New("otel enabled but no log file or endpoint configured")

// Session identifies this process in exported records.
type Session struct {
	Version string
	Started time.Time
}

// Provider owns the log pipeline. A nil *Provider is valid and does nothing.
type Provider struct {
	logs *sdklog.LoggerProvider
}

// New builds the pipeline. It returns a nil Provider when OTel is disabled.
func New(ctx context.Context, cfg config.OTelConfig, logFile io.Writer, s Session) (*Provider, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	cfg = withDefaults(cfg)

	exporters, err := newExporters(ctx, cfg, logFile)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(sessionAttributes(cfg.ServiceName, s)...))
	if err != nil {
		return nil, fmt.Errorf("building otel resource: %w", err)
	}

	opts := []sdklog.LoggerProviderOption{sdklog.WithResource(res)}
	for _, exp := range exporters {
		opts = append(opts, sdklog.WithProcessor(
			sdklog.NewBatchProcessor(exp, sdklog.WithExportTimeout(cfg.BatchTimeout)),
		))
	}
	return &Provider{logs: sdklog.NewLoggerProvider(opts...)}, nil
}

func withDefaults(cfg config.OTelConfig) config.OTelConfig {
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 5 * time.Second
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "tickstate"
	}
	return cfg
}

func sessionAttributes(service string, s Session) []attribute.KeyValue {
	attrs := []attribute.KeyValue{semconv.ServiceName(service)}
	if s.Version != "" {
		attrs = append(attrs, semconv.ServiceVersion(s.Version))
	}
	if !s.Started.IsZero() {
		attrs = append(attrs, attribute.String("session.start", s.Started.UTC().Format(time.RFC3339)))
	}
	return attrs
}

// newExporters returns the file exporter first, then the collector one.
func newExporters(ctx context.Context, cfg config.OTelConfig, logFile io.Writer) ([]sdklog.Exporter, error) {
	var out []sdklog.Exporter

	if logFile != nil {
		exp, err := stdoutlog.New(stdoutlog.WithWriter(logFile), stdoutlog.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("creating file log exporter: %w", err)
		}
		out = append(out, exp)
	}

	if cfg.Endpoint != "" {
		opts := []otlploghttp.Option{otlploghttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlploghttp.WithInsecure())
		}
		exp, err := otlploghttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("creating OTLP log exporter: %w", err)
		}
		out = append(out, exp)
	}

	if len(out) == 0 {
		return nil, ErrNoExporter
	}
	return out, nil
}

// LoggerProvider feeds the otelslog bridge. It is nil when OTel is disabled.
func (p *Provider) LoggerProvider() *sdklog.LoggerProvider {
	if p == nil {
		return nil
	}
	return p.logs
}

// Shutdown exports what is still pending and stops the exporters.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	return errors.Join(p.logs.ForceFlush(ctx), p.logs.Shutdown(ctx))
}
