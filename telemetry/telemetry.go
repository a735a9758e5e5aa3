// Package telemetry configures OpenTelemetry tracing for the bridge.
package telemetry

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.uber.org/zap"
)

const defaultEndpoint = "http://localhost:4318/v1/traces"

// Config configures the OTLP exporter
type Config struct {
	Enabled     bool    `yaml:"enabled" json:"enabled"`
	ServiceName string  `yaml:"serviceName" json:"serviceName"`
	Version     string  `yaml:"version" json:"version"`
	Endpoint    string  `yaml:"endpoint" json:"endpoint"`
	SampleRatio float64 `yaml:"sampleRatio" json:"sampleRatio"`
}

// Shutdown flushes and stops the tracer provider
type Shutdown func(ctx context.Context) error

// Endpoint splits an OTLP endpoint given as URL or host:port
func Endpoint(raw string) (host, path string, insecure bool) {
	if raw == "" {
		raw = defaultEndpoint
	}
	host, path, insecure = raw, "/v1/traces", true
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return host, path, insecure
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "localhost:4318", path, insecure
	}
	if u.Host != "" {
		host = u.Host
	}
	if u.Path != "" {
		path = u.Path
	}
	return host, path, u.Scheme == "http"
}

// Init installs a global tracer provider exporting over OTLP HTTP.
// When tracing is disabled the global no-op provider is kept.
func Init(ctx context.Context, cfg *Config, logger *zap.Logger) (Shutdown, error) {
	noop := func(context.Context) error { return nil }
	if cfg == nil || !cfg.Enabled {
		return noop, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	host, path, insecure := Endpoint(cfg.Endpoint)
	options := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(host),
		otlptracehttp.WithURLPath(path),
	}
	if insecure {
		options = append(options, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptrace.New(ctx, otlptracehttp.NewClient(options...))
	if err != nil {
		return noop, fmt.Errorf("failed to create otlp exporter: %w", err)
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.Version),
		),
	)
	if err != nil {
		return noop, fmt.Errorf("failed to create resource: %w", err)
	}
	ratio := cfg.SampleRatio
	if ratio <= 0 {
		ratio = 1
	}
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	logger.Info("tracing enabled", zap.String("service", cfg.ServiceName), zap.String("endpoint", host+path))
	return provider.Shutdown, nil
}
