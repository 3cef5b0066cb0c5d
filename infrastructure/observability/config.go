// Package observability provides OpenTelemetry tracing for the construction
// engine and the meter provider its metrics are recorded on.
package observability

import (
	"io"
	"strings"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	domainconfig "github.com/felixgeelhaar/tastate/domain/config"
)

// Config configures the observability infrastructure.
type Config struct {
	// ServiceName is the name of the service for telemetry.
	ServiceName string

	// ServiceVersion is the version of the service.
	ServiceVersion string

	// Environment is the deployment environment (e.g., "production", "staging").
	Environment string

	// Tracing configures distributed tracing.
	Tracing TracingConfig

	// Metrics configures metrics collection.
	Metrics MetricsConfig
}

// TracingConfig configures distributed tracing.
type TracingConfig struct {
	// Enabled enables tracing (default: false).
	Enabled bool

	// Exporter specifies the trace exporter type.
	Exporter ExporterType

	// Endpoint is the OTLP endpoint (e.g., "localhost:4317").
	Endpoint string

	// Insecure disables TLS for the exporter connection.
	Insecure bool

	// SampleRate is the sampling rate (0.0-1.0, default: 1.0).
	SampleRate float64

	// BatchTimeout is the batch export timeout.
	BatchTimeout time.Duration

	// MaxExportBatchSize is the maximum batch size.
	MaxExportBatchSize int

	// Writer receives stdout spans; os.Stderr when nil so command output
	// stays clean.
	Writer io.Writer
}

// MetricsConfig configures metrics collection.
type MetricsConfig struct {
	// Enabled enables the SDK meter provider (default: false).
	Enabled bool

	// Readers collect the recorded metrics.
	Readers []sdkmetric.Reader
}

// ExporterType specifies the telemetry exporter.
type ExporterType string

const (
	// ExporterOTLP exports to OTLP endpoint (e.g., Jaeger, Tempo, Grafana).
	ExporterOTLP ExporterType = "otlp"

	// ExporterStdout exports to stdout (useful for development).
	ExporterStdout ExporterType = "stdout"

	// ExporterNoop disables export (no-op).
	ExporterNoop ExporterType = "noop"
)

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "tastate",
		ServiceVersion: "dev",
		Environment:    "development",
		Tracing: TracingConfig{
			Enabled:            false,
			Exporter:           ExporterNoop,
			SampleRate:         1.0,
			BatchTimeout:       5 * time.Second,
			MaxExportBatchSize: 512,
		},
	}
}

// Option configures the observability infrastructure.
type Option func(*Config)

// WithServiceName sets the service name.
func WithServiceName(name string) Option {
	return func(c *Config) {
		c.ServiceName = name
	}
}

// WithServiceVersion sets the service version.
func WithServiceVersion(version string) Option {
	return func(c *Config) {
		c.ServiceVersion = version
	}
}

// WithEnvironment sets the environment.
func WithEnvironment(env string) Option {
	return func(c *Config) {
		c.Environment = env
	}
}

// WithTracing enables tracing with the specified exporter.
func WithTracing(exporter ExporterType, endpoint string) Option {
	return func(c *Config) {
		c.Tracing.Enabled = true
		c.Tracing.Exporter = exporter
		c.Tracing.Endpoint = endpoint
	}
}

// WithTracingInsecure disables TLS for tracing.
func WithTracingInsecure() Option {
	return func(c *Config) {
		c.Tracing.Insecure = true
	}
}

// WithSampleRate sets the trace sampling rate.
func WithSampleRate(rate float64) Option {
	return func(c *Config) {
		c.Tracing.SampleRate = rate
	}
}

// WithStdoutTracing enables stdout tracing written to w.
func WithStdoutTracing(w io.Writer) Option {
	return func(c *Config) {
		c.Tracing.Enabled = true
		c.Tracing.Exporter = ExporterStdout
		c.Tracing.Writer = w
	}
}

// WithMetricReader enables the SDK meter provider and attaches r to it.
func WithMetricReader(r sdkmetric.Reader) Option {
	return func(c *Config) {
		c.Metrics.Enabled = true
		c.Metrics.Readers = append(c.Metrics.Readers, r)
	}
}

// FromConfig translates the telemetry section of a tool configuration.
func FromConfig(cfg domainconfig.TelemetryConfig) []Option {
	if !cfg.Enabled {
		return nil
	}
	opts := []Option{
		WithTracing(ExporterType(strings.ToLower(cfg.Exporter)), cfg.Endpoint),
		WithSampleRate(cfg.SampleRate),
	}
	if cfg.ServiceName != "" {
		opts = append(opts, WithServiceName(cfg.ServiceName))
	}
	if cfg.Environment != "" {
		opts = append(opts, WithEnvironment(cfg.Environment))
	}
	if cfg.Insecure {
		opts = append(opts, WithTracingInsecure())
	}
	return opts
}
