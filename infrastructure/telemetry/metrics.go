// Package telemetry records OpenTelemetry metrics for synthesis and
// construction.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/felixgeelhaar/tastate/domain/construction"
)

// MetricsProvider provides access to metrics instruments.
type MetricsProvider struct {
	meter metric.Meter

	// Counters
	syntheses     metric.Int64Counter
	cacheHits     metric.Int64Counter
	cacheMisses   metric.Int64Counter
	constructions metric.Int64Counter
	errors        metric.Int64Counter

	// Histograms
	synthesisDuration    metric.Float64Histogram
	sequenceLength       metric.Int64Histogram
	constructionDuration metric.Float64Histogram
	insertedEdges        metric.Int64Histogram

	// Gauges (using UpDownCounter for OpenTelemetry)
	activeConstructions metric.Int64UpDownCounter

	initOnce sync.Once
	initErr  error
}

// MetricsConfig configures the metrics provider.
type MetricsConfig struct {
	// MeterName is the name of the meter (default: "github.com/felixgeelhaar/tastate").
	MeterName string
	// MeterVersion is the version of the meter.
	MeterVersion string
	// MeterProvider supplies the meter; the global provider when nil.
	MeterProvider metric.MeterProvider
}

// DefaultMetricsConfig returns a default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		MeterName:    "github.com/felixgeelhaar/tastate",
		MeterVersion: "1.0.0",
	}
}

// NewMetricsProvider creates a new metrics provider.
func NewMetricsProvider(config MetricsConfig) *MetricsProvider {
	if config.MeterName == "" {
		config.MeterName = DefaultMetricsConfig().MeterName
	}
	provider := config.MeterProvider
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(
		config.MeterName,
		metric.WithInstrumentationVersion(config.MeterVersion),
	)

	mp := &MetricsProvider{
		meter: meter,
	}

	mp.initOnce.Do(func() {
		mp.initErr = mp.initInstruments()
	})

	return mp
}

// initInstruments initializes all metric instruments.
func (mp *MetricsProvider) initInstruments() error {
	var err error

	if mp.syntheses, err = mp.meter.Int64Counter(
		"tastate.synthesis.count",
		metric.WithDescription("Number of synthesized sequences"),
		metric.WithUnit("{sequence}"),
	); err != nil {
		return err
	}
	if mp.cacheHits, err = mp.meter.Int64Counter(
		"tastate.cache.hits",
		metric.WithDescription("Synthesis results served from the cache"),
		metric.WithUnit("{hit}"),
	); err != nil {
		return err
	}
	if mp.cacheMisses, err = mp.meter.Int64Counter(
		"tastate.cache.misses",
		metric.WithDescription("Synthesis results computed after a cache miss"),
		metric.WithUnit("{miss}"),
	); err != nil {
		return err
	}
	if mp.constructions, err = mp.meter.Int64Counter(
		"tastate.construction.count",
		metric.WithDescription("Number of finished constructions"),
		metric.WithUnit("{construction}"),
	); err != nil {
		return err
	}
	if mp.errors, err = mp.meter.Int64Counter(
		"tastate.errors",
		metric.WithDescription("Number of errors by stage"),
		metric.WithUnit("{error}"),
	); err != nil {
		return err
	}

	if mp.synthesisDuration, err = mp.meter.Float64Histogram(
		"tastate.synthesis.duration",
		metric.WithDescription("Time spent synthesizing a sequence"),
		metric.WithUnit("ms"),
	); err != nil {
		return err
	}
	if mp.sequenceLength, err = mp.meter.Int64Histogram(
		"tastate.sequence.length",
		metric.WithDescription("Operations per synthesized sequence"),
		metric.WithUnit("{operation}"),
	); err != nil {
		return err
	}
	if mp.constructionDuration, err = mp.meter.Float64Histogram(
		"tastate.construction.duration",
		metric.WithDescription("Wall time of a construction"),
		metric.WithUnit("ms"),
	); err != nil {
		return err
	}
	if mp.insertedEdges, err = mp.meter.Int64Histogram(
		"tastate.adaptation.inserted_edges",
		metric.WithDescription("Edges inserted by one adaptation"),
		metric.WithUnit("{edge}"),
	); err != nil {
		return err
	}

	mp.activeConstructions, err = mp.meter.Int64UpDownCounter(
		"tastate.construction.active",
		metric.WithDescription("Constructions in progress"),
		metric.WithUnit("{construction}"),
	)
	return err
}

// Error returns any initialization error.
func (mp *MetricsProvider) Error() error {
	return mp.initErr
}

// RecordSynthesis records one synthesized sequence.
func (mp *MetricsProvider) RecordSynthesis(ctx context.Context, strategy string, exact bool, length int, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("strategy", strategy),
		attribute.Bool("exact", exact),
	)
	mp.syntheses.Add(ctx, 1, attrs)
	mp.synthesisDuration.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	mp.sequenceLength.Record(ctx, int64(length), attrs)
}

// RecordCacheLookup records a synthesis cache hit or miss.
func (mp *MetricsProvider) RecordCacheLookup(ctx context.Context, hit bool) {
	if hit {
		mp.cacheHits.Add(ctx, 1)
	} else {
		mp.cacheMisses.Add(ctx, 1)
	}
}

// RecordConstruction records a finished construction report.
func (mp *MetricsProvider) RecordConstruction(ctx context.Context, r *construction.Report) {
	attrs := metric.WithAttributes(
		attribute.String("status", string(r.Status)),
		attribute.String("strategy", r.Strategy),
	)
	mp.constructions.Add(ctx, 1, attrs)
	mp.constructionDuration.Record(ctx, float64(r.Duration().Microseconds())/1000, attrs)
	if r.Status == construction.StatusCompleted {
		mp.insertedEdges.Record(ctx, int64(r.Measures.InsertedEdges))
	}
}

// RecordError records a failure in the named stage.
func (mp *MetricsProvider) RecordError(ctx context.Context, stage string) {
	mp.errors.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

// IncrementActiveConstructions increments the active construction gauge.
func (mp *MetricsProvider) IncrementActiveConstructions(ctx context.Context) {
	mp.activeConstructions.Add(ctx, 1)
}

// DecrementActiveConstructions decrements the active construction gauge.
func (mp *MetricsProvider) DecrementActiveConstructions(ctx context.Context) {
	mp.activeConstructions.Add(ctx, -1)
}

// NoopMetricsProvider is a no-op metrics provider for testing or when metrics are disabled.
type NoopMetricsProvider struct{}

// RecordSynthesis is a no-op.
func (n *NoopMetricsProvider) RecordSynthesis(context.Context, string, bool, int, time.Duration) {}

// RecordCacheLookup is a no-op.
func (n *NoopMetricsProvider) RecordCacheLookup(context.Context, bool) {}

// RecordConstruction is a no-op.
func (n *NoopMetricsProvider) RecordConstruction(context.Context, *construction.Report) {}

// RecordError is a no-op.
func (n *NoopMetricsProvider) RecordError(context.Context, string) {}

// IncrementActiveConstructions is a no-op.
func (n *NoopMetricsProvider) IncrementActiveConstructions(context.Context) {}

// DecrementActiveConstructions is a no-op.
func (n *NoopMetricsProvider) DecrementActiveConstructions(context.Context) {}

// Metrics defines the interface for metrics recording.
type Metrics interface {
	RecordSynthesis(ctx context.Context, strategy string, exact bool, length int, duration time.Duration)
	RecordCacheLookup(ctx context.Context, hit bool)
	RecordConstruction(ctx context.Context, r *construction.Report)
	RecordError(ctx context.Context, stage string)
	IncrementActiveConstructions(ctx context.Context)
	DecrementActiveConstructions(ctx context.Context)
}

// Ensure implementations satisfy the interface.
var (
	_ Metrics = (*MetricsProvider)(nil)
	_ Metrics = (*NoopMetricsProvider)(nil)
)
