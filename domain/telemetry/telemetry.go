// Package telemetry provides the tracing interface the construction engine
// reports its stages through.
package telemetry

import (
	"context"
)

// Span names of the construction stages.
const (
	SpanConstruct  = "tastate.construct"
	SpanCompose    = "tastate.compose"
	SpanSynthesize = "tastate.synthesize"
	SpanAdapt      = "tastate.adapt"
	SpanVerify     = "tastate.verify"
	SpanPersist    = "tastate.persist"
	SpanExport     = "tastate.export"
	SpanBatch      = "tastate.batch"
)

// Attribute keys shared by spans and metrics.
const (
	KeyReportID       = "tastate.report_id"
	KeyModel          = "tastate.model"
	KeyLocations      = "tastate.locations"
	KeyStrategy       = "tastate.strategy"
	KeyClocks         = "tastate.clocks"
	KeySequenceLength = "tastate.sequence_length"
	KeyExact          = "tastate.exact"
	KeyCached         = "tastate.cached"
	KeyInsertedEdges  = "tastate.inserted_edges"
	KeyBatchSize      = "tastate.batch_size"
)

// Tracer starts spans. The returned context carries the span so that
// stages started from it nest below it.
type Tracer interface {
	StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, Span)
}

// Span is one traced stage.
type Span interface {
	SetAttributes(attrs ...Attribute)
	// RecordError attaches err and marks the span failed.
	RecordError(err error)
	End()
}

// SpanConfig collects the options of one StartSpan call.
type SpanConfig struct {
	Attributes []Attribute
}

// SpanOption configures a span at creation.
type SpanOption func(*SpanConfig)

// WithAttributes sets span attributes at creation.
func WithAttributes(attrs ...Attribute) SpanOption {
	return func(c *SpanConfig) {
		c.Attributes = append(c.Attributes, attrs...)
	}
}

// Apply folds opts into a SpanConfig.
func Apply(opts ...SpanOption) SpanConfig {
	var c SpanConfig
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Attribute is a key-value pair. Value is a string, int, bool or []string;
// tracers render anything else with fmt.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute { return Attribute{Key: key, Value: value} }

func Int(key string, value int) Attribute { return Attribute{Key: key, Value: value} }

func Bool(key string, value bool) Attribute { return Attribute{Key: key, Value: value} }

func Strings(key string, values []string) Attribute { return Attribute{Key: key, Value: values} }

// End records err on span, if any, and ends it.
func End(span Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}
