package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/tastate/domain/telemetry"
)

// OTelTracer adapts an OpenTelemetry tracer to telemetry.Tracer. Every
// construction stage becomes an internal span.
type OTelTracer struct {
	tracer trace.Tracer
}

// NewOTelTracer wraps tracer.
func NewOTelTracer(tracer trace.Tracer) *OTelTracer {
	return &OTelTracer{tracer: tracer}
}

// StartSpan implements telemetry.Tracer.
func (t *OTelTracer) StartSpan(ctx context.Context, name string, opts ...telemetry.SpanOption) (context.Context, telemetry.Span) {
	cfg := telemetry.Apply(opts...)
	ctx, span := t.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(toKeyValues(cfg.Attributes)...),
	)
	return ctx, otelSpan{span}
}

type otelSpan struct {
	trace.Span
}

func (s otelSpan) SetAttributes(attrs ...telemetry.Attribute) {
	s.Span.SetAttributes(toKeyValues(attrs)...)
}

func (s otelSpan) RecordError(err error) {
	s.Span.RecordError(err)
	s.Span.SetStatus(codes.Error, err.Error())
}

func (s otelSpan) End() {
	s.Span.End()
}

var (
	_ telemetry.Tracer = (*OTelTracer)(nil)
	_ telemetry.Span   = otelSpan{}
)

func toKeyValues(attrs []telemetry.Attribute) []attribute.KeyValue {
	kvs := make([]attribute.KeyValue, len(attrs))
	for i, a := range attrs {
		switch v := a.Value.(type) {
		case string:
			kvs[i] = attribute.String(a.Key, v)
		case int:
			kvs[i] = attribute.Int(a.Key, v)
		case bool:
			kvs[i] = attribute.Bool(a.Key, v)
		case []string:
			kvs[i] = attribute.StringSlice(a.Key, v)
		default:
			kvs[i] = attribute.String(a.Key, fmt.Sprint(v))
		}
	}
	return kvs
}
