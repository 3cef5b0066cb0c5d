package observability

import (
	"context"

	"github.com/felixgeelhaar/tastate/domain/telemetry"
)

// NoopTracer discards every span.
type NoopTracer struct{}

// NewNoopTracer returns a tracer that records nothing.
func NewNoopTracer() *NoopTracer {
	return &NoopTracer{}
}

// StartSpan implements telemetry.Tracer.
func (NoopTracer) StartSpan(ctx context.Context, _ string, _ ...telemetry.SpanOption) (context.Context, telemetry.Span) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) SetAttributes(...telemetry.Attribute) {}
func (noopSpan) RecordError(error)                    {}
func (noopSpan) End()                                 {}

var (
	_ telemetry.Tracer = (*NoopTracer)(nil)
	_ telemetry.Span   = noopSpan{}
)
