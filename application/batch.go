package application

import (
	"context"

	"github.com/felixgeelhaar/tastate/domain/telemetry"
	"github.com/felixgeelhaar/tastate/infrastructure/logging"
	"github.com/felixgeelhaar/tastate/infrastructure/resilience"
)

// ConstructAll runs the requests concurrently, at most the configured
// batch size at a time. Results and errors are in request order; a request
// that fails leaves its error at the same index.
func (e *Engine) ConstructAll(ctx context.Context, reqs []Request) ([]*Construction, []error) {
	ctx, span := e.tracer.StartSpan(ctx, telemetry.SpanBatch, telemetry.WithAttributes(
		telemetry.Int(telemetry.KeyBatchSize, len(reqs)),
	))

	pool := resilience.NewPool[*Construction](e.batchSize,
		resilience.WithMaxQueue(len(reqs)),
		resilience.WithQueueTimeout(e.batchWait),
	)
	results, errs := pool.Map(ctx, len(reqs), func(ctx context.Context, i int) (*Construction, error) {
		return e.Construct(ctx, reqs[i])
	})

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	span.SetAttributes(telemetry.Int("tastate.failed", failed))
	telemetry.End(span, ctx.Err())

	logging.Info().
		Add(logging.Count(len(reqs))).
		Add(logging.Int("failed", failed)).
		Msg("batch finished")
	return results, errs
}
