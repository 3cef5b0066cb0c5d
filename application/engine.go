// Package application orchestrates state construction: it composes a
// target state, synthesizes a clock operation sequence for it, splices the
// sequence into the model and verifies the result by replay.
package application

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/felixgeelhaar/tastate/domain/adaptation"
	"github.com/felixgeelhaar/tastate/domain/artifact"
	"github.com/felixgeelhaar/tastate/domain/cache"
	"github.com/felixgeelhaar/tastate/domain/construction"
	"github.com/felixgeelhaar/tastate/domain/dbm"
	"github.com/felixgeelhaar/tastate/domain/model"
	"github.com/felixgeelhaar/tastate/domain/sequence"
	"github.com/felixgeelhaar/tastate/domain/synthesis"
	"github.com/felixgeelhaar/tastate/domain/target"
	"github.com/felixgeelhaar/tastate/domain/telemetry"
	"github.com/felixgeelhaar/tastate/infrastructure/logging"
	"github.com/felixgeelhaar/tastate/infrastructure/modelfile"
	"github.com/felixgeelhaar/tastate/infrastructure/observability"
	"github.com/felixgeelhaar/tastate/infrastructure/resilience"
	"github.com/felixgeelhaar/tastate/infrastructure/statemachine"
	"github.com/felixgeelhaar/tastate/infrastructure/storage/memory"
	infratelemetry "github.com/felixgeelhaar/tastate/infrastructure/telemetry"
)

// Engine is the main orchestration service for state construction. It is
// safe for concurrent use; graphs passed to it are never modified.
type Engine struct {
	synthesizer  *synthesis.Synthesizer
	adaptor      *adaptation.Adaptor
	cache        cache.Cache
	cacheTTL     time.Duration
	reports      construction.Store
	artifacts    artifact.Store
	exportFormat modelfile.Format
	executor     *resilience.Executor
	tracer       telemetry.Tracer
	metrics      infratelemetry.Metrics
	skipVerify   bool
	batchSize    int
	batchWait    time.Duration
}

// EngineConfig contains configuration for the engine.
type EngineConfig struct {
	Synthesis    []synthesis.Option
	Adaptation   []adaptation.Option
	Cache        cache.Cache
	CacheTTL     time.Duration
	Reports      construction.Store
	Artifacts    artifact.Store
	ExportFormat string
	Executor     *resilience.Executor
	Tracer       telemetry.Tracer
	Metrics      infratelemetry.Metrics
	SkipVerify   bool
	BatchSize    int
	// BatchQueueTimeout bounds how long a batched request waits for a slot.
	BatchQueueTimeout time.Duration
}

// NewEngine creates a new engine with the given configuration.
func NewEngine(config EngineConfig) (*Engine, error) {
	e := &Engine{
		synthesizer: synthesis.New(config.Synthesis...),
		adaptor:     adaptation.New(config.Adaptation...),
		cache:       config.Cache,
		cacheTTL:    config.CacheTTL,
		reports:     config.Reports,
		artifacts:   config.Artifacts,
		executor:    config.Executor,
		tracer:      config.Tracer,
		metrics:     config.Metrics,
		skipVerify:  config.SkipVerify,
		batchSize:   config.BatchSize,
		batchWait:   config.BatchQueueTimeout,
	}
	if !e.synthesizer.Strategy().IsValid() {
		return nil, fmt.Errorf("%w: %w: %q", ErrInvalidEngineConfig, synthesis.ErrUnknownStrategy, e.synthesizer.Strategy())
	}

	e.exportFormat = modelfile.FormatYAML
	if config.ExportFormat != "" {
		f, err := modelfile.ParseFormat(config.ExportFormat)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidEngineConfig, err)
		}
		e.exportFormat = f
	}

	// Set defaults
	if e.reports == nil {
		e.reports = memory.NewReportStore()
	}
	if e.executor == nil {
		e.executor = resilience.NewDefaultExecutor()
	}
	if e.tracer == nil {
		e.tracer = observability.NewNoopTracer()
	}
	if e.metrics == nil {
		e.metrics = &infratelemetry.NoopMetricsProvider{}
	}
	if e.batchSize <= 0 {
		e.batchSize = 4
	}

	return e, nil
}

// Strategy returns the configured synthesis strategy.
func (e *Engine) Strategy() synthesis.Strategy {
	return e.synthesizer.Strategy()
}

// ComposeAndValidate composes the target state of g and rejects
// unsatisfiable or unresolvable targets before any synthesis.
func (e *Engine) ComposeAndValidate(ctx context.Context, g *model.Graph, locations target.LocationVector, vars model.Valuation, zone *dbm.DBM) (*target.State, error) {
	_, span := e.tracer.StartSpan(ctx, telemetry.SpanCompose, telemetry.WithAttributes(
		telemetry.String(telemetry.KeyModel, g.Name),
		telemetry.Strings(telemetry.KeyLocations, locations),
	))
	state, err := target.Compose(g, locations, vars, zone)
	telemetry.End(span, err)
	return state, err
}

// Synthesize returns a sequence driving the zero zone into zone. Results
// are served from the cache when one is configured.
func (e *Engine) Synthesize(ctx context.Context, zone *dbm.DBM) (*synthesis.Result, error) {
	ctx, span := e.tracer.StartSpan(ctx, telemetry.SpanSynthesize, telemetry.WithAttributes(
		telemetry.String(telemetry.KeyStrategy, string(e.synthesizer.Strategy())),
	))
	res, cached, err := e.synthesize(ctx, zone)
	if err == nil {
		span.SetAttributes(
			telemetry.Int(telemetry.KeyClocks, len(res.Witness)),
			telemetry.Int(telemetry.KeySequenceLength, len(res.Sequence)),
			telemetry.Bool(telemetry.KeyExact, res.Exact),
			telemetry.Bool(telemetry.KeyCached, cached),
		)
		logging.Debug().
			Add(logging.Strategy(string(res.Strategy))).
			Add(logging.SequenceLength(len(res.Sequence))).
			Add(logging.Exact(res.Exact)).
			Add(logging.Cached(cached)).
			Msg("sequence synthesized")
	}
	telemetry.End(span, err)
	return res, err
}

func (e *Engine) synthesize(ctx context.Context, zone *dbm.DBM) (*synthesis.Result, bool, error) {
	if e.cache == nil || zone == nil || !zone.IsConsistent() {
		res, err := e.compute(ctx, zone)
		return res, false, err
	}

	key := cache.Key(e.synthesizer.Fingerprint(), zone.Canonical().String())
	if res, ok := e.lookup(ctx, key, zone); ok {
		e.metrics.RecordCacheLookup(ctx, true)
		return res, true, nil
	}
	e.metrics.RecordCacheLookup(ctx, false)

	res, err := e.compute(ctx, zone)
	if err != nil {
		return nil, false, err
	}
	e.remember(ctx, key, res)
	return res, false, nil
}

func (e *Engine) compute(ctx context.Context, zone *dbm.DBM) (*synthesis.Result, error) {
	start := time.Now()
	res, err := e.synthesizer.Synthesize(zone)
	if err != nil {
		e.metrics.RecordError(ctx, stageSynthesis)
		return nil, err
	}
	e.metrics.RecordSynthesis(ctx, string(res.Strategy), res.Exact, len(res.Sequence), time.Since(start))
	return res, nil
}

// lookup decodes a cached result and recomputes its zone, which is not
// stored. Unreadable entries count as misses.
func (e *Engine) lookup(ctx context.Context, key string, zone *dbm.DBM) (*synthesis.Result, bool) {
	var data []byte
	var found bool
	err := e.executor.Do(ctx, func(ctx context.Context) error {
		var err error
		data, found, err = e.cache.Get(ctx, key)
		return err
	})
	if err != nil {
		logging.Warn().Add(logging.Component("cache")).Add(logging.ErrorField(err)).Msg("cache lookup failed")
		return nil, false
	}
	if !found {
		return nil, false
	}

	var res synthesis.Result
	if err := json.Unmarshal(data, &res); err != nil {
		logging.Warn().Add(logging.Component("cache")).Add(logging.ErrorField(err)).Msg("discarding cached result")
		return nil, false
	}
	reached, err := replaySequence(zone.Clocks(), res.Sequence)
	if err != nil || !reached.IsConsistent() {
		logging.Warn().Add(logging.Component("cache")).Add(logging.ErrorField(err)).Msg("discarding cached result")
		return nil, false
	}
	res.Zone = reached
	return &res, true
}

func (e *Engine) remember(ctx context.Context, key string, res *synthesis.Result) {
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	err = e.executor.Do(ctx, func(ctx context.Context) error {
		return e.cache.Set(ctx, key, data, cache.SetOptions{TTL: e.cacheTTL})
	})
	if err != nil {
		logging.Warn().Add(logging.Component("cache")).Add(logging.ErrorField(err)).Msg("cache store failed")
	}
}

func replaySequence(clocks []string, seq sequence.Sequence) (*dbm.DBM, error) {
	zero, err := dbm.Zero(clocks...)
	if err != nil {
		return nil, err
	}
	return seq.Apply(zero)
}

// Adapt splices seq into g as an initialization path ending in state.
func (e *Engine) Adapt(ctx context.Context, g *model.Graph, state *target.State, seq sequence.Sequence) (*model.Graph, *adaptation.Path, error) {
	_, span := e.tracer.StartSpan(ctx, telemetry.SpanAdapt, telemetry.WithAttributes(
		telemetry.String(telemetry.KeyModel, g.Name),
		telemetry.Int(telemetry.KeySequenceLength, len(seq)),
	))
	adapted, path, err := e.adaptor.Adapt(g, state, seq)
	if err == nil {
		span.SetAttributes(telemetry.Int(telemetry.KeyInsertedEdges, path.Len()+len(path.Entries)))
	}
	telemetry.End(span, err)
	return adapted, path, err
}

// Verify replays the inserted path of g and checks that it arrives in
// state with a zone holding witness.
func (e *Engine) Verify(ctx context.Context, g *model.Graph, path *adaptation.Path, state *target.State, witness dbm.Valuation) (*statemachine.Outcome, error) {
	_, span := e.tracer.StartSpan(ctx, telemetry.SpanVerify, telemetry.WithAttributes(
		telemetry.String(telemetry.KeyModel, g.Name),
	))
	out, err := statemachine.Verify(g, path, state, witness)
	telemetry.End(span, err)
	return out, err
}
