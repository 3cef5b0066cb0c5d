package application

import (
	"time"

	"github.com/felixgeelhaar/tastate/domain/adaptation"
	"github.com/felixgeelhaar/tastate/domain/artifact"
	"github.com/felixgeelhaar/tastate/domain/cache"
	"github.com/felixgeelhaar/tastate/domain/construction"
	"github.com/felixgeelhaar/tastate/domain/synthesis"
	"github.com/felixgeelhaar/tastate/domain/telemetry"
	infraconfig "github.com/felixgeelhaar/tastate/infrastructure/config"
	"github.com/felixgeelhaar/tastate/infrastructure/resilience"
	infratelemetry "github.com/felixgeelhaar/tastate/infrastructure/telemetry"
)

// Option configures the engine.
type Option func(*EngineConfig)

// WithSynthesis appends synthesizer options.
func WithSynthesis(opts ...synthesis.Option) Option {
	return func(c *EngineConfig) {
		c.Synthesis = append(c.Synthesis, opts...)
	}
}

// WithAdaptation appends adaptor options.
func WithAdaptation(opts ...adaptation.Option) Option {
	return func(c *EngineConfig) {
		c.Adaptation = append(c.Adaptation, opts...)
	}
}

// WithCache sets the synthesis result cache and the lifetime of its entries.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(cfg *EngineConfig) {
		cfg.Cache = c
		cfg.CacheTTL = ttl
	}
}

// WithReportStore sets the construction report store.
func WithReportStore(s construction.Store) Option {
	return func(c *EngineConfig) {
		c.Reports = s
	}
}

// WithArtifactStore sets where adapted models are exported, and their format.
func WithArtifactStore(s artifact.Store, format string) Option {
	return func(c *EngineConfig) {
		c.Artifacts = s
		c.ExportFormat = format
	}
}

// WithExecutor sets the resilient executor used for storage I/O.
func WithExecutor(e *resilience.Executor) Option {
	return func(c *EngineConfig) {
		c.Executor = e
	}
}

// WithTracer sets the tracer.
func WithTracer(t telemetry.Tracer) Option {
	return func(c *EngineConfig) {
		c.Tracer = t
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m infratelemetry.Metrics) Option {
	return func(c *EngineConfig) {
		c.Metrics = m
	}
}

// WithVerification enables or disables replaying inserted paths.
func WithVerification(enabled bool) Option {
	return func(c *EngineConfig) {
		c.SkipVerify = !enabled
	}
}

// WithBatchSize bounds the number of concurrent constructions in ConstructAll.
func WithBatchSize(n int) Option {
	return func(c *EngineConfig) {
		c.BatchSize = n
	}
}

// WithBatchQueueTimeout bounds how long a request in ConstructAll waits for
// a free slot before failing with resilience.ErrPoolSaturated.
func WithBatchQueueTimeout(d time.Duration) Option {
	return func(c *EngineConfig) {
		c.BatchQueueTimeout = d
	}
}

// FromBuild returns the options that wire the backends of a built configuration.
func FromBuild(r *infraconfig.BuildResult) []Option {
	opts := []Option{
		WithSynthesis(r.Synthesis...),
		WithAdaptation(r.Adaptation...),
		WithReportStore(r.Reports),
		WithExecutor(r.Executor),
		WithVerification(r.Verify),
		WithBatchSize(r.BatchSize),
		WithBatchQueueTimeout(r.BatchQueueTimeout),
	}
	if r.Cache != nil {
		opts = append(opts, WithCache(r.Cache, r.CacheTTL))
	}
	if r.Artifacts != nil {
		opts = append(opts, WithArtifactStore(r.Artifacts, r.ExportFormat))
	}
	return opts
}

// NewEngineWithOptions creates an engine with functional options.
func NewEngineWithOptions(opts ...Option) (*Engine, error) {
	config := EngineConfig{}
	for _, opt := range opts {
		opt(&config)
	}
	return NewEngine(config)
}
