package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/tastate/domain/adaptation"
	"github.com/felixgeelhaar/tastate/domain/artifact"
	"github.com/felixgeelhaar/tastate/domain/cache"
	domainconfig "github.com/felixgeelhaar/tastate/domain/config"
	"github.com/felixgeelhaar/tastate/domain/construction"
	"github.com/felixgeelhaar/tastate/domain/synthesis"
	"github.com/felixgeelhaar/tastate/infrastructure/resilience"
	"github.com/felixgeelhaar/tastate/infrastructure/storage/azblob"
	"github.com/felixgeelhaar/tastate/infrastructure/storage/badger"
	"github.com/felixgeelhaar/tastate/infrastructure/storage/dynamodb"
	"github.com/felixgeelhaar/tastate/infrastructure/storage/filesystem"
	"github.com/felixgeelhaar/tastate/infrastructure/storage/gcs"
	"github.com/felixgeelhaar/tastate/infrastructure/storage/memory"
	"github.com/felixgeelhaar/tastate/infrastructure/storage/mongodb"
	"github.com/felixgeelhaar/tastate/infrastructure/storage/objectstore"
	"github.com/felixgeelhaar/tastate/infrastructure/storage/postgres"
	"github.com/felixgeelhaar/tastate/infrastructure/storage/redis"
	"github.com/felixgeelhaar/tastate/infrastructure/storage/s3"
	"github.com/felixgeelhaar/tastate/infrastructure/storage/sqlite"
)

// Defaults returns the configuration used for every key a file leaves out.
func Defaults() *domainconfig.Config {
	return &domainconfig.Config{
		Name:    "tastate",
		Version: "1.0",
		Synthesis: domainconfig.SynthesisConfig{
			Strategy:         string(synthesis.StrategyWitness),
			ConstraintSystem: string(synthesis.SystemMinimal),
		},
		Adaptation: domainconfig.AdaptationConfig{
			Prefix: adaptation.DefaultPrefix,
			Verify: true,
		},
		Batch: domainconfig.BatchConfig{
			MaxConcurrent: 4,
		},
		Cache: domainconfig.CacheConfig{
			Enabled:    true,
			Backend:    "memory",
			MaxEntries: 1024,
		},
		Reports: domainconfig.ReportsConfig{
			Backend: "memory",
		},
		Export: domainconfig.ExportConfig{
			Backend: "none",
			Format:  "yaml",
		},
		Resilience: domainconfig.ResilienceConfig{
			Timeout: domainconfig.Duration(30 * time.Second),
			Retry: domainconfig.RetryConfig{
				Enabled:      true,
				MaxAttempts:  3,
				InitialDelay: domainconfig.Duration(100 * time.Millisecond),
				Multiplier:   2.0,
			},
			CircuitBreaker: domainconfig.CircuitBreakerConfig{
				Threshold: 5,
				Timeout:   domainconfig.Duration(30 * time.Second),
			},
		},
		Logging: domainconfig.LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Telemetry: domainconfig.TelemetryConfig{
			Exporter:    "stdout",
			ServiceName: "tastate",
			SampleRate:  1.0,
		},
	}
}

// Builder opens the backends a configuration selects.
type Builder struct {
	config *domainconfig.Config
}

// NewBuilder creates a new configuration builder.
func NewBuilder(config *domainconfig.Config) *Builder {
	if config == nil {
		config = Defaults()
	}
	return &Builder{config: config}
}

// BuildResult contains the components built from configuration. Close
// releases every connection the build opened.
type BuildResult struct {
	// Cache stores synthesis results; nil when caching is disabled.
	Cache cache.Cache
	// CacheTTL is the lifetime of a cached result.
	CacheTTL time.Duration
	// Reports persists construction reports.
	Reports construction.Store
	// Artifacts receives adapted models; nil when export is disabled.
	Artifacts artifact.Store
	// ExportFormat is the model file format written to Artifacts.
	ExportFormat string
	// Executor guards storage and export I/O.
	Executor *resilience.Executor
	// Synthesis configures the sequence synthesizer.
	Synthesis []synthesis.Option
	// Adaptation configures the model adaptor.
	Adaptation []adaptation.Option
	// Verify enables replay of the inserted path.
	Verify bool
	// BatchSize bounds parallel constructions.
	BatchSize int
	// BatchQueueTimeout bounds the wait for a batch slot.
	BatchQueueTimeout time.Duration

	closers []func() error
}

// Close releases the opened backends in reverse order.
func (r *BuildResult) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

func (r *BuildResult) onClose(fn func() error) {
	r.closers = append(r.closers, fn)
}

// Build opens the configured backends. On failure every backend opened so
// far is closed again.
func (b *Builder) Build(ctx context.Context) (*BuildResult, error) {
	result := &BuildResult{
		CacheTTL:          b.config.Cache.TTL.Duration(),
		ExportFormat:      strings.ToLower(b.config.Export.Format),
		Executor:          b.buildExecutor(),
		Synthesis:         b.buildSynthesis(),
		Adaptation:        b.buildAdaptation(),
		Verify:            b.config.Adaptation.Verify,
		BatchSize:         b.config.Batch.MaxConcurrent,
		BatchQueueTimeout: b.config.Batch.QueueTimeout.Duration(),
	}
	if result.ExportFormat == "" {
		result.ExportFormat = "yaml"
	}

	steps := []func(context.Context, *BuildResult) error{
		b.buildCache,
		b.buildReports,
		b.buildArtifacts,
	}
	for _, step := range steps {
		if err := step(ctx, result); err != nil {
			_ = result.Close()
			return nil, err
		}
	}
	return result, nil
}

func (b *Builder) buildExecutor() *resilience.Executor {
	return resilience.NewExecutor(resilience.FromConfig(b.config.Resilience, b.config.Batch.MaxConcurrent))
}

func (b *Builder) buildSynthesis() []synthesis.Option {
	s := b.config.Synthesis
	var opts []synthesis.Option
	if s.Strategy != "" {
		opts = append(opts, synthesis.WithStrategy(synthesis.Strategy(strings.ToLower(s.Strategy))))
	}
	if s.ConstraintSystem != "" {
		opts = append(opts, synthesis.WithConstraintSystem(synthesis.ConstraintSystem(strings.ToLower(s.ConstraintSystem))))
	}
	if s.MaxSteps > 0 {
		opts = append(opts, synthesis.WithMaxSteps(s.MaxSteps))
	}
	if s.TimeLimit > 0 {
		opts = append(opts, synthesis.WithTimeLimit(s.TimeLimit.Duration()))
	}
	if s.Reduce {
		opts = append(opts, synthesis.WithReduction())
	}
	return opts
}

func (b *Builder) buildAdaptation() []adaptation.Option {
	if p := b.config.Adaptation.Prefix; p != "" {
		return []adaptation.Option{adaptation.WithPrefix(p)}
	}
	return nil
}

func (b *Builder) buildCache(ctx context.Context, result *BuildResult) error {
	c := b.config.Cache
	if !c.Enabled {
		return nil
	}

	switch strings.ToLower(c.Backend) {
	case "", "memory":
		result.Cache = memory.NewCache(memory.WithMaxSize(c.MaxEntries))

	case "redis":
		rc, err := redis.NewCache(ctx, c.Redis, c.TTL.Duration())
		if err != nil {
			return fmt.Errorf("%w: redis cache: %w", domainconfig.ErrBuildFailed, err)
		}
		result.Cache = rc
		result.onClose(rc.Close)

	case "badger":
		opt := badger.WithInMemory()
		if c.Path != "" {
			opt = badger.WithDir(c.Path)
		}
		bc, err := badger.NewCache(badger.DefaultConfig(), opt)
		if err != nil {
			return fmt.Errorf("%w: badger cache: %w", domainconfig.ErrBuildFailed, err)
		}
		result.Cache = bc
		result.onClose(bc.Close)

	case "sqlite":
		sc, err := sqlite.NewCache(sqlite.FileConfig(c.Path))
		if err != nil {
			return fmt.Errorf("%w: sqlite cache: %w", domainconfig.ErrBuildFailed, err)
		}
		result.Cache = sc
		result.onClose(sc.Close)

	case "dynamodb":
		d := c.DynamoDB
		opts := []dynamodb.ConfigOption{
			dynamodb.WithTableName(d.Table),
			dynamodb.WithRegion(d.Region),
			dynamodb.WithEndpoint(d.Endpoint),
			dynamodb.WithQueryTimeout(b.config.Resilience.Timeout.Duration()),
		}
		if d.CreateTable {
			opts = append(opts, dynamodb.WithCreateTable())
		}
		dc, err := dynamodb.NewCache(ctx, dynamodb.DefaultConfig(), opts...)
		if err != nil {
			return fmt.Errorf("%w: dynamodb cache: %w", domainconfig.ErrBuildFailed, err)
		}
		result.Cache = dc
		result.onClose(dc.Close)

	default:
		return fmt.Errorf("%w: cache backend %q", domainconfig.ErrUnknownBackend, c.Backend)
	}
	return nil
}

func (b *Builder) buildReports(ctx context.Context, result *BuildResult) error {
	r := b.config.Reports

	switch strings.ToLower(r.Backend) {
	case "", "memory":
		result.Reports = memory.NewReportStore()

	case "sqlite":
		store, err := sqlite.NewReportStore(sqlite.FileConfig(r.Path))
		if err != nil {
			return fmt.Errorf("%w: sqlite reports: %w", domainconfig.ErrBuildFailed, err)
		}
		result.Reports = store
		result.onClose(store.Close)

	case "postgres":
		pool, err := postgres.NewPool(ctx, postgres.DefaultConfig(), postgres.WithDSN(r.DSN))
		if err != nil {
			return fmt.Errorf("%w: postgres reports: %w", domainconfig.ErrBuildFailed, err)
		}
		store := postgres.NewReportStore(pool, "")
		result.onClose(store.Close)
		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("%w: postgres migrate: %w", domainconfig.ErrBuildFailed, err)
		}
		result.Reports = store

	case "mongodb":
		opts := []mongodb.ConfigOption{mongodb.WithURI(r.MongoDB.URI)}
		if r.MongoDB.Database != "" {
			opts = append(opts, mongodb.WithDatabase(r.MongoDB.Database))
		}
		client, err := mongodb.NewClient(ctx, opts...)
		if err != nil {
			return fmt.Errorf("%w: mongodb reports: %w", domainconfig.ErrBuildFailed, err)
		}
		result.onClose(func() error {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return client.Close(closeCtx)
		})
		store := mongodb.NewReportStore(client, r.MongoDB.Collection)
		if err := client.CreateIndexes(ctx, store.CollectionName()); err != nil {
			return fmt.Errorf("%w: mongodb indexes: %w", domainconfig.ErrBuildFailed, err)
		}
		result.Reports = store

	default:
		return fmt.Errorf("%w: report backend %q", domainconfig.ErrUnknownBackend, r.Backend)
	}
	return nil
}

func (b *Builder) buildArtifacts(ctx context.Context, result *BuildResult) error {
	e := b.config.Export

	var bucket objectstore.Bucket
	switch strings.ToLower(e.Backend) {
	case "", "none":
		return nil

	case "filesystem":
		store, err := filesystem.NewArtifactStore(e.Directory)
		if err != nil {
			return fmt.Errorf("%w: filesystem export: %w", domainconfig.ErrBuildFailed, err)
		}
		result.Artifacts = store
		return nil

	case "gcs":
		gb, err := gcs.NewBucket(ctx, gcs.Config{Bucket: e.Bucket, Endpoint: e.Endpoint})
		if err != nil {
			return fmt.Errorf("%w: gcs export: %w", domainconfig.ErrBuildFailed, err)
		}
		result.onClose(gb.Close)
		bucket = gb

	case "s3":
		sb, err := s3.NewBucket(ctx, s3.Config{Bucket: e.Bucket, Region: e.Region, Endpoint: e.Endpoint})
		if err != nil {
			return fmt.Errorf("%w: s3 export: %w", domainconfig.ErrBuildFailed, err)
		}
		bucket = sb

	case "azure":
		ab, err := azblob.NewBucket(ctx, azblob.Config{
			Container:        e.Bucket,
			Account:          e.Account,
			ConnectionString: e.ConnectionString,
			Endpoint:         e.Endpoint,
		})
		if err != nil {
			return fmt.Errorf("%w: azure export: %w", domainconfig.ErrBuildFailed, err)
		}
		bucket = ab

	default:
		return fmt.Errorf("%w: export backend %q", domainconfig.ErrUnknownBackend, e.Backend)
	}

	store, err := objectstore.NewArtifactStore(bucket, e.Prefix)
	if err != nil {
		return fmt.Errorf("%w: %s export: %w", domainconfig.ErrBuildFailed, e.Backend, err)
	}
	result.Artifacts = store
	return nil
}
