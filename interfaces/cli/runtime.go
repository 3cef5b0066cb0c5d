package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/tastate/application"
	domainconfig "github.com/felixgeelhaar/tastate/domain/config"
	infraconfig "github.com/felixgeelhaar/tastate/infrastructure/config"
	"github.com/felixgeelhaar/tastate/infrastructure/logging"
	"github.com/felixgeelhaar/tastate/infrastructure/observability"
	infratelemetry "github.com/felixgeelhaar/tastate/infrastructure/telemetry"
)

// runtime holds the engine and every backend a command opened for it.
type runtime struct {
	config   *domainconfig.Config
	engine   *application.Engine
	build    *infraconfig.BuildResult
	provider *observability.Provider
}

// loadConfig reads the --config file, or returns the defaults.
func (a *App) loadConfig(strict bool) (*domainconfig.Config, error) {
	if a.opts.configPath == "" {
		return infraconfig.Defaults(), nil
	}
	loader := infraconfig.NewLoaderWithOptions(
		infraconfig.WithEnvExpansion(true),
		infraconfig.WithStrictEnv(strict),
		infraconfig.WithValidation(true),
	)
	cfg, err := loader.LoadFile(a.opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

// setup loads the configuration, applies overrides and wires the engine.
func (a *App) setup(ctx context.Context, overrides ...func(*domainconfig.Config)) (*runtime, error) {
	cfg, err := a.loadConfig(false)
	if err != nil {
		return nil, err
	}
	for _, o := range overrides {
		o(cfg)
	}
	a.initLogging(cfg.Logging)

	build, err := infraconfig.NewBuilder(cfg).Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("build configuration: %w", err)
	}

	obsOpts := append(observability.FromConfig(cfg.Telemetry), observability.WithServiceVersion(Version))
	provider, err := observability.New(obsOpts...)
	if err != nil {
		_ = build.Close()
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	metricsCfg := infratelemetry.DefaultMetricsConfig()
	metricsCfg.MeterProvider = provider.MeterProvider()
	metrics := infratelemetry.NewMetricsProvider(metricsCfg)
	if err := metrics.Error(); err != nil {
		logging.Warn().Add(logging.Component("cli")).Add(logging.ErrorField(err)).Msg("metrics disabled")
	}

	opts := append(application.FromBuild(build),
		application.WithTracer(provider.Tracer()),
		application.WithMetrics(metrics),
	)
	engine, err := application.NewEngineWithOptions(opts...)
	if err != nil {
		_ = provider.Shutdown(ctx)
		_ = build.Close()
		return nil, err
	}

	return &runtime{
		config:   cfg,
		engine:   engine,
		build:    build,
		provider: provider,
	}, nil
}

// initLogging applies the logging section, with flags taking precedence.
func (a *App) initLogging(cfg domainconfig.LoggingConfig) {
	lc := logging.DefaultConfig()
	lc.Output = a.stderr
	if cfg.Level != "" {
		lc.Level = cfg.Level
	}
	if cfg.Format != "" {
		lc.Format = cfg.Format
	}
	if a.opts.logLevel != "" {
		lc.Level = a.opts.logLevel
	}
	if a.opts.logFormat != "" {
		lc.Format = a.opts.logFormat
	}
	logging.Init(lc)
	logging.SetLevel(lc.Level)
}

// close flushes telemetry and releases the backends.
func (r *runtime) close(ctx context.Context) error {
	return errors.Join(
		r.provider.Shutdown(context.WithoutCancel(ctx)),
		r.build.Close(),
	)
}
