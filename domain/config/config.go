// Package config provides domain models for tastate configuration.
package config

import "time"

// Config represents the complete tool configuration.
type Config struct {
	// Name is a human-readable name for this configuration.
	Name string `json:"name" yaml:"name"`
	// Version is the configuration schema version.
	Version string `json:"version" yaml:"version"`
	// Description describes what the configuration is used for.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Synthesis configures the sequence synthesizer.
	Synthesis SynthesisConfig `json:"synthesis,omitempty" yaml:"synthesis,omitempty"`
	// Adaptation configures the model adaptor.
	Adaptation AdaptationConfig `json:"adaptation,omitempty" yaml:"adaptation,omitempty"`
	// Batch configures parallel construction.
	Batch BatchConfig `json:"batch,omitempty" yaml:"batch,omitempty"`
	// Cache configures the synthesis result cache.
	Cache CacheConfig `json:"cache,omitempty" yaml:"cache,omitempty"`
	// Reports configures construction report persistence.
	Reports ReportsConfig `json:"reports,omitempty" yaml:"reports,omitempty"`
	// Export configures where adapted models are written.
	Export ExportConfig `json:"export,omitempty" yaml:"export,omitempty"`
	// Resilience configures retries and circuit breaking around storage.
	Resilience ResilienceConfig `json:"resilience,omitempty" yaml:"resilience,omitempty"`
	// Logging configures the global logger.
	Logging LoggingConfig `json:"logging,omitempty" yaml:"logging,omitempty"`
	// Telemetry configures tracing and metrics.
	Telemetry TelemetryConfig `json:"telemetry,omitempty" yaml:"telemetry,omitempty"`
}

// SynthesisConfig configures the sequence synthesizer.
type SynthesisConfig struct {
	// Strategy is the synthesis strategy (witness, zone).
	Strategy string `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	// ConstraintSystem selects the guards of the zone strategy (full, minimal, relative).
	ConstraintSystem string `json:"constraint_system,omitempty" yaml:"constraint_system,omitempty"`
	// MaxSteps bounds the number of synthesis steps (0 = unbounded).
	MaxSteps int `json:"max_steps,omitempty" yaml:"max_steps,omitempty"`
	// TimeLimit bounds synthesis wall time (0 = unbounded).
	TimeLimit Duration `json:"time_limit,omitempty" yaml:"time_limit,omitempty"`
	// Reduce shortens synthesized sequences when the reached zone is unchanged.
	Reduce bool `json:"reduce,omitempty" yaml:"reduce,omitempty"`
}

// AdaptationConfig configures the model adaptor.
type AdaptationConfig struct {
	// Prefix is prepended to every inserted identifier.
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	// Verify replays the inserted path after adaptation.
	Verify bool `json:"verify,omitempty" yaml:"verify,omitempty"`
}

// BatchConfig configures parallel construction.
type BatchConfig struct {
	// MaxConcurrent is the maximum number of constructions run at once.
	MaxConcurrent int `json:"max_concurrent,omitempty" yaml:"max_concurrent,omitempty"`
	// QueueTimeout bounds how long a construction waits for a free slot
	// (0 = until cancelled).
	QueueTimeout Duration `json:"queue_timeout,omitempty" yaml:"queue_timeout,omitempty"`
}

// CacheConfig configures the synthesis result cache.
type CacheConfig struct {
	// Enabled enables caching.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// Backend is the cache backend (memory, redis, badger, sqlite, dynamodb).
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`
	// MaxEntries bounds the in-memory cache (0 = unlimited).
	MaxEntries int `json:"max_entries,omitempty" yaml:"max_entries,omitempty"`
	// TTL is the lifetime of a cached result (0 = no expiration).
	TTL Duration `json:"ttl,omitempty" yaml:"ttl,omitempty"`
	// Redis configures the redis backend.
	Redis RedisConfig `json:"redis,omitempty" yaml:"redis,omitempty"`
	// DynamoDB configures the dynamodb backend.
	DynamoDB DynamoDBConfig `json:"dynamodb,omitempty" yaml:"dynamodb,omitempty"`
	// Path is the database path for the badger and sqlite backends.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// RedisConfig configures a redis connection.
type RedisConfig struct {
	// Addr is the host:port of the server.
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
	// Password is the optional server password.
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	// DB is the database number.
	DB int `json:"db,omitempty" yaml:"db,omitempty"`
	// KeyPrefix namespaces every key (default "tastate:").
	KeyPrefix string `json:"key_prefix,omitempty" yaml:"key_prefix,omitempty"`
	// PoolSize bounds the connection pool (0 = client default).
	PoolSize int `json:"pool_size,omitempty" yaml:"pool_size,omitempty"`
	// Timeout bounds each dial and socket operation (0 = 3s).
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// DynamoDBConfig configures a DynamoDB table used as a cache.
type DynamoDBConfig struct {
	// Table is the cache table name.
	Table string `json:"table,omitempty" yaml:"table,omitempty"`
	// Region is the AWS region.
	Region string `json:"region,omitempty" yaml:"region,omitempty"`
	// Endpoint overrides the service endpoint (DynamoDB Local).
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	// CreateTable creates the table when it is missing.
	CreateTable bool `json:"create_table,omitempty" yaml:"create_table,omitempty"`
}

// ReportsConfig configures construction report persistence.
type ReportsConfig struct {
	// Backend is the report store (memory, sqlite, postgres, mongodb).
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`
	// Path is the database path for the sqlite backend.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
	// DSN is the connection string for the postgres backend.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	// MongoDB configures the mongodb backend.
	MongoDB MongoDBConfig `json:"mongodb,omitempty" yaml:"mongodb,omitempty"`
}

// MongoDBConfig configures a mongodb connection.
type MongoDBConfig struct {
	// URI is the connection URI.
	URI string `json:"uri,omitempty" yaml:"uri,omitempty"`
	// Database is the database name.
	Database string `json:"database,omitempty" yaml:"database,omitempty"`
	// Collection is the report collection name.
	Collection string `json:"collection,omitempty" yaml:"collection,omitempty"`
}

// ExportConfig configures where adapted models are written.
type ExportConfig struct {
	// Backend is the artifact store (none, filesystem, gcs, s3, azure).
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`
	// Directory is the base directory for the filesystem backend.
	Directory string `json:"directory,omitempty" yaml:"directory,omitempty"`
	// Bucket is the bucket for the gcs and s3 backends and the container
	// for azure.
	Bucket string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	// Prefix is the object key prefix for the object backends.
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	// Region is the AWS region for the s3 backend.
	Region string `json:"region,omitempty" yaml:"region,omitempty"`
	// Account is the Azure storage account name.
	Account string `json:"account,omitempty" yaml:"account,omitempty"`
	// ConnectionString authenticates the azure backend. Usually given as
	// ${AZURE_STORAGE_CONNECTION_STRING}.
	ConnectionString string `json:"connection_string,omitempty" yaml:"connection_string,omitempty"`
	// Endpoint overrides the storage endpoint (S3-compatible stores, GCS emulators, Azurite).
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	// Format is the model file format (yaml, json).
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// ResilienceConfig contains resilience settings.
type ResilienceConfig struct {
	// Timeout bounds one storage operation.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// Retry configures retry behavior.
	Retry RetryConfig `json:"retry,omitempty" yaml:"retry,omitempty"`
	// CircuitBreaker configures circuit breaker behavior.
	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker,omitempty" yaml:"circuit_breaker,omitempty"`
}

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// Enabled enables retry.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// MaxAttempts is the maximum retry attempts.
	MaxAttempts int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	// InitialDelay is the first retry delay.
	InitialDelay Duration `json:"initial_delay,omitempty" yaml:"initial_delay,omitempty"`
	// Multiplier is the backoff multiplier.
	Multiplier float64 `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
}

// CircuitBreakerConfig configures circuit breaker behavior.
type CircuitBreakerConfig struct {
	// Threshold is failures before opening.
	Threshold int `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	// Timeout is how long the circuit stays open.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	// Level is the minimum level (trace, debug, info, warn, error).
	Level string `json:"level,omitempty" yaml:"level,omitempty"`
	// Format is the output format (json, console).
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// TelemetryConfig configures tracing and metrics.
type TelemetryConfig struct {
	// Enabled enables tracing and metrics.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// Exporter is the span exporter (stdout, otlp).
	Exporter string `json:"exporter,omitempty" yaml:"exporter,omitempty"`
	// Endpoint is the OTLP collector endpoint.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	// Insecure disables TLS to the collector.
	Insecure bool `json:"insecure,omitempty" yaml:"insecure,omitempty"`
	// ServiceName identifies this process in traces.
	ServiceName string `json:"service_name,omitempty" yaml:"service_name,omitempty"`
	// Environment is the deployment environment recorded on every span.
	Environment string `json:"environment,omitempty" yaml:"environment,omitempty"`
	// SampleRate is the fraction of traces sampled (0 to 1).
	SampleRate float64 `json:"sample_rate,omitempty" yaml:"sample_rate,omitempty"`
}

// Duration is a time.Duration that supports JSON/YAML string representation.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}

	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
