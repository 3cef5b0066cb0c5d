package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	// Path is the dotted path to the invalid field.
	Path string
	// Message describes the validation error.
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(e), strings.Join(msgs, "\n  - "))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Accepted values per enumerated setting. The empty string always means
// "use the default".
var (
	Strategies        = []string{"witness", "zone"}
	ConstraintSystems = []string{"full", "minimal", "relative"}
	CacheBackends     = []string{"memory", "redis", "badger", "sqlite", "dynamodb"}
	ReportBackends    = []string{"memory", "sqlite", "postgres", "mongodb"}
	ExportBackends    = []string{"none", "filesystem", "gcs", "s3", "azure"}
	ExportFormats     = []string{"yaml", "json"}
	LogLevels         = []string{"trace", "debug", "info", "warn", "error"}
	LogFormats        = []string{"json", "console"}
	SpanExporters     = []string{"stdout", "otlp"}
)

// Validator validates tool configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates the configuration and returns any errors.
func (v *Validator) Validate(config *Config) ValidationErrors {
	v.errors = nil

	v.validateRequired(config)
	v.validateSynthesis(config)
	v.validateAdaptation(config)
	v.validateCache(config)
	v.validateReports(config)
	v.validateExport(config)
	v.validateResilience(config)
	v.validateLogging(config)
	v.validateTelemetry(config)

	return v.errors
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}

func (v *Validator) oneOf(path, value string, allowed []string) {
	if value == "" {
		return
	}
	for _, a := range allowed {
		if strings.EqualFold(value, a) {
			return
		}
	}
	v.addError(path, fmt.Sprintf("invalid value %q (want one of %s)", value, strings.Join(allowed, ", ")))
}

func (v *Validator) validateRequired(config *Config) {
	if config.Name == "" {
		v.addError("name", "name is required")
	}
	if config.Version == "" {
		v.addError("version", "version is required")
	}
}

func (v *Validator) validateSynthesis(config *Config) {
	s := config.Synthesis
	v.oneOf("synthesis.strategy", s.Strategy, Strategies)
	v.oneOf("synthesis.constraint_system", s.ConstraintSystem, ConstraintSystems)
	if s.MaxSteps < 0 {
		v.addError("synthesis.max_steps", "max_steps must be non-negative")
	}
	if s.TimeLimit < 0 {
		v.addError("synthesis.time_limit", "time_limit must be non-negative")
	}
}

func (v *Validator) validateAdaptation(config *Config) {
	for _, r := range config.Adaptation.Prefix {
		if r != '_' && (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			v.addError("adaptation.prefix", "prefix may only contain letters, digits and underscores")
			break
		}
	}
	if config.Batch.MaxConcurrent < 0 {
		v.addError("batch.max_concurrent", "max_concurrent must be non-negative")
	}
	if config.Batch.QueueTimeout < 0 {
		v.addError("batch.queue_timeout", "queue_timeout must be non-negative")
	}
}

func (v *Validator) validateCache(config *Config) {
	c := config.Cache
	if !c.Enabled {
		return
	}
	v.oneOf("cache.backend", c.Backend, CacheBackends)
	if c.MaxEntries < 0 {
		v.addError("cache.max_entries", "max_entries must be non-negative")
	}
	switch strings.ToLower(c.Backend) {
	case "redis":
		if c.Redis.Addr == "" {
			v.addError("cache.redis.addr", "addr is required for redis backend")
		}
		if c.Redis.PoolSize < 0 || c.Redis.Timeout < 0 {
			v.addError("cache.redis", "pool_size and timeout must be non-negative")
		}
	case "sqlite":
		if c.Path == "" {
			v.addError("cache.path", "path is required for sqlite backend")
		}
	}
}

func (v *Validator) validateReports(config *Config) {
	r := config.Reports
	v.oneOf("reports.backend", r.Backend, ReportBackends)
	switch strings.ToLower(r.Backend) {
	case "sqlite":
		if r.Path == "" {
			v.addError("reports.path", "path is required for sqlite backend")
		}
	case "postgres":
		if r.DSN == "" {
			v.addError("reports.dsn", "dsn is required for postgres backend")
		}
	case "mongodb":
		if r.MongoDB.URI == "" {
			v.addError("reports.mongodb.uri", "uri is required for mongodb backend")
		}
	}
}

func (v *Validator) validateExport(config *Config) {
	e := config.Export
	v.oneOf("export.backend", e.Backend, ExportBackends)
	v.oneOf("export.format", e.Format, ExportFormats)
	switch strings.ToLower(e.Backend) {
	case "filesystem":
		if e.Directory == "" {
			v.addError("export.directory", "directory is required for filesystem backend")
		}
	case "gcs", "s3":
		if e.Bucket == "" {
			v.addError("export.bucket", "bucket is required for "+strings.ToLower(e.Backend)+" backend")
		}
	case "azure":
		if e.Bucket == "" {
			v.addError("export.bucket", "container is required for azure backend")
		}
		if e.Account == "" && e.ConnectionString == "" {
			v.addError("export.account", "account or connection_string is required for azure backend")
		}
	}
}

func (v *Validator) validateResilience(config *Config) {
	r := config.Resilience
	if r.Timeout < 0 {
		v.addError("resilience.timeout", "timeout must be non-negative")
	}
	if r.Retry.Enabled {
		if r.Retry.MaxAttempts <= 0 {
			v.addError("resilience.retry.max_attempts", "max_attempts must be positive when enabled")
		}
		if r.Retry.Multiplier < 1 {
			v.addError("resilience.retry.multiplier", "multiplier must be >= 1")
		}
	}
	if r.CircuitBreaker.Threshold < 0 {
		v.addError("resilience.circuit_breaker.threshold", "threshold must be non-negative")
	}
}

func (v *Validator) validateLogging(config *Config) {
	v.oneOf("logging.level", config.Logging.Level, LogLevels)
	v.oneOf("logging.format", config.Logging.Format, LogFormats)
}

func (v *Validator) validateTelemetry(config *Config) {
	t := config.Telemetry
	if !t.Enabled {
		return
	}
	v.oneOf("telemetry.exporter", t.Exporter, SpanExporters)
	if strings.EqualFold(t.Exporter, "otlp") && t.Endpoint == "" {
		v.addError("telemetry.endpoint", "endpoint is required for otlp exporter")
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		v.addError("telemetry.sample_rate", "sample_rate must be between 0 and 1")
	}
}
