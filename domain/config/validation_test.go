package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{Name: "lab", Version: "1.0"}
}

func TestValidator_ValidateMinimal(t *testing.T) {
	t.Parallel()

	if errs := NewValidator().Validate(validConfig()); errs.HasErrors() {
		t.Errorf("expected no errors, got: %v", errs)
	}
}

func TestValidator_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		mutate       func(*Config)
		wantErrPaths []string
	}{
		{
			name:         "missing name and version",
			mutate:       func(c *Config) { c.Name, c.Version = "", "" },
			wantErrPaths: []string{"name", "version"},
		},
		{
			name: "unknown strategy",
			mutate: func(c *Config) {
				c.Synthesis.Strategy = "greedy"
				c.Synthesis.ConstraintSystem = "partial"
			},
			wantErrPaths: []string{"synthesis.strategy", "synthesis.constraint_system"},
		},
		{
			name: "relative constraint system",
			mutate: func(c *Config) {
				c.Synthesis.Strategy = "zone"
				c.Synthesis.ConstraintSystem = "relative"
			},
			wantErrPaths: nil,
		},
		{
			name:         "strategy case insensitive",
			mutate:       func(c *Config) { c.Synthesis.Strategy = "Zone" },
			wantErrPaths: nil,
		},
		{
			name: "negative bounds",
			mutate: func(c *Config) {
				c.Synthesis.MaxSteps = -1
				c.Synthesis.TimeLimit = -1
				c.Batch.MaxConcurrent = -2
				c.Batch.QueueTimeout = -1
			},
			wantErrPaths: []string{"synthesis.max_steps", "synthesis.time_limit", "batch.max_concurrent", "batch.queue_timeout"},
		},
		{
			name:         "prefix characters",
			mutate:       func(c *Config) { c.Adaptation.Prefix = "sc-" },
			wantErrPaths: []string{"adaptation.prefix"},
		},
		{
			name: "disabled cache is not checked",
			mutate: func(c *Config) {
				c.Cache.Backend = "memcached"
			},
			wantErrPaths: nil,
		},
		{
			name: "redis cache without addr",
			mutate: func(c *Config) {
				c.Cache.Enabled = true
				c.Cache.Backend = "redis"
			},
			wantErrPaths: []string{"cache.redis.addr"},
		},
		{
			name: "sqlite cache without path",
			mutate: func(c *Config) {
				c.Cache.Enabled = true
				c.Cache.Backend = "sqlite"
			},
			wantErrPaths: []string{"cache.path"},
		},
		{
			name: "report backends",
			mutate: func(c *Config) {
				c.Reports.Backend = "postgres"
			},
			wantErrPaths: []string{"reports.dsn"},
		},
		{
			name: "mongodb reports without uri",
			mutate: func(c *Config) {
				c.Reports.Backend = "mongodb"
			},
			wantErrPaths: []string{"reports.mongodb.uri"},
		},
		{
			name: "export without bucket",
			mutate: func(c *Config) {
				c.Export.Backend = "s3"
				c.Export.Format = "xml"
			},
			wantErrPaths: []string{"export.bucket", "export.format"},
		},
		{
			name: "azure export without container or account",
			mutate: func(c *Config) {
				c.Export.Backend = "azure"
			},
			wantErrPaths: []string{"export.bucket", "export.account"},
		},
		{
			name: "azure export with connection string",
			mutate: func(c *Config) {
				c.Export.Backend = "azure"
				c.Export.Bucket = "models"
				c.Export.ConnectionString = "UseDevelopmentStorage=true"
			},
		},
		{
			name: "filesystem export without directory",
			mutate: func(c *Config) {
				c.Export.Backend = "filesystem"
			},
			wantErrPaths: []string{"export.directory"},
		},
		{
			name: "retry enabled without attempts",
			mutate: func(c *Config) {
				c.Resilience.Retry.Enabled = true
			},
			wantErrPaths: []string{"resilience.retry.max_attempts", "resilience.retry.multiplier"},
		},
		{
			name: "logging",
			mutate: func(c *Config) {
				c.Logging.Level = "verbose"
				c.Logging.Format = "text"
			},
			wantErrPaths: []string{"logging.level", "logging.format"},
		},
		{
			name: "otlp without endpoint",
			mutate: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.Exporter = "otlp"
				c.Telemetry.SampleRate = 2
			},
			wantErrPaths: []string{"telemetry.endpoint", "telemetry.sample_rate"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(cfg)
			errs := NewValidator().Validate(cfg)
			assertErrorPaths(t, errs, tt.wantErrPaths)
		})
	}
}

func TestValidationErrors_Error(t *testing.T) {
	t.Parallel()

	if got := (ValidationErrors{}).Error(); got != "no validation errors" {
		t.Errorf("empty Error() = %q", got)
	}

	one := ValidationErrors{{Path: "name", Message: "name is required"}}
	if got := one.Error(); got != "name: name is required" {
		t.Errorf("single Error() = %q", got)
	}

	two := append(one, ValidationError{Message: "bare"})
	if got := two.Error(); !strings.HasPrefix(got, "2 validation errors:") || !strings.Contains(got, "  - bare") {
		t.Errorf("multi Error() = %q", got)
	}
}

func assertErrorPaths(t *testing.T, errs ValidationErrors, wantPaths []string) {
	t.Helper()

	if len(errs) != len(wantPaths) {
		t.Errorf("got %d errors, want %d:\n%v", len(errs), len(wantPaths), errs)
		return
	}

	for _, wantPath := range wantPaths {
		found := false
		for _, err := range errs {
			if err.Path == wantPath {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing expected error path %q in errors:\n%v", wantPath, errs)
		}
	}
}
