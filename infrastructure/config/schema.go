package config

import (
	"encoding/json"

	domainconfig "github.com/felixgeelhaar/tastate/domain/config"
)

// JSONSchema represents a JSON Schema document.
type JSONSchema struct {
	Schema               string                 `json:"$schema,omitempty"`
	ID                   string                 `json:"$id,omitempty"`
	Title                string                 `json:"title,omitempty"`
	Description          string                 `json:"description,omitempty"`
	Type                 string                 `json:"type,omitempty"`
	Properties           map[string]*JSONSchema `json:"properties,omitempty"`
	Required             []string               `json:"required,omitempty"`
	Items                *JSONSchema            `json:"items,omitempty"`
	AdditionalProperties *JSONSchema            `json:"additionalProperties,omitempty"`
	Enum                 []string               `json:"enum,omitempty"`
	Default              any                    `json:"default,omitempty"`
	Minimum              *float64               `json:"minimum,omitempty"`
	Maximum              *float64               `json:"maximum,omitempty"`
	Pattern              string                 `json:"pattern,omitempty"`
	Format               string                 `json:"format,omitempty"`
}

// GenerateSchema generates a JSON Schema for the tool configuration.
func GenerateSchema() *JSONSchema {
	return &JSONSchema{
		Schema:      "https://json-schema.org/draft/2020-12/schema",
		ID:          "https://github.com/felixgeelhaar/tastate/tastate-config.schema.json",
		Title:       "tastate Configuration",
		Description: "Configuration schema for the tastate state construction tool",
		Type:        "object",
		Required:    []string{"name", "version"},
		Properties: map[string]*JSONSchema{
			"name": {
				Type:        "string",
				Description: "A human-readable name for this configuration",
			},
			"version": {
				Type:        "string",
				Description: "The configuration schema version",
				Default:     "1.0",
			},
			"description": {
				Type:        "string",
				Description: "What the configuration is used for",
			},
			"synthesis":  generateSynthesisSchema(),
			"adaptation": generateAdaptationSchema(),
			"batch": object("Parallel construction", map[string]*JSONSchema{
				"max_concurrent": integer("Maximum constructions run at once", 0, 4),
				"queue_timeout":  duration("Maximum wait for a free slot (0 = until cancelled)", ""),
			}),
			"cache":      generateCacheSchema(),
			"reports":    generateReportsSchema(),
			"export":     generateExportSchema(),
			"resilience": generateResilienceSchema(),
			"logging": object("Global logger", map[string]*JSONSchema{
				"level":  enum("Minimum log level", domainconfig.LogLevels, "info"),
				"format": enum("Log output format", domainconfig.LogFormats, "console"),
			}),
			"telemetry": generateTelemetrySchema(),
		},
	}
}

func generateSynthesisSchema() *JSONSchema {
	return object("Sequence synthesizer", map[string]*JSONSchema{
		"strategy":          enum("Synthesis strategy", domainconfig.Strategies, "witness"),
		"constraint_system": enum("Guards applied by the zone strategy", domainconfig.ConstraintSystems, "minimal"),
		"max_steps":         integer("Maximum synthesis steps (0 = unbounded)", 0, 0),
		"time_limit":        duration("Maximum synthesis time (0 = unbounded)", ""),
		"reduce": {
			Type:        "boolean",
			Description: "Shorten sequences when the reached zone is unchanged",
		},
	})
}

func generateAdaptationSchema() *JSONSchema {
	return object("Model adaptor", map[string]*JSONSchema{
		"prefix": {
			Type:        "string",
			Description: "Prefix of inserted identifiers",
			Pattern:     "^[A-Za-z0-9_]*$",
			Default:     "sc_",
		},
		"verify": {
			Type:        "boolean",
			Description: "Replay the inserted path after adaptation",
			Default:     true,
		},
	})
}

func generateCacheSchema() *JSONSchema {
	return object("Synthesis result cache", map[string]*JSONSchema{
		"enabled":     {Type: "boolean"},
		"backend":     enum("Cache backend", domainconfig.CacheBackends, "memory"),
		"max_entries": integer("Maximum in-memory entries (0 = unlimited)", 0, 1024),
		"ttl":         duration("Lifetime of cached results", ""),
		"path":        {Type: "string", Description: "Database path for badger and sqlite"},
		"redis": object("Redis connection", map[string]*JSONSchema{
			"addr":       {Type: "string", Description: "host:port"},
			"password":   {Type: "string"},
			"db":         integer("Database number", 0, 0),
			"key_prefix": {Type: "string", Default: "tastate:"},
			"pool_size":  integer("Connection pool size (0 = client default)", 0, 0),
			"timeout":    duration("Dial and socket timeout", "3s"),
		}),
		"dynamodb": object("DynamoDB table", map[string]*JSONSchema{
			"table":        {Type: "string", Default: "tastate_cache"},
			"region":       {Type: "string", Default: "us-east-1"},
			"endpoint":     {Type: "string", Description: "Custom endpoint for DynamoDB Local"},
			"create_table": {Type: "boolean", Description: "Create the table when missing"},
		}),
	})
}

func generateReportsSchema() *JSONSchema {
	return object("Construction report store", map[string]*JSONSchema{
		"backend": enum("Report backend", domainconfig.ReportBackends, "memory"),
		"path":    {Type: "string", Description: "Database path for sqlite"},
		"dsn":     {Type: "string", Description: "Connection string for postgres"},
		"mongodb": object("MongoDB connection", map[string]*JSONSchema{
			"uri":        {Type: "string"},
			"database":   {Type: "string", Default: "tastate"},
			"collection": {Type: "string", Default: "reports"},
		}),
	})
}

func generateExportSchema() *JSONSchema {
	return object("Adapted model export", map[string]*JSONSchema{
		"backend":           enum("Artifact backend", domainconfig.ExportBackends, "none"),
		"format":            enum("Model file format", domainconfig.ExportFormats, "yaml"),
		"directory":         {Type: "string", Description: "Base directory for filesystem"},
		"bucket":            {Type: "string", Description: "Bucket for gcs and s3, container for azure"},
		"account":           {Type: "string", Description: "Azure storage account"},
		"connection_string": {Type: "string", Description: "Azure storage connection string"},
		"prefix":            {Type: "string", Description: "Object key prefix"},
		"region":            {Type: "string", Description: "AWS region for s3"},
		"endpoint":          {Type: "string", Description: "Custom endpoint for S3-compatible stores and Azurite"},
	})
}

func generateResilienceSchema() *JSONSchema {
	return object("Resilience around storage I/O", map[string]*JSONSchema{
		"timeout": duration("Timeout of one storage operation", "30s"),
		"retry": object("Retry behavior", map[string]*JSONSchema{
			"enabled":       {Type: "boolean", Default: true},
			"max_attempts":  integer("Maximum attempts", 1, 3),
			"initial_delay": duration("First retry delay", "100ms"),
			"multiplier": {
				Type:    "number",
				Minimum: floatPtr(1),
				Default: 2.0,
			},
		}),
		"circuit_breaker": object("Circuit breaker behavior", map[string]*JSONSchema{
			"threshold": integer("Consecutive failures before opening", 1, 5),
			"timeout":   duration("How long the circuit stays open", "30s"),
		}),
	})
}

func generateTelemetrySchema() *JSONSchema {
	return object("Tracing and metrics", map[string]*JSONSchema{
		"enabled":      {Type: "boolean"},
		"exporter":     enum("Span exporter", domainconfig.SpanExporters, "stdout"),
		"endpoint":     {Type: "string", Description: "OTLP collector endpoint"},
		"insecure":     {Type: "boolean"},
		"service_name": {Type: "string", Default: "tastate"},
		"environment":  {Type: "string", Default: "development"},
		"sample_rate": {
			Type:    "number",
			Minimum: floatPtr(0),
			Maximum: floatPtr(1),
			Default: 1.0,
		},
	})
}

func object(description string, props map[string]*JSONSchema) *JSONSchema {
	return &JSONSchema{Type: "object", Description: description, Properties: props}
}

func enum(description string, values []string, def string) *JSONSchema {
	return &JSONSchema{Type: "string", Description: description, Enum: values, Default: def}
}

func integer(description string, minimum float64, def int) *JSONSchema {
	s := &JSONSchema{Type: "integer", Description: description, Minimum: floatPtr(minimum)}
	if def != 0 {
		s.Default = def
	}
	return s
}

func duration(description, def string) *JSONSchema {
	s := &JSONSchema{Type: "string", Description: description, Format: "duration"}
	if def != "" {
		s.Default = def
	}
	return s
}

func floatPtr(f float64) *float64 {
	return &f
}

// SchemaJSON returns the JSON Schema as an indented JSON string.
func SchemaJSON() (string, error) {
	data, err := json.MarshalIndent(GenerateSchema(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
