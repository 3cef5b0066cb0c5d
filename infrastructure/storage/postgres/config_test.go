package postgres

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	if cfg.Host != "localhost" || cfg.Port != 5432 {
		t.Errorf("address = %s:%d, want localhost:5432", cfg.Host, cfg.Port)
	}
	if cfg.Database != "tastate" {
		t.Errorf("Database = %s, want tastate", cfg.Database)
	}
	if cfg.MaxConnLifetime != time.Hour {
		t.Errorf("MaxConnLifetime = %v, want %v", cfg.MaxConnLifetime, time.Hour)
	}
	if cfg.Schema != "public" {
		t.Errorf("Schema = %s, want public", cfg.Schema)
	}
}

func TestConfig_ConnectionString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		config   Config
		expected string
	}{
		{
			name:     "default config",
			config:   DefaultConfig(),
			expected: "host=localhost port=5432 dbname=tastate user=postgres password= sslmode=disable",
		},
		{
			name: "custom config",
			config: Config{
				Host:     "db.example.com",
				Port:     5433,
				Database: "models",
				User:     "builder",
				Password: "secret123",
				SSLMode:  "require",
			},
			expected: "host=db.example.com port=5433 dbname=models user=builder password=secret123 sslmode=require",
		},
		{
			name:     "dsn wins",
			config:   Config{DSN: "postgres://u:p@db/tastate", Host: "ignored"},
			expected: "postgres://u:p@db/tastate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.config.ConnectionString(); got != tt.expected {
				t.Errorf("ConnectionString() = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestConfigOptions(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	for _, opt := range []ConfigOption{
		WithDSN("postgres://localhost/tastate"),
		WithCredentials("admin", "pass"),
		WithPoolSize(2, 20),
		WithSchema("construction"),
	} {
		opt(&cfg)
	}

	if cfg.DSN != "postgres://localhost/tastate" {
		t.Errorf("DSN = %s", cfg.DSN)
	}
	if cfg.User != "admin" || cfg.Password != "pass" {
		t.Errorf("credentials = %s/%s", cfg.User, cfg.Password)
	}
	if cfg.MinConns != 2 || cfg.MaxConns != 20 {
		t.Errorf("pool = %d..%d, want 2..20", cfg.MinConns, cfg.MaxConns)
	}
	if cfg.Schema != "construction" {
		t.Errorf("Schema = %s, want construction", cfg.Schema)
	}
}
