// Package badger keeps synthesis results in an embedded BadgerDB, either on
// disk or purely in memory.
package badger

import (
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/felixgeelhaar/tastate/domain/cache"
)

// Config configures a BadgerDB cache.
type Config struct {
	// Dir holds the database files; ignored when InMemory is set.
	Dir      string
	InMemory bool
	// SyncWrites fsyncs every write.
	SyncWrites bool
	// ValueLogFileSize caps one value log file, in bytes.
	ValueLogFileSize int64
	// GCInterval is the period of value log garbage collection. Zero
	// disables it; in-memory databases never collect.
	GCInterval     time.Duration
	GCDiscardRatio float64
	KeyPrefix      string
	// Logger receives badger's own messages; nil silences them.
	Logger badger.Logger
}

// Option configures a BadgerDB cache.
type Option func(*Config)

// WithDir stores the database in dir.
func WithDir(dir string) Option {
	return func(c *Config) { c.Dir = dir }
}

// WithInMemory keeps the database in memory.
func WithInMemory() Option {
	return func(c *Config) { c.InMemory = true }
}

// WithGCInterval sets the value log GC period.
func WithGCInterval(d time.Duration) Option {
	return func(c *Config) { c.GCInterval = d }
}

// DefaultConfig uses 64 MiB value logs collected every five minutes.
func DefaultConfig() Config {
	return Config{
		ValueLogFileSize: 64 << 20,
		GCInterval:       5 * time.Minute,
		GCDiscardRatio:   0.5,
		KeyPrefix:        "tastate:",
	}
}

func (c Config) options() badger.Options {
	opts := badger.DefaultOptions(c.Dir).
		WithInMemory(c.InMemory).
		WithSyncWrites(c.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(c.Logger)
	if c.ValueLogFileSize > 0 {
		opts = opts.WithValueLogFileSize(c.ValueLogFileSize)
	}
	return opts
}

func openDB(cfg Config) (*badger.DB, error) {
	db, err := badger.Open(cfg.options())
	if err != nil {
		return nil, errors.Join(cache.ErrConnectionFailed, err)
	}
	return db, nil
}
