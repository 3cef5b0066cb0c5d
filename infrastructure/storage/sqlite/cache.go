package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/felixgeelhaar/tastate/domain/cache"
)

const cacheSchema = `
	CREATE TABLE IF NOT EXISTS synthesis_cache (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		expires_at INTEGER,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_synthesis_cache_expires_at ON synthesis_cache(expires_at);
`

// Cache keeps encoded synthesis results in a SQLite table. Expired rows are
// dropped lazily on read and in bulk by Cleanup.
type Cache struct {
	db        *sql.DB
	keyPrefix string
	now       func() time.Time
	hits      atomic.Int64
	misses    atomic.Int64
}

// NewCache opens the database described by cfg and creates a cache on it.
func NewCache(cfg Config) (*Cache, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	c := &Cache{db: db, keyPrefix: cfg.KeyPrefix, now: time.Now}
	if cfg.AutoMigrate {
		if err := c.migrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return c, nil
}

// NewCacheFromDB creates a cache on an existing database connection.
func NewCacheFromDB(db *sql.DB, keyPrefix string) (*Cache, error) {
	c := &Cache{db: db, keyPrefix: keyPrefix, now: time.Now}
	if err := c.migrate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cache) migrate() error {
	if _, err := c.db.Exec(cacheSchema); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	return nil
}

// Get retrieves a value from the cache.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var value []byte
	var expiresAt sql.NullInt64
	err := c.db.QueryRowContext(ctx,
		"SELECT value, expires_at FROM synthesis_cache WHERE key = ?",
		c.keyPrefix+key,
	).Scan(&value, &expiresAt)

	if errors.Is(err, sql.ErrNoRows) {
		c.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if expiresAt.Valid && expiresAt.Int64 <= c.now().Unix() {
		_, _ = c.db.ExecContext(ctx, "DELETE FROM synthesis_cache WHERE key = ?", c.keyPrefix+key)
		c.misses.Add(1)
		return nil, false, nil
	}

	c.hits.Add(1)
	return value, true, nil
}

// Set stores a value, replacing any previous entry under the same key.
func (c *Cache) Set(ctx context.Context, key string, value []byte, opts cache.SetOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return cache.ErrInvalidKey
	}

	now := c.now()
	var expiresAt sql.NullInt64
	if opts.TTL > 0 {
		expiresAt = sql.NullInt64{Int64: now.Add(opts.TTL).Unix(), Valid: true}
	}

	_, err := c.db.ExecContext(ctx,
		`INSERT INTO synthesis_cache (key, value, expires_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   value = excluded.value,
		   expires_at = excluded.expires_at,
		   updated_at = excluded.updated_at`,
		c.keyPrefix+key, value, expiresAt, now.Unix(), now.Unix(),
	)
	return err
}

// Delete removes a value from the cache.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.db.ExecContext(ctx, "DELETE FROM synthesis_cache WHERE key = ?", c.keyPrefix+key)
	return err
}

// Exists reports whether an unexpired entry exists for key.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var one int
	err := c.db.QueryRowContext(ctx,
		"SELECT 1 FROM synthesis_cache WHERE key = ? AND (expires_at IS NULL OR expires_at > ?)",
		c.keyPrefix+key, c.now().Unix(),
	).Scan(&one)

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Clear removes every entry under the cache's key prefix.
func (c *Cache) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if c.keyPrefix == "" {
		_, err := c.db.ExecContext(ctx, "DELETE FROM synthesis_cache")
		return err
	}
	_, err := c.db.ExecContext(ctx,
		`DELETE FROM synthesis_cache WHERE substr(key, 1, ?) = ?`,
		len(c.keyPrefix), c.keyPrefix,
	)
	return err
}

// Stats returns cache statistics.
func (c *Cache) Stats() cache.Stats {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var size int64
	_ = c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM synthesis_cache").Scan(&size)

	return cache.Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Size:   size,
	}
}

// Cleanup removes expired entries and returns how many were dropped.
func (c *Cache) Cleanup(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	result, err := c.db.ExecContext(ctx,
		"DELETE FROM synthesis_cache WHERE expires_at IS NOT NULL AND expires_at <= ?",
		c.now().Unix(),
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Close closes the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

// DB returns the underlying database connection.
func (c *Cache) DB() *sql.DB {
	return c.db
}

var (
	_ cache.Cache         = (*Cache)(nil)
	_ cache.StatsProvider = (*Cache)(nil)
)
