// Package sqlite keeps synthesis results and construction reports in a
// SQLite database file. A Cache and a ReportStore may share one database.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrConnectionFailed is returned when the database cannot be opened.
	ErrConnectionFailed = errors.New("sqlite: connection failed")
	// ErrMigrationFailed is returned when pragmas or schema creation fail.
	ErrMigrationFailed = errors.New("sqlite: migration failed")
)

// Config configures a SQLite database.
type Config struct {
	// DSN is a go-sqlite3 data source name such as "file:tastate.db?mode=rwc".
	DSN string
	// MaxOpenConns bounds the connection pool. SQLite serializes writers,
	// so a small pool is enough.
	MaxOpenConns int
	// JournalMode is applied with PRAGMA journal_mode when set.
	JournalMode string
	// BusyTimeout is how long a writer waits for a lock.
	BusyTimeout time.Duration
	// AutoMigrate creates missing tables on open.
	AutoMigrate bool
	// KeyPrefix namespaces cache keys.
	KeyPrefix string
}

// DefaultConfig returns a WAL-mode database named tastate.db.
func DefaultConfig() Config {
	return FileConfig("tastate.db")
}

// FileConfig returns the default configuration for the database at path.
func FileConfig(path string) Config {
	return Config{
		DSN:          "file:" + path + "?cache=shared&mode=rwc",
		MaxOpenConns: 4,
		JournalMode:  "WAL",
		BusyTimeout:  5 * time.Second,
		AutoMigrate:  true,
	}
}

func (c Config) pragmas() []string {
	var p []string
	if c.JournalMode != "" {
		p = append(p, "PRAGMA journal_mode="+c.JournalMode)
	}
	if c.BusyTimeout > 0 {
		p = append(p, fmt.Sprintf("PRAGMA busy_timeout=%d", c.BusyTimeout.Milliseconds()))
	}
	return p
}

func openDB(cfg Config) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	for _, pragma := range cfg.pragmas() {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, errors.Join(ErrMigrationFailed, fmt.Errorf("%s: %w", pragma, err))
		}
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	return db, nil
}

// Open opens a database that a Cache and a ReportStore can share.
func Open(cfg Config) (*sql.DB, error) {
	return openDB(cfg)
}
