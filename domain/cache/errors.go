package cache

import "errors"

var (
	// ErrKeyNotFound is returned by lookups that require the key to exist.
	ErrKeyNotFound = errors.New("cache: key not found")
	// ErrInvalidKey is returned for empty keys.
	ErrInvalidKey = errors.New("cache: invalid key")
	// ErrConnectionFailed wraps failures to reach a remote backend.
	ErrConnectionFailed = errors.New("cache: connection failed")
	// ErrOperationTimeout wraps deadline and throttling failures.
	ErrOperationTimeout = errors.New("cache: operation timed out")
)
