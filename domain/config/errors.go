package config

import "errors"

var (
	// ErrConfigNotFound is returned for a configuration path that does not exist.
	ErrConfigNotFound = errors.New("config: file not found")
	// ErrInvalidFormat is returned for documents that do not decode.
	ErrInvalidFormat = errors.New("config: invalid document")
	// ErrUnsupportedFormat is returned for file extensions other than yaml and json.
	ErrUnsupportedFormat = errors.New("config: unsupported format")
	// ErrValidationFailed wraps the ValidationErrors of a rejected configuration.
	ErrValidationFailed = errors.New("config: validation failed")
	// ErrMissingEnvVar is returned for references to unset variables that
	// must be set.
	ErrMissingEnvVar = errors.New("config: environment variable not set")
	// ErrBuildFailed wraps failures to open a configured backend.
	ErrBuildFailed = errors.New("config: backend unavailable")
	// ErrUnknownBackend is returned for cache, report or export backend
	// names the builder does not know.
	ErrUnknownBackend = errors.New("config: unknown backend")
)
