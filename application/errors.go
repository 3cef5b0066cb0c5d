package application

import "errors"

var (
	// ErrInvalidRequest indicates a construction request without a model.
	ErrInvalidRequest = errors.New("invalid construction request")

	// ErrInvalidEngineConfig indicates engine settings that cannot be used.
	ErrInvalidEngineConfig = errors.New("invalid engine configuration")
)
