package sequence

import "errors"

var (
	// ErrUnknownOperation indicates an operation kind outside the closed set.
	ErrUnknownOperation = errors.New("unknown operation kind")

	// ErrInvalidOperation indicates an operation missing a required field.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrInvalidLength indicates a generator length that cannot be honored.
	ErrInvalidLength = errors.New("invalid sequence length")
)
