package synthesis

import (
	"errors"

	"github.com/felixgeelhaar/tastate/domain/target"
)

var (
	// ErrUnsatisfiableTarget indicates an empty target zone. It is the same
	// sentinel the state composer reports.
	ErrUnsatisfiableTarget = target.ErrUnsatisfiableTarget

	// ErrTimeout indicates the synthesis exceeded its step or time bound.
	ErrTimeout = errors.New("synthesis timeout")

	// ErrSynthesisMismatch indicates a synthesized sequence that does not
	// reach the zone it was synthesized for.
	ErrSynthesisMismatch = errors.New("synthesized sequence misses target")

	// ErrUnknownStrategy indicates an unsupported strategy or constraint system.
	ErrUnknownStrategy = errors.New("unknown synthesis strategy")
)
