package target

import "errors"

var (
	// ErrUnsatisfiableTarget indicates a target zone that is empty, alone or
	// together with the target location invariants.
	ErrUnsatisfiableTarget = errors.New("unsatisfiable target")

	// ErrReference indicates a clock, variable or location the model does not declare.
	ErrReference = errors.New("unresolved reference")
)
