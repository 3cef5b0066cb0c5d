package dbm

import "errors"

var (
	// ErrUnknownClock indicates a clock name that is not part of the DBM.
	ErrUnknownClock = errors.New("unknown clock")

	// ErrDuplicateClock indicates a clock declared twice.
	ErrDuplicateClock = errors.New("duplicate clock")

	// ErrInvalidClock indicates an empty or reserved clock name.
	ErrInvalidClock = errors.New("invalid clock name")

	// ErrEmptyZone indicates an operation that needs a non-empty zone.
	ErrEmptyZone = errors.New("empty zone")

	// ErrNoIntegralWitness indicates a non-empty zone whose lower-bound
	// corner walk found no integer valuation.
	ErrNoIntegralWitness = errors.New("zone has no integral witness")

	// ErrDimensionMismatch indicates two DBMs over different clock sets.
	ErrDimensionMismatch = errors.New("dbm clock sets differ")

	// ErrInvalidBound indicates a bound that cannot be parsed.
	ErrInvalidBound = errors.New("invalid bound")

	// ErrInvalidConstraint indicates a constraint that cannot be parsed.
	ErrInvalidConstraint = errors.New("invalid constraint")
)
