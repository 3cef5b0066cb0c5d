package model

import "errors"

var (
	// ErrInvalidGraph indicates a graph whose indices or declarations do not resolve.
	ErrInvalidGraph = errors.New("invalid graph")

	// ErrUnknownClock indicates a clock the model does not declare.
	ErrUnknownClock = errors.New("unknown clock")

	// ErrUnknownVariable indicates a variable the model does not declare.
	ErrUnknownVariable = errors.New("unknown variable")

	// ErrUnknownLocation indicates a location ID absent from its process.
	ErrUnknownLocation = errors.New("unknown location")

	// ErrUnknownProcess indicates a process index or name absent from the graph.
	ErrUnknownProcess = errors.New("unknown process")

	// ErrUnsupportedValue indicates a variable value that is not an integer,
	// a boolean, or a list or record of those.
	ErrUnsupportedValue = errors.New("unsupported variable value")
)
