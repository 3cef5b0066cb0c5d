package adaptation

import (
	"errors"

	"github.com/felixgeelhaar/tastate/domain/target"
)

var (
	// ErrAdaptation indicates a target the graph cannot be adapted to, such
	// as a location absent from its process or an operation with no edge
	// encoding.
	ErrAdaptation = errors.New("adaptation failed")

	// ErrReference indicates a clock or variable the model does not declare.
	ErrReference = target.ErrReference
)
