// Package sequence defines clock operations and ordered operation sequences.
package sequence

import (
	"fmt"

	"github.com/felixgeelhaar/tastate/domain/dbm"
)

// Kind identifies an operation variant.
type Kind uint8

// Operation kinds.
const (
	// KindReset sets a clock to an absolute value.
	KindReset Kind = iota + 1

	// KindDelay lets every clock advance by the same non-negative amount.
	KindDelay

	// KindGuard intersects the zone with one difference constraint.
	KindGuard

	// KindFree removes every constraint on a clock except clock >= 0.
	KindFree
)

var kindNames = map[Kind]string{
	KindReset: "reset",
	KindDelay: "delay",
	KindGuard: "guard",
	KindFree:  "free",
}

// String returns the kind name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// IsValid reports whether k is a known kind.
func (k Kind) IsValid() bool {
	_, ok := kindNames[k]
	return ok
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownOperation, uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownOperation, text)
}

// Operation is one immutable clock operation. Only the fields of its Kind
// are meaningful.
type Operation struct {
	Kind       Kind            `json:"kind" yaml:"kind"`
	Clock      string          `json:"clock,omitempty" yaml:"clock,omitempty"`
	Value      int64           `json:"value,omitempty" yaml:"value,omitempty"`
	Constraint *dbm.Constraint `json:"constraint,omitempty" yaml:"constraint,omitempty"`
}

// Reset returns the operation clock := v.
func Reset(clock string, v int64) Operation {
	return Operation{Kind: KindReset, Clock: clock, Value: v}
}

// Delay returns the time-elapse operation.
func Delay() Operation {
	return Operation{Kind: KindDelay}
}

// Guard returns the operation intersecting the zone with c.
func Guard(c dbm.Constraint) Operation {
	return Operation{Kind: KindGuard, Constraint: &c}
}

// Free returns the operation freeing clock.
func Free(clock string) Operation {
	return Operation{Kind: KindFree, Clock: clock}
}

// Clocks returns the clocks the operation touches.
func (o Operation) Clocks() []string {
	switch o.Kind {
	case KindReset, KindFree:
		return []string{o.Clock}
	case KindGuard:
		if o.Constraint != nil {
			return o.Constraint.Clocks()
		}
	}
	return nil
}

// Equal reports whether two operations are the same value.
func (o Operation) Equal(other Operation) bool {
	if o.Kind != other.Kind || o.Clock != other.Clock || o.Value != other.Value {
		return false
	}
	if (o.Constraint == nil) != (other.Constraint == nil) {
		return false
	}
	return o.Constraint == nil || *o.Constraint == *other.Constraint
}

// String renders the operation as "x := 3", "delay", "guard x <= 3" or
// "free x".
func (o Operation) String() string {
	switch o.Kind {
	case KindReset:
		return fmt.Sprintf("%s := %d", o.Clock, o.Value)
	case KindDelay:
		return "delay"
	case KindGuard:
		if o.Constraint == nil {
			return "guard true"
		}
		return "guard " + o.Constraint.String()
	case KindFree:
		return "free " + o.Clock
	default:
		return o.Kind.String()
	}
}

// Validate checks that the fields required by the kind are set.
func (o Operation) Validate() error {
	switch o.Kind {
	case KindReset, KindFree:
		if o.Clock == "" {
			return fmt.Errorf("%w: %s without clock", ErrInvalidOperation, o.Kind)
		}
	case KindGuard:
		if o.Constraint == nil {
			return fmt.Errorf("%w: guard without constraint", ErrInvalidOperation)
		}
	case KindDelay:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownOperation, o.Kind)
	}
	return nil
}

// Apply performs the operation on d. Guards leave the result unclosed.
func (o Operation) Apply(d *dbm.DBM) (*dbm.DBM, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	switch o.Kind {
	case KindReset:
		return d.Reset(o.Clock, o.Value)
	case KindDelay:
		return d.Up(), nil
	case KindGuard:
		return d.Constrain(*o.Constraint)
	case KindFree:
		return d.Free(o.Clock)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, o.Kind)
	}
}
