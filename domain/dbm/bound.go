package dbm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Bound is an upper bound on a clock difference: "<= value", "< value" or
// no bound at all. The zero value is "<= 0".
type Bound struct {
	value    int64
	strict   bool
	infinite bool
}

// LE returns the non-strict bound "<= v".
func LE(v int64) Bound {
	return Bound{value: v}
}

// LT returns the strict bound "< v".
func LT(v int64) Bound {
	return Bound{value: v, strict: true}
}

// Infinity returns the absent bound.
func Infinity() Bound {
	return Bound{value: math.MaxInt64, strict: true, infinite: true}
}

// Value returns the bound's magnitude. It is meaningless for Infinity.
func (b Bound) Value() int64 { return b.value }

// Strict reports whether the bound excludes its magnitude.
func (b Bound) Strict() bool { return b.strict }

// IsInfinite reports whether b is the absent bound.
func (b Bound) IsInfinite() bool { return b.infinite }

// Add returns the bound of the sum of two differences.
func (b Bound) Add(o Bound) Bound {
	if b.infinite || o.infinite {
		return Infinity()
	}
	return Bound{value: b.value + o.value, strict: b.strict || o.strict}
}

// Less reports whether b is strictly tighter than o.
func (b Bound) Less(o Bound) bool {
	switch {
	case b.infinite:
		return false
	case o.infinite:
		return true
	case b.value != o.value:
		return b.value < o.value
	default:
		return b.strict && !o.strict
	}
}

// Min returns the tighter of b and o.
func (b Bound) Min(o Bound) Bound {
	if o.Less(b) {
		return o
	}
	return b
}

// IsNegative reports whether the bound excludes zero, which on a diagonal
// entry marks an empty zone.
func (b Bound) IsNegative() bool {
	return b.Less(LE(0))
}

// Op returns the relation symbol of the bound.
func (b Bound) Op() string {
	if b.strict {
		return "<"
	}
	return "<="
}

// String renders the bound as "<=3", "<3" or "<inf".
func (b Bound) String() string {
	if b.infinite {
		return "<inf"
	}
	return b.Op() + strconv.FormatInt(b.value, 10)
}

// MarshalText implements encoding.TextMarshaler.
func (b Bound) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Bound) UnmarshalText(text []byte) error {
	parsed, err := ParseBound(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// ParseBound parses the String form of a bound.
func ParseBound(s string) (Bound, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "<inf" || s == "inf":
		return Infinity(), nil
	case strings.HasPrefix(s, "<="):
		v, err := strconv.ParseInt(strings.TrimSpace(s[2:]), 10, 64)
		if err != nil {
			return Bound{}, fmt.Errorf("%w: %q", ErrInvalidBound, s)
		}
		return LE(v), nil
	case strings.HasPrefix(s, "<"):
		v, err := strconv.ParseInt(strings.TrimSpace(s[1:]), 10, 64)
		if err != nil {
			return Bound{}, fmt.Errorf("%w: %q", ErrInvalidBound, s)
		}
		return LT(v), nil
	default:
		return Bound{}, fmt.Errorf("%w: %q", ErrInvalidBound, s)
	}
}
