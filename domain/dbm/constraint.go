package dbm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Constraint is the difference constraint Left - Right ⊲ Bound. An empty
// side names the reference clock, so {Left: "x"} with "<= 3" reads x <= 3.
// It encodes as its textual form in JSON and YAML.
type Constraint struct {
	Left  string
	Right string
	Bound Bound
}

// Diff returns the constraint x - y ⊲ b.
func Diff(x, y string, b Bound) Constraint {
	return Constraint{Left: x, Right: y, Bound: b}
}

// AtMost returns x <= v.
func AtMost(x string, v int64) Constraint {
	return Constraint{Left: x, Bound: LE(v)}
}

// Below returns x < v.
func Below(x string, v int64) Constraint {
	return Constraint{Left: x, Bound: LT(v)}
}

// AtLeast returns x >= v.
func AtLeast(x string, v int64) Constraint {
	return Constraint{Right: x, Bound: LE(-v)}
}

// Above returns x > v.
func Above(x string, v int64) Constraint {
	return Constraint{Right: x, Bound: LT(-v)}
}

// Exactly returns the pair of constraints pinning x to v.
func Exactly(x string, v int64) []Constraint {
	return []Constraint{AtMost(x, v), AtLeast(x, v)}
}

// Clocks returns the non-reference clocks the constraint mentions.
func (c Constraint) Clocks() []string {
	var out []string
	if c.Left != "" {
		out = append(out, c.Left)
	}
	if c.Right != "" {
		out = append(out, c.Right)
	}
	return out
}

// String renders the constraint the way it is written in a model.
func (c Constraint) String() string {
	if c.Bound.IsInfinite() {
		return "true"
	}
	switch {
	case c.Left != "" && c.Right == "":
		return fmt.Sprintf("%s %s %d", c.Left, c.Bound.Op(), c.Bound.Value())
	case c.Left == "" && c.Right != "":
		op := ">="
		if c.Bound.Strict() {
			op = ">"
		}
		return fmt.Sprintf("%s %s %d", c.Right, op, -c.Bound.Value())
	case c.Left == "" && c.Right == "":
		return fmt.Sprintf("0 %s %d", c.Bound.Op(), c.Bound.Value())
	default:
		return fmt.Sprintf("%s - %s %s %d", c.Left, c.Right, c.Bound.Op(), c.Bound.Value())
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Constraint) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Equalities expand to
// two constraints and are rejected here; use ParseConstraints for them.
func (c *Constraint) UnmarshalText(text []byte) error {
	cs, err := ParseConstraints(string(text))
	if err != nil {
		return err
	}
	if len(cs) != 1 {
		return fmt.Errorf("%w: %q expands to %d constraints", ErrInvalidConstraint, text, len(cs))
	}
	*c = cs[0]
	return nil
}

var constraintPattern = regexp.MustCompile(
	`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*(?:-\s*([A-Za-z_][A-Za-z0-9_]*)\s*)?(<=|>=|==|<|>)\s*(-?\d+)\s*$`)

// ParseConstraints parses "x <= 3", "x - y < 2", "x >= 1", "x > 0" or
// "x == 4". An equality yields two constraints.
func ParseConstraints(s string) ([]Constraint, error) {
	m := constraintPattern.FindStringSubmatch(s)
	if m == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidConstraint, s)
	}
	x, y, op := m[1], m[2], m[3]
	v, err := strconv.ParseInt(m[4], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidConstraint, s)
	}

	switch op {
	case "<=":
		return []Constraint{Diff(x, y, LE(v))}, nil
	case "<":
		return []Constraint{Diff(x, y, LT(v))}, nil
	case ">=":
		return []Constraint{Diff(y, x, LE(-v))}, nil
	case ">":
		return []Constraint{Diff(y, x, LT(-v))}, nil
	default:
		return []Constraint{Diff(x, y, LE(v)), Diff(y, x, LE(-v))}, nil
	}
}

// ParseAll parses every expression and concatenates the results.
func ParseAll(exprs []string) ([]Constraint, error) {
	var out []Constraint
	for _, e := range exprs {
		if strings.TrimSpace(e) == "" {
			continue
		}
		cs, err := ParseConstraints(e)
		if err != nil {
			return nil, err
		}
		out = append(out, cs...)
	}
	return out, nil
}
