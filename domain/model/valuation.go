package model

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Assignment sets one flattened variable path such as "a[1]" or "r.f".
type Assignment struct {
	Target string `json:"target" yaml:"target"`
	Value  any    `json:"value" yaml:"value"`
}

// Root returns the declared variable the assignment writes into.
func (a Assignment) Root() string {
	if i := strings.IndexAny(a.Target, "[."); i >= 0 {
		return a.Target[:i]
	}
	return a.Target
}

// String renders the assignment as "a[1] = 3".
func (a Assignment) String() string {
	return fmt.Sprintf("%s = %v", a.Target, a.Value)
}

// Valuation maps variable names to values. Values are integers, booleans,
// lists ([]any) and records (map[string]any) of those.
type Valuation map[string]any

// Names returns the variable names in lexical order.
func (v Valuation) Names() []string {
	out := make([]string, 0, len(v))
	for name := range v {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Copy returns a shallow copy of v.
func (v Valuation) Copy() Valuation {
	out := make(Valuation, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Assignments flattens the valuation into one assignment per scalar,
// ordered by variable name and then by position within the value.
func (v Valuation) Assignments() ([]Assignment, error) {
	var out []Assignment
	for _, name := range v.Names() {
		var err error
		out, err = flatten(out, name, v[name])
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Flatten is Assignments keyed by path.
func (v Valuation) Flatten() (map[string]any, error) {
	as, err := v.Assignments()
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(as))
	for _, a := range as {
		out[a.Target] = a.Value
	}
	return out, nil
}

// CheckDeclared fails with ErrUnknownVariable for names g does not declare.
func (v Valuation) CheckDeclared(g *Graph) error {
	for _, name := range v.Names() {
		if _, ok := g.Variable(name); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownVariable, name)
		}
	}
	return nil
}

func flatten(out []Assignment, path string, value any) ([]Assignment, error) {
	switch val := value.(type) {
	case []any:
		for i, elem := range val {
			var err error
			out, err = flatten(out, path+"["+strconv.Itoa(i)+"]", elem)
			if err != nil {
				return nil, err
			}
		}
		return out, nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			var err error
			out, err = flatten(out, path+"."+k, val[k])
			if err != nil {
				return nil, err
			}
		}
		return out, nil
	}
	scalar, err := Normalize(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return append(out, Assignment{Target: path, Value: scalar}), nil
}

// Normalize converts a scalar variable value to int64 or bool.
// Integral floats are accepted since JSON and YAML decoders may produce them.
func Normalize(value any) (any, error) {
	switch val := value.(type) {
	case bool:
		return val, nil
	case int:
		return int64(val), nil
	case int8:
		return int64(val), nil
	case int16:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case int64:
		return val, nil
	case uint8:
		return int64(val), nil
	case uint16:
		return int64(val), nil
	case uint32:
		return int64(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("%w: %d overflows", ErrUnsupportedValue, val)
		}
		return int64(val), nil
	case float64:
		if val != math.Trunc(val) || math.IsInf(val, 0) {
			return nil, fmt.Errorf("%w: %v is not an integer", ErrUnsupportedValue, val)
		}
		return int64(val), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, value)
	}
}
