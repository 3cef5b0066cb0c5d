package dbm

import (
	"fmt"
	"sort"
	"strings"
)

// Valuation assigns a value to each clock.
type Valuation map[string]int64

// Clocks returns the clock names in lexical order.
func (v Valuation) Clocks() []string {
	names := make([]string, 0, len(v))
	for name := range v {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Equal reports whether both valuations assign the same values.
func (v Valuation) Equal(o Valuation) bool {
	if len(v) != len(o) {
		return false
	}
	for name, x := range v {
		if y, ok := o[name]; !ok || x != y {
			return false
		}
	}
	return true
}

// String renders the valuation as "x=3, y=1".
func (v Valuation) String() string {
	parts := make([]string, 0, len(v))
	for _, name := range v.Clocks() {
		parts = append(parts, fmt.Sprintf("%s=%d", name, v[name]))
	}
	return strings.Join(parts, ", ")
}
