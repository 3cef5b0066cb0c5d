package sequence

import (
	"sort"
	"strings"

	"github.com/felixgeelhaar/tastate/domain/dbm"
)

// Sequence is an ordered list of operations. The empty sequence is valid.
type Sequence []Operation

// Apply runs every operation on d in order. Consecutive guards are
// intersected before a single closure; the result is canonical.
func (s Sequence) Apply(d *dbm.DBM) (*dbm.DBM, error) {
	out := d
	for _, op := range s {
		next, err := op.Apply(out)
		if err != nil {
			return nil, err
		}
		out = next
	}
	return out.Canonical(), nil
}

// Clocks returns every clock the sequence touches, in lexical order.
func (s Sequence) Clocks() []string {
	seen := make(map[string]struct{})
	for _, op := range s {
		for _, c := range op.Clocks() {
			seen[c] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Count returns how many operations of kind k the sequence holds.
func (s Sequence) Count(k Kind) int {
	n := 0
	for _, op := range s {
		if op.Kind == k {
			n++
		}
	}
	return n
}

// Equal reports whether both sequences hold the same operations in order.
func (s Sequence) Equal(o Sequence) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if !s[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

// Strings renders each operation.
func (s Sequence) Strings() []string {
	out := make([]string, len(s))
	for i, op := range s {
		out[i] = op.String()
	}
	return out
}

// String renders the sequence as "[y := 1, delay, ...]".
func (s Sequence) String() string {
	return "[" + strings.Join(s.Strings(), ", ") + "]"
}

// Reduce keeps, walking backwards, the last reset of each clock and one
// delay between kept resets; guards and frees are dropped. The reduced
// sequence reaches a zone including the one reached by s.
func (s Sequence) Reduce(clocks []string) Sequence {
	if clocks == nil {
		clocks = s.Clocks()
	}
	var reduced Sequence
	reset := make(map[string]bool, len(clocks))
	delayKept := false

	for i := len(s) - 1; i >= 0; i-- {
		op := s[i]
		switch op.Kind {
		case KindDelay:
			if !delayKept {
				reduced = append(reduced, op)
				delayKept = true
			}
		case KindReset:
			if !reset[op.Clock] {
				reset[op.Clock] = true
				reduced = append(reduced, op)
				delayKept = false
			}
		}
		if len(reset) == len(clocks) {
			break
		}
	}

	for i, j := 0, len(reduced)-1; i < j; i, j = i+1, j-1 {
		reduced[i], reduced[j] = reduced[j], reduced[i]
	}
	return reduced
}
