package synthesis

import (
	"fmt"

	"github.com/felixgeelhaar/tastate/domain/dbm"
)

// ConstraintSystem names a set of constraints describing a zone.
type ConstraintSystem string

const (
	// SystemFull uses every finite off-diagonal entry.
	SystemFull ConstraintSystem = "full"

	// SystemMinimal uses edges between zero-equivalence class
	// representatives plus one cycle per class.
	SystemMinimal ConstraintSystem = "minimal"

	// SystemRelative is SystemMinimal without the edges the source zone
	// already bounds as tightly as the target.
	SystemRelative ConstraintSystem = "relative"
)

// maxPermutedClass bounds the class size for which every cycle order is
// tried; larger classes keep index order.
const maxPermutedClass = 5

// Constraints returns the constraint system of kind cs for zone. source is
// the zone the constraints are applied to; only SystemRelative reads it,
// and a nil source stands for the unconstrained zone.
func (cs ConstraintSystem) Constraints(zone, source *dbm.DBM) ([]dbm.Constraint, error) {
	switch cs {
	case SystemFull:
		return FullConstraintSystem(zone), nil
	case SystemMinimal:
		return MinimalConstraintSystem(zone), nil
	case SystemRelative:
		if source == nil {
			u, err := dbm.Unconstrained(zone.Clocks()...)
			if err != nil {
				return nil, err
			}
			source = u
		}
		return RelativeConstraintSystem(zone, source)
	default:
		return nil, fmt.Errorf("%w: constraint system %q", ErrUnknownStrategy, cs)
	}
}

// FullConstraintSystem returns one constraint per finite off-diagonal
// entry of the canonical zone.
func FullConstraintSystem(zone *dbm.DBM) []dbm.Constraint {
	return zone.Constraints()
}

// MinimalConstraintSystem partitions the clocks, reference included, into
// classes whose members keep fixed distances (pairwise bounds summing to
// zero). It returns the bounds between class representatives and a cycle
// through each class. Applied to the unconstrained zone and closed, the
// result equals zone.
func MinimalConstraintSystem(zone *dbm.DBM) []dbm.Constraint {
	c := zone.Canonical()
	names := append([]string{dbm.Reference}, c.Clocks()...)
	classes := zeroEquivalenceClasses(c)

	var out []dbm.Constraint
	add := func(i, j int) {
		if b := c.At(i, j); !b.IsInfinite() {
			out = append(out, dbm.Diff(names[i], names[j], b))
		}
	}

	for a, ca := range classes {
		for b, cb := range classes {
			if a != b {
				add(ca[0], cb[0])
			}
		}
	}
	for _, class := range classes {
		if len(class) < 2 {
			continue
		}
		for k := range class {
			add(class[k], class[(k+1)%len(class)])
		}
	}
	return out
}

// RelativeConstraintSystem returns the minimal constraint system of zone
// minus the entries source already fixes. An entry is fixed when source
// bounds it exactly as zone does. Between two classes any fixed entry
// replaces the representative edge; within a class the cycle order with
// the most fixed entries is used. Applied to source and closed, the result
// equals the intersection of source and zone.
func RelativeConstraintSystem(zone, source *dbm.DBM) ([]dbm.Constraint, error) {
	if !zone.SameClocks(source) {
		return nil, fmt.Errorf("%w: source and target zones", dbm.ErrDimensionMismatch)
	}
	c, s := zone.Canonical(), source.Canonical()
	names := append([]string{dbm.Reference}, c.Clocks()...)
	fixed := func(i, j int) bool { return c.At(i, j) == s.At(i, j) }
	classes := zeroEquivalenceClasses(c)

	var out []dbm.Constraint
	add := func(i, j int) {
		if b := c.At(i, j); !b.IsInfinite() {
			out = append(out, dbm.Diff(names[i], names[j], b))
		}
	}

	for a, ca := range classes {
		for b, cb := range classes {
			if a != b && !anyFixed(ca, cb, fixed) {
				add(ca[0], cb[0])
			}
		}
	}
	for _, class := range classes {
		if len(class) < 2 {
			continue
		}
		cycle := bestCycle(class, fixed)
		for k := range cycle {
			i, j := cycle[k], cycle[(k+1)%len(cycle)]
			if !fixed(i, j) {
				add(i, j)
			}
		}
	}
	return out, nil
}

func anyFixed(from, to []int, fixed func(i, j int) bool) bool {
	for _, i := range from {
		for _, j := range to {
			if fixed(i, j) {
				return true
			}
		}
	}
	return false
}

// bestCycle orders class so that its cycle holds the most fixed entries.
func bestCycle(class []int, fixed func(i, j int) bool) []int {
	count := func(order []int) int {
		n := 0
		for k := range order {
			if fixed(order[k], order[(k+1)%len(order)]) {
				n++
			}
		}
		return n
	}

	best := append([]int(nil), class...)
	if len(class) > maxPermutedClass {
		return best
	}
	most := count(best)
	// The first member stays in front; rotations describe the same cycle.
	rest := append([]int(nil), class[1:]...)
	permute(rest, 0, func(p []int) {
		order := append([]int{class[0]}, p...)
		if n := count(order); n > most {
			most = n
			best = order
		}
	})
	return best
}

// permute calls fn with every permutation of xs[k:] behind xs[:k].
func permute(xs []int, k int, fn func([]int)) {
	if k == len(xs) {
		fn(xs)
		return
	}
	for i := k; i < len(xs); i++ {
		xs[k], xs[i] = xs[i], xs[k]
		permute(xs, k+1, fn)
		xs[k], xs[i] = xs[i], xs[k]
	}
}

// zeroEquivalenceClasses groups matrix indices whose pair cycle weighs zero,
// in index order.
func zeroEquivalenceClasses(c *dbm.DBM) [][]int {
	remaining := make([]int, c.Dim())
	for i := range remaining {
		remaining[i] = i
	}

	var classes [][]int
	for len(remaining) > 0 {
		head := remaining[0]
		class := []int{head}
		var rest []int
		for _, j := range remaining[1:] {
			sum := c.At(head, j).Add(c.At(j, head))
			if !sum.IsInfinite() && sum.Value() == 0 {
				class = append(class, j)
			} else {
				rest = append(rest, j)
			}
		}
		classes = append(classes, class)
		remaining = rest
	}
	return classes
}
