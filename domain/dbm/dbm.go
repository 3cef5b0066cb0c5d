// Package dbm implements difference bound matrices, the canonical
// representation of clock zones.
//
// A DBM over n clocks is an (n+1)×(n+1) matrix of Bounds; row and column 0
// belong to the reference clock, which is always 0. Entry (i,j) bounds
// clock_i - clock_j. Every operation returns a new DBM, so values can be
// shared freely between goroutines.
package dbm

import (
	"errors"
	"fmt"
	"strings"
)

// Reference is the name used for the reference clock in constraints.
const Reference = ""

// DBM is an immutable difference bound matrix.
type DBM struct {
	clocks []string
	index  map[string]int
	m      []Bound
	closed bool
}

func newDBM(clocks []string) (*DBM, error) {
	index := make(map[string]int, len(clocks))
	for i, c := range clocks {
		if c == Reference || strings.ContainsAny(c, " \t\n") {
			return nil, fmt.Errorf("%w: %q", ErrInvalidClock, c)
		}
		if _, dup := index[c]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateClock, c)
		}
		index[c] = i + 1
	}
	dim := len(clocks) + 1
	return &DBM{
		clocks: append([]string(nil), clocks...),
		index:  index,
		m:      make([]Bound, dim*dim),
		closed: true,
	}, nil
}

// Zero returns the zone in which every clock equals 0.
func Zero(clocks ...string) (*DBM, error) {
	return newDBM(clocks)
}

// Unconstrained returns the zone of all non-negative valuations.
func Unconstrained(clocks ...string) (*DBM, error) {
	d, err := newDBM(clocks)
	if err != nil {
		return nil, err
	}
	dim := d.Dim()
	for i := 1; i < dim; i++ {
		for j := 0; j < dim; j++ {
			if i != j {
				d.set(i, j, Infinity())
			}
		}
	}
	return d, nil
}

// FromConstraints returns the non-negative zone restricted by cs.
func FromConstraints(clocks []string, cs ...Constraint) (*DBM, error) {
	d, err := Unconstrained(clocks...)
	if err != nil {
		return nil, err
	}
	d, err = d.ConstrainAll(cs...)
	if err != nil {
		return nil, err
	}
	return d.Canonical(), nil
}

// FromValuation returns the point zone of v over its clocks in name order.
// A negative clock value yields an empty zone.
func FromValuation(v Valuation) (*DBM, error) {
	clocks := v.Clocks()
	var cs []Constraint
	for _, c := range clocks {
		cs = append(cs, Exactly(c, v[c])...)
	}
	return FromConstraints(clocks, cs...)
}

// Dim returns the matrix dimension, one more than the number of clocks.
func (d *DBM) Dim() int { return len(d.clocks) + 1 }

// Clocks returns the clock names in matrix order, without the reference.
func (d *DBM) Clocks() []string {
	return append([]string(nil), d.clocks...)
}

// HasClock reports whether the DBM ranges over the named clock.
func (d *DBM) HasClock(name string) bool {
	_, ok := d.index[name]
	return ok
}

// IsCanonical reports whether the matrix is known to be closed.
func (d *DBM) IsCanonical() bool { return d.closed }

// At returns entry (i,j) of the matrix as stored.
func (d *DBM) At(i, j int) Bound {
	return d.m[i*d.Dim()+j]
}

// Bound returns the bound on left - right as stored.
func (d *DBM) Bound(left, right string) (Bound, error) {
	i, err := d.indexOf(left)
	if err != nil {
		return Bound{}, err
	}
	j, err := d.indexOf(right)
	if err != nil {
		return Bound{}, err
	}
	return d.At(i, j), nil
}

func (d *DBM) set(i, j int, b Bound) {
	d.m[i*d.Dim()+j] = b
}

func (d *DBM) indexOf(name string) (int, error) {
	if name == Reference {
		return 0, nil
	}
	i, ok := d.index[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownClock, name)
	}
	return i, nil
}

func (d *DBM) clone() *DBM {
	return &DBM{
		clocks: d.clocks,
		index:  d.index,
		m:      append([]Bound(nil), d.m...),
		closed: d.closed,
	}
}

// Canonical returns the shortest-path closure of d. Canonicalizing a
// canonical DBM returns it unchanged.
func (d *DBM) Canonical() *DBM {
	if d.closed {
		return d
	}
	c := d.clone()
	c.close()
	return c
}

func (d *DBM) close() {
	dim := d.Dim()
	for k := 0; k < dim; k++ {
		for i := 0; i < dim; i++ {
			ik := d.m[i*dim+k]
			if ik.IsInfinite() {
				continue
			}
			for j := 0; j < dim; j++ {
				if sum := ik.Add(d.m[k*dim+j]); sum.Less(d.m[i*dim+j]) {
					d.m[i*dim+j] = sum
				}
			}
		}
	}
	d.closed = true
}

// IsConsistent reports whether the zone is non-empty.
func (d *DBM) IsConsistent() bool {
	c := d.Canonical()
	for i := 0; i < c.Dim(); i++ {
		if c.At(i, i).IsNegative() {
			return false
		}
	}
	return true
}

// Constrain intersects the zone with one constraint. The result is not
// canonical until closed.
func (d *DBM) Constrain(c Constraint) (*DBM, error) {
	i, err := d.indexOf(c.Left)
	if err != nil {
		return nil, err
	}
	j, err := d.indexOf(c.Right)
	if err != nil {
		return nil, err
	}
	if !c.Bound.Less(d.At(i, j)) {
		return d, nil
	}
	out := d.clone()
	out.set(i, j, c.Bound)
	out.closed = false
	return out, nil
}

// ConstrainAll intersects the zone with every constraint in order.
func (d *DBM) ConstrainAll(cs ...Constraint) (*DBM, error) {
	out := d
	for _, c := range cs {
		next, err := out.Constrain(c)
		if err != nil {
			return nil, err
		}
		out = next
	}
	return out, nil
}

// Reset sets clock to v, dropping every constraint specific to it, and
// returns the closed result.
func (d *DBM) Reset(clock string, v int64) (*DBM, error) {
	k, err := d.indexOf(clock)
	if err != nil {
		return nil, err
	}
	if k == 0 {
		return nil, fmt.Errorf("%w: reference clock cannot be reset", ErrInvalidClock)
	}
	out := d.Canonical().clone()
	for j := 0; j < out.Dim(); j++ {
		if j == k {
			continue
		}
		out.set(k, j, out.At(0, j).Add(LE(v)))
		out.set(j, k, out.At(j, 0).Add(LE(-v)))
	}
	out.set(k, k, LE(0))
	out.close()
	return out, nil
}

// Up lets time pass: every upper bound clock - ref is removed while lower
// bounds and clock differences are kept.
func (d *DBM) Up() *DBM {
	out := d.Canonical().clone()
	for i := 1; i < out.Dim(); i++ {
		out.set(i, 0, Infinity())
	}
	return out
}

// Free removes every constraint on clock except clock >= 0.
func (d *DBM) Free(clock string) (*DBM, error) {
	k, err := d.indexOf(clock)
	if err != nil {
		return nil, err
	}
	if k == 0 {
		return nil, fmt.Errorf("%w: reference clock cannot be freed", ErrInvalidClock)
	}
	out := d.Canonical().clone()
	for j := 0; j < out.Dim(); j++ {
		if j == k {
			continue
		}
		out.set(k, j, Infinity())
		out.set(j, k, out.At(j, 0))
	}
	out.set(0, k, LE(0))
	out.set(k, k, LE(0))
	return out, nil
}

// Witness returns the lower-bound corner of the zone: clocks are fixed in
// matrix order, each to the smallest integer its current lower bound admits.
func (d *DBM) Witness() (Valuation, error) {
	if !d.IsConsistent() {
		return nil, ErrEmptyZone
	}
	w := d.Canonical()
	v := make(Valuation, len(d.clocks))
	for i, name := range d.clocks {
		lower := w.At(0, i+1)
		x := -lower.Value()
		if lower.Strict() {
			x++
		}
		next, err := w.ConstrainAll(Exactly(name, x)...)
		if err != nil {
			return nil, err
		}
		next = next.Canonical()
		if !next.IsConsistent() {
			return nil, fmt.Errorf("%w: clock %s", ErrNoIntegralWitness, name)
		}
		w = next
		v[name] = x
	}
	return v, nil
}

// ScaledWitness returns a point of the zone as integer numerators over a
// common denominator den. den is 1 when Witness succeeds. Otherwise the
// zone is scaled by its dimension, turning a strict bound c into the
// non-strict c*den-1; a simple cycle holds at most den strict entries, so
// the scaled zone stays consistent and has an integral corner.
func (d *DBM) ScaledWitness() (v Valuation, den int64, err error) {
	v, err = d.Witness()
	if err == nil {
		return v, 1, nil
	}
	if !errors.Is(err, ErrNoIntegralWitness) {
		return nil, 0, err
	}

	den = int64(d.Dim())
	c := d.Canonical()
	scaled := c.clone()
	for i := 0; i < c.Dim(); i++ {
		for j := 0; j < c.Dim(); j++ {
			b := c.At(i, j)
			if i == j || b.IsInfinite() {
				continue
			}
			n := b.Value() * den
			if b.Strict() {
				n--
			}
			scaled.set(i, j, LE(n))
		}
	}
	scaled.closed = false

	v, err = scaled.Witness()
	if err != nil {
		return nil, 0, err
	}
	return v, den, nil
}

// SameClocks reports whether o ranges over the same clocks in the same order.
func (d *DBM) SameClocks(o *DBM) bool {
	if len(d.clocks) != len(o.clocks) {
		return false
	}
	for i := range d.clocks {
		if d.clocks[i] != o.clocks[i] {
			return false
		}
	}
	return true
}

// Equal reports whether both DBMs describe the same zone. All empty zones
// are equal.
func (d *DBM) Equal(o *DBM) bool {
	if !d.SameClocks(o) {
		return false
	}
	dc, oc := d.IsConsistent(), o.IsConsistent()
	if !dc || !oc {
		return dc == oc
	}
	a, b := d.Canonical(), o.Canonical()
	for i := range a.m {
		if a.m[i] != b.m[i] {
			return false
		}
	}
	return true
}

// Includes reports whether every valuation of o lies in d.
func (d *DBM) Includes(o *DBM) bool {
	if !d.SameClocks(o) {
		return false
	}
	if !o.IsConsistent() {
		return true
	}
	a, b := d.Canonical(), o.Canonical()
	for i := range a.m {
		if a.m[i].Less(b.m[i]) {
			return false
		}
	}
	return true
}

// Contains reports whether v satisfies every constraint of the zone.
func (d *DBM) Contains(v Valuation) bool {
	vals := make([]int64, d.Dim())
	for i, name := range d.clocks {
		x, ok := v[name]
		if !ok {
			return false
		}
		vals[i+1] = x
	}
	for i := 0; i < d.Dim(); i++ {
		for j := 0; j < d.Dim(); j++ {
			b := d.At(i, j)
			if b.IsInfinite() {
				continue
			}
			diff := vals[i] - vals[j]
			if diff > b.Value() || (b.Strict() && diff == b.Value()) {
				return false
			}
		}
	}
	return true
}

// Intersect returns the closed intersection of two zones over the same clocks.
func (d *DBM) Intersect(o *DBM) (*DBM, error) {
	if !d.SameClocks(o) {
		return nil, ErrDimensionMismatch
	}
	out := d.clone()
	for i := range out.m {
		out.m[i] = out.m[i].Min(o.m[i])
	}
	out.close()
	return out, nil
}

// Intersects reports whether two zones over the same clocks share a valuation.
func (d *DBM) Intersects(o *DBM) bool {
	x, err := d.Intersect(o)
	return err == nil && x.IsConsistent()
}

// Over re-expresses the zone over clocks, which must include every clock
// of d. Clocks new to the zone are unconstrained.
func (d *DBM) Over(clocks []string) (*DBM, error) {
	out, err := Unconstrained(clocks...)
	if err != nil {
		return nil, err
	}
	for _, c := range d.clocks {
		if !out.HasClock(c) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownClock, c)
		}
	}
	src := d.Canonical()
	names := append([]string{Reference}, src.clocks...)
	for i, a := range names {
		for j, b := range names {
			oi, _ := out.indexOf(a)
			oj, _ := out.indexOf(b)
			out.set(oi, oj, src.At(i, j))
		}
	}
	out.closed = false
	return out.Canonical(), nil
}

// Constraints returns one constraint per finite off-diagonal entry of the
// canonical form.
func (d *DBM) Constraints() []Constraint {
	c := d.Canonical()
	names := append([]string{Reference}, c.clocks...)
	var out []Constraint
	for i := range names {
		for j := range names {
			if i == j || c.At(i, j).IsInfinite() {
				continue
			}
			out = append(out, Diff(names[i], names[j], c.At(i, j)))
		}
	}
	return out
}

// String prints the matrix with row and column headers.
func (d *DBM) String() string {
	names := append([]string{"0"}, d.clocks...)
	width := 4
	for _, n := range names {
		width = max(width, len(n))
	}
	for _, b := range d.m {
		width = max(width, len(b.String()))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%*s", width, "")
	for _, n := range names {
		fmt.Fprintf(&sb, " %*s", width, n)
	}
	for i, n := range names {
		sb.WriteByte('\n')
		fmt.Fprintf(&sb, "%*s", width, n)
		for j := range names {
			fmt.Fprintf(&sb, " %*s", width, d.At(i, j).String())
		}
	}
	return sb.String()
}
