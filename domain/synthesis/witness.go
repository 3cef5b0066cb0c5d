package synthesis

import (
	"errors"
	"fmt"
	"sort"

	"github.com/felixgeelhaar/tastate/domain/dbm"
	"github.com/felixgeelhaar/tastate/domain/sequence"
)

// errApproximationMissed makes StrategyZone fall back to the witness strategy.
var errApproximationMissed = errors.New("approximation misses the target zone")

// group is a set of clocks sharing one target value.
type group struct {
	value  int64
	clocks []string
}

// groupByValue partitions clocks by their value in point, ascending by
// value and by clock name within a group.
func groupByValue(clocks []string, point dbm.Valuation) []group {
	sorted := append([]string(nil), clocks...)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if point[a] != point[b] {
			return point[a] < point[b]
		}
		return a < b
	})

	var groups []group
	for _, c := range sorted {
		if n := len(groups); n > 0 && groups[n-1].value == point[c] {
			groups[n-1].clocks = append(groups[n-1].clocks, c)
			continue
		}
		groups = append(groups, group{value: point[c], clocks: []string{c}})
	}
	return groups
}

// witness synthesizes for the lower-bound corner of zone. A zone without
// an integer point is reached through the region of a rational point.
func (r *run) witness(zone *dbm.DBM) (*Result, error) {
	point, err := zone.Witness()
	if errors.Is(err, dbm.ErrNoIntegralWitness) {
		return r.region(zone)
	}
	if err != nil {
		return nil, fmt.Errorf("witness: %w", err)
	}
	clocks := zone.Clocks()

	seq, err := r.pointSequence(clocks, point)
	if err != nil {
		return nil, err
	}
	res, err := r.finish(clocks, seq)
	if err != nil {
		return nil, err
	}

	want, err := pointZone(clocks, point)
	if err != nil {
		return nil, err
	}
	if !res.Zone.Equal(want) {
		return nil, fmt.Errorf("%w: reached\n%s\nwant %s", ErrSynthesisMismatch, res.Zone, point)
	}
	res.Witness = point
	res.Strategy = StrategyWitness
	res.Exact = res.Zone.Equal(zone)
	return res, nil
}

// pointSequence emits the grouped resets for point.
//
// The first group is reset to its value, skipping zero resets the zero zone
// already satisfies. Every later group costs one delay, pinned by two
// guards on the representative clock (the first clock of the first group),
// followed by the resets of the group. After the final delay every clock of
// an earlier group is reset again so no value depends on accumulated time.
func (r *run) pointSequence(clocks []string, point dbm.Valuation) (sequence.Sequence, error) {
	groups := groupByValue(clocks, point)
	if len(groups) == 0 {
		return sequence.Sequence{}, nil
	}

	if err := r.step(); err != nil {
		return nil, err
	}
	seq := sequence.Sequence{}
	first := groups[0]
	if first.value != 0 {
		for _, c := range first.clocks {
			seq = append(seq, sequence.Reset(c, first.value))
		}
	}

	rep := first.clocks[0]
	for _, g := range groups[1:] {
		if err := r.step(); err != nil {
			return nil, err
		}
		seq = append(seq,
			sequence.Delay(),
			sequence.Guard(dbm.AtMost(rep, g.value)),
			sequence.Guard(dbm.AtLeast(rep, g.value)),
		)
		for _, c := range g.clocks {
			seq = append(seq, sequence.Reset(c, g.value))
		}
	}

	if len(groups) > 1 {
		var earlier []string
		for _, g := range groups[:len(groups)-1] {
			earlier = append(earlier, g.clocks...)
		}
		sort.Strings(earlier)
		for _, c := range earlier {
			seq = append(seq, sequence.Reset(c, point[c]))
		}
	}
	return seq, nil
}

// region synthesizes for the region of a rational point of zone. Regions
// have integer bounds, so the one holding a point of zone lies inside it.
// The result carries no witness.
func (r *run) region(zone *dbm.DBM) (*Result, error) {
	scaled, den, err := zone.ScaledWitness()
	if err != nil {
		return nil, fmt.Errorf("witness: %w", err)
	}
	clocks := zone.Clocks()

	seq, err := r.regionSequence(clocks, scaled, den)
	if err != nil {
		return nil, err
	}
	res, err := r.finish(clocks, seq)
	if err != nil {
		return nil, err
	}
	if !res.Zone.IsConsistent() || !zone.Includes(res.Zone) {
		return nil, fmt.Errorf("%w: reached\n%s\noutside\n%s", ErrSynthesisMismatch, res.Zone, zone)
	}
	res.Strategy = StrategyWitness
	res.Exact = res.Zone.Equal(zone)
	return res, nil
}

// regionSequence reaches the region of the point scaled/den. Clocks are
// grouped by fractional part, largest first, and each group is reset to
// its integer part. A delay follows every group; guards keep the delay
// positive (the previous group leaves its integer) and keep the first
// group below its next integer. Integral clocks are reset last.
func (r *run) regionSequence(clocks []string, scaled dbm.Valuation, den int64) (sequence.Sequence, error) {
	floor := make(dbm.Valuation, len(clocks))
	frac := make(dbm.Valuation, len(clocks))
	for _, c := range clocks {
		floor[c] = scaled[c] / den
		frac[c] = scaled[c] % den
	}

	sorted := append([]string(nil), clocks...)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if frac[a] != frac[b] {
			return frac[a] > frac[b]
		}
		return a < b
	})

	var groups []group
	var integral []string
	for _, c := range sorted {
		if frac[c] == 0 {
			integral = append(integral, c)
			continue
		}
		if n := len(groups); n > 0 && groups[n-1].value == frac[c] {
			groups[n-1].clocks = append(groups[n-1].clocks, c)
			continue
		}
		groups = append(groups, group{value: frac[c], clocks: []string{c}})
	}
	if len(groups) == 0 {
		return r.pointSequence(clocks, floor)
	}
	groups = append(groups, group{clocks: integral})

	if err := r.step(); err != nil {
		return nil, err
	}
	seq := sequence.Sequence{}
	for _, c := range groups[0].clocks {
		seq = append(seq, sequence.Reset(c, floor[c]))
	}

	rep := groups[0].clocks[0]
	prev := rep
	for _, g := range groups[1:] {
		if err := r.step(); err != nil {
			return nil, err
		}
		seq = append(seq,
			sequence.Delay(),
			sequence.Guard(dbm.Below(rep, floor[rep]+1)),
			sequence.Guard(dbm.Above(prev, floor[prev])),
		)
		for _, c := range g.clocks {
			seq = append(seq, sequence.Reset(c, floor[c]))
		}
		if len(g.clocks) > 0 {
			prev = g.clocks[0]
		}
	}
	return seq, nil
}

// pointZone returns the zone of point over clocks in the given order.
func pointZone(clocks []string, point dbm.Valuation) (*dbm.DBM, error) {
	var cs []dbm.Constraint
	for _, c := range clocks {
		cs = append(cs, dbm.Exactly(c, point[c])...)
	}
	return dbm.FromConstraints(clocks, cs...)
}
