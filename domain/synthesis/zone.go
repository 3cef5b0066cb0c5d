package synthesis

import (
	"sort"

	"github.com/felixgeelhaar/tastate/domain/dbm"
	"github.com/felixgeelhaar/tastate/domain/sequence"
)

// zone synthesizes with StrategyZone. It returns errApproximationMissed
// when the tightened approximation is empty. A reached zone without an
// integer point leaves Witness nil.
func (r *run) zone(target *dbm.DBM) (*Result, error) {
	clocks := target.Clocks()

	seq := sequence.Sequence{}
	for _, c := range resetOrder(target) {
		if err := r.step(); err != nil {
			return nil, err
		}
		seq = append(seq, sequence.Reset(c, 0), sequence.Delay())
	}
	zero, err := dbm.Zero(clocks...)
	if err != nil {
		return nil, err
	}
	approx, err := seq.Apply(zero)
	if err != nil {
		return nil, err
	}
	guards, err := r.syn.system.Constraints(target, approx)
	if err != nil {
		return nil, err
	}
	for _, g := range guards {
		seq = append(seq, sequence.Guard(g))
	}

	res, err := r.finish(clocks, seq)
	if err != nil {
		return nil, err
	}
	if !res.Zone.IsConsistent() {
		return nil, errApproximationMissed
	}
	if !target.Includes(res.Zone) {
		return nil, ErrSynthesisMismatch
	}
	if point, err := res.Zone.Witness(); err == nil {
		res.Witness = point
	}
	res.Strategy = StrategyZone
	res.Exact = res.Zone.Equal(target)
	return res, nil
}

// resetOrder orders clocks by the number of positive entries in their
// column, fewest first, then by name. A clock with few positive column
// entries is rarely exceeded by other clocks, so it is reset earliest and
// ages longest.
func resetOrder(zone *dbm.DBM) []string {
	clocks := zone.Clocks()
	positive := make(map[string]int, len(clocks))
	for j, c := range clocks {
		for i := 0; i < zone.Dim(); i++ {
			b := zone.At(i, j+1)
			if b.IsInfinite() || b.Value() > 0 {
				positive[c]++
			}
		}
	}
	sort.SliceStable(clocks, func(a, b int) bool {
		if positive[clocks[a]] != positive[clocks[b]] {
			return positive[clocks[a]] < positive[clocks[b]]
		}
		return clocks[a] < clocks[b]
	})
	return clocks
}
