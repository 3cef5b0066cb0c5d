package sequence

import (
	"fmt"
	"math/rand/v2"

	"github.com/felixgeelhaar/tastate/domain/dbm"
)

// Generator produces random sequences shaped like runs of a timed
// automaton: edge chunks (lower-bound guards, resets) alternate with
// location chunks (delay, upper-bound invariants). Every prefix of a
// generated sequence keeps the zone non-empty.
type Generator struct {
	length        int
	nonZeroResets bool
	initialResets bool
	rng           *rand.Rand
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithSeed makes the generator deterministic.
func WithSeed(seed uint64) GeneratorOption {
	return func(g *Generator) {
		g.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithNonZeroResets allows resets to values in [0, 10].
func WithNonZeroResets() GeneratorOption {
	return func(g *Generator) {
		g.nonZeroResets = true
	}
}

// WithInitialResets prefixes the sequence with a zero reset of every clock.
func WithInitialResets() GeneratorOption {
	return func(g *Generator) {
		g.initialResets = true
	}
}

// NewGenerator creates a generator for sequences of the given length.
func NewGenerator(length int, opts ...GeneratorOption) *Generator {
	g := &Generator{length: length}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		seed := rand.Uint64()
		g.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
	return g
}

// Generate returns a random sequence starting from init together with the
// zone it reaches.
func (g *Generator) Generate(init *dbm.DBM) (Sequence, *dbm.DBM, error) {
	if g.length < 0 {
		return nil, nil, fmt.Errorf("%w: %d", ErrInvalidLength, g.length)
	}
	run := &generation{gen: g, zone: init.Canonical(), clocks: init.Clocks()}

	if g.initialResets {
		if len(run.clocks) > g.length {
			return nil, nil, fmt.Errorf("%w: %d initial resets exceed length %d",
				ErrInvalidLength, len(run.clocks), g.length)
		}
		for _, c := range run.clocks {
			if err := run.push(Reset(c, 0)); err != nil {
				return nil, nil, err
			}
		}
	}

	if err := run.locationChunk(); err != nil {
		return nil, nil, err
	}
	for len(run.seq) < g.length {
		if err := run.edgeChunk(); err != nil {
			return nil, nil, err
		}
		if err := run.locationChunk(); err != nil {
			return nil, nil, err
		}
	}
	return run.seq, run.zone, nil
}

type generation struct {
	gen    *Generator
	zone   *dbm.DBM
	clocks []string
	seq    Sequence
}

func (r *generation) coin() bool {
	return r.gen.rng.IntN(2) == 0
}

func (r *generation) between(lo, hi int64) int64 {
	return lo + r.gen.rng.Int64N(hi-lo+1)
}

func (r *generation) sample() []string {
	if len(r.clocks) == 0 {
		return nil
	}
	k := 1 + r.gen.rng.IntN(len(r.clocks))
	perm := r.gen.rng.Perm(len(r.clocks))
	out := make([]string, k)
	for i := range out {
		out[i] = r.clocks[perm[i]]
	}
	return out
}

// push applies op and keeps it only if the zone stays non-empty.
func (r *generation) push(op Operation) error {
	next, err := op.Apply(r.zone)
	if err != nil {
		return err
	}
	next = next.Canonical()
	if !next.IsConsistent() {
		return nil
	}
	r.zone = next
	r.seq = append(r.seq, op)
	return nil
}

// interval returns the integer range of clock c in the current zone,
// using lower+20 when c has no upper bound.
func (r *generation) interval(c string) (lo, hi int64) {
	lower, _ := r.zone.Bound(dbm.Reference, c)
	upper, _ := r.zone.Bound(c, dbm.Reference)
	lo = -lower.Value()
	if lower.Strict() {
		lo++
	}
	if upper.IsInfinite() {
		return lo, lo + 20
	}
	hi = upper.Value()
	if upper.Strict() {
		hi--
	}
	return lo, hi
}

func (r *generation) edgeChunk() error {
	limit := r.gen.length
	if r.coin() {
		for _, c := range r.sample() {
			if len(r.seq) > limit-2 {
				break
			}
			_, hi := r.interval(c)
			if hi < 0 {
				continue
			}
			if err := r.push(Guard(dbm.AtLeast(c, r.between(0, hi)))); err != nil {
				return err
			}
		}
	}
	if r.coin() {
		for _, c := range r.sample() {
			if len(r.seq) > limit-1 {
				break
			}
			var v int64
			if r.gen.nonZeroResets {
				v = r.between(0, 10)
			}
			if err := r.push(Reset(c, v)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *generation) locationChunk() error {
	limit := r.gen.length
	if r.coin() && len(r.seq) <= limit-1 {
		if err := r.push(Delay()); err != nil {
			return err
		}
	}
	if r.coin() {
		for _, c := range r.sample() {
			if len(r.seq) > limit-2 {
				break
			}
			lo, hi := r.interval(c)
			if hi < lo {
				continue
			}
			if err := r.push(Guard(dbm.AtMost(c, r.between(lo, hi)))); err != nil {
				return err
			}
		}
	}
	return nil
}
