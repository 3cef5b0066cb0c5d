// Package synthesis turns a target clock zone into a sequence of clock
// operations that drives the zero zone into it.
package synthesis

import (
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/tastate/domain/dbm"
	"github.com/felixgeelhaar/tastate/domain/sequence"
)

// Strategy selects how a sequence is synthesized.
type Strategy string

const (
	// StrategyWitness synthesizes a sequence for one integer point of the
	// zone, grouping clocks by target value.
	StrategyWitness Strategy = "witness"

	// StrategyZone approximates the zone with zero resets and delays and
	// then tightens it with a constraint system, keeping the zone shape
	// where the approximation allows.
	StrategyZone Strategy = "zone"
)

// IsValid reports whether the strategy is known.
func (s Strategy) IsValid() bool {
	return s == StrategyWitness || s == StrategyZone
}

// Measures records the cost of one synthesis.
type Measures struct {
	GenerationTime  time.Duration `json:"generation_time"`
	ApplicationTime time.Duration `json:"application_time"`
	Length          int           `json:"length"`
	ReducedLength   int           `json:"reduced_length,omitempty"`
	Steps           int           `json:"steps"`
}

// Result is the outcome of a synthesis.
type Result struct {
	// Sequence drives the zero zone into Zone.
	Sequence sequence.Sequence `json:"sequence"`

	// Witness is the clock valuation the construction targets.
	Witness dbm.Valuation `json:"witness"`

	// Zone is the zone Sequence reaches from the zero zone.
	Zone *dbm.DBM `json:"-"`

	// Strategy is the strategy that produced Sequence.
	Strategy Strategy `json:"strategy"`

	// Exact reports whether Zone equals the requested zone.
	Exact bool `json:"exact"`

	Measures Measures `json:"measures"`
}

// Synthesizer produces operation sequences. It holds no mutable state and
// is safe for concurrent use.
type Synthesizer struct {
	strategy  Strategy
	system    ConstraintSystem
	maxSteps  int
	timeLimit time.Duration
	reduce    bool
	now       func() time.Time
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithStrategy selects the synthesis strategy.
func WithStrategy(s Strategy) Option {
	return func(syn *Synthesizer) {
		syn.strategy = s
	}
}

// WithConstraintSystem selects the constraint system StrategyZone tightens with.
func WithConstraintSystem(cs ConstraintSystem) Option {
	return func(syn *Synthesizer) {
		syn.system = cs
	}
}

// WithMaxSteps bounds the number of clock groups processed. Zero disables the bound.
func WithMaxSteps(n int) Option {
	return func(syn *Synthesizer) {
		syn.maxSteps = n
	}
}

// WithTimeLimit bounds the wall time of one synthesis. Zero disables the bound.
func WithTimeLimit(d time.Duration) Option {
	return func(syn *Synthesizer) {
		syn.timeLimit = d
	}
}

// WithReduction replaces the sequence by its reduction when both reach the
// same zone.
func WithReduction() Option {
	return func(syn *Synthesizer) {
		syn.reduce = true
	}
}

// New creates a synthesizer using the witness strategy by default.
func New(opts ...Option) *Synthesizer {
	s := &Synthesizer{
		strategy: StrategyWitness,
		system:   SystemMinimal,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Strategy returns the configured strategy.
func (s *Synthesizer) Strategy() Strategy { return s.strategy }

// Fingerprint identifies the settings that influence a result. Two
// synthesizers with equal fingerprints produce equal results for a zone.
func (s *Synthesizer) Fingerprint() string {
	return fmt.Sprintf("%s/%s/steps=%d/limit=%s/reduce=%t",
		s.strategy, s.system, s.maxSteps, s.timeLimit, s.reduce)
}

// Synthesize returns a sequence reaching zone from the zero zone over the
// same clocks. An empty zone fails with ErrUnsatisfiableTarget before any
// work is done.
func (s *Synthesizer) Synthesize(zone *dbm.DBM) (*Result, error) {
	if zone == nil || !zone.IsConsistent() {
		return nil, fmt.Errorf("%w: zone is empty", ErrUnsatisfiableTarget)
	}
	if !s.strategy.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, s.strategy)
	}
	zone = zone.Canonical()

	run := &run{syn: s, start: s.now()}
	if s.strategy == StrategyZone {
		res, err := run.zone(zone)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, errApproximationMissed) {
			return nil, err
		}
	}
	return run.witness(zone)
}

// SynthesizeValuation synthesizes for the point zone of v.
func (s *Synthesizer) SynthesizeValuation(v dbm.Valuation) (*Result, error) {
	zone, err := dbm.FromValuation(v)
	if err != nil {
		return nil, err
	}
	return s.Synthesize(zone)
}

// run carries the bookkeeping of one synthesis.
type run struct {
	syn   *Synthesizer
	start time.Time
	steps int
}

// step counts one unit of work and enforces the configured bounds.
func (r *run) step() error {
	r.steps++
	if r.syn.maxSteps > 0 && r.steps > r.syn.maxSteps {
		return fmt.Errorf("%w: more than %d steps", ErrTimeout, r.syn.maxSteps)
	}
	if r.syn.timeLimit > 0 && r.syn.now().Sub(r.start) > r.syn.timeLimit {
		return fmt.Errorf("%w: exceeded %s", ErrTimeout, r.syn.timeLimit)
	}
	return nil
}

// finish applies seq to the zero zone, optionally reduces it, and fills in
// the measures.
func (r *run) finish(clocks []string, seq sequence.Sequence) (*Result, error) {
	generated := r.syn.now()
	zero, err := dbm.Zero(clocks...)
	if err != nil {
		return nil, err
	}
	reached, err := seq.Apply(zero)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Sequence: seq,
		Zone:     reached,
		Measures: Measures{
			GenerationTime: generated.Sub(r.start),
			Length:         len(seq),
			Steps:          r.steps,
		},
	}

	if r.syn.reduce {
		reduced := seq.Reduce(clocks)
		res.Measures.ReducedLength = len(reduced)
		if z, err := reduced.Apply(zero); err == nil && z.Equal(reached) {
			res.Sequence = reduced
		}
	}
	res.Measures.ApplicationTime = r.syn.now().Sub(generated)
	return res, nil
}
