package synthesis

import (
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/felixgeelhaar/tastate/domain/dbm"
	"github.com/felixgeelhaar/tastate/domain/sequence"
)

func mustZone(t *testing.T, clocks []string, exprs ...string) *dbm.DBM {
	t.Helper()
	cs, err := dbm.ParseAll(exprs)
	if err != nil {
		t.Fatal(err)
	}
	z, err := dbm.FromConstraints(clocks, cs...)
	if err != nil {
		t.Fatal(err)
	}
	return z
}

func TestSynthesize_TwoClocks(t *testing.T) {
	res, err := New().SynthesizeValuation(dbm.Valuation{"x": 3, "y": 1})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}

	want := sequence.Sequence{
		sequence.Reset("y", 1),
		sequence.Delay(),
		sequence.Guard(dbm.AtMost("y", 3)),
		sequence.Guard(dbm.AtLeast("y", 3)),
		sequence.Reset("x", 3),
		sequence.Reset("y", 1),
	}
	if !res.Sequence.Equal(want) {
		t.Errorf("Sequence = %s, want %s", res.Sequence, want)
	}
	if !res.Witness.Equal(dbm.Valuation{"x": 3, "y": 1}) {
		t.Errorf("Witness = %s, want x=3, y=1", res.Witness)
	}
	if !res.Exact {
		t.Error("point target should be reached exactly")
	}
	if res.Strategy != StrategyWitness {
		t.Errorf("Strategy = %s, want witness", res.Strategy)
	}
	if res.Measures.Length != len(want) || res.Measures.Steps != 2 {
		t.Errorf("Measures = %+v", res.Measures)
	}
}

func TestSynthesize_IntervalUsesWitness(t *testing.T) {
	res, err := New().Synthesize(mustZone(t, []string{"x"}, "x >= 1", "x <= 2"))
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	want := sequence.Sequence{sequence.Reset("x", 1)}
	if !res.Sequence.Equal(want) {
		t.Errorf("Sequence = %s, want %s", res.Sequence, want)
	}
	if res.Exact {
		t.Error("a point cannot reach the interval exactly")
	}
}

func TestSynthesize_ZeroTarget(t *testing.T) {
	zero, _ := dbm.Zero("x", "y")
	res, err := New().Synthesize(zero)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if len(res.Sequence) != 0 {
		t.Errorf("Sequence = %s, want empty", res.Sequence)
	}
}

func TestSynthesize_Errors(t *testing.T) {
	tests := []struct {
		name    string
		syn     *Synthesizer
		zone    func(t *testing.T) *dbm.DBM
		wantErr error
	}{
		{
			name:    "empty zone",
			syn:     New(),
			zone:    func(t *testing.T) *dbm.DBM { return mustZone(t, []string{"x"}, "x > 2", "x < 1") },
			wantErr: ErrUnsatisfiableTarget,
		},
		{
			name: "step bound",
			syn:  New(WithMaxSteps(2)),
			zone: func(t *testing.T) *dbm.DBM {
				z, _ := dbm.FromValuation(dbm.Valuation{"x": 1, "y": 2, "z": 3})
				return z
			},
			wantErr: ErrTimeout,
		},
		{
			name:    "unknown strategy",
			syn:     New(WithStrategy("magic")),
			zone:    func(t *testing.T) *dbm.DBM { return mustZone(t, []string{"x"}, "x <= 1") },
			wantErr: ErrUnknownStrategy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.syn.Synthesize(tt.zone(t))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Synthesize() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSynthesize_StrictZones(t *testing.T) {
	tests := []struct {
		name      string
		clocks    []string
		exprs     []string
		wantExact bool
	}{
		{"open interval", []string{"x"}, []string{"x > 1", "x < 2"}, true},
		{"open band", []string{"x", "y"}, []string{"x > 2", "x < 3", "y - x > 0", "y - x < 1"}, false},
		{"mixed", []string{"x", "y", "z"}, []string{"x > 0", "x < 1", "y == 4", "z - x > 5", "z < 7"}, false},
	}

	for _, strategy := range []Strategy{StrategyWitness, StrategyZone} {
		for _, tt := range tests {
			t.Run(string(strategy)+"/"+tt.name, func(t *testing.T) {
				zone := mustZone(t, tt.clocks, tt.exprs...)
				res, err := New(WithStrategy(strategy)).Synthesize(zone)
				if err != nil {
					t.Fatalf("Synthesize() error = %v", err)
				}
				zero, _ := dbm.Zero(tt.clocks...)
				reached, err := res.Sequence.Apply(zero)
				if err != nil {
					t.Fatalf("Apply() error = %v", err)
				}
				if !reached.IsConsistent() || !zone.Includes(reached) {
					t.Fatalf("%s reached\n%s\noutside the target", res.Sequence, reached)
				}
				if res.Witness != nil {
					t.Errorf("Witness = %s, want none for a zone without integer points", res.Witness)
				}
				if strategy == StrategyWitness && res.Exact != tt.wantExact {
					t.Errorf("Exact = %v, want %v (reached\n%s)", res.Exact, tt.wantExact, reached)
				}
			})
		}
	}
}

func TestSynthesize_OpenIntervalSequence(t *testing.T) {
	res, err := New().Synthesize(mustZone(t, []string{"x"}, "x > 1", "x < 2"))
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	want := sequence.Sequence{
		sequence.Reset("x", 1),
		sequence.Delay(),
		sequence.Guard(dbm.Below("x", 2)),
		sequence.Guard(dbm.Above("x", 1)),
	}
	if !res.Sequence.Equal(want) {
		t.Errorf("Sequence = %s, want %s", res.Sequence, want)
	}
	if !res.Exact {
		t.Error("the open interval is a region and should be reached exactly")
	}
}

func TestSynthesize_TimeLimit(t *testing.T) {
	syn := New(WithTimeLimit(time.Second))
	tick := time.Unix(0, 0)
	syn.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}

	_, err := syn.SynthesizeValuation(dbm.Valuation{"x": 1, "y": 2, "z": 3})
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Synthesize() error = %v, want ErrTimeout", err)
	}
}

func TestSynthesize_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 13))
	syn := New()

	for i := 0; i < 200; i++ {
		v := dbm.Valuation{
			"x": rng.Int64N(15),
			"y": rng.Int64N(15),
			"z": rng.Int64N(15),
		}
		res, err := syn.SynthesizeValuation(v)
		if err != nil {
			t.Fatalf("Synthesize(%s) error = %v", v, err)
		}

		zero, _ := dbm.Zero("x", "y", "z")
		reached, err := res.Sequence.Apply(zero)
		if err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		w, err := reached.Witness()
		if err != nil {
			t.Fatalf("Witness() error = %v", err)
		}
		if !w.Equal(v) {
			t.Errorf("Synthesize(%s) reached %s via %s", v, w, res.Sequence)
		}
		if got := res.Sequence.Count(sequence.KindDelay); got >= len(groupByValue(v.Clocks(), v)) && got > 0 {
			t.Errorf("Synthesize(%s) used %d delays", v, got)
		}
	}
}

func TestSynthesize_Reduction(t *testing.T) {
	res, err := New(WithReduction()).SynthesizeValuation(dbm.Valuation{"x": 3, "y": 1})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	want := sequence.Sequence{sequence.Reset("x", 3), sequence.Reset("y", 1)}
	if !res.Sequence.Equal(want) {
		t.Errorf("Sequence = %s, want %s", res.Sequence, want)
	}
	if res.Measures.Length != 6 || res.Measures.ReducedLength != 2 {
		t.Errorf("Measures = %+v", res.Measures)
	}
}

func TestSynthesize_ZoneStrategy(t *testing.T) {
	tests := []struct {
		name      string
		zone      *dbm.DBM
		wantExact bool
	}{
		{"point", mustZone(t, []string{"x", "y"}, "x == 3", "y == 1"), true},
		{"interval", mustZone(t, []string{"x"}, "x >= 1", "x <= 2"), true},
		{"ordered band", mustZone(t, []string{"x", "y"}, "x - y <= 4", "y - x <= 0", "x <= 10"), true},
		{"unordered band", mustZone(t, []string{"x", "y"}, "x - y <= 1", "y - x <= 1"), false},
	}

	for _, system := range []ConstraintSystem{SystemFull, SystemMinimal, SystemRelative} {
		for _, tt := range tests {
			t.Run(string(system)+"/"+tt.name, func(t *testing.T) {
				res, err := New(WithStrategy(StrategyZone), WithConstraintSystem(system)).Synthesize(tt.zone)
				if err != nil {
					t.Fatalf("Synthesize() error = %v", err)
				}
				if res.Strategy != StrategyZone {
					t.Fatalf("Strategy = %s, want zone", res.Strategy)
				}
				if res.Exact != tt.wantExact {
					t.Errorf("Exact = %v, want %v (reached\n%s)", res.Exact, tt.wantExact, res.Zone)
				}
				if !tt.zone.Includes(res.Zone) {
					t.Error("reached zone leaves the target")
				}
				if !tt.zone.Contains(res.Witness) {
					t.Errorf("Witness %s outside the target", res.Witness)
				}
			})
		}
	}
}

func TestConstraintSystems_RebuildZone(t *testing.T) {
	clocks := []string{"x", "y", "z"}
	zero, _ := dbm.Zero(clocks...)

	for seed := uint64(1); seed <= 30; seed++ {
		_, zone, err := sequence.NewGenerator(12, sequence.WithSeed(seed), sequence.WithNonZeroResets()).Generate(zero)
		if err != nil {
			t.Fatalf("seed %d: Generate() error = %v", seed, err)
		}
		for _, system := range []ConstraintSystem{SystemFull, SystemMinimal, SystemRelative} {
			cs, err := system.Constraints(zone, nil)
			if err != nil {
				t.Fatal(err)
			}
			rebuilt, err := dbm.FromConstraints(clocks, cs...)
			if err != nil {
				t.Fatalf("seed %d: FromConstraints() error = %v", seed, err)
			}
			if !rebuilt.Equal(zone) {
				t.Errorf("seed %d: %s system rebuilt\n%s\nwant\n%s", seed, system, rebuilt, zone)
			}
		}
	}
}

func TestMinimalConstraintSystem_Smaller(t *testing.T) {
	zone, _ := dbm.FromValuation(dbm.Valuation{"x": 3, "y": 1, "z": 1})
	full := FullConstraintSystem(zone)
	minimal := MinimalConstraintSystem(zone)
	if len(minimal) != 4 {
		t.Errorf("minimal system has %d constraints, want a 4-cycle", len(minimal))
	}
	if len(minimal) >= len(full) {
		t.Errorf("minimal system (%d) should be smaller than full (%d)", len(minimal), len(full))
	}
}

func TestRelativeConstraintSystem(t *testing.T) {
	clocks := []string{"x", "y", "z"}
	zero, _ := dbm.Zero(clocks...)

	for seed := uint64(1); seed <= 30; seed++ {
		_, zone, err := sequence.NewGenerator(12, sequence.WithSeed(seed), sequence.WithNonZeroResets()).Generate(zero)
		if err != nil {
			t.Fatalf("seed %d: Generate() error = %v", seed, err)
		}
		loose, err := zone.Free("y")
		if err != nil {
			t.Fatal(err)
		}
		for _, source := range []*dbm.DBM{zone.Up(), loose, zone} {
			cs, err := RelativeConstraintSystem(zone, source)
			if err != nil {
				t.Fatalf("seed %d: RelativeConstraintSystem() error = %v", seed, err)
			}
			if minimal := MinimalConstraintSystem(zone); len(cs) > len(minimal) {
				t.Errorf("seed %d: relative system has %d constraints, minimal %d", seed, len(cs), len(minimal))
			}
			rebuilt, err := source.ConstrainAll(cs...)
			if err != nil {
				t.Fatal(err)
			}
			if !rebuilt.Equal(zone) {
				t.Errorf("seed %d: relative system rebuilt\n%s\nwant\n%s", seed, rebuilt, zone)
			}
		}
	}
}

func TestRelativeConstraintSystem_SourceIsTarget(t *testing.T) {
	t.Parallel()

	zone, _ := dbm.FromValuation(dbm.Valuation{"x": 3, "y": 1, "z": 1})
	cs, err := RelativeConstraintSystem(zone, zone)
	if err != nil {
		t.Fatalf("RelativeConstraintSystem() error = %v", err)
	}
	if len(cs) != 0 {
		t.Errorf("constraints = %v, want none when the source already is the target", cs)
	}

	other, _ := dbm.Zero("x", "y")
	if _, err := RelativeConstraintSystem(zone, other); !errors.Is(err, dbm.ErrDimensionMismatch) {
		t.Errorf("RelativeConstraintSystem() error = %v, want ErrDimensionMismatch", err)
	}
}

func TestSynthesizer_Fingerprint(t *testing.T) {
	t.Parallel()

	a := New()
	b := New(WithStrategy(StrategyWitness), WithConstraintSystem(SystemMinimal))
	if a.Fingerprint() != b.Fingerprint() {
		t.Errorf("equal settings: %s != %s", a.Fingerprint(), b.Fingerprint())
	}
	for _, other := range []*Synthesizer{
		New(WithStrategy(StrategyZone)),
		New(WithConstraintSystem(SystemFull)),
		New(WithConstraintSystem(SystemRelative)),
		New(WithMaxSteps(3)),
		New(WithReduction()),
	} {
		if other.Fingerprint() == a.Fingerprint() {
			t.Errorf("fingerprint %s should differ from the default", other.Fingerprint())
		}
	}
}
