package sequence

import (
	"errors"
	"testing"

	"github.com/felixgeelhaar/tastate/domain/dbm"
)

func TestOperation_String(t *testing.T) {
	tests := []struct {
		op   Operation
		want string
	}{
		{Reset("x", 3), "x := 3"},
		{Delay(), "delay"},
		{Guard(dbm.AtMost("y", 3)), "guard y <= 3"},
		{Guard(dbm.AtLeast("y", 3)), "guard y >= 3"},
		{Free("z"), "free z"},
	}

	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestOperation_Validate(t *testing.T) {
	tests := []struct {
		name    string
		op      Operation
		wantErr error
	}{
		{"reset", Reset("x", 0), nil},
		{"delay", Delay(), nil},
		{"reset without clock", Operation{Kind: KindReset}, ErrInvalidOperation},
		{"guard without constraint", Operation{Kind: KindGuard}, ErrInvalidOperation},
		{"unknown kind", Operation{Kind: Kind(42)}, ErrUnknownOperation},
		{"zero kind", Operation{}, ErrUnknownOperation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.op.Validate()
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestKind_UnmarshalText(t *testing.T) {
	var k Kind
	if err := k.UnmarshalText([]byte("guard")); err != nil {
		t.Fatalf("UnmarshalText(guard) error = %v", err)
	}
	if k != KindGuard {
		t.Errorf("UnmarshalText(guard) = %s, want guard", k)
	}
	if err := k.UnmarshalText([]byte("close")); !errors.Is(err, ErrUnknownOperation) {
		t.Errorf("UnmarshalText(close) error = %v, want ErrUnknownOperation", err)
	}
}

func TestSequence_Apply(t *testing.T) {
	zero, err := dbm.Zero("x", "y")
	if err != nil {
		t.Fatal(err)
	}
	seq := Sequence{
		Reset("x", 1),
		Delay(),
		Guard(dbm.AtMost("x", 3)),
		Guard(dbm.AtLeast("x", 3)),
	}

	got, err := seq.Apply(zero)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	want, _ := dbm.FromValuation(dbm.Valuation{"x": 3, "y": 2})
	if !got.Equal(want) {
		t.Errorf("Apply() reached\n%s\nwant\n%s", got, want)
	}
	if !got.IsCanonical() {
		t.Error("Apply() result should be canonical")
	}

	if _, err := (Sequence{Reset("z", 1)}).Apply(zero); !errors.Is(err, dbm.ErrUnknownClock) {
		t.Errorf("Apply(z := 1) error = %v, want ErrUnknownClock", err)
	}
}

func TestSequence_ApplyEmpty(t *testing.T) {
	zero, _ := dbm.Zero("x")
	got, err := Sequence{}.Apply(zero)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !got.Equal(zero) {
		t.Error("empty sequence should leave the zone unchanged")
	}
}

func TestSequence_Reduce(t *testing.T) {
	tests := []struct {
		name string
		seq  Sequence
		want Sequence
	}{
		{
			name: "keeps final resets",
			seq: Sequence{
				Reset("y", 1), Delay(),
				Guard(dbm.AtMost("y", 3)), Guard(dbm.AtLeast("y", 3)),
				Reset("x", 3), Reset("y", 1),
			},
			want: Sequence{Reset("x", 3), Reset("y", 1)},
		},
		{
			name: "merges delays",
			seq:  Sequence{Reset("x", 0), Delay(), Reset("y", 0), Delay(), Delay()},
			want: Sequence{Reset("x", 0), Delay(), Reset("y", 0), Delay()},
		},
		{
			name: "drops overwritten resets",
			seq:  Sequence{Reset("x", 5), Delay(), Reset("x", 1), Reset("y", 2)},
			want: Sequence{Reset("x", 1), Reset("y", 2)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.seq.Reduce([]string{"x", "y"})
			if !got.Equal(tt.want) {
				t.Errorf("Reduce() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSequence_ReduceOverApproximates(t *testing.T) {
	clocks := []string{"x", "y", "z"}
	zero, _ := dbm.Zero(clocks...)

	for seed := uint64(1); seed <= 40; seed++ {
		seq, reached, err := NewGenerator(14, WithSeed(seed), WithNonZeroResets()).Generate(zero)
		if err != nil {
			t.Fatalf("seed %d: Generate() error = %v", seed, err)
		}
		reduced := seq.Reduce(clocks)
		approx, err := reduced.Apply(zero)
		if err != nil {
			t.Fatalf("seed %d: Apply(reduced) error = %v", seed, err)
		}
		if !approx.Includes(reached) {
			t.Errorf("seed %d: reduced %s does not include zone of %s", seed, reduced, seq)
		}
		if len(reduced) > len(seq) {
			t.Errorf("seed %d: reduced sequence is longer than the original", seed)
		}
	}
}

func TestGenerator_Generate(t *testing.T) {
	zero, _ := dbm.Zero("x", "y")

	for seed := uint64(1); seed <= 25; seed++ {
		seq, reached, err := NewGenerator(10, WithSeed(seed), WithInitialResets()).Generate(zero)
		if err != nil {
			t.Fatalf("seed %d: Generate() error = %v", seed, err)
		}
		if len(seq) != 10 {
			t.Errorf("seed %d: len = %d, want 10", seed, len(seq))
		}
		if !reached.IsConsistent() {
			t.Errorf("seed %d: generated sequence reached an empty zone", seed)
		}
		replayed, err := seq.Apply(zero)
		if err != nil {
			t.Fatalf("seed %d: Apply() error = %v", seed, err)
		}
		if !replayed.Equal(reached) {
			t.Errorf("seed %d: replay differs from generated zone", seed)
		}
		if seq[0].Kind != KindReset || seq[1].Kind != KindReset {
			t.Errorf("seed %d: sequence should start with the initial resets, got %s", seed, seq)
		}
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	zero, _ := dbm.Zero("x", "y")
	a, _, _ := NewGenerator(8, WithSeed(7)).Generate(zero)
	b, _, _ := NewGenerator(8, WithSeed(7)).Generate(zero)
	if !a.Equal(b) {
		t.Errorf("same seed produced %s and %s", a, b)
	}
}

func TestGenerator_InitialResetsTooLong(t *testing.T) {
	zero, _ := dbm.Zero("x", "y", "z")
	_, _, err := NewGenerator(2, WithInitialResets()).Generate(zero)
	if !errors.Is(err, ErrInvalidLength) {
		t.Errorf("Generate() error = %v, want ErrInvalidLength", err)
	}
}
