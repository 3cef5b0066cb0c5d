package target

import (
	"errors"
	"testing"

	"github.com/felixgeelhaar/tastate/domain/dbm"
	"github.com/felixgeelhaar/tastate/domain/model"
)

func testGraph() *model.Graph {
	return &model.Graph{
		Clocks:    []string{"x", "y"},
		Variables: []model.Variable{{Name: "n", Initial: 0}, {Name: "a", Initial: []any{0, 0}}},
		Processes: []*model.Process{
			{
				Name: "P",
				Locations: []model.Location{
					{ID: "idle"},
					{ID: "busy", Invariant: []dbm.Constraint{dbm.AtMost("x", 5)}},
				},
			},
			{Name: "Q", Locations: []model.Location{{ID: "s0"}}},
		},
	}
}

func zone(t *testing.T, clocks []string, exprs ...string) *dbm.DBM {
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

func TestCompose(t *testing.T) {
	g := testGraph()
	z := zone(t, []string{"x"}, "x >= 3")

	s, err := Compose(g, LocationVector{"busy", "s0"}, model.Valuation{"n": 2}, z)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}

	if got := s.Zone().Clocks(); len(got) != 2 {
		t.Errorf("Zone() clocks = %v, want all model clocks", got)
	}
	want := zone(t, []string{"x", "y"}, "x >= 3", "x <= 5")
	if !s.EffectiveZone().Equal(want) {
		t.Errorf("EffectiveZone() =\n%s\nwant\n%s", s.EffectiveZone(), want)
	}
	if !s.Locations().Equal(LocationVector{"busy", "s0"}) {
		t.Errorf("Locations() = %v", s.Locations())
	}

	vars := s.Variables()
	vars["n"] = 99
	if s.Variables()["n"] != 2 {
		t.Error("Variables() should return a copy")
	}
}

func TestCompose_NilZone(t *testing.T) {
	s, err := Compose(testGraph(), LocationVector{"idle", "s0"}, nil, nil)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	unconstrained, _ := dbm.Unconstrained("x", "y")
	if !s.EffectiveZone().Equal(unconstrained) {
		t.Error("nil zone should compose to the unconstrained zone")
	}
}

func TestCompose_Errors(t *testing.T) {
	tests := []struct {
		name    string
		locs    LocationVector
		vars    model.Valuation
		zone    func(t *testing.T) *dbm.DBM
		wantErr error
	}{
		{
			name:    "empty zone",
			locs:    LocationVector{"idle", "s0"},
			zone:    func(t *testing.T) *dbm.DBM { return zone(t, []string{"x"}, "x > 3", "x < 2") },
			wantErr: ErrUnsatisfiableTarget,
		},
		{
			name:    "invariant disjoint",
			locs:    LocationVector{"busy", "s0"},
			zone:    func(t *testing.T) *dbm.DBM { return zone(t, []string{"x"}, "x >= 6") },
			wantErr: ErrUnsatisfiableTarget,
		},
		{
			name:    "unknown location",
			locs:    LocationVector{"gone", "s0"},
			wantErr: ErrReference,
		},
		{
			name:    "vector too short",
			locs:    LocationVector{"idle"},
			wantErr: ErrReference,
		},
		{
			name:    "unknown clock",
			locs:    LocationVector{"idle", "s0"},
			zone:    func(t *testing.T) *dbm.DBM { return zone(t, []string{"z"}, "z <= 1") },
			wantErr: ErrReference,
		},
		{
			name:    "unknown variable",
			locs:    LocationVector{"idle", "s0"},
			vars:    model.Valuation{"m": 1},
			wantErr: ErrReference,
		},
		{
			name:    "unsupported value",
			locs:    LocationVector{"idle", "s0"},
			vars:    model.Valuation{"n": "three"},
			wantErr: ErrReference,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var z *dbm.DBM
			if tt.zone != nil {
				z = tt.zone(t)
			}
			_, err := Compose(testGraph(), tt.locs, tt.vars, z)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Compose() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCompose_WrapsCause(t *testing.T) {
	_, err := Compose(testGraph(), LocationVector{"gone", "s0"}, nil, nil)
	if !errors.Is(err, model.ErrUnknownLocation) {
		t.Errorf("Compose() error = %v, want it to wrap ErrUnknownLocation", err)
	}
	if IsUnsatisfiable(err) {
		t.Error("unknown location is not an unsatisfiable target")
	}
}
