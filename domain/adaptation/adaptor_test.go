package adaptation

import (
	"errors"
	"testing"

	"github.com/felixgeelhaar/tastate/domain/dbm"
	"github.com/felixgeelhaar/tastate/domain/model"
	"github.com/felixgeelhaar/tastate/domain/sequence"
	"github.com/felixgeelhaar/tastate/domain/target"
)

func singleGraph() *model.Graph {
	p := &model.Process{
		Name: "P",
		Locations: []model.Location{
			{ID: "idle"},
			{ID: "busy", Invariant: []dbm.Constraint{dbm.AtMost("x", 5)}},
		},
		Edges: []model.Edge{{Source: 0, Target: 1, Resets: []model.ClockReset{{Clock: "x"}}}},
	}
	return &model.Graph{
		Clocks:    []string{"x", "y"},
		Variables: []model.Variable{{Name: "n", Initial: 0}},
		Processes: []*model.Process{p},
	}
}

func networkGraph() *model.Graph {
	g := singleGraph()
	g.Processes = append(g.Processes, &model.Process{
		Name:      "Q",
		Locations: []model.Location{{ID: "s0"}, {ID: "s1", Invariant: []dbm.Constraint{dbm.AtMost("y", 9)}}},
		Edges:     []model.Edge{{Source: 0, Target: 1}},
	})
	return g
}

func compose(t *testing.T, g *model.Graph, locs target.LocationVector, vars model.Valuation) *target.State {
	t.Helper()
	s, err := target.Compose(g, locs, vars, nil)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	return s
}

var twoClockSequence = sequence.Sequence{
	sequence.Reset("y", 1),
	sequence.Delay(),
	sequence.Guard(dbm.AtMost("y", 3)),
	sequence.Guard(dbm.AtLeast("y", 3)),
	sequence.Reset("x", 3),
	sequence.Reset("y", 1),
}

func TestAdapt_SingleProcess(t *testing.T) {
	g := singleGraph()
	state := compose(t, g, target.LocationVector{"busy"}, model.Valuation{"n": 4})

	out, path, err := New().Adapt(g, state, twoClockSequence)
	if err != nil {
		t.Fatalf("Adapt() error = %v", err)
	}

	p := out.Processes[0]
	if len(p.Locations) != 4 || len(p.Edges) != 3 {
		t.Fatalf("adapted process has %d locations and %d edges, want 4 and 3", len(p.Locations), len(p.Edges))
	}
	if p.Locations[p.Initial].ID != "sc_L0" || !p.Locations[p.Initial].Committed {
		t.Errorf("initial location = %+v, want committed sc_L0", p.Locations[p.Initial])
	}
	l1 := p.Locations[path.Locations[1]]
	if l1.Urgent || !l1.AllowsDelay() {
		t.Errorf("L1 = %+v, want a location allowing delay", l1)
	}
	if len(l1.Invariant) != 1 || l1.Invariant[0] != dbm.AtMost("y", 3) {
		t.Errorf("L1 invariant = %v, want the upper bound of its outgoing guard", l1.Invariant)
	}

	last := p.Edges[path.Edges[len(path.Edges)-1]]
	if p.Locations[last.Target].ID != "busy" {
		t.Errorf("final edge enters %s, want busy", p.Locations[last.Target].ID)
	}
	if len(last.Guard) != 2 {
		t.Errorf("final guard = %v, want the delay guards only since x is reset", last.Guard)
	}
	if len(last.Updates) != 1 || last.Updates[0].Target != "n" || last.Updates[0].Value != int64(4) {
		t.Errorf("final updates = %v", last.Updates)
	}
	if len(last.Resets) != 2 {
		t.Errorf("final resets = %v", last.Resets)
	}

	want := []string{
		"P: sc_L0 -> sc_L1 [y = 1]",
		"P: sc_L1 -> busy [y <= 3; y >= 3; x = 3; y = 1; n = 4]",
	}
	got := path.Describe(out)
	if len(got) != len(want) {
		t.Fatalf("Describe() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Describe()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAdapt_TargetInvariantGuards(t *testing.T) {
	tests := []struct {
		name      string
		seq       sequence.Sequence
		wantGuard []dbm.Constraint
	}{
		{
			name:      "clock kept",
			seq:       sequence.Sequence{sequence.Reset("y", 2)},
			wantGuard: []dbm.Constraint{dbm.AtMost("x", 5)},
		},
		{
			name: "clock reset on the final edge",
			seq: sequence.Sequence{
				sequence.Reset("x", 1),
				sequence.Delay(),
				sequence.Guard(dbm.AtMost("x", 6)),
				sequence.Guard(dbm.AtLeast("x", 6)),
				sequence.Reset("y", 6),
				sequence.Reset("x", 1),
			},
			wantGuard: []dbm.Constraint{dbm.AtMost("x", 6), dbm.AtLeast("x", 6)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := singleGraph()
			state := compose(t, g, target.LocationVector{"busy"}, nil)
			out, path, err := New().Adapt(g, state, tt.seq)
			if err != nil {
				t.Fatalf("Adapt() error = %v", err)
			}
			p := out.Processes[0]
			last := p.Edges[path.Edges[len(path.Edges)-1]]
			if len(last.Guard) != len(tt.wantGuard) {
				t.Fatalf("final guard = %v, want %v", last.Guard, tt.wantGuard)
			}
			for i := range tt.wantGuard {
				if last.Guard[i] != tt.wantGuard[i] {
					t.Errorf("final guard[%d] = %s, want %s", i, last.Guard[i], tt.wantGuard[i])
				}
			}
		})
	}
}

func TestAdapt_DelayInvariants(t *testing.T) {
	seq := sequence.Sequence{
		sequence.Reset("x", 1),
		sequence.Delay(),
		sequence.Guard(dbm.Below("x", 2)),
		sequence.Guard(dbm.Above("x", 1)),
		sequence.Reset("y", 0),
		sequence.Delay(),
		sequence.Guard(dbm.Below("x", 2)),
		sequence.Guard(dbm.Diff("x", "y", dbm.LE(1))),
		sequence.Guard(dbm.Above("y", 0)),
	}
	g := singleGraph()
	state := compose(t, g, target.LocationVector{"idle"}, nil)

	out, path, err := New().Adapt(g, state, seq)
	if err != nil {
		t.Fatalf("Adapt() error = %v", err)
	}
	p := out.Processes[0]
	if len(path.Locations) != 3 {
		t.Fatalf("chain has %d locations, want 3", len(path.Locations))
	}
	if inv := p.Locations[path.Locations[0]].Invariant; len(inv) != 0 {
		t.Errorf("L0 invariant = %v, want none on the committed start", inv)
	}
	for k := 1; k < 3; k++ {
		inv := p.Locations[path.Locations[k]].Invariant
		if len(inv) != 1 || inv[0] != dbm.Below("x", 2) {
			t.Errorf("L%d invariant = %v, want [x < 2]", k, inv)
		}
	}
}

func TestAdapt_LeavesOriginalUntouched(t *testing.T) {
	g := singleGraph()
	orig := g.Processes[0]
	state := compose(t, g, target.LocationVector{"busy"}, nil)

	if _, _, err := New().Adapt(g, state, twoClockSequence); err != nil {
		t.Fatalf("Adapt() error = %v", err)
	}
	if g.Processes[0] != orig || len(orig.Locations) != 2 || len(orig.Edges) != 1 || orig.Initial != 0 {
		t.Errorf("original graph was modified: %+v", orig)
	}
}

func TestAdapt_Network(t *testing.T) {
	g := networkGraph()
	state := compose(t, g, target.LocationVector{"busy", "s1"}, model.Valuation{"n": 1})

	out, path, err := New().Adapt(g, state, twoClockSequence)
	if err != nil {
		t.Fatalf("Adapt() error = %v", err)
	}

	if len(out.Processes) != 3 || out.Processes[2].Name != "sc_construct" {
		t.Fatalf("processes = %d, want the original two plus sc_construct", len(out.Processes))
	}
	if len(out.Channels) != 1 || out.Channels[0].Name != "sc_init_end" || !out.Channels[0].Broadcast {
		t.Errorf("channels = %+v, want broadcast sc_init_end", out.Channels)
	}
	if len(g.Channels) != 0 || len(g.Processes) != 2 {
		t.Error("original graph was modified")
	}

	if path.Process != 2 || len(path.Entries) != 2 {
		t.Fatalf("path = %+v", path)
	}
	chain := out.Processes[2]
	last := chain.Edges[path.Edges[len(path.Edges)-1]]
	if last.Sync != "sc_init_end!" || len(last.Updates) != 1 {
		t.Errorf("final chain edge = %+v, want a broadcast carrying the updates", last)
	}

	for i, loc := range []string{"busy", "s1"} {
		p := out.Processes[i]
		if p.Locations[p.Initial].ID != "sc_pre_init" {
			t.Errorf("%s initial = %s, want sc_pre_init", p.Name, p.Locations[p.Initial].ID)
		}
		entry := p.Edges[path.Entries[i].Edge]
		if entry.Sync != "sc_init_end?" || p.Locations[entry.Target].ID != loc {
			t.Errorf("%s entry edge = %+v", p.Name, entry)
		}
		if len(entry.Guard) != 1 {
			t.Errorf("%s entry guard = %v, want the target invariant", p.Name, entry.Guard)
		}
	}
}

func TestAdapt_FreshIdentifiers(t *testing.T) {
	g := singleGraph()
	g.Processes[0].Locations = append(g.Processes[0].Locations, model.Location{ID: "sc_L0"})
	state := compose(t, g, target.LocationVector{"idle"}, nil)

	out, path, err := New().Adapt(g, state, sequence.Sequence{sequence.Reset("x", 2)})
	if err != nil {
		t.Fatalf("Adapt() error = %v", err)
	}
	if id := out.Processes[0].Locations[path.Locations[0]].ID; id != "sc_L0_1" {
		t.Errorf("chain start = %s, want sc_L0_1", id)
	}
}

func TestAdapt_Chunking(t *testing.T) {
	tests := []struct {
		name       string
		seq        sequence.Sequence
		wantEdges  int
		wantUrgent []bool
	}{
		{"empty", sequence.Sequence{}, 1, nil},
		{"leading delay", sequence.Sequence{sequence.Delay(), sequence.Guard(dbm.AtLeast("x", 2))}, 2, []bool{false}},
		{"merged delays", sequence.Sequence{sequence.Reset("x", 0), sequence.Delay(), sequence.Delay()}, 2, []bool{false}},
		{"guard after reset", sequence.Sequence{sequence.Reset("x", 1), sequence.Guard(dbm.AtMost("x", 1))}, 2, []bool{true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := singleGraph()
			state := compose(t, g, target.LocationVector{"idle"}, nil)
			out, path, err := New().Adapt(g, state, tt.seq)
			if err != nil {
				t.Fatalf("Adapt() error = %v", err)
			}
			if path.Len() != tt.wantEdges {
				t.Fatalf("path has %d edges, want %d", path.Len(), tt.wantEdges)
			}
			p := out.Processes[0]
			for i, urgent := range tt.wantUrgent {
				if got := p.Locations[path.Locations[i+1]].Urgent; got != urgent {
					t.Errorf("L%d urgent = %v, want %v", i+1, got, urgent)
				}
			}
		})
	}
}

func TestAdapt_Errors(t *testing.T) {
	g := singleGraph()
	state := compose(t, g, target.LocationVector{"busy"}, nil)

	smaller := singleGraph()
	smaller.Processes[0].Locations = smaller.Processes[0].Locations[:1]
	smaller.Processes[0].Edges = nil

	withVar := compose(t, g, target.LocationVector{"idle"}, model.Valuation{"n": 1})
	noVars := singleGraph()
	noVars.Variables = nil

	tests := []struct {
		name    string
		graph   *model.Graph
		state   *target.State
		seq     sequence.Sequence
		wantErr error
	}{
		{"target location missing", smaller, state, twoClockSequence, ErrAdaptation},
		{"vector mismatch", networkGraph(), state, twoClockSequence, ErrAdaptation},
		{"free operation", g, state, sequence.Sequence{sequence.Free("x")}, ErrAdaptation},
		{"unknown clock", g, state, sequence.Sequence{sequence.Reset("z", 1)}, ErrReference},
		{"unknown variable", noVars, withVar, nil, ErrReference},
		{"nil state", g, nil, nil, ErrAdaptation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := New().Adapt(tt.graph, tt.state, tt.seq)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Adapt() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
