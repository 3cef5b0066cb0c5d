// Package statemachine replays an inserted initialization path on a
// statekit statechart and reports the configuration it reaches.
package statemachine

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/tastate/domain/adaptation"
	"github.com/felixgeelhaar/tastate/domain/dbm"
	"github.com/felixgeelhaar/tastate/domain/model"
)

// Context carries the symbolic configuration through the statechart.
type Context struct {
	Graph *model.Graph
	Path  *adaptation.Path

	// Zone is the clock zone of the current configuration.
	Zone *dbm.DBM
	// Variables holds the flattened variable values.
	Variables map[string]any
	// Locations holds the current location index of every process.
	Locations []int
	// Step is the index of the next chain edge.
	Step int
	// Err records why the last step failed.
	Err error
}

// NewContext places every process of g in its initial location with all
// clocks at zero.
func NewContext(g *model.Graph, path *adaptation.Path) (*Context, error) {
	zone, err := dbm.Zero(g.Clocks...)
	if err != nil {
		return nil, err
	}
	vars, err := g.InitialValuation()
	if err != nil {
		return nil, err
	}
	locs := make([]int, len(g.Processes))
	for i, p := range g.Processes {
		locs[i] = p.Initial
	}
	return &Context{
		Graph:     g,
		Path:      path,
		Zone:      zone,
		Variables: vars,
		Locations: locs,
	}, nil
}

// Events understood by the path statechart.
const (
	EventStep statekit.EventType = "STEP"
	EventFail statekit.EventType = "FAIL"
)

const (
	stateArrived statekit.StateID = "arrived"
	stateFailed  statekit.StateID = "failed"
)

// stateFor names the statechart state of chain location k.
func stateFor(k int) statekit.StateID {
	return statekit.StateID(fmt.Sprintf("chain_%d", k))
}

// NewPathMachine builds a statechart with one state per chain location of
// path. STEP fires the next chain edge when its guard is satisfiable; the
// last edge leads to the arrived state.
func NewPathMachine(path *adaptation.Path) (*statekit.MachineConfig[*Context], error) {
	if path == nil || len(path.Locations) == 0 || len(path.Edges) != len(path.Locations) {
		return nil, fmt.Errorf("%w: path has no chain", adaptation.ErrAdaptation)
	}

	b := statekit.NewMachine[*Context]("replay").
		WithInitial(stateFor(0)).
		WithContext(&Context{}).
		WithAction("elapse", elapse).
		WithAction("fire", fire).
		WithGuard("stepEnabled", guardStepEnabled)

	for k := range path.Locations {
		next := stateArrived
		if k+1 < len(path.Locations) {
			next = stateFor(k + 1)
		}
		b = b.State(stateFor(k)).
			OnEntry("elapse").
			On(EventStep).Target(next).Guard("stepEnabled").Do("fire").
			On(EventFail).Target(stateFailed).
			Done()
	}

	return b.
		State(stateArrived).
		Final().
		Done().
		State(stateFailed).
		Final().
		Done().
		Build()
}
