package statemachine

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/tastate/domain/adaptation"
	"github.com/felixgeelhaar/tastate/domain/construction"
	"github.com/felixgeelhaar/tastate/domain/dbm"
	"github.com/felixgeelhaar/tastate/domain/model"
	"github.com/felixgeelhaar/tastate/domain/target"
)

// Interpreter steps a path statechart over one replay context.
type Interpreter struct {
	interp *statekit.Interpreter[*Context]
	ctx    *Context
}

// NewInterpreter creates an interpreter for machine running on ctx.
func NewInterpreter(machine *statekit.MachineConfig[*Context], ctx *Context) *Interpreter {
	interp := statekit.NewInterpreter(machine)
	interp.UpdateContext(func(c **Context) {
		*c = ctx
	})
	return &Interpreter{
		interp: interp,
		ctx:    ctx,
	}
}

// Start enters the first chain location.
func (i *Interpreter) Start() {
	i.interp.Start()
}

// Stop stops the interpreter.
func (i *Interpreter) Stop() {
	i.interp.Stop()
}

// State returns the current statechart state.
func (i *Interpreter) State() statekit.StateID {
	return i.interp.State().Value
}

// Step fires the next chain edge. A disabled edge moves the machine into
// its failed state and returns the reason.
func (i *Interpreter) Step() error {
	before := i.State()
	i.interp.Send(statekit.Event{Type: EventStep})
	if i.State() != before {
		return nil
	}

	_, err := i.ctx.successor()
	if err == nil {
		err = fmt.Errorf("step %d was not taken in state %s", i.ctx.Step, before)
	}
	i.ctx.Err = err
	i.interp.Send(statekit.Event{Type: EventFail, Payload: err})
	return err
}

// Arrived reports whether the last chain edge has fired.
func (i *Interpreter) Arrived() bool {
	return i.interp.Matches(stateArrived)
}

// IsTerminal returns true once the replay arrived or failed.
func (i *Interpreter) IsTerminal() bool {
	return i.interp.Done()
}

// Context returns the replay context.
func (i *Interpreter) Context() *Context {
	return i.ctx
}

// Outcome is the configuration a replay arrives in.
type Outcome struct {
	Locations target.LocationVector `json:"locations"`
	Variables map[string]any        `json:"variables"`
	Zone      *dbm.DBM              `json:"-"`
	Steps     int                   `json:"steps"`
}

// Replay runs the inserted path of g from its initial configuration and
// returns the configuration reached after the last inserted edge. The
// location vector leaves out the construction process of a network.
func Replay(g *model.Graph, path *adaptation.Path) (*Outcome, error) {
	machine, err := NewPathMachine(path)
	if err != nil {
		return nil, err
	}
	ctx, err := NewContext(g, path)
	if err != nil {
		return nil, err
	}
	if err := checkPath(g, path); err != nil {
		return nil, err
	}

	interp := NewInterpreter(machine, ctx)
	interp.Start()
	defer interp.Stop()

	for !interp.IsTerminal() {
		if err := interp.Step(); err != nil {
			return nil, fmt.Errorf("%w: %w", construction.ErrVerificationFailed, err)
		}
	}
	if !interp.Arrived() {
		return nil, fmt.Errorf("%w: replay stopped in %s", construction.ErrVerificationFailed, interp.State())
	}

	out := &Outcome{Variables: ctx.Variables, Zone: ctx.Zone, Steps: ctx.Step}
	for i, p := range g.Processes {
		if len(path.Entries) > 0 && i == path.Process {
			continue
		}
		out.Locations = append(out.Locations, p.Locations[ctx.Locations[i]].ID)
	}
	return out, nil
}

// Verify replays the inserted path and checks that it arrives in the
// target locations with the target variable values and a zone holding
// witness. A nil witness skips the clock check.
func Verify(g *model.Graph, path *adaptation.Path, state *target.State, witness dbm.Valuation) (*Outcome, error) {
	out, err := Replay(g, path)
	if err != nil {
		return nil, err
	}

	if !out.Locations.Equal(state.Locations()) {
		return out, fmt.Errorf("%w: arrived in %s, want %s",
			construction.ErrVerificationFailed, out.Locations, state.Locations())
	}
	want, err := state.Variables().Flatten()
	if err != nil {
		return out, fmt.Errorf("%w: %w", construction.ErrVerificationFailed, err)
	}
	for name, v := range want {
		if got, ok := out.Variables[name]; !ok || got != v {
			return out, fmt.Errorf("%w: variable %s = %v, want %v",
				construction.ErrVerificationFailed, name, got, v)
		}
	}
	if witness != nil && !out.Zone.Contains(witness) {
		return out, fmt.Errorf("%w: witness %s outside the reached zone %s",
			construction.ErrVerificationFailed, witness, out.Zone)
	}
	return out, nil
}

// checkPath rejects paths whose indices do not resolve in g.
func checkPath(g *model.Graph, path *adaptation.Path) error {
	bad := errors.New("path does not match the graph")
	if path.Process < 0 || path.Process >= len(g.Processes) {
		return fmt.Errorf("%w: %w", construction.ErrVerificationFailed, bad)
	}
	p := g.Processes[path.Process]
	if p.Initial != path.Locations[0] {
		return fmt.Errorf("%w: chain does not start in the initial location", construction.ErrVerificationFailed)
	}
	for _, e := range path.Edges {
		if e < 0 || e >= len(p.Edges) {
			return fmt.Errorf("%w: %w", construction.ErrVerificationFailed, bad)
		}
	}
	for _, e := range path.Entries {
		if e.Process < 0 || e.Process >= len(g.Processes) || e.Edge < 0 || e.Edge >= len(g.Processes[e.Process].Edges) {
			return fmt.Errorf("%w: %w", construction.ErrVerificationFailed, bad)
		}
	}
	return nil
}
