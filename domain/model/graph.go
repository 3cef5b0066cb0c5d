// Package model holds the timed-automaton graph the construction works on.
//
// A Graph is a network of processes. Each process stores its locations and
// edges in slices and edges address locations by index, so a graph has no
// pointer cycles and can be copied or shared cheaply. Graph values are
// treated as immutable: transformations build a new Graph that shares the
// processes they leave untouched.
package model

import (
	"fmt"

	"github.com/felixgeelhaar/tastate/domain/dbm"
)

// Location is a node of a process.
type Location struct {
	// ID identifies the location within its process.
	ID string `json:"id" yaml:"id"`

	// Name is an optional display name.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Invariant must hold while control resides in the location.
	Invariant []dbm.Constraint `json:"invariant,omitempty" yaml:"invariant,omitempty"`

	// Urgent forbids time from passing in the location.
	Urgent bool `json:"urgent,omitempty" yaml:"urgent,omitempty"`

	// Committed forbids time from passing and interleaving.
	Committed bool `json:"committed,omitempty" yaml:"committed,omitempty"`
}

// AllowsDelay reports whether time may pass in the location.
func (l Location) AllowsDelay() bool {
	return !l.Urgent && !l.Committed
}

// ClockReset sets a clock to a value when an edge is taken.
type ClockReset struct {
	Clock string `json:"clock" yaml:"clock"`
	Value int64  `json:"value" yaml:"value"`
}

// String renders the reset as "x = 3".
func (r ClockReset) String() string {
	return fmt.Sprintf("%s = %d", r.Clock, r.Value)
}

// Edge connects two locations of the same process.
type Edge struct {
	Source  int              `json:"source" yaml:"source"`
	Target  int              `json:"target" yaml:"target"`
	Guard   []dbm.Constraint `json:"guard,omitempty" yaml:"guard,omitempty"`
	Resets  []ClockReset     `json:"resets,omitempty" yaml:"resets,omitempty"`
	Updates []Assignment     `json:"updates,omitempty" yaml:"updates,omitempty"`
	Sync    string           `json:"sync,omitempty" yaml:"sync,omitempty"`
}

// Variable is a declared discrete variable.
type Variable struct {
	Name    string `json:"name" yaml:"name"`
	Initial any    `json:"initial,omitempty" yaml:"initial,omitempty"`
}

// Channel is a declared synchronization channel.
type Channel struct {
	Name      string `json:"name" yaml:"name"`
	Broadcast bool   `json:"broadcast,omitempty" yaml:"broadcast,omitempty"`
}

// SyncSend returns the edge label emitting on channel ch.
func SyncSend(ch string) string { return ch + "!" }

// SyncReceive returns the edge label receiving on channel ch.
func SyncReceive(ch string) string { return ch + "?" }

// ParseSync splits an edge label into its channel and direction.
func ParseSync(label string) (ch string, send bool, ok bool) {
	if len(label) < 2 {
		return "", false, false
	}
	switch label[len(label)-1] {
	case '!':
		return label[:len(label)-1], true, true
	case '?':
		return label[:len(label)-1], false, true
	}
	return "", false, false
}

// Process is one automaton of the network.
type Process struct {
	Name      string     `json:"name" yaml:"name"`
	Locations []Location `json:"locations" yaml:"locations"`
	Edges     []Edge     `json:"edges,omitempty" yaml:"edges,omitempty"`
	Initial   int        `json:"initial" yaml:"initial"`
}

// LocationIndex returns the index of the location with the given ID.
func (p *Process) LocationIndex(id string) (int, bool) {
	for i, l := range p.Locations {
		if l.ID == id {
			return i, true
		}
	}
	return 0, false
}

// AddEdge resolves the endpoint IDs, stores them in e and appends it.
func (p *Process) AddEdge(source, target string, e Edge) error {
	src, ok := p.LocationIndex(source)
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownLocation, p.Name, source)
	}
	tgt, ok := p.LocationIndex(target)
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownLocation, p.Name, target)
	}
	e.Source, e.Target = src, tgt
	p.Edges = append(p.Edges, e)
	return nil
}

// Outgoing returns the indices of the edges leaving location i.
func (p *Process) Outgoing(i int) []int {
	var out []int
	for e, edge := range p.Edges {
		if edge.Source == i {
			out = append(out, e)
		}
	}
	return out
}

// Clone returns a copy whose location and edge slices can be appended to
// without affecting p. Constraint slices are shared.
func (p *Process) Clone() *Process {
	return &Process{
		Name:      p.Name,
		Locations: append([]Location(nil), p.Locations...),
		Edges:     append([]Edge(nil), p.Edges...),
		Initial:   p.Initial,
	}
}

// Graph is a network of timed automata with its declarations.
type Graph struct {
	Name      string     `json:"name,omitempty" yaml:"name,omitempty"`
	Clocks    []string   `json:"clocks,omitempty" yaml:"clocks,omitempty"`
	Variables []Variable `json:"variables,omitempty" yaml:"variables,omitempty"`
	Channels  []Channel  `json:"channels,omitempty" yaml:"channels,omitempty"`
	Processes []*Process `json:"processes" yaml:"processes"`
}

// HasClock reports whether the clock is declared.
func (g *Graph) HasClock(name string) bool {
	for _, c := range g.Clocks {
		if c == name {
			return true
		}
	}
	return false
}

// Variable returns the declared variable with the given name.
func (g *Graph) Variable(name string) (Variable, bool) {
	for _, v := range g.Variables {
		if v.Name == name {
			return v, true
		}
	}
	return Variable{}, false
}

// HasChannel reports whether the channel is declared.
func (g *Graph) HasChannel(name string) bool {
	for _, c := range g.Channels {
		if c.Name == name {
			return true
		}
	}
	return false
}

// ProcessIndex returns the index of the named process.
func (g *Graph) ProcessIndex(name string) (int, bool) {
	for i, p := range g.Processes {
		if p.Name == name {
			return i, true
		}
	}
	return 0, false
}

// InitialLocations returns the initial location ID of every process.
func (g *Graph) InitialLocations() []string {
	out := make([]string, len(g.Processes))
	for i, p := range g.Processes {
		if p.Initial >= 0 && p.Initial < len(p.Locations) {
			out[i] = p.Locations[p.Initial].ID
		}
	}
	return out
}

// InitialValuation flattens the declared initial values of all variables.
// Variables without an initial value are left out.
func (g *Graph) InitialValuation() (map[string]any, error) {
	vals := make(Valuation, len(g.Variables))
	for _, v := range g.Variables {
		if v.Initial != nil {
			vals[v.Name] = v.Initial
		}
	}
	return vals.Flatten()
}

// ShallowCopy returns a graph with its own top-level slices; processes and
// declarations are shared with g.
func (g *Graph) ShallowCopy() *Graph {
	return &Graph{
		Name:      g.Name,
		Clocks:    g.Clocks,
		Variables: g.Variables,
		Channels:  append([]Channel(nil), g.Channels...),
		Processes: append([]*Process(nil), g.Processes...),
	}
}

// Validate checks that every index and identifier in the graph resolves.
func (g *Graph) Validate() error {
	seen := make(map[string]bool)
	for _, c := range g.Clocks {
		if c == "" || seen[c] {
			return fmt.Errorf("%w: clock %q declared twice or empty", ErrInvalidGraph, c)
		}
		seen[c] = true
	}
	vars := make(map[string]bool)
	for _, v := range g.Variables {
		if v.Name == "" || vars[v.Name] || seen[v.Name] {
			return fmt.Errorf("%w: variable %q declared twice or empty", ErrInvalidGraph, v.Name)
		}
		vars[v.Name] = true
	}
	if len(g.Processes) == 0 {
		return fmt.Errorf("%w: no processes", ErrInvalidGraph)
	}

	procs := make(map[string]bool)
	for _, p := range g.Processes {
		if p == nil || p.Name == "" || procs[p.Name] {
			return fmt.Errorf("%w: process name missing or duplicated", ErrInvalidGraph)
		}
		procs[p.Name] = true
		if err := g.validateProcess(p); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) validateProcess(p *Process) error {
	if len(p.Locations) == 0 {
		return fmt.Errorf("%w: process %s has no locations", ErrInvalidGraph, p.Name)
	}
	if p.Initial < 0 || p.Initial >= len(p.Locations) {
		return fmt.Errorf("%w: process %s initial index %d out of range", ErrInvalidGraph, p.Name, p.Initial)
	}
	ids := make(map[string]bool)
	for _, l := range p.Locations {
		if l.ID == "" || ids[l.ID] {
			return fmt.Errorf("%w: process %s location %q missing or duplicated", ErrInvalidGraph, p.Name, l.ID)
		}
		ids[l.ID] = true
		if err := g.checkConstraints(l.Invariant); err != nil {
			return fmt.Errorf("%w: invariant of %s.%s: %v", ErrInvalidGraph, p.Name, l.ID, err)
		}
	}
	for i, e := range p.Edges {
		if e.Source < 0 || e.Source >= len(p.Locations) || e.Target < 0 || e.Target >= len(p.Locations) {
			return fmt.Errorf("%w: process %s edge %d endpoints out of range", ErrInvalidGraph, p.Name, i)
		}
		if err := g.checkConstraints(e.Guard); err != nil {
			return fmt.Errorf("%w: guard of %s edge %d: %v", ErrInvalidGraph, p.Name, i, err)
		}
		if e.Sync != "" {
			ch, _, ok := ParseSync(e.Sync)
			if !ok || !g.HasChannel(ch) {
				return fmt.Errorf("%w: %s edge %d synchronizes on undeclared channel %q", ErrInvalidGraph, p.Name, i, e.Sync)
			}
		}
		for _, r := range e.Resets {
			if !g.HasClock(r.Clock) {
				return fmt.Errorf("%w: %s edge %d resets clock %s", ErrInvalidGraph, p.Name, i, r.Clock)
			}
		}
		for _, u := range e.Updates {
			if _, ok := g.Variable(u.Root()); !ok {
				return fmt.Errorf("%w: %s edge %d updates variable %s", ErrInvalidGraph, p.Name, i, u.Root())
			}
		}
	}
	return nil
}

// checkConstraints reports the first constraint naming an undeclared clock.
func (g *Graph) checkConstraints(cs []dbm.Constraint) error {
	for _, c := range cs {
		for _, clock := range c.Clocks() {
			if !g.HasClock(clock) {
				return fmt.Errorf("%w: %s", ErrUnknownClock, clock)
			}
		}
	}
	return nil
}
