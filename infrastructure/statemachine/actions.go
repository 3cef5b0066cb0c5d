package statemachine

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/tastate/domain/dbm"
	"github.com/felixgeelhaar/tastate/domain/model"
)

var errDisabled = errors.New("edge disabled")

// elapse lets time pass in the chain location just entered unless it is
// urgent or committed. The location invariant bounds the delay.
func elapse(ctx **Context, _ statekit.Event) {
	if ctx == nil || *ctx == nil || (*ctx).Graph == nil {
		return
	}
	c := *ctx
	p := c.Graph.Processes[c.Path.Process]
	loc := p.Locations[c.Locations[c.Path.Process]]
	if !loc.AllowsDelay() {
		return
	}
	zone, err := c.Zone.Up().ConstrainAll(loc.Invariant...)
	if err != nil {
		c.Err = err
		return
	}
	c.Zone = zone.Canonical()
}

// fire takes the next chain edge and, after the last one, every receiving
// edge of a network.
func fire(ctx **Context, _ statekit.Event) {
	if ctx == nil || *ctx == nil || (*ctx).Graph == nil {
		return
	}
	c := *ctx
	next, err := c.successor()
	if err != nil {
		c.Err = err
		return
	}
	c.Zone = next.zone
	c.Variables = next.variables
	c.Locations = next.locations
	c.Step++
}

type configuration struct {
	zone      *dbm.DBM
	variables map[string]any
	locations []int
}

// successor computes the configuration after the next chain edge without
// changing c.
func (c *Context) successor() (*configuration, error) {
	if c.Step >= len(c.Path.Edges) {
		return nil, fmt.Errorf("%w: step %d past the end of the path", errDisabled, c.Step)
	}
	out := &configuration{
		zone:      c.Zone,
		variables: make(map[string]any, len(c.Variables)),
		locations: append([]int(nil), c.Locations...),
	}
	for k, v := range c.Variables {
		out.variables[k] = v
	}

	p := c.Graph.Processes[c.Path.Process]
	if err := out.take(c.Path.Process, p, p.Edges[c.Path.Edges[c.Step]]); err != nil {
		return nil, fmt.Errorf("step %d: %w", c.Step, err)
	}
	if c.Step == len(c.Path.Edges)-1 {
		for _, e := range c.Path.Entries {
			q := c.Graph.Processes[e.Process]
			if err := out.take(e.Process, q, q.Edges[e.Edge]); err != nil {
				return nil, fmt.Errorf("entry of %s: %w", q.Name, err)
			}
		}
	}
	return out, nil
}

// take applies guard, resets and updates of e and moves process i, an
// instance of p, into the edge target, whose invariant must then hold.
func (cfg *configuration) take(i int, p *model.Process, e model.Edge) error {
	if cfg.locations[i] != e.Source {
		return fmt.Errorf("%w: process %d is not at the edge source", errDisabled, i)
	}
	zone, err := cfg.zone.ConstrainAll(e.Guard...)
	if err != nil {
		return err
	}
	if !zone.IsConsistent() {
		return fmt.Errorf("%w: guard [%s] is unsatisfiable", errDisabled, joinConstraints(e.Guard))
	}
	for _, r := range e.Resets {
		if zone, err = zone.Reset(r.Clock, r.Value); err != nil {
			return err
		}
	}
	if inv := p.Locations[e.Target].Invariant; len(inv) > 0 {
		if zone, err = zone.ConstrainAll(inv...); err != nil {
			return err
		}
		if !zone.IsConsistent() {
			return fmt.Errorf("%w: invariant [%s] of %s is violated", errDisabled, joinConstraints(inv), p.Locations[e.Target].ID)
		}
	}
	for _, u := range e.Updates {
		cfg.variables[u.Target] = u.Value
	}
	cfg.zone = zone.Canonical()
	cfg.locations[i] = e.Target
	return nil
}

func joinConstraints(cs []dbm.Constraint) string {
	out := ""
	for i, c := range cs {
		if i > 0 {
			out += ", "
		}
		out += c.String()
	}
	return out
}
