// Package target composes and validates the state a construction should
// drive a model into: one location per process, a variable valuation and a
// clock zone.
package target

import (
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/tastate/domain/dbm"
	"github.com/felixgeelhaar/tastate/domain/model"
)

// LocationVector holds one location ID per process, in process order.
type LocationVector []string

// String renders the vector as "(idle, s0)".
func (v LocationVector) String() string {
	return "(" + strings.Join(v, ", ") + ")"
}

// Equal reports whether both vectors name the same locations.
func (v LocationVector) Equal(o LocationVector) bool {
	if len(v) != len(o) {
		return false
	}
	for i := range v {
		if v[i] != o[i] {
			return false
		}
	}
	return true
}

// State is a validated target state. It is immutable once composed.
type State struct {
	locations LocationVector
	variables model.Valuation
	zone      *dbm.DBM
	effective *dbm.DBM
}

// Locations returns a copy of the target location vector.
func (s *State) Locations() LocationVector {
	return append(LocationVector(nil), s.locations...)
}

// Variables returns a copy of the target valuation. Nested values are
// shared and must not be modified.
func (s *State) Variables() model.Valuation {
	return s.variables.Copy()
}

// Zone returns the requested zone over all model clocks.
func (s *State) Zone() *dbm.DBM { return s.zone }

// EffectiveZone returns the requested zone intersected with the target
// location invariants.
func (s *State) EffectiveZone() *dbm.DBM { return s.effective }

// String renders the state for logs.
func (s *State) String() string {
	as, _ := s.variables.Assignments()
	parts := make([]string, len(as))
	for i, a := range as {
		parts[i] = a.String()
	}
	var cs []string
	for _, c := range s.zone.Constraints() {
		if c.Left != dbm.Reference || c.Bound != dbm.LE(0) {
			cs = append(cs, c.String())
		}
	}
	return fmt.Sprintf("%s {%s} [%s]", s.locations, strings.Join(parts, ", "), strings.Join(cs, ", "))
}

// Compose validates a requested target against g and packages it.
//
// The zone may range over a subset of the model clocks; the remaining
// clocks are unconstrained. A nil zone stands for the unconstrained zone.
func Compose(g *model.Graph, locations LocationVector, vars model.Valuation, zone *dbm.DBM) (*State, error) {
	if zone != nil && !zone.IsConsistent() {
		return nil, fmt.Errorf("%w: zone is empty", ErrUnsatisfiableTarget)
	}
	if len(locations) != len(g.Processes) {
		return nil, fmt.Errorf("%w: %d locations for %d processes",
			ErrReference, len(locations), len(g.Processes))
	}

	if zone == nil {
		var err error
		if zone, err = dbm.Unconstrained(g.Clocks...); err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrInvalidGraph, err)
		}
	}
	full, err := zone.Over(g.Clocks)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReference, err)
	}

	if err := vars.CheckDeclared(g); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReference, err)
	}
	if _, err := vars.Assignments(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReference, err)
	}

	effective := full
	for i, id := range locations {
		p := g.Processes[i]
		idx, ok := p.LocationIndex(id)
		if !ok {
			return nil, fmt.Errorf("%w: %w: %s.%s", ErrReference, model.ErrUnknownLocation, p.Name, id)
		}
		inv := p.Locations[idx].Invariant
		if len(inv) == 0 {
			continue
		}
		next, err := effective.ConstrainAll(inv...)
		if err != nil {
			return nil, fmt.Errorf("%w: invariant of %s.%s: %w", ErrReference, p.Name, id, err)
		}
		if !next.IsConsistent() {
			return nil, fmt.Errorf("%w: invariant of %s.%s is disjoint from the zone",
				ErrUnsatisfiableTarget, p.Name, id)
		}
		effective = next.Canonical()
	}

	return &State{
		locations: append(LocationVector(nil), locations...),
		variables: vars.Copy(),
		zone:      full,
		effective: effective,
	}, nil
}

// IsUnsatisfiable reports whether err means the target can never hold.
func IsUnsatisfiable(err error) bool {
	return errors.Is(err, ErrUnsatisfiableTarget)
}
