// Package adaptation splices an operation sequence into a model as a
// deterministic initialization path ending in the target state.
package adaptation

import (
	"fmt"

	"github.com/felixgeelhaar/tastate/domain/dbm"
	"github.com/felixgeelhaar/tastate/domain/model"
	"github.com/felixgeelhaar/tastate/domain/sequence"
	"github.com/felixgeelhaar/tastate/domain/target"
)

// DefaultPrefix starts every identifier the adaptor introduces.
const DefaultPrefix = "sc_"

// Adaptor rewrites graphs. It holds no mutable state and is safe for
// concurrent use.
type Adaptor struct {
	prefix string
}

// Option configures an Adaptor.
type Option func(*Adaptor)

// WithPrefix changes the prefix of introduced identifiers.
func WithPrefix(prefix string) Option {
	return func(a *Adaptor) {
		if prefix != "" {
			a.prefix = prefix
		}
	}
}

// New creates an adaptor.
func New(opts ...Option) *Adaptor {
	a := &Adaptor{prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// chunk is the effect of one inserted edge: guards are checked, then
// resets applied. delayAfter lets time pass in the location the edge enters.
type chunk struct {
	guards     []dbm.Constraint
	resets     []model.ClockReset
	delayAfter bool
}

func (c chunk) empty() bool {
	return len(c.guards) == 0 && len(c.resets) == 0
}

// split groups seq into edge chunks. A guard following a reset opens a new
// edge; a delay closes the current edge and marks its target as delaying.
func split(seq sequence.Sequence) ([]chunk, error) {
	var chunks []chunk
	var cur chunk
	for i, op := range seq {
		switch op.Kind {
		case sequence.KindGuard:
			if op.Constraint == nil {
				return nil, fmt.Errorf("%w: operation %d: guard without constraint", ErrAdaptation, i)
			}
			if len(cur.resets) > 0 {
				chunks = append(chunks, cur)
				cur = chunk{}
			}
			cur.guards = append(cur.guards, *op.Constraint)
		case sequence.KindReset:
			cur.resets = append(cur.resets, model.ClockReset{Clock: op.Clock, Value: op.Value})
		case sequence.KindDelay:
			if cur.empty() && len(chunks) > 0 && chunks[len(chunks)-1].delayAfter {
				continue
			}
			cur.delayAfter = true
			chunks = append(chunks, cur)
			cur = chunk{}
		case sequence.KindFree:
			return nil, fmt.Errorf("%w: operation %d: %s has no edge encoding", ErrAdaptation, i, op)
		default:
			return nil, fmt.Errorf("%w: operation %d: %w", ErrAdaptation, i, sequence.ErrUnknownOperation)
		}
	}
	return append(chunks, cur), nil
}

// Adapt returns a copy of g extended by an initialization path that
// executes seq and then enters the target locations with the target
// variable values. g is never modified; processes the path does not touch
// are shared with the result.
func (a *Adaptor) Adapt(g *model.Graph, state *target.State, seq sequence.Sequence) (*model.Graph, *Path, error) {
	if g == nil || state == nil {
		return nil, nil, fmt.Errorf("%w: graph and target state are required", ErrAdaptation)
	}
	targets, err := a.resolveTargets(g, state.Locations())
	if err != nil {
		return nil, nil, err
	}
	for _, c := range seq.Clocks() {
		if !g.HasClock(c) {
			return nil, nil, fmt.Errorf("%w: %w: %s", ErrReference, model.ErrUnknownClock, c)
		}
	}
	vars := state.Variables()
	if err := vars.CheckDeclared(g); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrReference, err)
	}
	updates, err := vars.Assignments()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrReference, err)
	}
	chunks, err := split(seq)
	if err != nil {
		return nil, nil, err
	}

	if len(g.Processes) == 1 {
		return a.adaptSingle(g, targets[0], chunks, updates)
	}
	return a.adaptNetwork(g, targets, chunks, updates)
}

// resolveTargets maps the location vector to location indices.
func (a *Adaptor) resolveTargets(g *model.Graph, locs target.LocationVector) ([]int, error) {
	if len(locs) != len(g.Processes) {
		return nil, fmt.Errorf("%w: %d target locations for %d processes",
			ErrAdaptation, len(locs), len(g.Processes))
	}
	out := make([]int, len(locs))
	for i, id := range locs {
		p := g.Processes[i]
		idx, ok := p.LocationIndex(id)
		if !ok {
			return nil, fmt.Errorf("%w: %w: %s.%s", ErrAdaptation, model.ErrUnknownLocation, p.Name, id)
		}
		out[i] = idx
	}
	return out, nil
}

// appendChain adds locations L0..Ln and the edges between them to p, one
// per chunk but the last. L0 is committed; Lk is urgent unless the chunk
// entering it ends with a delay. It returns the chain locations.
func (a *Adaptor) appendChain(p *model.Process, chunks []chunk) []int {
	taken := locationIDs(p)
	locs := make([]int, len(chunks))
	for k := range chunks {
		loc := model.Location{ID: fresh(taken, fmt.Sprintf("%sL%d", a.prefix, k))}
		if k == 0 {
			loc.Committed = true
		} else {
			loc.Urgent = !chunks[k-1].delayAfter
		}
		locs[k] = len(p.Locations)
		p.Locations = append(p.Locations, loc)
	}
	return locs
}

func (a *Adaptor) adaptSingle(g *model.Graph, tgt int, chunks []chunk, updates []model.Assignment) (*model.Graph, *Path, error) {
	p := g.Processes[0].Clone()
	path := &Path{Process: 0, Locations: a.appendChain(p, chunks)}

	for k, c := range chunks {
		e := model.Edge{Source: path.Locations[k], Guard: c.guards, Resets: c.resets}
		if k == len(chunks)-1 {
			e.Target = tgt
			e.Guard = append(append([]dbm.Constraint(nil), c.guards...), unreset(p.Locations[tgt].Invariant, c.resets)...)
			e.Updates = updates
		} else {
			e.Target = path.Locations[k+1]
		}
		path.Edges = append(path.Edges, len(p.Edges))
		p.Edges = append(p.Edges, e)
	}
	p.Initial = path.Locations[0]
	boundDelays(p, path, chunks)

	out := g.ShallowCopy()
	out.Processes[0] = p
	return out, path, nil
}

// adaptNetwork puts the chain into a fresh process whose last edge
// broadcasts the end of initialization. Every original process waits in a
// fresh initial location and follows the broadcast into its target.
func (a *Adaptor) adaptNetwork(g *model.Graph, targets []int, chunks []chunk, updates []model.Assignment) (*model.Graph, *Path, error) {
	out := g.ShallowCopy()

	channel := fresh(channelNames(g), a.prefix+"init_end")
	out.Channels = append(out.Channels, model.Channel{Name: channel, Broadcast: true})

	var invariants []dbm.Constraint
	path := &Path{Process: len(g.Processes)}
	for i, orig := range g.Processes {
		p := orig.Clone()
		tgt := targets[i]
		inv := p.Locations[tgt].Invariant
		invariants = append(invariants, inv...)

		pre := len(p.Locations)
		p.Locations = append(p.Locations, model.Location{ID: fresh(locationIDs(p), a.prefix+"pre_init")})
		path.Entries = append(path.Entries, Entry{Process: i, Edge: len(p.Edges)})
		p.Edges = append(p.Edges, model.Edge{
			Source: pre,
			Target: tgt,
			Guard:  inv,
			Sync:   model.SyncReceive(channel),
		})
		p.Initial = pre
		out.Processes[i] = p
	}

	chain := &model.Process{Name: fresh(processNames(g), a.prefix+"construct")}
	path.Locations = a.appendChain(chain, chunks)
	done := len(chain.Locations)
	chain.Locations = append(chain.Locations, model.Location{ID: fresh(locationIDs(chain), a.prefix+"done")})

	for k, c := range chunks {
		e := model.Edge{Source: path.Locations[k], Guard: c.guards, Resets: c.resets}
		if k == len(chunks)-1 {
			e.Target = done
			e.Guard = append(append([]dbm.Constraint(nil), c.guards...), unreset(invariants, c.resets)...)
			e.Updates = updates
			e.Sync = model.SyncSend(channel)
		} else {
			e.Target = path.Locations[k+1]
		}
		path.Edges = append(path.Edges, len(chain.Edges))
		chain.Edges = append(chain.Edges, e)
	}
	chain.Initial = path.Locations[0]
	boundDelays(chain, path, chunks)
	out.Processes = append(out.Processes, chain)
	return out, path, nil
}

// boundDelays gives every delaying chain location an invariant made of the
// upper bounds its outgoing edge guards, so time cannot pass beyond the
// point where the edge is still enabled.
func boundDelays(p *model.Process, path *Path, chunks []chunk) {
	for k := 1; k < len(path.Locations); k++ {
		if !chunks[k-1].delayAfter {
			continue
		}
		var inv []dbm.Constraint
		for _, c := range p.Edges[path.Edges[k]].Guard {
			if c.Left != dbm.Reference && c.Right == dbm.Reference {
				inv = append(inv, c)
			}
		}
		p.Locations[path.Locations[k]].Invariant = inv
	}
}

// unreset drops the constraints over clocks in resets. Guards are checked
// before resets, so such constraints belong to the target location only.
func unreset(cs []dbm.Constraint, resets []model.ClockReset) []dbm.Constraint {
	reset := make(map[string]bool, len(resets))
	for _, r := range resets {
		reset[r.Clock] = true
	}
	var out []dbm.Constraint
	for _, c := range cs {
		if !reset[c.Left] && !reset[c.Right] {
			out = append(out, c)
		}
	}
	return out
}

func fresh(taken map[string]bool, base string) string {
	name := base
	for i := 1; taken[name]; i++ {
		name = fmt.Sprintf("%s_%d", base, i)
	}
	taken[name] = true
	return name
}

func locationIDs(p *model.Process) map[string]bool {
	out := make(map[string]bool, len(p.Locations))
	for _, l := range p.Locations {
		out[l.ID] = true
	}
	return out
}

func channelNames(g *model.Graph) map[string]bool {
	out := make(map[string]bool, len(g.Channels))
	for _, c := range g.Channels {
		out[c.Name] = true
	}
	for _, v := range g.Variables {
		out[v.Name] = true
	}
	for _, c := range g.Clocks {
		out[c] = true
	}
	return out
}

func processNames(g *model.Graph) map[string]bool {
	out := make(map[string]bool, len(g.Processes))
	for _, p := range g.Processes {
		out[p.Name] = true
	}
	return out
}
