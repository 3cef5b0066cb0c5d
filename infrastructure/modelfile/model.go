package modelfile

import (
	"fmt"
	"io"

	"github.com/felixgeelhaar/tastate/domain/dbm"
	"github.com/felixgeelhaar/tastate/domain/model"
)

// Model is the file form of a model.Graph.
type Model struct {
	Name      string           `json:"name,omitempty" yaml:"name,omitempty"`
	Clocks    []string         `json:"clocks,omitempty" yaml:"clocks,omitempty"`
	Variables []model.Variable `json:"variables,omitempty" yaml:"variables,omitempty"`
	Channels  []model.Channel  `json:"channels,omitempty" yaml:"channels,omitempty"`
	Processes []Process        `json:"processes" yaml:"processes"`
}

// Process is the file form of a model.Process. Initial defaults to the
// first location.
type Process struct {
	Name      string     `json:"name" yaml:"name"`
	Initial   string     `json:"initial,omitempty" yaml:"initial,omitempty"`
	Locations []Location `json:"locations" yaml:"locations"`
	Edges     []Edge     `json:"edges,omitempty" yaml:"edges,omitempty"`
}

// Location is the file form of a model.Location.
type Location struct {
	ID        string   `json:"id" yaml:"id"`
	Name      string   `json:"name,omitempty" yaml:"name,omitempty"`
	Invariant []string `json:"invariant,omitempty" yaml:"invariant,omitempty"`
	Urgent    bool     `json:"urgent,omitempty" yaml:"urgent,omitempty"`
	Committed bool     `json:"committed,omitempty" yaml:"committed,omitempty"`
}

// Edge is the file form of a model.Edge, with endpoints named by ID.
type Edge struct {
	From    string             `json:"from" yaml:"from"`
	To      string             `json:"to" yaml:"to"`
	Guard   []string           `json:"guard,omitempty" yaml:"guard,omitempty"`
	Resets  []model.ClockReset `json:"resets,omitempty" yaml:"resets,omitempty"`
	Updates []model.Assignment `json:"updates,omitempty" yaml:"updates,omitempty"`
	Sync    string             `json:"sync,omitempty" yaml:"sync,omitempty"`
}

// Graph resolves the file form into a validated graph.
func (m *Model) Graph() (*model.Graph, error) {
	g := &model.Graph{
		Name:      m.Name,
		Clocks:    append([]string(nil), m.Clocks...),
		Variables: append([]model.Variable(nil), m.Variables...),
		Channels:  append([]model.Channel(nil), m.Channels...),
	}
	for _, fp := range m.Processes {
		p, err := fp.process()
		if err != nil {
			return nil, err
		}
		g.Processes = append(g.Processes, p)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func (fp Process) process() (*model.Process, error) {
	p := &model.Process{Name: fp.Name}
	for _, fl := range fp.Locations {
		inv, err := dbm.ParseAll(fl.Invariant)
		if err != nil {
			return nil, fmt.Errorf("%w: invariant of %s.%s: %w", ErrDecode, fp.Name, fl.ID, err)
		}
		p.Locations = append(p.Locations, model.Location{
			ID:        fl.ID,
			Name:      fl.Name,
			Invariant: inv,
			Urgent:    fl.Urgent,
			Committed: fl.Committed,
		})
	}
	if fp.Initial != "" {
		idx, ok := p.LocationIndex(fp.Initial)
		if !ok {
			return nil, fmt.Errorf("%w: %w: initial %s.%s", ErrDecode, model.ErrUnknownLocation, fp.Name, fp.Initial)
		}
		p.Initial = idx
	}
	for i, fe := range fp.Edges {
		guard, err := dbm.ParseAll(fe.Guard)
		if err != nil {
			return nil, fmt.Errorf("%w: guard of %s edge %d: %w", ErrDecode, fp.Name, i, err)
		}
		updates := make([]model.Assignment, len(fe.Updates))
		for j, u := range fe.Updates {
			v, err := model.Normalize(u.Value)
			if err != nil {
				return nil, fmt.Errorf("%w: update %s of %s edge %d: %w", ErrDecode, u.Target, fp.Name, i, err)
			}
			updates[j] = model.Assignment{Target: u.Target, Value: v}
		}
		edge := model.Edge{
			Guard:   guard,
			Resets:  append([]model.ClockReset(nil), fe.Resets...),
			Updates: updates,
			Sync:    fe.Sync,
		}
		if err := p.AddEdge(fe.From, fe.To, edge); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecode, err)
		}
	}
	return p, nil
}

// fromGraph converts g into its file form.
func fromGraph(g *model.Graph) *Model {
	m := &Model{
		Name:      g.Name,
		Clocks:    append([]string(nil), g.Clocks...),
		Variables: append([]model.Variable(nil), g.Variables...),
		Channels:  append([]model.Channel(nil), g.Channels...),
	}
	for _, p := range g.Processes {
		fp := Process{Name: p.Name}
		if p.Initial >= 0 && p.Initial < len(p.Locations) {
			fp.Initial = p.Locations[p.Initial].ID
		}
		for _, l := range p.Locations {
			fp.Locations = append(fp.Locations, Location{
				ID:        l.ID,
				Name:      l.Name,
				Invariant: expressions(l.Invariant),
				Urgent:    l.Urgent,
				Committed: l.Committed,
			})
		}
		for _, e := range p.Edges {
			fp.Edges = append(fp.Edges, Edge{
				From:    p.Locations[e.Source].ID,
				To:      p.Locations[e.Target].ID,
				Guard:   expressions(e.Guard),
				Resets:  e.Resets,
				Updates: e.Updates,
				Sync:    e.Sync,
			})
		}
		m.Processes = append(m.Processes, fp)
	}
	return m
}

// expressions renders constraints, dropping the trivially true ones.
func expressions(cs []dbm.Constraint) []string {
	var out []string
	for _, c := range cs {
		if c.Bound.IsInfinite() {
			continue
		}
		out = append(out, c.String())
	}
	return out
}

// DecodeModel reads a model in format f and resolves it into a graph.
func DecodeModel(r io.Reader, f Format) (*model.Graph, error) {
	var m Model
	if err := decode(r, f, &m); err != nil {
		return nil, err
	}
	return m.Graph()
}

// LoadModel reads a model file, choosing the format by extension.
func LoadModel(path string) (*model.Graph, error) {
	var m Model
	if err := decodeFile(path, &m); err != nil {
		return nil, err
	}
	g, err := m.Graph()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// EncodeModel writes g in format f.
func EncodeModel(w io.Writer, g *model.Graph, f Format) error {
	return encode(w, f, fromGraph(g))
}
