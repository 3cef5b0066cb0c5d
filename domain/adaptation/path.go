package adaptation

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/tastate/domain/model"
)

// Entry is an edge that moves a waiting process into its target location.
type Entry struct {
	Process int `json:"process"`
	Edge    int `json:"edge"`
}

// Path is the initialization path an adaptation inserted, addressed by
// indices into the adapted graph.
type Path struct {
	// Process hosts the chain.
	Process int `json:"process"`

	// Locations are the chain locations L0..Ln in order.
	Locations []int `json:"locations"`

	// Edges are the chain edges in order. The last one enters the target
	// location, or broadcasts the end of initialization in a network.
	Edges []int `json:"edges"`

	// Entries are the receiving edges of a network, one per original process.
	Entries []Entry `json:"entries,omitempty"`
}

// Len returns the number of chain edges.
func (p *Path) Len() int { return len(p.Edges) }

// Describe renders one line per inserted edge of the adapted graph g.
func (p *Path) Describe(g *model.Graph) []string {
	var out []string
	if p.Process < 0 || p.Process >= len(g.Processes) {
		return out
	}
	chain := g.Processes[p.Process]
	for _, e := range p.Edges {
		out = append(out, describeEdge(chain, e))
	}
	for _, entry := range p.Entries {
		if entry.Process < len(g.Processes) {
			out = append(out, describeEdge(g.Processes[entry.Process], entry.Edge))
		}
	}
	return out
}

func describeEdge(p *model.Process, idx int) string {
	if idx < 0 || idx >= len(p.Edges) {
		return fmt.Sprintf("%s: edge %d missing", p.Name, idx)
	}
	e := p.Edges[idx]
	var parts []string
	for _, g := range e.Guard {
		parts = append(parts, g.String())
	}
	for _, r := range e.Resets {
		parts = append(parts, r.String())
	}
	for _, u := range e.Updates {
		parts = append(parts, u.String())
	}
	if e.Sync != "" {
		parts = append(parts, e.Sync)
	}
	line := fmt.Sprintf("%s: %s -> %s", p.Name, p.Locations[e.Source].ID, p.Locations[e.Target].ID)
	if len(parts) > 0 {
		line += " [" + strings.Join(parts, "; ") + "]"
	}
	return line
}
