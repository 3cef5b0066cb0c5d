package modelfile

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/felixgeelhaar/tastate/domain/dbm"
	"github.com/felixgeelhaar/tastate/domain/model"
	"github.com/felixgeelhaar/tastate/domain/target"
)

// Target is the file form of a construction target.
type Target struct {
	// Name labels the target in batch output.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	// Model is the path of the model file, relative to the target file.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`
	// Locations holds one location ID per process.
	Locations []string `json:"locations" yaml:"locations"`
	// Variables holds target variable values.
	Variables map[string]any `json:"variables,omitempty" yaml:"variables,omitempty"`
	// Zone is a conjunction of clock constraints; empty means unconstrained.
	Zone []string `json:"zone,omitempty" yaml:"zone,omitempty"`
}

// State composes the target against g.
func (t *Target) State(g *model.Graph) (*target.State, error) {
	zone, err := t.ZoneOver(g.Clocks)
	if err != nil {
		return nil, err
	}
	return target.Compose(g, t.Locations, model.Valuation(t.Variables), zone)
}

// ZoneOver builds the target zone over clocks. It returns nil when the
// target leaves the clocks unconstrained.
func (t *Target) ZoneOver(clocks []string) (*dbm.DBM, error) {
	if len(t.Zone) == 0 {
		return nil, nil
	}
	cs, err := dbm.ParseAll(t.Zone)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	zone, err := dbm.FromConstraints(clocks, cs...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", target.ErrReference, err)
	}
	return zone, nil
}

// TargetSet is a batch of targets against one model.
type TargetSet struct {
	// Model is the default model path for targets that do not name one.
	Model   string   `json:"model,omitempty" yaml:"model,omitempty"`
	Targets []Target `json:"targets" yaml:"targets"`
}

// LoadTarget reads a target file. A relative model path is resolved
// against the directory of the file.
func LoadTarget(path string) (*Target, error) {
	var t Target
	if err := decodeFile(path, &t); err != nil {
		return nil, err
	}
	t.Model = resolve(path, t.Model)
	return &t, nil
}

// LoadTargetSet reads a batch file. Targets inherit the set's model when
// they do not name their own.
func LoadTargetSet(path string) (*TargetSet, error) {
	var s TargetSet
	if err := decodeFile(path, &s); err != nil {
		return nil, err
	}
	if len(s.Targets) == 0 {
		return nil, fmt.Errorf("%s: %w: no targets", path, ErrDecode)
	}
	s.Model = resolve(path, s.Model)
	for i := range s.Targets {
		if s.Targets[i].Model == "" {
			s.Targets[i].Model = s.Model
		} else {
			s.Targets[i].Model = resolve(path, s.Targets[i].Model)
		}
	}
	return &s, nil
}

func resolve(file, ref string) string {
	if ref == "" || filepath.IsAbs(ref) {
		return ref
	}
	return filepath.Join(filepath.Dir(file), ref)
}

// ParseZone builds a zone from constraint expressions over the clocks they
// mention, in name order.
func ParseZone(exprs []string) (*dbm.DBM, error) {
	cs, err := dbm.ParseAll(exprs)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var clocks []string
	for _, c := range cs {
		for _, clock := range c.Clocks() {
			if !seen[clock] {
				seen[clock] = true
				clocks = append(clocks, clock)
			}
		}
	}
	sort.Strings(clocks)
	return dbm.FromConstraints(clocks, cs...)
}
