package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/tastate/domain/dbm"
	"github.com/felixgeelhaar/tastate/domain/sequence"
)

// writeJSON writes v to stdout as indented JSON.
func (a *App) writeJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printSequence writes one numbered operation per line.
func (a *App) printSequence(seq sequence.Sequence) {
	_, _ = fmt.Fprintf(a.stdout, "Sequence (%d operations):\n", len(seq))
	for i, op := range seq {
		_, _ = fmt.Fprintf(a.stdout, "  %3d. %s\n", i+1, op)
	}
}

// printZone writes the constraints of z on one line.
func (a *App) printZone(label string, z *dbm.DBM) {
	_, _ = fmt.Fprintf(a.stdout, "%s: %s\n", label, strings.Join(constraintStrings(z), " && "))
}

func constraintStrings(z *dbm.DBM) []string {
	if z == nil {
		return nil
	}
	var out []string
	for _, c := range z.Constraints() {
		out = append(out, c.String())
	}
	if len(out) == 0 {
		out = []string{"true"}
	}
	return out
}
