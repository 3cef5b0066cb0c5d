package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	domainconfig "github.com/felixgeelhaar/tastate/domain/config"
	"github.com/felixgeelhaar/tastate/domain/dbm"
	"github.com/felixgeelhaar/tastate/infrastructure/modelfile"
)

// synthesizeOptions holds options for the synthesize command.
type synthesizeOptions struct {
	zone       []string
	targetPath string
	strategy   string
	system     string
	reduce     bool
	jsonOutput bool
}

// newSynthesizeCmd creates the synthesize command.
func (a *App) newSynthesizeCmd() *cobra.Command {
	opts := &synthesizeOptions{}

	cmd := &cobra.Command{
		Use:   "synthesize",
		Short: "Synthesize an operation sequence reaching a zone",
		Long: `Synthesize a sequence of resets, delays, guards and frees that
leads from all clocks at zero to the given zone.

The witness strategy reaches one integer point of the zone and is exact
when the zone is that point. The zone strategy reaches the zone itself.

Examples:
  # Synthesize for an explicit zone
  tastate synthesize -z "x <= 5" -z "y - x >= 2"

  # Use the zone of a target file, over its model's clocks
  tastate synthesize --target target.yaml

  # Reach the whole zone and shorten the result
  tastate synthesize -z "x >= 1" -z "x - y <= 3" --strategy zone --reduce

  # Output as JSON
  tastate synthesize -z "x == 3" --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.synthesize(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.zone, "zone", "z", nil, "Clock constraint of the zone (repeatable)")
	cmd.Flags().StringVarP(&opts.targetPath, "target", "t", "", "Target file whose zone to synthesize")
	cmd.Flags().StringVar(&opts.strategy, "strategy", "", "Synthesis strategy (witness, zone; overrides config)")
	cmd.Flags().StringVar(&opts.system, "constraint-system", "", "Constraint system of the zone strategy (full, minimal, relative)")
	cmd.Flags().BoolVar(&opts.reduce, "reduce", false, "Shorten the sequence while its zone is unchanged")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	cmd.MarkFlagsMutuallyExclusive("zone", "target")

	return cmd
}

// synthesisOverrides applies the synthesis flags shared by several commands.
func synthesisOverrides(strategy, system string, reduce bool) func(*domainconfig.Config) {
	return func(c *domainconfig.Config) {
		if strategy != "" {
			c.Synthesis.Strategy = strategy
		}
		if system != "" {
			c.Synthesis.ConstraintSystem = system
		}
		if reduce {
			c.Synthesis.Reduce = true
		}
	}
}

// synthesize runs the synthesizer and prints the result.
func (a *App) synthesize(ctx context.Context, opts *synthesizeOptions) error {
	zone, err := a.synthesisZone(opts)
	if err != nil {
		return err
	}

	rt, err := a.setup(ctx, synthesisOverrides(opts.strategy, opts.system, opts.reduce))
	if err != nil {
		return err
	}
	defer func() { _ = rt.close(ctx) }()

	res, err := rt.engine.Synthesize(ctx, zone)
	if err != nil {
		return fmt.Errorf("synthesis failed: %w", err)
	}

	if opts.jsonOutput {
		return a.writeJSON(map[string]any{
			"strategy": res.Strategy,
			"exact":    res.Exact,
			"witness":  res.Witness,
			"sequence": res.Sequence.Strings(),
			"zone":     constraintStrings(res.Zone),
			"target":   constraintStrings(zone),
			"measures": res.Measures,
		})
	}

	_, _ = fmt.Fprintf(a.stdout, "Strategy: %s\n", res.Strategy)
	_, _ = fmt.Fprintf(a.stdout, "Exact: %v\n", res.Exact)
	if res.Witness != nil {
		_, _ = fmt.Fprintf(a.stdout, "Witness: %s\n", res.Witness)
	}
	a.printZone("Target", zone)
	a.printZone("Reached", res.Zone)
	a.printSequence(res.Sequence)
	return nil
}

// synthesisZone resolves the zone from --zone or --target.
func (a *App) synthesisZone(opts *synthesizeOptions) (*dbm.DBM, error) {
	if opts.targetPath == "" {
		if len(opts.zone) == 0 {
			return nil, fmt.Errorf("a zone is required (--zone or --target)")
		}
		zone, err := modelfile.ParseZone(opts.zone)
		if err != nil {
			return nil, fmt.Errorf("invalid zone: %w", err)
		}
		return zone, nil
	}

	tgt, err := modelfile.LoadTarget(opts.targetPath)
	if err != nil {
		return nil, err
	}
	if tgt.Model == "" {
		return nil, fmt.Errorf("target %s names no model", opts.targetPath)
	}
	g, err := modelfile.LoadModel(tgt.Model)
	if err != nil {
		return nil, err
	}
	zone, err := tgt.ZoneOver(g.Clocks)
	if err != nil {
		return nil, err
	}
	if zone == nil {
		return dbm.Unconstrained(g.Clocks...)
	}
	return zone, nil
}
