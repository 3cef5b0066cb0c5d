package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/tastate/domain/dbm"
	"github.com/felixgeelhaar/tastate/domain/sequence"
)

// randomOptions holds options for the random command.
type randomOptions struct {
	clocks        []string
	length        int
	seed          uint64
	seeded        bool
	nonZeroResets bool
	initialResets bool
	synthesize    bool
	strategy      string
	jsonOutput    bool
}

// newRandomCmd creates the random command.
func (a *App) newRandomCmd() *cobra.Command {
	opts := &randomOptions{}

	cmd := &cobra.Command{
		Use:   "random",
		Short: "Generate a random operation sequence and its zone",
		Long: `Generate a random sequence shaped like a run of a timed automaton,
starting from all clocks at zero, and print the zone it reaches.

With --synthesize the reached zone is handed back to the synthesizer,
which makes the command a quick end-to-end check of a strategy.

Examples:
  # Ten operations over clocks x and y
  tastate random

  # A reproducible sequence over three clocks
  tastate random --clocks x,y,z --length 25 --seed 42

  # Synthesize the generated zone with the zone strategy
  tastate random --seed 7 --synthesize --strategy zone`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.seeded = cmd.Flags().Changed("seed")
			return a.random(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.clocks, "clocks", []string{"x", "y"}, "Clock names")
	cmd.Flags().IntVarP(&opts.length, "length", "n", 10, "Number of operations")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "Random seed (default: random)")
	cmd.Flags().BoolVar(&opts.nonZeroResets, "non-zero-resets", false, "Allow resets to values other than zero")
	cmd.Flags().BoolVar(&opts.initialResets, "initial-resets", false, "Start by resetting every clock")
	cmd.Flags().BoolVar(&opts.synthesize, "synthesize", false, "Synthesize a sequence for the reached zone")
	cmd.Flags().StringVar(&opts.strategy, "strategy", "", "Synthesis strategy for --synthesize (overrides config)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")

	return cmd
}

// random generates a sequence and optionally synthesizes its zone.
func (a *App) random(ctx context.Context, opts *randomOptions) error {
	if opts.length < 0 {
		return fmt.Errorf("length must not be negative")
	}
	init, err := dbm.Zero(opts.clocks...)
	if err != nil {
		return fmt.Errorf("invalid clocks: %w", err)
	}

	var genOpts []sequence.GeneratorOption
	if opts.seeded {
		genOpts = append(genOpts, sequence.WithSeed(opts.seed))
	}
	if opts.nonZeroResets {
		genOpts = append(genOpts, sequence.WithNonZeroResets())
	}
	if opts.initialResets {
		genOpts = append(genOpts, sequence.WithInitialResets())
	}

	seq, zone, err := sequence.NewGenerator(opts.length, genOpts...).Generate(init)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	output := map[string]any{
		"sequence": seq.Strings(),
		"zone":     constraintStrings(zone),
	}
	if !opts.jsonOutput {
		a.printSequence(seq)
		a.printZone("Zone", zone)
	}

	if opts.synthesize {
		rt, err := a.setup(ctx, synthesisOverrides(opts.strategy, "", false))
		if err != nil {
			return err
		}
		defer func() { _ = rt.close(ctx) }()

		res, err := rt.engine.Synthesize(ctx, zone)
		if err != nil {
			return fmt.Errorf("synthesis failed: %w", err)
		}
		output["synthesized"] = map[string]any{
			"strategy": res.Strategy,
			"exact":    res.Exact,
			"sequence": res.Sequence.Strings(),
			"zone":     constraintStrings(res.Zone),
		}
		if !opts.jsonOutput {
			_, _ = fmt.Fprintf(a.stdout, "\nSynthesized with %s (exact: %v)\n", res.Strategy, res.Exact)
			a.printSequence(res.Sequence)
			a.printZone("Reached", res.Zone)
		}
	}

	if opts.jsonOutput {
		return a.writeJSON(output)
	}
	return nil
}
