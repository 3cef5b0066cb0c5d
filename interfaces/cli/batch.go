package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/tastate/application"
	domainconfig "github.com/felixgeelhaar/tastate/domain/config"
	"github.com/felixgeelhaar/tastate/infrastructure/modelfile"
)

// batchOptions holds options for the batch command.
type batchOptions struct {
	construct   constructOptions
	concurrency int
	outputDir   string
}

// batchEntry is one line of the batch JSON output.
type batchEntry struct {
	Name   string `json:"name"`
	Report any    `json:"report,omitempty"`
	Error  string `json:"error,omitempty"`
}

// newBatchCmd creates the batch command.
func (a *App) newBatchCmd() *cobra.Command {
	opts := &batchOptions{}

	cmd := &cobra.Command{
		Use:   "batch <targets-file>",
		Short: "Construct every target of a batch file",
		Long: `Construct every target listed in a batch file concurrently.

A batch file names a default model and a list of targets; a target may
name its own model. Failures are reported per target and make the command
exit with an error once every target has run.

Examples:
  # Run a batch with the configured concurrency
  tastate batch targets.yaml

  # Run four at a time and write every adapted model to out/
  tastate batch targets.yaml --concurrency 4 --output-dir out`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.batch(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "Maximum concurrent constructions (overrides config)")
	cmd.Flags().StringVarP(&opts.outputDir, "output-dir", "o", "", "Write adapted models into this directory")
	cmd.Flags().StringVar(&opts.construct.format, "format", "yaml", "Format of written models (yaml, json)")
	cmd.Flags().StringVar(&opts.construct.strategy, "strategy", "", "Synthesis strategy (witness, zone; overrides config)")
	cmd.Flags().BoolVar(&opts.construct.reduce, "reduce", false, "Shorten synthesized sequences")
	cmd.Flags().BoolVar(&opts.construct.noVerify, "no-verify", false, "Skip replaying inserted paths")
	cmd.Flags().BoolVar(&opts.construct.jsonOutput, "json", false, "Output the reports as JSON")

	return cmd
}

// batch runs every target of the batch file.
func (a *App) batch(ctx context.Context, path string, opts *batchOptions) error {
	set, err := modelfile.LoadTargetSet(path)
	if err != nil {
		return err
	}
	format, err := modelfile.ParseFormat(opts.construct.format)
	if err != nil {
		return err
	}

	names := make([]string, len(set.Targets))
	reqs := make([]application.Request, len(set.Targets))
	for i := range set.Targets {
		tgt := &set.Targets[i]
		names[i] = tgt.Name
		if names[i] == "" {
			names[i] = fmt.Sprintf("target-%d", i+1)
		}
		if reqs[i], err = loadRequest(tgt, ""); err != nil {
			return fmt.Errorf("%s: %w", names[i], err)
		}
		reqs[i].Name = names[i]
	}

	overrides := opts.construct.overrides()
	if opts.concurrency > 0 {
		overrides = append(overrides, func(c *domainconfig.Config) {
			c.Batch.MaxConcurrent = opts.concurrency
		})
	}
	rt, err := a.setup(ctx, overrides...)
	if err != nil {
		return err
	}
	defer func() { _ = rt.close(ctx) }()

	results, errs := rt.engine.ConstructAll(ctx, reqs)

	failed := 0
	entries := make([]batchEntry, len(reqs))
	for i := range reqs {
		entries[i].Name = names[i]
		if results[i] != nil {
			entries[i].Report = results[i].Report
		}
		if errs[i] != nil {
			failed++
			entries[i].Error = errs[i].Error()
			continue
		}
		if opts.outputDir != "" {
			out := filepath.Join(opts.outputDir, names[i]+format.Extension())
			if err := writeModel(out, results[i].Graph, format); err != nil {
				return err
			}
		}
	}

	if opts.construct.jsonOutput {
		if err := a.writeJSON(entries); err != nil {
			return err
		}
	} else {
		for i, e := range entries {
			if e.Error != "" {
				_, _ = fmt.Fprintf(a.stdout, "✗ %s: %s\n", e.Name, e.Error)
				continue
			}
			r := results[i].Report
			_, _ = fmt.Fprintf(a.stdout, "✓ %s: %s (%d operations, verified: %v)\n",
				e.Name, r.ID, len(r.Sequence), r.Verified)
		}
		_, _ = fmt.Fprintf(a.stdout, "\n%d targets, %d failed\n", len(entries), failed)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d constructions failed", failed, len(entries))
	}
	return nil
}
