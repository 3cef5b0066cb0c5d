package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/tastate/application"
	domainconfig "github.com/felixgeelhaar/tastate/domain/config"
	"github.com/felixgeelhaar/tastate/domain/construction"
	"github.com/felixgeelhaar/tastate/domain/model"
	"github.com/felixgeelhaar/tastate/infrastructure/modelfile"
)

// constructOptions holds options for the construct command.
type constructOptions struct {
	modelPath  string
	targetPath string
	outputPath string
	format     string
	strategy   string
	prefix     string
	reduce     bool
	noVerify   bool
	jsonOutput bool
}

// newConstructCmd creates the construct command.
func (a *App) newConstructCmd() *cobra.Command {
	opts := &constructOptions{}

	cmd := &cobra.Command{
		Use:   "construct",
		Short: "Adapt a model so it starts in a target state",
		Long: `Construct a target state: synthesize a sequence for the target zone,
insert it as a chain of fresh locations in front of the model, move every
process to its target location and verify the result by replay.

The target file lists one location per process, optional variable values
and a clock zone. The model may be named in the target file or with --model.

Examples:
  # Construct and print the report
  tastate construct -t target.yaml

  # Write the adapted model next to the original
  tastate construct -m train.yaml -t target.yaml -o train.adapted.yaml

  # Use the zone strategy and emit JSON
  tastate construct -t target.yaml --strategy zone --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.construct(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.modelPath, "model", "m", "", "Model file (overrides the target's model)")
	cmd.Flags().StringVarP(&opts.targetPath, "target", "t", "", "Target file (required)")
	cmd.Flags().StringVarP(&opts.outputPath, "output", "o", "", "Write the adapted model to this file")
	cmd.Flags().StringVar(&opts.format, "format", "", "Format of --output (yaml, json; default: from extension)")
	cmd.Flags().StringVar(&opts.strategy, "strategy", "", "Synthesis strategy (witness, zone; overrides config)")
	cmd.Flags().StringVar(&opts.prefix, "prefix", "", "Prefix of inserted identifiers (overrides config)")
	cmd.Flags().BoolVar(&opts.reduce, "reduce", false, "Shorten the synthesized sequence")
	cmd.Flags().BoolVar(&opts.noVerify, "no-verify", false, "Skip replaying the inserted path")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output the report as JSON")

	_ = cmd.MarkFlagRequired("target")

	return cmd
}

// overrides returns the configuration changes the flags ask for.
func (o *constructOptions) overrides() []func(*domainconfig.Config) {
	return []func(*domainconfig.Config){
		synthesisOverrides(o.strategy, "", o.reduce),
		func(c *domainconfig.Config) {
			if o.prefix != "" {
				c.Adaptation.Prefix = o.prefix
			}
			if o.noVerify {
				c.Adaptation.Verify = false
			}
		},
	}
}

// construct runs one construction.
func (a *App) construct(ctx context.Context, opts *constructOptions) error {
	rt, err := a.setup(ctx, opts.overrides()...)
	if err != nil {
		return err
	}
	defer func() { _ = rt.close(ctx) }()

	return a.constructWith(ctx, rt, opts)
}

// constructWith loads the files named by opts and runs one construction
// on an already wired runtime.
func (a *App) constructWith(ctx context.Context, rt *runtime, opts *constructOptions) error {
	tgt, err := modelfile.LoadTarget(opts.targetPath)
	if err != nil {
		return err
	}
	req, err := loadRequest(tgt, opts.modelPath)
	if err != nil {
		return err
	}

	var format modelfile.Format
	if opts.outputPath != "" {
		format, err = outputFormat(opts.outputPath, opts.format)
		if err != nil {
			return err
		}
	}

	c, err := rt.engine.Construct(ctx, req)
	if err != nil {
		if c != nil && opts.jsonOutput {
			_ = a.writeJSON(c.Report)
		}
		return fmt.Errorf("construction failed: %w", err)
	}

	if opts.outputPath != "" {
		if err := writeModel(opts.outputPath, c.Graph, format); err != nil {
			return err
		}
	}

	if opts.jsonOutput {
		return a.writeJSON(c.Report)
	}
	a.printReport(c.Report)
	if opts.outputPath != "" {
		_, _ = fmt.Fprintf(a.stdout, "\nAdapted model written to %s\n", opts.outputPath)
	}
	return nil
}

// loadRequest loads the model of tgt, or modelPath when set, and turns
// the target into a construction request.
func loadRequest(tgt *modelfile.Target, modelPath string) (application.Request, error) {
	if modelPath == "" {
		modelPath = tgt.Model
	}
	if modelPath == "" {
		return application.Request{}, fmt.Errorf("no model: set --model or name one in the target file")
	}
	g, err := modelfile.LoadModel(modelPath)
	if err != nil {
		return application.Request{}, err
	}
	zone, err := tgt.ZoneOver(g.Clocks)
	if err != nil {
		return application.Request{}, err
	}
	return application.Request{
		Name:      tgt.Name,
		Graph:     g,
		Locations: tgt.Locations,
		Variables: model.Valuation(tgt.Variables),
		Zone:      zone,
	}, nil
}

// outputFormat picks the explicit format or the one of the file extension.
func outputFormat(path, explicit string) (modelfile.Format, error) {
	if explicit != "" {
		return modelfile.ParseFormat(explicit)
	}
	return modelfile.FormatOf(path)
}

// writeModel encodes g into path.
func writeModel(path string, g *model.Graph, format modelfile.Format) error {
	var buf bytes.Buffer
	if err := modelfile.EncodeModel(&buf, g, format); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}
	return nil
}

// printReport writes a construction report in human-readable form.
func (a *App) printReport(r *construction.Report) {
	_, _ = fmt.Fprintf(a.stdout, "Report: %s\n", r.ID)
	_, _ = fmt.Fprintf(a.stdout, "  Model: %s\n", r.Model)
	_, _ = fmt.Fprintf(a.stdout, "  Status: %s\n", r.Status)
	if r.Error != "" {
		_, _ = fmt.Fprintf(a.stdout, "  Error: %s\n", r.Error)
	}
	_, _ = fmt.Fprintf(a.stdout, "  Locations: %s\n", strings.Join(r.Locations, ", "))
	if len(r.Zone) > 0 {
		_, _ = fmt.Fprintf(a.stdout, "  Zone: %s\n", strings.Join(r.Zone, " && "))
	}
	if r.Strategy != "" {
		_, _ = fmt.Fprintf(a.stdout, "  Strategy: %s (exact: %v)\n", r.Strategy, r.Exact)
	}
	if len(r.Sequence) > 0 {
		_, _ = fmt.Fprintf(a.stdout, "  Sequence: %s\n", strings.Join(r.Sequence, "; "))
	}
	if len(r.Path) > 0 {
		_, _ = fmt.Fprintf(a.stdout, "  Path:\n")
		for _, step := range r.Path {
			_, _ = fmt.Fprintf(a.stdout, "    %s\n", step)
		}
	}
	_, _ = fmt.Fprintf(a.stdout, "  Verified: %v\n", r.Verified)
	if r.Artifact != "" {
		_, _ = fmt.Fprintf(a.stdout, "  Artifact: %s\n", r.Artifact)
	}
	m := r.Measures
	_, _ = fmt.Fprintf(a.stdout, "  Inserted: %d locations, %d edges\n", m.InsertedLocations, m.InsertedEdges)
	_, _ = fmt.Fprintf(a.stdout, "  Duration: %v\n", r.Duration())
}
