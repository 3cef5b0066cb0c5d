package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/tastate/domain/construction"
)

// reportsListOptions holds options for the reports list command.
type reportsListOptions struct {
	status     string
	model      string
	strategy   string
	limit      int
	jsonOutput bool
}

// newReportsCmd creates the reports command group.
func (a *App) newReportsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Inspect stored construction reports",
		Long: `Inspect construction reports kept by the configured report store.

The default memory store lives only as long as one command, so these
commands are useful with a persistent backend (sqlite, postgres, mongodb).

Examples:
  # List the ten most recent failures
  tastate reports list -c tastate.yaml --status failed --limit 10

  # Show one report as JSON
  tastate reports get -c tastate.yaml 2b1c... --json`,
	}

	cmd.AddCommand(a.newReportsListCmd(), a.newReportsGetCmd())
	return cmd
}

func (a *App) newReportsListCmd() *cobra.Command {
	opts := &reportsListOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reports, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.listReports(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.status, "status", "", "Filter by status (pending, completed, failed)")
	cmd.Flags().StringVar(&opts.model, "model", "", "Filter by model name")
	cmd.Flags().StringVar(&opts.strategy, "strategy", "", "Filter by synthesis strategy")
	cmd.Flags().IntVar(&opts.limit, "limit", 20, "Maximum number of reports (0 = all)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func (a *App) newReportsGetCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.getReport(cmd.Context(), args[0], jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

// listReports prints the matching reports and their summary.
func (a *App) listReports(ctx context.Context, opts *reportsListOptions) error {
	filter := construction.ListFilter{
		Model:      opts.model,
		Strategy:   opts.strategy,
		OrderBy:    construction.OrderByStartTime,
		Descending: true,
	}
	if opts.status != "" {
		status := construction.Status(strings.ToLower(opts.status))
		if !status.IsValid() {
			return fmt.Errorf("unknown status %q", opts.status)
		}
		filter.Status = []construction.Status{status}
	}

	rt, err := a.setup(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = rt.close(ctx) }()

	summary, err := rt.engine.Summary(ctx, filter)
	if err != nil {
		return fmt.Errorf("summarize reports: %w", err)
	}
	filter.Limit = opts.limit
	reports, err := rt.engine.Reports(ctx, filter)
	if err != nil {
		return fmt.Errorf("list reports: %w", err)
	}

	if opts.jsonOutput {
		if reports == nil {
			reports = []*construction.Report{}
		}
		return a.writeJSON(map[string]any{
			"reports": reports,
			"summary": summary,
		})
	}

	if len(reports) == 0 {
		_, _ = fmt.Fprintln(a.stdout, "No reports found.")
		return nil
	}
	_, _ = fmt.Fprintf(a.stdout, "%-36s  %-9s  %-16s  %-8s  %s\n", "ID", "STATUS", "MODEL", "LENGTH", "STARTED")
	for _, r := range reports {
		_, _ = fmt.Fprintf(a.stdout, "%-36s  %-9s  %-16s  %-8d  %s\n",
			r.ID, r.Status, r.Model, r.Measures.SequenceLength, r.StartTime.Format("2006-01-02 15:04:05"))
	}
	_, _ = fmt.Fprintf(a.stdout, "\nTotal: %d (completed %d, failed %d), average length %.1f, average duration %v\n",
		summary.Total, summary.Completed, summary.Failed, summary.AverageLength, summary.AverageDuration)
	return nil
}

// getReport prints one report.
func (a *App) getReport(ctx context.Context, id string, jsonOutput bool) error {
	rt, err := a.setup(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = rt.close(ctx) }()

	r, err := rt.engine.Report(ctx, id)
	if err != nil {
		return fmt.Errorf("get report %s: %w", id, err)
	}
	if jsonOutput {
		return a.writeJSON(r)
	}
	a.printReport(r)
	return nil
}
