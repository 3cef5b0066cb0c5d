// Package cli provides the tastate command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/tastate"
)

// Version information set at build time.
var (
	Version   = tastate.Version
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// globalOptions holds flags shared by every command.
type globalOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

// App represents the CLI application.
type App struct {
	root   *cobra.Command
	stdout io.Writer
	stderr io.Writer
	opts   globalOptions
}

// New creates a new CLI application.
func New() *App {
	app := &App{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	app.root = &cobra.Command{
		Use:   "tastate",
		Short: "Target state construction for timed automata",
		Long: `tastate adapts a timed automaton so that its initial state leads
directly to a chosen target state: a location vector, a variable valuation
and a clock zone.

It synthesizes a sequence of clock resets, delays and guards whose zone
equals the target zone, then prepends that sequence to the model as a
chain of fresh locations and edges, and replays the result to verify it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := app.root.PersistentFlags()
	pf.StringVarP(&app.opts.configPath, "config", "c", "", "Path to configuration file (default: built-in defaults)")
	pf.StringVar(&app.opts.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	pf.StringVar(&app.opts.logFormat, "log-format", "", "Log format (json, console)")

	app.root.AddCommand(
		app.newVersionCmd(),
		app.newValidateCmd(),
		app.newSchemaCmd(),
		app.newSynthesizeCmd(),
		app.newRandomCmd(),
		app.newConstructCmd(),
		app.newBatchCmd(),
		app.newReportsCmd(),
		app.newWatchCmd(),
		app.newMCPCmd(),
	)

	return app
}

// WithOutput sets custom output writers.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

// Execute runs the CLI application.
func (a *App) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.root.ExecuteContext(ctx)
}

// ExecuteWithArgs runs the CLI with specific arguments (useful for testing).
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

// newVersionCmd creates the version command.
func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(a.stdout, "tastate version %s\n", Version)
			_, _ = fmt.Fprintf(a.stdout, "  Git commit: %s\n", GitCommit)
			_, _ = fmt.Fprintf(a.stdout, "  Build date: %s\n", BuildDate)
		},
	}
}
