package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/tastate/infrastructure/logging"
	"github.com/felixgeelhaar/tastate/infrastructure/modelfile"
)

// watchOptions holds options for the watch command.
type watchOptions struct {
	construct constructOptions
	debounce  time.Duration
}

// newWatchCmd creates the watch command.
func (a *App) newWatchCmd() *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run a construction whenever its files change",
		Long: `Construct a target state, then watch the model and target files and
construct again every time either is written. Runs until interrupted.

Examples:
  # Keep an adapted model in sync while editing
  tastate watch -t target.yaml -o train.adapted.yaml

  # Wait for editors to settle before rebuilding
  tastate watch -t target.yaml --debounce 500ms`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.watch(cmd.Context(), opts)
		},
	}

	c := &opts.construct
	cmd.Flags().StringVarP(&c.modelPath, "model", "m", "", "Model file (overrides the target's model)")
	cmd.Flags().StringVarP(&c.targetPath, "target", "t", "", "Target file (required)")
	cmd.Flags().StringVarP(&c.outputPath, "output", "o", "", "Write the adapted model to this file")
	cmd.Flags().StringVar(&c.format, "format", "", "Format of --output (yaml, json; default: from extension)")
	cmd.Flags().StringVar(&c.strategy, "strategy", "", "Synthesis strategy (witness, zone; overrides config)")
	cmd.Flags().BoolVar(&c.reduce, "reduce", false, "Shorten the synthesized sequence")
	cmd.Flags().BoolVar(&c.noVerify, "no-verify", false, "Skip replaying the inserted path")
	cmd.Flags().BoolVar(&c.jsonOutput, "json", false, "Output reports as JSON")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", 200*time.Millisecond, "Quiet period before rebuilding")

	_ = cmd.MarkFlagRequired("target")

	return cmd
}

// watch constructs once and again after every change to the input files.
func (a *App) watch(ctx context.Context, opts *watchOptions) error {
	tgt, err := modelfile.LoadTarget(opts.construct.targetPath)
	if err != nil {
		return err
	}
	modelPath := opts.construct.modelPath
	if modelPath == "" {
		modelPath = tgt.Model
	}
	if modelPath == "" {
		return fmt.Errorf("no model: set --model or name one in the target file")
	}

	files := make(map[string]bool)
	for _, p := range []string{opts.construct.targetPath, modelPath} {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		files[abs] = true
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Directories are watched so that editors replacing files by rename
	// keep being seen.
	dirs := make(map[string]bool)
	for f := range files {
		dir := filepath.Dir(f)
		if dirs[dir] {
			continue
		}
		dirs[dir] = true
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	rt, err := a.setup(ctx, opts.construct.overrides()...)
	if err != nil {
		return err
	}
	defer func() { _ = rt.close(ctx) }()

	rebuild := func() {
		if err := a.constructWith(ctx, rt, &opts.construct); err != nil {
			_, _ = fmt.Fprintf(a.stderr, "Error: %v\n", err)
		}
	}
	rebuild()
	_, _ = fmt.Fprintf(a.stderr, "Watching %d files, press Ctrl+C to stop\n", len(files))

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !files[filepath.Clean(event.Name)] || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			logging.Debug().
				Add(logging.Component("watch")).
				Add(logging.Path(event.Name)).
				Add(logging.Operation(event.Op.String())).
				Msg("input changed")
			pending = time.After(opts.debounce)
		case <-pending:
			pending = nil
			_, _ = fmt.Fprintf(a.stdout, "\n--- %s ---\n", time.Now().Format(time.TimeOnly))
			rebuild()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn().Add(logging.Component("watch")).Add(logging.ErrorField(err)).Msg("watch error")
		}
	}
}
