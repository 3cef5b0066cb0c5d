package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	infraconfig "github.com/felixgeelhaar/tastate/infrastructure/config"
)

// validateOptions holds options for the validate command.
type validateOptions struct {
	strict     bool
	showSchema bool
	offline    bool
}

// newValidateCmd creates the validate command.
func (a *App) newValidateCmd() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Long: `Validate a tastate configuration file for correctness.

This command checks:
  - File format (YAML or JSON)
  - Field values (strategies, backends, durations, rates)
  - Environment variable references (in strict mode)
  - That every configured backend can be opened (unless --offline)

Examples:
  # Validate a configuration file
  tastate validate -c tastate.yaml

  # Strict validation (fail on missing env vars)
  tastate validate -c tastate.yaml --strict

  # Check values only, without connecting to backends
  tastate validate -c tastate.yaml --offline

  # Show the JSON schema for configuration
  tastate validate --schema`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.showSchema {
				return a.showConfigSchema()
			}
			return a.validateConfig(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Enable strict validation (fail on missing env vars)")
	cmd.Flags().BoolVar(&opts.showSchema, "schema", false, "Show JSON schema for configuration")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Skip opening the configured backends")

	return cmd
}

// validateConfig validates the configuration file.
func (a *App) validateConfig(ctx context.Context, opts *validateOptions) error {
	if a.opts.configPath == "" {
		return fmt.Errorf("configuration file path is required (-c flag)")
	}

	config, err := a.loadConfig(opts.strict)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if !opts.offline {
		result, err := infraconfig.NewBuilder(config).Build(ctx)
		if err != nil {
			return fmt.Errorf("configuration build failed: %w", err)
		}
		if err := result.Close(); err != nil {
			return fmt.Errorf("configuration build failed: %w", err)
		}
	}

	_, _ = fmt.Fprintf(a.stdout, "✓ Configuration is valid\n")
	if config.Name != "" {
		_, _ = fmt.Fprintf(a.stdout, "  Name: %s\n", config.Name)
	}
	if config.Version != "" {
		_, _ = fmt.Fprintf(a.stdout, "  Version: %s\n", config.Version)
	}
	if config.Description != "" {
		_, _ = fmt.Fprintf(a.stdout, "  Description: %s\n", config.Description)
	}

	_, _ = fmt.Fprintf(a.stdout, "\nConfiguration summary:\n")
	_, _ = fmt.Fprintf(a.stdout, "  Strategy: %s\n", config.Synthesis.Strategy)
	if config.Synthesis.ConstraintSystem != "" {
		_, _ = fmt.Fprintf(a.stdout, "  Constraint system: %s\n", config.Synthesis.ConstraintSystem)
	}
	_, _ = fmt.Fprintf(a.stdout, "  Reduction: %v\n", config.Synthesis.Reduce)
	_, _ = fmt.Fprintf(a.stdout, "  Verification: %v\n", config.Adaptation.Verify)
	if config.Cache.Enabled {
		_, _ = fmt.Fprintf(a.stdout, "  Cache: %s\n", config.Cache.Backend)
	} else {
		_, _ = fmt.Fprintf(a.stdout, "  Cache: disabled\n")
	}
	_, _ = fmt.Fprintf(a.stdout, "  Reports: %s\n", config.Reports.Backend)
	_, _ = fmt.Fprintf(a.stdout, "  Export: %s\n", config.Export.Backend)
	if config.Telemetry.Enabled {
		_, _ = fmt.Fprintf(a.stdout, "  Telemetry: %s\n", config.Telemetry.Exporter)
	}

	return nil
}

// showConfigSchema displays the JSON schema for configuration.
func (a *App) showConfigSchema() error {
	schemaJSON, err := infraconfig.SchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	_, _ = fmt.Fprintln(a.stdout, schemaJSON)
	return nil
}
