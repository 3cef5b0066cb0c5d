package cli

import (
	"context"
	"fmt"

	mcpgo "github.com/felixgeelhaar/mcp-go"
	mcpserver "github.com/felixgeelhaar/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/tastate/infrastructure/logging"
	"github.com/felixgeelhaar/tastate/interfaces/mcp"
)

const mcpInstructions = `Tools for timed automata target state construction.
Use synthesize to get an operation sequence for a clock zone, and construct
to adapt a model (given inline or by path) so that it starts in a target
state. Zones are lists of constraints such as "x <= 5" or "x - y >= 2".`

// mcpOptions holds options for the mcp command.
type mcpOptions struct {
	addr string
}

// newMCPCmd creates the mcp command.
func (a *App) newMCPCmd() *cobra.Command {
	opts := &mcpOptions{}

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the engine as Model Context Protocol tools",
		Long: `Serve synthesize, construct, get_report and list_reports as MCP tools.

The server speaks over stdin/stdout by default, which is how MCP clients
launch local tools. With --addr it serves HTTP with SSE instead.

Examples:
  # Register with an MCP client as a local command
  tastate mcp -c tastate.yaml

  # Serve over HTTP
  tastate mcp --addr :8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serveMCP(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "Serve HTTP on this address instead of stdio")

	return cmd
}

// serveMCP runs the MCP server until the context ends.
func (a *App) serveMCP(ctx context.Context, opts *mcpOptions) error {
	rt, err := a.setup(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = rt.close(ctx) }()

	srv, err := mcp.NewServer(mcp.Config{
		Name:         "tastate",
		Version:      Version,
		Description:  "Target state construction for timed automata",
		Instructions: mcpInstructions,
		Engine:       rt.engine,
	})
	if err != nil {
		return err
	}
	srv.Use(serverMiddleware(mcpgo.Recover()), serverMiddleware(mcpgo.RequestID()))

	logging.Info().
		Add(logging.Component("mcp")).
		Add(logging.Strategy(string(rt.engine.Strategy()))).
		Add(logging.Str("addr", opts.addr)).
		Msg("serving")

	if opts.addr != "" {
		err = srv.ServeHTTP(ctx, opts.addr)
	} else {
		err = srv.ServeStdio(ctx)
	}
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

// serverMiddleware converts an mcp-go middleware to the server package's
// middleware type; the two share the same underlying signature.
func serverMiddleware(m mcpgo.Middleware) mcpserver.Middleware {
	return func(next mcpserver.HandlerFunc) mcpserver.HandlerFunc {
		return mcpserver.HandlerFunc(m(mcpgo.MiddlewareHandlerFunc(next)))
	}
}
