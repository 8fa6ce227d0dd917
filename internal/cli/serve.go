package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/causalrt/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query API over HTTP",
		Long: `Start the HTTP API on --addr with the configured backends.

Routes:
  GET  /health
  GET  /plugins
  POST /compile   {"query": ..., "backend": "auto"}
  POST /query     {"query": ..., "backend": "auto"}
  POST /estimate  {"query": ..., "plugin": ..., "seed": 0, "schema_hint": {...}}

The server stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts, cmd)
		},
	}
	return cmd
}

func runServe(opts *RootOptions, cmd *cobra.Command) error {
	cfg, err := opts.LoadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := opts.newRuntime(ctx, cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start engine", err)
	}
	defer func() {
		if closeErr := rt.Close(); closeErr != nil {
			opts.Logger().Error("error closing engine", "error", closeErr)
		}
	}()

	opts.Logger().Info("serving", "addr", cfg.Server.Addr, "backends", rt.Engine.Backends())
	if err := server.New(rt.Engine, opts.Logger()).ListenAndServe(ctx, cfg.Server.Addr); err != nil {
		return WrapExitError(ExitCommandError, "http server failed", err)
	}
	opts.Logger().Info("server stopped gracefully")
	return nil
}
