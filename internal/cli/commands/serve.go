package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/dynsql/internal/server"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Addr  string
	Watch bool
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the render API over HTTP",
		Long: `Start an HTTP server that renders templates and macros as JSON.

Routes:
  POST /render         {"template"|"macro", "params"} -> {"sql", "args"}
  POST /render/batch   {"requests": [...]} rendered concurrently
  GET  /macros         inspected macros
  GET  /macros/{name}  one macro with its body
  GET  /rules          rule names
  GET  /stats          plan cache statistics
  GET  /healthz        liveness

With --watch the macro directory is reloaded when files change.`,
		Example: `  # Serve on the configured address
  dynsql serve

  # Serve on port 9000 and reload macros on change
  dynsql serve --addr :9000 --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "Listen address (default from server.addr)")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Reload macros when the macros directory changes")
	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	srvCfg := cmdCtx.Cfg.Project().Server
	addr := srvCfg.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}
	watch := srvCfg.Watch || opts.Watch

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(server.Config{
		Engine:      cmdCtx.Engine,
		Addr:        addr,
		Watch:       watch,
		ReadTimeout: srvCfg.ReadTimeout,
		Logger:      cmdCtx.Logger,
	})

	cmdCtx.Renderer.Warnf("serving on %s (%d macros)", addr, cmdCtx.Engine.Macros().Len())
	return srv.Serve(ctx)
}
