package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/conduit-lang/restifier/internal/app"
	"github.com/conduit-lang/restifier/internal/cli/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the declared resources",
		Long: `Start the HTTP server for every resource declared in the config file.

The server drains in-flight requests and closes the store on SIGINT or SIGTERM.`,
		Example: `  restifier serve
  restifier serve --config ./deploy/restifier.yml --port 8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath(cmd))
			if err != nil {
				return &configError{err}
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "override server.port")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	a, err := app.FromConfig(ctx, cfg)
	if err != nil {
		return &configError{err}
	}

	srv, err := a.Server()
	if err != nil {
		a.Close()
		return err
	}

	a.Logger().Info("serving resources",
		zap.Int("resources", len(cfg.Resources)),
		zap.String("store", cfg.Store.Driver),
		zap.String("prefix", cfg.Server.APIPrefix),
	)
	return srv.Run(ctx)
}
