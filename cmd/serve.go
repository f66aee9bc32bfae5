// File: cmd/serve.go
package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/formpilot/formpilot-cli/internal/autofill"
	"github.com/formpilot/formpilot-cli/internal/config"
	"github.com/formpilot/formpilot-cli/internal/gateway"
	"github.com/formpilot/formpilot-cli/internal/observability"
	"github.com/formpilot/formpilot-cli/internal/requestqueue"
	"github.com/formpilot/formpilot-cli/internal/server"
)

// newServeCmd creates and configures the `serve` command.
func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Runs the background service the extension panel talks to",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("server.listen_addr", cmd.Flags().Lookup("listen")); err != nil {
				return err
			}
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()
			defer observability.Sync()

			// Shut down cleanly on SIGINT/SIGTERM.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Re-resolve the config now that the command's flags are bound,
			// so flag overrides take precedence over file and env values.
			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}

			queue := requestqueue.New(cfg.Queue, logger)
			gw, err := gateway.NewFromConfig(cfg.LLM, queue, logger)
			if err != nil {
				return err
			}
			service := autofill.NewService(gw, cfg.Autofill, logger)

			srv := server.New(cfg.Server, service, gw, logger)
			return srv.Start(ctx)
		},
	}

	serveCmd.Flags().String("listen", "", "listen address override (host:port)")
	return serveCmd
}
