package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/evoplatform/evogate/internal/config"
	"github.com/evoplatform/evogate/internal/frontend"
	"github.com/evoplatform/evogate/internal/logger"
	"github.com/evoplatform/evogate/internal/logger/tag"
)

func serverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the gateway server",
		Long:  `evogate server [--host=<host>] [--port=<port>]`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(config.WithConfigFile(cfgFile))
			if err != nil {
				return err
			}
			if host, _ := cmd.Flags().GetString("host"); host != "" {
				cfg.Server.Host = host
			}
			if port, _ := cmd.Flags().GetInt("port"); port > 0 {
				cfg.Server.Port = port
			}

			loggerOpts := []logger.Option{logger.WithFormat(cfg.Global.LogFormat)}
			if cfg.Global.Debug {
				loggerOpts = append(loggerOpts, logger.WithDebug())
			}
			ctx := logger.WithLogger(cmd.Context(), logger.NewLogger(loggerOpts...))

			for _, warning := range cfg.Warnings {
				logger.Warn(ctx, warning)
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, err := frontend.NewServer(ctx, cfg)
			if err != nil {
				logger.Error(ctx, "Failed to initialize server", tag.Error(err))
				return err
			}
			return srv.Serve(ctx)
		},
	}

	cmd.Flags().StringP("host", "s", "", "server host (default is 127.0.0.1)")
	cmd.Flags().IntP("port", "p", 0, "server port (default is 8090)")
	return cmd
}
