package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/plipowczan/google-file-search-agent/internal/config"
	"github.com/plipowczan/google-file-search-agent/internal/kb"
	"github.com/plipowczan/google-file-search-agent/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}

		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.HTTPAddr = addr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		database, err := openDatabase(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer database.Close()

		if cfg.Gemini.APIKey == "" {
			logger.Warn(config.APIKeyEnv + " is not set; remote operations will fail")
		}

		svc := kb.NewService(database, remoteClient(cfg), kb.Config{
			DefaultModel: cfg.Gemini.DefaultModel,
			PollInterval: cfg.Gemini.PollInterval,
		}, logger)

		srv := server.New(cfg.Server, cfg.Metrics, svc, logger)

		logger.Info("starting server", "version", server.Version, "addr", cfg.Server.HTTPAddr)
		return srv.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address, overrides server.http_addr")
	rootCmd.AddCommand(serveCmd)
}
