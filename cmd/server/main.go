// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/plipowczan/google-file-search-agent/internal/config"
	"github.com/plipowczan/google-file-search-agent/internal/db"
	"github.com/plipowczan/google-file-search-agent/internal/llm"
	"github.com/plipowczan/google-file-search-agent/internal/logging"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Manage Gemini File Search stores and chat over their documents",
	Long: `server keeps a local catalog of Gemini File Search stores and the files
uploaded to them, and exposes it over a JSON HTTP API.

Configuration is read from an optional YAML file. Without one, defaults apply
and GOOGLE_API_KEY supplies the API key.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration and installs the default logger.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	logger := logging.New(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	return cfg, logger, nil
}

func openDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*db.SQLDB, error) {
	database, err := db.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("initializing database: %w", err)
	}
	logger.Info("database ready", "driver", cfg.Database.Driver)
	return database, nil
}

// remoteClient defers building the Gemini client to the first remote call so
// a missing API key does not stop the server from starting.
func remoteClient(cfg *config.Config) *llm.Lazy {
	return llm.NewLazy(func() (llm.Client, error) {
		client, err := llm.NewGeminiClient(cfg.Gemini.BaseURL, cfg.Gemini.APIKey, cfg.Gemini.RequestTimeout)
		if err != nil {
			return nil, err
		}
		client.UploadTimeout = cfg.Gemini.UploadTimeout
		return client, nil
	})
}
