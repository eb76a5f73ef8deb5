package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/wichananm65/storefront-backend/internal/config"
	"github.com/wichananm65/storefront-backend/internal/logger"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "Storefront backend",
	Long: `Storefront backend for the shop and booking site.

Commands:
  serve         - Run the HTTP API
  worker        - Consume domain events and send notifications
  migrate       - Create tables and seed categories
  sign-webhook  - Print a signature header for a webhook payload`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads configuration and builds the process logger.
func bootstrap() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Logger)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}
