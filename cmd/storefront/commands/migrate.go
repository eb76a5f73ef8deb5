package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wichananm65/storefront-backend/internal/database"
)

var seed bool

// migrateCmd creates tables and optionally seeds reference data
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create tables and seed categories",
	Long: `Create every table the API needs. Statements are idempotent so the
command is safe to run on every deploy.

Examples:
  storefront migrate             # Create tables and seed categories
  storefront migrate --seed=false`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate(cmd.Context())
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&seed, "seed", true, "Insert the default categories when the table is empty")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(ctx context.Context) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.EnsureSchema(ctx, db); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	log.Info("schema ready")
	if seed {
		if err := database.SeedCategories(ctx, db); err != nil {
			return fmt.Errorf("seed categories: %w", err)
		}
		log.Info("categories seeded")
	}
	return nil
}
