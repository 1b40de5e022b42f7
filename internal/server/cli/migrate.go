package cli

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/axiscapital/vault/internal/common"
	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(
		rawCommand("up", "Apply all pending migrations", func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), args, func(ctx context.Context, db *sql.DB) error {
				if err := newMigrator().RunMigrations(ctx, db); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		}),
		rawCommand("status", "Show applied migrations", func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), args, func(ctx context.Context, db *sql.DB) error {
				return newMigrator().MigrationStatus(ctx, db)
			})
		}),
	)
	return cmd
}

// withDB opens the database only; migrations need neither the JWT secret
// nor the encryption key.
func withDB(ctx context.Context, args []string, fn func(ctx context.Context, db *sql.DB) error) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(cfg.DatabaseDSN) == "" {
		return fmt.Errorf("%w: database dsn is required", common.ErrConfiguration)
	}

	db, err := openDB(ctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(ctx, db)
}
