package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the user store schema",
		RunE:  runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	db, _, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return oops.Code("MIGRATION_FAILED").With("driver", cfg.Database.Driver).Wrap(err)
	}
	logger.InfoContext(ctx, "migrations completed", "driver", cfg.Database.Driver)
	return nil
}
