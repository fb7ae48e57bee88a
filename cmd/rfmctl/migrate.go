package main

import (
	"fmt"

	"github.com/yogafarah170618-oss/segmena-insight-nexus/internal/infrastructure"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Long: `Create or update the tables and indexes of the configured database.

Examples:
  rfmctl migrate
  SEGMENA_DATABASE_DRIVER=sqlite rfmctl migrate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := infrastructure.ConnectDatabase(cfg.Database, cfg.Log.Level)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			if err := infrastructure.MigrateAllSchemas(db); err != nil {
				return fmt.Errorf("failed to migrate database schemas: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrated %s database\n", cfg.Database.Driver)
			return nil
		},
	}
}
