package main

import (
	"context"
	"fmt"
	"time"

	"airease-backend/pkg/database"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations to the configured SQL store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			var store *database.SQLStore
			switch cfg.StoreDriver {
			case "sqlite":
				store, err = database.OpenSQLite(ctx, cfg.SQLitePath)
			case "postgres":
				store, err = database.OpenPostgres(ctx, cfg.PostgresDSN)
			default:
				fmt.Printf("Store driver %q has no schema migrations\n", cfg.StoreDriver)
				return nil
			}
			if err != nil {
				return fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
			}
			defer store.Close()

			version, err := store.SchemaVersion(ctx)
			if err != nil {
				return fmt.Errorf("read schema version: %w", err)
			}
			log.Info("migrations applied", "driver", store.Driver(), "target", cfg.StoreTarget(), "version", version)
			fmt.Printf("✅ %s schema at version %d\n", store.Driver(), version)
			return nil
		},
	}
}
