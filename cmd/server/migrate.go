// cmd/server/migrate.go
package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Isadevans/lucro-backend/internal/config"
	"github.com/Isadevans/lucro-backend/pkg/database"
	"github.com/Isadevans/lucro-backend/pkg/logger"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate [up|down|status|version|redo|reset]",
		Short: "Apply the Postgres schema",
		Long: `Run goose against the embedded payment schema.

Examples:
  lucro migrate
  lucro migrate status
  lucro migrate down`,
		Args: cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			command, extra := "up", []string(nil)
			if len(args) > 0 {
				command, extra = args[0], args[1:]
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.StoreDriver != config.DriverPostgres {
				return fmt.Errorf("migrations only apply to the %s store, STORE_DRIVER is %q", config.DriverPostgres, cfg.StoreDriver)
			}

			log := logger.Must(serviceName, cfg.Environment, cfg.LogLevel)
			defer log.Sync()

			db, err := database.NewPostgresDB(context.Background(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			log.Info("running migrations", zap.String("command", command), zap.Strings("args", extra))
			if err := database.Migrate(db.DB, command, extra...); err != nil {
				return err
			}
			log.Info("migrations finished", zap.String("command", command))
			return nil
		},
	}
}
