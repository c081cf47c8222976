package commands

import (
	"github.com/spf13/cobra"

	"github.com/quantitva/market-intel/db"
	"github.com/quantitva/market-intel/errors"
	"github.com/quantitva/market-intel/logger"
)

// MigrateCmd applies pending database migrations
var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		conn, err := db.Open(cfg.Database.Path, logger.Logger)
		if err != nil {
			return errors.Wrap(err, "failed to open database")
		}
		defer conn.Close()

		if err := db.Migrate(conn, logger.Logger); err != nil {
			return errors.Wrap(err, "failed to migrate database")
		}

		logger.Infow("Migrations applied", "database", cfg.Database.Path)
		return nil
	},
}
