package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantitva/market-intel/config"
	"github.com/quantitva/market-intel/db"
	"github.com/quantitva/market-intel/errors"
	"github.com/quantitva/market-intel/logger"
	"github.com/quantitva/market-intel/server"
)

// ServeCmd starts the HTTP API server
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the market-intel HTTP API server",
	Long: `Start the HTTP API server.

Serves execution ingestion and due-schedule polling for the automation
engine, plus schedule, report, and webhook management for the dashboard.
Pending database migrations are applied at startup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if port, _ := cmd.Flags().GetInt("port"); port != 0 {
			cfg.Server.Port = port
		}

		conn, err := db.Open(cfg.Database.Path, logger.Logger)
		if err != nil {
			return errors.Wrap(err, "failed to open database")
		}
		defer conn.Close()

		if err := db.Migrate(conn, logger.Logger); err != nil {
			return errors.Wrap(err, "failed to migrate database")
		}

		srv, err := server.New(cfg, conn, logger.Logger)
		if err != nil {
			return err
		}

		// Graceful shutdown on SIGINT/SIGTERM
		done := make(chan os.Signal, 1)
		signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-done
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Errorw("Shutdown failed", "error", err)
			}
		}()

		return srv.Start()
	},
}

func init() {
	ServeCmd.Flags().IntP("port", "p", 0, "Port to listen on (overrides config)")
}

// loadConfig resolves configuration from the --config flag or the default
// search path.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}
