// Command importer loads sales sheets and manages the database from the
// command line.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/salesdash/internal/config"
	"github.com/JonMunkholm/salesdash/internal/database"
	"github.com/JonMunkholm/salesdash/internal/logging"
)

var envFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "importer",
	Short: "Sales dashboard importer",
	Long:  `Import Superstore-style sales sheets into the dashboard database and manage its schema and data.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A missing env file is fine; the environment may already be set.
		_ = godotenv.Overload(envFile)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to a .env file to load")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(resetCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setupLogging sends logs to stderr so stdout only carries command output.
func setupLogging(cfg *config.Config) {
	slog.SetDefault(logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format))
}

// openDatabase loads the full configuration and connects to Postgres.
// The returned func closes the pool.
func openDatabase(ctx context.Context) (*database.Store, *config.Config, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	setupLogging(cfg)

	pool, err := database.Connect(ctx, database.Options{
		URL:             cfg.Database.URL,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        1,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		PingTimeout:     cfg.Database.PingTimeout,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect: %w", err)
	}
	return database.New(pool), cfg, pool.Close, nil
}
