// Command dataport is the CLI companion to the import/export server. It
// runs the same engine against the database directly, without going
// through the HTTP API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bakeledger/dataport/internal/config"
	"github.com/bakeledger/dataport/internal/core"
	_ "github.com/bakeledger/dataport/internal/core/entities" // Register all entities
	"github.com/bakeledger/dataport/internal/logging"
	"github.com/bakeledger/dataport/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dataport",
	Short: "Import and export bakery business data",
	Long: `dataport moves bakery business data (contacts, orders, quotes, tasks,
enquiries) in and out of the database.

Imports accept CSV, XLSX and JSON payloads, detect the entity kind from
the column layout, and report per-row outcomes. Exports produce either a
flat CSV per entity or a full JSON snapshot that can be re-imported.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the dataport version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("dataport", version)
	},
}

// version is set at build time via -ldflags.
var version = "dev"

// newService loads configuration, connects to the database and returns a
// ready service plus a cleanup func.
func newService(ctx context.Context) (*core.Service, *config.Config, func(), error) {
	// .env is optional for the CLI
	_ = godotenv.Overload()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load configuration: %w", err)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("ping database: %w", err)
	}

	var overlay core.AliasOverlay
	if cfg.Import.AliasFile != "" {
		overlay, err = core.LoadAliasOverlay(cfg.Import.AliasFile)
		if err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("load alias overlay: %w", err)
		}
		slog.Debug("alias overlay loaded", "file", cfg.Import.AliasFile)
	}

	service := core.NewService(store.NewPostgres(pool), overlay)
	return service, cfg, pool.Close, nil
}
