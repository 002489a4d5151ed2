package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gastroops/opsdeck/internal/config"
	"github.com/gastroops/opsdeck/internal/store"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "opsdeck",
	Short: "Hospitality task template service",
	Long:  "Imports Trail CSV exports into task templates, serves the import wizard API and manages the compliance template library.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// openStore validates config for the given mode and opens the configured
// backend.
func openStore(ctx context.Context, mode string) (store.Store, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}
	if cfg.Store.Driver == "sqlite" {
		return store.NewSQLite(cfg.Store.DatabaseURL)
	}
	return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
