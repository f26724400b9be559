package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rollcall/rollcall/internal/adapters/store"
	"github.com/rollcall/rollcall/internal/adapters/store/filestore"
	"github.com/rollcall/rollcall/internal/adapters/store/sqlite"
	"github.com/rollcall/rollcall/internal/config"
	"github.com/rollcall/rollcall/pkg/logger"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "rollcall",
		Short:         "Face-recognition attendance service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newServeCommand())
	root.AddCommand(newReportCommand())
	root.AddCommand(newSimulateCommand())
	return root
}

// loadConfig loads configuration and applies the configured log level.
func loadConfig(ctx context.Context) (*config.Config, error) {
	if err := logger.Init(); err != nil {
		return nil, fmt.Errorf("initialize logging: %w", err)
	}
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel))
		_ = logger.SetLevelString("info")
	}
	return cfg, nil
}

// openStore builds the configured persistence backend.
func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return store.NewMemory(), nil
	case config.StoreFile:
		return filestore.New(cfg.DataDir)
	case config.StoreSQLite:
		return sqlite.Open(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}
