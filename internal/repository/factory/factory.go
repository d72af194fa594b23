// Package factory opens the configured database backend and wires its repositories.
package factory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/prn-tf/storefront/internal/config"
	"github.com/prn-tf/storefront/internal/repository"
	"github.com/prn-tf/storefront/internal/repository/postgres"
	"github.com/prn-tf/storefront/internal/repository/sqlite"
)

// Open connects to the database selected by cfg.Driver and returns its repositories.
// The caller owns result.Database and must Close it.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*repository.CreateRepositoriesResult, error) {
	switch cfg.Driver {
	case "sqlite":
		db, err := sqlite.NewDB(ctx, sqlite.Config{
			Path:            cfg.Path,
			MaxOpenConns:    1,
			MaxIdleConns:    1,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
			JournalMode:     cfg.JournalMode,
			BusyTimeout:     cfg.BusyTimeout,
			CacheSize:       cfg.CacheSize,
			SynchronousMode: cfg.SynchronousMode,
		}, logger)
		if err != nil {
			return nil, err
		}
		return &repository.CreateRepositoriesResult{
			Repos:    sqlite.NewRepositories(db),
			Database: db,
			Driver:   cfg.Driver,
		}, nil

	case "postgres":
		db, err := postgres.NewDB(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return &repository.CreateRepositoriesResult{
			Repos:    postgres.NewRepositories(db),
			Database: db,
			Driver:   cfg.Driver,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver: %q", cfg.Driver)
	}
}
