package main

import (
	"context"
	"fmt"

	"identity/backend/internal/config"
	authdomain "identity/backend/internal/domain/auth"
	"identity/backend/internal/infrastructure/postgres"
	"identity/backend/internal/infrastructure/sqlite"

	"github.com/samber/oops"
)

// database is the lifecycle shared by the store drivers.
type database interface {
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close()
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (database, authdomain.UserRepository, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err := postgres.New(ctx, cfg.URL, cfg.MaxConns)
		if err != nil {
			return nil, nil, err
		}
		return db, postgres.NewUserRepository(db.Pool), nil
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.URL)
		if err != nil {
			return nil, nil, err
		}
		return db, sqlite.NewUserRepository(db.DB), nil
	default:
		return nil, nil, oops.Code("CONFIG_INVALID").Wrap(fmt.Errorf("unsupported database driver %q", cfg.Driver))
	}
}
