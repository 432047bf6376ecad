// Package sqlite implements the user store on SQLite through bun. It backs
// single-node and development deployments.
package sqlite

import (
	"context"
	"database/sql"

	"github.com/samber/oops"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// Database wraps the bun handle.
type Database struct {
	DB *bun.DB
}

// Open connects to the SQLite database named by dsn.
func Open(ctx context.Context, dsn string) (*Database, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("driver", "sqlite").Wrap(err)
	}
	// SQLite serialises writers; one connection keeps in-memory databases shared.
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").With("driver", "sqlite").Wrap(err)
	}
	return &Database{DB: db}, nil
}

// Migrate creates the users table and its email uniqueness index.
func (d *Database) Migrate(ctx context.Context) error {
	if _, err := d.DB.NewCreateTable().
		Model((*userModel)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return oops.Code("DB_MIGRATE_FAILED").With("driver", "sqlite").Wrap(err)
	}
	if _, err := d.DB.NewCreateIndex().
		Model((*userModel)(nil)).
		Index("users_email_key").
		Unique().
		IfNotExists().
		Column("email").
		Exec(ctx); err != nil {
		return oops.Code("DB_MIGRATE_FAILED").With("driver", "sqlite").Wrap(err)
	}
	return nil
}

// Ping reports whether the database is reachable.
func (d *Database) Ping(ctx context.Context) error {
	return d.DB.PingContext(ctx)
}

// Close releases the underlying handle.
func (d *Database) Close() {
	if d != nil && d.DB != nil {
		_ = d.DB.Close()
	}
}
