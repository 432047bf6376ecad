package postgres

import (
	"context"
	_ "embed"
	"strings"

	"github.com/samber/oops"
)

//go:embed migrations/schema.sql
var schemaSQL string

// Migrate ensures the required tables exist.
func (db *Database) Migrate(ctx context.Context) error {
	return migrate(ctx, db.Pool)
}

func migrate(ctx context.Context, p pool) error {
	for i, stmt := range schemaStatements() {
		if _, err := p.Exec(ctx, stmt); err != nil {
			return oops.Code("DB_MIGRATE_FAILED").With("statement", i).Wrap(err)
		}
	}
	return nil
}

func schemaStatements() []string {
	var out []string
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
