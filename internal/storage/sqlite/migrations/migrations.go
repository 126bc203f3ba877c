// Package migrations holds the statically registered schema migrations
// for the registry database.
//
// Migrations are numbered, idempotent, and applied in order inside a
// single EXCLUSIVE transaction by sqlite.RunMigrations. Each migration
// exposes IsApplied (probe), Up, and Down; applied versions are recorded
// in the schema_version table by the runner.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration is one numbered schema change.
type Migration struct {
	Version int
	Name    string
	// IsApplied probes whether the migration's effects are already
	// present, independent of schema_version bookkeeping. Used to adopt
	// databases created before version tracking existed.
	IsApplied func(ctx context.Context, conn *sql.Conn) (bool, error)
	Up        func(ctx context.Context, conn *sql.Conn) error
	Down      func(ctx context.Context, conn *sql.Conn) error
}

// All returns the ordered migration registry.
func All() []Migration {
	return []Migration{
		initialSchema(),
		transitionsTable(),
		reviewsTable(),
	}
}

// tableExists reports whether a table or virtual table with the given
// name exists.
func tableExists(ctx context.Context, conn *sql.Conn, name string) (bool, error) {
	var n int
	err := conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type IN ('table','view') AND name = ?`, name,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("probe table %s: %w", name, err)
	}
	return n > 0, nil
}

func execAll(ctx context.Context, conn *sql.Conn, ddl string) error {
	_, err := conn.ExecContext(ctx, ddl)
	return err
}
