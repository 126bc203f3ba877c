package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gao-dev/doclife/internal/storage/sqlite/migrations"
)

// RunMigrations applies pending migrations in order on a single
// connection inside one EXCLUSIVE transaction. Applied versions are
// recorded in schema_version; a migration whose IsApplied probe succeeds
// is adopted (recorded) without re-running Up.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection for migrations: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	if _, err := conn.ExecContext(ctx, "BEGIN EXCLUSIVE"); err != nil {
		return fmt.Errorf("failed to begin migration transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	for _, m := range migrations.All() {
		var n int
		err := conn.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM schema_version WHERE version = ?`, m.Version,
		).Scan(&n)
		if err != nil {
			return fmt.Errorf("failed to read schema_version: %w", err)
		}
		if n > 0 {
			continue
		}

		applied, err := m.IsApplied(ctx, conn)
		if err != nil {
			return fmt.Errorf("migration %d (%s) probe failed: %w", m.Version, m.Name, err)
		}
		if !applied {
			if err := m.Up(ctx, conn); err != nil {
				return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Name, err)
			}
		}

		if _, err := conn.ExecContext(ctx,
			`INSERT INTO schema_version (version, name) VALUES (?, ?)`, m.Version, m.Name,
		); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("failed to commit migrations: %w", err)
	}
	committed = true
	return nil
}

// SchemaVersion returns the highest applied migration version.
func SchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v sql.NullInt64
	err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return int(v.Int64), nil
}
