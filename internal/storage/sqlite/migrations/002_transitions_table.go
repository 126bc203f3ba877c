package migrations

import (
	"context"
	"database/sql"
)

// The AUTOINCREMENT id breaks timestamp ties: history ordering is
// (changed_at DESC, id DESC), stable under rapid successive writers.
const schemaTransitions = `
CREATE TABLE IF NOT EXISTS state_transitions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    document_id INTEGER NOT NULL,
    from_state TEXT NOT NULL,
    to_state TEXT NOT NULL,
    reason TEXT NOT NULL DEFAULT '',
    changed_by TEXT NOT NULL DEFAULT 'system',
    changed_at DATETIME NOT NULL,
    FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_transitions_document ON state_transitions(document_id, changed_at);
`

func transitionsTable() Migration {
	return Migration{
		Version: 2,
		Name:    "transitions_table",
		IsApplied: func(ctx context.Context, conn *sql.Conn) (bool, error) {
			return tableExists(ctx, conn, "state_transitions")
		},
		Up: func(ctx context.Context, conn *sql.Conn) error {
			return execAll(ctx, conn, schemaTransitions)
		},
		Down: func(ctx context.Context, conn *sql.Conn) error {
			return execAll(ctx, conn, `DROP TABLE IF EXISTS state_transitions;`)
		},
	}
}
