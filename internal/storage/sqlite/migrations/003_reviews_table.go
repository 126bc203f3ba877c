package migrations

import (
	"context"
	"database/sql"
)

const schemaReviews = `
CREATE TABLE IF NOT EXISTS reviews (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    document_id INTEGER NOT NULL,
    reviewer TEXT NOT NULL,
    reviewed_at DATETIME NOT NULL,
    notes TEXT NOT NULL DEFAULT '',
    next_review_due DATETIME,
    FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_reviews_document ON reviews(document_id, reviewed_at);
`

func reviewsTable() Migration {
	return Migration{
		Version: 3,
		Name:    "reviews_table",
		IsApplied: func(ctx context.Context, conn *sql.Conn) (bool, error) {
			return tableExists(ctx, conn, "reviews")
		},
		Up: func(ctx context.Context, conn *sql.Conn) error {
			return execAll(ctx, conn, schemaReviews)
		},
		Down: func(ctx context.Context, conn *sql.Conn) error {
			return execAll(ctx, conn, `DROP TABLE IF EXISTS reviews;`)
		},
	}
}
