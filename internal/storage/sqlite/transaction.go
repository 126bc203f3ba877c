package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/gao-dev/doclife/internal/storage"
	"github.com/gao-dev/doclife/internal/types"
)

// Verify txStore implements storage.Transaction at compile time
var _ storage.Transaction = (*txStore)(nil)

// txStore implements storage.Transaction over a dedicated connection with
// an active transaction.
type txStore struct {
	conn *sql.Conn
}

// RunInTransaction executes fn within a database transaction.
//
// The transaction uses BEGIN IMMEDIATE to acquire the write lock early,
// preventing deadlocks when multiple goroutines compete for it. On error
// or panic the transaction is rolled back; panics are re-raised.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx storage.Transaction) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection for transaction: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if err := beginImmediateWithRetry(ctx, conn, 5, 10*time.Millisecond); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			// Background context so rollback completes even when ctx is
			// already cancelled.
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	if err := fn(&txStore{conn: conn}); err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

// beginImmediateWithRetry retries BEGIN IMMEDIATE with exponential
// backoff while the database is busy.
func beginImmediateWithRetry(ctx context.Context, conn *sql.Conn, attempts int, delay time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		_, err = conn.ExecContext(ctx, "BEGIN IMMEDIATE")
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "busy") && !strings.Contains(err.Error(), "locked") {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}

// GetDocument retrieves a document within the transaction, enabling
// read-your-writes semantics.
func (t *txStore) GetDocument(ctx context.Context, id int64) (*types.Document, error) {
	return getDocument(ctx, t.conn, id)
}

// UpdateDocument applies a partial update within the transaction.
func (t *txStore) UpdateDocument(ctx context.Context, id int64, fields map[string]interface{}) error {
	return updateDocument(ctx, t.conn, id, fields)
}

// UpdateDocumentState moves the document to the given state and stamps
// modified_at. Enum validity is double-checked by the column constraint.
func (t *txStore) UpdateDocumentState(ctx context.Context, id int64, to types.DocState, now time.Time) error {
	if !to.IsValid() {
		return fmt.Errorf("%w: invalid document state: %s", storage.ErrValidation, to)
	}
	res, err := t.conn.ExecContext(ctx,
		`UPDATE documents SET state = ?, modified_at = ? WHERE id = ?`, to, now, id)
	if err != nil {
		return wrapDBErrorf(err, "update state of document %d", id)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return wrapDBError("check state update", err)
	}
	if rows == 0 {
		return fmt.Errorf("update state of document %d: %w", id, storage.ErrNotFound)
	}
	return nil
}

// AppendTransition writes one audit row within the transaction.
func (t *txStore) AppendTransition(ctx context.Context, tr *types.StateTransition) error {
	return appendTransition(ctx, t.conn, tr)
}

// FindActivePeer returns another active document with the same
// (type, feature), or (nil, nil) when none exists. Used by the state
// machine to enforce the single-active invariant atomically with the
// activating transition.
func (t *txStore) FindActivePeer(ctx context.Context, docType types.DocType, feature string, excludeID int64) (*types.Document, error) {
	doc, err := scanDocument(t.conn.QueryRowContext(ctx, `
		SELECT `+docColumns+` FROM documents
		WHERE doc_type = ? AND feature = ? AND state = ? AND id != ?
		LIMIT 1
	`, docType, feature, types.StateActive, excludeID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapDBError(fmt.Sprintf("find active peer of (%s, %s)", docType, feature), err)
	}
	return doc, nil
}
