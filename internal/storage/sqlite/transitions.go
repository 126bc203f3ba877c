package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gao-dev/doclife/internal/types"
)

// appendTransition inserts one audit row. Shared between the pooled store
// and transaction-scoped writes; the state machine always uses the latter
// so the document update and its audit row commit together.
func appendTransition(ctx context.Context, q querier, tr *types.StateTransition) error {
	if tr.ChangedBy == "" {
		tr.ChangedBy = "system"
	}
	res, err := q.ExecContext(ctx, `
		INSERT INTO state_transitions (document_id, from_state, to_state, reason, changed_by, changed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, tr.DocumentID, tr.FromState, tr.ToState, tr.Reason, tr.ChangedBy, tr.ChangedAt)
	if err != nil {
		return wrapDBErrorf(err, "append transition for document %d", tr.DocumentID)
	}
	tr.ID, err = res.LastInsertId()
	if err != nil {
		return wrapDBError("read inserted transition id", err)
	}
	return nil
}

// GetTransitionHistory returns all audit rows for the document, most
// recent first. The autoincrement id breaks changed_at ties so ordering
// is stable under rapid successive transitions.
func (s *Store) GetTransitionHistory(ctx context.Context, documentID int64) ([]*types.StateTransition, error) {
	if err := s.requireDocument(ctx, documentID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, from_state, to_state, reason, changed_by, changed_at
		FROM state_transitions
		WHERE document_id = ?
		ORDER BY changed_at DESC, id DESC
	`, documentID)
	if err != nil {
		return nil, wrapDBErrorf(err, "get transition history for %d", documentID)
	}
	defer func() { _ = rows.Close() }()

	var history []*types.StateTransition
	for rows.Next() {
		var tr types.StateTransition
		if err := rows.Scan(&tr.ID, &tr.DocumentID, &tr.FromState, &tr.ToState,
			&tr.Reason, &tr.ChangedBy, &tr.ChangedAt); err != nil {
			return nil, wrapDBError("scan transition", err)
		}
		history = append(history, &tr)
	}
	return history, rows.Err()
}

// LastTransitionTo returns the most recent transition of the document
// into the given state, or (nil, nil) when it never entered that state.
// The retention engine uses this to age obsolete documents from the
// moment they went obsolete rather than from an arbitrary later edit.
func (s *Store) LastTransitionTo(ctx context.Context, documentID int64, to types.DocState) (*types.StateTransition, error) {
	var tr types.StateTransition
	err := s.db.QueryRowContext(ctx, `
		SELECT id, document_id, from_state, to_state, reason, changed_by, changed_at
		FROM state_transitions
		WHERE document_id = ? AND to_state = ?
		ORDER BY changed_at DESC, id DESC
		LIMIT 1
	`, documentID, to).Scan(&tr.ID, &tr.DocumentID, &tr.FromState, &tr.ToState,
		&tr.Reason, &tr.ChangedBy, &tr.ChangedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapDBError(fmt.Sprintf("last transition of %d to %s", documentID, to), err)
	}
	return &tr, nil
}
