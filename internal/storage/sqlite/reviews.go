package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gao-dev/doclife/internal/types"
)

// AddReview appends a review record. ReviewedAt defaults to now.
func (s *Store) AddReview(ctx context.Context, review *types.Review) error {
	if err := s.requireDocument(ctx, review.DocumentID); err != nil {
		return err
	}
	if review.ReviewedAt.IsZero() {
		review.ReviewedAt = time.Now().UTC()
	}

	var nextDue interface{}
	if review.NextReviewDue != nil {
		nextDue = *review.NextReviewDue
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO reviews (document_id, reviewer, reviewed_at, notes, next_review_due)
		VALUES (?, ?, ?, ?, ?)
	`, review.DocumentID, review.Reviewer, review.ReviewedAt, review.Notes, nextDue)
	if err != nil {
		return wrapDBErrorf(err, "add review for document %d", review.DocumentID)
	}
	review.ID, err = res.LastInsertId()
	if err != nil {
		return wrapDBError("read inserted review id", err)
	}
	return nil
}

// GetReviewHistory returns reviews for the document, newest first.
func (s *Store) GetReviewHistory(ctx context.Context, documentID int64) ([]*types.Review, error) {
	if err := s.requireDocument(ctx, documentID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, reviewer, reviewed_at, notes, next_review_due
		FROM reviews
		WHERE document_id = ?
		ORDER BY reviewed_at DESC, id DESC
	`, documentID)
	if err != nil {
		return nil, wrapDBErrorf(err, "get review history for %d", documentID)
	}
	defer func() { _ = rows.Close() }()

	var reviews []*types.Review
	for rows.Next() {
		var r types.Review
		var nextDue sql.NullTime
		if err := rows.Scan(&r.ID, &r.DocumentID, &r.Reviewer, &r.ReviewedAt, &r.Notes, &nextDue); err != nil {
			return nil, wrapDBError("scan review", err)
		}
		if nextDue.Valid {
			t := nextDue.Time
			r.NextReviewDue = &t
		}
		reviews = append(reviews, &r)
	}
	return reviews, rows.Err()
}

// DocumentsDueForReview returns non-archived documents whose review due
// date has passed, or falls within the horizon when overdueOnly is false.
// An empty owner matches all owners. Results are ordered soonest-due first.
func (s *Store) DocumentsDueForReview(ctx context.Context, owner string, horizon time.Duration, overdueOnly bool, now time.Time) ([]*types.Document, error) {
	cutoff := now
	if !overdueOnly {
		cutoff = now.Add(horizon)
	}

	query := `SELECT ` + docColumns + ` FROM documents
		WHERE review_due_date IS NOT NULL
		  AND state != ?
		  AND review_due_date <= ?`
	args := []interface{}{types.StateArchived, cutoff}
	if owner != "" {
		query += " AND owner = ?"
		args = append(args, owner)
	}
	query += " ORDER BY review_due_date ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError(fmt.Sprintf("documents due for review (owner=%q)", owner), err)
	}
	return collectDocuments(rows)
}
