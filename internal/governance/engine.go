package governance

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/gao-dev/doclife/internal/storage"
	"github.com/gao-dev/doclife/internal/telemetry"
	"github.com/gao-dev/doclife/internal/types"
)

// dueSoonHorizon is how far ahead CheckReviewDue looks for upcoming
// reviews.
const dueSoonHorizon = 7 * 24 * time.Hour

// Engine applies governance rules against the registry.
type Engine struct {
	store  storage.Storage
	config *Config

	reviews metric.Int64Counter
}

// New creates an Engine with the given configuration.
func New(store storage.Storage, config *Config) *Engine {
	e := &Engine{store: store, config: config}
	e.reviews, _ = telemetry.Meter("").Int64Counter("doclife.governance.reviews")
	return e
}

// Config returns the engine's governance configuration.
func (e *Engine) Config() *Config { return e.config }

// AutoAssignOwnership fills in owner, reviewer, and the first review due
// date from the RACI configuration for the document's type. Returns the
// updated document.
func (e *Engine) AutoAssignOwnership(ctx context.Context, documentID int64, now time.Time) (*types.Document, error) {
	doc, err := e.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	row, ok := e.config.RACI(doc.Type)
	if !ok {
		return nil, fmt.Errorf("%w: no ownership configured for type %s", storage.ErrValidation, doc.Type)
	}

	fields := map[string]interface{}{
		types.FieldOwner:    row.ApprovedBy,
		types.FieldReviewer: row.ReviewedBy,
	}
	if cadence := e.config.Cadence(doc.Type); cadence != NeverReview {
		fields[types.FieldReviewDueDate] = now.AddDate(0, 0, cadence)
	}
	if err := e.store.UpdateDocument(ctx, doc.ID, fields); err != nil {
		return nil, err
	}
	return e.store.GetDocument(ctx, doc.ID)
}

// CheckReviewDue lists documents whose review is overdue or due within
// the next seven days, soonest first. An empty owner means everyone;
// overdueOnly drops the upcoming ones.
func (e *Engine) CheckReviewDue(ctx context.Context, owner string, overdueOnly bool, now time.Time) ([]*types.Document, error) {
	return e.store.DocumentsDueForReview(ctx, owner, dueSoonHorizon, overdueOnly, now)
}

// MarkReviewed appends a review record and advances the document's
// review due date by its type cadence. A cadence of NeverReview clears
// the due date.
func (e *Engine) MarkReviewed(ctx context.Context, documentID int64, reviewer, notes string, now time.Time) (*types.Review, error) {
	doc, err := e.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	review := &types.Review{
		DocumentID: doc.ID,
		Reviewer:   reviewer,
		ReviewedAt: now,
		Notes:      notes,
	}
	var nextDue interface{}
	if cadence := e.config.Cadence(doc.Type); cadence != NeverReview {
		due := now.AddDate(0, 0, cadence)
		review.NextReviewDue = &due
		nextDue = due
	}

	if err := e.store.AddReview(ctx, review); err != nil {
		return nil, err
	}
	if err := e.store.UpdateDocument(ctx, doc.ID, map[string]interface{}{
		types.FieldReviewDueDate: nextDue,
	}); err != nil {
		return nil, err
	}
	e.reviews.Add(ctx, 1)
	return review, nil
}

// GetReviewHistory returns a document's reviews, newest first.
func (e *Engine) GetReviewHistory(ctx context.Context, documentID int64) ([]*types.Review, error) {
	return e.store.GetReviewHistory(ctx, documentID)
}

// CanArchive reports whether the role may archive documents.
func (e *Engine) CanArchive(role string) bool {
	return e.config.HasPermission("can_archive", role)
}

// CanDelete reports whether the role may hard-delete documents.
func (e *Engine) CanDelete(role string) bool {
	return e.config.HasPermission("can_delete", role)
}
