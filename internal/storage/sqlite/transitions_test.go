package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gao-dev/doclife/internal/storage"
	"github.com/gao-dev/doclife/internal/types"
)

func appendTestTransition(t *testing.T, store *Store, docID int64, from, to types.DocState, at time.Time) *types.StateTransition {
	t.Helper()
	tr := &types.StateTransition{
		DocumentID: docID,
		FromState:  from,
		ToState:    to,
		ChangedAt:  at,
	}
	err := store.RunInTransaction(context.Background(), func(tx storage.Transaction) error {
		return tx.AppendTransition(context.Background(), tr)
	})
	require.NoError(t, err)
	return tr
}

func TestTransitionHistoryOrdering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := testDocument("docs/a.md")
	require.NoError(t, store.RegisterDocument(ctx, doc))

	// Identical timestamps: the autoincrement id must break the tie so the
	// most recently written row sorts first.
	at := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	appendTestTransition(t, store, doc.ID, types.StateDraft, types.StateActive, at)
	appendTestTransition(t, store, doc.ID, types.StateActive, types.StateObsolete, at)
	appendTestTransition(t, store, doc.ID, types.StateObsolete, types.StateArchived, at)

	history, err := store.GetTransitionHistory(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, types.StateArchived, history[0].ToState)
	assert.Equal(t, types.StateObsolete, history[1].ToState)
	assert.Equal(t, types.StateActive, history[2].ToState)
}

func TestTransitionChangedByDefault(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := testDocument("docs/a.md")
	require.NoError(t, store.RegisterDocument(ctx, doc))

	tr := appendTestTransition(t, store, doc.ID, types.StateDraft, types.StateActive, time.Now().UTC())
	assert.Equal(t, "system", tr.ChangedBy)
	assert.Greater(t, tr.ID, int64(0))
}

func TestGetTransitionHistoryMissingDocument(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetTransitionHistory(context.Background(), 9999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLastTransitionTo(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := testDocument("docs/a.md")
	require.NoError(t, store.RegisterDocument(ctx, doc))

	first := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	second := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	appendTestTransition(t, store, doc.ID, types.StateDraft, types.StateActive, first)
	appendTestTransition(t, store, doc.ID, types.StateActive, types.StateObsolete, second)

	tr, err := store.LastTransitionTo(ctx, doc.ID, types.StateObsolete)
	require.NoError(t, err)
	require.NotNil(t, tr)
	assert.True(t, tr.ChangedAt.Equal(second))

	// Never entered archived: (nil, nil), not an error.
	tr, err = store.LastTransitionTo(ctx, doc.ID, types.StateArchived)
	require.NoError(t, err)
	assert.Nil(t, tr)
}

func TestAddReviewAndHistory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := testDocument("docs/runbooks/oncall.md")
	require.NoError(t, store.RegisterDocument(ctx, doc))

	nextDue := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	first := &types.Review{
		DocumentID:    doc.ID,
		Reviewer:      "alice",
		ReviewedAt:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Notes:         "still accurate",
		NextReviewDue: &nextDue,
	}
	require.NoError(t, store.AddReview(ctx, first))
	assert.Greater(t, first.ID, int64(0))

	second := &types.Review{DocumentID: doc.ID, Reviewer: "bob"}
	require.NoError(t, store.AddReview(ctx, second))
	assert.False(t, second.ReviewedAt.IsZero(), "ReviewedAt defaults to now")

	history, err := store.GetReviewHistory(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "bob", history[0].Reviewer)
	assert.Nil(t, history[0].NextReviewDue)
	assert.Equal(t, "alice", history[1].Reviewer)
	require.NotNil(t, history[1].NextReviewDue)
	assert.True(t, history[1].NextReviewDue.Equal(nextDue))

	err = store.AddReview(ctx, &types.Review{DocumentID: 9999, Reviewer: "x"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDocumentsDueForReview(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	overdue := now.AddDate(0, 0, -10)
	soon := now.AddDate(0, 0, 5)
	far := now.AddDate(0, 3, 0)

	docs := []*types.Document{
		{Path: "overdue.md", Type: types.TypeRunbook, Author: "j", Owner: "alice", ReviewDueDate: &overdue},
		{Path: "soon.md", Type: types.TypeRunbook, Author: "j", Owner: "bob", ReviewDueDate: &soon},
		{Path: "far.md", Type: types.TypeRunbook, Author: "j", Owner: "alice", ReviewDueDate: &far},
		{Path: "no-due.md", Type: types.TypeRunbook, Author: "j", Owner: "alice"},
		{Path: "archived.md", Type: types.TypeRunbook, Author: "j", Owner: "alice",
			State: types.StateArchived, ReviewDueDate: &overdue},
	}
	for _, d := range docs {
		require.NoError(t, store.RegisterDocument(ctx, d))
	}

	t.Run("overdue only", func(t *testing.T) {
		due, err := store.DocumentsDueForReview(ctx, "", 0, true, now)
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, "overdue.md", due[0].Path)
	})

	t.Run("within horizon", func(t *testing.T) {
		due, err := store.DocumentsDueForReview(ctx, "", 7*24*time.Hour, false, now)
		require.NoError(t, err)
		require.Len(t, due, 2)
		// Soonest due first.
		assert.Equal(t, "overdue.md", due[0].Path)
		assert.Equal(t, "soon.md", due[1].Path)
	})

	t.Run("owner filter", func(t *testing.T) {
		due, err := store.DocumentsDueForReview(ctx, "bob", 7*24*time.Hour, false, now)
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, "soon.md", due[0].Path)
	})
}
