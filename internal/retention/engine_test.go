package retention

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gao-dev/doclife/internal/lifecycle"
	"github.com/gao-dev/doclife/internal/storage"
	"github.com/gao-dev/doclife/internal/storage/sqlite"
	"github.com/gao-dev/doclife/internal/types"
)

func newTestEngine(t *testing.T, policies map[types.DocType]Policy) (*Engine, storage.Storage, string) {
	t.Helper()
	root := t.TempDir()
	store, err := sqlite.New(context.Background(), filepath.Join(root, ".gao-dev", "documents.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	manager := lifecycle.New(store, lifecycle.Config{Root: root, ArchiveDir: ".archive"})
	return New(store, manager, policies, root), store, root
}

// registerAged registers a document in the given state with modified_at
// backdated by ageDays.
func registerAged(t *testing.T, store storage.Storage, doc *types.Document, state types.DocState, ageDays int) *types.Document {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.RegisterDocument(ctx, doc))

	fields := map[string]interface{}{}
	if state != types.StateDraft {
		fields[types.FieldState] = state
	}
	require.NoError(t, store.UpdateDocument(ctx, doc.ID, fields))

	// Backdate directly; UpdateDocument always stamps modified_at=now.
	backdated := time.Now().UTC().AddDate(0, 0, -ageDays)
	_, err := store.(*sqlite.Store).UnderlyingDB().Exec(
		`UPDATE documents SET modified_at = ? WHERE id = ?`, backdated, doc.ID)
	require.NoError(t, err)
	doc.State = state
	doc.ModifiedAt = backdated
	return doc
}

func TestParsePolicies(t *testing.T) {
	t.Run("defaults fill absent keys", func(t *testing.T) {
		policies, err := ParsePolicies([]byte(`
retention_policies:
  prd:
    obsolete_to_archive: 90
  story: {}
`))
		require.NoError(t, err)

		prd := policies[types.TypePRD]
		assert.Equal(t, 90, prd.ObsoleteToArchive)
		assert.Equal(t, Unlimited, prd.ArchiveRetention)
		assert.False(t, prd.DeleteAfterArchive)
		assert.Empty(t, prd.ComplianceTags)

		story := policies[types.TypeStory]
		assert.Equal(t, Unlimited, story.ObsoleteToArchive)
	})

	t.Run("explicit zero survives", func(t *testing.T) {
		policies, err := ParsePolicies([]byte("retention_policies:\n  prd:\n    archive_retention: 0\n"))
		require.NoError(t, err)
		assert.Equal(t, 0, policies[types.TypePRD].ArchiveRetention)
	})

	t.Run("missing top-level key is fatal", func(t *testing.T) {
		_, err := ParsePolicies([]byte("policies:\n  prd: {}\n"))
		assert.Error(t, err)
	})

	t.Run("unknown document type is fatal", func(t *testing.T) {
		_, err := ParsePolicies([]byte("retention_policies:\n  memo: {}\n"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml is fatal", func(t *testing.T) {
		_, err := ParsePolicies([]byte("retention_policies: [not a map"))
		assert.Error(t, err)
	})
}

func TestEvaluateArchive(t *testing.T) {
	policies := map[types.DocType]Policy{
		types.TypeStory: {ObsoleteToArchive: 90, ArchiveRetention: 365, DeleteAfterArchive: true},
		types.TypePRD:   {ObsoleteToArchive: Unlimited},
	}
	e, store, _ := newTestEngine(t, policies)
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("past threshold archives", func(t *testing.T) {
		doc := registerAged(t, store, &types.Document{Path: "s1.md", Type: types.TypeStory, Author: "j"},
			types.StateObsolete, 100)
		action := e.EvaluateArchive(ctx, doc, now)
		assert.Equal(t, ActionArchive, action.Action)
		assert.Contains(t, action.Reason, "100")
		assert.Contains(t, action.Reason, "90")
	})

	t.Run("under threshold counts down", func(t *testing.T) {
		doc := registerAged(t, store, &types.Document{Path: "s2.md", Type: types.TypeStory, Author: "j"},
			types.StateObsolete, 30)
		action := e.EvaluateArchive(ctx, doc, now)
		assert.Equal(t, ActionNone, action.Action)
		assert.Equal(t, 60, action.DaysUntilAction)
	})

	t.Run("unlimited threshold never archives", func(t *testing.T) {
		doc := registerAged(t, store, &types.Document{Path: "p1.md", Type: types.TypePRD, Author: "j"},
			types.StateObsolete, 1000)
		action := e.EvaluateArchive(ctx, doc, now)
		assert.Equal(t, ActionNone, action.Action)
	})

	t.Run("no policy means no action", func(t *testing.T) {
		doc := registerAged(t, store, &types.Document{Path: "r1.md", Type: types.TypeRunbook, Author: "j"},
			types.StateObsolete, 1000)
		action := e.EvaluateArchive(ctx, doc, now)
		assert.Equal(t, ActionNone, action.Action)
	})

	t.Run("prefers the obsolete transition timestamp", func(t *testing.T) {
		doc := registerAged(t, store, &types.Document{Path: "s3.md", Type: types.TypeStory, Author: "j"},
			types.StateObsolete, 10)
		// An audit row from 200 days ago outweighs the fresher modified_at.
		err := store.RunInTransaction(ctx, func(tx storage.Transaction) error {
			return tx.AppendTransition(ctx, &types.StateTransition{
				DocumentID: doc.ID,
				FromState:  types.StateActive,
				ToState:    types.StateObsolete,
				ChangedAt:  now.AddDate(0, 0, -200),
			})
		})
		require.NoError(t, err)

		action := e.EvaluateArchive(ctx, doc, now)
		assert.Equal(t, ActionArchive, action.Action)
		assert.Contains(t, action.Reason, "200")
	})
}

func TestEvaluateDelete(t *testing.T) {
	policies := map[types.DocType]Policy{
		types.TypeStory: {ObsoleteToArchive: 90, ArchiveRetention: 365, DeleteAfterArchive: true},
		types.TypePRD: {ObsoleteToArchive: 90, ArchiveRetention: 365,
			DeleteAfterArchive: false, ComplianceTags: []string{"product-decisions"}},
		types.TypeRunbook: {DeleteAfterArchive: true, ArchiveRetention: Unlimited},
	}
	e, store, _ := newTestEngine(t, policies)
	now := time.Now().UTC()

	t.Run("expired archives delete", func(t *testing.T) {
		doc := registerAged(t, store, &types.Document{Path: "s1.md", Type: types.TypeStory, Author: "j"},
			types.StateArchived, 400)
		action := e.EvaluateDelete(doc, now)
		assert.Equal(t, ActionDelete, action.Action)
		assert.Contains(t, action.Reason, "400")
	})

	t.Run("compliance hold beats everything", func(t *testing.T) {
		doc := registerAged(t, store, &types.Document{
			Path: "p1.md", Type: types.TypePRD, Author: "j",
			Metadata: types.Metadata{types.MetaTags: []string{"product-decisions", "q1"}},
		}, types.StateArchived, 1000)
		action := e.EvaluateDelete(doc, now)
		assert.Equal(t, ActionNone, action.Action)
		assert.Contains(t, action.Reason, "product-decisions")
	})

	t.Run("delete disabled", func(t *testing.T) {
		doc := registerAged(t, store, &types.Document{Path: "p2.md", Type: types.TypePRD, Author: "j"},
			types.StateArchived, 1000)
		action := e.EvaluateDelete(doc, now)
		assert.Equal(t, ActionNone, action.Action)
	})

	t.Run("unlimited retention", func(t *testing.T) {
		doc := registerAged(t, store, &types.Document{Path: "r1.md", Type: types.TypeRunbook, Author: "j"},
			types.StateArchived, 10000)
		action := e.EvaluateDelete(doc, now)
		assert.Equal(t, ActionNone, action.Action)
	})

	t.Run("young archive counts down", func(t *testing.T) {
		doc := registerAged(t, store, &types.Document{Path: "s2.md", Type: types.TypeStory, Author: "j"},
			types.StateArchived, 100)
		action := e.EvaluateDelete(doc, now)
		assert.Equal(t, ActionNone, action.Action)
		assert.Equal(t, 265, action.DaysUntilAction)
	})
}

func TestArchiveObsoleteDocumentsSweep(t *testing.T) {
	policies := map[types.DocType]Policy{
		types.TypeStory: {ObsoleteToArchive: 90, ArchiveRetention: 365, DeleteAfterArchive: true},
	}
	e, store, root := newTestEngine(t, policies)
	ctx := context.Background()

	aged := registerAged(t, store, &types.Document{Path: "docs/old-story.md", Type: types.TypeStory, Author: "j"},
		types.StateObsolete, 100)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "old-story.md"), []byte("story\n"), 0o644))

	t.Run("dry run plans without acting", func(t *testing.T) {
		actions, warnings, err := e.ArchiveObsoleteDocuments(ctx, true)
		require.NoError(t, err)
		assert.Empty(t, warnings)
		require.Len(t, actions, 1)
		assert.Equal(t, ActionArchive, actions[0].Action)
		assert.Contains(t, actions[0].Reason, "100")
		assert.Contains(t, actions[0].Reason, "90")

		got, err := store.GetDocument(ctx, aged.ID)
		require.NoError(t, err)
		assert.Equal(t, types.StateObsolete, got.State, "dry run leaves state untouched")
	})

	t.Run("execution archives and moves the file", func(t *testing.T) {
		actions, warnings, err := e.ArchiveObsoleteDocuments(ctx, false)
		require.NoError(t, err)
		assert.Empty(t, warnings)
		require.Len(t, actions, 1)

		got, err := store.GetDocument(ctx, aged.ID)
		require.NoError(t, err)
		assert.Equal(t, types.StateArchived, got.State)
		assert.Equal(t, filepath.Join(".archive", "docs", "old-story.md"), got.Path)
		assert.FileExists(t, filepath.Join(root, ".archive", "docs", "old-story.md"))
		assert.NoFileExists(t, filepath.Join(root, "docs", "old-story.md"))
	})
}

func TestCleanupExpiredDocumentsComplianceHold(t *testing.T) {
	policies := map[types.DocType]Policy{
		types.TypePRD: {DeleteAfterArchive: false, ComplianceTags: []string{"product-decisions"}},
	}
	e, store, _ := newTestEngine(t, policies)
	ctx := context.Background()

	doc := registerAged(t, store, &types.Document{
		Path: "docs/decision.md", Type: types.TypePRD, Author: "j",
		Metadata: types.Metadata{types.MetaTags: []string{"product-decisions"}},
	}, types.StateArchived, 1000)

	actions, warnings, err := e.CleanupExpiredDocuments(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	deletes := 0
	for _, a := range actions {
		if a.Action == ActionDelete {
			deletes++
		}
	}
	assert.Zero(t, deletes)
	require.Len(t, actions, 1)
	assert.Contains(t, actions[0].Reason, "product-decisions")

	// Still present.
	_, err = store.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
}

func TestCleanupExpiredDocumentsExecutes(t *testing.T) {
	policies := map[types.DocType]Policy{
		types.TypeStory: {DeleteAfterArchive: true, ArchiveRetention: 365},
	}
	e, store, root := newTestEngine(t, policies)
	ctx := context.Background()

	doc := registerAged(t, store, &types.Document{Path: "docs/expired.md", Type: types.TypeStory, Author: "j"},
		types.StateArchived, 400)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "expired.md"), []byte("x\n"), 0o644))

	actions, warnings, err := e.CleanupExpiredDocuments(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, actions, 1)
	assert.Equal(t, ActionDelete, actions[0].Action)

	_, err = store.GetDocument(ctx, doc.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.NoFileExists(t, filepath.Join(root, "docs", "expired.md"))
}

func TestSweepHonorsCancellation(t *testing.T) {
	policies := map[types.DocType]Policy{
		types.TypeStory: {ObsoleteToArchive: 90},
	}
	e, store, _ := newTestEngine(t, policies)

	registerAged(t, store, &types.Document{Path: "s.md", Type: types.TypeStory, Author: "j"},
		types.StateObsolete, 100)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := e.ArchiveObsoleteDocuments(ctx, true)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetentionReports(t *testing.T) {
	policies := map[types.DocType]Policy{
		types.TypeStory: {ObsoleteToArchive: 90, ArchiveRetention: 365,
			DeleteAfterArchive: true, ComplianceTags: []string{"audit"}},
	}
	e, store, _ := newTestEngine(t, policies)
	ctx := context.Background()
	now := time.Now().UTC()

	registerAged(t, store, &types.Document{Path: "s1.md", Type: types.TypeStory, Author: "j"},
		types.StateObsolete, 100)
	actions, _, err := e.ArchiveObsoleteDocuments(ctx, true)
	require.NoError(t, err)

	md := e.MarkdownReport(actions, now)
	assert.Contains(t, md, "# Retention Report")
	assert.Contains(t, md, "## story")
	assert.Contains(t, md, "obsolete_to_archive=90")
	assert.Contains(t, md, "compliance_tags=[audit]")
	assert.Contains(t, md, "s1.md")

	csvOut, err := e.CSVReport(actions)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(csvOut), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "path,type,state,action,reason,days_until_action", lines[0])
	assert.Contains(t, lines[1], "s1.md")
	assert.Contains(t, lines[1], "archive")

	empty := e.MarkdownReport(nil, now)
	assert.Contains(t, empty, "No documents evaluated")
}
