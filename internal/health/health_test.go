package health

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gao-dev/doclife/internal/governance"
	"github.com/gao-dev/doclife/internal/storage"
	"github.com/gao-dev/doclife/internal/storage/sqlite"
	"github.com/gao-dev/doclife/internal/types"
)

const testGovernanceYAML = `
ownership: {}
review_cadence:
  runbook: 30
  adr: -1
permissions: {}
priority_mapping:
  default: 5
`

func newTestChecker(t *testing.T) (*Checker, storage.Storage, string) {
	t.Helper()
	root := t.TempDir()
	store, err := sqlite.New(context.Background(), filepath.Join(root, "documents.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg, err := governance.ParseConfig([]byte(testGovernanceYAML))
	require.NoError(t, err)
	return New(store, cfg, root), store, root
}

func register(t *testing.T, store storage.Storage, doc *types.Document, state types.DocState) *types.Document {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.RegisterDocument(ctx, doc))
	if state != types.StateDraft {
		require.NoError(t, store.UpdateDocument(ctx, doc.ID, map[string]interface{}{types.FieldState: state}))
		doc.State = state
	}
	return doc
}

func backdateModified(t *testing.T, store storage.Storage, id int64, days int) {
	t.Helper()
	when := time.Now().UTC().AddDate(0, 0, -days)
	_, err := store.(*sqlite.Store).UnderlyingDB().Exec(
		`UPDATE documents SET modified_at = ? WHERE id = ?`, when, id)
	require.NoError(t, err)
}

func writeDoc(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCheckEmptyRegistry(t *testing.T) {
	c, _, _ := newTestChecker(t)

	report, err := c.Check(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Zero(t, report.TotalDocuments)
	assert.Empty(t, report.ActionItems)
	assert.Contains(t, report.Markdown(), "None. The registry is healthy.")
}

func TestCheckKPIs(t *testing.T) {
	c, store, root := newTestChecker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	complete := "---\ntitle: Oncall\ndoc_type: runbook\nstatus: active\nowner: sre\n---\nsteps\n"
	writeDoc(t, root, "docs/Runbook_oncall_2026-01-10_v1.0.md", complete)
	writeDoc(t, root, "docs/notes.md", "---\ntitle: Notes\n---\nbody\n")

	// Stale active runbook, owned, compliant name, complete frontmatter.
	stale := register(t, store, &types.Document{
		Path: "docs/Runbook_oncall_2026-01-10_v1.0.md", Type: types.TypeRunbook, Author: "j", Owner: "sre",
	}, types.StateActive)
	backdateModified(t, store, stale.ID, 60)

	// Unowned active doc with a bad name and incomplete frontmatter.
	orphan := register(t, store, &types.Document{
		Path: "docs/notes.md", Type: types.TypeStory, Author: "j",
	}, types.StateActive)

	// Draft with no file. Drafts are never orphans.
	register(t, store, &types.Document{
		Path: "docs/draft.md", Type: types.TypePRD, Author: "j", Owner: "pm",
	}, types.StateDraft)

	// Active doc classified temp is exempt from the orphan check even
	// with no relationships.
	register(t, store, &types.Document{
		Path: "docs/scratch.md", Type: types.TypeStory, Author: "j", Owner: "pm",
		Metadata: types.Metadata{types.MetaClassification: types.ClassTemp},
	}, types.StateActive)

	// Linking the stale runbook leaves only the notes doc orphaned.
	require.NoError(t, store.AddRelationship(ctx, stale.ID, orphan.ID, types.RelReferences))

	// ADR cadence is -1, so this old active doc is not stale.
	adr := register(t, store, &types.Document{
		Path: "docs/ADR-001_choose-database_2026-02-01.md", Type: types.TypeADR, Author: "j", Owner: "arch",
	}, types.StateActive)
	backdateModified(t, store, adr.ID, 400)
	require.NoError(t, store.AddRelationship(ctx, adr.ID, orphan.ID, types.RelReferences))

	report, err := c.Check(ctx, now)
	require.NoError(t, err)

	t.Run("inventory", func(t *testing.T) {
		assert.Equal(t, 5, report.TotalDocuments)
		assert.Equal(t, 4, report.ByState[types.StateActive])
		assert.Equal(t, 1, report.ByState[types.StateDraft])
		assert.Equal(t, 2, report.ByType[types.TypeStory])
	})

	t.Run("stale actives honor cadence", func(t *testing.T) {
		require.Len(t, report.StaleActive, 1)
		assert.Equal(t, stale.Path, report.StaleActive[0].Path)
	})

	t.Run("orphans", func(t *testing.T) {
		require.Len(t, report.Orphans, 0, "notes doc gained relationships; temp-classified and draft are exempt")
	})

	t.Run("missing owners", func(t *testing.T) {
		require.Len(t, report.MissingOwners, 1)
		assert.Equal(t, orphan.Path, report.MissingOwners[0].Path)
	})

	t.Run("naming compliance", func(t *testing.T) {
		// Runbook and ADR names parse; notes.md, draft.md, scratch.md do not.
		assert.InDelta(t, 0.4, report.NamingRate, 0.001)
		assert.Len(t, report.BadNames, 3)
	})

	t.Run("frontmatter compliance over existing files", func(t *testing.T) {
		assert.InDelta(t, 0.5, report.FrontmatterRate, 0.001)
		require.Len(t, report.IncompleteFrontmatter, 1)
		assert.Equal(t, orphan.Path, report.IncompleteFrontmatter[0].Path)
	})

	t.Run("action items", func(t *testing.T) {
		kinds := map[string]ActionItem{}
		for _, item := range report.ActionItems {
			kinds[item.Type] = item
		}
		assert.Equal(t, SeverityHigh, kinds["missing_owners"].Severity)
		assert.Equal(t, 1, kinds["missing_owners"].Count)
		assert.Equal(t, SeverityMedium, kinds["stale_active"].Severity)
		assert.Equal(t, SeverityLow, kinds["noncompliant_names"].Severity)
		assert.Equal(t, 3, kinds["noncompliant_names"].Count)
		assert.Equal(t, SeverityLow, kinds["incomplete_frontmatter"].Severity)
		assert.Equal(t, 1, kinds["incomplete_frontmatter"].Count)
		assert.NotContains(t, kinds, "orphaned_documents")
		assert.NotContains(t, kinds, "overdue_reviews")
		for _, item := range report.ActionItems {
			assert.NotEmpty(t, item.ResolutionSteps)
		}
	})

	t.Run("markdown rendering", func(t *testing.T) {
		md := report.Markdown()
		assert.Contains(t, md, "# Documentation Health Report")
		assert.Contains(t, md, "Total documents: 5")
		assert.Contains(t, md, "- Naming: 40%")
		assert.Contains(t, md, "### missing_owners (1, high)")
	})
}

func TestCheckOverdueReviews(t *testing.T) {
	c, store, _ := newTestChecker(t)
	now := time.Now().UTC()
	past := now.AddDate(0, 0, -3)

	register(t, store, &types.Document{
		Path: "docs/a.md", Type: types.TypeRunbook, Author: "j", Owner: "sre", ReviewDueDate: &past,
	}, types.StateActive)
	register(t, store, &types.Document{
		Path: "docs/b.md", Type: types.TypeRunbook, Author: "j", Owner: "sre", ReviewDueDate: &past,
	}, types.StateArchived)

	report, err := c.Check(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, report.OverdueReviews, 1, "archived documents are skipped")
	assert.Equal(t, "docs/a.md", report.OverdueReviews[0].Path)

	var overdue *ActionItem
	for i := range report.ActionItems {
		if report.ActionItems[i].Type == "overdue_reviews" {
			overdue = &report.ActionItems[i]
		}
	}
	require.NotNil(t, overdue)
	assert.Equal(t, SeverityHigh, overdue.Severity)
}

func TestCheckCancellation(t *testing.T) {
	c, store, _ := newTestChecker(t)
	register(t, store, &types.Document{Path: "docs/a.md", Type: types.TypePRD, Author: "j"}, types.StateDraft)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Check(ctx, time.Now().UTC())
	assert.ErrorIs(t, err, context.Canceled)
}
