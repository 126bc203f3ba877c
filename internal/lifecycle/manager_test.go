package lifecycle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gao-dev/doclife/internal/statemachine"
	"github.com/gao-dev/doclife/internal/storage"
	"github.com/gao-dev/doclife/internal/storage/sqlite"
	"github.com/gao-dev/doclife/internal/types"
)

func newTestManager(t *testing.T) (*Manager, storage.Storage, string) {
	t.Helper()
	root := t.TempDir()
	store, err := sqlite.New(context.Background(), filepath.Join(root, ".gao-dev", "documents.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return New(store, Config{Root: root, ArchiveDir: ".archive"}), store, root
}

func writeFile(t *testing.T, root, relPath, content string) {
	t.Helper()
	full := filepath.Join(root, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestRegisterDocumentPipeline(t *testing.T) {
	m, _, root := newTestManager(t)
	ctx := context.Background()

	content := `---
title: Checkout PRD
doc_type: prd
status: draft
owner: alice
reviewer: bob
tags: [payments]
---
Checkout requirements.
`
	writeFile(t, root, "docs/features/checkout/PRD.md", content)

	doc, err := m.RegisterDocument(ctx, "docs/features/checkout/PRD.md", types.TypePRD, "john", nil)
	require.NoError(t, err)

	assert.Equal(t, types.TypePRD, doc.Type)
	assert.Equal(t, "john", doc.Author)
	assert.Equal(t, types.StateDraft, doc.State)
	assert.Equal(t, "alice", doc.Owner)
	assert.Equal(t, "bob", doc.Reviewer)
	assert.Equal(t, "checkout", doc.Feature, "feature comes from the path hint")
	assert.Equal(t, []string{"payments"}, doc.Metadata.Tags())
	assert.Equal(t, "Checkout PRD", doc.Metadata["title"])

	sum := sha256.Sum256([]byte(content))
	assert.Equal(t, hex.EncodeToString(sum[:]), doc.ContentHash)
}

func TestRegisterDocumentMetadataPrecedence(t *testing.T) {
	m, _, root := newTestManager(t)
	ctx := context.Background()

	// Path says feature "checkout"; frontmatter overrides it and sets a
	// priority; the caller overrides the priority.
	writeFile(t, root, "docs/features/checkout/epic-7/story_7.2.md", `---
feature: payments
priority: P2
---
Story body.
`)

	doc, err := m.RegisterDocument(ctx, "docs/features/checkout/epic-7/story_7.2.md",
		types.TypeStory, "john", types.Metadata{types.MetaPriority: "P0"})
	require.NoError(t, err)

	assert.Equal(t, "payments", doc.Feature, "frontmatter beats path hint")
	require.NotNil(t, doc.Epic)
	assert.Equal(t, 7, *doc.Epic)
	assert.Equal(t, "7.2", doc.Story)
	assert.Equal(t, "P0", doc.Metadata.Priority(), "caller beats frontmatter")
}

func TestRegisterDocumentWithoutFile(t *testing.T) {
	m, _, _ := newTestManager(t)

	doc, err := m.RegisterDocument(context.Background(), "docs/planned.md", types.TypePRD, "john", nil)
	require.NoError(t, err)
	assert.Empty(t, doc.ContentHash)
	assert.Empty(t, doc.Owner)
}

func TestRegisterDocumentTypeFromFrontmatter(t *testing.T) {
	m, _, root := newTestManager(t)

	writeFile(t, root, "docs/untyped.md", "---\ndoc_type: runbook\n---\nbody\n")
	doc, err := m.RegisterDocument(context.Background(), "docs/untyped.md", "", "john", nil)
	require.NoError(t, err)
	assert.Equal(t, types.TypeRunbook, doc.Type)
}

func TestExtractPathHints(t *testing.T) {
	tests := []struct {
		path    string
		feature string
		epic    *int
		story   string
	}{
		{"docs/features/auth/PRD.md", "auth", nil, ""},
		{"docs/FEATURES/Auth/PRD.md", "Auth", nil, ""},
		{"docs/features/auth/epic-12/story_12.3.md", "auth", intPtr(12), "12.3"},
		{"docs/epic_4/STORY-4_1.md", "", intPtr(4), "4.1"},
		{"work/Epic-9/Story-9.2.md", "", intPtr(9), "9.2"},
		{"docs/prd/checkout.md", "", nil, ""},
		{"features/search/notes.md", "search", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			hints := extractPathHints(tt.path)
			assert.Equal(t, tt.feature, hints.Feature)
			assert.Equal(t, tt.epic, hints.Epic)
			assert.Equal(t, tt.story, hints.Story)
		})
	}
}

func intPtr(n int) *int { return &n }

func TestInferredRelationships(t *testing.T) {
	m, store, root := newTestManager(t)
	ctx := context.Background()

	writeFile(t, root, "docs/PRD.md", "PRD body.\n")
	prd, err := m.RegisterDocument(ctx, "docs/PRD.md", types.TypePRD, "john", nil)
	require.NoError(t, err)

	writeFile(t, root, "docs/Arch.md", `---
related_docs: ["docs/PRD.md"]
---
Architecture body.
`)
	arch, err := m.RegisterDocument(ctx, "docs/Arch.md", types.TypeArchitecture, "jane", nil)
	require.NoError(t, err)

	// PRD -> Arch, derived_from: the existing PRD is the parent even
	// though the architecture document was registered second.
	parents, err := store.GetParentDocuments(ctx, arch.ID, nil)
	require.NoError(t, err)
	require.Len(t, parents, 1)
	assert.Equal(t, prd.ID, parents[0].ID)

	rels, err := store.GetRelationships(ctx, arch.ID)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, types.RelDerivedFrom, rels[0].Type)
	assert.Equal(t, prd.ID, rels[0].ParentID)
}

func TestInferredRelationshipRules(t *testing.T) {
	m, store, root := newTestManager(t)
	ctx := context.Background()

	writeFile(t, root, "docs/story.md", "Story.\n")
	story, err := m.RegisterDocument(ctx, "docs/story.md", types.TypeStory, "j", nil)
	require.NoError(t, err)

	tests := []struct {
		path     string
		docType  types.DocType
		relType  types.RelationType
		asParent bool // new document ends up as the parent
	}{
		{"docs/test-report.md", types.TypeTestReport, types.RelTests, true},
		{"docs/qa-report.md", types.TypeQAReport, types.RelTests, true},
		{"docs/runbook.md", types.TypeRunbook, types.RelImplements, false},
		{"docs/other-prd.md", types.TypePRD, types.RelReferences, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.docType), func(t *testing.T) {
			writeFile(t, root, tt.path, "---\nrelated_docs: [\"docs/story.md\"]\n---\nbody\n")
			doc, err := m.RegisterDocument(ctx, tt.path, tt.docType, "j", nil)
			require.NoError(t, err)

			rels, err := store.GetRelationships(ctx, doc.ID)
			require.NoError(t, err)
			require.Len(t, rels, 1)
			assert.Equal(t, tt.relType, rels[0].Type)
			if tt.asParent {
				assert.Equal(t, doc.ID, rels[0].ParentID)
				assert.Equal(t, story.ID, rels[0].ChildID)
			} else {
				assert.Equal(t, story.ID, rels[0].ParentID)
				assert.Equal(t, doc.ID, rels[0].ChildID)
			}
		})
	}

	t.Run("unregistered related paths are skipped", func(t *testing.T) {
		writeFile(t, root, "docs/dangling.md", "---\nrelated_docs: [\"docs/nowhere.md\"]\n---\nbody\n")
		doc, err := m.RegisterDocument(ctx, "docs/dangling.md", types.TypePRD, "j", nil)
		require.NoError(t, err)

		rels, err := store.GetRelationships(ctx, doc.ID)
		require.NoError(t, err)
		assert.Empty(t, rels)
	})
}

func TestGetCurrentDocument(t *testing.T) {
	m, _, root := newTestManager(t)
	ctx := context.Background()

	writeFile(t, root, "docs/features/auth/PRD.md", "Auth PRD.\n")
	doc, err := m.RegisterDocument(ctx, "docs/features/auth/PRD.md", types.TypePRD, "john", nil)
	require.NoError(t, err)

	_, err = m.GetCurrentDocument(ctx, types.TypePRD, "auth")
	assert.ErrorIs(t, err, storage.ErrNotFound, "drafts are not current")

	_, err = m.TransitionState(ctx, doc.ID, types.StateActive, "", "john")
	require.NoError(t, err)

	current, err := m.GetCurrentDocument(ctx, types.TypePRD, "auth")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, current.ID)

	active, err := m.GetActiveDocument(ctx, types.TypePRD, "")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, active.ID)
}

func TestSingleActivePerFeature(t *testing.T) {
	m, _, root := newTestManager(t)
	ctx := context.Background()

	writeFile(t, root, "docs/features/auth/v1.md", "v1\n")
	writeFile(t, root, "docs/features/auth/v2.md", "v2\n")

	first, err := m.RegisterDocument(ctx, "docs/features/auth/v1.md", types.TypePRD, "john", nil)
	require.NoError(t, err)
	second, err := m.RegisterDocument(ctx, "docs/features/auth/v2.md", types.TypePRD, "jane", nil)
	require.NoError(t, err)

	_, err = m.TransitionState(ctx, first.ID, types.StateActive, "", "john")
	require.NoError(t, err)
	_, err = m.TransitionState(ctx, second.ID, types.StateActive, "", "jane")
	require.NoError(t, err)

	current, err := m.GetCurrentDocument(ctx, types.TypePRD, "auth")
	require.NoError(t, err)
	assert.Equal(t, second.ID, current.ID)
}

func TestGetDocumentLineage(t *testing.T) {
	m, store, root := newTestManager(t)
	ctx := context.Background()

	// prd -> arch -> epic -> story
	docs := make(map[string]*types.Document)
	for _, tc := range []struct {
		path    string
		docType types.DocType
	}{
		{"docs/prd.md", types.TypePRD},
		{"docs/arch.md", types.TypeArchitecture},
		{"docs/epic.md", types.TypeEpic},
		{"docs/story.md", types.TypeStory},
	} {
		writeFile(t, root, tc.path, "body\n")
		d, err := m.RegisterDocument(ctx, tc.path, tc.docType, "j", nil)
		require.NoError(t, err)
		docs[tc.path] = d
	}
	require.NoError(t, store.AddRelationship(ctx, docs["docs/prd.md"].ID, docs["docs/arch.md"].ID, types.RelDerivedFrom))
	require.NoError(t, store.AddRelationship(ctx, docs["docs/arch.md"].ID, docs["docs/epic.md"].ID, types.RelDerivedFrom))
	require.NoError(t, store.AddRelationship(ctx, docs["docs/epic.md"].ID, docs["docs/story.md"].ID, types.RelImplements))

	lineage, err := m.GetDocumentLineage(ctx, docs["docs/epic.md"].ID)
	require.NoError(t, err)

	require.Len(t, lineage.Ancestors, 2)
	assert.Equal(t, docs["docs/arch.md"].ID, lineage.Ancestors[0].ID, "nearest ancestor first")
	assert.Equal(t, docs["docs/prd.md"].ID, lineage.Ancestors[1].ID)

	require.Len(t, lineage.Descendants, 1)
	assert.Equal(t, docs["docs/story.md"].ID, lineage.Descendants[0].ID)

	_, err = m.GetDocumentLineage(ctx, 9999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetDocumentLineageCycleSafe(t *testing.T) {
	m, store, root := newTestManager(t)
	ctx := context.Background()

	writeFile(t, root, "a.md", "a\n")
	writeFile(t, root, "b.md", "b\n")
	a, err := m.RegisterDocument(ctx, "a.md", types.TypePRD, "j", nil)
	require.NoError(t, err)
	b, err := m.RegisterDocument(ctx, "b.md", types.TypeArchitecture, "j", nil)
	require.NoError(t, err)

	require.NoError(t, store.AddRelationship(ctx, a.ID, b.ID, types.RelReferences))
	require.NoError(t, store.AddRelationship(ctx, b.ID, a.ID, types.RelReferences))

	lineage, err := m.GetDocumentLineage(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, lineage.Ancestors, 1)
	assert.Len(t, lineage.Descendants, 1)
}

func TestArchiveDocument(t *testing.T) {
	m, store, root := newTestManager(t)
	ctx := context.Background()

	writeFile(t, root, "docs/old-prd.md", "Old PRD.\n")
	doc, err := m.RegisterDocument(ctx, "docs/old-prd.md", types.TypePRD, "john", nil)
	require.NoError(t, err)

	archived, err := m.ArchiveDocument(ctx, doc.ID, "superseded", "john")
	require.NoError(t, err)

	wantPath := filepath.Join(".archive", "docs", "old-prd.md")
	assert.Equal(t, wantPath, archived.Path)
	assert.Equal(t, types.StateArchived, archived.State)

	// The file moved.
	assert.NoFileExists(t, filepath.Join(root, "docs", "old-prd.md"))
	assert.FileExists(t, filepath.Join(root, wantPath))

	// Registry row reflects the move and the transition is audited.
	got, err := store.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, wantPath, got.Path)
	assert.Equal(t, types.StateArchived, got.State)

	history, err := store.GetTransitionHistory(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "superseded", history[0].Reason)

	t.Run("already archived", func(t *testing.T) {
		_, err := m.ArchiveDocument(ctx, doc.ID, "again", "john")
		assert.ErrorIs(t, err, storage.ErrValidation)
	})
}

func TestArchiveDocumentMissingFile(t *testing.T) {
	m, store, _ := newTestManager(t)
	ctx := context.Background()

	doc, err := m.RegisterDocument(ctx, "docs/ghost.md", types.TypePRD, "john", nil)
	require.NoError(t, err)

	// No file on disk: the registry update still happens.
	archived, err := m.ArchiveDocument(ctx, doc.ID, "", "john")
	require.NoError(t, err)
	assert.Equal(t, types.StateArchived, archived.State)

	got, err := store.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(".archive", "docs", "ghost.md"), got.Path)
}

func TestArchiveDocumentAbsolutePathUsesBasename(t *testing.T) {
	m, _, root := newTestManager(t)
	ctx := context.Background()

	outside := filepath.Join(t.TempDir(), "external.md")
	require.NoError(t, os.WriteFile(outside, []byte("external\n"), 0o644))

	doc, err := m.RegisterDocument(ctx, outside, types.TypePRD, "john", nil)
	require.NoError(t, err)

	archived, err := m.ArchiveDocument(ctx, doc.ID, "", "john")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(".archive", "external.md"), archived.Path)
	assert.FileExists(t, filepath.Join(root, ".archive", "external.md"))
	assert.NoFileExists(t, outside)
}

func TestManagerHooksRun(t *testing.T) {
	m, _, root := newTestManager(t)
	ctx := context.Background()

	writeFile(t, root, "docs/a.md", "a\n")
	doc, err := m.RegisterDocument(ctx, "docs/a.md", types.TypePRD, "j", nil)
	require.NoError(t, err)

	var called bool
	m.Machine().RegisterHook(hookFunc(func() { called = true }))

	_, err = m.TransitionState(ctx, doc.ID, types.StateActive, "", "j")
	require.NoError(t, err)
	assert.True(t, called)
}

type hookFunc func()

func (f hookFunc) OnBefore(context.Context, *types.Document, types.DocState) error { return nil }
func (f hookFunc) OnAfter(context.Context, *types.Document, types.DocState, types.DocState) {
	f()
}

var _ statemachine.Hook = hookFunc(nil)
