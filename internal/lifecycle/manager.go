// Package lifecycle orchestrates the registry, state machine, and
// filesystem: document registration with metadata merging, state
// transitions, lineage walks, and archival file moves.
package lifecycle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/gao-dev/doclife/internal/frontmatter"
	"github.com/gao-dev/doclife/internal/statemachine"
	"github.com/gao-dev/doclife/internal/storage"
	"github.com/gao-dev/doclife/internal/telemetry"
	"github.com/gao-dev/doclife/internal/types"
)

// hashChunkSize is the read granularity for content hashing.
const hashChunkSize = 4096

// Config locates the document tree and the archive root. ArchiveDir is
// relative to Root unless absolute.
type Config struct {
	Root       string
	ArchiveDir string
}

// Manager is the high-level API over the registry. Safe for concurrent
// use; every write runs in its own transaction.
type Manager struct {
	store   storage.Storage
	machine *statemachine.Machine
	root    string
	archive string // as configured, used for stored paths

	registered  metric.Int64Counter
	transitions metric.Int64Counter
	archived    metric.Int64Counter
}

// New creates a Manager. The state machine is owned by the manager;
// register transition hooks through Machine().
func New(store storage.Storage, cfg Config) *Manager {
	archiveDir := cfg.ArchiveDir
	if archiveDir == "" {
		archiveDir = ".archive"
	}
	m := &Manager{
		store:   store,
		machine: statemachine.New(store),
		root:    cfg.Root,
		archive: archiveDir,
	}

	meter := telemetry.Meter("")
	m.registered, _ = meter.Int64Counter("doclife.documents.registered")
	m.transitions, _ = meter.Int64Counter("doclife.documents.transitions")
	m.archived, _ = meter.Int64Counter("doclife.documents.archived")
	return m
}

// Machine exposes the state machine for hook registration.
func (m *Manager) Machine() *statemachine.Machine {
	return m.machine
}

// RegisterDocument registers the file at path. Metadata is assembled
// from three sources with fixed precedence: caller-supplied beats
// frontmatter beats path-derived hints. Relationships to documents
// listed in related_docs are inferred from the type pair.
//
// A path whose file does not exist yet is registered with no frontmatter
// and no content hash; the scanner fills both in later.
func (m *Manager) RegisterDocument(ctx context.Context, path string, docType types.DocType, author string, callerMeta types.Metadata) (*types.Document, error) {
	raw, err := os.ReadFile(m.resolve(path))
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var fm *frontmatter.Frontmatter
	if raw != nil {
		// Malformed frontmatter must not block registration.
		fm, _, _ = frontmatter.Extract(raw)
	}
	hints := extractPathHints(path)

	doc := &types.Document{
		Path:     path,
		Type:     docType,
		Author:   author,
		Feature:  hints.Feature,
		Epic:     hints.Epic,
		Story:    hints.Story,
		Metadata: mergeMetadata(fm, callerMeta),
	}
	if raw != nil {
		doc.ContentHash, err = HashFile(m.resolve(path))
		if err != nil {
			return nil, err
		}
	}
	if fm != nil {
		doc.Owner = fm.Owner
		doc.Reviewer = fm.Reviewer
		if fm.Feature != "" {
			doc.Feature = fm.Feature
		}
		if fm.Epic != nil {
			doc.Epic = fm.Epic
		}
		if fm.Story != "" {
			doc.Story = fm.Story
		}
		if doc.Type == "" {
			doc.Type = types.DocType(fm.DocType)
		}
	}

	if err := m.store.RegisterDocument(ctx, doc); err != nil {
		return nil, err
	}
	if err := m.inferRelationships(ctx, doc); err != nil {
		return nil, err
	}

	m.registered.Add(ctx, 1, metric.WithAttributes(attribute.String("doc_type", string(doc.Type))))
	return doc, nil
}

// mergeMetadata builds the metadata bag: frontmatter keys first, caller
// keys on top. Column-backed keys (owner, feature, ...) stay out of the
// bag; they live on the document row.
func mergeMetadata(fm *frontmatter.Frontmatter, callerMeta types.Metadata) types.Metadata {
	meta := types.Metadata{}
	if fm != nil {
		columnKeys := map[string]bool{
			"owner": true, "reviewer": true, "feature": true,
			"epic": true, "story": true,
		}
		for k, v := range fm.Raw {
			if !columnKeys[k] {
				meta[k] = v
			}
		}
	}
	for k, v := range callerMeta {
		meta[k] = v
	}
	return meta
}

// relationRules maps (parent type, child type) pairs onto the inferred
// relationship type for related_docs entries.
var relationRules = map[[2]types.DocType]types.RelationType{
	{types.TypePRD, types.TypeArchitecture}:    types.RelDerivedFrom,
	{types.TypeArchitecture, types.TypeEpic}:   types.RelDerivedFrom,
	{types.TypeArchitecture, types.TypeStory}:  types.RelDerivedFrom,
	{types.TypeEpic, types.TypeStory}:          types.RelImplements,
	{types.TypeStory, types.TypeRunbook}:       types.RelImplements,
	{types.TypeTestReport, types.TypeStory}:    types.RelTests,
	{types.TypeQAReport, types.TypeStory}:      types.RelTests,
}

// inferRelationships creates edges to existing documents named in the
// new document's related_docs. Unregistered paths are skipped silently;
// duplicate edges are not an error.
func (m *Manager) inferRelationships(ctx context.Context, doc *types.Document) error {
	for _, relPath := range doc.Metadata.RelatedDocs() {
		related, err := m.store.GetDocumentByPath(ctx, relPath)
		if err != nil {
			return err
		}
		if related == nil {
			continue
		}

		parentID, childID, relType := classifyRelation(doc, related)
		err = m.store.AddRelationship(ctx, parentID, childID, relType)
		if err != nil && !errors.Is(err, storage.ErrDuplicateRelationship) {
			return err
		}
	}
	return nil
}

// classifyRelation orients the edge between a newly registered document
// and one of its related documents. The type-pair table decides both
// direction and relationship type; unmatched pairs fall back to a
// references edge from the existing document to the new one.
func classifyRelation(doc, related *types.Document) (parentID, childID int64, relType types.RelationType) {
	if rt, ok := relationRules[[2]types.DocType{related.Type, doc.Type}]; ok {
		return related.ID, doc.ID, rt
	}
	if rt, ok := relationRules[[2]types.DocType{doc.Type, related.Type}]; ok {
		return doc.ID, related.ID, rt
	}
	return related.ID, doc.ID, types.RelReferences
}

// TransitionState moves a document through the lifecycle. Delegates to
// the state machine; see statemachine.Machine.Transition.
func (m *Manager) TransitionState(ctx context.Context, id int64, to types.DocState, reason, changedBy string) (*types.Document, error) {
	doc, err := m.machine.Transition(ctx, id, to, reason, changedBy)
	if err != nil {
		return nil, err
	}
	m.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("to_state", string(to))))
	return doc, nil
}

// GetCurrentDocument returns the first active document of the given
// type, narrowed by feature when non-empty. With the single-active
// invariant, a (type, feature) pair has at most one match.
func (m *Manager) GetCurrentDocument(ctx context.Context, docType types.DocType, feature string) (*types.Document, error) {
	state := types.StateActive
	filter := types.DocumentFilter{Type: &docType, State: &state, Limit: 1}
	if feature != "" {
		filter.Feature = &feature
	}
	docs, err := m.store.QueryDocuments(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no active %s document (feature %q): %w", docType, feature, storage.ErrNotFound)
	}
	return docs[0], nil
}

// GetActiveDocument is the workflow-context read API; it is
// GetCurrentDocument under the boundary's name.
func (m *Manager) GetActiveDocument(ctx context.Context, docType types.DocType, feature string) (*types.Document, error) {
	return m.GetCurrentDocument(ctx, docType, feature)
}

// resolve turns a stored document path into a filesystem path.
func (m *Manager) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(m.root, path)
}

// HashBytes returns the SHA-256 hex digest of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashFile streams the file through SHA-256 in 4 KiB chunks, keeping
// memory flat for large documents.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
