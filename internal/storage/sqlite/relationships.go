package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/gao-dev/doclife/internal/storage"
	"github.com/gao-dev/doclife/internal/types"
)

// AddRelationship adds a directed edge between two existing documents.
// The (parent, child, type) triple is unique; duplicates surface as
// storage.ErrDuplicateRelationship, missing endpoints as ErrNotFound.
func (s *Store) AddRelationship(ctx context.Context, parentID, childID int64, relType types.RelationType) error {
	if !relType.IsValid() {
		return fmt.Errorf("%w: invalid relationship type: %s", storage.ErrValidation, relType)
	}
	if parentID == childID {
		return fmt.Errorf("%w: document cannot relate to itself", storage.ErrValidation)
	}

	// Probe both endpoints so the error names the missing document
	// instead of a bare FK failure.
	for _, id := range []int64{parentID, childID} {
		var n int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM documents WHERE id = ?`, id).Scan(&n); err != nil {
			return wrapDBErrorf(err, "check document %d", id)
		}
		if n == 0 {
			return fmt.Errorf("add relationship: document %d: %w", id, storage.ErrNotFound)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO relationships (parent_id, child_id, rel_type, created_at)
		VALUES (?, ?, ?, ?)
	`, parentID, childID, relType, time.Now().UTC())
	if err != nil {
		return wrapDBErrorf(err, "add relationship %d->%d (%s)", parentID, childID, relType)
	}
	return nil
}

// GetRelationships returns all edges where the document is parent or child.
func (s *Store) GetRelationships(ctx context.Context, id int64) ([]*types.Relationship, error) {
	if err := s.requireDocument(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT parent_id, child_id, rel_type, created_at
		FROM relationships
		WHERE parent_id = ? OR child_id = ?
		ORDER BY created_at, parent_id, child_id
	`, id, id)
	if err != nil {
		return nil, wrapDBErrorf(err, "get relationships for %d", id)
	}
	defer func() { _ = rows.Close() }()

	var rels []*types.Relationship
	for rows.Next() {
		var rel types.Relationship
		if err := rows.Scan(&rel.ParentID, &rel.ChildID, &rel.Type, &rel.CreatedAt); err != nil {
			return nil, wrapDBError("scan relationship", err)
		}
		rels = append(rels, &rel)
	}
	return rels, rows.Err()
}

// GetParentDocuments returns documents that are parents of id, optionally
// restricted to one relationship type.
func (s *Store) GetParentDocuments(ctx context.Context, id int64, relType *types.RelationType) ([]*types.Document, error) {
	return s.joinedDocuments(ctx, id, relType, true)
}

// GetChildDocuments returns documents that are children of id, optionally
// restricted to one relationship type.
func (s *Store) GetChildDocuments(ctx context.Context, id int64, relType *types.RelationType) ([]*types.Document, error) {
	return s.joinedDocuments(ctx, id, relType, false)
}

func (s *Store) joinedDocuments(ctx context.Context, id int64, relType *types.RelationType, parents bool) ([]*types.Document, error) {
	if err := s.requireDocument(ctx, id); err != nil {
		return nil, err
	}

	joinCol, whereCol := "r.parent_id", "r.child_id"
	if !parents {
		joinCol, whereCol = "r.child_id", "r.parent_id"
	}

	query := `SELECT ` + docColumnsQualified + ` FROM documents
		JOIN relationships r ON documents.id = ` + joinCol + `
		WHERE ` + whereCol + ` = ?`
	args := []interface{}{id}
	if relType != nil {
		query += " AND r.rel_type = ?"
		args = append(args, *relType)
	}
	query += " ORDER BY r.created_at, documents.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBErrorf(err, "get related documents for %d", id)
	}
	return collectDocuments(rows)
}

func (s *Store) requireDocument(ctx context.Context, id int64) error {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE id = ?`, id).Scan(&n); err != nil {
		return wrapDBErrorf(err, "check document %d", id)
	}
	if n == 0 {
		return fmt.Errorf("document %d: %w", id, storage.ErrNotFound)
	}
	return nil
}
