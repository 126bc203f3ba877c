package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/gao-dev/doclife/internal/storage"
	"github.com/gao-dev/doclife/internal/types"
)

// SearchDocuments runs a ranked MATCH against the full-text index and
// joins back to the documents table. The match string must already be
// sanitized (the search engine quotes user input as a phrase); this
// layer never sees raw user syntax. Results are ordered by descending
// relevance. bm25 returns lower-is-better, so the score is negated.
func (s *Store) SearchDocuments(ctx context.Context, match string, filter types.DocumentFilter) ([]*storage.SearchResult, error) {
	if strings.TrimSpace(match) == "" {
		return nil, nil
	}

	where, args := buildDocumentFilter(filter, "documents")
	query := `
		SELECT ` + docColumnsQualified + `, bm25(documents_fts) AS rank
		FROM documents_fts
		JOIN documents ON documents.id = documents_fts.document_id
		WHERE documents_fts MATCH ?`
	matchArgs := append([]interface{}{match}, args...)
	if len(where) > 0 {
		query += " AND " + strings.Join(where, " AND ")
	}
	query += " ORDER BY rank ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		matchArgs = append(matchArgs, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, matchArgs...)
	if err != nil {
		return nil, wrapDBError("search documents", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*storage.SearchResult
	for rows.Next() {
		doc, rank, err := scanSearchRow(rows)
		if err != nil {
			return nil, wrapDBError("scan search result", err)
		}
		results = append(results, &storage.SearchResult{Document: doc, Score: -rank})
	}
	return results, rows.Err()
}

// scanSearchRow scans a document plus its bm25 rank.
func scanSearchRow(row rowScanner) (*types.Document, float64, error) {
	var doc types.Document
	var reviewDue sql.NullTime
	var epic sql.NullInt64
	var metadata string
	var rank float64

	err := row.Scan(
		&doc.ID, &doc.Path, &doc.Type, &doc.State, &doc.CreatedAt, &doc.ModifiedAt,
		&doc.Author, &doc.Owner, &doc.Reviewer, &reviewDue, &doc.Feature, &epic,
		&doc.Story, &doc.ContentHash, &metadata, &rank,
	)
	if err != nil {
		return nil, 0, err
	}
	if reviewDue.Valid {
		t := reviewDue.Time
		doc.ReviewDueDate = &t
	}
	if epic.Valid {
		e := int(epic.Int64)
		doc.Epic = &e
	}
	doc.Metadata, err = types.ParseMetadata(metadata)
	if err != nil {
		return nil, 0, err
	}
	return &doc, rank, nil
}

// SetDocumentContent refreshes the indexed file content for a document.
// Path and tags are trigger-maintained; content is pushed here lazily
// by ReindexContent so registration never reads the file twice.
func (s *Store) SetDocumentContent(ctx context.Context, id int64, content string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents_fts SET content = ? WHERE document_id = ?`, content, id)
	if err != nil {
		return wrapDBErrorf(err, "set indexed content for %d", id)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return wrapDBError("check content update", err)
	}
	if rows == 0 {
		return wrapDBErrorf(storage.ErrNotFound, "set indexed content for %d", id)
	}
	return nil
}

// RebuildIndex drops and repopulates the full-text index from the
// documents table. Indexed content is cleared; callers re-push it via
// SetDocumentContent afterwards. Serializes with other index-structural
// operations through SQLite's write lock.
func (s *Store) RebuildIndex(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM documents_fts;
		INSERT INTO documents_fts(document_id, path, content, tags)
		SELECT id, path, '',
		       COALESCE((SELECT group_concat(value, ' ') FROM json_each(documents.metadata, '$.tags')), '')
		FROM documents;
	`)
	if err != nil {
		return wrapDBError("rebuild search index", err)
	}
	return nil
}

// OptimizeIndex merges the FTS b-tree segments.
func (s *Store) OptimizeIndex(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO documents_fts(documents_fts) VALUES('optimize')`)
	if err != nil {
		return wrapDBError("optimize search index", err)
	}
	return nil
}
