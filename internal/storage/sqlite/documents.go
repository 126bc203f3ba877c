package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/gao-dev/doclife/internal/storage"
	"github.com/gao-dev/doclife/internal/types"
)

// querier is satisfied by *sql.DB and *sql.Conn so document scanning and
// query building are shared between pooled and transaction-scoped calls.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const docColumns = `id, path, doc_type, state, created_at, modified_at,
	author, owner, reviewer, review_due_date, feature, epic, story,
	content_hash, metadata`

// docColumnsQualified is docColumns with every column prefixed for
// queries that join tables sharing column names (relationships carries
// created_at, documents_fts carries path).
const docColumnsQualified = `documents.id, documents.path,
	documents.doc_type, documents.state, documents.created_at,
	documents.modified_at, documents.author, documents.owner,
	documents.reviewer, documents.review_due_date, documents.feature,
	documents.epic, documents.story, documents.content_hash,
	documents.metadata`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner) (*types.Document, error) {
	var doc types.Document
	var reviewDue sql.NullTime
	var epic sql.NullInt64
	var metadata string

	err := row.Scan(
		&doc.ID, &doc.Path, &doc.Type, &doc.State, &doc.CreatedAt, &doc.ModifiedAt,
		&doc.Author, &doc.Owner, &doc.Reviewer, &reviewDue, &doc.Feature, &epic,
		&doc.Story, &doc.ContentHash, &metadata,
	)
	if err != nil {
		return nil, err
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
		return nil, fmt.Errorf("document %d: %w", doc.ID, err)
	}
	return &doc, nil
}

func collectDocuments(rows *sql.Rows) ([]*types.Document, error) {
	defer func() { _ = rows.Close() }()
	var docs []*types.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// RegisterDocument inserts a new document. The id is assigned by the
// database; created_at and modified_at are set here. Duplicate paths
// surface as storage.ErrDuplicatePath, bad enums as storage.ErrValidation.
func (s *Store) RegisterDocument(ctx context.Context, doc *types.Document) error {
	return registerDocument(ctx, s.db, doc)
}

func registerDocument(ctx context.Context, q querier, doc *types.Document) error {
	doc.SetDefaults()
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrValidation, err)
	}

	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.ModifiedAt = now

	metadata, err := doc.Metadata.MarshalJSONString()
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrValidation, err)
	}

	var epic interface{}
	if doc.Epic != nil {
		epic = *doc.Epic
	}
	var reviewDue interface{}
	if doc.ReviewDueDate != nil {
		reviewDue = *doc.ReviewDueDate
	}

	res, err := q.ExecContext(ctx, `
		INSERT INTO documents (path, doc_type, state, created_at, modified_at,
			author, owner, reviewer, review_due_date, feature, epic, story,
			content_hash, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, doc.Path, doc.Type, doc.State, doc.CreatedAt, doc.ModifiedAt,
		doc.Author, doc.Owner, doc.Reviewer, reviewDue, doc.Feature, epic,
		doc.Story, doc.ContentHash, metadata)
	if err != nil {
		return wrapDBErrorf(err, "register document %s", doc.Path)
	}

	doc.ID, err = res.LastInsertId()
	if err != nil {
		return wrapDBError("read inserted document id", err)
	}
	return nil
}

// GetDocument returns the document with the given id, or
// storage.ErrNotFound.
func (s *Store) GetDocument(ctx context.Context, id int64) (*types.Document, error) {
	return getDocument(ctx, s.db, id)
}

func getDocument(ctx context.Context, q querier, id int64) (*types.Document, error) {
	doc, err := scanDocument(q.QueryRowContext(ctx,
		`SELECT `+docColumns+` FROM documents WHERE id = ?`, id))
	if err != nil {
		return nil, wrapDBErrorf(err, "get document %d", id)
	}
	return doc, nil
}

// GetDocumentByPath returns the document at path, or (nil, nil) when no
// document has that path. A miss is not an error.
func (s *Store) GetDocumentByPath(ctx context.Context, path string) (*types.Document, error) {
	doc, err := scanDocument(s.db.QueryRowContext(ctx,
		`SELECT `+docColumns+` FROM documents WHERE path = ?`, path))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapDBErrorf(err, "get document by path %s", path)
	}
	return doc, nil
}

// allowedUpdateFields maps update keys onto their columns. Anything else
// is rejected as a validation error.
var allowedUpdateFields = map[string]string{
	types.FieldPath:          "path",
	types.FieldState:         "state",
	types.FieldAuthor:        "author",
	types.FieldOwner:         "owner",
	types.FieldReviewer:      "reviewer",
	types.FieldReviewDueDate: "review_due_date",
	types.FieldFeature:       "feature",
	types.FieldEpic:          "epic",
	types.FieldStory:         "story",
	types.FieldContentHash:   "content_hash",
	types.FieldMetadata:      "metadata",
}

// UpdateDocument applies a partial update and refreshes modified_at.
func (s *Store) UpdateDocument(ctx context.Context, id int64, fields map[string]interface{}) error {
	return updateDocument(ctx, s.db, id, fields)
}

func updateDocument(ctx context.Context, q querier, id int64, fields map[string]interface{}) error {
	setClauses := []string{"modified_at = ?"}
	args := []interface{}{time.Now().UTC()}

	for key, value := range fields {
		column, ok := allowedUpdateFields[key]
		if !ok {
			return fmt.Errorf("%w: invalid field for update: %s", storage.ErrValidation, key)
		}
		converted, err := convertUpdateValue(key, value)
		if err != nil {
			return err
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = ?", column))
		args = append(args, converted)
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE documents SET %s WHERE id = ?", strings.Join(setClauses, ", ")) // #nosec G201 - column names come from allowedUpdateFields
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return wrapDBErrorf(err, "update document %d", id)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return wrapDBError("check update result", err)
	}
	if rows == 0 {
		return fmt.Errorf("update document %d: %w", id, storage.ErrNotFound)
	}
	return nil
}

// convertUpdateValue validates and normalizes an update value for its key.
func convertUpdateValue(key string, value interface{}) (interface{}, error) {
	switch key {
	case types.FieldState:
		state, ok := value.(types.DocState)
		if !ok {
			if s, isStr := value.(string); isStr {
				state = types.DocState(s)
			} else {
				return nil, fmt.Errorf("%w: state must be a DocState", storage.ErrValidation)
			}
		}
		if !state.IsValid() {
			return nil, fmt.Errorf("%w: invalid document state: %s", storage.ErrValidation, state)
		}
		return string(state), nil
	case types.FieldMetadata:
		switch m := value.(type) {
		case types.Metadata:
			return m.MarshalJSONString()
		case string:
			if _, err := types.ParseMetadata(m); err != nil {
				return nil, fmt.Errorf("%w: %v", storage.ErrValidation, err)
			}
			return m, nil
		}
		return nil, fmt.Errorf("%w: metadata must be a types.Metadata", storage.ErrValidation)
	case types.FieldEpic:
		switch e := value.(type) {
		case nil:
			return nil, nil
		case int:
			return e, nil
		case int64:
			return e, nil
		case *int:
			if e == nil {
				return nil, nil
			}
			return *e, nil
		}
		return nil, fmt.Errorf("%w: epic must be an int", storage.ErrValidation)
	case types.FieldReviewDueDate:
		switch t := value.(type) {
		case nil:
			return nil, nil
		case time.Time:
			return t, nil
		case *time.Time:
			if t == nil {
				return nil, nil
			}
			return *t, nil
		}
		return nil, fmt.Errorf("%w: review_due_date must be a time.Time", storage.ErrValidation)
	case types.FieldPath, types.FieldAuthor:
		s, ok := value.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return nil, fmt.Errorf("%w: %s must be a non-empty string", storage.ErrValidation, key)
		}
		return s, nil
	default:
		return value, nil
	}
}

// DeleteDocument removes a document. Soft deletion sets state=archived;
// hard deletion removes the row (relationships, transitions, reviews, and
// the FTS row cascade away with it).
func (s *Store) DeleteDocument(ctx context.Context, id int64, soft bool) error {
	if soft {
		return updateDocument(ctx, s.db, id, map[string]interface{}{
			types.FieldState: types.StateArchived,
		})
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return wrapDBErrorf(err, "delete document %d", id)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return wrapDBError("check delete result", err)
	}
	if rows == 0 {
		return fmt.Errorf("delete document %d: %w", id, storage.ErrNotFound)
	}
	return nil
}

// QueryDocuments returns documents matching the filter. Set fields are
// ANDed; tags are OR across the list unless MatchAllTags.
func (s *Store) QueryDocuments(ctx context.Context, filter types.DocumentFilter) ([]*types.Document, error) {
	where, args := buildDocumentFilter(filter, "documents")

	query := `SELECT ` + docColumns + ` FROM documents`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY modified_at DESC, id DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("query documents", err)
	}
	return collectDocuments(rows)
}

// buildDocumentFilter renders filter into WHERE clauses against the
// given table alias. Shared by QueryDocuments and SearchDocuments.
func buildDocumentFilter(filter types.DocumentFilter, alias string) ([]string, []interface{}) {
	var where []string
	var args []interface{}

	if filter.Type != nil {
		where = append(where, alias+".doc_type = ?")
		args = append(args, *filter.Type)
	}
	if filter.State != nil {
		where = append(where, alias+".state = ?")
		args = append(args, *filter.State)
	}
	if filter.Feature != nil {
		where = append(where, alias+".feature = ?")
		args = append(args, *filter.Feature)
	}
	if filter.Epic != nil {
		where = append(where, alias+".epic = ?")
		args = append(args, *filter.Epic)
	}
	if filter.Owner != nil {
		where = append(where, alias+".owner = ?")
		args = append(args, *filter.Owner)
	}
	if len(filter.Tags) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(filter.Tags)), ",")
		if filter.MatchAllTags {
			where = append(where, fmt.Sprintf(
				`(SELECT COUNT(DISTINCT value) FROM json_each(%s.metadata, '$.tags') WHERE value IN (%s)) = %d`,
				alias, placeholders, len(filter.Tags)))
		} else {
			where = append(where, fmt.Sprintf(
				`EXISTS (SELECT 1 FROM json_each(%s.metadata, '$.tags') WHERE value IN (%s))`,
				alias, placeholders))
		}
		for _, tag := range filter.Tags {
			args = append(args, tag)
		}
	}
	return where, args
}

// GetStatistics returns document counts by state and type in one pass.
func (s *Store) GetStatistics(ctx context.Context) (*types.Statistics, error) {
	stats := &types.Statistics{
		ByState: make(map[types.DocState]int),
		ByType:  make(map[types.DocType]int),
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT state, doc_type, COUNT(*) FROM documents GROUP BY state, doc_type`)
	if err != nil {
		return nil, wrapDBError("get statistics", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var state types.DocState
		var docType types.DocType
		var n int
		if err := rows.Scan(&state, &docType, &n); err != nil {
			return nil, wrapDBError("scan statistics", err)
		}
		stats.TotalDocuments += n
		stats.ByState[state] += n
		stats.ByType[docType] += n
	}
	return stats, rows.Err()
}
