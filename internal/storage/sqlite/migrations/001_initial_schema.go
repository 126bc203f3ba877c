package migrations

import (
	"context"
	"database/sql"
)

// schemaDocuments creates the document catalog, the relationship graph,
// the FTS5 companion index with its synchronization triggers, and the
// query indexes. Every statement is idempotent so a partially-applied
// upgrade can be retried.
const schemaDocuments = `
-- Documents table
CREATE TABLE IF NOT EXISTS documents (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    doc_type TEXT NOT NULL CHECK(doc_type IN (
        'prd','architecture','epic','story','adr',
        'postmortem','runbook','qa_report','test_report')),
    state TEXT NOT NULL DEFAULT 'draft' CHECK(state IN (
        'draft','active','obsolete','archived')),
    created_at DATETIME NOT NULL,
    modified_at DATETIME NOT NULL,
    author TEXT NOT NULL CHECK(length(author) > 0),
    owner TEXT NOT NULL DEFAULT '',
    reviewer TEXT NOT NULL DEFAULT '',
    review_due_date DATETIME,
    feature TEXT NOT NULL DEFAULT '',
    epic INTEGER,
    story TEXT NOT NULL DEFAULT '',
    content_hash TEXT NOT NULL DEFAULT '',
    metadata TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_documents_type ON documents(doc_type);
CREATE INDEX IF NOT EXISTS idx_documents_state ON documents(state);
CREATE INDEX IF NOT EXISTS idx_documents_feature ON documents(feature);
CREATE INDEX IF NOT EXISTS idx_documents_epic ON documents(epic);
CREATE INDEX IF NOT EXISTS idx_documents_owner ON documents(owner);
CREATE INDEX IF NOT EXISTS idx_documents_type_state ON documents(doc_type, state);
CREATE INDEX IF NOT EXISTS idx_documents_feature_type ON documents(feature, doc_type);
CREATE INDEX IF NOT EXISTS idx_documents_modified_at ON documents(modified_at);
CREATE INDEX IF NOT EXISTS idx_documents_review_due ON documents(review_due_date);

-- Relationships table: directed edges, unique per (parent, child, type)
CREATE TABLE IF NOT EXISTS relationships (
    parent_id INTEGER NOT NULL,
    child_id INTEGER NOT NULL,
    rel_type TEXT NOT NULL CHECK(rel_type IN (
        'derived_from','implements','tests','replaces','references')),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (parent_id, child_id, rel_type),
    FOREIGN KEY (parent_id) REFERENCES documents(id) ON DELETE CASCADE,
    FOREIGN KEY (child_id) REFERENCES documents(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_relationships_child ON relationships(child_id);
CREATE INDEX IF NOT EXISTS idx_relationships_type ON relationships(rel_type);

-- Full-text index over (path, content, tags). Standalone FTS5 (stores
-- its own content) for reliable trigger behavior; content is refreshed
-- lazily by the search engine, the triggers keep path and tags in
-- lockstep with the documents table.
CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
    document_id UNINDEXED,
    path,
    content,
    tags
);

CREATE TRIGGER IF NOT EXISTS documents_fts_insert AFTER INSERT ON documents BEGIN
    INSERT INTO documents_fts(document_id, path, content, tags)
    VALUES (
        new.id,
        new.path,
        '',
        COALESCE((SELECT group_concat(value, ' ') FROM json_each(new.metadata, '$.tags')), '')
    );
END;

CREATE TRIGGER IF NOT EXISTS documents_fts_delete AFTER DELETE ON documents BEGIN
    DELETE FROM documents_fts WHERE document_id = old.id;
END;

CREATE TRIGGER IF NOT EXISTS documents_fts_update AFTER UPDATE OF path, metadata ON documents BEGIN
    UPDATE documents_fts SET
        path = new.path,
        tags = COALESCE((SELECT group_concat(value, ' ') FROM json_each(new.metadata, '$.tags')), '')
    WHERE document_id = old.id;
END;
`

func initialSchema() Migration {
	return Migration{
		Version: 1,
		Name:    "initial_schema",
		IsApplied: func(ctx context.Context, conn *sql.Conn) (bool, error) {
			return tableExists(ctx, conn, "documents")
		},
		Up: func(ctx context.Context, conn *sql.Conn) error {
			return execAll(ctx, conn, schemaDocuments)
		},
		Down: func(ctx context.Context, conn *sql.Conn) error {
			return execAll(ctx, conn, `
				DROP TRIGGER IF EXISTS documents_fts_update;
				DROP TRIGGER IF EXISTS documents_fts_delete;
				DROP TRIGGER IF EXISTS documents_fts_insert;
				DROP TABLE IF EXISTS documents_fts;
				DROP TABLE IF EXISTS relationships;
				DROP TABLE IF EXISTS documents;
			`)
		},
	}
}
