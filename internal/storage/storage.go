// Package storage provides the registry contract shared by the engine
// components and the SQLite implementation.
//
// The concrete implementation lives in the sqlite sub-package. Consumers
// (state machine, lifecycle manager, retention, governance, health) depend
// on this interface rather than on the concrete type so that mocks and
// proxies can be substituted.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/gao-dev/doclife/internal/types"
)

// ErrNotFound is returned when a requested document, relationship, or
// review does not exist in the registry.
var ErrNotFound = errors.New("not found")

// ErrDuplicatePath is returned when registering a document whose path is
// already in the registry (paths are unique, invariant I1).
var ErrDuplicatePath = errors.New("duplicate path")

// ErrValidation is returned for unknown enum values, empty required
// fields, and bad update keys.
var ErrValidation = errors.New("validation failed")

// ErrDuplicateRelationship is returned when adding an edge that already
// exists for the same (parent, child, type) triple.
var ErrDuplicateRelationship = errors.New("duplicate relationship")

// SearchResult pairs a document with its full-text relevance score.
// Higher scores rank first.
type SearchResult struct {
	Document *types.Document `json:"document"`
	Score    float64         `json:"score"`
}

// Storage is the registry interface satisfied by *sqlite.Store.
type Storage interface {
	// Document CRUD
	RegisterDocument(ctx context.Context, doc *types.Document) error
	GetDocument(ctx context.Context, id int64) (*types.Document, error)
	GetDocumentByPath(ctx context.Context, path string) (*types.Document, error)
	UpdateDocument(ctx context.Context, id int64, fields map[string]interface{}) error
	DeleteDocument(ctx context.Context, id int64, soft bool) error
	QueryDocuments(ctx context.Context, filter types.DocumentFilter) ([]*types.Document, error)

	// Relationships
	AddRelationship(ctx context.Context, parentID, childID int64, relType types.RelationType) error
	GetRelationships(ctx context.Context, id int64) ([]*types.Relationship, error)
	GetParentDocuments(ctx context.Context, id int64, relType *types.RelationType) ([]*types.Document, error)
	GetChildDocuments(ctx context.Context, id int64, relType *types.RelationType) ([]*types.Document, error)

	// Transition audit trail
	GetTransitionHistory(ctx context.Context, documentID int64) ([]*types.StateTransition, error)
	LastTransitionTo(ctx context.Context, documentID int64, to types.DocState) (*types.StateTransition, error)

	// Reviews
	AddReview(ctx context.Context, review *types.Review) error
	GetReviewHistory(ctx context.Context, documentID int64) ([]*types.Review, error)
	DocumentsDueForReview(ctx context.Context, owner string, horizon time.Duration, overdueOnly bool, now time.Time) ([]*types.Document, error)

	// Full-text index
	SearchDocuments(ctx context.Context, match string, filter types.DocumentFilter) ([]*SearchResult, error)
	SetDocumentContent(ctx context.Context, id int64, content string) error
	RebuildIndex(ctx context.Context) error
	OptimizeIndex(ctx context.Context) error

	// Aggregates
	GetStatistics(ctx context.Context) (*types.Statistics, error)

	// Transactions
	RunInTransaction(ctx context.Context, fn func(tx Transaction) error) error

	// Lifecycle
	Close() error
}

// Transaction exposes the registry operations the state machine and
// lifecycle manager need to run atomically: the primary state update,
// the succession demotion, the audit row, and path rewrites on archive
// all commit or roll back together.
type Transaction interface {
	GetDocument(ctx context.Context, id int64) (*types.Document, error)
	UpdateDocument(ctx context.Context, id int64, fields map[string]interface{}) error
	UpdateDocumentState(ctx context.Context, id int64, to types.DocState, now time.Time) error
	AppendTransition(ctx context.Context, tr *types.StateTransition) error
	FindActivePeer(ctx context.Context, docType types.DocType, feature string, excludeID int64) (*types.Document, error)
}
