// Package types defines core data structures for the doclife document registry.
package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Document represents a tracked engineering document
type Document struct {
	ID            int64      `json:"id"`
	Path          string     `json:"path"`
	Type          DocType    `json:"type"`
	State         DocState   `json:"state"`
	CreatedAt     time.Time  `json:"created_at"`
	ModifiedAt    time.Time  `json:"modified_at"`
	Author        string     `json:"author"`
	Owner         string     `json:"owner,omitempty"`
	Reviewer      string     `json:"reviewer,omitempty"`
	ReviewDueDate *time.Time `json:"review_due_date,omitempty"`
	Feature       string     `json:"feature,omitempty"`
	Epic          *int       `json:"epic,omitempty"`
	Story         string     `json:"story,omitempty"`
	ContentHash   string     `json:"content_hash,omitempty"` // SHA-256 hex of file bytes
	Metadata      Metadata   `json:"metadata,omitempty"`
}

// Validate checks if the document has valid field values
func (d *Document) Validate() error {
	if strings.TrimSpace(d.Path) == "" {
		return fmt.Errorf("path is required")
	}
	if strings.TrimSpace(d.Author) == "" {
		return fmt.Errorf("author is required")
	}
	if !d.Type.IsValid() {
		return fmt.Errorf("invalid document type: %s", d.Type)
	}
	if !d.State.IsValid() {
		return fmt.Errorf("invalid document state: %s", d.State)
	}
	return nil
}

// SetDefaults applies default values for fields omitted at registration:
//   - State: defaults to StateDraft if empty
//   - Metadata: defaults to an empty bag so accessors never nil-check
func (d *Document) SetDefaults() {
	if d.State == "" {
		d.State = StateDraft
	}
	if d.Metadata == nil {
		d.Metadata = Metadata{}
	}
}

// DocType categorizes the kind of document
type DocType string

// Document type constants
const (
	TypePRD          DocType = "prd"
	TypeArchitecture DocType = "architecture"
	TypeEpic         DocType = "epic"
	TypeStory        DocType = "story"
	TypeADR          DocType = "adr"
	TypePostmortem   DocType = "postmortem"
	TypeRunbook      DocType = "runbook"
	TypeQAReport     DocType = "qa_report"
	TypeTestReport   DocType = "test_report"
)

// AllDocTypes lists every valid document type, in display order.
var AllDocTypes = []DocType{
	TypePRD, TypeArchitecture, TypeEpic, TypeStory, TypeADR,
	TypePostmortem, TypeRunbook, TypeQAReport, TypeTestReport,
}

// IsValid checks if the document type value is valid
func (t DocType) IsValid() bool {
	switch t {
	case TypePRD, TypeArchitecture, TypeEpic, TypeStory, TypeADR,
		TypePostmortem, TypeRunbook, TypeQAReport, TypeTestReport:
		return true
	}
	return false
}

// DocState represents the lifecycle state of a document
type DocState string

// Document state constants
const (
	StateDraft    DocState = "draft"
	StateActive   DocState = "active"
	StateObsolete DocState = "obsolete"
	StateArchived DocState = "archived" // terminal
)

// AllDocStates lists every valid lifecycle state, in lifecycle order.
var AllDocStates = []DocState{StateDraft, StateActive, StateObsolete, StateArchived}

// IsValid checks if the state value is valid
func (s DocState) IsValid() bool {
	switch s {
	case StateDraft, StateActive, StateObsolete, StateArchived:
		return true
	}
	return false
}

// IsTerminal returns true for states with no outgoing transitions.
func (s DocState) IsTerminal() bool {
	return s == StateArchived
}

// Metadata is the extensible key/value bag attached to a document.
// It is serialized as a JSON column; well-known keys have typed accessors.
type Metadata map[string]interface{}

// Well-known metadata keys
const (
	MetaTags            = "tags"
	MetaClassification  = "5s_classification"
	MetaPriority        = "priority"
	MetaRetentionPolicy = "retention_policy"
	MetaRelatedDocs     = "related_docs"
	MetaTitle           = "title"
	MetaStatus          = "status"
	MetaDocType         = "doc_type"
)

// 5S classification values (orthogonal to lifecycle state)
const (
	ClassPermanent = "permanent"
	ClassTransient = "transient"
	ClassTemp      = "temp"
)

// Tags returns the "tags" entry as a string slice. Both []string and
// []interface{} encodings are accepted (the latter is what json.Unmarshal
// produces for an untyped bag).
func (m Metadata) Tags() []string {
	return m.stringSlice(MetaTags)
}

// RelatedDocs returns the "related_docs" entry as a list of paths.
func (m Metadata) RelatedDocs() []string {
	return m.stringSlice(MetaRelatedDocs)
}

// Priority returns the "priority" entry ("P0".."P3") or "".
func (m Metadata) Priority() string {
	return m.stringValue(MetaPriority)
}

// Classification returns the 5S classification or "".
func (m Metadata) Classification() string {
	return m.stringValue(MetaClassification)
}

// RetentionPolicy returns the per-document policy override or "".
func (m Metadata) RetentionPolicy() string {
	return m.stringValue(MetaRetentionPolicy)
}

// HasTag reports whether the tag list contains tag (exact match).
func (m Metadata) HasTag(tag string) bool {
	for _, t := range m.Tags() {
		if t == tag {
			return true
		}
	}
	return false
}

func (m Metadata) stringValue(key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func (m Metadata) stringSlice(key string) []string {
	if m == nil {
		return nil
	}
	switch v := m[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// MarshalJSONString serializes the bag for storage. A nil bag serializes
// as "{}" so the metadata column is never NULL.
func (m Metadata) MarshalJSONString() (string, error) {
	if m == nil {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	return string(data), nil
}

// ParseMetadata deserializes a stored metadata column.
func ParseMetadata(s string) (Metadata, error) {
	if s == "" {
		return Metadata{}, nil
	}
	var m Metadata
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	if m == nil {
		m = Metadata{}
	}
	return m, nil
}

// Relationship represents a directed edge between two documents
type Relationship struct {
	ParentID  int64        `json:"parent_id"`
	ChildID   int64        `json:"child_id"`
	Type      RelationType `json:"type"`
	CreatedAt time.Time    `json:"created_at"`
}

// RelationType categorizes the relationship
type RelationType string

// Relationship type constants
const (
	RelDerivedFrom RelationType = "derived_from"
	RelImplements  RelationType = "implements"
	RelTests       RelationType = "tests"
	RelReplaces    RelationType = "replaces"
	RelReferences  RelationType = "references"
)

// IsValid checks if the relationship type value is valid
func (r RelationType) IsValid() bool {
	switch r {
	case RelDerivedFrom, RelImplements, RelTests, RelReplaces, RelReferences:
		return true
	}
	return false
}

// StateTransition is an append-only audit row for a lifecycle transition.
// ID is database-assigned and breaks timestamp ties: history ordering is
// (changed_at DESC, id DESC) so rapid successive transitions stay stable.
type StateTransition struct {
	ID         int64     `json:"id"`
	DocumentID int64     `json:"document_id"`
	FromState  DocState  `json:"from_state"`
	ToState    DocState  `json:"to_state"`
	Reason     string    `json:"reason,omitempty"`
	ChangedBy  string    `json:"changed_by"`
	ChangedAt  time.Time `json:"changed_at"`
}

// Review is an append-only review record
type Review struct {
	ID            int64      `json:"id"`
	DocumentID    int64      `json:"document_id"`
	Reviewer      string     `json:"reviewer"`
	ReviewedAt    time.Time  `json:"reviewed_at"`
	Notes         string     `json:"notes,omitempty"`
	NextReviewDue *time.Time `json:"next_review_due,omitempty"`
}

// DocumentFilter is used to filter document queries. All set fields are
// combined with AND; tags are OR across the list unless MatchAllTags.
type DocumentFilter struct {
	Type         *DocType
	State        *DocState
	Feature      *string
	Epic         *int
	Owner        *string
	Tags         []string
	MatchAllTags bool
	Limit        int
}

// Update field keys accepted by UpdateDocument. Anything else is a
// validation error (prevents arbitrary column injection).
const (
	FieldPath          = "path"
	FieldState         = "state"
	FieldAuthor        = "author"
	FieldOwner         = "owner"
	FieldReviewer      = "reviewer"
	FieldReviewDueDate = "review_due_date"
	FieldFeature       = "feature"
	FieldEpic          = "epic"
	FieldStory         = "story"
	FieldContentHash   = "content_hash"
	FieldMetadata      = "metadata"
	FieldModifiedAt    = "modified_at"
)

// Statistics provides aggregate registry metrics
type Statistics struct {
	TotalDocuments int              `json:"total_documents"`
	ByState        map[DocState]int `json:"by_state"`
	ByType         map[DocType]int  `json:"by_type"`
}
