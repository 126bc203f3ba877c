// Package search provides the query surface over the full-text index:
// phrase-sanitised ranked search, tag search, related-document discovery,
// and index maintenance. File content is indexed lazily through
// ReindexContent so registration never reads a file twice.
package search

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/gao-dev/doclife/internal/frontmatter"
	"github.com/gao-dev/doclife/internal/storage"
	"github.com/gao-dev/doclife/internal/types"
)

// Related-document extraction bounds.
const (
	maxExtractedTerms = 20
	maxQueryTerms     = 10
	minTermLength     = 4
)

// Engine executes searches against a store and reads document content
// from the filesystem rooted at root.
type Engine struct {
	store storage.Storage
	root  string
}

// New creates an Engine. Relative document paths resolve against root.
func New(store storage.Storage, root string) *Engine {
	return &Engine{store: store, root: root}
}

// Sanitize quotes user input as an FTS phrase. Raw input never reaches
// the index query language: operators like NEAR, *, and - lose their
// meaning inside a phrase, and inner quotes are doubled.
func Sanitize(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return ""
	}
	return `"` + strings.ReplaceAll(query, `"`, `""`) + `"`
}

// Search runs a ranked full-text query. Results are sorted by descending
// relevance. An empty query returns no results.
func (e *Engine) Search(ctx context.Context, query string, filter types.DocumentFilter) ([]*storage.SearchResult, error) {
	match := Sanitize(query)
	if match == "" {
		return nil, nil
	}
	return e.store.SearchDocuments(ctx, match, filter)
}

// SearchByTags returns documents carrying any of the tags, or all of
// them when matchAll is set.
func (e *Engine) SearchByTags(ctx context.Context, tags []string, matchAll bool, limit int) ([]*types.Document, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	return e.store.QueryDocuments(ctx, types.DocumentFilter{
		Tags:         tags,
		MatchAllTags: matchAll,
		Limit:        limit,
	})
}

// GetRelatedDocuments finds documents similar to the given one by
// extracting the highest-frequency terms from its content and searching
// for them. The source document is excluded from the results.
func (e *Engine) GetRelatedDocuments(ctx context.Context, id int64, limit int) ([]*storage.SearchResult, error) {
	doc, err := e.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	content, err := e.readBody(doc.Path)
	if err != nil {
		return nil, fmt.Errorf("read content of document %d: %w", id, err)
	}

	terms := ExtractTerms(content, maxExtractedTerms)
	if len(terms) > maxQueryTerms {
		terms = terms[:maxQueryTerms]
	}
	if len(terms) == 0 {
		return nil, nil
	}

	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = Sanitize(t)
	}
	match := strings.Join(quoted, " OR ")

	// Fetch one extra so the source document can be dropped.
	fetch := 0
	if limit > 0 {
		fetch = limit + 1
	}
	results, err := e.store.SearchDocuments(ctx, match, types.DocumentFilter{Limit: fetch})
	if err != nil {
		return nil, err
	}

	related := results[:0]
	for _, r := range results {
		if r.Document.ID == id {
			continue
		}
		related = append(related, r)
	}
	if limit > 0 && len(related) > limit {
		related = related[:limit]
	}
	return related, nil
}

// ReindexContent refreshes the indexed content of one document from its
// file. Frontmatter is stripped; only the body is searchable.
func (e *Engine) ReindexContent(ctx context.Context, id int64) error {
	doc, err := e.store.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	content, err := e.readBody(doc.Path)
	if err != nil {
		return fmt.Errorf("read content of document %d: %w", id, err)
	}
	return e.store.SetDocumentContent(ctx, id, content)
}

// RebuildIndex rebuilds the index structure, then re-reads and re-pushes
// every document's content. File reads fan out across CPUs; index writes
// serialize on the store. Missing files are skipped (the path may have
// moved since registration); other errors abort the rebuild.
func (e *Engine) RebuildIndex(ctx context.Context) error {
	if err := e.store.RebuildIndex(ctx); err != nil {
		return err
	}

	docs, err := e.store.QueryDocuments(ctx, types.DocumentFilter{})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for _, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			content, err := e.readBody(doc.Path)
			if os.IsNotExist(err) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("read content of document %d: %w", doc.ID, err)
			}
			return e.store.SetDocumentContent(gctx, doc.ID, content)
		})
	}
	return g.Wait()
}

// OptimizeIndex merges index segments.
func (e *Engine) OptimizeIndex(ctx context.Context) error {
	return e.store.OptimizeIndex(ctx)
}

// readBody reads a document file and strips its frontmatter.
func (e *Engine) readBody(path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(e.root, path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	_, body, err := frontmatter.Extract(raw)
	if err != nil {
		// Malformed frontmatter still has searchable content.
		return string(raw), nil
	}
	return string(body), nil
}

// stopwords excluded from term extraction.
var stopwords = map[string]struct{}{
	"about": {}, "after": {}, "also": {}, "been": {}, "being": {},
	"between": {}, "both": {}, "document": {}, "does": {}, "each": {},
	"from": {}, "have": {}, "into": {}, "more": {}, "most": {},
	"other": {}, "over": {}, "same": {}, "should": {},
	"some": {}, "such": {}, "than": {}, "that": {}, "their": {},
	"them": {}, "then": {}, "there": {}, "these": {}, "they": {},
	"this": {}, "through": {}, "under": {}, "very": {}, "were": {},
	"what": {}, "when": {}, "where": {}, "which": {}, "while": {},
	"will": {}, "with": {}, "would": {}, "your": {},
}

// ExtractTerms returns up to max high-frequency terms from text:
// lowercase alphanumeric words longer than three characters, stopwords
// excluded, lightly stemmed (trailing plural "s" dropped), ordered by
// frequency then alphabetically.
func ExtractTerms(text string, max int) []string {
	counts := make(map[string]int)
	for _, word := range splitWords(strings.ToLower(text)) {
		word = stem(word)
		if len(word) < minTermLength {
			continue
		}
		if _, ok := stopwords[word]; ok {
			continue
		}
		counts[word]++
	}

	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > max {
		terms = terms[:max]
	}
	return terms
}

func splitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// stem drops a trailing plural "s" so "documents" and "document" count
// as one term. Words ending in "ss" are left alone.
func stem(word string) string {
	if len(word) > 4 && strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss") {
		return word[:len(word)-1]
	}
	return word
}
