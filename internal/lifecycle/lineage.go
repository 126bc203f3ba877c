package lifecycle

import (
	"context"

	"github.com/gao-dev/doclife/internal/types"
)

// Lineage holds a document's position in the relationship graph.
type Lineage struct {
	Ancestors   []*types.Document // nearest first, walking one parent per step
	Descendants []*types.Document // depth-first over the child graph
}

// GetDocumentLineage walks the relationship graph from the document.
// Ancestors follow the first parent at each step up to the root;
// descendants are collected depth-first. Both walks carry a visited set,
// so cycles terminate.
func (m *Manager) GetDocumentLineage(ctx context.Context, id int64) (*Lineage, error) {
	if _, err := m.store.GetDocument(ctx, id); err != nil {
		return nil, err
	}

	lineage := &Lineage{}

	visited := map[int64]bool{id: true}
	current := id
	for {
		parents, err := m.store.GetParentDocuments(ctx, current, nil)
		if err != nil {
			return nil, err
		}
		if len(parents) == 0 {
			break
		}
		first := parents[0]
		if visited[first.ID] {
			break
		}
		visited[first.ID] = true
		lineage.Ancestors = append(lineage.Ancestors, first)
		current = first.ID
	}

	visited = map[int64]bool{id: true}
	if err := m.collectDescendants(ctx, id, visited, lineage); err != nil {
		return nil, err
	}
	return lineage, nil
}

func (m *Manager) collectDescendants(ctx context.Context, id int64, visited map[int64]bool, lineage *Lineage) error {
	children, err := m.store.GetChildDocuments(ctx, id, nil)
	if err != nil {
		return err
	}
	for _, child := range children {
		if visited[child.ID] {
			continue
		}
		visited[child.ID] = true
		lineage.Descendants = append(lineage.Descendants, child)
		if err := m.collectDescendants(ctx, child.ID, visited, lineage); err != nil {
			return err
		}
	}
	return nil
}
