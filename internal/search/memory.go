package search

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// MemoryIndex is an in-process Index used when Algolia is not configured.
// Every query term must appear, case-insensitively, in the title or body.
type MemoryIndex struct {
	mu   sync.RWMutex
	docs map[string]Document
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{docs: make(map[string]Document)}
}

// Index adds or replaces doc.
func (m *MemoryIndex) Index(ctx context.Context, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ObjectID()] = doc
	return nil
}

// Search returns matching documents, newest first.
func (m *MemoryIndex) Search(ctx context.Context, params Params) ([]Hit, error) {
	terms := strings.Fields(strings.ToLower(params.Query))

	m.mu.RLock()
	var matched []Document
	for _, doc := range m.docs {
		if params.Kind != "" && doc.Kind != params.Kind {
			continue
		}
		if matchesAll(strings.ToLower(doc.Title+"\n"+doc.Body), terms) {
			matched = append(matched, doc)
		}
	}
	m.mu.RUnlock()

	slices.SortFunc(matched, func(a, b Document) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ObjectID(), a.ObjectID())
	})

	limit := clampLimit(params.Limit)
	if len(matched) > limit {
		matched = matched[:limit]
	}

	hits := make([]Hit, 0, len(matched))
	for _, doc := range matched {
		hits = append(hits, Hit{
			Kind:      doc.Kind,
			ID:        doc.RecordID,
			Title:     doc.Title,
			Snippet:   snippet(doc.Body),
			CreatedAt: doc.CreatedAt,
		})
	}
	return hits, nil
}

func matchesAll(text string, terms []string) bool {
	for _, term := range terms {
		if !strings.Contains(text, term) {
			return false
		}
	}
	return true
}
