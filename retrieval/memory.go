package retrieval

import (
	"context"
	"strings"
	"sync"
)

// Document is one entry of an in-memory index.
type Document struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// MemorySearcher is a volatile keyword Searcher over a document list. It is
// safe for concurrent use and best suited for tests, demos and local
// development; production deployments plug in a real search backend.
type MemorySearcher struct {
	mu   sync.RWMutex
	docs []Document
}

// NewMemorySearcher constructs a searcher seeded with the given documents.
func NewMemorySearcher(docs ...Document) *MemorySearcher {
	return &MemorySearcher{docs: docs}
}

// Add appends documents to the index.
func (s *MemorySearcher) Add(docs ...Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, docs...)
}

// Search returns the documents whose title or content contains any query
// term, rendered as "Title: Content" lines. No match returns empty text.
func (s *MemorySearcher) Search(_ context.Context, query string) (string, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return "", nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []string
	for _, doc := range s.docs {
		haystack := strings.ToLower(doc.Title + " " + doc.Content)
		for _, term := range terms {
			if strings.Contains(haystack, term) {
				hits = append(hits, doc.Title+": "+doc.Content)
				break
			}
		}
	}
	return strings.Join(hits, "\n"), nil
}
