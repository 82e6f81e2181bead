// Package memstore provides an in-memory core.DocumentStore using
// brute-force cosine similarity. It backs tests and local runs that have no
// Postgres available.
package memstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"ragchat-backend/internal/core"
	"ragchat-backend/internal/models"
)

var _ core.DocumentStore = (*Store)(nil)

// Store keeps documents in insertion order under a RWMutex.
type Store struct {
	mu       sync.RWMutex
	embedDim int
	docs     []models.Document
}

func New(embedDim int) *Store {
	return &Store{embedDim: embedDim}
}

func (s *Store) Close() error { return nil }

func (s *Store) FilterDocuments(_ context.Context, filter *core.Filter) ([]models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Document
	for _, doc := range s.docs {
		if matches(doc, filter) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (s *Store) DeleteDocuments(_ context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.docs[:0]
	for _, doc := range s.docs {
		if _, ok := drop[doc.ID]; !ok {
			kept = append(kept, doc)
		}
	}
	s.docs = kept
	return nil
}

func (s *Store) CountDocuments(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs), nil
}

func (s *Store) WriteDocuments(_ context.Context, docs []models.Document) error {
	for i := range docs {
		if len(docs[i].Embedding) != s.embedDim {
			return &core.StorageError{
				Op:  "write",
				Err: fmt.Errorf("chunk %s: embedding has %d dimensions, want %d", docs[i].ID, len(docs[i].Embedding), s.embedDim),
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, docs...)
	return nil
}

func (s *Store) SearchByVector(_ context.Context, vec []float32, topK int) ([]core.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]core.SearchResult, 0, len(s.docs))
	for _, doc := range s.docs {
		results = append(results, core.SearchResult{
			Document: doc,
			Score:    cosine(doc.Embedding, vec),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

func matches(doc models.Document, filter *core.Filter) bool {
	if filter == nil {
		return true
	}
	if filter.Field == "id" {
		return doc.ID == fmt.Sprint(filter.Value)
	}
	v, ok := doc.Meta[filter.Field]
	return ok && fmt.Sprint(v) == fmt.Sprint(filter.Value)
}

// cosine reports similarity clamped into [0,1]; negative similarity is
// treated as no relevance.
func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}
