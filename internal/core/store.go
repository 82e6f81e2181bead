package core

import (
	"context"

	"ragchat-backend/internal/models"
)

// Filter is a single equality predicate over the document id or one metadata
// field. A nil *Filter matches every document.
type Filter struct {
	Field string // "id" or a metadata key such as models.MetaFileID
	Value any
}

// SearchResult pairs a retrieved chunk with the store's similarity score for
// the query vector, in [0,1], nearest first.
type SearchResult struct {
	Document models.Document `json:"document"`
	Score    float64         `json:"score"`
}

// DocumentStore abstracts the vector database holding chunk records. It owns
// all persisted chunk state; every operation takes effect immediately.
type DocumentStore interface {
	// FilterDocuments returns all documents matching the filter; a nil
	// filter returns everything.
	FilterDocuments(ctx context.Context, filter *Filter) ([]models.Document, error)

	// DeleteDocuments removes exactly the named documents. An empty id set
	// is a no-op, not an error; so are unknown ids.
	DeleteDocuments(ctx context.Context, ids []string) error

	// CountDocuments reports the total chunk count.
	CountDocuments(ctx context.Context) (int, error)

	// WriteDocuments inserts new chunks, each with a pre-computed embedding
	// of the configured dimensionality. A chunk missing one fails the whole
	// batch with a *StorageError before anything is persisted.
	WriteDocuments(ctx context.Context, docs []models.Document) error

	// SearchByVector returns the topK nearest documents to vec, nearest
	// first. An empty store yields an empty slice; topK larger than the
	// store yields everything.
	SearchByVector(ctx context.Context, vec []float32, topK int) ([]SearchResult, error)

	Close() error
}
