// Package retrieval embeds a query and asks the document store's similarity
// search for the nearest chunks.
package retrieval

import (
	"context"
	"fmt"

	"ragchat-backend/internal/core"
)

// DefaultTopK is the result limit used when none is requested.
const DefaultTopK = 5

// Retriever is the query-side pipeline: embed, then nearest-neighbor search.
type Retriever struct {
	embedder core.EmbeddingProvider
	store    core.DocumentStore
}

func NewRetriever(embedder core.EmbeddingProvider, store core.DocumentStore) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// Search returns the topK nearest stored chunks for the query, nearest
// first. An empty store yields an empty result, not an error.
func (r *Retriever) Search(ctx context.Context, query string, topK int) ([]core.SearchResult, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	vecs, err := r.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embed query: provider returned no vector")
	}

	return r.store.SearchByVector(ctx, vecs[0], topK)
}
