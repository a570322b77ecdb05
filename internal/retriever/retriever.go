// Package retriever applies a fixed top-k query policy to a vector index.
package retriever

import (
	"context"

	"docqa/internal/domain"
)

const DefaultTopK = 4

type Retriever struct {
	k int
}

func New(k int) *Retriever {
	if k <= 0 {
		k = DefaultTopK
	}
	return &Retriever{k: k}
}

// K returns the number of passages retrieved per query.
func (r *Retriever) K() int { return r.k }

// Retrieve returns up to K passages of index most similar to vector.
func (r *Retriever) Retrieve(ctx context.Context, index domain.VectorIndex, vector []float64) ([]domain.SearchResult, error) {
	return index.Search(ctx, vector, r.k)
}
