package memory

import (
	"context"
	"errors"
	"math"

	"docqa/internal/domain"
	"docqa/internal/vectorstore"
)

// Builder creates in-memory indexes.
type Builder struct{}

func NewBuilder() Builder { return Builder{} }

// Build copies passages and stores L2-normalized copies of their vectors.
func (Builder) Build(_ context.Context, passages []domain.Passage, vectors [][]float64) (domain.VectorIndex, error) {
	idx, err := NewIndex(passages, vectors)
	if err != nil {
		return nil, err
	}
	return idx, nil
}

// Index is an exact-scan cosine similarity index. It is immutable after
// construction and safe for concurrent searches.
type Index struct {
	dimension int
	vectors   [][]float64
	passages  []domain.Passage
}

func NewIndex(passages []domain.Passage, vectors [][]float64) (*Index, error) {
	if len(passages) != len(vectors) {
		return nil, errors.New("passages and vectors length mismatch")
	}
	idx := &Index{
		passages: append([]domain.Passage(nil), passages...),
		vectors:  make([][]float64, len(vectors)),
	}
	for i, v := range vectors {
		if i == 0 {
			idx.dimension = len(v)
		}
		if len(v) != idx.dimension {
			return nil, errors.New("vector dimension mismatch")
		}
		idx.vectors[i] = normalize(v)
	}
	return idx, nil
}

// Size returns the number of stored passages.
func (s *Index) Size() int { return len(s.passages) }

// Search returns the min(k, Size) passages most similar to vector by cosine
// similarity, ties broken by ascending ordinal.
func (s *Index) Search(_ context.Context, vector []float64, k int) ([]domain.SearchResult, error) {
	if k <= 0 || len(s.passages) == 0 {
		return []domain.SearchResult{}, nil
	}
	if len(vector) != s.dimension {
		return nil, errors.New("query vector dimension mismatch")
	}
	q := normalize(vector)
	results := make([]domain.SearchResult, len(s.vectors))
	for i := range s.vectors {
		results[i] = domain.SearchResult{Passage: s.passages[i], Score: dot(s.vectors[i], q)}
	}
	vectorstore.SortResults(results)
	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// Close is a no-op; the index is reclaimed by the garbage collector.
func (s *Index) Close(context.Context) error { return nil }

func normalize(v []float64) []float64 {
	out := make([]float64, len(v))
	norm := 0.0
	for _, x := range v {
		norm += x * x
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return out
	}
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
