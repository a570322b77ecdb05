package vectorstore

import (
	"context"
	"fmt"
	"sort"

	"docqa/internal/domain"
	"docqa/internal/embedding"
)

// BuildOptions controls how passages are embedded during Build.
type BuildOptions struct {
	BatchSize   int
	Concurrency int
}

// Build embeds every passage and stores the pairs in a new index. Zero
// passages produce an empty index. Nothing is returned on partial failure.
func Build(ctx context.Context, builder domain.IndexBuilder, passages []domain.Passage, emb domain.Embedder, opts BuildOptions) (domain.VectorIndex, error) {
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}
	vectors, err := embedding.EmbedAll(ctx, emb, texts, opts.BatchSize, opts.Concurrency)
	if err != nil {
		return nil, err
	}
	idx, err := builder.Build(ctx, passages, vectors)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	return idx, nil
}

// SortResults orders results by descending score, then ascending passage ordinal.
func SortResults(results []domain.SearchResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Passage.Ordinal < results[j].Passage.Ordinal
	})
}
