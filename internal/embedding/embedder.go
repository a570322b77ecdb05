package embedding

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"docqa/internal/domain"
)

const (
	DefaultBatchSize   = 32
	DefaultConcurrency = 4
)

// EmbedAll embeds texts in batches of batchSize with up to concurrency batches
// in flight. Vectors are returned in input order regardless of completion
// order. Any failure aborts the whole call.
func EmbedAll(ctx context.Context, emb domain.Embedder, texts []string, batchSize, concurrency int) ([][]float64, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	vectors := make([][]float64, len(texts))
	if len(texts) == 0 {
		return vectors, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))
		g.Go(func() error {
			out, err := emb.EmbedBatch(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("%w: %s batch %d-%d: %w", domain.ErrEmbedding, emb.Name(), start, end, err)
			}
			if len(out) != end-start {
				return fmt.Errorf("%w: %s returned %d vectors for %d texts", domain.ErrEmbedding, emb.Name(), len(out), end-start)
			}
			copy(vectors[start:end], out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// Limited wraps an Embedder with a rate limiter. Every request to the
// underlying provider waits for one token.
type Limited struct {
	next    domain.Embedder
	limiter *rate.Limiter
}

// NewLimited returns emb unchanged when perSecond is not positive.
func NewLimited(emb domain.Embedder, perSecond int) domain.Embedder {
	if perSecond <= 0 {
		return emb
	}
	return &Limited{next: emb, limiter: rate.NewLimiter(rate.Limit(perSecond), perSecond)}
}

func (l *Limited) Name() string { return l.next.Name() }

func (l *Limited) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.next.Embed(ctx, text)
}

func (l *Limited) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.next.EmbedBatch(ctx, texts)
}

// Timeout bounds every provider request, whatever the provider.
type Timeout struct {
	next    domain.Embedder
	timeout time.Duration
}

// NewTimeout returns emb unchanged when d is not positive.
func NewTimeout(emb domain.Embedder, d time.Duration) domain.Embedder {
	if d <= 0 {
		return emb
	}
	return &Timeout{next: emb, timeout: d}
}

func (t *Timeout) Name() string { return t.next.Name() }

func (t *Timeout) Embed(ctx context.Context, text string) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Embed(ctx, text)
}

func (t *Timeout) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.EmbedBatch(ctx, texts)
}
