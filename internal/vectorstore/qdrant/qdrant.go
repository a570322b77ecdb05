package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"docqa/internal/domain"
	"docqa/internal/vectorstore"
)

const (
	upsertBatch    = 256
	cleanupTimeout = 10 * time.Second
)

type Config struct {
	URL              string
	APIKey           string
	CollectionPrefix string
	Timeout          time.Duration
}

// Builder creates one Qdrant collection per index using cosine distance.
type Builder struct {
	url    string
	apiKey string
	prefix string
	client *http.Client
}

func NewBuilder(cfg Config) *Builder {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	prefix := cfg.CollectionPrefix
	if prefix == "" {
		prefix = "docqa"
	}
	return &Builder{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		prefix: prefix,
		client: &http.Client{Timeout: timeout},
	}
}

// Build creates a fresh collection and uploads all points. The collection is
// dropped again if any upload fails.
func (b *Builder) Build(ctx context.Context, passages []domain.Passage, vectors [][]float64) (domain.VectorIndex, error) {
	if len(passages) != len(vectors) {
		return nil, errors.New("passages and vectors length mismatch")
	}
	idx := &Index{builder: b, collection: b.prefix + "-" + uuid.NewString()}
	if len(passages) == 0 {
		return idx, nil
	}
	dimension := len(vectors[0])
	if dimension == 0 {
		return nil, errors.New("invalid dimension")
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	if err := b.do(ctx, http.MethodPut, b.collectionURL(idx.collection), body, nil); err != nil {
		return nil, err
	}
	for start := 0; start < len(passages); start += upsertBatch {
		end := min(start+upsertBatch, len(passages))
		points := make([]map[string]any, 0, end-start)
		for i := start; i < end; i++ {
			if len(vectors[i]) != dimension {
				idx.cleanup(ctx)
				return nil, errors.New("vector dimension mismatch")
			}
			points = append(points, map[string]any{
				"id":      passages[i].Ordinal,
				"vector":  vectors[i],
				"payload": toPayload(passages[i]),
			})
		}
		if err := b.do(ctx, http.MethodPut, b.collectionURL(idx.collection)+"/points?wait=true", map[string]any{"points": points}, nil); err != nil {
			idx.cleanup(ctx)
			return nil, err
		}
	}
	idx.size = len(passages)
	return idx, nil
}

// Index is a read-only view of one Qdrant collection.
type Index struct {
	builder    *Builder
	collection string
	size       int
}

func (s *Index) Size() int { return s.size }

// Collection returns the name of the backing collection.
func (s *Index) Collection() string { return s.collection }

// Search queries Qdrant and re-sorts the hits by score, then ordinal. The
// server cuts at limit without a stable tie order, so the limit grows until
// the last hit scores strictly below the k-th one or the whole collection
// has been fetched.
func (s *Index) Search(ctx context.Context, vector []float64, k int) ([]domain.SearchResult, error) {
	if k <= 0 || s.size == 0 {
		return []domain.SearchResult{}, nil
	}
	limit := min(2*k, s.size)
	for {
		results, err := s.search(ctx, vector, limit)
		if err != nil {
			return nil, err
		}
		vectorstore.SortResults(results)
		if len(results) <= k {
			return results, nil
		}
		if limit >= s.size || results[len(results)-1].Score < results[k-1].Score {
			return results[:k], nil
		}
		limit = min(2*limit, s.size)
	}
}

func (s *Index) search(ctx context.Context, vector []float64, limit int) ([]domain.SearchResult, error) {
	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64 `json:"score"`
			Payload payload `json:"payload"`
		} `json:"result"`
	}
	if err := s.builder.do(ctx, http.MethodPost, s.builder.collectionURL(s.collection)+"/points/search", req, &resp); err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, domain.SearchResult{Passage: r.Payload.passage(), Score: r.Score})
	}
	return results, nil
}

// Close drops the collection.
func (s *Index) Close(ctx context.Context) error {
	if s.size == 0 {
		return nil
	}
	return s.drop(ctx)
}

func (s *Index) drop(ctx context.Context) error {
	return s.builder.do(ctx, http.MethodDelete, s.builder.collectionURL(s.collection), nil, nil)
}

// cleanup drops a half-built collection even when ctx is already cancelled.
func (s *Index) cleanup(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	_ = s.drop(ctx)
}

type payload struct {
	Text    string `json:"text"`
	Source  string `json:"source"`
	Page    *int   `json:"page,omitempty"`
	Ordinal int    `json:"ordinal"`
}

func toPayload(p domain.Passage) payload {
	return payload{Text: p.Text, Source: p.Source, Page: p.Page, Ordinal: p.Ordinal}
}

func (p payload) passage() domain.Passage {
	return domain.Passage{Text: p.Text, Source: p.Source, Page: p.Page, Ordinal: p.Ordinal}
}

func (b *Builder) collectionURL(name string) string {
	return fmt.Sprintf("%s/collections/%s", b.url, name)
}

func (b *Builder) do(ctx context.Context, method, url string, body any, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if b.apiKey != "" {
		req.Header.Set("api-key", b.apiKey)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
