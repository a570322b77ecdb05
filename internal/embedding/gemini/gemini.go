package gemini

import (
	"context"
	"fmt"
	"os"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const DefaultModel = "embedding-001"

// Config configures the Gemini embeddings client.
type Config struct {
	APIKeyEnv string
	Model     string
}

// Client embeds passages with the retrieval-document task type and queries
// with the retrieval-query task type.
type Client struct {
	client   *genai.Client
	model    string
	document *genai.EmbeddingModel
	query    *genai.EmbeddingModel
}

// NewClient creates a Gemini embeddings client. The API key is read from cfg.APIKeyEnv.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "GOOGLE_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(key))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	document := client.EmbeddingModel(cfg.Model)
	document.TaskType = genai.TaskTypeRetrievalDocument
	query := client.EmbeddingModel(cfg.Model)
	query.TaskType = genai.TaskTypeRetrievalQuery
	return &Client{client: client, model: cfg.Model, document: document, query: query}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "gemini" }

// Embed embeds a search query.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	res, err := c.query.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if res == nil || res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("gemini embed: no embedding returned")
	}
	return toFloat64(res.Embedding.Values), nil
}

// EmbedBatch embeds passages in one BatchEmbedContents request.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	batch := c.document.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}
	res, err := c.document.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("gemini batch embed: %w", err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini batch embed: got %d embeddings for %d texts", len(res.Embeddings), len(texts))
	}
	out := make([][]float64, len(texts))
	for i, e := range res.Embeddings {
		out[i] = toFloat64(e.Values)
	}
	return out, nil
}

// Close releases the underlying client.
func (c *Client) Close() error { return c.client.Close() }

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
