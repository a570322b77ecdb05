package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"docqa/internal/domain"
)

const DefaultModel = "gemini-1.5-flash"

type Config struct {
	APIKeyEnv   string
	Model       string
	Temperature float32
}

// Client generates answers with a Gemini chat model. Each call starts a new
// chat seeded with the prompt history; no provider-side state is kept.
type Client struct {
	client      *genai.Client
	model       string
	temperature float32
}

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
	return &Client{client: client, model: cfg.Model, temperature: cfg.Temperature}, nil
}

func (c *Client) Name() string { return "gemini" }

func (c *Client) Generate(ctx context.Context, prompt domain.Prompt) (string, error) {
	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(c.temperature)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(prompt.System())}}

	cs := model.StartChat()
	cs.History = historyContents(prompt.History)
	resp, err := cs.SendMessage(ctx, genai.Text(prompt.Question))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return responseText(resp)
}

// Close releases the underlying client.
func (c *Client) Close() error { return c.client.Close() }

func historyContents(history []domain.Turn) []*genai.Content {
	out := make([]*genai.Content, 0, 2*len(history))
	for _, t := range history {
		out = append(out,
			&genai.Content{Role: "user", Parts: []genai.Part{genai.Text(t.Question)}},
			&genai.Content{Role: "model", Parts: []genai.Part{genai.Text(t.Answer)}},
		)
	}
	return out
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini generate: empty response")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	if b.Len() == 0 {
		return "", errors.New("gemini generate: no text in response")
	}
	return b.String(), nil
}
