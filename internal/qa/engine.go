// Package qa implements the conversational question-answering engine.
package qa

import (
	"context"
	"fmt"

	"docqa/internal/domain"
	"docqa/internal/retriever"
)

const DefaultSnippetLength = 300

// Conversation is the per-session state an ask runs against. Exchange must
// serialize calls and append the returned turn only when fn succeeds.
type Conversation interface {
	Index() domain.VectorIndex
	Exchange(fn func(history []domain.Turn) (domain.Turn, error)) error
}

// Engine answers questions by retrieving passages and prompting a generator.
// It is stateless: all continuity is carried in the prompt.
type Engine struct {
	embedder      domain.Embedder
	generator     domain.Generator
	retriever     *retriever.Retriever
	instructions  string
	snippetLength int
}

// Option configures an Engine.
type Option func(*Engine)

// WithTopK sets the number of passages retrieved per question.
func WithTopK(k int) Option {
	return func(e *Engine) { e.retriever = retriever.New(k) }
}

// WithSnippetLength sets the maximum citation snippet length in characters.
func WithSnippetLength(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.snippetLength = n
		}
	}
}

// WithInstructions replaces DefaultInstructions.
func WithInstructions(s string) Option {
	return func(e *Engine) {
		if s != "" {
			e.instructions = s
		}
	}
}

func NewEngine(embedder domain.Embedder, generator domain.Generator, opts ...Option) *Engine {
	e := &Engine{
		embedder:      embedder,
		generator:     generator,
		retriever:     retriever.New(retriever.DefaultTopK),
		instructions:  DefaultInstructions,
		snippetLength: DefaultSnippetLength,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ask embeds the question, retrieves passages, generates an answer and
// records the turn. On any failure the history is left unchanged.
func (e *Engine) Ask(ctx context.Context, conv Conversation, question string) (domain.Answer, error) {
	var answer domain.Answer
	err := conv.Exchange(func(history []domain.Turn) (domain.Turn, error) {
		vec, err := e.embedder.Embed(ctx, question)
		if err != nil {
			return domain.Turn{}, fmt.Errorf("%w: %s: %w", domain.ErrEmbedding, e.embedder.Name(), err)
		}
		results, err := e.retriever.Retrieve(ctx, conv.Index(), vec)
		if err != nil {
			return domain.Turn{}, fmt.Errorf("retrieve: %w", err)
		}
		prompt := BuildPrompt(e.instructions, history, results, question)
		text, err := e.generator.Generate(ctx, prompt)
		if err != nil {
			return domain.Turn{}, fmt.Errorf("%w: %s: %w", domain.ErrGeneration, e.generator.Name(), err)
		}
		answer = domain.Answer{Text: text, Citations: e.citations(results)}
		return domain.Turn{Question: question, Answer: text}, nil
	})
	if err != nil {
		return domain.Answer{}, err
	}
	return answer, nil
}

// citations keeps retrieval order.
func (e *Engine) citations(results []domain.SearchResult) []domain.Citation {
	out := make([]domain.Citation, len(results))
	for i, r := range results {
		out[i] = domain.Citation{
			Source:  r.Passage.Source,
			Page:    r.Passage.Page,
			Snippet: Truncate(r.Passage.Text, e.snippetLength),
		}
	}
	return out
}

// Truncate returns the first n characters of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
