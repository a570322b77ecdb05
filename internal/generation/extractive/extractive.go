// Package extractive answers from the retrieved passages without a language
// model. It is meant for offline use and demos.
package extractive

import (
	"context"
	"strings"

	"docqa/internal/domain"
)

// NoAnswer is returned when no passages were retrieved.
const NoAnswer = "I could not find anything relevant in the uploaded documents."

// QuerySummarizer ranks sentences of a text against a query.
type QuerySummarizer interface {
	SummarizeFor(text, query string, maxSentences int) (string, error)
}

type Generator struct {
	summarizer   QuerySummarizer
	maxSentences int
}

func New(s QuerySummarizer, maxSentences int) *Generator {
	if maxSentences <= 0 {
		maxSentences = 3
	}
	return &Generator{summarizer: s, maxSentences: maxSentences}
}

func (g *Generator) Name() string { return "extractive" }

// Generate returns the passage sentences that best match the question.
func (g *Generator) Generate(ctx context.Context, prompt domain.Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(prompt.Passages) == 0 {
		return NoAnswer, nil
	}
	texts := make([]string, len(prompt.Passages))
	for i, p := range prompt.Passages {
		texts[i] = p.Text
	}
	answer, err := g.summarizer.SummarizeFor(strings.Join(texts, "\n\n"), prompt.Question, g.maxSentences)
	if err != nil {
		return "", err
	}
	if answer == "" {
		return NoAnswer, nil
	}
	return answer, nil
}
