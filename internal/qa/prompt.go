package qa

import (
	"fmt"
	"strings"

	"docqa/internal/domain"
)

// DefaultInstructions tell the model to stay grounded in the retrieved passages.
const DefaultInstructions = "You are a helpful assistant answering questions about the user's documents. " +
	"Use the numbered context passages below and the conversation so far. " +
	"If the answer is not contained in the context, say that you don't know. " +
	"Mention the source file and page when they are relevant."

// BuildPrompt assembles the full prompt for one turn: the whole history
// (oldest first), the passages in retrieval order and the new question.
func BuildPrompt(instructions string, history []domain.Turn, results []domain.SearchResult, question string) domain.Prompt {
	passages := make([]domain.Passage, len(results))
	for i, r := range results {
		passages[i] = r.Passage
	}
	return domain.Prompt{
		Instructions: instructions,
		Context:      renderContext(passages),
		History:      append([]domain.Turn(nil), history...),
		Passages:     passages,
		Question:     question,
	}
}

func renderContext(passages []domain.Passage) string {
	if len(passages) == 0 {
		return "Context: (no relevant passages found)"
	}
	var b strings.Builder
	b.WriteString("Context:")
	for i, p := range passages {
		fmt.Fprintf(&b, "\n\n[%d] %s", i+1, p.Source)
		if p.Page != nil {
			fmt.Fprintf(&b, ", page %d", *p.Page)
		}
		b.WriteString("\n")
		b.WriteString(p.Text)
	}
	return b.String()
}
