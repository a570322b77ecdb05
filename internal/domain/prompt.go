package domain

import "strings"

// Prompt is the structured input of a generation call. Context is the rendered
// passage block; Passages are kept for generators that work on raw text.
type Prompt struct {
	Instructions string
	Context      string
	History      []Turn
	Passages     []Passage
	Question     string
}

// System returns the instructions followed by the passage context.
func (p Prompt) System() string {
	if p.Context == "" {
		return p.Instructions
	}
	return p.Instructions + "\n\n" + p.Context
}

// Text flattens the prompt for providers without chat roles.
func (p Prompt) Text() string {
	var b strings.Builder
	b.WriteString(p.System())
	if len(p.History) > 0 {
		b.WriteString("\n\nConversation so far:\n")
		for _, t := range p.History {
			b.WriteString("User: ")
			b.WriteString(t.Question)
			b.WriteString("\nAssistant: ")
			b.WriteString(t.Answer)
			b.WriteString("\n")
		}
	}
	b.WriteString("\n\nQuestion: ")
	b.WriteString(p.Question)
	return b.String()
}
