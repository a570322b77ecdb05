package extractive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
	"docqa/internal/summarizer"
)

func TestGenerate_PicksMatchingSentence(t *testing.T) {
	g := New(summarizer.NewFrequencySummarizer(), 1)

	out, err := g.Generate(context.Background(), domain.Prompt{
		Question: "Which port does the server listen on?",
		Passages: []domain.Passage{
			{Text: "The server listens on port 8000. Requests are logged."},
			{Text: "Uploads are limited to fifty megabytes."},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "The server listens on port 8000.", out)
}

func TestGenerate_NoPassages(t *testing.T) {
	g := New(summarizer.NewFrequencySummarizer(), 0)

	out, err := g.Generate(context.Background(), domain.Prompt{Question: "anything?"})

	require.NoError(t, err)
	assert.Equal(t, NoAnswer, out)
	assert.Equal(t, "extractive", g.Name())
}

func TestGenerate_CanceledContext(t *testing.T) {
	g := New(summarizer.NewFrequencySummarizer(), 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Generate(ctx, domain.Prompt{Passages: []domain.Passage{{Text: "x."}}})
	assert.ErrorIs(t, err, context.Canceled)
}
