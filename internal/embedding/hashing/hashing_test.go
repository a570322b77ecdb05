package hashing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func TestEmbed_DeterministicAndNormalized(t *testing.T) {
	e := NewEmbedder(64)
	ctx := context.Background()

	a, err := e.Embed(ctx, "Goroutines are lightweight threads")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "Goroutines are lightweight threads")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.InDelta(t, 1.0, math.Sqrt(dot(a, a)), 1e-9)
}

func TestEmbed_OnlyStopwordsIsZeroVector(t *testing.T) {
	e := NewEmbedder(0)
	v, err := e.Embed(context.Background(), "the and of")
	require.NoError(t, err)
	assert.Len(t, v, DefaultDimension)
	for _, x := range v {
		assert.Zero(t, x)
	}
}

func TestEmbed_RelatedTextScoresHigher(t *testing.T) {
	e := NewEmbedder(1024)
	ctx := context.Background()

	q, _ := e.Embed(ctx, "How do channels work?")
	related, _ := e.Embed(ctx, "Channels let goroutines communicate; channels work by passing values.")
	unrelated, _ := e.Embed(ctx, "The recipe needs flour, sugar and butter.")

	assert.Greater(t, dot(q, related), dot(q, unrelated))
}

func TestEmbedBatch_MatchesEmbed(t *testing.T) {
	e := NewEmbedder(32)
	ctx := context.Background()
	texts := []string{"alpha", "beta gamma", ""}

	batch, err := e.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, batch, 3)
	for i, txt := range texts {
		single, _ := e.Embed(ctx, txt)
		assert.Equal(t, single, batch[i])
	}
}

func TestEmbedBatch_CanceledContext(t *testing.T) {
	e := NewEmbedder(8)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.EmbedBatch(ctx, []string{"x"})
	assert.ErrorIs(t, err, context.Canceled)
}
