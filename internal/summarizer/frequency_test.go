package summarizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "Go has goroutines. Goroutines are cheap and goroutines scale. " +
	"The weather was nice. Channels connect goroutines. Butter is yellow."

func TestSentences(t *testing.T) {
	got := Sentences("One.  Two!\nThree?   trailing words")
	assert.Equal(t, []string{"One.", "Two!", "Three?", "trailing words"}, got)
	assert.Empty(t, Sentences("   "))
}

func TestSummarize_PicksFrequentSentencesInOrder(t *testing.T) {
	s := NewFrequencySummarizer()

	out, err := s.Summarize(sample, 2)

	require.NoError(t, err)
	// ties keep document order
	assert.Equal(t, "Go has goroutines. Goroutines are cheap and goroutines scale.", out)
}

func TestSummarizeFor_QueryBias(t *testing.T) {
	s := NewFrequencySummarizer()

	out, err := s.SummarizeFor(sample, "What colour is butter?", 1)

	require.NoError(t, err)
	assert.Equal(t, "Butter is yellow.", out)
}

func TestSummarize_NoSentencesReturnsTrimmedText(t *testing.T) {
	s := NewFrequencySummarizer()
	out, err := s.Summarize("  ", 3)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSummarize_CapsAtSentenceCount(t *testing.T) {
	s := NewFrequencySummarizer()
	out, err := s.Summarize(sample, 50)
	require.NoError(t, err)
	assert.Len(t, Sentences(out), 5)
	assert.True(t, strings.HasPrefix(out, "Go has goroutines."))
}
