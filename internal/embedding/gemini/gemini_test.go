package gemini

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_MissingKey(t *testing.T) {
	t.Setenv("DOCQA_TEST_GEMINI_KEY", "")

	_, err := NewClient(context.Background(), Config{APIKeyEnv: "DOCQA_TEST_GEMINI_KEY"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "DOCQA_TEST_GEMINI_KEY")
}

func TestToFloat64(t *testing.T) {
	assert.Equal(t, []float64{0.5, -2}, toFloat64([]float32{0.5, -2}))
	assert.Empty(t, toFloat64(nil))
}
