package retriever

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
	"docqa/internal/vectorstore/memory"
)

func TestNew_DefaultK(t *testing.T) {
	assert.Equal(t, DefaultTopK, New(0).K())
	assert.Equal(t, 2, New(2).K())
}

func TestRetrieve_UsesConfiguredK(t *testing.T) {
	ps := make([]domain.Passage, 6)
	vs := make([][]float64, 6)
	for i := range ps {
		ps[i] = domain.Passage{Ordinal: i}
		vs[i] = []float64{float64(i + 1), 1}
	}
	idx, err := memory.NewIndex(ps, vs)
	require.NoError(t, err)

	res, err := New(0).Retrieve(context.Background(), idx, []float64{1, 0})
	require.NoError(t, err)
	assert.Len(t, res, 4)
	assert.Equal(t, 5, res[0].Passage.Ordinal)

	res, err = New(10).Retrieve(context.Background(), idx, []float64{1, 0})
	require.NoError(t, err)
	assert.Len(t, res, 6)
}
