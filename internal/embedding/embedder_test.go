package embedding

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

// lengthEmbedder maps text to a one-element vector holding its numeric value
// and sleeps longer for earlier batches so completion order is reversed.
type lengthEmbedder struct {
	calls  atomic.Int32
	failOn string
}

func (e *lengthEmbedder) Name() string { return "fake" }

func (e *lengthEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	n, _ := strconv.Atoi(text)
	return []float64{float64(n)}, nil
}

func (e *lengthEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	e.calls.Add(1)
	first, _ := strconv.Atoi(texts[0])
	time.Sleep(time.Duration(20-first) * time.Millisecond / 2)
	out := make([][]float64, len(texts))
	for i, t := range texts {
		if t == e.failOn {
			return nil, errors.New("provider timeout")
		}
		out[i], _ = e.Embed(ctx, t)
	}
	return out, nil
}

func numbers(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = strconv.Itoa(i)
	}
	return out
}

func TestEmbedAll_PreservesInputOrder(t *testing.T) {
	emb := &lengthEmbedder{}
	texts := numbers(20)

	vectors, err := EmbedAll(context.Background(), emb, texts, 3, 4)

	require.NoError(t, err)
	require.Len(t, vectors, 20)
	for i, v := range vectors {
		assert.Equal(t, float64(i), v[0])
	}
	assert.Equal(t, int32(7), emb.calls.Load())
}

func TestEmbedAll_FailureIsAllOrNothing(t *testing.T) {
	emb := &lengthEmbedder{failOn: "13"}

	vectors, err := EmbedAll(context.Background(), emb, numbers(20), 4, 2)

	assert.Nil(t, vectors)
	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.Contains(t, err.Error(), "provider timeout")
}

func TestEmbedAll_Empty(t *testing.T) {
	vectors, err := EmbedAll(context.Background(), &lengthEmbedder{}, nil, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestNewLimited(t *testing.T) {
	emb := &lengthEmbedder{}
	assert.Same(t, domain.Embedder(emb), NewLimited(emb, 0))

	limited := NewLimited(emb, 100)
	require.IsType(t, &Limited{}, limited)
	v, err := limited.Embed(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, []float64{7}, v)
	assert.Equal(t, "fake", limited.Name())
}

func TestLimited_CanceledContext(t *testing.T) {
	limited := NewLimited(&lengthEmbedder{}, 1)
	ctx, cancel := context.WithCancel(context.Background())
	_, _ = limited.EmbedBatch(ctx, []string{"1"})
	cancel()

	_, err := limited.EmbedBatch(ctx, []string{"2"})
	assert.Error(t, err)
}

type hungEmbedder struct{}

func (hungEmbedder) Name() string { return "hung" }

func (hungEmbedder) Embed(ctx context.Context, _ string) ([]float64, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (hungEmbedder) EmbedBatch(ctx context.Context, _ []string) ([][]float64, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestTimeout_BoundsProviderCalls(t *testing.T) {
	emb := NewTimeout(hungEmbedder{}, 20*time.Millisecond)

	_, err := emb.Embed(context.Background(), "q")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = EmbedAll(context.Background(), emb, []string{"a", "b"}, 1, 2)
	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "hung", emb.Name())
}

func TestNewTimeout_Disabled(t *testing.T) {
	emb := hungEmbedder{}
	assert.Equal(t, domain.Embedder(emb), NewTimeout(emb, 0))
}
