package generation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

// blockingGenerator waits until its context ends.
type blockingGenerator struct{}

func (blockingGenerator) Name() string { return "blocking" }

func (blockingGenerator) Generate(ctx context.Context, _ domain.Prompt) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestNewTimeout_Disabled(t *testing.T) {
	gen := &echoGenerator{}
	assert.Same(t, domain.Generator(gen), NewTimeout(gen, 0))
}

func TestTimeout_CutsHungCall(t *testing.T) {
	gen := NewTimeout(blockingGenerator{}, 20*time.Millisecond)

	start := time.Now()
	_, err := gen.Generate(context.Background(), domain.Prompt{Question: "q"})

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, "blocking", gen.Name())
}

func TestTimeout_PassesFastCalls(t *testing.T) {
	gen := NewTimeout(&echoGenerator{}, time.Second)
	out, err := gen.Generate(context.Background(), domain.Prompt{Question: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", out)
}
