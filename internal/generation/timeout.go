package generation

import (
	"context"
	"time"

	"docqa/internal/domain"
)

// Timeout bounds every Generate call, whatever the provider.
type Timeout struct {
	next    domain.Generator
	timeout time.Duration
}

// NewTimeout returns gen unchanged when d is not positive.
func NewTimeout(gen domain.Generator, d time.Duration) domain.Generator {
	if d <= 0 {
		return gen
	}
	return &Timeout{next: gen, timeout: d}
}

func (t *Timeout) Name() string { return t.next.Name() }

func (t *Timeout) Generate(ctx context.Context, prompt domain.Prompt) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Generate(ctx, prompt)
}
