// Package generation holds helpers shared by the generation providers.
package generation

import (
	"context"

	"golang.org/x/time/rate"

	"docqa/internal/domain"
)

// Limited wraps a Generator with a rate limiter shared by all sessions.
type Limited struct {
	next    domain.Generator
	limiter *rate.Limiter
}

// NewLimited returns gen unchanged when perSecond is not positive.
func NewLimited(gen domain.Generator, perSecond int) domain.Generator {
	if perSecond <= 0 {
		return gen
	}
	return &Limited{next: gen, limiter: rate.NewLimiter(rate.Limit(perSecond), perSecond)}
}

func (l *Limited) Name() string { return l.next.Name() }

func (l *Limited) Generate(ctx context.Context, prompt domain.Prompt) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return l.next.Generate(ctx, prompt)
}
