package ai

import (
	"context"
	"time"

	"pinterest-ai-studio/internal/domain"
	"pinterest-ai-studio/internal/domain/model"
	"pinterest-ai-studio/internal/domain/ports/adapter"
)

var _ adapter.StageClientFactory = (*Factory)(nil)

// Factory builds a StageClient for a resolved credential. All clients share
// one semaphore, so the concurrency limit is account-wide, not per-stage.
type Factory struct {
	sem     chan struct{}
	timeout time.Duration
	dev     bool
}

func NewFactory(concurrentLimit int, callTimeout time.Duration, dev bool) *Factory {
	if concurrentLimit <= 0 {
		concurrentLimit = 8
	}
	return &Factory{
		sem:     make(chan struct{}, concurrentLimit),
		timeout: callTimeout,
		dev:     dev,
	}
}

func (f *Factory) ForCredential(ctx context.Context, cred adapter.Credential) (adapter.StageClient, error) {
	if f.dev {
		return NewNoopClient(), nil
	}
	var inner adapter.StageClient
	switch cred.Provider {
	case model.ProviderOpenAI:
		c, err := NewOpenAIClient(cred.Secret, cred.Model, f.timeout)
		if err != nil {
			return nil, err
		}
		inner = c
	case model.ProviderGemini:
		c, err := NewGeminiClient(ctx, cred.Secret, cred.Model)
		if err != nil {
			return nil, err
		}
		inner = c
	default:
		return nil, domain.ErrUnsupportedProvider
	}
	return NewLimitedClient(inner, f.sem), nil
}
