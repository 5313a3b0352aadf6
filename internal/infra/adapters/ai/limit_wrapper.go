package ai

import (
	"context"

	"pinterest-ai-studio/internal/domain/ports/adapter"
)

var _ adapter.StageClient = (*LimitedClient)(nil)

// LimitedClient bounds in-flight provider calls with a shared semaphore so a
// large job cannot saturate a provider account.
type LimitedClient struct {
	inner adapter.StageClient
	sem   chan struct{}
}

// NewLimitedClient wraps inner with the shared semaphore sem.
func NewLimitedClient(inner adapter.StageClient, sem chan struct{}) *LimitedClient {
	return &LimitedClient{inner: inner, sem: sem}
}

func (l *LimitedClient) acquire(ctx context.Context) error {
	select {
	case l.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *LimitedClient) release() { <-l.sem }

func (l *LimitedClient) DescribeImage(ctx context.Context, prompt string, image []byte) (string, error) {
	if err := l.acquire(ctx); err != nil {
		return "", err
	}
	defer l.release()
	return l.inner.DescribeImage(ctx, prompt, image)
}

func (l *LimitedClient) GenerateContent(ctx context.Context, prompt string) (adapter.PinContent, string, error) {
	if err := l.acquire(ctx); err != nil {
		return adapter.PinContent{}, "", err
	}
	defer l.release()
	return l.inner.GenerateContent(ctx, prompt)
}

func (l *LimitedClient) GenerateImage(ctx context.Context, prompt string, width, height int) ([]byte, error) {
	if err := l.acquire(ctx); err != nil {
		return nil, err
	}
	defer l.release()
	return l.inner.GenerateImage(ctx, prompt, width, height)
}

func (l *LimitedClient) GenerateAltText(ctx context.Context, prompt string) (string, error) {
	if err := l.acquire(ctx); err != nil {
		return "", err
	}
	defer l.release()
	return l.inner.GenerateAltText(ctx, prompt)
}
