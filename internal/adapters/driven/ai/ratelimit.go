package ai

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/pawclause/internal/core/domain"
	"github.com/custodia-labs/pawclause/internal/core/ports/driven"
)

var (
	_ driven.EmbeddingService = (*RateLimitedEmbedding)(nil)
	_ driven.LLMService       = (*RateLimitedLLM)(nil)
)

func newLimiter(settings domain.RateLimitSettings) *rate.Limiter {
	if settings.RequestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := settings.Burst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(settings.RequestsPerSecond), burst)
}

func wait(ctx context.Context, l *rate.Limiter) error {
	if err := l.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
	}
	return nil
}

// RateLimitedEmbedding throttles outbound embedding calls. Each Embed or
// EmbedBatch call takes one token.
type RateLimitedEmbedding struct {
	inner   driven.EmbeddingService
	limiter *rate.Limiter
}

// NewRateLimitedEmbedding wraps inner. A non-positive rate disables limiting.
func NewRateLimitedEmbedding(inner driven.EmbeddingService, settings domain.RateLimitSettings) *RateLimitedEmbedding {
	return &RateLimitedEmbedding{inner: inner, limiter: newLimiter(settings)}
}

// Embed waits for a token then embeds text.
func (r *RateLimitedEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := wait(ctx, r.limiter); err != nil {
		return nil, err
	}
	return r.inner.Embed(ctx, text)
}

// EmbedBatch waits for a token then embeds texts.
func (r *RateLimitedEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := wait(ctx, r.limiter); err != nil {
		return nil, err
	}
	return r.inner.EmbedBatch(ctx, texts)
}

func (r *RateLimitedEmbedding) Dimensions() int                { return r.inner.Dimensions() }
func (r *RateLimitedEmbedding) ModelName() string              { return r.inner.ModelName() }
func (r *RateLimitedEmbedding) Ping(ctx context.Context) error { return r.inner.Ping(ctx) }
func (r *RateLimitedEmbedding) Close() error                   { return r.inner.Close() }

// RateLimitedLLM throttles outbound LLM calls.
type RateLimitedLLM struct {
	inner   driven.LLMService
	limiter *rate.Limiter
}

// NewRateLimitedLLM wraps inner. A non-positive rate disables limiting.
func NewRateLimitedLLM(inner driven.LLMService, settings domain.RateLimitSettings) *RateLimitedLLM {
	return &RateLimitedLLM{inner: inner, limiter: newLimiter(settings)}
}

// Generate waits for a token then generates.
func (r *RateLimitedLLM) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	if err := wait(ctx, r.limiter); err != nil {
		return "", err
	}
	return r.inner.Generate(ctx, prompt, opts)
}

// Chat waits for a token then chats.
func (r *RateLimitedLLM) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	if err := wait(ctx, r.limiter); err != nil {
		return "", err
	}
	return r.inner.Chat(ctx, messages, opts)
}

func (r *RateLimitedLLM) ModelName() string              { return r.inner.ModelName() }
func (r *RateLimitedLLM) Ping(ctx context.Context) error { return r.inner.Ping(ctx) }
func (r *RateLimitedLLM) Close() error                   { return r.inner.Close() }
