package ai

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pawclause/internal/core/domain"
	"github.com/custodia-labs/pawclause/internal/core/ports/driven"
)

type stubEmbedding struct{ calls int }

func (s *stubEmbedding) Embed(_ context.Context, _ string) ([]float32, error) {
	s.calls++
	return []float32{1}, nil
}

func (s *stubEmbedding) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1}
	}
	return out, nil
}

func (s *stubEmbedding) Dimensions() int              { return 1 }
func (s *stubEmbedding) ModelName() string            { return "stub" }
func (s *stubEmbedding) Ping(_ context.Context) error { return nil }
func (s *stubEmbedding) Close() error                 { return nil }

type stubLLM struct{ calls int }

func (s *stubLLM) Generate(_ context.Context, _ string, _ driven.GenerateOptions) (string, error) {
	s.calls++
	return "g", nil
}

func (s *stubLLM) Chat(_ context.Context, _ []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	s.calls++
	return "c", nil
}

func (s *stubLLM) ModelName() string            { return "stub" }
func (s *stubLLM) Ping(_ context.Context) error { return nil }
func (s *stubLLM) Close() error                 { return nil }

func TestRateLimitedEmbedding_Unlimited(t *testing.T) {
	inner := &stubEmbedding{}
	svc := NewRateLimitedEmbedding(inner, domain.RateLimitSettings{})

	for i := 0; i < 100; i++ {
		_, err := svc.Embed(context.Background(), "x")
		require.NoError(t, err)
	}
	assert.Equal(t, 100, inner.calls)
	assert.Equal(t, "stub", svc.ModelName())
	assert.Equal(t, 1, svc.Dimensions())
}

func TestRateLimitedEmbedding_ContextDeadline(t *testing.T) {
	inner := &stubEmbedding{}
	svc := NewRateLimitedEmbedding(inner, domain.RateLimitSettings{RequestsPerSecond: 0.01, Burst: 1})

	_, err := svc.EmbedBatch(context.Background(), []string{"a"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = svc.EmbedBatch(ctx, []string{"b"})
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Equal(t, 1, inner.calls)
}

func TestRateLimitedLLM(t *testing.T) {
	inner := &stubLLM{}
	svc := NewRateLimitedLLM(inner, domain.RateLimitSettings{RequestsPerSecond: 0.01, Burst: 1})

	out, err := svc.Chat(context.Background(), nil, driven.ChatOptions{})
	require.NoError(t, err)
	assert.Equal(t, "c", out)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = svc.Generate(ctx, "p", driven.GenerateOptions{})
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Equal(t, 1, inner.calls)
}
