// Package ai builds the embedding and LLM services from settings, wrapping
// them with rate limiting and the embedding cache.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/pawclause/internal/adapters/driven/embedding/cache"
	ollamaembed "github.com/custodia-labs/pawclause/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/pawclause/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/pawclause/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/pawclause/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/pawclause/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/pawclause/internal/core/domain"
	"github.com/custodia-labs/pawclause/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Services holds the assembled AI services.
type Services struct {
	Embedding driven.EmbeddingService
	LLM       driven.LLMService

	// Cache is the caching layer around Embedding, nil when no cache store was given.
	Cache *cache.Service
}

// Close releases all resources held by the services.
func (s *Services) Close() error {
	var errs []error
	if s.Embedding != nil {
		errs = append(errs, s.Embedding.Close())
	}
	if s.LLM != nil {
		errs = append(errs, s.LLM.Close())
	}
	return errors.Join(errs...)
}

// Ping validates connectivity of both services.
func (s *Services) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if s.Embedding != nil {
		if err := s.Embedding.Ping(ctx); err != nil {
			return fmt.Errorf("embedding service unreachable: %w", err)
		}
	}
	if s.LLM != nil {
		if err := s.LLM.Ping(ctx); err != nil {
			return fmt.Errorf("llm service unreachable: %w", err)
		}
	}
	return nil
}

// Build creates the embedding and LLM services for settings. The embedding
// service is wrapped as cache(rateLimit(provider)) so cache hits never wait
// on the limiter. A nil store disables caching. Lexical retrieval needs no
// embeddings, so Embedding is nil in that mode.
func Build(settings domain.AppSettings, store driven.EmbeddingCacheStore) (*Services, error) {
	llm, err := CreateLLMService(&settings.LLM)
	if err != nil {
		return nil, err
	}
	out := &Services{LLM: NewRateLimitedLLM(llm, settings.RateLimit)}
	if !settings.Retrieval.Mode.RequiresEmbedding() {
		return out, nil
	}

	embedding, err := CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		llm.Close()
		return nil, err
	}
	out.Embedding = NewRateLimitedEmbedding(embedding, settings.RateLimit)
	if store != nil {
		out.Cache = cache.New(out.Embedding, store, settings.Embedding.CacheNamespace())
		out.Embedding = out.Cache
	}
	return out, nil
}

// CreateEmbeddingService creates the embedding service for the configured provider.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: embedding settings missing", domain.ErrConfiguration)
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderAnthropic:
		return nil, fmt.Errorf("%w: anthropic does not support embeddings, use ollama or openai",
			domain.ErrConfiguration)

	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider %q", domain.ErrConfiguration, settings.Provider)
	}
}

// CreateLLMService creates the LLM service for the configured provider.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: llm settings missing", domain.ErrConfiguration)
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout,
		})

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout,
		})

	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider %q", domain.ErrConfiguration, settings.Provider)
	}
}
