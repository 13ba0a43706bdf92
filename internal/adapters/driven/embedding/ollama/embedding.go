// Package ollama provides an embedding service adapter using a local Ollama server.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/pawclause/internal/adapters/driven/httperr"
	"github.com/custodia-labs/pawclause/internal/core/domain"
	"github.com/custodia-labs/pawclause/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultModel         = "nomic-embed-text"
	DefaultTimeout       = 30 * time.Second
	DefaultDimensions    = 768
	DefaultMaxConcurrent = 3
)

// Config holds configuration for the Ollama embedding service.
type Config struct {
	// BaseURL is the Ollama server URL. Empty uses OLLAMA_HOST or the default.
	BaseURL string

	// Model is the embedding model (default: nomic-embed-text).
	Model string

	// Timeout bounds a single embedding request.
	Timeout time.Duration

	// Dimensions is the embedding vector size (model-dependent).
	Dimensions int

	// MaxConcurrent bounds parallel requests in EmbedBatch.
	MaxConcurrent int
}

// EmbeddingService generates embeddings using Ollama.
type EmbeddingService struct {
	client        *api.Client
	model         string
	timeout       time.Duration
	dimensions    int
	maxConcurrent int
}

// NewEmbeddingService creates a new Ollama embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	host, err := hostURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions == 0 {
		if d, ok := domain.EmbeddingDimensions()[cfg.Model]; ok {
			cfg.Dimensions = d
		} else {
			cfg.Dimensions = DefaultDimensions
		}
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}

	return &EmbeddingService{
		client:        api.NewClient(host, http.DefaultClient),
		model:         cfg.Model,
		timeout:       cfg.Timeout,
		dimensions:    cfg.Dimensions,
		maxConcurrent: cfg.MaxConcurrent,
	}, nil
}

// hostURL parses base or falls back to the OLLAMA_HOST environment.
func hostURL(base string) (*url.URL, error) {
	if base == "" {
		return envconfig.Host(), nil
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid ollama url %q: %v", domain.ErrConfiguration, base, err)
	}
	return u, nil
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.Embeddings(ctx, &api.EmbeddingRequest{
		Model:  s.model,
		Prompt: text,
	})
	if err != nil {
		return nil, classify(err, domain.ErrEmbeddingUnavailable)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("%w: ollama returned an empty embedding", domain.ErrEmbeddingUnavailable)
	}

	embedding := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		embedding[i] = float32(v)
	}
	return embedding, nil
}

// EmbedBatch embeds texts with bounded parallelism. The first failure
// cancels the remaining requests.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)
	for i, text := range texts {
		g.Go(func() error {
			vec, err := s.Embed(gctx, text)
			if err != nil {
				return fmt.Errorf("embed text %d: %w", i, err)
			}
			out[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping checks the server is up without running inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if err := s.client.Heartbeat(ctx); err != nil {
		return classify(err, domain.ErrEmbeddingUnavailable)
	}
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}

// classify maps ollama client errors onto domain errors.
func classify(err error, unavailable error) error {
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return httperr.Status("ollama", statusErr.StatusCode, statusErr.ErrorMessage, unavailable)
	}
	return httperr.Transport("ollama", err, unavailable)
}
