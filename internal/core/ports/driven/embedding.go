// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Note: This is separate from VectorIndex which stores and searches vectors.
// EmbeddingService generates vectors; VectorIndex stores them.
//
// Implementations may include:
//   - OpenAI (text-embedding-ada-002, text-embedding-3-small)
//   - Ollama (nomic-embed-text, bge-m3)
//   - The caching and rate limiting decorators wrapping either of the above
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one logical call.
	// The result has one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 768, 1536).
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// EmbeddingCacheStore persists embeddings keyed by a content hash.
// Writes are idempotent: storing an existing key is a no-op.
type EmbeddingCacheStore interface {
	// GetEmbeddings returns the stored vectors for the given keys.
	// Missing keys are absent from the result.
	GetEmbeddings(ctx context.Context, namespace string, keys []string) (map[string][]float32, error)

	// PutEmbeddings stores vectors by key.
	PutEmbeddings(ctx context.Context, namespace string, entries map[string][]float32) error

	// CountEmbeddings returns the number of vectors stored under the namespace.
	CountEmbeddings(ctx context.Context, namespace string) (int, error)
}
