package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfiguration indicates a missing credential, missing source file
	// or an unusable setting.
	ErrConfiguration = errors.New("configuration error")

	// ErrNoIndexAvailable indicates a query targeted a company with no built index.
	ErrNoIndexAvailable = errors.New("no index available")

	// ErrNoDocuments indicates nothing survived relevance filtering for a company.
	ErrNoDocuments = errors.New("no documents to index")

	// ErrEmptyContext indicates retrieval returned nothing for the target companies.
	// It is reported through AnswerStatusEmpty, never raised to callers.
	ErrEmptyContext = errors.New("empty retrieval context")

	// ErrServiceUnavailable indicates the embedding or language model service failed.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrServiceTimeout indicates a language model call exceeded its deadline.
	ErrServiceTimeout = errors.New("service timeout")

	// ErrValidation indicates a feedback record failed validation.
	ErrValidation = errors.New("validation failed")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Nothing can be indexed or retrieved without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRateLimited indicates an outbound call could not acquire a rate limit token.
	ErrRateLimited = errors.New("rate limited")
)
