// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - RecordLoader: Reads an insurer's source file into raw records
//   - RecordNormaliser: Cleans and relevance-filters raw records into documents
//   - PostProcessor: Turns documents into chunks (the chunker)
//   - EmbeddingService: Generates vector embeddings for chunks and queries
//   - EmbeddingCacheStore: Durable content-addressed embedding cache
//   - VectorIndexFactory / VectorIndex: Per-company nearest-neighbour search
//   - LexicalIndexFactory / LexicalIndex: Per-company BM25 search
//   - LLMService: Answer, summary and recommendation generation
//   - PromptStore: Prompt templates
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
//   - FeedbackStore: Feedback persistence. Without it, feedback commands are disabled.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
