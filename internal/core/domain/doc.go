// Package domain defines the core business entities for pawclause.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - RawRecord: One row or page read from an insurer's source file
//   - Document: A normalised, relevance-filtered policy passage
//   - Chunk: A retrievable window of a Document
//   - AnswerRecord: The outcome of answering one question
//   - Feedback: A user's rating of an answer
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
