package driving

import (
	"context"

	"github.com/custodia-labs/pawclause/internal/core/domain"
)

// RetrievalService finds the chunks most relevant to a query.
type RetrievalService interface {
	// Retrieve returns up to k chunks for the company ranked by descending score.
	// An empty company searches every indexed company.
	Retrieve(ctx context.Context, company, query string, k int) ([]domain.ScoredChunk, error)
}
