package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/pawclause/internal/core/domain"
)

// FeedbackStore persists answer feedback.
type FeedbackStore interface {
	// SaveFeedback stores a validated feedback record and returns its id.
	SaveFeedback(ctx context.Context, fb *domain.Feedback) (int64, error)

	// ListFeedbackSince returns feedback created at or after since, newest first.
	ListFeedbackSince(ctx context.Context, since time.Time) ([]domain.Feedback, error)
}
