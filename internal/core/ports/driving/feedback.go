package driving

import (
	"context"

	"github.com/custodia-labs/pawclause/internal/core/domain"
)

// FeedbackService records and aggregates answer feedback.
type FeedbackService interface {
	// Submit validates and stores feedback, returning its id.
	Submit(ctx context.Context, fb domain.Feedback) (int64, error)

	// Stats aggregates feedback from the last days.
	Stats(ctx context.Context, days int) (*domain.FeedbackStats, error)
}
