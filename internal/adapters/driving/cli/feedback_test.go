package cli

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pawclause/internal/core/domain"
)

func TestFeedbackSubmitCmd_HasCriterionFlags(t *testing.T) {
	for _, c := range domain.AllCriteria() {
		assert.NotNil(t, feedbackSubmitCmd.Flags().Lookup(string(c)), "missing flag for %s", c)
	}
}

func TestFeedbackSubmitCmd_Saves(t *testing.T) {
	env := setupTestServices(t)

	out, err := execute(t, "feedback", "submit",
		"-q", "수술비?", "-a", "보장됩니다", "-c", "A", "--comment", "좋아요",
		"--accuracy", "5", "--completeness", "4", "--clarity", "4",
		"--usefulness", "3", "--friendliness", "4")

	require.NoError(t, err)
	assert.Contains(t, out, "Feedback #1 saved (overall 4.0)")

	items, err := env.feedback.ListFeedbackSince(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "A", items[0].Company)
	assert.Equal(t, "좋아요", items[0].Comment)
	assert.Equal(t, 5, items[0].Scores[domain.CriterionAccuracy])
}

func TestFeedbackSubmitCmd_MissingScore(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "feedback", "submit", "-q", "수술비?", "--accuracy", "5")

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestFeedbackStatsCmd(t *testing.T) {
	env := setupTestServices(t)
	scores := make(map[domain.Criterion]int)
	for _, c := range domain.AllCriteria() {
		scores[c] = 4
	}
	scores[domain.CriterionFriendliness] = 2
	_, err := env.feedback.SaveFeedback(context.Background(), &domain.Feedback{
		Company: "A", Scores: scores, CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	out, err := execute(t, "feedback", "stats", "--days", "7")

	require.NoError(t, err)
	assert.Contains(t, out, "Feedback (last 7 days)")
	assert.Contains(t, out, "Ratings: 1, overall 3.60")
	assert.Contains(t, out, "Strengths: 정확성, 완성도, 명확성, 실용성")
	assert.Contains(t, out, "Needs improvement: 친근함")
	assert.Contains(t, out, "By insurer")
}

func TestFeedbackStatsCmd_Empty(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "feedback", "stats")

	require.NoError(t, err)
	assert.Contains(t, out, "No feedback yet.")
}
