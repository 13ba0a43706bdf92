package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/pawclause/internal/core/domain"
)

var (
	feedbackQuestion string
	feedbackAnswer   string
	feedbackCompany  string
	feedbackComment  string
	feedbackSession  string
	feedbackScores   = make(map[domain.Criterion]*int)

	feedbackDays int
	feedbackJSON bool
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Record and review answer feedback",
}

var feedbackSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Rate an answer",
	Long: `Rates an answer from 1 to 5 on each criterion:
accuracy, completeness, clarity, usefulness and friendliness.`,
	Args: cobra.NoArgs,
	RunE: runFeedbackSubmit,
}

var feedbackStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise recent feedback",
	Args:  cobra.NoArgs,
	RunE:  runFeedbackStats,
}

func init() {
	f := feedbackSubmitCmd.Flags()
	f.StringVarP(&feedbackQuestion, "question", "q", "", "the question that was asked")
	f.StringVarP(&feedbackAnswer, "answer", "a", "", "the answer being rated")
	f.StringVarP(&feedbackCompany, "company", "c", "", "the insurer the answer was for")
	f.StringVar(&feedbackComment, "comment", "", "free-form comment")
	f.StringVar(&feedbackSession, "session", "", "session identifier")
	for _, c := range domain.AllCriteria() {
		score := new(int)
		feedbackScores[c] = score
		f.IntVar(score, string(c), 0, fmt.Sprintf("%s score (%d-%d)", c.Label(), domain.MinScore, domain.MaxScore))
	}
	feedbackCmd.AddCommand(feedbackSubmitCmd)

	feedbackStatsCmd.Flags().IntVarP(&feedbackDays, "days", "d", 30, "period in days")
	feedbackStatsCmd.Flags().BoolVar(&feedbackJSON, "json", false, "output statistics as JSON")
	feedbackCmd.AddCommand(feedbackStatsCmd)

	rootCmd.AddCommand(feedbackCmd)
}

func runFeedbackSubmit(cmd *cobra.Command, _ []string) error {
	if feedbackService == nil {
		return errors.New("feedback service not configured")
	}

	fb := domain.Feedback{
		Question:  feedbackQuestion,
		Answer:    feedbackAnswer,
		Company:   feedbackCompany,
		Comment:   feedbackComment,
		SessionID: feedbackSession,
		Scores:    make(map[domain.Criterion]int),
	}
	for c, score := range feedbackScores {
		if *score != 0 {
			fb.Scores[c] = *score
		}
	}

	id, err := feedbackService.Submit(cmd.Context(), fb)
	if err != nil {
		return fmt.Errorf("feedback rejected: %w", err)
	}
	cmd.Printf("Feedback #%d saved (overall %.1f)\n", id, fb.Overall())
	return nil
}

func runFeedbackStats(cmd *cobra.Command, _ []string) error {
	if feedbackService == nil {
		return errors.New("feedback service not configured")
	}

	stats, err := feedbackService.Stats(cmd.Context(), feedbackDays)
	if err != nil {
		return fmt.Errorf("failed to get feedback stats: %w", err)
	}
	if feedbackJSON {
		return outputJSON(cmd, stats)
	}

	out := cmd.OutOrStdout()
	cmd.Println(render(out, headingStyle, fmt.Sprintf("Feedback (last %d days)", stats.PeriodDays)))
	if stats.Total == 0 {
		cmd.Println("  No feedback yet.")
		return nil
	}

	cmd.Printf("  Ratings: %d, overall %.2f\n", stats.Total, stats.AverageOverall)
	for _, c := range domain.AllCriteria() {
		cmd.Printf("  %-14s %.2f\n", c.Label(), stats.CriteriaAverages[c])
	}
	if s := stats.Strengths(); len(s) > 0 {
		cmd.Printf("  Strengths: %s\n", joinCriteria(s))
	}
	if n := stats.NeedsImprovement(); len(n) > 0 {
		cmd.Printf("  %s %s\n", render(out, warnStyle, "Needs improvement:"), joinCriteria(n))
	}

	if len(stats.CompanyPerformance) > 0 {
		cmd.Println()
		cmd.Println(render(out, headingStyle, "By insurer"))
		for _, c := range stats.CompanyPerformance {
			cmd.Printf("  %-30s %.2f (%d)\n", c.Company, c.Average, c.Count)
		}
	}
	return nil
}

func joinCriteria(cs []domain.Criterion) string {
	labels := make([]string, len(cs))
	for i, c := range cs {
		labels[i] = c.Label()
	}
	return strings.Join(labels, ", ")
}
