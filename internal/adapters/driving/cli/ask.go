package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/pawclause/internal/core/domain"
)

var (
	askCompanies []string
	askSummary   bool
	askJSON      bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about pet-insurance policies",
	Long: `Answers a question from the indexed policy documents with citations.

Without --company every indexed insurer is searched and the best matching
clauses are used. Repeat --company to restrict the answer to some insurers.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringSliceVarP(&askCompanies, "company", "c", nil, "insurer to answer for (repeatable)")
	askCmd.Flags().BoolVar(&askSummary, "summary", false, "add key points, caveats and advice")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer record as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}

	e, err := loadIndexedEngine(cmd)
	if err != nil {
		return err
	}

	rec := e.Query.Process(cmd.Context(), question, askCompanies)
	if askSummary && rec.Status == domain.AnswerStatusSuccess {
		summary, err := e.Query.Summarise(cmd.Context(), rec)
		if err != nil {
			cmd.PrintErrf("summary failed: %v\n", err)
		} else {
			rec.Summary = summary
		}
	}

	if askJSON {
		return outputJSON(cmd, rec)
	}
	printRecord(cmd, rec)
	return nil
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func printRecord(cmd *cobra.Command, rec domain.AnswerRecord) {
	out := cmd.OutOrStdout()

	switch {
	case rec.Status == domain.AnswerStatusFailed:
		cmd.Println(render(out, errorStyle, "Answer failed"))
	case rec.Status.IsRefusal():
		cmd.Println(render(out, warnStyle, "Question refused"))
	case rec.Status == domain.AnswerStatusEmpty:
		cmd.Println(render(out, warnStyle, "No matching clauses"))
	}

	cmd.Println(render(out, answerStyle, rec.Answer))

	if len(rec.AnsweredCompanies) > 0 {
		cmd.Printf("Answered by: %s\n", render(out, companyStyle, strings.Join(rec.AnsweredCompanies, ", ")))
	}
	if len(rec.Sources) > 0 {
		cmd.Println(render(out, headingStyle, "Sources:"))
		for i, src := range rec.Sources {
			cmd.Printf("  [%d] %s\n", i+1, render(out, sourceStyle, src.Format()))
		}
	}
	if rec.Summary != "" {
		cmd.Println()
		cmd.Println(render(out, headingStyle, "Summary:"))
		cmd.Println(rec.Summary)
	}
	cmd.Printf("Time: %.2fs\n", rec.ExecutionTime)
}
