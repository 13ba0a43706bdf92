package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/pawclause/internal/core/domain"
)

var (
	compareCompanies []string
	compareJSON      bool
)

var compareCmd = &cobra.Command{
	Use:   "compare [question]",
	Short: "Compare insurers on one question",
	Long: `Answers the question separately for each insurer, in order.
Defaults to every indexed insurer.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCompare,
}

var (
	recommendCompanies []string
	recommendTop       int
)

var recommendCmd = &cobra.Command{
	Use:   "recommend [question...]",
	Short: "Recommend insurers from answers to several questions",
	Long: `Answers every question for each insurer, then ranks the insurers
against those answers. Pass each question as a separate argument.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRecommend,
}

func init() {
	compareCmd.Flags().StringSliceVarP(&compareCompanies, "company", "c", nil, "insurer to compare (repeatable)")
	compareCmd.Flags().BoolVar(&compareJSON, "json", false, "output the answer records as JSON")
	rootCmd.AddCommand(compareCmd)

	recommendCmd.Flags().StringSliceVarP(&recommendCompanies, "company", "c", nil, "insurer to consider (repeatable)")
	recommendCmd.Flags().IntVarP(&recommendTop, "top", "n", 3, "number of insurers to rank")
	rootCmd.AddCommand(recommendCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}

	e, err := loadIndexedEngine(cmd)
	if err != nil {
		return err
	}

	companies := compareCompanies
	if len(companies) == 0 {
		companies = e.Index.Companies()
	}

	records := e.Query.Compare(cmd.Context(), question, companies)
	if compareJSON {
		return outputJSON(cmd, records)
	}

	out := cmd.OutOrStdout()
	for i, rec := range records {
		if i > 0 {
			cmd.Println()
		}
		cmd.Println(render(out, companyStyle, "== "+companies[i]+" =="))
		printRecord(cmd, rec)
	}
	return nil
}

func runRecommend(cmd *cobra.Command, args []string) error {
	e, err := loadIndexedEngine(cmd)
	if err != nil {
		return err
	}

	companies := recommendCompanies
	if len(companies) == 0 {
		companies = e.Index.Companies()
	}

	var records []domain.AnswerRecord
	for _, q := range args {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		records = append(records, e.Query.Compare(cmd.Context(), q, companies)...)
	}

	ranking, err := e.Query.Recommend(cmd.Context(), records, recommendTop)
	if err != nil {
		return fmt.Errorf("recommend failed: %w", err)
	}

	cmd.Println(render(cmd.OutOrStdout(), headingStyle, "Recommendation"))
	cmd.Println(ranking)
	return nil
}
