package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/pawclause/internal/core/domain"
)

var (
	indexCompany string
	indexJSON    bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the policy indexes",
	Long: `Loads each configured insurer's policy file, chunks and embeds it, and
reports what was indexed. Embeddings are cached so unchanged clauses are not
embedded again.

Use --company to rebuild a single insurer.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVarP(&indexCompany, "company", "c", "", "rebuild only this insurer")
	indexCmd.Flags().BoolVar(&indexJSON, "json", false, "output the build report as JSON")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	e, err := loadEngine(cmd.Context())
	if err != nil {
		return err
	}

	if indexCompany != "" {
		result, err := e.Index.BuildCompany(cmd.Context(), indexCompany)
		if err != nil {
			return fmt.Errorf("index %s: %w", indexCompany, err)
		}
		if indexJSON {
			return outputJSON(cmd, result)
		}
		printBuildResult(cmd, *result)
		return nil
	}

	report, err := e.Index.BuildAll(cmd.Context())
	if err != nil {
		return fmt.Errorf("index failed: %w", err)
	}
	if indexJSON {
		return outputJSON(cmd, report)
	}

	for _, c := range report.Companies {
		printBuildResult(cmd, c)
	}
	cmd.Printf("\nIndexed %d of %d insurers in %s\n",
		len(report.Built()), len(report.Companies), report.Duration.Round(time.Millisecond))
	if len(report.Built()) == 0 {
		return domain.ErrNoIndexAvailable
	}
	return nil
}

func printBuildResult(cmd *cobra.Command, r domain.CompanyBuildResult) {
	out := cmd.OutOrStdout()
	if r.Skipped {
		cmd.Printf("  %s  %s\n", render(out, warnStyle, "skipped"), r.Company)
		if r.Error != "" {
			cmd.Printf("      %s\n", r.Error)
		}
		return
	}

	cmd.Printf("  %s  %s: %d records, %d documents, %d chunks indexed\n",
		render(out, companyStyle, "ok"), r.Company, r.Records, r.Documents, r.Indexed)
	if len(r.FailedBatches) > 0 {
		cmd.Printf("      %s %v\n", render(out, warnStyle, "failed batches:"), r.FailedBatches)
	}
}
