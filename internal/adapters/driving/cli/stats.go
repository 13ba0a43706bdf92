package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var (
	statsReset bool
	statsJSON  bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show question performance statistics",
	Long: `Shows the success rate, average answer time, insurer usage and alerts
for answered questions. The log persists across runs; --reset clears it
after printing.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsReset, "reset", false, "clear the performance log after printing")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output statistics as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if performanceService == nil {
		return errors.New("performance service not configured")
	}

	stats := performanceService.PerformanceStats()

	if statsJSON {
		if err := outputJSON(cmd, stats); err != nil {
			return err
		}
	} else {
		out := cmd.OutOrStdout()
		cmd.Println(render(out, headingStyle, "Performance"))
		cmd.Printf("  Questions:    %d\n", stats.TotalQueries)
		cmd.Printf("  Successful:   %d (%.1f%%)\n", stats.SuccessfulQueries, stats.SuccessRate)
		cmd.Printf("  Average time: %.2fs\n", stats.AverageExecutionTime)

		if len(stats.CompanyUsage) > 0 {
			cmd.Println()
			cmd.Println(render(out, headingStyle, "Insurer usage"))
			names := make([]string, 0, len(stats.CompanyUsage))
			for name := range stats.CompanyUsage {
				names = append(names, name)
			}
			sort.Slice(names, func(i, j int) bool {
				ci, cj := stats.CompanyUsage[names[i]], stats.CompanyUsage[names[j]]
				if ci != cj {
					return ci > cj
				}
				return names[i] < names[j]
			})
			for _, name := range names {
				cmd.Printf("  %-30s %d\n", name, stats.CompanyUsage[name])
			}
		}

		if len(stats.Alerts) > 0 {
			cmd.Println()
			cmd.Println(render(out, warnStyle, "Alerts"))
			for _, a := range stats.Alerts {
				cmd.Printf("  - %s\n", a)
			}
		}
	}

	if statsReset {
		if err := performanceService.ResetPerformance(cmd.Context()); err != nil {
			return fmt.Errorf("reset failed: %w", err)
		}
		if !statsJSON {
			cmd.Println("\nPerformance log cleared.")
		}
	}
	return nil
}
