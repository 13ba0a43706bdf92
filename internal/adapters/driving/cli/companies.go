package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "List configured insurers",
	Long:  `Lists the configured insurers and whether their policy files exist.`,
	Args:  cobra.NoArgs,
	RunE:  runCompanies,
}

func init() {
	rootCmd.AddCommand(companiesCmd)
}

func runCompanies(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	if len(settings.Companies) == 0 {
		cmd.Println("No insurers configured.")
		cmd.Println("Add one with 'pawclause settings company set <name> <path>'.")
		return nil
	}

	out := cmd.OutOrStdout()
	for _, c := range settings.Companies {
		path := c.Path
		if !filepath.IsAbs(path) && settings.DataDir != "" {
			path = filepath.Join(settings.DataDir, path)
		}
		status := render(out, companyStyle, "ok")
		if _, err := os.Stat(path); err != nil {
			status = render(out, warnStyle, "missing")
		}
		cmd.Printf("  %-8s %s\n", status, c.Name)
		cmd.Printf("           %s\n", path)
	}
	return nil
}
