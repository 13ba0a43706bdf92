package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/pawclause/internal/adapters/driving/watcher"
	"github.com/custodia-labs/pawclause/internal/logger"
)

var watchDebounce = watcher.DefaultDebounce

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild indexes when policy files change",
	Long: `Builds every index, then watches the configured policy files and
rebuilds an insurer whenever its file is written. Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watcher.DefaultDebounce, "quiet period before rebuilding")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	e, err := loadIndexedEngine(cmd)
	if err != nil {
		return err
	}

	w := newWatcher(e)
	cmd.Printf("Watching %d directories. Press Ctrl+C to stop.\n", len(w.Dirs()))

	out := make(chan watcher.Rebuild)
	errc := make(chan error, 1)
	go func() {
		errc <- w.Run(cmd.Context(), out)
		close(out)
	}()

	for rb := range out {
		if rb.Err != nil {
			cmd.Printf("  %s  %s: %v\n", render(cmd.OutOrStdout(), warnStyle, "failed"), rb.Company, rb.Err)
			continue
		}
		printBuildResult(cmd, *rb.Result)
	}
	return <-errc
}

// newWatcher watches every configured insurer, including ones that failed
// to build, so fixing a file brings the insurer back.
func newWatcher(e *Engine) *watcher.Watcher {
	companies := e.Index.Companies()
	if settingsService != nil {
		if settings, err := settingsService.Get(); err == nil {
			companies = settings.CompanyNames()
		}
	}
	return watcher.New(e.Index, companies, watcher.WithDebounce(watchDebounce))
}

// watchInBackground runs a watcher until ctx is cancelled, logging rebuilds.
func watchInBackground(ctx context.Context, e *Engine) {
	w := newWatcher(e)
	go func() {
		if err := w.Run(ctx, nil); err != nil {
			logger.Warn("watcher stopped: %v", err)
		}
	}()
}
