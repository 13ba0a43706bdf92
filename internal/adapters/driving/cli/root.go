// Package cli provides the pawclause command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/pawclause/internal/core/domain"
	"github.com/custodia-labs/pawclause/internal/core/ports/driving"
	"github.com/custodia-labs/pawclause/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var verbose bool

// IndexEngine builds indexes and maps companies to their source files.
type IndexEngine interface {
	driving.IndexService
	SourcePath(company string) (string, bool)
	CompanyForPath(path string) (string, bool)
}

// Engine holds the services that need the AI providers.
type Engine struct {
	Index IndexEngine
	Query driving.QueryService

	// Close releases provider connections. May be nil.
	Close func() error
}

// EngineFactory builds the engine on first use.
type EngineFactory func(ctx context.Context) (*Engine, error)

// Services holds the services wired into the commands.
// Settings, Feedback and Performance work without any AI provider.
type Services struct {
	Settings    driving.SettingsService
	Feedback    driving.FeedbackService
	Performance driving.PerformanceReporter
	Engine      EngineFactory
}

var (
	settingsService    driving.SettingsService
	feedbackService    driving.FeedbackService
	performanceService driving.PerformanceReporter
	engineFactory      EngineFactory

	engineOnce sync.Once
	engine     *Engine
	engineErr  error
)

var rootCmd = &cobra.Command{
	Use:   "pawclause",
	Short: "Answer pet-insurance questions from policy documents",
	Long: `pawclause indexes Korean pet-insurance policy documents per insurer and
answers questions about coverage, exclusions and claims with citations.

Configure insurers with 'pawclause settings company set', build the indexes
with 'pawclause index', then ask with 'pawclause ask'.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetServices wires the services used by the commands.
func SetServices(s Services) {
	settingsService = s.Settings
	feedbackService = s.Feedback
	performanceService = s.Performance
	engineFactory = s.Engine

	engineOnce = sync.Once{}
	engine = nil
	engineErr = nil
}

// SetVersion sets the version reported by 'pawclause version'.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// Shutdown closes the engine if one was built.
func Shutdown() error {
	if engine == nil || engine.Close == nil {
		return nil
	}
	return engine.Close()
}

// loadEngine builds the engine once per process.
func loadEngine(ctx context.Context) (*Engine, error) {
	if engineFactory == nil {
		return nil, errors.New("engine not configured")
	}
	engineOnce.Do(func() {
		engine, engineErr = engineFactory(ctx)
	})
	if engineErr != nil {
		return nil, engineErr
	}
	return engine, nil
}

// loadIndexedEngine builds the engine and every company index.
func loadIndexedEngine(cmd *cobra.Command) (*Engine, error) {
	e, err := loadEngine(cmd.Context())
	if err != nil {
		return nil, err
	}
	if len(e.Index.Companies()) > 0 {
		return e, nil
	}

	report, err := e.Index.BuildAll(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("build indexes: %w", err)
	}
	for _, c := range report.Companies {
		if c.Skipped {
			cmd.PrintErrf("skipped %s: %s\n", c.Company, c.Error)
		}
	}
	if len(report.Built()) == 0 {
		return nil, domain.ErrNoIndexAvailable
	}
	return e, nil
}
