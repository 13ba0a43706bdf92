// Command pawclause answers pet-insurance questions from policy documents.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/custodia-labs/pawclause/internal/adapters/driven/ai"
	"github.com/custodia-labs/pawclause/internal/adapters/driven/config/file"
	"github.com/custodia-labs/pawclause/internal/adapters/driven/index/bm25"
	"github.com/custodia-labs/pawclause/internal/adapters/driven/index/chromem"
	"github.com/custodia-labs/pawclause/internal/adapters/driven/records"
	"github.com/custodia-labs/pawclause/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/pawclause/internal/adapters/driving/cli"
	"github.com/custodia-labs/pawclause/internal/core/ports/driven"
	"github.com/custodia-labs/pawclause/internal/core/services"
	"github.com/custodia-labs/pawclause/internal/guard"
	"github.com/custodia-labs/pawclause/internal/logger"
	"github.com/custodia-labs/pawclause/internal/normalisers/policy"
	"github.com/custodia-labs/pawclause/internal/postprocessors"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	configDir, err := file.DefaultDir()
	if err != nil {
		return err
	}
	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}

	settingsService := services.NewSettingsService(configStore, filepath.Join(configDir, "data"))
	settingsService.SetCredentials(ai.NewCredentialResolver(configDir))

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	store, err := sqlite.NewStore(settings.DataDir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	perf := services.NewPerformanceLog(store.QueryLogStore())
	if err := perf.Load(ctx); err != nil {
		logger.Warn("performance log not loaded: %v", err)
	}

	prompts, err := file.NewPromptStore(filepath.Join(configDir, "prompts"))
	if err != nil {
		return err
	}

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Settings:    settingsService,
		Feedback:    services.NewFeedbackService(store.FeedbackStore()),
		Performance: perf,
		Engine: func(_ context.Context) (*cli.Engine, error) {
			return buildEngine(settingsService, store, prompts, perf)
		},
	})
	defer func() {
		if err := cli.Shutdown(); err != nil {
			logger.Warn("shutdown: %v", err)
		}
	}()

	return cli.Execute(ctx)
}

// buildEngine wires the AI providers into the index, retrieval, answer and
// query services.
func buildEngine(
	settingsService *services.SettingsService,
	store *sqlite.Store,
	prompts driven.PromptStore,
	perf *services.PerformanceLog,
) (*cli.Engine, error) {
	settings, err := settingsService.Resolved()
	if err != nil {
		return nil, err
	}

	svcs, err := ai.Build(*settings, store.EmbeddingCacheStore())
	if err != nil {
		return nil, err
	}

	pipeline, err := postprocessors.NewIndexPipeline(settings.Index)
	if err != nil {
		svcs.Close() //nolint:errcheck
		return nil, fmt.Errorf("build chunking pipeline: %w", err)
	}

	var vectors driven.VectorIndexFactory
	if svcs.Embedding != nil {
		vectors = chromem.NewFactory()
	}

	indexService := services.NewIndexService(
		records.NewLoader(),
		policy.New(settings.Index.TextFields),
		pipeline,
		svcs.Embedding,
		vectors,
		bm25.Factory{},
		services.IndexConfig{
			Companies: settings.Companies,
			DataDir:   settings.DataDir,
			BatchSize: settings.Index.BatchSize,
		},
	)

	stopTerms, err := guard.LoadStopTermsFile(settings.StopTermsPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		svcs.Close() //nolint:errcheck
		return nil, err
	}

	cfg := services.AnswerConfig{
		TopK:        settings.Retrieval.TopK,
		Parallel:    settings.Retrieval.Parallel,
		Temperature: settings.LLM.Temperature,
		MaxTokens:   settings.LLM.MaxTokens,
		Timeout:     settings.LLM.Timeout,
	}
	retrieval := services.NewRetrievalService(indexService, svcs.Embedding, settings.Retrieval.Mode)
	answers := services.NewAnswerService(guard.New(stopTerms), retrieval, indexService, svcs.LLM, prompts, cfg)

	logger.Debug("engine ready: mode=%s embedding=%s llm=%s",
		settings.Retrieval.Mode, modelName(svcs.Embedding), modelName(svcs.LLM))

	return &cli.Engine{
		Index: indexService,
		Query: services.NewQueryService(answers, svcs.LLM, prompts, perf, cfg),
		Close: svcs.Close,
	}, nil
}

func modelName(svc interface{ ModelName() string }) string {
	if svc == nil {
		return "none"
	}
	return svc.ModelName()
}
