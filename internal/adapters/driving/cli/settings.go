package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/pawclause/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure insurers, retrieval mode, AI providers, and other options.

API keys are never stored by these commands. They are read from the
OPENAI_API_KEY / ANTHROPIC_API_KEY environment variables, a .env file, or
openaikey.txt / anthropickey.txt in the config directory.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsCompanyCmd = &cobra.Command{
	Use:   "company",
	Short: "Manage insurers",
}

var settingsCompanySetCmd = &cobra.Command{
	Use:   "set [name] [path]",
	Short: "Add or update an insurer's policy file",
	Long: `Adds an insurer or changes its policy file. Relative paths are resolved
against the data directory. Supported files are .csv and .pdf.`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsCompanySet,
}

var settingsCompanyRemoveCmd = &cobra.Command{
	Use:   "remove [name]",
	Short: "Remove an insurer",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsCompanyRemove,
}

var settingsModeCmd = &cobra.Command{
	Use:   "mode [mode]",
	Short: "Set retrieval mode",
	Long: `Set how policy clauses are ranked for a question.

Available modes:
  vector  - Embedding similarity (requires embedding provider)
  lexical - BM25 keyword ranking (no embeddings needed)
  hybrid  - Vector + BM25 fused by reciprocal rank (requires embedding provider)

Without an argument the mode is chosen interactively.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSettingsMode,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Configure the embedding provider used to index and search policy clauses.`,
	RunE:  runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Configure the LLM provider used to write answers, summaries and recommendations.`,
	RunE:  runSettingsLLM,
}

func init() {
	settingsCompanyCmd.AddCommand(settingsCompanySetCmd)
	settingsCompanyCmd.AddCommand(settingsCompanyRemoveCmd)

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsCompanyCmd)
	settingsCmd.AddCommand(settingsModeCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Companies]")
	if len(settings.Companies) == 0 {
		cmd.Println("  (none)")
	}
	for _, c := range settings.Companies {
		cmd.Printf("  %s = %s\n", c.Name, c.Path)
	}
	cmd.Printf("  Data dir: %s\n", settings.DataDir)
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Mode: %s\n", settings.Retrieval.Mode.Description())
	cmd.Printf("  Top K: %d\n", settings.Retrieval.TopK)
	cmd.Printf("  Parallel: %t\n", settings.Retrieval.Parallel)
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	if settings.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	printAPIKey(cmd, settings.Embedding.Provider, settings.Embedding.APIKey)
	cmd.Println()

	cmd.Println("[LLM]")
	cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.LLM.Model)
	if settings.LLM.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
	}
	printAPIKey(cmd, settings.LLM.Provider, settings.LLM.APIKey)
	cmd.Printf("  Temperature: %.2f\n", settings.LLM.Temperature)
	cmd.Printf("  Max tokens: %d\n", settings.LLM.MaxTokens)
	cmd.Printf("  Timeout: %s\n", settings.LLM.Timeout)
	cmd.Println()

	cmd.Println("[Index]")
	cmd.Printf("  Chunk size: %d (overlap %d)\n", settings.Index.ChunkSize, settings.Index.ChunkOverlap)
	cmd.Printf("  Batch size: %d\n", settings.Index.BatchSize)
	cmd.Printf("  Text fields: %s\n", strings.Join(settings.Index.TextFields, ", "))
	cmd.Println()

	if problems := settingsService.Validate(); len(problems) > 0 {
		cmd.Println("Warnings:")
		for _, p := range problems {
			cmd.Printf("  - %s\n", p)
		}
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func printAPIKey(cmd *cobra.Command, provider domain.AIProvider, key string) {
	if !provider.RequiresAPIKey() {
		return
	}
	if key != "" {
		cmd.Printf("  API Key: %s\n", maskAPIKey(key))
	} else {
		cmd.Println("  API Key: (from environment)")
	}
}

func runSettingsCompanySet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	if err := settingsService.SetCompany(args[0], args[1]); err != nil {
		return fmt.Errorf("failed to set company: %w", err)
	}
	cmd.Printf("Company %s set to %s\n", args[0], args[1])
	return nil
}

func runSettingsCompanyRemove(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	if err := settingsService.RemoveCompany(args[0]); err != nil {
		return fmt.Errorf("failed to remove company: %w", err)
	}
	cmd.Printf("Company %s removed\n", args[0])
	return nil
}

func runSettingsMode(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	var selected domain.RetrievalMode
	if len(args) == 1 {
		selected = domain.RetrievalMode(strings.ToLower(strings.TrimSpace(args[0])))
	} else {
		reader := bufio.NewReader(cmd.InOrStdin())
		cmd.Println("Select Retrieval Mode")
		cmd.Println("---------------------")
		modes := domain.AllRetrievalModes()
		for i, mode := range modes {
			cmd.Printf("  %d. %s\n", i+1, mode.Description())
		}
		cmd.Print("\nEnter choice: ")
		idx := parseChoice(readLine(reader), len(modes), 0)
		if idx == 0 {
			return errors.New("invalid selection")
		}
		selected = modes[idx-1]
	}

	if err := settingsService.SetRetrievalMode(selected); err != nil {
		return fmt.Errorf("failed to set retrieval mode: %w", err)
	}
	cmd.Printf("Retrieval mode set to: %s\n", selected.Description())

	if selected.RequiresEmbedding() {
		settings, _ := settingsService.Get() //nolint:errcheck // Best-effort check
		if settings != nil && !settings.Embedding.Provider.SupportsEmbeddings() {
			cmd.Println("\nNote: This mode requires an embedding provider.")
			cmd.Println("Run 'pawclause settings embedding' to configure.")
		}
	}
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	provider, model := chooseProvider(cmd, reader, "Select Embedding Provider",
		domain.AllEmbeddingProviders(), domain.DefaultEmbeddingModels())

	if err := settingsService.SetEmbeddingProvider(provider, model); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}
	cmd.Printf("Embedding provider configured: %s (%s)\n", provider.Description(), model)
	cmd.Println("Run 'pawclause index' to rebuild with the new embeddings.")
	return nil
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	provider, model := chooseProvider(cmd, reader, "Select LLM Provider",
		domain.AllLLMProviders(), domain.DefaultLLMModels())

	if err := settingsService.SetLLMProvider(provider, model); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}
	cmd.Printf("LLM provider configured: %s (%s)\n", provider.Description(), model)
	return nil
}

func chooseProvider(
	cmd *cobra.Command,
	reader *bufio.Reader,
	title string,
	providers []domain.AIProvider,
	defaults map[domain.AIProvider]string,
) (domain.AIProvider, string) {
	cmd.Println(title)
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	provider := providers[idx-1]

	defaultModel := defaults[provider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}
	return provider, model
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
