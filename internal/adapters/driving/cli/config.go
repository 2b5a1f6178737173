package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/whis/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and change ~/.whis/config.toml.

Keys use dot notation, for example retrieval.teacher.min_sources.
Changes are validated before they are saved.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration key",
	Long: `Set a single configuration key. List values such as tool_tags take a
comma-separated list. sanitizer.extra_detectors takes one detector per line
in name|strategy|token|pattern form.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List configuration keys",
	Args:  cobra.NoArgs,
	RunE:  runConfigKeys,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate settings and check the embedding provider",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

var configEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure the embedding provider interactively",
	Args:  cobra.NoArgs,
	RunE:  runConfigEmbedding,
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd, configKeysCmd, configValidateCmd, configEmbeddingCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	svc, err := settingsFactory(configDir)
	if err != nil {
		return err
	}
	settings, err := svc.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("[Sanitizer]")
	cmd.Printf("  Chunk size: %d chars, overlap %d\n", settings.Sanitizer.MaxChars, settings.Sanitizer.Overlap)
	cmd.Printf("  Salt variable: %s", settings.Sanitizer.SaltEnv)
	if svc.Salt() == "" {
		cmd.Printf(" (not set)")
	}
	cmd.Println()
	cmd.Printf("  Allow insecure salt: %t\n", settings.Sanitizer.AllowInsecureSalt)
	cmd.Printf("  Workers: %d\n", settings.Sanitizer.Workers)
	cmd.Printf("  Auto tag: %t\n", settings.Sanitizer.AutoTag)
	for _, d := range settings.Sanitizer.ExtraDetectors {
		cmd.Printf("  Detector: %s\n", d)
	}
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	if settings.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		if settings.Embedding.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(settings.Embedding.APIKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	cmd.Printf("  Dimensions: %d, batch %d\n", settings.Embedding.Dimensions, settings.Embedding.BatchSize)
	cmd.Println()

	cmd.Println("[Index]")
	cmd.Printf("  Metric: %s\n", settings.Index.Metric)
	cmd.Printf("  Max query chars: %d\n", settings.Index.MaxQueryChars)
	cmd.Println()

	cmd.Println("[Retrieval]")
	for _, policy := range []domain.RetrievalPolicy{settings.Teacher, settings.Assistant} {
		cmd.Printf("  %s: k=%d min_sources=%d\n", policy.Mode, policy.K, policy.MinSources)
		for _, rule := range policy.RequiredTags {
			cmd.Printf("    %s: prefixes %s tags %s\n", rule.Name,
				strings.Join(rule.Prefixes, ","), strings.Join(rule.Tags, ","))
		}
	}
	cmd.Println()

	if err := settings.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("Configuration is valid.")
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	svc, err := settingsFactory(configDir)
	if err != nil {
		return err
	}
	if err := svc.Set(args[0], args[1]); err != nil {
		return err
	}
	cmd.Printf("Set %s.\n", args[0])
	return nil
}

func runConfigKeys(cmd *cobra.Command, _ []string) error {
	svc, err := settingsFactory(configDir)
	if err != nil {
		return err
	}
	for _, key := range svc.Keys() {
		cmd.Println(key)
	}
	return nil
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	svc, err := settingsFactory(configDir)
	if err != nil {
		return err
	}
	settings, err := svc.Get()
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	if svc.Salt() == "" && !settings.Sanitizer.AllowInsecureSalt {
		return domain.NewConfigurationError("sanitizer.salt_env", "$%s is not set", settings.Sanitizer.SaltEnv)
	}

	cmd.Print("Checking embedding provider... ")
	if err := svc.ValidateEmbeddingConfig(cmd.Context()); err != nil {
		cmd.Println("FAILED")
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")
	cmd.Println("Configuration is valid.")
	return nil
}

var embeddingProviders = []domain.AIProvider{
	domain.AIProviderHashing,
	domain.AIProviderOllama,
	domain.AIProviderOpenAI,
}

func runConfigEmbedding(cmd *cobra.Command, _ []string) error {
	svc, err := settingsFactory(configDir)
	if err != nil {
		return err
	}
	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("Select Embedding Provider")
	for i, p := range embeddingProviders {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(embeddingProviders), 1)
	provider := embeddingProviders[idx-1]

	// Setting the provider resets the model to the provider default.
	if err := svc.Set("embedding.provider", provider.String()); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}
	settings, err := svc.Get()
	if err != nil {
		return err
	}

	cmd.Printf("Enter model name [%s]: ", settings.Embedding.Model)
	if model := readLine(reader); model != "" {
		if err := svc.Set("embedding.model", model); err != nil {
			return err
		}
	}

	if provider.RequiresAPIKey() {
		cmd.Print("Enter API key (blank to use $OPENAI_API_KEY): ")
		key := readPassword(cmd.InOrStdin(), reader)
		cmd.Println()
		if key != "" {
			if err := svc.Set("embedding.api_key", key); err != nil {
				return err
			}
		}
	}

	cmd.Print("Validating configuration... ")
	if err := svc.ValidateEmbeddingConfig(cmd.Context()); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	settings, err = svc.Get()
	if err != nil {
		return err
	}
	cmd.Printf("Embedding provider configured: %s (%s)\n", provider.Description(), settings.Embedding.Model)
	cmd.Println("Existing generations keep their embedder; run 'whis build' to re-embed the corpus.")
	return nil
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

// readPassword reads without echo when in is an interactive terminal.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

