// Package cli implements the whis command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/whis/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	verboseFlag bool
	configDir   string
	dataDir     string
)

var rootCmd = &cobra.Command{
	Use:   "whis",
	Short: "Sanitised knowledge retrieval for security operations",
	Long: `Whis turns a directory of security runbooks and notes into a
sanitised, versioned vector index and answers analyst queries under
mode-specific evidence policies.

Secrets such as the pseudonymisation salt are read from the environment.
A .env file in the working directory is loaded first.`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading .env: %w", err)
		}
		logger.SetVerbose(verboseFlag)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.whis)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "registry directory (default ~/.whis/data)")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}
