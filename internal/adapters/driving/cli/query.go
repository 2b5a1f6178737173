package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/whis/internal/core/domain"
)

var (
	queryMode string
	queryK    int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Retrieve knowledge base context for a question",
	Long: `Embeds the question, retrieves the nearest chunks from the current
generation and evaluates the mode's evidence policy.

Modes:
  teacher   - general explanation; requires several distinct sources
  assistant - concrete actions; requires ATT&CK and tool references

A rejected verdict is printed with its reasons and exits successfully.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVarP(&queryMode, "mode", "m", string(domain.ModeTeacher), "retrieval mode (teacher|assistant)")
	queryCmd.Flags().IntVarP(&queryK, "k", "k", 0, "number of candidates (default from the mode policy)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output the result as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	mode, err := domain.ParseMode(queryMode)
	if err != nil {
		return fmt.Errorf("mode %q: %w", queryMode, err)
	}

	ctx := cmd.Context()
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	result, err := app.Retrieval.Query(ctx, strings.Join(args, " "), mode, queryK)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	newPrinter(cmd.OutOrStdout()).result(result)
	return nil
}
