package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/whis/internal/adapters/driven/artifacts"
	"github.com/custodia-labs/whis/internal/core/domain"
)

var indexAudit string

var indexCmd = &cobra.Command{
	Use:   "index [chunks.jsonl]",
	Short: "Build a generation from sanitised chunks",
	Long: `Embeds the chunks in a JSONL file produced by 'whis ingest', commits them
as a new generation and makes it current.

Pass the ingest report with --audit to record the salt the chunks were
sanitised with. Without it the generation is marked as built with an
unknown salt.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&indexAudit, "audit", "", "ingest report written by 'whis ingest --audit'")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	chunks, err := artifacts.ReadChunks(f)
	f.Close()
	if err != nil {
		return err
	}

	req := domain.BuildRequest{Chunks: chunks}
	if indexAudit != "" {
		report, err := readIngestReport(indexAudit)
		if err != nil {
			return err
		}
		req.SaltEpoch = report.SaltEpoch
		req.SecureSalt = report.SecureSalt
	}

	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	gen, err := app.Index.Build(ctx, req)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	newPrinter(cmd.OutOrStdout()).generation("Committed", gen)
	return nil
}

func readIngestReport(path string) (*domain.IngestReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	var report domain.IngestReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("%w: ingest report %s: %v", domain.ErrInvalidInput, path, err)
	}
	return &report, nil
}
