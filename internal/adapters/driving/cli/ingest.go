package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/whis/internal/adapters/driven/artifacts"
	"github.com/custodia-labs/whis/internal/connectors/filesystem"
	"github.com/custodia-labs/whis/internal/core/domain"
)

var (
	ingestOut   string
	ingestAudit string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Sanitise a corpus directory into JSONL chunks",
	Long: `Reads every markdown and text document under dir, normalises it,
redacts sensitive values and splits it into chunks.

Chunks are written as JSON lines to --out, or to stdout when --out is not
set. Documents that cannot be read are skipped and listed in the summary.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestOut, "out", "o", "", "write chunks to this file instead of stdout")
	ingestCmd.Flags().StringVar(&ingestAudit, "audit", "", "write the ingest report as JSON to this file")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	source, err := openSource(ctx, args[0])
	if err != nil {
		return err
	}

	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	ingest, err := app.Ingest()
	if err != nil {
		return err
	}
	result, err := ingest.IngestSource(ctx, source)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	if ingestOut == "" {
		if err := artifacts.WriteChunks(cmd.OutOrStdout(), result.Chunks); err != nil {
			return err
		}
	} else if err := writeFile(ingestOut, func(w io.Writer) error {
		return artifacts.WriteChunks(w, result.Chunks)
	}); err != nil {
		return err
	}

	if ingestAudit != "" {
		if err := writeFile(ingestAudit, func(w io.Writer) error {
			return writeJSON(w, result.Report)
		}); err != nil {
			return err
		}
	}

	newPrinter(cmd.ErrOrStderr()).ingestReport(&result.Report)
	return nil
}

// openSource resolves dir and checks that it is a readable directory.
func openSource(ctx context.Context, dir string) (*filesystem.Source, error) {
	root, err := filesystem.ResolveRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	source := filesystem.New(root)
	if err := source.Validate(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return source, nil
}

// writeFile creates path and hands it to write.
func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
