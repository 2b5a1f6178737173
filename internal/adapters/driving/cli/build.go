package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var buildJSON bool

var buildCmd = &cobra.Command{
	Use:   "build [dir]",
	Short: "Ingest a corpus and build the next generation",
	Long: `Runs ingest and index build in one step. The new generation is committed
and served only once every chunk has been embedded. If the build fails the
current generation is left in place.`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().BoolVar(&buildJSON, "json", false, "output the rebuild report as JSON")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
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

	pipeline, err := app.Pipeline()
	if err != nil {
		return err
	}
	report, err := pipeline.Rebuild(ctx, source)
	if err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}

	if buildJSON {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	p := newPrinter(cmd.OutOrStdout())
	p.ingestReport(&report.Ingest)
	p.generation("Serving", &report.Generation)
	return nil
}
