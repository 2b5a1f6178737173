package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/whis/internal/connectors/filesystem"
	"github.com/custodia-labs/whis/internal/core/services"
	"github.com/custodia-labs/whis/internal/logger"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Rebuild the index whenever the corpus changes",
	Long: `Builds a generation from dir, then watches it and builds the next
generation after each burst of changes. A failed rebuild is logged and the
previous generation keeps serving.

Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", filesystem.DefaultDebounce, "quiet period before a rebuild")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
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

	p := newPrinter(cmd.OutOrStdout())
	rebuild := rebuildFunc(pipeline, source, func(report string) { p.printf("%s\n", report) })
	if err := rebuild(ctx); err != nil {
		logger.Error("initial build failed: %v", err)
	}

	return filesystem.NewWatcher(source, watchDebounce).Run(ctx, rebuild)
}

// rebuildFunc adapts a pipeline rebuild to the watcher callback.
func rebuildFunc(pipeline *services.PipelineService, source *filesystem.Source, report func(string)) filesystem.RebuildFunc {
	return func(ctx context.Context) error {
		start := time.Now()
		r, err := pipeline.Rebuild(ctx, source)
		if err != nil {
			return err
		}
		report(formatRebuild(r.Generation.ID, r.Generation.ChunkCount, len(r.Ingest.Skipped), time.Since(start)))
		return nil
	}
}

func formatRebuild(id int64, chunks, skipped int, took time.Duration) string {
	msg := fmt.Sprintf("serving generation %d (%d chunks", id, chunks)
	if skipped > 0 {
		msg += fmt.Sprintf(", %d documents skipped", skipped)
	}
	return msg + ", " + took.Round(time.Millisecond).String() + ")"
}
