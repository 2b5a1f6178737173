package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/whis/internal/core/domain"
)

var (
	generationsJSON  bool
	exportGeneration int64
	pruneKeep        int
)

const defaultPruneKeep = 5

var generationsCmd = &cobra.Command{
	Use:   "generations",
	Short: "List index generations",
	Long: `Lists every committed generation, oldest first. The generation being
served is marked with *.`,
	Args: cobra.NoArgs,
	RunE: runGenerations,
}

var activateCmd = &cobra.Command{
	Use:   "activate [id]",
	Short: "Serve an existing generation",
	Long:  `Moves the current pointer to an existing generation, for example to roll back a bad build.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runActivate,
}

var exportCmd = &cobra.Command{
	Use:   "export [dir]",
	Short: "Write a generation's artifacts to a directory",
	Long: `Writes chunks.jsonl, vectors.f32 and manifest.json for a generation.
The current generation is exported unless --generation is set.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var importCmd = &cobra.Command{
	Use:   "import [dir]",
	Short: "Commit a generation from exported artifacts",
	Long: `Reads artifacts written by 'whis export', commits them as a new generation
and serves it. The embedding dimension must match the configured embedder.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old generations",
	Long: `Deletes all but the newest --keep generations from the registry. The
generation being served is always kept, even after a rollback. Pruned
generations are recorded in the registry's audit table.`,
	Args: cobra.NoArgs,
	RunE: runPrune,
}

func init() {
	generationsCmd.Flags().BoolVar(&generationsJSON, "json", false, "output generations as JSON")
	exportCmd.Flags().Int64VarP(&exportGeneration, "generation", "g", 0, "generation to export (default current)")
	pruneCmd.Flags().IntVar(&pruneKeep, "keep", defaultPruneKeep, "number of recent generations to keep")
	rootCmd.AddCommand(generationsCmd, activateCmd, exportCmd, importCmd, pruneCmd)
}

func runGenerations(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	gens, err := app.Index.Generations(ctx)
	if err != nil {
		return fmt.Errorf("listing generations: %w", err)
	}
	if generationsJSON {
		return writeJSON(cmd.OutOrStdout(), gens)
	}

	var current int64
	cur, err := app.Index.Current(ctx)
	switch {
	case err == nil:
		current = cur.ID
	case !errors.Is(err, domain.ErrNoGeneration):
		return err
	}
	newPrinter(cmd.OutOrStdout()).generations(gens, current)
	return nil
}

func runActivate(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("%w: generation id %q", domain.ErrInvalidInput, args[0])
	}

	ctx := cmd.Context()
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Index.Activate(ctx, id); err != nil {
		return fmt.Errorf("activate generation %d: %w", id, err)
	}
	cmd.Printf("Serving generation %d.\n", id)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	gen, err := app.Index.Export(ctx, exportGeneration, args[0])
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	newPrinter(cmd.OutOrStdout()).generation("Exported", gen)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	gen, err := app.Index.Import(ctx, args[0])
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	newPrinter(cmd.OutOrStdout()).generation("Imported", gen)
	return nil
}

func runPrune(cmd *cobra.Command, _ []string) error {
	if pruneKeep < 1 {
		return fmt.Errorf("%w: --keep must be at least 1", domain.ErrInvalidInput)
	}

	ctx := cmd.Context()
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	pruned, err := app.Index.Prune(ctx, pruneKeep)
	if err != nil {
		return err
	}
	if len(pruned) == 0 {
		cmd.Println("Nothing to prune.")
		return nil
	}
	ids := make([]string, len(pruned))
	for i, id := range pruned {
		ids[i] = strconv.FormatInt(id, 10)
	}
	cmd.Printf("Pruned generations: %s\n", strings.Join(ids, ", "))
	return nil
}
