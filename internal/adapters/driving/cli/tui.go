package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/whis/internal/adapters/driving/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive query console",
	Long: `Launch the interactive terminal console for Whis.

The console runs queries against the served generation in teacher or
assistant mode, shows the policy verdict with its reasons, and lets you
inspect each sanitised candidate. The generations screen rolls the
current pointer back or forward.

Controls:
  ↑/k, ↓/j - Navigate
  Tab      - Switch mode
  Enter    - Query / Expand
  Esc      - Back
  Ctrl-C   - Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("panic in TUI: %v", r)
		}
	}()

	ctx := cmd.Context()
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	console, err := tui.NewApp(tui.NewPorts(app.Retrieval, app.Index))
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}

	if err := console.WithContext(ctx).Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
