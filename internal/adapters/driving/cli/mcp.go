package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/whis/internal/adapters/driving/mcp"
	"github.com/custodia-labs/whis/internal/connectors/filesystem"
	"github.com/custodia-labs/whis/internal/logger"
)

var (
	mcpPort     int
	mcpWatchDir string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so that an assistant can retrieve
sanitised, policy-checked context.

The server exposes the retrieve tool and the whis://manifest and
whis://generations resources. By default it speaks JSON-RPC over stdio.
Use --port to serve streamable HTTP instead.

With --watch the server also rebuilds the index whenever the given corpus
directory changes. Queries keep answering from the previous generation until
the new one is committed.

Examples:
  # Stdio mode
  whis mcp serve

  # HTTP mode with live rebuilds
  whis mcp serve --port 8080 --watch ./corpus`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntVarP(&mcpPort, "port", "p", 0, "HTTP port (0 = use stdio)")
	mcpServeCmd.Flags().StringVar(&mcpWatchDir, "watch", "", "corpus directory to watch and rebuild from")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	var source *filesystem.Source
	if mcpWatchDir != "" {
		var err error
		if source, err = openSource(ctx, mcpWatchDir); err != nil {
			return err
		}
	}

	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	server, err := mcp.NewServer(
		&mcp.Ports{Retrieval: app.Retrieval, Index: app.Index},
		mcp.WithVersion(version),
	)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	if source != nil {
		pipeline, err := app.Pipeline()
		if err != nil {
			return err
		}
		// Stdout carries the protocol in stdio mode, so reports go to the log.
		rebuild := rebuildFunc(pipeline, source, func(report string) { logger.Info("%s", report) })
		g.Go(func() error {
			if err := rebuild(ctx); err != nil {
				logger.Error("initial build failed: %v", err)
			}
			return filesystem.NewWatcher(source, watchDebounce).Run(ctx, rebuild)
		})
	}

	g.Go(func() error {
		if mcpPort > 0 {
			addr := fmt.Sprintf(":%d", mcpPort)
			logger.Info("MCP server listening on http://localhost%s/mcp", addr)
			return server.RunHTTP(ctx, addr)
		}
		return server.Run(ctx)
	})

	return g.Wait()
}
