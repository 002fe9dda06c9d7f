// ABOUTME: MCP serve command
// ABOUTME: Starts the MCP server for AI agent integration

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/skycast/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for AI agents",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := ctxOf(cmd)
		if _, err := app.Resolver.Initialize(ctx); err != nil {
			return fmt.Errorf("failed to resolve location: %w", err)
		}

		var weather mcp.Weather
		if w := startWatcher(); w != nil {
			defer w.Stop()
			weather = w
		}

		server, err := mcp.NewServer(app.Resolver, weather)
		if err != nil {
			return err
		}
		return server.Serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
