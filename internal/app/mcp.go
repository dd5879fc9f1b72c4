package app

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/pipewatch/internal/mcp"
)

var mcpAI bool

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run an MCP stdio server for coding agents",
	Long: `Start a Model Context Protocol stdio server exposing pipewatch analysis
as tools:

  analyze_workflow   Suggestions for a workflow file
  optimize_workflow  Apply optimizations in memory and return the result
  get_run_history    Run statistics and patterns for a repository

Example MCP configuration:
  {"mcpServers":{"pipewatch":{"command":"pipewatch","args":["mcp"]}}}`,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().BoolVar(&mcpAI, "ai", false, "Include suggestions from the configured language model")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	srv := mcp.NewServer(appVersion, rt.logger)
	err = mcp.AddTools(srv, rt.optimizer(mcpAI), mcp.Defaults{
		Threshold: rt.cfg.Optimize.ConfidenceThreshold,
		RunLimit:  rt.cfg.GitHub.RunLimit,
	})
	if err != nil {
		return err
	}
	rt.logger.Info("mcp server started", "version", appVersion)
	return srv.Run(cmd.Context(), os.Stdin, cmd.OutOrStdout())
}
