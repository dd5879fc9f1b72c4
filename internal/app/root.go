// Package app contains the Cobra command tree for pipewatch.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var appVersion = "dev"

// SetVersion sets the application version (called from main with ldflags value).
func SetVersion(v string) {
	appVersion = v
	rootCmd.Version = v
}

var (
	flagNoColor bool
	flagJSON    bool
	flagVerbose bool
	flagConfig  string
)

var rootCmd = &cobra.Command{
	Use:   "pipewatch",
	Short: "Optimization suggestions for CI pipelines",
	Long: `pipewatch inspects GitHub Actions workflow files and their run history
and suggests optimizations: dependency caching, concurrency control, job
parallelization and test matrices. High-confidence changes can be applied
to the workflow automatically, with a backup of the original.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, "pipewatch", appVersion)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Use a subcommand:")
		fmt.Fprintln(w, "  analyze   Suggest optimizations for a workflow file")
		fmt.Fprintln(w, "  optimize  Apply high-confidence optimizations to a workflow file")
		fmt.Fprintln(w, "  history   Analyze recent runs of a repository")
		fmt.Fprintln(w, "  watch     Monitor run history and alert on regressions")
		fmt.Fprintln(w, "  doctor    Check configuration and credentials")
		fmt.Fprintln(w, "  mcp       Run an MCP stdio server for coding agents")
		return nil
	},
}

// Execute is the entry point called from main.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default: ~/.config/pipewatch/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose output")
}
