package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/pipewatch/internal/history"
	"github.com/blackwell-systems/pipewatch/internal/optimizer"
	"github.com/blackwell-systems/pipewatch/internal/report"
)

var (
	historyWorkflow string
	historyLimit    int
)

var historyCmd = &cobra.Command{
	Use:   "history <owner/name>",
	Short: "Analyze recent runs of a repository",
	Long: `Fetch recent GitHub Actions runs for a repository and report duration
statistics, the success rate, and patterns such as unstable durations or a
high failure rate.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyWorkflow, "workflow", "", "Only consider runs of this workflow name")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "Number of recent runs to fetch (default from config)")
	rootCmd.AddCommand(historyCmd)
}

// historyOutput is the JSON-serializable result of the history command.
type historyOutput struct {
	Repo     string              `json:"repo"`
	Analysis history.Analysis    `json:"history_analysis"`
	Source   report.SourceStatus `json:"source"`
}

func runHistory(cmd *cobra.Command, args []string) error {
	repo := args[0]
	if !strings.Contains(repo, "/") {
		return fmt.Errorf("repository must be owner/name, got %q", repo)
	}

	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	analysis, status := rt.optimizer(false).History(cmd.Context(), optimizer.HistoryQuery{
		Repo:     repo,
		Workflow: historyWorkflow,
		Limit:    rt.runLimit(historyLimit),
	})
	if status.State == report.SourceFailed {
		return fmt.Errorf("fetching run history: %s", status.Error)
	}

	w := cmd.OutOrStdout()
	if flagJSON {
		return writeJSON(w, historyOutput{Repo: repo, Analysis: analysis, Source: status})
	}
	renderHistory(w, analysis)
	return nil
}
