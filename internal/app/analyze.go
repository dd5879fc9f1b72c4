package app

import (
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/pipewatch/internal/optimizer"
	"github.com/blackwell-systems/pipewatch/internal/workflow"
)

var (
	analyzeRepo     string
	analyzeWorkflow string
	analyzeLimit    int
	analyzeAI       bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <workflow.yml>",
	Short: "Suggest optimizations for a workflow file",
	Long: `Evaluate the optimization rules against a workflow file and print a
report of ranked suggestions. With --repo, recent runs are fetched from
GitHub and analyzed as well. With --ai (or ai.enabled in config), the
configured language model contributes suggestions that are merged with the
rule-based ones.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeRepo, "repo", "", "Repository (owner/name) whose run history to analyze")
	analyzeCmd.Flags().StringVar(&analyzeWorkflow, "workflow", "", "Only consider runs of this workflow name")
	analyzeCmd.Flags().IntVar(&analyzeLimit, "limit", 0, "Number of recent runs to fetch (default from config)")
	analyzeCmd.Flags().BoolVar(&analyzeAI, "ai", false, "Ask the configured language model for additional suggestions")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	doc, err := workflow.Load(args[0])
	if err != nil {
		return err
	}

	r := rt.optimizer(analyzeAI).Analyze(cmd.Context(), doc, optimizer.HistoryQuery{
		Repo:     analyzeRepo,
		Workflow: analyzeWorkflow,
		Limit:    rt.runLimit(analyzeLimit),
	})

	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), r)
	}
	renderReport(cmd.OutOrStdout(), r)
	return nil
}
