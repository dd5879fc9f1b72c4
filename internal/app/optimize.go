package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/pipewatch/internal/optimizer"
	"github.com/blackwell-systems/pipewatch/internal/report"
)

var (
	optimizeApply     bool
	optimizeThreshold float64
	optimizePRBody    bool
	optimizeDiff      bool
	optimizeRepo      string
	optimizeWorkflow  string
	optimizeLimit     int
	optimizeAI        bool
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize <workflow.yml>",
	Short: "Apply high-confidence optimizations to a workflow file",
	Long: `Analyze a workflow file and apply every suggestion whose confidence meets
the threshold: caching, concurrency control and test matrices are applied
automatically, parallelization is reported for manual review.

Without --apply this is a dry run. With --apply the file is rewritten when at
least one change succeeded, after copying the original to <file>.backup.`,
	Args: cobra.ExactArgs(1),
	RunE: runOptimize,
}

func init() {
	optimizeCmd.Flags().BoolVar(&optimizeApply, "apply", false, "Write the optimized workflow back to disk")
	optimizeCmd.Flags().Float64Var(&optimizeThreshold, "threshold", 0, "Minimum confidence to apply (default from config)")
	optimizeCmd.Flags().BoolVar(&optimizePRBody, "pr-body", false, "Print a markdown pull-request body")
	optimizeCmd.Flags().BoolVar(&optimizeDiff, "diff", false, "Print a unified diff for each applied change")
	optimizeCmd.Flags().StringVar(&optimizeRepo, "repo", "", "Repository (owner/name) whose run history to analyze")
	optimizeCmd.Flags().StringVar(&optimizeWorkflow, "workflow", "", "Only consider runs of this workflow name")
	optimizeCmd.Flags().IntVar(&optimizeLimit, "limit", 0, "Number of recent runs to fetch (default from config)")
	optimizeCmd.Flags().BoolVar(&optimizeAI, "ai", false, "Ask the configured language model for additional suggestions")
	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	threshold := rt.cfg.Optimize.ConfidenceThreshold
	if cmd.Flags().Changed("threshold") {
		if optimizeThreshold < 0 || optimizeThreshold > 1 {
			return fmt.Errorf("--threshold must be within [0,1], got %v", optimizeThreshold)
		}
		threshold = optimizeThreshold
	}

	apply := optimizeApply || rt.cfg.Optimize.AutoApply
	res, err := rt.optimizer(optimizeAI).Optimize(cmd.Context(), args[0], optimizer.Options{
		History: optimizer.HistoryQuery{
			Repo:     optimizeRepo,
			Workflow: optimizeWorkflow,
			Limit:    rt.runLimit(optimizeLimit),
		},
		Threshold: threshold,
		AutoApply: apply,
	})
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	switch {
	case optimizePRBody:
		fmt.Fprint(w, report.PRBody(res.Report.Applications))
		return nil
	case flagJSON:
		return writeJSON(w, res.Report)
	}

	renderReport(w, res.Report)
	renderOutcomes(w, res.Report.Applications, optimizeDiff)
	renderSaveStatus(w, args[0], apply, res.Saved)
	return nil
}
