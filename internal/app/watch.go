package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/pipewatch/internal/output"
	"github.com/blackwell-systems/pipewatch/internal/watcher"
)

var (
	watchWorkflow string
	watchLimit    int
	watchInterval time.Duration
	watchQuiet    bool
	watchNotify   bool
)

const minWatchInterval = 30 * time.Second

var watchCmd = &cobra.Command{
	Use:   "watch <owner/name>",
	Short: "Monitor run history and alert on regressions",
	Long: `Poll a repository's recent GitHub Actions runs and alert when something
changes: new failed runs, a falling success rate, slower runs, or history
patterns appearing and clearing. Runs in the foreground until interrupted.

Examples:
  pipewatch watch acme/api                     # check every 10 minutes
  pipewatch watch acme/api --interval 2m       # check every 2 minutes
  pipewatch watch acme/api --workflow CI --notify`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchWorkflow, "workflow", "", "Only consider runs of this workflow name")
	watchCmd.Flags().IntVar(&watchLimit, "limit", 0, "Number of recent runs to fetch per check (default from config)")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 10*time.Minute, "Check interval (e.g. 5m, 1h)")
	watchCmd.Flags().BoolVar(&watchQuiet, "quiet", false, "Suppress terminal output")
	watchCmd.Flags().BoolVar(&watchNotify, "notify", false, "Send desktop notifications")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	repo := args[0]
	if !strings.Contains(repo, "/") {
		return fmt.Errorf("repository must be owner/name, got %q", repo)
	}
	if watchInterval < minWatchInterval {
		return fmt.Errorf("interval must be at least %s, got %s", minWatchInterval, watchInterval)
	}

	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	out := cmd.OutOrStdout()
	alertFn := func(a watcher.Alert) {
		rt.logger.Info("alert", "level", a.Level, "title", a.Title, "message", a.Message)
		if watchNotify {
			_ = watcher.Notify(a)
		}
		if !watchQuiet {
			printAlert(out, a)
		}
	}

	w := watcher.New(rt.githubClient(), watcher.Target{
		Repo:     repo,
		Workflow: watchWorkflow,
		Limit:    rt.runLimit(watchLimit),
	}, watchInterval, alertFn)

	initial, err := w.Baseline(cmd.Context())
	if err != nil {
		return err
	}
	if !watchQuiet {
		fmt.Fprintf(out, "pipewatch watching %s (checking every %s)\n", repo, watchInterval)
		summary := fmt.Sprintf("%d runs", len(initial.Runs))
		if st := initial.Analysis.Statistics; st != nil {
			summary += fmt.Sprintf(", %.0f%% success, avg %.0fs", st.SuccessRate*100, st.AvgDuration)
		}
		fmt.Fprintf(out, "[%s] %s Baseline: %s\n", time.Now().Format("15:04:05"), output.StyleSuccess.Render("✓"), summary)
	}

	err = w.Run(cmd.Context())
	if errors.Is(err, context.Canceled) {
		if !watchQuiet {
			fmt.Fprintln(out, "\nStopped.")
		}
		return nil
	}
	return err
}

// printAlert writes an alert as a timestamped, level-styled line.
func printAlert(w io.Writer, a watcher.Alert) {
	fmt.Fprintf(w, "[%s] %s %s\n", a.Time.Format("15:04:05"), alertIcon(a.Level), a.Title)
	if a.Message != "" {
		fmt.Fprintf(w, "           %s\n", output.StyleMuted.Render(a.Message))
	}
}

func alertIcon(level string) string {
	switch level {
	case watcher.LevelCritical:
		return output.StyleError.Render("✗")
	case watcher.LevelWarning:
		return output.StyleWarning.Render("!")
	default:
		return output.StyleSuccess.Render("✓")
	}
}
