package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/blackwell-systems/pipewatch/internal/fixer"
	"github.com/blackwell-systems/pipewatch/internal/history"
	"github.com/blackwell-systems/pipewatch/internal/output"
	"github.com/blackwell-systems/pipewatch/internal/report"
	"github.com/blackwell-systems/pipewatch/internal/suggest"
	"github.com/blackwell-systems/pipewatch/internal/workflow"
)

// renderReport prints the optimization report in styled form.
func renderReport(w io.Writer, r *report.Report) {
	fmt.Fprintln(w, output.Section("Summary"))
	fmt.Fprintln(w)
	renderMetric(w, "Optimizations", fmt.Sprintf("%d", r.Summary.TotalOptimizations))
	renderMetric(w, "High impact", fmt.Sprintf("%d", r.Summary.HighImpactCount))
	renderMetric(w, "Estimated savings", output.Minutes(r.Summary.EstimatedTotalSavingsMinutes))
	renderSource(w, "Run history", r.Sources.History)
	renderSource(w, "AI suggestions", r.Sources.AI)

	if len(r.Optimizations) == 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, " %s\n\n", output.StyleSuccess.Render("No optimizations found."))
	} else {
		fmt.Fprintln(w, output.Section("Optimizations"))
		fmt.Fprintln(w)
		for i, s := range r.Optimizations {
			renderSuggestion(w, i+1, s)
		}
	}

	if !r.HistoryAnalysis.Empty() {
		renderHistory(w, r.HistoryAnalysis)
	}

	if len(r.Recommendations) > 0 {
		fmt.Fprintln(w, output.Section("Top recommendations"))
		fmt.Fprintln(w)
		for i, rec := range r.Recommendations {
			fmt.Fprintf(w, "  %d. %s\n", i+1, rec)
		}
		fmt.Fprintln(w)
	}
}

func renderMetric(w io.Writer, label, value string) {
	fmt.Fprintf(w, "  %s %s\n", output.StyleLabel.Render(label), output.StyleValue.Render(value))
}

func renderSource(w io.Writer, label string, s report.SourceStatus) {
	value := string(s.State)
	if s.State == report.SourceOK {
		value = fmt.Sprintf("%d", s.Count)
	}
	line := fmt.Sprintf("  %s %s", output.StyleLabel.Render(label), output.StyleValue.Render(value))
	if s.Error != "" {
		line += " " + output.StyleMuted.Render(s.Error)
	}
	fmt.Fprintln(w, line)
}

func renderSuggestion(w io.Writer, n int, s suggest.Suggestion) {
	impact := output.ImpactStyle(s.Impact).Render(strings.ToUpper(s.Impact.String()))
	fmt.Fprintf(w, "  %d. %s  %s\n", n, output.StyleBold.Render(s.Title), impact)
	fmt.Fprintf(w, "     %s\n", s.Description)
	fmt.Fprintf(w, "     %s  %s  %s\n",
		output.StyleMuted.Render(string(s.Type)),
		output.ConfidenceBar(s.Confidence, 10),
		output.StyleMuted.Render("saves ~"+output.Minutes(s.SavingsMinutes())),
	)
	if len(s.AffectedJobs) > 0 {
		fmt.Fprintf(w, "     %s\n", output.StyleMuted.Render("jobs: "+strings.Join(s.AffectedJobs, ", ")))
	}
	fmt.Fprintln(w)
}

// renderHistory prints run statistics and detected patterns.
func renderHistory(w io.Writer, a history.Analysis) {
	fmt.Fprintln(w, output.Section("Run history"))
	fmt.Fprintln(w)
	if a.Statistics == nil {
		fmt.Fprintf(w, "  %s\n\n", output.StyleMuted.Render("No completed runs found."))
		return
	}

	st := a.Statistics
	renderMetric(w, "Runs", fmt.Sprintf("%d", st.TotalRuns))
	renderMetric(w, "Success rate", fmt.Sprintf("%.1f%%", st.SuccessRate*100))
	renderMetric(w, "Average duration", fmt.Sprintf("%.0fs", st.AvgDuration))
	renderMetric(w, "Fastest", fmt.Sprintf("%.0fs", st.MinDuration))
	renderMetric(w, "Slowest", fmt.Sprintf("%.0fs", st.MaxDuration))
	fmt.Fprintln(w)

	for _, p := range a.Patterns {
		fmt.Fprintf(w, "  %s %s\n", output.StyleWarning.Render("!"), p.Description)
		fmt.Fprintf(w, "    %s\n", output.StyleMuted.Render(p.Recommendation))
	}
	if len(a.Patterns) > 0 {
		fmt.Fprintln(w)
	}
}

// renderOutcomes prints a table of apply results, optionally followed by
// the unified diff of each successful change.
func renderOutcomes(w io.Writer, outcomes []fixer.Outcome, showDiff bool) {
	fmt.Fprintln(w, output.Section("Applied changes"))
	fmt.Fprintln(w)
	if len(outcomes) == 0 {
		fmt.Fprintf(w, "  %s\n\n", output.StyleMuted.Render("No suggestions met the confidence threshold."))
		return
	}

	tbl := output.NewTable("", "Type", "Confidence", "Result").Align(2, output.AlignRight)
	for _, o := range outcomes {
		tbl.AddRow(
			output.OutcomeMark(o.Success),
			string(o.Suggestion.Type),
			fmt.Sprintf("%.0f%%", o.Suggestion.Confidence*100),
			o.Message,
		)
	}
	fmt.Fprintln(w, tbl.Render())

	if !showDiff {
		return
	}
	for _, o := range outcomes {
		if !o.Success || o.UnifiedDiff == "" {
			continue
		}
		fmt.Fprintln(w, output.StyleBold.Render(o.Suggestion.Title))
		fmt.Fprintln(w, o.UnifiedDiff)
	}
}

func renderSaveStatus(w io.Writer, path string, apply, saved bool) {
	switch {
	case saved:
		msg := fmt.Sprintf("Wrote %s (backup at %s%s)", path, path, workflow.BackupSuffix)
		fmt.Fprintf(w, " %s\n\n", output.StyleSuccess.Render(msg))
	case apply:
		fmt.Fprintf(w, " %s\n\n", output.StyleWarning.Render("No changes applied; "+path+" was left untouched."))
	default:
		fmt.Fprintf(w, " %s\n\n", output.StyleMuted.Render("Dry run: no files were changed. Use --apply to write changes."))
	}
}
