package watcher

import (
	"fmt"
	"time"

	"github.com/blackwell-systems/pipewatch/internal/history"
	"github.com/blackwell-systems/pipewatch/internal/workflow"
)

// Change thresholds between two checks.
const (
	SuccessRateDrop   = 0.10
	SlowdownRatio     = 1.25
	maxListedFailures = 3
)

// Compare returns alerts for the differences between prev and curr,
// critical first.
func Compare(prev, curr *State) []Alert {
	now := curr.Timestamp
	if now.IsZero() {
		now = time.Now()
	}

	var alerts []Alert
	alerts = append(alerts, patternAlerts(prev.Analysis, curr.Analysis, now)...)
	alerts = append(alerts, failureAlerts(prev.Runs, curr.Runs, now)...)
	alerts = append(alerts, trendAlerts(prev.Analysis, curr.Analysis, now)...)
	return alerts
}

// patternAlerts reports history patterns that appeared or cleared.
// A new failure-rate pattern is critical.
func patternAlerts(prev, curr history.Analysis, now time.Time) []Alert {
	before := make(map[history.PatternType]bool, len(prev.Patterns))
	for _, p := range prev.Patterns {
		before[p.Type] = true
	}
	after := make(map[history.PatternType]bool, len(curr.Patterns))

	var critical, other []Alert
	for _, p := range curr.Patterns {
		after[p.Type] = true
		if before[p.Type] {
			continue
		}
		a := Alert{
			Level:   LevelWarning,
			Title:   fmt.Sprintf("Pattern detected: %s", p.Type),
			Message: p.Description + ". " + p.Recommendation,
			Time:    now,
		}
		if p.Type == history.PatternHighFailureRate {
			a.Level = LevelCritical
			critical = append(critical, a)
			continue
		}
		other = append(other, a)
	}
	for _, p := range prev.Patterns {
		if !after[p.Type] {
			other = append(other, Alert{
				Level: LevelInfo,
				Title: fmt.Sprintf("Pattern resolved: %s", p.Type),
				Time:  now,
			})
		}
	}
	return append(critical, other...)
}

// failureAlerts reports failed runs that were not present at the previous
// check. Beyond a few failures a single summary alert is raised.
func failureAlerts(prev, curr []workflow.Run, now time.Time) []Alert {
	seen := make(map[string]bool, len(prev))
	for _, r := range prev {
		if failed(r) {
			seen[r.ID] = true
		}
	}

	var fresh []workflow.Run
	for _, r := range curr {
		if failed(r) && !seen[r.ID] {
			fresh = append(fresh, r)
		}
	}

	if len(fresh) > maxListedFailures {
		return []Alert{{
			Level:   LevelWarning,
			Title:   "Multiple runs failed",
			Message: fmt.Sprintf("%d new failed runs since the last check", len(fresh)),
			Time:    now,
		}}
	}

	alerts := make([]Alert, 0, len(fresh))
	for _, r := range fresh {
		alerts = append(alerts, Alert{
			Level:   LevelWarning,
			Title:   fmt.Sprintf("Run failed: %s", r.WorkflowName),
			Message: fmt.Sprintf("Run %s concluded %s after %s", r.ID, r.Conclusion, r.Duration.Round(time.Second)),
			Time:    now,
		})
	}
	return alerts
}

// trendAlerts reports a falling success rate or a slower average run.
func trendAlerts(prev, curr history.Analysis, now time.Time) []Alert {
	if prev.Statistics == nil || curr.Statistics == nil {
		return nil
	}
	p, c := prev.Statistics, curr.Statistics

	var alerts []Alert
	if p.SuccessRate-c.SuccessRate >= SuccessRateDrop {
		alerts = append(alerts, Alert{
			Level:   LevelWarning,
			Title:   "Success rate dropped",
			Message: fmt.Sprintf("%.0f%% of recent runs succeed (was %.0f%%)", c.SuccessRate*100, p.SuccessRate*100),
			Time:    now,
		})
	}
	if p.AvgDuration > 0 && c.AvgDuration >= p.AvgDuration*SlowdownRatio {
		alerts = append(alerts, Alert{
			Level:   LevelWarning,
			Title:   "Pipeline slowed down",
			Message: fmt.Sprintf("Average run takes %.0fs (was %.0fs)", c.AvgDuration, p.AvgDuration),
			Time:    now,
		})
	}
	return alerts
}

func failed(r workflow.Run) bool {
	return r.Conclusion == "failure" || r.Conclusion == "timed_out"
}
