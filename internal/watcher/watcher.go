// Package watcher polls a repository's run history and raises alerts when
// the pipeline's health changes between checks.
package watcher

import (
	"context"
	"fmt"
	"time"

	"github.com/blackwell-systems/pipewatch/internal/history"
	"github.com/blackwell-systems/pipewatch/internal/workflow"
)

// Alert levels.
const (
	LevelInfo     = "info"
	LevelWarning  = "warning"
	LevelCritical = "critical"
)

// Alert is a notable change detected between two checks.
type Alert struct {
	Level   string
	Title   string
	Message string
	Time    time.Time
}

// RunFetcher lists recent runs of a repository.
type RunFetcher interface {
	ListRuns(ctx context.Context, repo, workflowName string, limit int) ([]workflow.Run, error)
}

// State is the run history observed at one check.
type State struct {
	Timestamp time.Time
	Runs      []workflow.Run
	Analysis  history.Analysis
}

// Target names the runs to watch.
type Target struct {
	Repo     string
	Workflow string
	Limit    int
}

// Watcher checks a target at a fixed interval and reports alerts through a
// callback.
type Watcher struct {
	runs          RunFetcher
	target        Target
	interval      time.Duration
	previous      *State
	alertFn       func(Alert)
	lastAlertKeys map[string]bool
	now           func() time.Time
}

// New creates a Watcher.
func New(runs RunFetcher, target Target, interval time.Duration, alertFn func(Alert)) *Watcher {
	return &Watcher{
		runs:          runs,
		target:        target,
		interval:      interval,
		alertFn:       alertFn,
		lastAlertKeys: make(map[string]bool),
		now:           time.Now,
	}
}

// Baseline takes the initial snapshot that later checks are compared
// against. Run calls it when no baseline exists yet.
func (w *Watcher) Baseline(ctx context.Context) (*State, error) {
	s, err := w.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("initial snapshot: %w", err)
	}
	w.previous = s
	return s, nil
}

// Run checks at every interval until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if w.previous == nil {
		if _, err := w.Baseline(ctx); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, a := range w.Check(ctx) {
				if w.alertFn != nil {
					w.alertFn(a)
				}
			}
		}
	}
}

// Check takes a snapshot, compares it with the previous one and returns new
// alerts. An alert identical to one raised by the previous check is
// suppressed. A failed fetch keeps the previous state.
func (w *Watcher) Check(ctx context.Context) []Alert {
	curr, err := w.Snapshot(ctx)
	if err != nil {
		return w.dedup([]Alert{{
			Level:   LevelWarning,
			Title:   "Fetch failed",
			Message: fmt.Sprintf("Could not read runs for %s: %v", w.target.Repo, err),
			Time:    w.now(),
		}})
	}

	var raw []Alert
	if w.previous != nil {
		raw = Compare(w.previous, curr)
	}
	w.previous = curr
	return w.dedup(raw)
}

func (w *Watcher) dedup(raw []Alert) []Alert {
	current := make(map[string]bool, len(raw))
	var alerts []Alert
	for _, a := range raw {
		key := a.Level + ":" + a.Title + ":" + a.Message
		current[key] = true
		if !w.lastAlertKeys[key] {
			alerts = append(alerts, a)
		}
	}
	w.lastAlertKeys = current
	return alerts
}

// Snapshot fetches the target's runs and analyzes them.
func (w *Watcher) Snapshot(ctx context.Context) (*State, error) {
	runs, err := w.runs.ListRuns(ctx, w.target.Repo, w.target.Workflow, w.target.Limit)
	if err != nil {
		return nil, err
	}
	return &State{
		Timestamp: w.now(),
		Runs:      runs,
		Analysis:  history.Analyze(runs),
	}, nil
}
