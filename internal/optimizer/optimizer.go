// Package optimizer wires the document model, rule engine, external sources,
// applier and report builder into the analyze and optimize operations.
package optimizer

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/blackwell-systems/pipewatch/internal/fixer"
	"github.com/blackwell-systems/pipewatch/internal/history"
	"github.com/blackwell-systems/pipewatch/internal/report"
	"github.com/blackwell-systems/pipewatch/internal/suggest"
	"github.com/blackwell-systems/pipewatch/internal/workflow"
)

// RunFetcher lists historical runs of a workflow.
type RunFetcher interface {
	ListRuns(ctx context.Context, repo, workflowName string, limit int) ([]workflow.Run, error)
}

// SuggestionSource proposes suggestions for a document.
type SuggestionSource interface {
	Suggest(ctx context.Context, doc *workflow.Document) ([]suggest.Suggestion, error)
}

// HistoryQuery selects the runs to analyze. An empty Repo skips the fetch.
type HistoryQuery struct {
	Repo     string
	Workflow string
	Limit    int
}

// Options controls Optimize.
type Options struct {
	History   HistoryQuery
	Threshold float64
	AutoApply bool
}

// Result is the outcome of Optimize.
type Result struct {
	Report    *report.Report
	Optimized *workflow.Document
	Saved     bool
}

// Optimizer runs analyses. Nil collaborators are reported as disabled.
type Optimizer struct {
	engine *suggest.Engine
	runs   RunFetcher
	source SuggestionSource
	logger *slog.Logger
}

// New creates an Optimizer. runs and source may be nil.
func New(engine *suggest.Engine, runs RunFetcher, source SuggestionSource, logger *slog.Logger) *Optimizer {
	if engine == nil {
		engine = suggest.NewEngine()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Optimizer{engine: engine, runs: runs, source: source, logger: logger}
}

// Analyze evaluates doc and, when configured, fetches run history and asks
// the external source for suggestions. The two external calls run
// concurrently; a failing call is logged and contributes nothing.
func (o *Optimizer) Analyze(ctx context.Context, doc *workflow.Document, q HistoryQuery) *report.Report {
	suggestions, analysis, sources := o.collect(ctx, doc, q)
	return report.Build(suggestions, analysis, nil, sources)
}

// History fetches runs and analyzes them without looking at a document.
func (o *Optimizer) History(ctx context.Context, q HistoryQuery) (history.Analysis, report.SourceStatus) {
	runs, status := o.fetchRuns(ctx, q)
	return history.Analyze(runs), status
}

// Optimize loads the workflow at path, analyzes it and applies suggestions
// meeting opts.Threshold. With opts.AutoApply the result is written back,
// after a backup, when at least one application succeeded. A missing or
// unreadable workflow is returned as an error.
func (o *Optimizer) Optimize(ctx context.Context, path string, opts Options) (*Result, error) {
	doc, err := workflow.Load(path)
	if err != nil {
		return nil, err
	}

	suggestions, analysis, sources := o.collect(ctx, doc, opts.History)
	outcomes, optimized := fixer.ApplyAll(doc, suggestions, opts.Threshold)

	for _, out := range outcomes {
		o.logger.Debug("applied suggestion", "type", out.Suggestion.Type, "success", out.Success, "message", out.Message)
	}

	res := &Result{
		Report:    report.Build(suggestions, analysis, outcomes, sources),
		Optimized: optimized,
	}

	if opts.AutoApply && fixer.AnySucceeded(outcomes) {
		if err := workflow.Save(path, optimized); err != nil {
			return res, fmt.Errorf("saving optimized workflow: %w", err)
		}
		res.Saved = true
		o.logger.Info("saved optimized workflow", "path", path, "backup", path+workflow.BackupSuffix)
	}
	return res, nil
}

func (o *Optimizer) collect(ctx context.Context, doc *workflow.Document, q HistoryQuery) ([]suggest.Suggestion, history.Analysis, report.Sources) {
	ruleBased := o.engine.Run(doc)

	snapshot := doc.Clone()
	var (
		runs     []workflow.Run
		external []suggest.Suggestion
		sources  report.Sources
		g        errgroup.Group
	)

	g.Go(func() error {
		runs, sources.History = o.fetchRuns(ctx, q)
		return nil
	})
	g.Go(func() error {
		external, sources.AI = o.fetchSuggestions(ctx, snapshot)
		return nil
	})
	_ = g.Wait()

	return suggest.Merge(ruleBased, external), history.Analyze(runs), sources
}

func (o *Optimizer) fetchRuns(ctx context.Context, q HistoryQuery) ([]workflow.Run, report.SourceStatus) {
	if o.runs == nil || q.Repo == "" {
		return nil, report.Disabled()
	}
	runs, err := o.runs.ListRuns(ctx, q.Repo, q.Workflow, q.Limit)
	if err != nil {
		o.logger.Warn("run history unavailable", "repo", q.Repo, "error", err)
		return nil, report.StatusOf(0, err)
	}
	o.logger.Debug("fetched run history", "repo", q.Repo, "workflow", q.Workflow, "runs", len(runs))
	return runs, report.StatusOf(len(runs), nil)
}

func (o *Optimizer) fetchSuggestions(ctx context.Context, doc *workflow.Document) ([]suggest.Suggestion, report.SourceStatus) {
	if o.source == nil {
		return nil, report.Disabled()
	}
	external, err := o.source.Suggest(ctx, doc)
	if err != nil {
		o.logger.Warn("ai analysis unavailable, using rule-based results", "error", err)
		return nil, report.StatusOf(0, err)
	}
	return external, report.StatusOf(len(external), nil)
}
