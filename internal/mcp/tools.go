package mcp

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/blackwell-systems/pipewatch/internal/history"
	"github.com/blackwell-systems/pipewatch/internal/optimizer"
	"github.com/blackwell-systems/pipewatch/internal/report"
	"github.com/blackwell-systems/pipewatch/internal/workflow"
)

const analyzeSchema = `{
  "type": "object",
  "required": ["path"],
  "properties": {
    "path": {"type": "string", "minLength": 1, "description": "Path to the workflow YAML file"},
    "repo": {"type": "string", "pattern": "^[^/]+/[^/]+$", "description": "owner/name whose run history to include"},
    "workflow": {"type": "string", "description": "Only consider runs of this workflow name"},
    "limit": {"type": "integer", "minimum": 1, "description": "Number of recent runs to fetch"}
  },
  "additionalProperties": false
}`

const optimizeSchema = `{
  "type": "object",
  "required": ["path"],
  "properties": {
    "path": {"type": "string", "minLength": 1, "description": "Path to the workflow YAML file"},
    "threshold": {"type": "number", "minimum": 0, "maximum": 1, "description": "Minimum confidence to apply"},
    "repo": {"type": "string", "pattern": "^[^/]+/[^/]+$"},
    "workflow": {"type": "string"},
    "limit": {"type": "integer", "minimum": 1}
  },
  "additionalProperties": false
}`

const historySchema = `{
  "type": "object",
  "required": ["repo"],
  "properties": {
    "repo": {"type": "string", "pattern": "^[^/]+/[^/]+$", "description": "owner/name"},
    "workflow": {"type": "string"},
    "limit": {"type": "integer", "minimum": 1}
  },
  "additionalProperties": false
}`

// Defaults fills arguments a tool call leaves out.
type Defaults struct {
	Threshold float64
	RunLimit  int
}

type workflowArgs struct {
	Path      string   `json:"path"`
	Repo      string   `json:"repo"`
	Workflow  string   `json:"workflow"`
	Limit     int      `json:"limit"`
	Threshold *float64 `json:"threshold"`
}

func (a workflowArgs) query(d Defaults) optimizer.HistoryQuery {
	limit := a.Limit
	if limit == 0 {
		limit = d.RunLimit
	}
	return optimizer.HistoryQuery{Repo: a.Repo, Workflow: a.Workflow, Limit: limit}
}

// OptimizeResult is returned by optimize_workflow. The file on disk is never
// modified; the optimized document is returned as text.
type OptimizeResult struct {
	Report        *report.Report `json:"report"`
	OptimizedYAML string         `json:"optimized_yaml"`
}

// HistoryResult is returned by get_run_history.
type HistoryResult struct {
	Repo     string              `json:"repo"`
	Analysis history.Analysis    `json:"history_analysis"`
	Source   report.SourceStatus `json:"source"`
}

// AddTools registers the workflow tools backed by opt.
func AddTools(s *Server, opt *optimizer.Optimizer, d Defaults) error {
	tools := []struct {
		name, desc, schema string
		h                  Handler
	}{
		{
			"analyze_workflow",
			"Suggest optimizations for a GitHub Actions workflow file, optionally with run-history analysis.",
			analyzeSchema,
			analyzeHandler(opt, d),
		},
		{
			"optimize_workflow",
			"Apply high-confidence optimizations to a workflow in memory and return the result with diffs. The file is not modified.",
			optimizeSchema,
			optimizeHandler(opt, d),
		},
		{
			"get_run_history",
			"Duration statistics, success rate and detected patterns for recent runs of a repository.",
			historySchema,
			historyHandler(opt, d),
		},
	}
	for _, t := range tools {
		if err := s.Register(t.name, t.desc, t.schema, t.h); err != nil {
			return err
		}
	}
	return nil
}

func analyzeHandler(opt *optimizer.Optimizer, d Defaults) Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args workflowArgs
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, err
		}
		doc, err := workflow.Load(args.Path)
		if err != nil {
			return nil, err
		}
		return opt.Analyze(ctx, doc, args.query(d)), nil
	}
}

func optimizeHandler(opt *optimizer.Optimizer, d Defaults) Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args workflowArgs
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, err
		}
		threshold := d.Threshold
		if args.Threshold != nil {
			threshold = *args.Threshold
		}
		res, err := opt.Optimize(ctx, args.Path, optimizer.Options{
			History:   args.query(d),
			Threshold: threshold,
		})
		if err != nil {
			return nil, err
		}
		text, err := res.Optimized.Bytes()
		if err != nil {
			return nil, err
		}
		return OptimizeResult{Report: res.Report, OptimizedYAML: string(text)}, nil
	}
}

func historyHandler(opt *optimizer.Optimizer, d Defaults) Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args workflowArgs
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, err
		}
		analysis, status := opt.History(ctx, args.query(d))
		if status.State == report.SourceFailed {
			return nil, errors.New("fetching run history: " + status.Error)
		}
		return HistoryResult{Repo: args.Repo, Analysis: analysis, Source: status}, nil
	}
}
