package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/blackwell-systems/pipewatch/internal/optimizer"
	"github.com/blackwell-systems/pipewatch/internal/workflow"
)

const npmWorkflow = "name: CI\njobs:\n  build:\n    steps:\n      - run: npm install\n"

type stubRuns struct {
	runs []workflow.Run
	err  error
}

func (s stubRuns) ListRuns(context.Context, string, string, int) ([]workflow.Run, error) {
	return s.runs, s.err
}

func toolServer(t *testing.T, runs optimizer.RunFetcher) *Server {
	t.Helper()
	s := NewServer("test", quietLogger())
	opt := optimizer.New(nil, runs, nil, quietLogger())
	if err := AddTools(s, opt, Defaults{Threshold: 0.8, RunLimit: 10}); err != nil {
		t.Fatalf("AddTools: %v", err)
	}
	return s
}

func callTool(t *testing.T, s *Server, name string, args any) callResult {
	t.Helper()
	raw, err := json.Marshal(args)
	if err != nil {
		t.Fatal(err)
	}
	return s.call(context.Background(), callParams{Name: name, Arguments: raw})
}

func writeWorkflow(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ci.yml")
	if err := os.WriteFile(path, []byte(npmWorkflow), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAddTools_Registers(t *testing.T) {
	s := toolServer(t, nil)
	var names []string
	for _, tl := range s.list() {
		names = append(names, tl.Name)
	}
	got := strings.Join(names, ",")
	if got != "analyze_workflow,optimize_workflow,get_run_history" {
		t.Errorf("tools = %s", got)
	}
}

func TestAnalyzeWorkflow(t *testing.T) {
	s := toolServer(t, nil)
	res := callTool(t, s, "analyze_workflow", map[string]any{"path": writeWorkflow(t)})
	if res.IsError {
		t.Fatalf("tool error: %s", res.Content[0].Text)
	}

	var rep struct {
		Optimizations []struct {
			Type string `json:"type"`
		} `json:"optimizations"`
	}
	if err := json.Unmarshal([]byte(res.Content[0].Text), &rep); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	types := map[string]bool{}
	for _, o := range rep.Optimizations {
		types[o.Type] = true
	}
	if !types["cache"] || !types["concurrency"] {
		t.Errorf("expected cache and concurrency suggestions, got %v", types)
	}
}

func TestAnalyzeWorkflow_MissingFile(t *testing.T) {
	s := toolServer(t, nil)
	res := callTool(t, s, "analyze_workflow", map[string]any{"path": filepath.Join(t.TempDir(), "none.yml")})
	if !res.IsError {
		t.Error("expected error for missing workflow")
	}
}

func TestAnalyzeWorkflow_RejectsBadRepo(t *testing.T) {
	s := toolServer(t, nil)
	res := callTool(t, s, "analyze_workflow", map[string]any{"path": "ci.yml", "repo": "no-slash"})
	if !res.IsError || !strings.Contains(res.Content[0].Text, "invalid arguments") {
		t.Errorf("expected schema rejection, got %+v", res)
	}
}

func TestOptimizeWorkflow_DoesNotWrite(t *testing.T) {
	path := writeWorkflow(t)
	s := toolServer(t, nil)

	res := callTool(t, s, "optimize_workflow", map[string]any{"path": path, "threshold": 0.9})
	if res.IsError {
		t.Fatalf("tool error: %s", res.Content[0].Text)
	}

	var out struct {
		OptimizedYAML string `json:"optimized_yaml"`
		Report        struct {
			Applications []struct {
				Success bool `json:"success"`
			} `json:"applications"`
		} `json:"report"`
	}
	if err := json.Unmarshal([]byte(res.Content[0].Text), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	// Only cache (0.95) and concurrency (0.90) meet 0.9.
	if len(out.Report.Applications) != 2 {
		t.Errorf("applications = %d, want 2", len(out.Report.Applications))
	}
	if !strings.Contains(out.OptimizedYAML, "actions/cache@v4") {
		t.Errorf("optimized YAML missing cache step:\n%s", out.OptimizedYAML)
	}

	data, _ := os.ReadFile(path)
	if string(data) != npmWorkflow {
		t.Error("optimize_workflow modified the file")
	}
}

func TestGetRunHistory(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	runs := []workflow.Run{
		workflow.NewRun("1", "CI", "completed", "success", start, start.Add(100*time.Second)),
		workflow.NewRun("2", "CI", "completed", "failure", start, start.Add(200*time.Second)),
	}
	s := toolServer(t, stubRuns{runs: runs})

	res := callTool(t, s, "get_run_history", map[string]any{"repo": "acme/api"})
	if res.IsError {
		t.Fatalf("tool error: %s", res.Content[0].Text)
	}
	var raw struct {
		Repo     string `json:"repo"`
		Analysis struct {
			Statistics struct {
				TotalRuns   int     `json:"total_runs"`
				SuccessRate float64 `json:"success_rate"`
			} `json:"statistics"`
		} `json:"history_analysis"`
	}
	if err := json.Unmarshal([]byte(res.Content[0].Text), &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if raw.Repo != "acme/api" || raw.Analysis.Statistics.TotalRuns != 2 || raw.Analysis.Statistics.SuccessRate != 0.5 {
		t.Errorf("unexpected result: %+v", raw)
	}
}

func TestGetRunHistory_FetchFailure(t *testing.T) {
	s := toolServer(t, stubRuns{err: errors.New("rate limited")})
	res := callTool(t, s, "get_run_history", map[string]any{"repo": "acme/api"})
	if !res.IsError || !strings.Contains(res.Content[0].Text, "rate limited") {
		t.Errorf("expected fetch error, got %+v", res)
	}
}
