package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/blackwell-systems/pipewatch/internal/config"
	"github.com/blackwell-systems/pipewatch/internal/github"
	"github.com/blackwell-systems/pipewatch/internal/output"
	"github.com/blackwell-systems/pipewatch/internal/watcher"
)

const npmWorkflow = `name: CI
on: [push]
jobs:
  build:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4
      - run: npm install
      - run: npm test
`

func TestCommands_Registered(t *testing.T) {
	want := map[string]bool{"analyze": false, "optimize": false, "history": false, "doctor": false, "mcp": false, "watch": false}
	for _, cmd := range rootCmd.Commands() {
		name := strings.Fields(cmd.Use)[0]
		if _, ok := want[name]; ok {
			want[name] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("%s subcommand not registered on rootCmd", name)
		}
	}
}

// runCLI executes the root command with args in an isolated home directory
// and returns what it wrote to stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, k := range []string{"GITHUB_TOKEN", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "PIPEWATCH_AI_ENABLED", "PIPEWATCH_OPTIMIZE_AUTO_APPLY"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	t.Cleanup(func() {
		resetFlags(rootCmd)
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs(append(args, "--no-color"))
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// resetFlags restores every flag in the tree to its default so package-level
// flag variables do not leak between tests.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func writeWorkflow(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ci.yml")
	if err := os.WriteFile(path, []byte(npmWorkflow), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAnalyze_JSONReport(t *testing.T) {
	path := writeWorkflow(t)

	out, err := runCLI(t, "analyze", path, "--json")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	var got struct {
		Summary struct {
			TotalOptimizations int `json:"total_optimizations"`
		} `json:"summary"`
		Optimizations []struct {
			Type string `json:"type"`
		} `json:"optimizations"`
		Sources struct {
			History struct {
				State string `json:"state"`
			} `json:"history"`
			AI struct {
				State string `json:"state"`
			} `json:"ai"`
		} `json:"sources"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if got.Summary.TotalOptimizations != 3 {
		t.Errorf("total_optimizations = %d, want 3 (cache, concurrency, matrix)", got.Summary.TotalOptimizations)
	}
	if len(got.Optimizations) != got.Summary.TotalOptimizations {
		t.Errorf("optimizations has %d entries, summary says %d", len(got.Optimizations), got.Summary.TotalOptimizations)
	}
	if got.Sources.History.State != "disabled" || got.Sources.AI.State != "disabled" {
		t.Errorf("sources = %+v, want both disabled", got.Sources)
	}
}

func TestAnalyze_MissingFile(t *testing.T) {
	_, err := runCLI(t, "analyze", filepath.Join(t.TempDir(), "missing.yml"))
	if err == nil {
		t.Fatal("expected error for missing workflow file")
	}
}

func TestOptimize_DryRunLeavesFile(t *testing.T) {
	path := writeWorkflow(t)

	out, err := runCLI(t, "optimize", path)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if !strings.Contains(out, "Dry run") {
		t.Errorf("expected dry-run notice, got:\n%s", out)
	}
	data, _ := os.ReadFile(path)
	if string(data) != npmWorkflow {
		t.Error("dry run modified the workflow file")
	}
	if _, err := os.Stat(path + ".backup"); !os.IsNotExist(err) {
		t.Error("dry run created a backup file")
	}
}

func TestOptimize_ApplyWritesBackup(t *testing.T) {
	path := writeWorkflow(t)

	if _, err := runCLI(t, "optimize", path, "--apply"); err != nil {
		t.Fatalf("optimize --apply: %v", err)
	}

	backup, err := os.ReadFile(path + ".backup")
	if err != nil {
		t.Fatalf("reading backup: %v", err)
	}
	if string(backup) != npmWorkflow {
		t.Error("backup does not hold the original content")
	}
	data, _ := os.ReadFile(path)
	for _, want := range []string{"actions/cache@v4", "concurrency:", "cancel-in-progress: true"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("optimized workflow missing %q:\n%s", want, data)
		}
	}
}

func TestOptimize_PRBody(t *testing.T) {
	path := writeWorkflow(t)

	out, err := runCLI(t, "optimize", path, "--pr-body")
	if err != nil {
		t.Fatalf("optimize --pr-body: %v", err)
	}
	if !strings.HasPrefix(out, "## AI Pipeline Optimizations") {
		t.Errorf("unexpected PR body:\n%s", out)
	}
}

func TestOptimize_ThresholdOutOfRange(t *testing.T) {
	path := writeWorkflow(t)

	if _, err := runCLI(t, "optimize", path, "--threshold", "1.5"); err == nil {
		t.Fatal("expected error for threshold above 1")
	}
}

func TestHistory_RejectsBadRepo(t *testing.T) {
	if _, err := runCLI(t, "history", "not-a-repo"); err == nil {
		t.Fatal("expected error for repository without owner")
	}
}

func TestWatch_RejectsShortInterval(t *testing.T) {
	_, err := runCLI(t, "watch", "acme/api", "--interval", "5s")
	if err == nil || !strings.Contains(err.Error(), "at least 30s") {
		t.Fatalf("expected interval error, got %v", err)
	}
}

func TestPrintAlert(t *testing.T) {
	output.SetNoColor(true)
	var buf bytes.Buffer
	printAlert(&buf, watcher.Alert{
		Level:   watcher.LevelWarning,
		Title:   "Run failed: CI",
		Message: "Run 7 concluded failure after 2m0s",
		Time:    time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC),
	})
	want := "[09:30:00] ! Run failed: CI\n           Run 7 concluded failure after 2m0s\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestCheckConfigFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if c := checkConfigFile(""); !c.Passed {
		t.Errorf("default location without file should pass, got %+v", c)
	}
	if c := checkConfigFile(filepath.Join(t.TempDir(), "nope.yaml")); c.Passed {
		t.Error("explicit missing config should fail")
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: info\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if c := checkConfigFile(path); !c.Passed || c.Message != path {
		t.Errorf("existing config: got %+v", c)
	}
}

func TestCheckGitHubAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"resources":{}}`))
	}))
	defer srv.Close()

	if c := checkGitHubAPI(context.Background(), github.NewClient("good", srv.URL)); !c.Passed {
		t.Errorf("valid token: got %+v", c)
	}
	c := checkGitHubAPI(context.Background(), github.NewClient("bad", srv.URL))
	if c.Passed || c.Message != "token rejected by GitHub" {
		t.Errorf("bad token: got %+v", c)
	}
}

func TestCheckAIProvider(t *testing.T) {
	if c := checkAIProvider(config.AI{Provider: config.ProviderOpenAI}); !c.Passed {
		t.Errorf("disabled provider should pass, got %+v", c)
	}
	c := checkAIProvider(config.AI{Enabled: true, Provider: config.ProviderOpenAI, Model: "gpt-4"})
	if c.Passed {
		t.Error("enabled openai without key should fail")
	}
}

func TestCheckLogFile(t *testing.T) {
	if c := checkLogFile(""); !c.Passed {
		t.Errorf("no log file should pass, got %+v", c)
	}
	if c := checkLogFile(filepath.Join(t.TempDir(), "pipewatch.log")); !c.Passed {
		t.Errorf("existing directory should pass, got %+v", c)
	}
	if c := checkLogFile(filepath.Join(t.TempDir(), "missing", "pipewatch.log")); c.Passed {
		t.Error("missing directory should fail")
	}
}
