package suggest

import (
	"strings"
	"testing"
	"time"

	"github.com/blackwell-systems/pipewatch/internal/workflow"
)

func parseDoc(t *testing.T, src string) *workflow.Document {
	t.Helper()
	doc, err := workflow.Parse([]byte(src))
	if err != nil {
		t.Fatalf("parsing document: %v", err)
	}
	return doc
}

// --- MissingCache ---

func TestMissingCache_NoCacheReference(t *testing.T) {
	doc := parseDoc(t, "jobs:\n  build:\n    steps:\n      - run: make\n")
	s, ok := MissingCache(doc)
	if !ok {
		t.Fatal("expected a cache suggestion")
	}
	if s.Type != TypeCache {
		t.Errorf("expected type %q, got %q", TypeCache, s.Type)
	}
	if s.Impact != ImpactHigh {
		t.Errorf("expected impact high, got %s", s.Impact)
	}
	if s.Confidence != 0.95 {
		t.Errorf("expected confidence 0.95, got %v", s.Confidence)
	}
	if s.EstimatedSavings != 120*time.Second {
		t.Errorf("expected savings 120s, got %v", s.EstimatedSavings)
	}
	if s.CodeSuggestion != genericCacheSnippet {
		t.Errorf("expected generic snippet, got %q", s.CodeSuggestion)
	}
}

func TestMissingCache_ExistingReferences(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"cache action", "jobs:\n  b:\n    steps:\n      - uses: actions/cache@v4\n"},
		{"cache action mixed case", "jobs:\n  b:\n    steps:\n      - uses: Actions/Cache@v3\n"},
		{"setup action cache key", "jobs:\n  b:\n    steps:\n      - uses: actions/setup-node@v4\n        with:\n          cache: npm\n"},
		{"top-level cache key", "cache: true\njobs: {}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := MissingCache(parseDoc(t, tt.src)); ok {
				t.Error("expected no cache suggestion")
			}
		})
	}
}

func TestMissingCache_IgnoresComments(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"commented-out cache step", "jobs:\n  build:\n    steps:\n      # - uses: actions/cache@v4\n      - run: make\n"},
		{"cache key in line comment", "jobs:\n  build: # cache: later\n    steps:\n      - run: make\n"},
		{"ecosystem hint in header comment", "# run with python later\njobs:\n  build:\n    steps:\n      - run: make\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := MissingCache(parseDoc(t, tt.src))
			if !ok {
				t.Fatal("expected a cache suggestion")
			}
			if s.CodeSuggestion != genericCacheSnippet {
				t.Errorf("expected generic snippet, got %q", s.CodeSuggestion)
			}
		})
	}
}

func TestMissingCache_EcosystemSnippet(t *testing.T) {
	tests := []struct {
		name string
		run  string
		want string
	}{
		{"pip", "pip install -r requirements.txt", pipCacheSnippet},
		{"python", "python -m build", pipCacheSnippet},
		{"npm", "npm ci", nodeCacheSnippet},
		{"node", "node script.js", nodeCacheSnippet},
		{"pip wins over npm", "pip install x && npm ci", pipCacheSnippet},
		{"generic", "make all", genericCacheSnippet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parseDoc(t, "jobs:\n  b:\n    steps:\n      - run: "+tt.run+"\n")
			s, ok := MissingCache(doc)
			if !ok {
				t.Fatal("expected a cache suggestion")
			}
			if s.CodeSuggestion != tt.want {
				t.Errorf("unexpected snippet:\n%s", s.CodeSuggestion)
			}
		})
	}
}

// --- MissingConcurrency ---

func TestMissingConcurrency(t *testing.T) {
	s, ok := MissingConcurrency(parseDoc(t, "jobs: {}\n"))
	if !ok {
		t.Fatal("expected a concurrency suggestion")
	}
	if s.Impact != ImpactMedium || s.Confidence != 0.90 || s.EstimatedSavings != 300*time.Second {
		t.Errorf("unexpected suggestion fields: %+v", s)
	}
	if !strings.Contains(s.CodeSuggestion, "cancel-in-progress: true") {
		t.Errorf("expected canonical snippet, got %q", s.CodeSuggestion)
	}
}

func TestMissingConcurrency_Present(t *testing.T) {
	tests := []string{
		"concurrency: ci\njobs: {}\n",
		"concurrency:\n  group: x\njobs: {}\n",
		"concurrency:\njobs: {}\n",
	}
	for _, src := range tests {
		if _, ok := MissingConcurrency(parseDoc(t, src)); ok {
			t.Errorf("expected no concurrency suggestion for %q", src)
		}
	}
}

// --- IndependentJobs ---

func TestIndependentJobs_ListsJobsWithoutNeeds(t *testing.T) {
	doc := parseDoc(t, `jobs:
  lint:
    steps: [{run: ruff}]
  build:
    steps: [{run: make}]
  test:
    needs: [build]
    steps: [{run: pytest}]
`)
	s, ok := IndependentJobs(doc)
	if !ok {
		t.Fatal("expected a parallel suggestion")
	}
	if len(s.AffectedJobs) != 2 || s.AffectedJobs[0] != "lint" || s.AffectedJobs[1] != "build" {
		t.Errorf("expected affected jobs [lint build], got %v", s.AffectedJobs)
	}
	if s.Confidence != 0.85 || s.EstimatedSavings != 180*time.Second || s.Impact != ImpactHigh {
		t.Errorf("unexpected suggestion fields: %+v", s)
	}
}

func TestIndependentJobs_SingleJob(t *testing.T) {
	if _, ok := IndependentJobs(parseDoc(t, "jobs:\n  build:\n    steps: []\n")); ok {
		t.Error("expected no suggestion for a single job")
	}
}

func TestIndependentJobs_AllChained(t *testing.T) {
	doc := parseDoc(t, "jobs:\n  a:\n    steps: []\n  b:\n    needs: a\n  c:\n    needs: [b]\n")
	if _, ok := IndependentJobs(doc); ok {
		t.Error("expected no suggestion when only one job lacks needs")
	}
}

func TestIndependentJobs_EmptyNeedsCountsAsPresent(t *testing.T) {
	doc := parseDoc(t, "jobs:\n  a:\n    needs: []\n  b:\n    needs:\n")
	if _, ok := IndependentJobs(doc); ok {
		t.Error("a present needs key, even empty, marks the job as dependent")
	}
}

// --- MatrixCandidate ---

func TestMatrixCandidate_TestRunners(t *testing.T) {
	for _, tok := range []string{"pytest -q", "npx jest", "go test ./...", "npm test"} {
		doc := parseDoc(t, "jobs:\n  unit:\n    steps:\n      - run: "+tok+"\n")
		s, ok := MatrixCandidate(doc)
		if !ok {
			t.Errorf("expected matrix suggestion for %q", tok)
			continue
		}
		if s.Confidence != 0.80 || s.EstimatedSavings != 240*time.Second {
			t.Errorf("unexpected suggestion fields: %+v", s)
		}
	}
}

func TestMatrixCandidate_StrategyPresent(t *testing.T) {
	doc := parseDoc(t, "jobs:\n  test:\n    strategy:\n      matrix:\n        py: [3.11]\n    steps:\n      - run: pytest\n")
	if _, ok := MatrixCandidate(doc); ok {
		t.Error("expected no matrix suggestion when strategy exists")
	}
}

func TestMatrixCandidate_NoTestCommands(t *testing.T) {
	doc := parseDoc(t, "jobs:\n  build:\n    steps:\n      - run: npm install\n      - uses: actions/checkout@v4\n")
	if _, ok := MatrixCandidate(doc); ok {
		t.Error("expected no matrix suggestion")
	}
}

func TestMatrixCandidate_TokenMatchIsCaseSensitive(t *testing.T) {
	doc := parseDoc(t, "jobs:\n  build:\n    steps:\n      - run: PYTEST\n")
	if _, ok := MatrixCandidate(doc); ok {
		t.Error("expected exact substring match on test tokens")
	}
}
