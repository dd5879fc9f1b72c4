package suggest

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/blackwell-systems/pipewatch/internal/workflow"
)

// --- Engine.Run ---

func TestEngineRun_SingleJobNpmInstall(t *testing.T) {
	doc := parseDoc(t, "jobs:\n  build:\n    steps:\n      - run: npm install\n")
	suggestions := NewEngine().Run(doc)
	if len(suggestions) != 2 {
		t.Fatalf("expected 2 suggestions, got %d: %+v", len(suggestions), suggestions)
	}
	if suggestions[0].Type != TypeCache {
		t.Errorf("expected first suggestion cache, got %q", suggestions[0].Type)
	}
	if suggestions[1].Type != TypeConcurrency {
		t.Errorf("expected second suggestion concurrency, got %q", suggestions[1].Type)
	}
	if suggestions[0].CodeSuggestion != nodeCacheSnippet {
		t.Errorf("expected node cache snippet for npm workflow")
	}
}

func TestEngineRun_RuleOrder(t *testing.T) {
	doc := parseDoc(t, `jobs:
  lint:
    steps: [{run: ruff}]
  build:
    steps: [{run: make}]
  test:
    needs: [build]
    steps: [{run: pytest}]
`)
	suggestions := NewEngine().Run(doc)
	want := []OptimizationType{TypeCache, TypeConcurrency, TypeParallel, TypeMatrix}
	if len(suggestions) != len(want) {
		t.Fatalf("expected %d suggestions, got %d", len(want), len(suggestions))
	}
	for i, typ := range want {
		if suggestions[i].Type != typ {
			t.Errorf("index %d: expected %q, got %q", i, typ, suggestions[i].Type)
		}
	}
}

func TestEngineRun_AtMostOnePerType(t *testing.T) {
	doc := parseDoc(t, "jobs:\n  a:\n    steps: [{run: pytest}]\n  b:\n    steps: [{run: jest}]\n  c:\n    steps: [{run: go test}]\n")
	seen := make(map[OptimizationType]int)
	for _, s := range NewEngine().Run(doc) {
		seen[s.Type]++
	}
	for typ, n := range seen {
		if n != 1 {
			t.Errorf("type %q produced %d suggestions", typ, n)
		}
	}
}

func TestEngineRun_NoRules(t *testing.T) {
	engine := &Engine{rules: nil}
	if got := engine.Run(workflow.New()); len(got) != 0 {
		t.Fatalf("expected 0 suggestions from engine with no rules, got %d", len(got))
	}
}

func TestEngineRun_CustomRule(t *testing.T) {
	customRule := func(doc *workflow.Document) (Suggestion, bool) {
		return Suggestion{Type: TypeArtifact, Title: "Custom", Impact: ImpactLow, Confidence: 0.5}, true
	}
	engine := &Engine{rules: []Rule{customRule}}
	got := engine.Run(workflow.New())
	if len(got) != 1 || got[0].Title != "Custom" {
		t.Fatalf("expected custom suggestion, got %+v", got)
	}
}

// --- Merge ---

func TestMerge_BoostsMatchingType(t *testing.T) {
	rule := Suggestion{Type: TypeCache, Title: "Add dependency caching", Description: "rule", Impact: ImpactHigh, Confidence: 0.85}
	ext := Suggestion{Type: TypeCache, Title: "AI cache", Description: "ai", Impact: ImpactMedium, Confidence: 0.5}

	merged := Merge([]Suggestion{rule}, []Suggestion{ext})
	if len(merged) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(merged))
	}
	m := merged[0]
	if m.Title != rule.Title || m.Description != rule.Description || m.Impact != rule.Impact {
		t.Errorf("merge changed rule content: %+v", m)
	}
	if math.Abs(m.Confidence-0.95) > 1e-9 {
		t.Errorf("expected confidence 0.95, got %v", m.Confidence)
	}
	if rule.Confidence != 0.85 {
		t.Error("merge must not modify its inputs")
	}
}

func TestMerge_CapsConfidence(t *testing.T) {
	rule := Suggestion{Type: TypeCache, Confidence: 0.95}
	merged := Merge([]Suggestion{rule}, []Suggestion{{Type: TypeCache}, {Type: TypeCache}})
	if merged[0].Confidence != 0.99 {
		t.Errorf("expected confidence capped at 0.99, got %v", merged[0].Confidence)
	}
}

func TestMerge_AppendsNewTypes(t *testing.T) {
	rules := []Suggestion{{Type: TypeCache}, {Type: TypeConcurrency}}
	ext := []Suggestion{{Type: TypeArtifact, Title: "a"}, {Type: TypeOther, Title: "o"}, {Type: TypeConcurrency}}

	merged := Merge(rules, ext)
	want := []OptimizationType{TypeCache, TypeConcurrency, TypeArtifact, TypeOther}
	if len(merged) != len(want) {
		t.Fatalf("expected %d suggestions, got %d", len(want), len(merged))
	}
	for i, typ := range want {
		if merged[i].Type != typ {
			t.Errorf("index %d: expected %q, got %q", i, typ, merged[i].Type)
		}
	}
}

func TestMerge_NoExternal(t *testing.T) {
	rules := []Suggestion{{Type: TypeCache, Confidence: 0.95}}
	merged := Merge(rules, nil)
	if len(merged) != 1 || merged[0].Confidence != 0.95 {
		t.Errorf("expected rules unchanged, got %+v", merged)
	}
}

// --- Ranking ---

func TestRankSuggestions_OrdinalImpact(t *testing.T) {
	in := []Suggestion{
		{Title: "low", Impact: ImpactLow, Confidence: 0.99},
		{Title: "medium", Impact: ImpactMedium, Confidence: 0.9},
		{Title: "critical", Impact: ImpactCritical, Confidence: 0.1},
		{Title: "high-a", Impact: ImpactHigh, Confidence: 0.8},
		{Title: "high-b", Impact: ImpactHigh, Confidence: 0.95},
	}
	got := RankSuggestions(in)
	want := []string{"critical", "high-b", "high-a", "medium", "low"}
	for i, title := range want {
		if got[i].Title != title {
			t.Errorf("index %d: expected %q, got %q", i, title, got[i].Title)
		}
	}
	if in[0].Title != "low" {
		t.Error("RankSuggestions must not reorder its input")
	}
}

func TestRecommendations_TopFive(t *testing.T) {
	var in []Suggestion
	for i := 0; i < 7; i++ {
		in = append(in, Suggestion{Title: "s", Impact: ImpactLow, EstimatedSavings: 90 * time.Second})
	}
	lines := Recommendations(in, 5)
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d", len(lines))
	}
	if lines[0] != "1. s (Estimated savings: 1.5 min)" {
		t.Errorf("unexpected line: %q", lines[0])
	}
	if !strings.HasPrefix(lines[4], "5. ") {
		t.Errorf("expected 1-indexed numbering, got %q", lines[4])
	}
}

// --- Types ---

func TestParseType(t *testing.T) {
	tests := []struct {
		in   string
		want OptimizationType
		ok   bool
	}{
		{"cache", TypeCache, true},
		{" Matrix ", TypeMatrix, true},
		{"resource_upgrade", TypeResourceUpgrade, true},
		{"runner", TypeOther, false},
		{"", TypeOther, false},
	}
	for _, tt := range tests {
		got, ok := ParseType(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseType(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestImpactLevel_TextRoundTrip(t *testing.T) {
	var l ImpactLevel
	if err := l.UnmarshalText([]byte("Critical")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l != ImpactCritical {
		t.Errorf("expected critical, got %s", l)
	}
	if err := l.UnmarshalText([]byte("severe")); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestSuggestion_MarshalJSON(t *testing.T) {
	s := Suggestion{Type: TypeConcurrency, Title: "t", Impact: ImpactMedium, Confidence: 0.9, EstimatedSavings: 300 * time.Second}
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["impact"] != "medium" {
		t.Errorf("expected impact medium, got %v", out["impact"])
	}
	if out["estimated_savings_minutes"] != 5.0 {
		t.Errorf("expected 5 minutes, got %v", out["estimated_savings_minutes"])
	}
	if out["code_suggestion"] != nil {
		t.Errorf("expected null code_suggestion, got %v", out["code_suggestion"])
	}
	if jobs, ok := out["affected_jobs"].([]any); !ok || len(jobs) != 0 {
		t.Errorf("expected empty affected_jobs list, got %v", out["affected_jobs"])
	}
}
