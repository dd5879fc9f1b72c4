package suggest

import (
	"fmt"
	"strings"
	"time"

	"github.com/blackwell-systems/pipewatch/internal/workflow"
)

// testRunnerTokens are the run-command substrings that mark a test step.
var testRunnerTokens = []string{"pytest", "jest", "go test", "npm test"}

const concurrencySnippet = `concurrency:
  group: ${{ github.workflow }}-${{ github.ref }}
  cancel-in-progress: true`

const pipCacheSnippet = `- name: Cache pip dependencies
  uses: actions/cache@v4
  with:
    path: ~/.cache/pip
    key: ${{ runner.os }}-pip-${{ hashFiles('**/requirements.txt') }}
    restore-keys: |
      ${{ runner.os }}-pip-`

const nodeCacheSnippet = `- name: Cache node modules
  uses: actions/cache@v4
  with:
    path: node_modules
    key: ${{ runner.os }}-node-${{ hashFiles('**/package-lock.json') }}
    restore-keys: |
      ${{ runner.os }}-node-`

const genericCacheSnippet = `- name: Cache dependencies
  uses: actions/cache@v4
  with:
    path: |
      ~/.cache
      .cache
    key: ${{ runner.os }}-deps-${{ github.sha }}
    restore-keys: |
      ${{ runner.os }}-deps-`

const matrixSnippet = `strategy:
  matrix:
    test-group: [unit, integration, e2e]
  fail-fast: false
steps:
  - name: Run Tests
    run: pytest -m "${{ matrix.test-group }}"`

// MissingCache suggests dependency caching when neither a cache action nor
// a cache: key appears anywhere in the document.
func MissingCache(doc *workflow.Document) (Suggestion, bool) {
	text := doc.Text()
	if strings.Contains(text, "actions/cache") || strings.Contains(text, "cache:") {
		return Suggestion{}, false
	}
	return Suggestion{
		Type:             TypeCache,
		Title:            "Add dependency caching",
		Description:      "No actions/cache usage detected. Caching dependencies can significantly reduce build time.",
		Impact:           ImpactHigh,
		Confidence:       0.95,
		EstimatedSavings: 120 * time.Second,
		CodeSuggestion:   cacheSnippet(text),
		Source:           SourceRules,
	}, true
}

// cacheSnippet picks a cache step for the ecosystem hinted at by text.
func cacheSnippet(text string) string {
	switch {
	case strings.Contains(text, "pip") || strings.Contains(text, "python"):
		return pipCacheSnippet
	case strings.Contains(text, "npm") || strings.Contains(text, "node"):
		return nodeCacheSnippet
	default:
		return genericCacheSnippet
	}
}

// MissingConcurrency suggests a concurrency group when the workflow has no
// top-level concurrency key.
func MissingConcurrency(doc *workflow.Document) (Suggestion, bool) {
	if doc.Has("concurrency") {
		return Suggestion{}, false
	}
	return Suggestion{
		Type:             TypeConcurrency,
		Title:            "Add concurrency control",
		Description:      "Configure concurrency to cancel previous runs on the same PR.",
		Impact:           ImpactMedium,
		Confidence:       0.90,
		EstimatedSavings: 300 * time.Second,
		CodeSuggestion:   concurrencySnippet,
		Source:           SourceRules,
	}, true
}

// IndependentJobs suggests parallelization when more than one job declares
// no needs.
func IndependentJobs(doc *workflow.Document) (Suggestion, bool) {
	var names []string
	for _, j := range doc.Jobs() {
		if !j.HasNeeds {
			names = append(names, j.Name)
		}
	}
	if len(names) <= 1 {
		return Suggestion{}, false
	}
	return Suggestion{
		Type:             TypeParallel,
		Title:            "Parallelize independent jobs",
		Description:      fmt.Sprintf("Jobs %s have no dependencies and can run in parallel.", strings.Join(names, ", ")),
		Impact:           ImpactHigh,
		Confidence:       0.85,
		EstimatedSavings: 180 * time.Second,
		AffectedJobs:     names,
		Source:           SourceRules,
	}, true
}

// MatrixCandidate suggests a test matrix when any job without a strategy
// block runs a known test runner. The first hit is enough.
func MatrixCandidate(doc *workflow.Document) (Suggestion, bool) {
	for _, j := range doc.Jobs() {
		if j.HasStrategy {
			continue
		}
		for _, s := range j.Steps {
			if runsTests(s.Run) {
				return Suggestion{
					Type:             TypeMatrix,
					Title:            "Use strategy.matrix for tests",
					Description:      "Multiple tests detected that could run in parallel with matrix.",
					Impact:           ImpactHigh,
					Confidence:       0.80,
					EstimatedSavings: 240 * time.Second,
					CodeSuggestion:   matrixSnippet,
					Source:           SourceRules,
				}, true
			}
		}
	}
	return Suggestion{}, false
}

func runsTests(cmd string) bool {
	for _, tok := range testRunnerTokens {
		if strings.Contains(cmd, tok) {
			return true
		}
	}
	return false
}
