package suggest

import "github.com/blackwell-systems/pipewatch/internal/workflow"

// Engine runs all registered rules against a document and collects the
// resulting suggestions.
type Engine struct {
	rules []Rule
}

// NewEngine creates a new suggest engine with all built-in rules registered.
func NewEngine() *Engine {
	return &Engine{
		rules: []Rule{
			MissingCache,
			MissingConcurrency,
			IndependentJobs,
			MatrixCandidate,
		},
	}
}

// Run executes every rule in registration order. Rules never see each
// other's output; the returned slice is in rule order, not ranked.
func (e *Engine) Run(doc *workflow.Document) []Suggestion {
	var all []Suggestion
	for _, rule := range e.rules {
		if s, ok := rule(doc); ok {
			all = append(all, s)
		}
	}
	return all
}
