// Package fixer applies optimization suggestions to a pipeline document.
// Each application works on a copy of the document and yields an Outcome
// describing what changed; a failure never propagates to the caller.
package fixer

import (
	"fmt"
	"math"

	"github.com/blackwell-systems/pipewatch/internal/suggest"
	"github.com/blackwell-systems/pipewatch/internal/workflow"
)

// Outcome is the result of applying one suggestion.
type Outcome struct {
	Success     bool               `json:"success"`
	Suggestion  suggest.Suggestion `json:"optimization"`
	Original    *workflow.Document `json:"-"`
	Optimized   *workflow.Document `json:"-"`
	Diff        string             `json:"diff"`
	UnifiedDiff string             `json:"unified_diff,omitempty"`
	Message     string             `json:"message"`
}

// mutation edits doc in place and returns the YAML fragment it introduced.
type mutation func(doc *workflow.Document) (fragment string, err error)

// mutations is the closed set of suggestion types that can be applied
// automatically, with the message reported on success.
var mutations = map[suggest.OptimizationType]struct {
	apply   mutation
	message string
}{
	suggest.TypeCache:       {addCache, "Cache added successfully"},
	suggest.TypeConcurrency: {addConcurrency, "Concurrency control added"},
	suggest.TypeMatrix:      {addMatrix, "Matrix strategy added"},
}

// Apply attempts s against a copy of doc. doc itself is never modified. On
// failure Optimized is an unmodified copy of doc.
func Apply(doc *workflow.Document, s suggest.Suggestion) (out Outcome) {
	if doc == nil {
		return Outcome{Suggestion: s, Message: "Error applying optimization: no document"}
	}
	out = Outcome{
		Suggestion: s,
		Original:   doc.Clone(),
		Optimized:  doc.Clone(),
	}

	defer func() {
		if r := recover(); r != nil {
			out = failed(out, fmt.Sprintf("Error applying optimization: %v", r))
		}
	}()

	if math.IsNaN(s.Confidence) || s.Confidence < 0 || s.Confidence > 1 {
		return failed(out, fmt.Sprintf("Error applying optimization: confidence %v outside [0,1]", s.Confidence))
	}

	if s.Type == suggest.TypeParallel {
		out.Diff = s.CodeSuggestion
		out.Message = "Parallelization requires manual review"
		return out
	}

	m, ok := mutations[s.Type]
	if !ok {
		out.Message = fmt.Sprintf("Type %s not supported for auto-apply", s.Type)
		return out
	}

	fragment, err := m.apply(out.Optimized)
	if err != nil {
		return failed(out, fmt.Sprintf("Error applying optimization: %v", err))
	}

	unified, err := unifiedDiff(out.Original, out.Optimized)
	if err != nil {
		return failed(out, fmt.Sprintf("Error applying optimization: %v", err))
	}

	out.Success = true
	out.Diff = fragment
	out.UnifiedDiff = unified
	out.Message = m.message
	return out
}

func failed(out Outcome, message string) Outcome {
	out.Success = false
	if out.Original != nil {
		out.Optimized = out.Original.Clone()
	}
	out.Diff = ""
	out.UnifiedDiff = ""
	out.Message = message
	return out
}

// ApplyAll applies, in order, every suggestion whose confidence meets
// threshold. Each suggestion sees the document produced by the successful
// applications before it. It returns one outcome per attempted suggestion
// and the accumulated document; doc itself is never modified.
func ApplyAll(doc *workflow.Document, suggestions []suggest.Suggestion, threshold float64) ([]Outcome, *workflow.Document) {
	current := doc.Clone()
	outcomes := make([]Outcome, 0, len(suggestions))
	for _, s := range suggestions {
		if s.Confidence < threshold {
			continue
		}
		o := Apply(current, s)
		outcomes = append(outcomes, o)
		if o.Success {
			current = o.Optimized
		}
	}
	return outcomes, current
}

// Applied returns the successful outcomes.
func Applied(outcomes []Outcome) []Outcome {
	var out []Outcome
	for _, o := range outcomes {
		if o.Success {
			out = append(out, o)
		}
	}
	return out
}

// AnySucceeded reports whether at least one outcome succeeded.
func AnySucceeded(outcomes []Outcome) bool {
	for _, o := range outcomes {
		if o.Success {
			return true
		}
	}
	return false
}
