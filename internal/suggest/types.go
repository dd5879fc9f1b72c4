// Package suggest provides the optimization rule engine, the suggestion
// types it produces, and the merge and ranking policies applied to them.
package suggest

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/blackwell-systems/pipewatch/internal/workflow"
)

// OptimizationType names the kind of change a suggestion proposes.
type OptimizationType string

const (
	TypeCache           OptimizationType = "cache"
	TypeParallel        OptimizationType = "parallel"
	TypeSkipRedundant   OptimizationType = "skip_redundant"
	TypeResourceUpgrade OptimizationType = "resource_upgrade"
	TypeConcurrency     OptimizationType = "concurrency"
	TypeArtifact        OptimizationType = "artifact"
	TypeMatrix          OptimizationType = "matrix"

	// TypeOther holds externally sourced suggestions whose type string is
	// not recognized.
	TypeOther OptimizationType = "other"
)

var knownTypes = map[OptimizationType]bool{
	TypeCache:           true,
	TypeParallel:        true,
	TypeSkipRedundant:   true,
	TypeResourceUpgrade: true,
	TypeConcurrency:     true,
	TypeArtifact:        true,
	TypeMatrix:          true,
	TypeOther:           true,
}

// ParseType maps s to an OptimizationType. Unknown strings map to TypeOther
// with ok set to false.
func ParseType(s string) (t OptimizationType, ok bool) {
	t = OptimizationType(strings.ToLower(strings.TrimSpace(s)))
	if knownTypes[t] {
		return t, true
	}
	return TypeOther, false
}

// ImpactLevel is an ordered severity. Comparisons use the ordinal value.
type ImpactLevel int

const (
	ImpactLow ImpactLevel = iota + 1
	ImpactMedium
	ImpactHigh
	ImpactCritical
)

func (l ImpactLevel) String() string {
	switch l {
	case ImpactLow:
		return "low"
	case ImpactMedium:
		return "medium"
	case ImpactHigh:
		return "high"
	case ImpactCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ParseImpact maps a level name to its ImpactLevel.
func ParseImpact(s string) (ImpactLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return ImpactLow, nil
	case "medium":
		return ImpactMedium, nil
	case "high":
		return ImpactHigh, nil
	case "critical":
		return ImpactCritical, nil
	}
	return 0, fmt.Errorf("unknown impact level %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (l ImpactLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *ImpactLevel) UnmarshalText(b []byte) error {
	v, err := ParseImpact(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// Sources that a suggestion can originate from.
const (
	SourceRules = "rules"
	SourceAI    = "ai"
)

// Suggestion is one proposed optimization. Once created only its
// Confidence may change, and only through Merge.
type Suggestion struct {
	Type             OptimizationType
	Title            string
	Description      string
	Impact           ImpactLevel
	Confidence       float64 // 0..1
	EstimatedSavings time.Duration
	AffectedJobs     []string
	CodeSuggestion   string
	Source           string
}

// SavingsMinutes returns the estimated savings in minutes.
func (s Suggestion) SavingsMinutes() float64 {
	return s.EstimatedSavings.Seconds() / 60
}

type suggestionJSON struct {
	Type                    OptimizationType `json:"type"`
	Title                   string           `json:"title"`
	Description             string           `json:"description"`
	Impact                  ImpactLevel      `json:"impact"`
	Confidence              float64          `json:"confidence"`
	EstimatedSavingsMinutes float64          `json:"estimated_savings_minutes"`
	AffectedJobs            []string         `json:"affected_jobs"`
	CodeSuggestion          *string          `json:"code_suggestion"`
	Source                  string           `json:"source,omitempty"`
}

// MarshalJSON renders the suggestion in the report's wire shape.
func (s Suggestion) MarshalJSON() ([]byte, error) {
	out := suggestionJSON{
		Type:                    s.Type,
		Title:                   s.Title,
		Description:             s.Description,
		Impact:                  s.Impact,
		Confidence:              s.Confidence,
		EstimatedSavingsMinutes: s.SavingsMinutes(),
		AffectedJobs:            s.AffectedJobs,
		Source:                  s.Source,
	}
	if out.AffectedJobs == nil {
		out.AffectedJobs = []string{}
	}
	if s.CodeSuggestion != "" {
		code := s.CodeSuggestion
		out.CodeSuggestion = &code
	}
	return json.Marshal(out)
}

// Rule inspects a document and returns at most one suggestion.
type Rule func(doc *workflow.Document) (Suggestion, bool)
