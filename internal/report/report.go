// Package report assembles analysis results into a single payload for the
// CLI and renders the pull-request body for applied optimizations.
package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/blackwell-systems/pipewatch/internal/fixer"
	"github.com/blackwell-systems/pipewatch/internal/history"
	"github.com/blackwell-systems/pipewatch/internal/suggest"
)

// maxRecommendations bounds the prioritized recommendation list.
const maxRecommendations = 5

// Report is the complete analysis payload.
type Report struct {
	ID              string               `json:"id"`
	GeneratedAt     time.Time            `json:"generated_at"`
	Summary         Summary              `json:"summary"`
	Optimizations   []suggest.Suggestion `json:"optimizations"`
	HistoryAnalysis history.Analysis     `json:"history_analysis"`
	Recommendations []string             `json:"recommendations"`
	Applications    []fixer.Outcome      `json:"applications,omitempty"`
	Sources         Sources              `json:"sources"`
}

// Summary aggregates the suggestion set.
type Summary struct {
	TotalOptimizations           int     `json:"total_optimizations"`
	HighImpactCount              int     `json:"high_impact_count"`
	EstimatedTotalSavingsMinutes float64 `json:"estimated_total_savings_minutes"`
}

// SourceState describes how an external collaborator fared.
type SourceState string

const (
	SourceOK       SourceState = "ok"
	SourceEmpty    SourceState = "empty"
	SourceFailed   SourceState = "failed"
	SourceDisabled SourceState = "disabled"
)

// SourceStatus is the diagnostic record for one external collaborator.
type SourceStatus struct {
	State SourceState `json:"state"`
	Count int         `json:"count"`
	Error string      `json:"error,omitempty"`
}

// Sources holds the diagnostics for the run-history fetch and the AI source.
type Sources struct {
	History SourceStatus `json:"history"`
	AI      SourceStatus `json:"ai"`
}

// StatusOf classifies the result of an external call.
func StatusOf(count int, err error) SourceStatus {
	switch {
	case err != nil:
		return SourceStatus{State: SourceFailed, Error: err.Error()}
	case count == 0:
		return SourceStatus{State: SourceEmpty}
	default:
		return SourceStatus{State: SourceOK, Count: count}
	}
}

// Disabled is the status of a collaborator that was not configured.
func Disabled() SourceStatus {
	return SourceStatus{State: SourceDisabled}
}

// Build assembles a report. outcomes may be nil when nothing was applied.
func Build(suggestions []suggest.Suggestion, analysis history.Analysis, outcomes []fixer.Outcome, sources Sources) *Report {
	if suggestions == nil {
		suggestions = []suggest.Suggestion{}
	}
	return &Report{
		ID:              uuid.NewString(),
		GeneratedAt:     time.Now().UTC(),
		Summary:         Summarize(suggestions),
		Optimizations:   suggestions,
		HistoryAnalysis: analysis,
		Recommendations: suggest.Recommendations(suggestions, maxRecommendations),
		Applications:    outcomes,
		Sources:         sources,
	}
}

// Summarize counts suggestions, high-impact suggestions and total savings.
func Summarize(suggestions []suggest.Suggestion) Summary {
	s := Summary{TotalOptimizations: len(suggestions)}
	var savings time.Duration
	for _, sg := range suggestions {
		if sg.Impact == suggest.ImpactHigh {
			s.HighImpactCount++
		}
		savings += sg.EstimatedSavings
	}
	s.EstimatedTotalSavingsMinutes = savings.Minutes()
	return s
}
