// Package history computes aggregate statistics and qualitative pattern
// flags over a sequence of pipeline runs.
package history

import (
	"encoding/json"
	"fmt"

	"github.com/blackwell-systems/pipewatch/internal/workflow"
)

// Thresholds that trigger patterns. Durations are in seconds.
const (
	HighVarianceThreshold   = 3600.0
	LowSuccessRateThreshold = 0.8
	SlowMeanDurationSeconds = 600.0
)

// PatternType identifies a detected pattern.
type PatternType string

const (
	PatternHighVariance    PatternType = "high_variance"
	PatternHighFailureRate PatternType = "high_failure_rate"
	PatternSlowPipeline    PatternType = "slow_pipeline"
)

// Statistics summarizes a run sequence. Durations are in seconds.
type Statistics struct {
	TotalRuns        int     `json:"total_runs"`
	SuccessRate      float64 `json:"success_rate"`
	AvgDuration      float64 `json:"avg_duration_seconds"`
	MinDuration      float64 `json:"min_duration_seconds"`
	MaxDuration      float64 `json:"max_duration_seconds"`
	DurationVariance float64 `json:"duration_variance"`
}

// Pattern is a qualitative finding with a fixed recommendation.
type Pattern struct {
	Type           PatternType `json:"type"`
	Description    string      `json:"description"`
	Recommendation string      `json:"recommendation"`
}

// Analysis is the History Analyzer output. Statistics is nil when there
// were no runs; that is a defined result, not an error.
type Analysis struct {
	Statistics *Statistics `json:"statistics"`
	Patterns   []Pattern   `json:"patterns"`
}

// MarshalJSON renders nil statistics as an empty object and nil patterns
// as an empty list.
func (a Analysis) MarshalJSON() ([]byte, error) {
	out := struct {
		Patterns   []Pattern `json:"patterns"`
		Statistics any       `json:"statistics"`
	}{Patterns: a.Patterns, Statistics: a.Statistics}
	if out.Patterns == nil {
		out.Patterns = []Pattern{}
	}
	if a.Statistics == nil {
		out.Statistics = struct{}{}
	}
	return json.Marshal(out)
}

// Empty reports whether the analysis covered no runs.
func (a Analysis) Empty() bool {
	return a.Statistics == nil
}

// Analyze computes statistics and patterns over runs.
func Analyze(runs []workflow.Run) Analysis {
	if len(runs) == 0 {
		return Analysis{Patterns: []Pattern{}}
	}

	durations := make([]float64, len(runs))
	successes := 0
	for i, r := range runs {
		durations[i] = r.Duration.Seconds()
		if r.Succeeded() {
			successes++
		}
	}

	mean, lo, hi := summarize(durations)
	stats := &Statistics{
		TotalRuns:        len(runs),
		SuccessRate:      float64(successes) / float64(len(runs)),
		AvgDuration:      mean,
		MinDuration:      lo,
		MaxDuration:      hi,
		DurationVariance: Variance(durations),
	}

	return Analysis{Statistics: stats, Patterns: detectPatterns(stats)}
}

func detectPatterns(s *Statistics) []Pattern {
	patterns := []Pattern{}

	if s.DurationVariance > HighVarianceThreshold {
		patterns = append(patterns, Pattern{
			Type:           PatternHighVariance,
			Description:    "High duration variability - possible cache or resource issues",
			Recommendation: "Review cache configuration and consider more powerful runners",
		})
	}

	if s.SuccessRate < LowSuccessRateThreshold {
		patterns = append(patterns, Pattern{
			Type:           PatternHighFailureRate,
			Description:    fmt.Sprintf("Low success rate (%.1f%%)", s.SuccessRate*100),
			Recommendation: "Review flaky tests and retry configuration",
		})
	}

	if s.AvgDuration > SlowMeanDurationSeconds {
		patterns = append(patterns, Pattern{
			Type:           PatternSlowPipeline,
			Description:    "Slow average pipeline duration",
			Recommendation: "Apply caching and parallelization optimizations",
		})
	}

	return patterns
}

// Variance returns the population variance of values, or 0 for fewer than
// two samples.
func Variance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean, _, _ := summarize(values)
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return sum / float64(len(values))
}

func summarize(values []float64) (mean, lo, hi float64) {
	lo, hi = values[0], values[0]
	var sum float64
	for _, v := range values {
		sum += v
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return sum / float64(len(values)), lo, hi
}
