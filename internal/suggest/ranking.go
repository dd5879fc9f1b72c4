package suggest

import (
	"fmt"
	"sort"
)

// maxConfidence caps confidence raised by agreement between sources.
const maxConfidence = 0.99

// agreementBoost is added when an external source repeats a rule's type.
const agreementBoost = 0.10

// Merge combines rule-based and externally sourced suggestions, keeping at
// most one per OptimizationType. A rule suggestion is never replaced: when
// an external suggestion shares its type, only the surviving suggestion's
// confidence rises by agreementBoost, capped at maxConfidence. External
// suggestions of a new type are appended in arrival order.
//
// The inputs are not modified.
func Merge(ruleBased, external []Suggestion) []Suggestion {
	merged := make([]Suggestion, 0, len(ruleBased)+len(external))
	index := make(map[OptimizationType]int, len(ruleBased)+len(external))

	add := func(s Suggestion) {
		if i, ok := index[s.Type]; ok {
			merged[i].Confidence = min(maxConfidence, merged[i].Confidence+agreementBoost)
			return
		}
		index[s.Type] = len(merged)
		merged = append(merged, s)
	}

	for _, s := range ruleBased {
		add(s)
	}
	for _, s := range external {
		add(s)
	}
	return merged
}

// RankSuggestions returns a copy sorted by impact (highest first), then by
// confidence (highest first). Ties keep their input order.
func RankSuggestions(suggestions []Suggestion) []Suggestion {
	sorted := make([]Suggestion, len(suggestions))
	copy(sorted, suggestions)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Impact != sorted[j].Impact {
			return sorted[i].Impact > sorted[j].Impact
		}
		return sorted[i].Confidence > sorted[j].Confidence
	})
	return sorted
}

// Recommendations renders the top n ranked suggestions as numbered lines.
func Recommendations(suggestions []Suggestion, n int) []string {
	ranked := RankSuggestions(suggestions)
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	lines := make([]string, 0, len(ranked))
	for i, s := range ranked {
		lines = append(lines, fmt.Sprintf("%d. %s (Estimated savings: %.1f min)", i+1, s.Title, s.SavingsMinutes()))
	}
	return lines
}
