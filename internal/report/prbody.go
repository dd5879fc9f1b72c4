package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/blackwell-systems/pipewatch/internal/fixer"
)

// PRBody renders the markdown body of a pull request carrying the applied
// optimizations. Outcomes that did not succeed are listed for manual review.
func PRBody(outcomes []fixer.Outcome) string {
	var applied, review []fixer.Outcome
	for _, o := range outcomes {
		if o.Success {
			applied = append(applied, o)
		} else {
			review = append(review, o)
		}
	}

	var sb strings.Builder
	sb.WriteString("## AI Pipeline Optimizations\n\n")
	sb.WriteString("This PR contains automatic optimizations generated by pipewatch.\n\n")
	sb.WriteString("### Applied Optimizations\n\n")

	var saved time.Duration
	for _, o := range applied {
		s := o.Suggestion
		saved += s.EstimatedSavings
		fmt.Fprintf(&sb, "#### %s\n", s.Title)
		fmt.Fprintf(&sb, "- **Type**: `%s`\n", s.Type)
		fmt.Fprintf(&sb, "- **Impact**: %s\n", strings.ToUpper(s.Impact.String()))
		fmt.Fprintf(&sb, "- **Confidence**: %.0f%%\n", s.Confidence*100)
		fmt.Fprintf(&sb, "- **Estimated savings**: %.1f min\n\n", s.SavingsMinutes())
		if s.Description != "" {
			sb.WriteString(s.Description)
			sb.WriteString("\n\n")
		}
	}

	if len(review) > 0 {
		sb.WriteString("\n### Require Manual Review\n\n")
		for _, o := range review {
			fmt.Fprintf(&sb, "- **%s**: %s\n", o.Suggestion.Title, o.Message)
		}
	}

	sb.WriteString("\n### Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	fmt.Fprintf(&sb, "| Applied optimizations | %d |\n", len(applied))
	fmt.Fprintf(&sb, "| Require review | %d |\n", len(review))
	fmt.Fprintf(&sb, "| Total estimated savings | %.1f min |\n", saved.Minutes())
	sb.WriteString("\n---\n*Automatically generated by pipewatch*\n")

	return sb.String()
}
