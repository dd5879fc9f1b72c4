package output

import (
	"fmt"
	"strings"
)

// ConfidenceBar renders a visual bar for a confidence in [0,1].
// Example: "████████░░ 80%"
func ConfidenceBar(confidence float64, width int) string {
	if width <= 0 {
		width = 10
	}
	filled := int(confidence * float64(width))
	filled = max(0, min(width, filled))

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	var style func(string) string
	switch {
	case confidence >= 0.8:
		style = func(s string) string { return StyleSuccess.Render(s) }
	case confidence >= 0.5:
		style = func(s string) string { return StyleWarning.Render(s) }
	default:
		style = func(s string) string { return StyleError.Render(s) }
	}

	return fmt.Sprintf("%s %s", style(bar), StyleMuted.Render(fmt.Sprintf("%.0f%%", confidence*100)))
}

// OutcomeMark returns a styled marker for an applied or skipped change.
func OutcomeMark(success bool) string {
	if success {
		return StyleSuccess.Render("✓")
	}
	return StyleWarning.Render("!")
}

// Minutes formats a savings figure.
func Minutes(m float64) string {
	return fmt.Sprintf("%.1f min", m)
}

// Section prints a styled section header with a horizontal rule.
func Section(title string) string {
	header := StyleHeader.Render(title)
	rule := StyleMuted.Render(strings.Repeat("─", 66))
	return fmt.Sprintf("\n %s\n %s", header, rule)
}
