// Package output provides styled terminal rendering helpers for pipewatch.
package output

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/pipewatch/internal/suggest"
)

// Palette.
var (
	ColorPrimary = lipgloss.Color("#64b5f6")
	ColorSuccess = lipgloss.Color("#66bb6a")
	ColorError   = lipgloss.Color("#ef5350")
	ColorWarning = lipgloss.Color("#fff59d")
	ColorMuted   = lipgloss.Color("#888888")
)

// Shared styles. SetNoColor swaps them between colored and plain variants.
var (
	StyleHeader  lipgloss.Style
	StyleSuccess lipgloss.Style
	StyleError   lipgloss.Style
	StyleWarning lipgloss.Style
	StyleMuted   lipgloss.Style
	StyleBold    lipgloss.Style

	// StyleLabel and StyleValue lay out "label value" metric lines.
	StyleLabel lipgloss.Style
	StyleValue lipgloss.Style
)

var noColor bool

func init() {
	applyStyles(false)
}

func applyStyles(plain bool) {
	base := lipgloss.NewStyle()
	fg := func(c lipgloss.Color) lipgloss.Style {
		if plain {
			return base
		}
		return base.Foreground(c)
	}
	bold := base.Bold(!plain)

	StyleHeader = fg(ColorPrimary).Bold(!plain)
	StyleSuccess = fg(ColorSuccess)
	StyleError = fg(ColorError)
	StyleWarning = fg(ColorWarning)
	StyleMuted = fg(ColorMuted)
	StyleBold = bold
	StyleLabel = base.Width(24)
	StyleValue = bold.Width(12)
}

// SetNoColor switches every shared style to its plain or colored variant.
func SetNoColor(disabled bool) {
	noColor = disabled
	applyStyles(disabled)
}

// IsNoColor returns whether color output is currently disabled.
func IsNoColor() bool {
	return noColor
}

// ColorDisabled decides whether to strip color: when the user asked for it,
// when the config turns it off, when NO_COLOR is set, or when stdout is not
// a terminal.
func ColorDisabled(flag, configColor bool) bool {
	if flag || !configColor {
		return true
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return true
	}
	fd := os.Stdout.Fd()
	return !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd)
}

// ImpactStyle returns the style used for an impact level.
func ImpactStyle(level suggest.ImpactLevel) lipgloss.Style {
	switch level {
	case suggest.ImpactCritical:
		return StyleError.Bold(!noColor)
	case suggest.ImpactHigh:
		return StyleError
	case suggest.ImpactMedium:
		return StyleWarning
	default:
		return StyleMuted
	}
}
