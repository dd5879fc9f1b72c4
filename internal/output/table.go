package output

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Align is a column's horizontal alignment.
type Align int

const (
	AlignLeft Align = iota
	AlignRight
)

const columnGap = "  "

// Table renders rows under a header with a rule, padding cells to the
// widest value in each column. Widths ignore ANSI styling.
type Table struct {
	headers []string
	align   []Align
	rows    [][]string
	widths  []int
}

// NewTable creates a table with the given column headers, all left aligned.
func NewTable(headers ...string) *Table {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	return &Table{
		headers: headers,
		align:   make([]Align, len(headers)),
		widths:  widths,
	}
}

// Align sets the alignment of column i. Out-of-range columns are ignored.
func (t *Table) Align(i int, a Align) *Table {
	if i >= 0 && i < len(t.align) {
		t.align[i] = a
	}
	return t
}

// AddRow appends a row. Missing values render empty; extra values are
// dropped.
func (t *Table) AddRow(values ...string) {
	row := make([]string, len(t.headers))
	for i := range row {
		if i < len(values) {
			row[i] = values[i]
		}
		t.widths[i] = max(t.widths[i], lipgloss.Width(row[i]))
	}
	t.rows = append(t.rows, row)
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Render returns the table as a string ending in a newline, or "" when the
// table has no columns.
func (t *Table) Render() string {
	if len(t.headers) == 0 {
		return ""
	}

	header := lipgloss.NewStyle().Bold(!noColor)
	if !noColor {
		header = header.Foreground(ColorPrimary)
	}

	var sb strings.Builder
	t.writeLine(&sb, t.headers, func(s string) string { return header.Render(s) })

	rule := make([]string, len(t.widths))
	for i, w := range t.widths {
		rule[i] = strings.Repeat("─", w)
	}
	t.writeLine(&sb, rule, func(s string) string { return StyleMuted.Render(s) })

	for _, row := range t.rows {
		t.writeLine(&sb, row, nil)
	}
	return sb.String()
}

func (t *Table) writeLine(sb *strings.Builder, cells []string, style func(string) string) {
	for i, cell := range cells {
		if i > 0 {
			sb.WriteString(columnGap)
		}
		cell = pad(cell, t.widths[i], t.align[i])
		if style != nil {
			cell = style(cell)
		}
		sb.WriteString(cell)
	}
	sb.WriteString("\n")
}

// String implements fmt.Stringer.
func (t *Table) String() string {
	return t.Render()
}

// WriteTo writes the rendered table to w.
func (t *Table) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, t.Render())
	return int64(n), err
}

// pad fills s with spaces to the given visual width. Longer values are
// never truncated.
func pad(s string, width int, a Align) string {
	n := width - lipgloss.Width(s)
	if n <= 0 {
		return s
	}
	if a == AlignRight {
		return strings.Repeat(" ", n) + s
	}
	return s + strings.Repeat(" ", n)
}
