package flatten

import (
	"strings"
	"unicode/utf8"
)

// Truncate shortens each line of s to at most width runes, marking cut lines
// with Ellipsis. A width that cannot hold the marker disables truncation.
func Truncate(s string, width int) string {
	if width <= len(Ellipsis) || utf8.RuneCountInString(s) <= width {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if utf8.RuneCountInString(line) <= width {
			continue
		}
		runes := []rune(line)
		lines[i] = string(runes[:width-len(Ellipsis)]) + Ellipsis
	}
	return strings.Join(lines, "\n")
}

// Truncate returns a copy of the row with every value truncated for display.
func (r Row) Truncate(width int) Row {
	cells := make([]Cell, len(r.cells))
	for i, c := range r.cells {
		cells[i] = Cell{Column: c.Column, Value: Truncate(c.Value, width)}
	}
	return Row{cells: cells}
}
