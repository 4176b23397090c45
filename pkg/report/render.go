package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/Sternrassler/netbox-inventory/pkg/flatten"
)

// DefaultDisplayWidth is the cell width beyond which table values are
// truncated.
const DefaultDisplayWidth = 50

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555"))
)

// Section is a titled table and/or free text lines.
type Section struct {
	Title   string
	Headers []string
	Rows    [][]string
	Lines   []string
}

// Failure is a degraded part of a report.
type Failure struct {
	Label string
	Err   error
}

// Report is the rendered-independent result of a view.
type Report struct {
	Title    string
	Sections []*Section
	Failures []Failure
}

func newReport(title string) *Report {
	return &Report{Title: title}
}

// Section appends a section and returns it.
func (r *Report) Section(title string, headers ...string) *Section {
	s := &Section{Title: title, Headers: headers}
	r.Sections = append(r.Sections, s)
	return s
}

// Find returns the first section with the given title.
func (r *Report) Find(title string) *Section {
	for _, s := range r.Sections {
		if s.Title == title {
			return s
		}
	}
	return nil
}

// Degraded reports whether any part of the report failed.
func (r *Report) Degraded() bool {
	return len(r.Failures) > 0
}

// degrade records a failure and returns the value shown in its place.
func (r *Report) degrade(label string, err error) string {
	r.Failures = append(r.Failures, Failure{Label: label, Err: err})
	return Unknown(err)
}

// AddRow appends a table row.
func (s *Section) AddRow(cells ...string) {
	s.Rows = append(s.Rows, cells)
}

// AddLine appends a text line.
func (s *Section) AddLine(format string, args ...any) {
	s.Lines = append(s.Lines, fmt.Sprintf(format, args...))
}

// Render writes the report. Table cells are truncated to width; a width <= 0
// uses DefaultDisplayWidth.
func (r *Report) Render(w io.Writer, width int) error {
	if width <= 0 {
		width = DefaultDisplayWidth
	}
	var b strings.Builder
	if r.Title != "" {
		b.WriteString(titleStyle.Render(r.Title))
		b.WriteString("\n")
	}
	for _, s := range r.Sections {
		b.WriteString("\n")
		if s.Title != "" {
			b.WriteString(titleStyle.Render(s.Title))
			b.WriteString("\n")
		}
		if len(s.Headers) > 0 && len(s.Rows) > 0 {
			b.WriteString(renderTable(s.Headers, s.Rows, width))
			b.WriteString("\n")
		}
		for _, line := range s.Lines {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	if len(r.Failures) > 0 {
		b.WriteString("\n")
		for _, f := range r.Failures {
			b.WriteString(failureStyle.Render(fmt.Sprintf("! %s: %s", f.Label, Unknown(f.Err))))
			b.WriteString("\n")
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func renderTable(headers []string, rows [][]string, width int) string {
	truncated := make([][]string, len(rows))
	for i, row := range rows {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = flatten.Truncate(cell, width)
		}
		truncated[i] = cells
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(truncated...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		String()
}
