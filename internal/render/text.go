// Package render turns plate tables into text, PDF documents and transport
// payloads.
package render

import (
	"github.com/ashureev/plate-labs/internal/plate"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1).Align(lipgloss.Center)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// Text renders a plate as a bordered grid with row labels A-H and column
// labels 1-12. Empty wells show as "-".
func Text(t plate.Table) string {
	records := t.Records()
	if len(records) == 0 {
		return ""
	}
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(records[0]...).
		Rows(records[1:]...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow || col == 0 {
				return headerStyle
			}
			return cellStyle
		})
	return tbl.String()
}
