package plate

import "strconv"

// Table is the text projection of a plate consumed by renderers: row labels
// A-H, column labels 1-12 and a dash for empty wells.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    []TableRow `json:"rows"`
}

// TableRow is one labeled plate row.
type TableRow struct {
	Label string   `json:"label"`
	Cells []string `json:"cells"`
}

// ColumnLabels returns "1".."12".
func ColumnLabels() []string {
	labels := make([]string, Columns)
	for i := range labels {
		labels[i] = strconv.Itoa(i + 1)
	}
	return labels
}

// Render projects the plate into a Table. It does not modify the plate.
func Render(g *Grid) Table {
	t := Table{
		Columns: ColumnLabels(),
		Rows:    make([]TableRow, Rows),
	}
	for row := 0; row < Rows; row++ {
		cells := make([]string, Columns)
		for col := 0; col < Columns; col++ {
			cells[col] = g[row][col]
			if cells[col] == "" {
				cells[col] = Placeholder
			}
		}
		t.Rows[row] = TableRow{Label: RowLabels[row], Cells: cells}
	}
	return t
}

// Cell returns the rendered value at a zero-based row and column, or the
// empty string when out of range.
func (t Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) {
		return ""
	}
	cells := t.Rows[row].Cells
	if col < 0 || col >= len(cells) {
		return ""
	}
	return cells[col]
}

// Records returns the table as a header line followed by one line per row,
// each starting with its row label. Renderers that only understand a plain
// 2-D string grid use this.
func (t Table) Records() [][]string {
	out := make([][]string, 0, len(t.Rows)+1)
	header := append([]string{""}, t.Columns...)
	out = append(out, header)
	for _, r := range t.Rows {
		out = append(out, append([]string{r.Label}, r.Cells...))
	}
	return out
}
