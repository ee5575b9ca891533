// Package plate implements the 96-well plate grid and its placement algorithm.
package plate

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// Rows is the number of plate rows (A-H).
	Rows = 8
	// Columns is the number of plate columns (1-12).
	Columns = 12
	// Wells is the total number of cells on a plate.
	Wells = Rows * Columns

	// Placeholder is what an empty well renders as.
	Placeholder = "-"
)

// RowLabels holds the printed label of each row.
var RowLabels = [Rows]string{"A", "B", "C", "D", "E", "F", "G", "H"}

// Status reports the outcome of a placement.
type Status int

const (
	// AllPlaced means every requested object was written.
	AllPlaced Status = iota
	// GridFull means the plate ran out of empty wells. Objects written
	// before that point stay on the plate.
	GridFull
)

func (s Status) String() string {
	switch s {
	case AllPlaced:
		return "all_placed"
	case GridFull:
		return "grid_full"
	default:
		return "unknown"
	}
}

// Grid is an 8x12 plate. An empty string marks an empty well.
type Grid [Rows][Columns]string

// New returns an empty plate.
func New() *Grid {
	return &Grid{}
}

// Label builds the well label for one object.
func Label(expertiseID, objectNumber string) string {
	return expertiseID + "-" + objectNumber
}

// Place writes objects into the first empty wells, walking the plate column
// by column (A1, B1 ... H1, A2 ...). Callers must make sure
// len(objectNumbers) == count.
func (g *Grid) Place(expertiseID string, objectNumbers []string, count int) Status {
	index := 0
	for col := 0; col < Columns; col++ {
		for row := 0; row < Rows; row++ {
			if g[row][col] != "" {
				continue
			}
			if index >= count {
				return AllPlaced
			}
			g[row][col] = Label(expertiseID, objectNumbers[index])
			index++
		}
	}
	if index >= count {
		return AllPlaced
	}
	return GridFull
}

// Filled returns the number of occupied wells.
func (g *Grid) Filled() int {
	n := 0
	for row := range g {
		for col := range g[row] {
			if g[row][col] != "" {
				n++
			}
		}
	}
	return n
}

// Free returns the number of empty wells.
func (g *Grid) Free() int {
	return Wells - g.Filled()
}

// Clone returns an independent copy of the plate.
func (g *Grid) Clone() *Grid {
	c := *g
	return &c
}

// ParseObjectNumbers splits the comma-separated object number field.
// Entries are kept verbatim.
func ParseObjectNumbers(field string) []string {
	return strings.Split(field, ",")
}

// Position converts a zero-based row and column into a well name such as "C7".
func Position(row, col int) (string, error) {
	if row < 0 || row >= Rows || col < 0 || col >= Columns {
		return "", fmt.Errorf("well %d,%d out of range", row, col)
	}
	return RowLabels[row] + strconv.Itoa(col+1), nil
}
