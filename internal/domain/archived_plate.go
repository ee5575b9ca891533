// Package domain contains core domain types for the plate-labs application.
package domain

import (
	"time"

	"github.com/ashureev/plate-labs/internal/plate"
)

// ArchivedPlate is the final layout of a closed research.
type ArchivedPlate struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	ClosedBy    string     `json:"closed_by,omitempty"`
	Cells       plate.Grid `json:"cells"`
	FilledWells int        `json:"filled_wells"`
	CreatedAt   time.Time  `json:"created_at"`
	ClosedAt    time.Time  `json:"closed_at"`
}

// Table renders the archived layout.
func (a *ArchivedPlate) Table() plate.Table {
	return plate.Render(&a.Cells)
}
