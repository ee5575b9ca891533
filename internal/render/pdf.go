package render

import (
	"fmt"
	"io"

	"github.com/ashureev/plate-labs/internal/plate"
	"github.com/go-pdf/fpdf"
)

const (
	pdfTitle      = "96-well plate"
	labelColWidth = 12.0
	cellHeight    = 14.0
)

// PDF writes a single landscape A4 page with the title, caption and the
// plate grid.
func PDF(w io.Writer, caption string, t plate.Table) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(pdfTitle, true)
	pdf.SetAutoPageBreak(false, 10)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	usable := pageWidth - left - right

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(usable, 10, pdfTitle, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(usable, 8, tr(caption), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	records := t.Records()
	if len(records) == 0 {
		return pdf.Output(w)
	}
	cols := len(records[0]) - 1
	if cols < 1 {
		return fmt.Errorf("plate table has no columns")
	}
	cellWidth := (usable - labelColWidth) / float64(cols)

	for i, record := range records {
		for j, value := range record {
			width := cellWidth
			if j == 0 {
				width = labelColWidth
			}
			style := ""
			fill := false
			if i == 0 || j == 0 {
				style = "B"
				fill = true
				pdf.SetFillColor(230, 230, 230)
			}
			pdf.SetFont("Helvetica", style, fontSize(value))
			pdf.CellFormat(width, cellHeight, tr(value), "1", 0, "C", fill, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// fontSize shrinks long labels so they fit in one well.
func fontSize(value string) float64 {
	switch n := len(value); {
	case n > 14:
		return 6
	case n > 10:
		return 7
	default:
		return 9
	}
}
