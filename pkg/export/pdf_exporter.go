package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfPageWidthPortrait  = 190.0
	pdfPageWidthLandscape = 277.0
	pdfMaxCellRunes       = 60
)

// PDFExporter renders tables as a simple paginated PDF listing.
type PDFExporter struct {
	now func() time.Time
}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{now: time.Now}
}

// ContentType is the MIME type of rendered output.
func (e *PDFExporter) ContentType() string { return "application/pdf" }

// Extension is the file extension of rendered output.
func (e *PDFExporter) Extension() string { return "pdf" }

// Render creates the document. Tables wider than four columns use landscape
// pages and the header row repeats on every page.
func (e *PDFExporter) Render(table Table) ([]byte, error) {
	if len(table.Headers) == 0 {
		return nil, errNoHeaders
	}
	orientation, width := "P", pdfPageWidthPortrait
	if len(table.Headers) > 4 {
		orientation, width = "L", pdfPageWidthLandscape
	}
	colWidth := width / float64(len(table.Headers))

	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	header := func() {
		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(230, 230, 240)
		for _, h := range table.Headers {
			pdf.CellFormat(colWidth, 8, tr(h), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
	}
	pdf.SetHeaderFunc(func() {
		if pdf.PageNo() > 1 {
			header()
		}
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	if table.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(table.Title), "", 1, "C", false, 0, "")
		pdf.SetFont("Arial", "", 8)
		pdf.CellFormat(0, 6, fmt.Sprintf("Generated %s - %d records", e.now().UTC().Format("Jan 2, 2006 15:04 MST"), len(table.Rows)), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}
	header()
	for _, row := range table.Rows {
		for _, cell := range fit(row, len(table.Headers)) {
			pdf.CellFormat(colWidth, 7, tr(clip(cell)), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func clip(s string) string {
	r := []rune(s)
	if len(r) <= pdfMaxCellRunes {
		return s
	}
	return string(r[:pdfMaxCellRunes-3]) + "..."
}
