package export

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfLineHeight = 7.0
	// PDFPageBreakY is the vertical position (mm) past which a new page starts.
	PDFPageBreakY = 270.0
)

// Document is a titled list of pre-formatted lines.
type Document struct {
	Title    string
	Subtitle string
	Lines    []string
}

// PDFExporter renders documents into a paginated A4 PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates the PDF bytes for the document.
func (e *PDFExporter) Render(doc Document) ([]byte, error) {
	if len(doc.Lines) == 0 {
		return nil, ErrEmptyDataset
	}
	pdf := e.build(doc)
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	if buf.Len() == 0 {
		return nil, errors.New("render pdf: empty output")
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) build(doc Document) *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	// Core fonts are cp1252 encoded.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if doc.Title != "" {
		pdf.SetFont("Arial", "B", 16)
		pdf.CellFormat(0, 10, tr(doc.Title), "", 1, "L", false, 0, "")
	}
	if doc.Subtitle != "" {
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 6, tr(doc.Subtitle), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 10)
	for _, line := range doc.Lines {
		if pdf.GetY() > PDFPageBreakY {
			pdf.AddPage()
			pdf.SetFont("Arial", "", 10)
		}
		pdf.CellFormat(0, pdfLineHeight, tr(line), "", 1, "L", false, 0, "")
	}
	return pdf
}
