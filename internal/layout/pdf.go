package layout

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// fallbackDate stamps documents without an issue date so output stays
// reproducible.
var fallbackDate = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// PDFMeasurer measures text with the core Helvetica metrics gofpdf uses
// when drawing, regular or bold.
type PDFMeasurer struct {
	pdf       *gofpdf.Fpdf
	translate func(string) string
}

func NewPDFMeasurer() *PDFMeasurer {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont(FontFamily, StyleRegular, headerSize)
	return &PDFMeasurer{pdf: pdf, translate: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (m *PDFMeasurer) StringWidth(text, style string, size float64) float64 {
	m.pdf.SetFont(FontFamily, style, size)
	return m.pdf.GetStringWidth(m.translate(text))
}

// pdfSurface draws onto a gofpdf document. Text is converted to cp1252,
// the encoding of the core fonts.
type pdfSurface struct {
	pdf       *gofpdf.Fpdf
	translate func(string) string
}

func (s *pdfSurface) AddPage() {
	s.pdf.AddPage()
}

func (s *pdfSurface) SetFont(family, style string, size float64) {
	s.pdf.SetFont(family, style, size)
}

func (s *pdfSurface) Text(x, y float64, text string) {
	s.pdf.Text(x, y, s.translate(text))
}

// RenderPDF composes and renders the invoice. The PDF creation and
// modification dates come from the issue date, so identical input gives
// identical bytes.
func RenderPDF(in Input) ([]byte, error) {
	paper := in.paper()
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: paper.Width, Ht: paper.Height},
	})
	pdf.SetAutoPageBreak(false, marginBottom)
	pdf.SetCatalogSort(true)

	stamp := fallbackDate
	if !in.Header.IssueDate.IsEmpty() {
		stamp = in.Header.IssueDate.Time
	}
	pdf.SetCreationDate(stamp)
	pdf.SetModificationDate(stamp)
	pdf.SetTitle(ArtifactName(in.Header.InvoiceNumber, "pdf"), true)
	pdf.SetCreator("invoicer", true)

	doc := Compose(in, NewPDFMeasurer())
	doc.Draw(&pdfSurface{pdf: pdf, translate: pdf.UnicodeTranslatorFromDescriptor("")})

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
