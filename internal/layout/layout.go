// Package layout turns an invoice snapshot into positioned text on fixed
// size pages. Composition is pure: Compose emits a list of drawing
// operations that any Surface can replay, so the same input always yields
// the same document.
package layout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"invoicer/internal/core"
	"invoicer/internal/invoice"
)

const (
	FontFamily = "Helvetica"

	StyleRegular = ""
	StyleBold    = "B"
)

// PaperSize is measured in millimetres.
type PaperSize struct {
	Name   string
	Width  float64
	Height float64
}

var (
	A4     = PaperSize{Name: "A4", Width: 210, Height: 297}
	Letter = PaperSize{Name: "Letter", Width: 215.9, Height: 279.4}
)

var ErrUnknownPaperSize = errors.New("unknown paper size")

func ParsePaperSize(name string) (PaperSize, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "a4":
		return A4, nil
	case "letter":
		return Letter, nil
	default:
		return PaperSize{}, fmt.Errorf("%w: %q", ErrUnknownPaperSize, name)
	}
}

// Input is everything the layout needs. Paper defaults to A4 and Currency
// to "$". An empty Issuer leaves the issuer block out.
type Input struct {
	Header   core.Header
	Columns  []core.Column
	Items    []core.LineItem
	Total    decimal.Decimal
	Currency string
	Paper    PaperSize
	Issuer   core.Profile
}

func FromSnapshot(s invoice.Snapshot, currency string, paper PaperSize) Input {
	return Input{
		Header:   s.Header,
		Columns:  s.Columns,
		Items:    s.Items,
		Total:    s.Total,
		Currency: currency,
		Paper:    paper,
	}
}

func (in Input) paper() PaperSize {
	if in.Paper.Width == 0 || in.Paper.Height == 0 {
		return A4
	}
	return in.Paper
}

func (in Input) currency() string {
	if in.Currency == "" {
		return "$"
	}
	return in.Currency
}

// Measurer reports the width of text set in the given style at size
// points, in millimetres.
type Measurer interface {
	StringWidth(text, style string, size float64) float64
}

// Surface is an append-only drawing target.
type Surface interface {
	AddPage()
	SetFont(family, style string, size float64)
	Text(x, y float64, text string)
}

type OpKind int

const (
	OpAddPage OpKind = iota
	OpSetFont
	OpText
)

// Op is one drawing instruction. Only the fields relevant to Kind are set.
type Op struct {
	Kind   OpKind
	Family string
	Style  string
	Size   float64
	X, Y   float64
	Text   string
}

// Document is the composed, surface-independent result of a layout.
type Document struct {
	Ops []Op
}

// Draw replays the document onto s.
func (d Document) Draw(s Surface) {
	for _, op := range d.Ops {
		switch op.Kind {
		case OpAddPage:
			s.AddPage()
		case OpSetFont:
			s.SetFont(op.Family, op.Style, op.Size)
		case OpText:
			s.Text(op.X, op.Y, op.Text)
		}
	}
}

func (d Document) Pages() int {
	n := 0
	for _, op := range d.Ops {
		if op.Kind == OpAddPage {
			n++
		}
	}
	return n
}

// Texts returns the text operations tagged with their 1-based page.
func (d Document) Texts() []PlacedText {
	var out []PlacedText
	page := 0
	for _, op := range d.Ops {
		switch op.Kind {
		case OpAddPage:
			page++
		case OpText:
			out = append(out, PlacedText{Page: page, X: op.X, Y: op.Y, Text: op.Text})
		}
	}
	return out
}

type PlacedText struct {
	Page int
	X, Y float64
	Text string
}

// ArtifactName derives the output file name from the invoice number.
// Path separators and spaces are replaced so the name is always a single
// path element.
func ArtifactName(invoiceNumber, ext string) string {
	n := strings.TrimSpace(invoiceNumber)
	n = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, n)
	if n == "" {
		n = "draft"
	}
	return "invoice-" + n + "." + strings.TrimPrefix(ext, ".")
}
