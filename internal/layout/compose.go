package layout

import (
	"strings"

	"invoicer/internal/core"
)

const (
	marginLeft   = 20.0
	marginRight  = 20.0
	marginTop    = 20.0
	marginBottom = 20.0

	titleSize  = 24.0
	headerSize = 12.0
	tableSize  = 10.0
	totalSize  = 14.0
	notesSize  = 10.0
	issuerSize = 10.0

	tableHeaderY  = 100.0
	firstRowY     = 110.0
	contHeaderY   = 20.0
	contFirstRowY = 30.0
	rowHeight     = 10.0

	// Description and custom columns are narrow once any custom column exists.
	wideColumn   = 50.0
	narrowColumn = 35.0
	qtyWidth     = 20.0
	rateWidth    = 25.0

	issuerTopY       = 20.0
	issuerLineHeight = 6.0
	issuerMaxY       = 62.0

	totalGap        = 10.0
	notesLabelGap   = 25.0
	notesTextGap    = 7.0
	notesLineHeight = 5.0
)

// tableColumns holds the x offset of every table column, left to right.
type tableColumns struct {
	description float64
	custom      []float64
	qty         float64
	rate        float64
	amount      float64
}

func columnOffsets(customCount int) tableColumns {
	width := wideColumn
	if customCount > 0 {
		width = narrowColumn
	}
	x := marginLeft
	tc := tableColumns{description: x, custom: make([]float64, customCount)}
	x += width
	for i := range tc.custom {
		tc.custom[i] = x
		x += width
	}
	tc.qty = x
	x += qtyWidth
	tc.rate = x
	x += rateWidth
	tc.amount = x
	return tc
}

type composer struct {
	m     Measurer
	paper PaperSize
	doc   Document

	style string
	size  float64
}

// Compose lays out the invoice. Rows that would cross the bottom margin
// continue on a new page under a repeated table header, keeping column
// offsets and row order.
func Compose(in Input, m Measurer) Document {
	c := &composer{m: m, paper: in.paper()}
	h := in.Header
	currency := in.currency()

	c.addPage()
	c.font(StyleBold, titleSize)
	c.text(marginLeft, 20, "INVOICE")
	if !in.Issuer.IsEmpty() {
		c.issuer(in.Issuer)
	}

	c.font(StyleRegular, headerSize)
	c.text(marginLeft, 35, "Invoice #: "+orDash(h.InvoiceNumber))
	c.text(marginLeft, 42, "Date: "+orDash(h.IssueDate.String()))
	c.text(marginLeft, 49, "Due Date: "+orDash(h.DueDate.String()))
	if h.Category != core.CategoryNone {
		c.text(marginLeft, 56, "Category: "+h.Category.Label())
	}

	c.text(marginLeft, 70, "Bill To:")
	c.text(marginLeft, 77, orDash(h.ClientName))
	if strings.TrimSpace(h.ClientEmail) != "" {
		c.text(marginLeft, 84, h.ClientEmail)
	}

	cols := columnOffsets(len(in.Columns))
	c.tableHeader(cols, in.Columns, tableHeaderY)

	y := firstRowY
	for _, it := range in.Items {
		if y > c.bottom() {
			c.addPage()
			c.tableHeader(cols, in.Columns, contHeaderY)
			y = contFirstRowY
		}
		c.row(cols, in.Columns, it, y, currency)
		y += rowHeight
	}

	totalY := y + totalGap
	if totalY > c.bottom() {
		c.addPage()
		totalY = marginTop
	}
	label := "Total: " + core.FormatCurrency(currency, in.Total)
	c.font(StyleBold, totalSize)
	c.text(c.paper.Width-marginRight-m.StringWidth(label, StyleBold, totalSize), totalY, label)

	if strings.TrimSpace(h.Notes) != "" {
		c.notes(h.Notes, totalY-totalGap)
	}
	return c.doc
}

func (c *composer) bottom() float64 {
	return c.paper.Height - marginBottom
}

func (c *composer) addPage() {
	c.doc.Ops = append(c.doc.Ops, Op{Kind: OpAddPage})
	c.size = 0
}

// font emits a font change only when the style or size differs from the
// current one.
func (c *composer) font(style string, size float64) {
	if c.size == size && c.style == style {
		return
	}
	c.style, c.size = style, size
	c.doc.Ops = append(c.doc.Ops, Op{Kind: OpSetFont, Family: FontFamily, Style: style, Size: size})
}

func (c *composer) text(x, y float64, s string) {
	c.doc.Ops = append(c.doc.Ops, Op{Kind: OpText, X: x, Y: y, Text: s})
}

// issuer right-aligns the company block across from the title, inside the
// right half of the page and above the Bill To block.
func (c *composer) issuer(p core.Profile) {
	width := c.paper.Width/2 - marginRight
	y := issuerTopY
	place := func(text, style string, size float64) {
		if strings.TrimSpace(text) == "" {
			return
		}
		for _, line := range Wrap(c.m, text, style, size, width) {
			if line == "" {
				continue
			}
			if y > issuerMaxY {
				return
			}
			c.font(style, size)
			c.text(c.paper.Width-marginRight-c.m.StringWidth(line, style, size), y, line)
			y += issuerLineHeight
		}
	}
	place(p.CompanyName, StyleBold, headerSize)
	place(p.Address, StyleRegular, issuerSize)
	place(p.Email, StyleRegular, issuerSize)
	place(p.Phone, StyleRegular, issuerSize)
}

func (c *composer) tableHeader(cols tableColumns, columns []core.Column, y float64) {
	c.font(StyleBold, tableSize)
	c.text(cols.description, y, "Description")
	for i, col := range columns {
		c.text(cols.custom[i], y, col.Name)
	}
	c.text(cols.qty, y, "Qty")
	c.text(cols.rate, y, "Rate")
	c.text(cols.amount, y, "Amount")
}

func (c *composer) row(cols tableColumns, columns []core.Column, it core.LineItem, y float64, currency string) {
	c.font(StyleRegular, tableSize)
	c.text(cols.description, y, orDash(it.Description))
	for i, col := range columns {
		cell := "-"
		if v, ok := it.Custom[col.ID]; ok {
			cell = v.Display()
		}
		c.text(cols.custom[i], y, cell)
	}
	c.text(cols.qty, y, it.Quantity.String())
	c.text(cols.rate, y, core.FormatCurrency(currency, it.Rate))
	c.text(cols.amount, y, core.FormatCurrency(currency, it.Amount))
}

// notes places the label and the wrapped text below the row cursor y.
func (c *composer) notes(text string, y float64) {
	labelY := y + notesLabelGap
	if labelY > c.bottom() {
		c.addPage()
		labelY = marginTop
	}
	c.font(StyleBold, notesSize)
	c.text(marginLeft, labelY, "Notes:")

	c.font(StyleRegular, notesSize)
	width := c.paper.Width - marginLeft - marginRight
	lineY := labelY + notesTextGap
	for _, line := range Wrap(c.m, text, StyleRegular, notesSize, width) {
		if lineY > c.bottom() {
			c.addPage()
			c.font(StyleRegular, notesSize)
			lineY = marginTop
		}
		c.text(marginLeft, lineY, line)
		lineY += notesLineHeight
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
