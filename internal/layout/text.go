package layout

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	ptToMM = 25.4 / 72
	// columnMM is how many millimetres one character cell covers in a
	// text rendering.
	columnMM = 2.0
)

// TextMetrics is a fixed-pitch Measurer: every rune is half an em wide in
// any style.
type TextMetrics struct{}

func (TextMetrics) StringWidth(text, _ string, size float64) float64 {
	return float64(utf8.RuneCountInString(text)) * size * 0.5 * ptToMM
}

type textSurface struct {
	pages [][]PlacedText
}

func (s *textSurface) AddPage() {
	s.pages = append(s.pages, nil)
}

func (s *textSurface) SetFont(string, string, float64) {}

func (s *textSurface) Text(x, y float64, text string) {
	if len(s.pages) == 0 {
		s.AddPage()
	}
	last := len(s.pages) - 1
	s.pages[last] = append(s.pages[last], PlacedText{Page: last + 1, X: x, Y: y, Text: text})
}

// RenderText draws the document as monospaced plain text, one character
// cell per columnMM millimetres. Pages are separated by a form feed.
func RenderText(doc Document) string {
	s := &textSurface{}
	doc.Draw(s)

	var b strings.Builder
	for i, page := range s.pages {
		if i > 0 {
			b.WriteString("\f\n")
		}
		sort.SliceStable(page, func(a, c int) bool {
			if page[a].Y != page[c].Y {
				return page[a].Y < page[c].Y
			}
			return page[a].X < page[c].X
		})
		prevY := math.Inf(-1)
		var line []rune
		flush := func() {
			if line != nil {
				b.WriteString(strings.TrimRight(string(line), " "))
				b.WriteByte('\n')
			}
		}
		for _, t := range page {
			if t.Y != prevY {
				flush()
				if !math.IsInf(prevY, -1) && t.Y-prevY > rowHeight {
					b.WriteByte('\n')
				}
				line = []rune{}
				prevY = t.Y
			}
			col := int(math.Round(t.X / columnMM))
			if len(line) > 0 && col <= len(line) {
				col = len(line) + 1
			}
			for len(line) < col {
				line = append(line, ' ')
			}
			line = append(line, []rune(t.Text)...)
		}
		flush()
	}
	return b.String()
}
