package layout

import "strings"

// Wrap breaks text into lines no wider than width when set in style at
// size. Explicit newlines are kept; words longer than width are split by
// rune.
func Wrap(m Measurer, text, style string, size, width float64) []string {
	var lines []string
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		line := ""
		for _, w := range words {
			candidate := w
			if line != "" {
				candidate = line + " " + w
			}
			if m.StringWidth(candidate, style, size) <= width {
				line = candidate
				continue
			}
			if line != "" {
				lines = append(lines, line)
				line = ""
			}
			for m.StringWidth(w, style, size) > width {
				head, tail := splitWord(m, w, style, size, width)
				lines = append(lines, head)
				w = tail
			}
			line = w
		}
		lines = append(lines, line)
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// splitWord returns the longest prefix of w that fits, always at least one rune.
func splitWord(m Measurer, w, style string, size, width float64) (string, string) {
	runes := []rune(w)
	n := 1
	for n < len(runes) && m.StringWidth(string(runes[:n+1]), style, size) <= width {
		n++
	}
	return string(runes[:n]), string(runes[n:])
}
