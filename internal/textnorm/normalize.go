// Package textnorm canonicalizes raw OCR output before any pattern matching.
package textnorm

import (
	"strings"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Line is one non-empty normalized line. Index is its position in the
// normalized text, which keeps the raw line structure.
type Line struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// OCRText is normalized OCR output. It is produced once per document and not
// modified afterwards.
type OCRText struct {
	Text  string `json:"text"`
	Lines []Line `json:"lines"`
}

// Parse normalizes raw and splits it into non-empty lines.
func Parse(raw string) OCRText {
	text := Normalize(raw)
	var lines []Line
	if text != "" {
		for i, l := range strings.Split(text, "\n") {
			if l == "" {
				continue
			}
			lines = append(lines, Line{Index: i, Text: l})
		}
	}
	return OCRText{Text: text, Lines: lines}
}

// Normalize applies NFKC, folds full-width ASCII to half-width, collapses
// whitespace runs inside each line and trims. Normalize(Normalize(s)) equals
// Normalize(s).
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	folded, _, err := transform.String(transform.Chain(norm.NFKC, width.Fold, norm.NFKC), raw)
	if err != nil {
		folded = norm.NFKC.String(raw)
	}
	folded = strings.ReplaceAll(folded, "\r\n", "\n")
	folded = strings.ReplaceAll(folded, "\r", "\n")

	rawLines := strings.Split(folded, "\n")
	for i, l := range rawLines {
		rawLines[i] = collapseSpaces(l)
	}
	return strings.TrimSpace(strings.Join(rawLines, "\n"))
}

// Texts returns the text of each line, in order.
func (o OCRText) Texts() []string {
	out := make([]string, len(o.Lines))
	for i, l := range o.Lines {
		out[i] = l.Text
	}
	return out
}

func collapseSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pending := false
	for _, r := range s {
		if isSpace(r) {
			pending = true
			continue
		}
		if pending && b.Len() > 0 {
			b.WriteByte(' ')
		}
		pending = false
		b.WriteRune(r)
	}
	return b.String()
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\v', '\f', '\u3000', '\u00a0', '\u2002', '\u2003', '\u2009', '\u200b':
		return true
	}
	return false
}
