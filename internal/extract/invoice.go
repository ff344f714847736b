package extract

import (
	"regexp"
	"strings"

	"receiptai/internal/textnorm"
)

const invoiceDigits = 13

var (
	invoicePattern = regexp.MustCompile(`(?:登録番号\s*[:：]?\s*)?T[\s-]*((?:\d[\s-]*){13,})`)
	dashReplacer   = strings.NewReplacer("－", "-", "‐", "-", "‑", "-", "‒", "-", "–", "-", "—", "-", "―", "-", "ー", "-", "−", "-")
)

// InvoiceNumber extracts the qualified-invoice registration number: "T"
// followed by 13 digits.
func InvoiceNumber(lines []textnorm.Line) Result[string] {
	var cands []Candidate[string]
	seen := dedupe{}
	for _, line := range lines {
		text := dashReplacer.Replace(line.Text)
		for _, m := range invoicePattern.FindAllStringSubmatch(text, -1) {
			digits := onlyDigits(m[1])
			if len(digits) < invoiceDigits {
				continue
			}
			value := "T" + digits[:invoiceDigits]
			if !seen.first(value) {
				continue
			}
			cands = append(cands, Candidate[string]{
				Raw:        strings.TrimSpace(m[0]),
				Value:      value,
				Confidence: 0.9,
				LineIndex:  line.Index,
			})
		}
	}
	return Select(cands, DefaultTopK)
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
