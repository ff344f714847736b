package extract

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"receiptai/internal/textnorm"
)

const vendorScanLines = 20

var (
	vendorBoilerplate = regexp.MustCompile(`(?i)〒|\d{3}-\d{4}|\btel|電話|\bfax|https?://|www\.|\.co\.jp|\.com|@|領収|レシート|receipt|合計|小計|total`)
	amountLikeLine    = regexp.MustCompile(`[¥円]|^[\d,.\s\-+*xX%]+$`)

	legalSuffixes = []string{"株式会社", "(株)", "有限会社", "合同会社", "inc", "ltd", "llc", "co."}
	storeSuffixes = []string{"店", "堂", "屋", "館", "舗", "亭"}
)

// Vendor picks the merchant name among the top lines of the receipt.
func Vendor(lines []textnorm.Line) Result[string] {
	var cands []Candidate[string]
	seen := dedupe{}
	limit := len(lines)
	if limit > vendorScanLines {
		limit = vendorScanLines
	}
	for rank, line := range lines[:limit] {
		text := line.Text
		if amountLikeLine.MatchString(text) || matchesDate(text) || vendorBoilerplate.MatchString(text) {
			continue
		}
		if !seen.first(text) {
			continue
		}
		score := vendorScore(text, rank)
		conf := math.Min(0.95, 0.55+score/2)
		if conf < 0 {
			conf = 0
		}
		cands = append(cands, Candidate[string]{
			Raw:        text,
			Value:      text,
			Confidence: conf,
			LineIndex:  line.Index,
		})
	}
	return Select(cands, DefaultTopK)
}

func vendorScore(text string, rank int) float64 {
	var score float64
	switch {
	case rank < 3:
		score += 0.3
	case rank < 6:
		score += 0.2
	case rank < 10:
		score += 0.1
	}

	lower := strings.ToLower(text)
	if containsAny(lower, legalSuffixes) {
		score += 0.25
	}

	var total, cjk, digits int
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		switch {
		case isCJK(r):
			cjk++
		case unicode.IsDigit(r):
			digits++
		}
	}
	if total > 0 {
		score += 0.2 * float64(cjk) / float64(total)
		score -= 0.4 * float64(digits) / float64(total)
	}

	for _, s := range storeSuffixes {
		if strings.HasSuffix(text, s) {
			score += 0.05
			break
		}
	}
	return score
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r) || r == 'ー'
}
