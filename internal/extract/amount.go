package extract

import (
	"regexp"
	"strconv"
	"strings"

	"receiptai/internal/textnorm"
)

var amountPattern = regexp.MustCompile(`([¥￥]\s*)?(\d{1,3}(?:,\d{3})+|\d+)(\s*円)?`)

var totalKeywords = []string{"合計", "総合計", "税込", "total", "grand total"}

// Amount extracts monetary values. The largest value on the receipt is taken
// as the total since subtotal, tax and total appear in ascending order.
func Amount(lines []textnorm.Line) Result[int64] {
	var cands []Candidate[int64]
	seen := dedupe{}
	bestIdx := -1

	for _, line := range lines {
		lower := strings.ToLower(line.Text)
		hasTotal := containsAny(lower, totalKeywords)
		for _, m := range amountPattern.FindAllStringSubmatchIndex(line.Text, -1) {
			if precededByAlnum(line.Text, m[0]) {
				continue
			}
			raw := strings.TrimSpace(line.Text[m[0]:m[1]])
			if !seen.first(raw) {
				continue
			}
			digits := strings.ReplaceAll(line.Text[m[4]:m[5]], ",", "")
			value, err := strconv.ParseInt(digits, 10, 64)
			if err != nil {
				continue
			}
			cands = append(cands, Candidate[int64]{
				Raw:        raw,
				Value:      value,
				Confidence: amountConfidence(value, hasTotal),
				LineIndex:  line.Index,
			})
			if bestIdx < 0 || value > cands[bestIdx].Value {
				bestIdx = len(cands) - 1
			}
		}
	}
	if bestIdx < 0 {
		return Result[int64]{Alternatives: []Candidate[int64]{}}
	}
	return selectWithBest(cands, bestIdx, DefaultTopK)
}

func amountConfidence(value int64, hasTotal bool) float64 {
	switch {
	case hasTotal:
		return 0.97
	case value >= 1000:
		return 0.9
	default:
		return 0.75
	}
}

// precededByAlnum reports whether the byte before pos is an ASCII letter or
// digit, which means the match sits inside an identifier.
func precededByAlnum(s string, pos int) bool {
	if pos == 0 {
		return false
	}
	c := s[pos-1]
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
