package extract

import (
	"regexp"
	"strconv"

	"receiptai/internal/textnorm"
)

// taxRule is one tier of the tax-rate rules; confidences fall with each tier.
type taxRule struct {
	re    *regexp.Regexp
	value func(m []string) (float64, bool)
	conf  float64
}

var taxRules = []taxRule{
	{
		re: regexp.MustCompile(`税率\s*(\d{1,2}(?:\.\d+)?)\s*%`),
		value: func(m []string) (float64, bool) {
			n, err := strconv.ParseFloat(m[1], 64)
			if err != nil || n <= 0 || n >= 100 {
				return 0, false
			}
			return n / 100, true
		},
		conf: 0.85,
	},
	{
		re:    regexp.MustCompile(`(?:^|[^\d.])10\s*%|標準税率`),
		value: fixedRate(0.10),
		conf:  0.82,
	},
	{
		re:    regexp.MustCompile(`(?:^|[^\d.])8\s*%|軽減税率`),
		value: fixedRate(0.08),
		conf:  0.75,
	},
	{
		re:    regexp.MustCompile(`(?i)reduced.*tax`),
		value: fixedRate(0.08),
		conf:  0.6,
	},
}

// TaxRate extracts the consumption tax rate as a fraction (0.10 for 10%).
func TaxRate(lines []textnorm.Line) Result[float64] {
	var cands []Candidate[float64]
	seen := dedupe{}
	for _, rule := range taxRules {
		for _, line := range lines {
			m := rule.re.FindStringSubmatch(line.Text)
			if m == nil {
				continue
			}
			v, ok := rule.value(m)
			if !ok {
				continue
			}
			if !seen.first(strconv.FormatFloat(v, 'f', -1, 64)) {
				continue
			}
			cands = append(cands, Candidate[float64]{
				Raw:        line.Text,
				Value:      v,
				Confidence: rule.conf,
				LineIndex:  line.Index,
			})
		}
	}
	return Select(cands, DefaultTopK)
}

func fixedRate(v float64) func([]string) (float64, bool) {
	return func([]string) (float64, bool) { return v, true }
}
