package extract

import (
	"strings"

	"receiptai/internal/textnorm"
)

// paymentFamily maps a keyword family to a canonical payment method.
type paymentFamily struct {
	method     string
	keywords   []string
	confidence float64
}

// paymentFamilies are checked in priority order; the first family that
// matches any line wins.
var paymentFamilies = []paymentFamily{
	{
		method:     "クレジット",
		keywords:   []string{"クレジット", "クレカ", "credit", "visa", "mastercard", "master card", "jcb", "amex", "american express", "diners", "カード払"},
		confidence: 0.78,
	},
	{
		method:     "現金",
		keywords:   []string{"現金", "お預り", "お預かり", "cash"},
		confidence: 0.75,
	},
	{
		method:     "電子マネー",
		keywords:   []string{"suica", "pasmo", "icoca", "交通系", "電子マネー", "nanaco", "waon", "edy", "quicpay"},
		confidence: 0.72,
	},
	{
		method:     "コード決済",
		keywords:   []string{"paypay", "楽天ペイ", "line pay", "d払い", "au pay", "メルペイ", "apple pay", "google pay"},
		confidence: 0.7,
	},
	{
		method:     "銀行振込",
		keywords:   []string{"振込", "振り込み", "bank transfer"},
		confidence: 0.65,
	},
	{
		method:     "請求書払い",
		keywords:   []string{"請求書", "掛売", "売掛", "invoice"},
		confidence: 0.6,
	},
}

// PaymentMethod classifies how the receipt was paid.
func PaymentMethod(lines []textnorm.Line) Result[string] {
	var cands []Candidate[string]
	for _, fam := range paymentFamilies {
		if c, ok := matchFamily(fam, lines); ok {
			cands = append(cands, c)
		}
	}
	return Select(cands, DefaultTopK)
}

func matchFamily(fam paymentFamily, lines []textnorm.Line) (Candidate[string], bool) {
	for _, line := range lines {
		lower := strings.ToLower(line.Text)
		for _, kw := range fam.keywords {
			if strings.Contains(lower, kw) {
				return Candidate[string]{
					Raw:        line.Text,
					Value:      fam.method,
					Confidence: fam.confidence,
					LineIndex:  line.Index,
				}, true
			}
		}
	}
	return Candidate[string]{}, false
}
