package extract

import (
	"regexp"
	"strings"

	"receiptai/internal/textnorm"
)

var (
	postalPattern     = regexp.MustCompile(`〒\s*\d{3}-?\d{4}|(?:^|[^\d-])\d{3}-\d{4}(?:$|[^\d-])`)
	invoiceLikeDigits = regexp.MustCompile(`T?\d{13}`)
	districtMarkers   = regexp.MustCompile(`市|区|町|村|郡|丁目|番地`)

	prefectures = []string{
		"北海道", "青森県", "岩手県", "宮城県", "秋田県", "山形県", "福島県",
		"茨城県", "栃木県", "群馬県", "埼玉県", "千葉県", "東京都", "神奈川県",
		"新潟県", "富山県", "石川県", "福井県", "山梨県", "長野県", "岐阜県",
		"静岡県", "愛知県", "三重県", "滋賀県", "京都府", "大阪府", "兵庫県",
		"奈良県", "和歌山県", "鳥取県", "島根県", "岡山県", "広島県", "山口県",
		"徳島県", "香川県", "愛媛県", "高知県", "福岡県", "佐賀県", "長崎県",
		"熊本県", "大分県", "宮崎県", "鹿児島県", "沖縄県",
	}
)

// Address extracts the store address. A line anchored by a postal code is
// preferred; keyword-only matches rank below it.
func Address(lines []textnorm.Line) Result[string] {
	var postal, keyword []Candidate[string]
	seen := dedupe{}
	for i, line := range lines {
		text := line.Text
		if invoiceLikeDigits.MatchString(text) {
			continue
		}
		if postalPattern.MatchString(text) {
			value := text
			if i+1 < len(lines) {
				next := lines[i+1].Text
				if !invoiceLikeDigits.MatchString(next) && hasAddressMarker(next) {
					value = text + " " + next
				}
			}
			if seen.first(value) {
				postal = append(postal, Candidate[string]{Raw: text, Value: value, Confidence: 0.75, LineIndex: line.Index})
			}
			continue
		}
		if hasAddressMarker(text) && seen.first(text) {
			keyword = append(keyword, Candidate[string]{Raw: text, Value: text, Confidence: 0.65, LineIndex: line.Index})
		}
	}
	return Select(append(postal, keyword...), DefaultTopK)
}

func hasAddressMarker(s string) bool {
	return hasPrefecture(s) || districtMarkers.MatchString(s)
}

func hasPrefecture(s string) bool {
	for _, p := range prefectures {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
