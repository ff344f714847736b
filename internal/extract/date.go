package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"receiptai/internal/textnorm"
)

const dateConfidence = 0.85

// Date is a calendar date without time or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate returns the date and whether it exists on the calendar.
func NewDate(year, month, day int) (Date, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return Date{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return Date{}, false
	}
	return Date{Year: year, Month: time.Month(month), Day: day}, true
}

// IsZero reports whether d is the zero date.
func (d Date) IsZero() bool { return d.Year == 0 && d.Month == 0 && d.Day == 0 }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Time returns d at midnight UTC.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return err
	}
	*d = Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
	return nil
}

// datePattern is one entry of the ordered date rules. toYMD converts the
// submatches into a Gregorian year, month and day.
type datePattern struct {
	name  string
	re    *regexp.Regexp
	toYMD func(m []string) (int, int, int, bool)
}

// Era start offsets: Gregorian year = era year + offset.
var eraOffsets = map[string]int{
	"明治": 1867,
	"大正": 1911,
	"昭和": 1925,
	"平成": 1988,
	"令和": 2018,
}

const isoDate = `(\d{4})\s*[-.年]\s*(\d{1,2})\s*[-.月]\s*(\d{1,2})`

// datePatterns are evaluated in order, most specific first.
var datePatterns = []datePattern{
	{
		name:  "labeled_iso",
		re:    regexp.MustCompile(`(?i)(?:発行日|領収日|お支払日|支払日|取引日|日付|date)\s*[:：]?\s*` + isoDate),
		toYMD: ymd(1, 2, 3),
	},
	{
		name:  "iso",
		re:    regexp.MustCompile(isoDate),
		toYMD: ymd(1, 2, 3),
	},
	{
		name: "era",
		re:   regexp.MustCompile(`(明治|大正|昭和|平成|令和)\s*(元|\d{1,2})\s*年\s*(\d{1,2})\s*月\s*(\d{1,2})\s*日`),
		toYMD: func(m []string) (int, int, int, bool) {
			eraYear := 1
			if m[2] != "元" {
				eraYear = atoi(m[2])
			}
			if eraYear < 1 {
				return 0, 0, 0, false
			}
			return eraOffsets[m[1]] + eraYear, atoi(m[3]), atoi(m[4]), true
		},
	},
	{
		name: "reiwa_short",
		re:   regexp.MustCompile(`(?:^|[^A-Za-z])R\s*(\d{1,2})[./](\d{1,2})[./](\d{1,2})`),
		toYMD: func(m []string) (int, int, int, bool) {
			return eraOffsets["令和"] + atoi(m[1]), atoi(m[2]), atoi(m[3]), true
		},
	},
	{
		name:  "slash_4digit",
		re:    regexp.MustCompile(`(\d{4})/(\d{1,2})/(\d{1,2})`),
		toYMD: ymd(1, 2, 3),
	},
	{
		name: "slash_2digit",
		re:   regexp.MustCompile(`(?:^|[^\d/])(\d{2})/(\d{1,2})/(\d{1,2})`),
		toYMD: func(m []string) (int, int, int, bool) {
			yy := atoi(m[1])
			if yy >= 50 {
				return 1900 + yy, atoi(m[2]), atoi(m[3]), true
			}
			return 2000 + yy, atoi(m[2]), atoi(m[3]), true
		},
	},
}

// DateField extracts the transaction date. The first rule that yields a real
// calendar date wins; impossible dates are skipped.
func DateField(lines []textnorm.Line) Result[Date] {
	var cands []Candidate[Date]
	seen := dedupe{}
	for _, p := range datePatterns {
		for _, line := range lines {
			for _, m := range p.re.FindAllStringSubmatch(line.Text, -1) {
				y, mo, d, ok := p.toYMD(m)
				if !ok {
					continue
				}
				date, valid := NewDate(y, mo, d)
				if !valid {
					continue
				}
				if !seen.first(date.String()) {
					continue
				}
				cands = append(cands, Candidate[Date]{
					Raw:        trimMatch(m[0]),
					Value:      date,
					Confidence: dateConfidence,
					LineIndex:  line.Index,
				})
			}
		}
	}
	return Select(cands, DefaultTopK)
}

// matchesDate reports whether any date rule finds a valid date in s.
func matchesDate(s string) bool {
	for _, p := range datePatterns {
		for _, m := range p.re.FindAllStringSubmatch(s, -1) {
			y, mo, d, ok := p.toYMD(m)
			if !ok {
				continue
			}
			if _, valid := NewDate(y, mo, d); valid {
				return true
			}
		}
	}
	return false
}

func ymd(yi, mi, di int) func(m []string) (int, int, int, bool) {
	return func(m []string) (int, int, int, bool) {
		return atoi(m[yi]), atoi(m[mi]), atoi(m[di]), true
	}
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func trimMatch(s string) string {
	for len(s) > 0 && !(s[0] >= '0' && s[0] <= '9') && s[0] < 0x80 && s[0] != 'R' {
		s = s[1:]
	}
	return s
}
