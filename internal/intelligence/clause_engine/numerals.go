package clause_engine

import (
	"strconv"
	"strings"
)

// ─────────────────────────────────────────────────────────────────────────────
// Numeric normalization of Chinese year/count/percentage idioms
// ─────────────────────────────────────────────────────────────────────────────

// chineseDigit maps single Chinese numeral runes to their value.  两 appears
// in duration idioms ("间隔两年") interchangeably with 二.
var chineseDigit = map[rune]int{
	'零': 0, '〇': 0,
	'一': 1, '二': 2, '两': 2, '三': 3, '四': 4,
	'五': 5, '六': 6, '七': 7, '八': 8, '九': 9,
}

// normalizeDigits folds full-width digits into their ASCII counterparts.
func normalizeDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '０' && r <= '９' {
			b.WriteRune('0' + (r - '０'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// parseChinese parses a Chinese numeral run up to 999 (十/百 compositions).
// Policy clauses never state larger counts or year numbers in words.
func parseChinese(s string) (int, bool) {
	runes := []rune(s)
	if len(runes) == 0 {
		return 0, false
	}

	total := 0
	current := 0
	seenUnit := false
	for _, r := range runes {
		switch r {
		case '十':
			if current == 0 {
				current = 1 // 十 / 十五
			}
			total += current * 10
			current = 0
			seenUnit = true
		case '百':
			if current == 0 {
				current = 1
			}
			total += current * 100
			current = 0
			seenUnit = true
		default:
			d, ok := chineseDigit[r]
			if !ok {
				return 0, false
			}
			current = current*10 + d
		}
	}
	total += current
	if total == 0 && !seenUnit && !strings.ContainsAny(s, "零〇") {
		return 0, false
	}
	return total, true
}

// ParseCount parses a captured numeral — Arabic (half- or full-width) or
// Chinese — into an integer.  Returns ok=false for malformed captures; the
// caller substitutes zero and lowers confidence, never raises.
func ParseCount(s string) (int, bool) {
	s = strings.TrimSpace(normalizeDigits(s))
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	return parseChinese(s)
}

// ParseDecimal parses a captured percentage or amount value, accepting a
// decimal fraction in the Arabic form ("12.5") and whole-number Chinese forms.
func ParseDecimal(s string) (float64, bool) {
	s = strings.TrimSpace(normalizeDigits(s))
	if s == "" {
		return 0, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, true
	}
	if n, ok := parseChinese(s); ok {
		return float64(n), true
	}
	return 0, false
}

// PeriodToDays normalizes a (value, unit) duration capture to days:
// months map to value×30, years to value×365, days pass through.
// Day counts ≥365 are redisplayed as years at presentation time, outside
// this engine.
func PeriodToDays(n int, unit string) int {
	switch unit {
	case "年":
		return n * 365
	case "个月", "月":
		return n * 30
	default: // 日 / 天
		return n
	}
}
