package scraper

import (
	"math"
	"strconv"
	"strings"
)

// ParsePrice turns a raw price string into a number. Every character other
// than digits, '.', ',' and '-' is stripped; ',' normalizes to '.'. The
// second return is false when the string carries no parseable value. The
// parse is total: it never panics and never returns a non-finite number.
func ParsePrice(raw string) (float64, bool) {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' || r == '-' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(digits, ",", "."), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// DiscountPercent computes (old - current) / old * 100. It yields no value
// unless both prices are present and the reference price is positive; the
// absence of a sale is distinct from a 0% discount.
func DiscountPercent(current float64, currentOK bool, old float64, oldOK bool) (float64, bool) {
	if !currentOK || !oldOK || old <= 0 {
		return 0, false
	}
	return (old - current) / old * 100, true
}
