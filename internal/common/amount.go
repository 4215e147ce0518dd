package common

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatCHF renders an amount the Swiss way, e.g. "CHF 67'884.25".
func FormatCHF(d decimal.Decimal) string {
	return "CHF " + FormatSwiss(d)
}

// FormatSwiss renders an amount with apostrophe thousands separators and two decimals.
func FormatSwiss(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if d.IsNegative() && !d.Round(2).IsZero() {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('\'')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}
