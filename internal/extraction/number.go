// Package extraction locates and parses the numeric line items of classified documents.
package extraction

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNotAnAmount is returned for tokens that are not Swiss-formatted amounts.
var ErrNotAnAmount = errors.New("not an amount")

// Amount is a parsed numeric token. Value is signed; Negative records an explicit minus.
type Amount struct {
	Value    decimal.Decimal
	Negative bool
}

// ParseAmount parses a Swiss-formatted amount: apostrophes (or thin/no-break spaces)
// group thousands, a single period or comma separates decimals, and a minus sign may
// lead or trail. Repeated periods or commas are treated as thousands separators and
// must form groups of three digits.
func ParseAmount(raw string) (Amount, error) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "−", "-")

	negative := false
	switch {
	case strings.HasPrefix(s, "-"):
		negative = true
		s = strings.TrimSpace(s[1:])
	case strings.HasSuffix(s, "-"):
		negative = true
		s = strings.TrimSpace(s[:len(s)-1])
	case strings.HasPrefix(s, "+"):
		s = strings.TrimSpace(s[1:])
	}
	if s == "" {
		return Amount{}, fmt.Errorf("%w: %q", ErrNotAnAmount, raw)
	}

	intRaw, frac := s, ""
	if idx := strings.LastIndexAny(s, ".,"); idx >= 0 && strings.Count(s, s[idx:idx+1]) == 1 {
		intRaw, frac = s[:idx], s[idx+1:]
		if frac == "" || !allDigits(frac) {
			return Amount{}, fmt.Errorf("%w: %q", ErrNotAnAmount, raw)
		}
	}

	digits, ok := joinGroups(intRaw)
	if !ok {
		return Amount{}, fmt.Errorf("%w: %q", ErrNotAnAmount, raw)
	}

	normalized := digits
	if frac != "" {
		normalized += "." + frac
	}
	value, err := decimal.NewFromString(normalized)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q", ErrNotAnAmount, raw)
	}
	if negative {
		value = value.Neg()
	}
	return Amount{Value: value, Negative: negative}, nil
}

// IsAmount reports whether the token parses as an amount.
func IsAmount(token string) bool {
	_, err := ParseAmount(token)
	return err == nil
}

func isGroupSeparator(r rune) bool {
	switch r {
	case '\'', '’', 'ʼ', '.', ',', ' ', ' ':
		return true
	}
	return false
}

// joinGroups strips thousands separators after checking the digit grouping.
// An empty integer part (".50") is read as zero.
func joinGroups(s string) (string, bool) {
	if s == "" {
		return "0", true
	}

	var groups []string
	var current strings.Builder
	for _, r := range s {
		if isGroupSeparator(r) {
			groups = append(groups, current.String())
			current.Reset()
			continue
		}
		if r < '0' || r > '9' {
			return "", false
		}
		current.WriteRune(r)
	}
	groups = append(groups, current.String())

	for i, g := range groups {
		switch {
		case g == "":
			return "", false
		case i == 0 && len(groups) > 1 && len(g) > 3:
			return "", false
		case i > 0 && len(g) != 3:
			return "", false
		}
	}
	return strings.Join(groups, ""), true
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
