// Package accounts recognises ledger account identifiers from a configurable pattern table.
package accounts

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/config"
	"github.com/Veraticus/the-books-must-balance/internal/model"
)

var sectionPrefix = regexp.MustCompile(`(?i)^konto(?:auszug|blatt)?(?:\s+nr\.?)?(?:\s*:\s*|\s+)`)

// Pattern is a compiled account pattern.
type Pattern struct {
	re    *regexp.Regexp
	Name  string
	Class model.BalanceClass
	Pair  bool
}

// Match is one account identifier found in text.
type Match struct {
	Account string
	Name    string
	Class   model.BalanceClass
	Pair    bool
}

// Table holds the account patterns in configuration order.
type Table struct {
	patterns []Pattern
}

// NewTable compiles the configured account patterns.
func NewTable(cfg []config.AccountPattern) (*Table, error) {
	if len(cfg) == 0 {
		return nil, fmt.Errorf("%w: empty account pattern table", common.ErrMissingConfig)
	}

	patterns := make([]Pattern, 0, len(cfg))
	for _, p := range cfg {
		re, err := regexp.Compile(`\b(?:` + p.Pattern + `)\b`)
		if err != nil {
			return nil, fmt.Errorf("%w: account pattern %s: %v", common.ErrInvalidConfig, p.Name, err)
		}
		patterns = append(patterns, Pattern{
			re:    re,
			Name:  p.Name,
			Class: model.BalanceClass(p.Class),
			Pair:  p.Pair,
		})
	}
	return &Table{patterns: patterns}, nil
}

// MustDefault returns the table for the built-in account patterns.
func MustDefault() *Table {
	t, err := NewTable(config.Default().Accounts)
	if err != nil {
		panic(err)
	}
	return t
}

// FindAll returns each distinct account identifier in text, in order of first appearance.
func (t *Table) FindAll(text string) []Match {
	type hit struct {
		match Match
		pos   int
	}
	seen := make(map[string]bool)
	var hits []hit
	for _, p := range t.patterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			account := text[loc[0]:loc[1]]
			if seen[account] {
				continue
			}
			seen[account] = true
			hits = append(hits, hit{
				match: Match{Account: account, Name: p.Name, Class: p.Class, Pair: p.Pair},
				pos:   loc[0],
			})
		}
	}

	// Equal positions keep table order.
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].pos < hits[j].pos
	})

	out := make([]Match, len(hits))
	for i, h := range hits {
		out[i] = h.match
	}
	return out
}

// FindFirst returns the first account identifier in text.
func (t *Table) FindFirst(text string) (Match, bool) {
	all := t.FindAll(text)
	if len(all) == 0 {
		return Match{}, false
	}
	return all[0], true
}

// SectionPairsFound counts the distinct pair accounts (asset/liability) that open a
// section header line in text.
func (t *Table) SectionPairsFound(text string) int {
	seen := make(map[string]bool)
	for _, line := range strings.Split(text, "\n") {
		if m, ok := t.SectionHeader(line); ok && m.Pair {
			seen[m.Account] = true
		}
	}
	return len(seen)
}

// SectionHeader returns the account a ledger section header introduces. The account
// must be the first token of the line or directly follow a leading "Konto" (also
// "Kontoauszug", "Kontoblatt", "Konto Nr."). Booking lines that name a contra account
// after a date or line number are not headers.
func (t *Table) SectionHeader(line string) (Match, bool) {
	rest := strings.TrimSpace(line)
	if loc := sectionPrefix.FindStringIndex(rest); loc != nil {
		rest = rest[loc[1]:]
	}
	m, ok := t.FindFirst(rest)
	if !ok || !strings.HasPrefix(rest, m.Account) {
		return Match{}, false
	}
	return m, true
}

// Contains reports whether any known account identifier occurs in text.
func (t *Table) Contains(text string) bool {
	for _, p := range t.patterns {
		if p.re.MatchString(text) {
			return true
		}
	}
	return false
}

// ClassOf returns the balance class of an account identifier.
func (t *Table) ClassOf(account string) (model.BalanceClass, bool) {
	account = strings.TrimSpace(account)
	for _, p := range t.patterns {
		if loc := p.re.FindStringIndex(account); loc != nil && loc[0] == 0 && loc[1] == len(account) {
			return p.Class, true
		}
	}
	return "", false
}

// WithAccounts returns a copy of the table that also recognises the given literal
// account identifiers. Identifiers the table already knows are skipped.
func (t *Table) WithAccounts(extra []Match) *Table {
	out := &Table{patterns: make([]Pattern, len(t.patterns), len(t.patterns)+len(extra))}
	copy(out.patterns, t.patterns)
	for _, m := range extra {
		if m.Account == "" {
			continue
		}
		if _, known := t.ClassOf(m.Account); known {
			continue
		}
		out.patterns = append(out.patterns, Pattern{
			re:    regexp.MustCompile(`\b` + regexp.QuoteMeta(m.Account) + `\b`),
			Name:  m.Name,
			Class: m.Class,
			Pair:  m.Pair,
		})
	}
	return out
}
