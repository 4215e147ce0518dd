// Package documents builds statement and ledger texts for tests. The output mirrors
// the text layer of real PDFs: cells separated by runs of spaces, Swiss number format.
//
// Example usage:
//
//	ja := documents.NewStatement("Jahresabrechnung 2024").
//		WithHeader("Bezeichnung", "Total", "Politische Gemeinde").
//		WithLine("Total Restanzen", "16'000.00", "15'000.00").
//		Input("ja", "JA_2024.txt")
package documents

import (
	"strings"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

const cellGap = "    "

// Statement builds a tax statement text.
type Statement struct {
	lines []string
}

// NewStatement starts a statement with a title line.
func NewStatement(title string) *Statement {
	return &Statement{lines: []string{title}}
}

// WithHeader adds a column header line.
func (s *Statement) WithHeader(cells ...string) *Statement {
	s.lines = append(s.lines, strings.Join(cells, cellGap))
	return s
}

// WithLine adds a labelled line followed by its value cells.
func (s *Statement) WithLine(label string, values ...string) *Statement {
	s.lines = append(s.lines, strings.Join(append([]string{label}, values...), cellGap))
	return s
}

// WithText adds a free text line.
func (s *Statement) WithText(text string) *Statement {
	s.lines = append(s.lines, text)
	return s
}

// String renders the statement.
func (s *Statement) String() string {
	return strings.Join(s.lines, "\n") + "\n"
}

// Input wraps the statement as an engine input.
func (s *Statement) Input(id, filename string) model.DocumentInput {
	return model.DocumentInput{ID: id, Filename: filename, Text: s.String()}
}

// Ledger builds a general-ledger excerpt with one or more account sections.
type Ledger struct {
	lines []string
}

// NewLedger starts an excerpt with a title line.
func NewLedger(title string) *Ledger {
	return &Ledger{lines: []string{title}}
}

// WithAccount starts an account section.
func (l *Ledger) WithAccount(account, name string) *Ledger {
	l.lines = append(l.lines, "Konto "+account+" "+name)
	return l
}

// WithOpening adds the carried-forward balance of the current section.
func (l *Ledger) WithOpening(amount string) *Ledger {
	l.lines = append(l.lines, "Saldovortrag"+cellGap+amount)
	return l
}

// WithBooking adds a booking line with date, text and amount.
func (l *Ledger) WithBooking(date, text, amount string) *Ledger {
	l.lines = append(l.lines, strings.Join([]string{date, text, amount}, cellGap))
	return l
}

// WithClosing adds the end balance of the current section.
func (l *Ledger) WithClosing(amount string) *Ledger {
	l.lines = append(l.lines, "Endsaldo"+cellGap+amount)
	return l
}

// String renders the excerpt.
func (l *Ledger) String() string {
	return strings.Join(l.lines, "\n") + "\n"
}

// Input wraps the excerpt as an engine input.
func (l *Ledger) Input(id, filename string) model.DocumentInput {
	return model.DocumentInput{ID: id, Filename: filename, Text: l.String()}
}
