package classification

import (
	"regexp"

	"github.com/Veraticus/the-books-must-balance/internal/accounts"
	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// Detector names.
const (
	DetectorWithholdingTax = "withholding_tax"
	DetectorLedgerCombined = "ledger_combined"
	DetectorLedgerSingle   = "ledger_single"
	DetectorNachsteuer     = "nachsteuer_total"
	DetectorPriorYear      = "prior_year_carryover"
	DetectorCurrentYear    = "current_year_total"
)

var (
	withholdingText     = regexp.MustCompile(`(?i)quellensteuer`)
	withholdingFilename = regexp.MustCompile(`(?i)quellensteuer|(^|[^a-z])qst([^a-z]|$)`)

	ledgerMarker   = regexp.MustCompile(`(?i)kontoauszug|kontoblatt|endsaldo|schlusssaldo|saldo\s+per|saldovortrag`)
	ledgerFilename = regexp.MustCompile(`(?i)fibu|kontoauszug|kontoblatt`)

	nachsteuerText     = regexp.MustCompile(`(?i)total\s+(restanzen\s+)?nachsteuern?`)
	nachsteuerFilename = regexp.MustCompile(`(?i)nast|nachsteuer`)

	priorYearText     = regexp.MustCompile(`(?i)restanzenvortrag|vorjahresrestanzen`)
	priorYearFilename = regexp.MustCompile(`(?i)(^|[^a-z])sr([^a-z]|$)|restanzenvortrag`)

	currentYearText     = regexp.MustCompile(`(?i)total\s+restanzen|jahresabrechnung`)
	currentYearFilename = regexp.MustCompile(`(?i)(^|[^a-z])ja([^a-z]|$)|jahresabrechnung`)
)

// DefaultDetectors returns the standard detector list in priority order.
// Ledger detectors come before the tax detectors because ledger excerpts often quote
// tax document labels in their booking texts.
func DefaultDetectors(table *accounts.Table) []Detector {
	return []Detector{
		{
			Name:     DetectorWithholdingTax,
			Type:     model.DocumentTypeIgnored,
			Text:     MatchRegex(withholdingText),
			Filename: MatchRegex(withholdingFilename),
		},
		{
			Name: DetectorLedgerCombined,
			Type: model.DocumentTypeFibuCombined,
			Text: All(MatchRegex(ledgerMarker), func(text string) bool {
				return table.SectionPairsFound(text) >= 2
			}),
		},
		{
			Name:     DetectorLedgerSingle,
			Type:     model.DocumentTypeFibuSingle,
			Text:     All(MatchRegex(ledgerMarker), table.Contains),
			Filename: MatchRegex(ledgerFilename),
		},
		{
			Name:     DetectorNachsteuer,
			Type:     model.DocumentTypeNAST,
			Text:     MatchRegex(nachsteuerText),
			Filename: MatchRegex(nachsteuerFilename),
		},
		{
			Name:     DetectorPriorYear,
			Type:     model.DocumentTypeSR,
			Text:     MatchRegex(priorYearText),
			Filename: MatchRegex(priorYearFilename),
		},
		{
			Name:     DetectorCurrentYear,
			Type:     model.DocumentTypeJA,
			Text:     MatchRegex(currentYearText),
			Filename: MatchRegex(currentYearFilename),
		},
	}
}

// NewDefaultClassifier creates a classifier with the standard detectors.
func NewDefaultClassifier(table *accounts.Table) *Classifier {
	return NewClassifier(DefaultDetectors(table))
}
