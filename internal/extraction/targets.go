package extraction

import (
	"regexp"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// Target is a labelled line the extractor looks for in a tax document.
type Target struct {
	Label *regexp.Regexp
	Tag   model.ItemTag
}

// Targets per tax document type, matched against the normalized label cell.
// Within a type the first matching target wins, so more specific labels come first.
var targetTables = map[model.DocumentType][]Target{
	model.DocumentTypeJA: {
		{Label: regexp.MustCompile(`^total restanzen$`), Tag: model.TagCurrentYearTotal},
		{Label: regexp.MustCompile(`^total steuerertrag$`), Tag: model.TagAssessmentTotal},
	},
	model.DocumentTypeSR: {
		{Label: regexp.MustCompile(`^total restanzenvortrag$`), Tag: model.TagPriorYearReversal},
		{Label: regexp.MustCompile(`^total restanzen$`), Tag: model.TagPriorYearNewBooking},
	},
	model.DocumentTypeNAST: {
		{Label: regexp.MustCompile(`^total (restanzen )?nachsteuern?$`), Tag: model.TagNachsteuerTotal},
	},
}

// TargetsFor returns the targets extracted from documents of the given type.
func TargetsFor(t model.DocumentType) []Target {
	return targetTables[t]
}
