package extraction

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/the-books-must-balance/internal/accounts"
	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/config"
	"github.com/Veraticus/the-books-must-balance/internal/knowledge"
	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// Item confidences by column source.
const (
	confidenceResolved     = 1.0
	confidenceSingleValue  = 0.9
	confidencePosition     = 0.8
	confidenceLedgerNoEnd  = 0.7
	degradedConfidenceCost = 0.1
)

// Result is what the extractor found in one document.
// Missing lists the tags (or accounts, for ledgers) that were expected but not found.
type Result struct {
	Items    []model.ExtractedItem
	Missing  []string
	Degraded bool
}

// Extractor finds the target lines of classified documents and parses their amounts.
// It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	table             *accounts.Table
	defaultColumns    map[model.DocumentType]int
	defaultColumnName string
	columnNames       []string
	negativeMarkers   []*regexp.Regexp
}

// NewExtractor creates an extractor from the extraction configuration.
func NewExtractor(cfg config.ExtractionConfig, table *accounts.Table) (*Extractor, error) {
	if table == nil {
		return nil, fmt.Errorf("%w: account table is required", common.ErrMissingConfig)
	}

	e := &Extractor{
		table:             table,
		defaultColumns:    make(map[model.DocumentType]int, len(cfg.DefaultColumns)),
		defaultColumnName: cfg.DefaultColumnName,
		columnNames:       append([]string(nil), cfg.ColumnNames...),
	}
	for docType, col := range cfg.DefaultColumns {
		if col < 1 {
			return nil, fmt.Errorf("%w: default column for %s must be >= 1", common.ErrInvalidConfig, docType)
		}
		e.defaultColumns[model.DocumentType(strings.ToUpper(docType))] = col
	}
	for _, marker := range cfg.NegativeFilenameMarkers {
		re, err := common.CompileInsensitive(regexp.QuoteMeta(marker))
		if err != nil {
			return nil, fmt.Errorf("%w: filename marker %q: %v", common.ErrInvalidConfig, marker, err)
		}
		e.negativeMarkers = append(e.negativeMarkers, re)
	}
	return e, nil
}

// Extract returns the line items of a reconcilable document. Knowledge comes from r,
// which may be nil. When r reports the store as unavailable the defaults are used and
// the result is marked degraded. The only error returned is a context error.
func (e *Extractor) Extract(ctx context.Context, doc model.Document, r knowledge.Reader) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch {
	case doc.Type.IsTax():
		return e.extractTax(ctx, doc, r)
	case doc.Type.IsLedger():
		return e.extractLedger(ctx, doc, r)
	default:
		return &Result{}, nil
	}
}

func (e *Extractor) extractTax(ctx context.Context, doc model.Document, r knowledge.Reader) (*Result, error) {
	res := &Result{}
	prefs, degraded, err := e.columnPreferences(ctx, doc, r)
	if err != nil {
		return nil, err
	}
	res.Degraded = degraded

	lines := splitLines(doc.Text)
	period := findPeriod(doc.Filename, lines)
	targets := TargetsFor(doc.Type)
	found := make(map[model.ItemTag]bool, len(targets))

	var header []string
	for _, line := range lines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cells := splitCells(line)
		if len(cells) == 0 {
			continue
		}
		if e.isHeader(cells) {
			header = cells
			continue
		}

		labelIdx, label, ok := labelCell(cells)
		if !ok {
			continue
		}
		for _, t := range targets {
			if found[t.Tag] || !t.Label.MatchString(label) {
				continue
			}
			found[t.Tag] = true

			item, ok := e.taxItem(doc, t, cells, labelIdx, header, prefs)
			if !ok {
				common.LogDebug("Target line has no usable amount", common.Fields{
					"document_id": doc.ID,
					"tag":         t.Tag,
				})
				break
			}
			item.Period = period
			item.Degraded = degraded
			if degraded {
				item.Confidence -= degradedConfidenceCost
			}
			res.Items = append(res.Items, item)
			break
		}
	}

	for _, t := range targets {
		if !hasTag(res.Items, t.Tag) {
			res.Missing = append(res.Missing, string(t.Tag))
		}
	}
	return res, nil
}

func (e *Extractor) taxItem(doc model.Document, t Target, cells []string, labelIdx int, header []string, prefs []model.ColumnPreference) (model.ExtractedItem, bool) {
	choice := e.resolveColumn(doc.Type, header, prefs)

	// Header positions and default positions count from a label in the header's label
	// cell. Rows with a leading line number are shifted by the difference.
	shift := labelIdx - e.headerLabelIndex(header)

	col, source := 0, choice.source
	if choice.index > 0 {
		col = choice.index + shift
	}
	if numeric := numericCells(cells, labelIdx); len(numeric) == 1 {
		col, source = numeric[0], model.ColumnSourceSingleValue
	}
	if col < 1 || col > len(cells) {
		return model.ExtractedItem{}, false
	}

	amount, err := ParseAmount(cells[col-1])
	if err != nil {
		return model.ExtractedItem{}, false
	}

	balance, signSource := e.resolveSign(amount, doc.Filename)
	if t.Tag == model.TagPriorYearReversal {
		// Reversals are subtracted through their weight; a printed minus only repeats that.
		balance = balance.Abs()
	}
	class := model.ClassAsset
	if balance.IsNegative() {
		class = model.ClassLiability
	}

	columnName := choice.name
	if source == model.ColumnSourceSingleValue {
		columnName = nameAt(header, col-shift, "")
	}

	return model.ExtractedItem{
		Amount:       balance.Mul(t.Tag.Weight()),
		DocumentID:   doc.ID,
		Filename:     doc.Filename,
		Side:         model.SideTax,
		Tag:          t.Tag,
		Class:        class,
		Label:        strings.TrimSpace(cells[labelIdx]),
		Column:       col - shift,
		ColumnName:   columnName,
		ColumnSource: source,
		SignSource:   signSource,
		Confidence:   itemConfidence(source) * classificationWeight(doc),
		Resolved:     balance.IsZero(),
	}, true
}

// resolveSign applies the sign precedence: an explicit minus in the cell, then a
// negative marker in the filename, then the positive convention.
func (e *Extractor) resolveSign(amount Amount, filename string) (decimal.Decimal, model.SignSource) {
	if amount.Negative {
		return amount.Value, model.SignSourceExplicit
	}
	for _, re := range e.negativeMarkers {
		if re.MatchString(filename) {
			return amount.Value.Abs().Neg(), model.SignSourceFilename
		}
	}
	return amount.Value.Abs(), model.SignSourceConvention
}

func (e *Extractor) isHeader(cells []string) bool {
	if len(numericCells(cells, -1)) > 0 {
		return false
	}
	return e.firstColumnName(cells) > 0
}

// headerLabelIndex returns the 0-based label cell of a header line: the cell before the
// first known column name. Without a header the label is taken to be the first cell.
func (e *Extractor) headerLabelIndex(header []string) int {
	if i := e.firstColumnName(header); i > 0 {
		return i - 1
	}
	return 0
}

// firstColumnName returns the position of the first known column name after the first
// cell, or -1.
func (e *Extractor) firstColumnName(cells []string) int {
	for i := 1; i < len(cells); i++ {
		for _, name := range e.columnNames {
			if strings.EqualFold(strings.TrimSpace(cells[i]), name) {
				return i
			}
		}
	}
	return -1
}

// columnPreferences loads confirmed column preferences for the document type,
// exact type matches first.
func (e *Extractor) columnPreferences(ctx context.Context, doc model.Document, r knowledge.Reader) ([]model.ColumnPreference, bool, error) {
	entries, degraded, err := lookup(ctx, doc, r, model.KeyColumnPreference)
	if err != nil || degraded {
		return nil, degraded, err
	}

	var exact, generic []model.ColumnPreference
	for _, entry := range entries {
		var pref model.ColumnPreference
		if err := entry.DecodeValue(&pref); err != nil {
			common.LogWarn("Skipping undecodable column preference", common.Fields{
				"client_id": doc.ClientID,
				"subject":   entry.Subject,
				"error":     err.Error(),
			})
			continue
		}
		switch pref.DocumentType {
		case doc.Type:
			exact = append(exact, pref)
		case "":
			generic = append(generic, pref)
		}
	}
	return append(exact, generic...), false, nil
}

// lookup reads one knowledge key. A store outage is reported as degraded, not as an
// error; context errors are returned.
func lookup(ctx context.Context, doc model.Document, r knowledge.Reader, key model.KnowledgeKey) ([]model.ClientKnowledge, bool, error) {
	if r == nil {
		return nil, false, nil
	}
	entries, err := r.Lookup(ctx, doc.ClientID, key)
	switch {
	case err == nil:
		return entries, false, nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, false, err
	default:
		common.LogWarn("Knowledge unavailable, using defaults", common.Fields{
			"document_id": doc.ID,
			"key":         key,
			"error":       err.Error(),
		})
		return nil, true, nil
	}
}

func itemConfidence(source model.ColumnSource) float64 {
	switch source {
	case model.ColumnSourceDefaultPosition:
		return confidencePosition
	case model.ColumnSourceSingleValue:
		return confidenceSingleValue
	default:
		return confidenceResolved
	}
}

// classificationWeight scales item confidence by how the document was classified.
func classificationWeight(doc model.Document) float64 {
	if doc.Confidence <= 0 || doc.Confidence > 1 {
		return 1
	}
	return doc.Confidence
}

func hasTag(items []model.ExtractedItem, tag model.ItemTag) bool {
	for _, it := range items {
		if it.Tag == tag {
			return true
		}
	}
	return false
}
