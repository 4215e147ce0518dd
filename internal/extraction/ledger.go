package extraction

import (
	"context"
	"regexp"
	"strings"

	"github.com/Veraticus/the-books-must-balance/internal/accounts"
	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/knowledge"
	"github.com/Veraticus/the-books-must-balance/internal/model"
)

var (
	endBalance     = regexp.MustCompile(`(?i)endsaldo|schlusssaldo|saldo\s+per\s+31\.\s?12\.?`)
	openingBalance = regexp.MustCompile(`(?i)saldovortrag|anfangssaldo|er(ö|oe)ffnungssaldo|saldo\s+per\s+0?1\.\s?0?1\.?`)
)

type ledgerSection struct {
	account accounts.Match
	lines   []string
}

func (e *Extractor) extractLedger(ctx context.Context, doc model.Document, r knowledge.Reader) (*Result, error) {
	table, degraded, err := e.ledgerTable(ctx, doc, r)
	if err != nil {
		return nil, err
	}
	res := &Result{Degraded: degraded}

	lines := splitLines(doc.Text)
	period := findPeriod(doc.Filename, lines)
	sections := splitSections(table, lines)

	for _, s := range sections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		item, ok := ledgerItem(doc, s)
		if !ok {
			res.Missing = append(res.Missing, s.account.Account)
			common.LogDebug("Ledger section has no end balance", common.Fields{
				"document_id": doc.ID,
				"account":     s.account.Account,
			})
			continue
		}
		item.Period = period
		item.Degraded = degraded
		res.Items = append(res.Items, item)
	}

	if len(sections) == 0 {
		res.Missing = append(res.Missing, string(model.TagLedgerEndBalance))
	}
	return res, nil
}

// ledgerTable extends the account table with the client's confirmed typical accounts.
func (e *Extractor) ledgerTable(ctx context.Context, doc model.Document, r knowledge.Reader) (*accounts.Table, bool, error) {
	entries, degraded, err := lookup(ctx, doc, r, model.KeyTypicalAccount)
	if err != nil || degraded || len(entries) == 0 {
		return e.table, degraded, err
	}

	extra := make([]accounts.Match, 0, len(entries))
	for _, entry := range entries {
		var ta model.TypicalAccount
		if err := entry.DecodeValue(&ta); err != nil {
			common.LogWarn("Skipping undecodable typical account", common.Fields{
				"client_id": doc.ClientID,
				"subject":   entry.Subject,
				"error":     err.Error(),
			})
			continue
		}
		extra = append(extra, accounts.Match{Account: ta.Account, Name: "learned", Class: ta.Class})
	}
	return e.table.WithAccounts(extra), false, nil
}

// splitSections groups ledger lines under their account header (see
// accounts.Table.SectionHeader).
// Repeated headers for the same account (page breaks) continue its section. Without
// any header the whole text belongs to the first account mentioned.
func splitSections(table *accounts.Table, lines []string) []*ledgerSection {
	var sections []*ledgerSection
	byAccount := make(map[string]*ledgerSection)
	var current *ledgerSection

	for _, line := range lines {
		if m, ok := table.SectionHeader(line); ok {
			s, seen := byAccount[m.Account]
			if !seen {
				s = &ledgerSection{account: m}
				byAccount[m.Account] = s
				sections = append(sections, s)
			}
			current = s
			continue
		}
		if current != nil {
			current.lines = append(current.lines, line)
		}
	}

	if len(sections) == 0 {
		if m, ok := table.FindFirst(strings.Join(lines, "\n")); ok {
			sections = append(sections, &ledgerSection{account: m, lines: lines})
		}
	}
	return sections
}

// ledgerItem reads a section's closing balance from the last numeric cell of its last
// end-balance line. Without one, the last numeric cell of the last data line is used at
// reduced confidence. Opening balances are never used.
func ledgerItem(doc model.Document, s *ledgerSection) (model.ExtractedItem, bool) {
	confidence := confidenceResolved
	label, value, col, ok := lastBalance(s.lines, true)
	if !ok {
		label, value, col, ok = lastBalance(s.lines, false)
		confidence = confidenceLedgerNoEnd
	}
	if !ok {
		return model.ExtractedItem{}, false
	}

	signSource := model.SignSourceConvention
	if value.Negative {
		signSource = model.SignSourceExplicit
	}

	return model.ExtractedItem{
		Amount:       value.Value,
		DocumentID:   doc.ID,
		Filename:     doc.Filename,
		Side:         model.SideFibu,
		Tag:          model.TagLedgerEndBalance,
		Account:      s.account.Account,
		Class:        s.account.Class,
		Label:        label,
		Column:       col,
		ColumnSource: model.ColumnSourceNone,
		SignSource:   signSource,
		Confidence:   confidence * classificationWeight(doc),
		Resolved:     value.Value.IsZero(),
	}, true
}

func lastBalance(lines []string, endOnly bool) (string, Amount, int, bool) {
	for i := len(lines) - 1; i >= 0; i-- {
		line := lines[i]
		if openingBalance.MatchString(line) {
			continue
		}
		if endOnly && !endBalance.MatchString(line) {
			continue
		}

		cells := splitCells(line)
		labelIdx, _, hasLabel := labelCell(cells)
		if !hasLabel {
			labelIdx = -1
		}
		numeric := numericCells(cells, labelIdx)
		if len(numeric) == 0 {
			continue
		}
		col := numeric[len(numeric)-1]
		amount, err := ParseAmount(cells[col-1])
		if err != nil {
			continue
		}

		label := ""
		if hasLabel {
			label = strings.TrimSpace(cells[labelIdx])
		}
		return label, amount, col, true
	}
	return "", Amount{}, 0, false
}
