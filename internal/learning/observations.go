package learning

import (
	"strconv"
	"strings"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// Observe reduces a batch to the evidence the candidate rules count: ledger accounts
// per document, default-resolved columns per document and mismatch offsets per rule.
// A mismatch is keyed by the documents behind it; results without items are skipped.
func Observe(in Input) []model.Observation {
	var out []model.Observation
	seen := make(map[string]bool)
	add := func(o model.Observation) {
		if o.Source == "" {
			return
		}
		if id := observationKey(o); !seen[id] {
			seen[id] = true
			out = append(out, o)
		}
	}

	for _, it := range in.Items {
		switch {
		case it.Side == model.SideFibu && it.Account != "":
			add(model.Observation{
				Kind:    model.ObservationLedgerAccount,
				Source:  it.DocumentID,
				Subject: it.Account,
				Class:   it.Class,
			})
		case it.Side == model.SideTax && it.ColumnSource.IsDefault() && it.Column > 0:
			add(model.Observation{
				Kind:       model.ObservationDefaultColumn,
				Source:     it.DocumentID,
				Subject:    strconv.Itoa(it.Column),
				Column:     it.Column,
				ColumnName: it.ColumnName,
				Tag:        it.Tag,
			})
		}
	}

	for _, r := range in.Results {
		if r.Status != model.AuditMismatch {
			continue
		}
		add(model.Observation{
			Kind:    model.ObservationMismatch,
			Source:  resultSource(r),
			Subject: r.RuleID,
			Offset:  r.Difference,
		})
	}
	return out
}

// withEarlierRuns appends the observations that the current batch did not produce
// itself, turned back into the items and results the candidate rules read.
func withEarlierRuns(in Input, current, stored []model.Observation) Input {
	own := make(map[string]bool, len(current))
	for _, o := range current {
		own[observationKey(o)] = true
	}

	merged := Input{
		Documents: in.Documents,
		Items:     append([]model.ExtractedItem(nil), in.Items...),
		Results:   append([]model.AuditResult(nil), in.Results...),
	}
	for _, o := range stored {
		if own[observationKey(o)] {
			continue
		}
		switch o.Kind {
		case model.ObservationLedgerAccount:
			merged.Items = append(merged.Items, model.ExtractedItem{
				DocumentID: o.Source,
				Side:       model.SideFibu,
				Tag:        model.TagLedgerEndBalance,
				Account:    o.Subject,
				Class:      o.Class,
			})
		case model.ObservationDefaultColumn:
			source := model.ColumnSourceDefaultPosition
			if o.ColumnName != "" {
				source = model.ColumnSourceDefaultHeader
			}
			merged.Items = append(merged.Items, model.ExtractedItem{
				DocumentID:   o.Source,
				Side:         model.SideTax,
				Tag:          o.Tag,
				Column:       o.Column,
				ColumnName:   o.ColumnName,
				ColumnSource: source,
			})
		case model.ObservationMismatch:
			merged.Results = append(merged.Results, model.AuditResult{
				RuleID:     o.Subject,
				Status:     model.AuditMismatch,
				Difference: o.Offset,
			})
		}
	}
	return merged
}

// resultSource names the documents that contributed to a result.
func resultSource(r model.AuditResult) string {
	ids := make(map[string]bool)
	for _, it := range r.TaxItems {
		ids[it.DocumentID] = true
	}
	for _, it := range r.FibuItems {
		ids[it.DocumentID] = true
	}
	return strings.Join(sortedKeys(ids), ",")
}

func observationKey(o model.Observation) string {
	return string(o.Kind) + "/" + o.Source + "/" + o.Subject
}
