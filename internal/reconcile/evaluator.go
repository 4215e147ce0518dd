package reconcile

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// Evaluator applies a validated rule set to the items of a batch.
type Evaluator struct {
	rules []Rule
}

// NewEvaluator validates rules and creates an evaluator.
func NewEvaluator(rules []Rule) (*Evaluator, error) {
	if err := ValidateRules(rules); err != nil {
		return nil, err
	}
	copied := make([]Rule, len(rules))
	copy(copied, rules)
	return &Evaluator{rules: copied}, nil
}

// Rules returns the rules in evaluation order.
func (e *Evaluator) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Evaluate produces one result per rule, in rule order. It is a pure function of the
// items: their order does not affect totals or statuses. Informational rules report
// INFO instead of MATCH or MISMATCH; missing sides still yield NO_DATA or INCOMPLETE.
func (e *Evaluator) Evaluate(items []model.ExtractedItem) []model.AuditResult {
	results := make([]model.AuditResult, 0, len(e.rules))
	for _, r := range e.rules {
		results = append(results, e.evaluateRule(r, items))
	}
	return results
}

func (e *Evaluator) evaluateRule(r Rule, items []model.ExtractedItem) model.AuditResult {
	var taxItems, fibuItems []model.ExtractedItem
	for _, it := range items {
		switch {
		case r.selectsTax(it):
			taxItems = append(taxItems, it)
		case r.selectsFibu(it):
			fibuItems = append(fibuItems, it)
		}
	}
	sortItems(taxItems)
	sortItems(fibuItems)

	res := model.AuditResult{
		RuleID:      r.ID,
		Description: r.Description,
		Tolerance:   r.Tolerance,
		TaxItems:    taxItems,
		FibuItems:   fibuItems,
		Difference:  decimal.Zero,
	}

	if len(taxItems) > 0 {
		total := sum(taxItems)
		if r.NegateTax {
			total = total.Neg()
		}
		res.TaxTotal = &total
	}
	if len(fibuItems) > 0 {
		total := sum(fibuItems)
		res.FibuTotal = &total
	}

	switch {
	case res.TaxTotal == nil && res.FibuTotal == nil:
		res.Status = model.AuditNoData
		res.Hint = "Keine Daten gefunden"
	case !res.HasBothSides():
		res.Status = model.AuditIncomplete
		res.Hint = incompleteHint(res)
	default:
		res.Difference = res.TaxTotal.Sub(*res.FibuTotal)
		switch {
		case r.Informational:
			res.Status = model.AuditInfo
		case res.Difference.Abs().LessThanOrEqual(r.Tolerance):
			res.Status = model.AuditMatch
		default:
			res.Status = model.AuditMismatch
			res.Hint = fmt.Sprintf("Differenz von %s", common.FormatCHF(res.Difference.Abs()))
		}
	}
	return res
}

func incompleteHint(res model.AuditResult) string {
	if res.TaxTotal == nil {
		return "Keine Steuerabrechnung gefunden"
	}
	return "Kein FiBu-Auszug gefunden"
}

func sum(items []model.ExtractedItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Amount)
	}
	return total
}
