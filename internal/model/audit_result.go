package model

import (
	"github.com/shopspring/decimal"
)

// AuditStatus is the verdict of one rule evaluation.
type AuditStatus string

// Audit status constants.
const (
	AuditMatch      AuditStatus = "MATCH"
	AuditMismatch   AuditStatus = "MISMATCH"
	AuditNoData     AuditStatus = "NO_DATA"
	AuditIncomplete AuditStatus = "INCOMPLETE"
	AuditInfo       AuditStatus = "INFO"
)

// AuditResult is the outcome of evaluating one rule over a batch.
// TaxTotal and FibuTotal are nil when their side had no items.
// Difference is TaxTotal - FibuTotal and zero unless both totals are present.
type AuditResult struct {
	TaxTotal    *decimal.Decimal `json:"tax_total"`
	FibuTotal   *decimal.Decimal `json:"fibu_total"`
	Difference  decimal.Decimal  `json:"difference"`
	Tolerance   decimal.Decimal  `json:"tolerance"`
	RuleID      string           `json:"rule"`
	Description string           `json:"description"`
	Status      AuditStatus      `json:"status"`
	Hint        string           `json:"hint,omitempty"`
	TaxItems    []ExtractedItem  `json:"tax_items"`
	FibuItems   []ExtractedItem  `json:"fibu_items"`
}

// HasBothSides reports whether both totals are present.
func (r AuditResult) HasBothSides() bool {
	return r.TaxTotal != nil && r.FibuTotal != nil
}
