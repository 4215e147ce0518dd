package model

import (
	"github.com/shopspring/decimal"
)

// Side is the reconciliation side an item is counted on.
type Side string

// Side constants.
const (
	SideTax  Side = "tax"
	SideFibu Side = "fibu"
)

// ItemTag is the semantic meaning of an extracted line.
type ItemTag string

// Item tag constants.
const (
	TagCurrentYearTotal    ItemTag = "current_year_total"
	TagPriorYearReversal   ItemTag = "prior_year_reversal"
	TagPriorYearNewBooking ItemTag = "prior_year_new_booking"
	TagNachsteuerTotal     ItemTag = "nachsteuer_total"
	TagAssessmentTotal     ItemTag = "assessment_total"
	TagLedgerEndBalance    ItemTag = "ledger_end_balance"
)

// Weight returns the factor a balance is multiplied with when netted into a rule total.
// Reversals of the prior year are always subtracted.
func (t ItemTag) Weight() decimal.Decimal {
	if t == TagPriorYearReversal {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

// BalanceClass says whether an amount sits on the asset or the liability side.
type BalanceClass string

// Balance class constants.
const (
	ClassAsset     BalanceClass = "asset"
	ClassLiability BalanceClass = "liability"
	ClassRevenue   BalanceClass = "revenue"
	ClassAny       BalanceClass = "any"
)

// ColumnSource records which step of the column resolution chain produced a value.
type ColumnSource string

// Column source constants.
const (
	ColumnSourceNone            ColumnSource = "none"
	ColumnSourceOverride        ColumnSource = "override"
	ColumnSourceDefaultHeader   ColumnSource = "default_header"
	ColumnSourceDefaultPosition ColumnSource = "default_position"
	ColumnSourceSingleValue     ColumnSource = "single_value"
)

// IsDefault reports whether the column came from a default rather than learned knowledge.
func (s ColumnSource) IsDefault() bool {
	return s == ColumnSourceDefaultHeader || s == ColumnSourceDefaultPosition
}

// SignSource records why an amount carries its sign.
type SignSource string

// Sign source constants.
const (
	SignSourceExplicit   SignSource = "explicit"
	SignSourceFilename   SignSource = "filename"
	SignSourceConvention SignSource = "convention"
)

// ExtractedItem is a single numeric line item found in a document.
// Amount is the signed contribution to a rule total. Column counts in the layout of the
// header line, so a leading line number on the row does not shift it.
type ExtractedItem struct {
	Amount       decimal.Decimal `json:"amount"`
	DocumentID   string          `json:"document_id"`
	Filename     string          `json:"filename"`
	Side         Side            `json:"side"`
	Tag          ItemTag         `json:"tag"`
	Account      string          `json:"account,omitempty"`
	Period       string          `json:"period,omitempty"`
	Class        BalanceClass    `json:"class"`
	Label        string          `json:"label"`
	ColumnName   string          `json:"column_name,omitempty"`
	ColumnSource ColumnSource    `json:"column_source"`
	SignSource   SignSource      `json:"sign_source"`
	Column       int             `json:"column,omitempty"`
	Confidence   float64         `json:"confidence"`
	Resolved     bool            `json:"resolved,omitempty"`
	Degraded     bool            `json:"degraded,omitempty"`
}

// SortKey is the canonical ordering key used before summation.
func (i ExtractedItem) SortKey() string {
	subject := i.Account
	if subject == "" {
		subject = string(i.Tag)
	}
	return subject + "\x00" + i.DocumentID + "\x00" + i.Label
}
