// Package model defines the core domain models used throughout the application.
package model

// DocumentType is the closed set of document kinds the classifier can assign.
type DocumentType string

// Document type constants.
const (
	DocumentTypeJA           DocumentType = "JA"
	DocumentTypeSR           DocumentType = "SR"
	DocumentTypeNAST         DocumentType = "NAST"
	DocumentTypeFibuSingle   DocumentType = "FIBU_SINGLE"
	DocumentTypeFibuCombined DocumentType = "FIBU_COMBINED"
	DocumentTypeIgnored      DocumentType = "IGNORED"
	DocumentTypeUnknown      DocumentType = "UNKNOWN"
)

// IsTax reports whether documents of this type carry tax-side line items.
func (t DocumentType) IsTax() bool {
	return t == DocumentTypeJA || t == DocumentTypeSR || t == DocumentTypeNAST
}

// IsLedger reports whether documents of this type are general-ledger excerpts.
func (t DocumentType) IsLedger() bool {
	return t == DocumentTypeFibuSingle || t == DocumentTypeFibuCombined
}

// IsReconcilable reports whether documents of this type take part in reconciliation.
func (t DocumentType) IsReconcilable() bool {
	return t.IsTax() || t.IsLedger()
}

// DocumentStatus describes what happened to a document during a batch run.
type DocumentStatus string

// Document status constants.
const (
	DocumentStatusOK         DocumentStatus = "ok"
	DocumentStatusIncomplete DocumentStatus = "incomplete"
	DocumentStatusExcluded   DocumentStatus = "excluded"
)

// DocumentInput is a raw document handed to the engine. Text is already extracted.
type DocumentInput struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Text     string `json:"-"`
}

// Document is a classified input document.
type Document struct {
	ID         string         `json:"id"`
	ClientID   string         `json:"client_id"`
	Filename   string         `json:"filename"`
	Text       string         `json:"-"`
	Type       DocumentType   `json:"type"`
	MatchedBy  string         `json:"matched_by,omitempty"`
	Status     DocumentStatus `json:"status"`
	Confidence float64        `json:"confidence"`
	ItemCount  int            `json:"item_count"`
	Degraded   bool           `json:"degraded,omitempty"`
}
