package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// KnowledgeKey identifies the kind of a learned client fact.
type KnowledgeKey string

// Knowledge key constants.
const (
	KeyColumnPreference KnowledgeKey = "column_preference"
	KeyTypicalAccount   KnowledgeKey = "typical_account"
	KeyAnomalyPattern   KnowledgeKey = "anomaly_pattern"
	KeyDocumentFormat   KnowledgeKey = "document_format"
	KeyCustomRule       KnowledgeKey = "custom_rule"
)

// Valid reports whether k is one of the known keys.
func (k KnowledgeKey) Valid() bool {
	switch k {
	case KeyColumnPreference, KeyTypicalAccount, KeyAnomalyPattern, KeyDocumentFormat, KeyCustomRule:
		return true
	}
	return false
}

// ClientKnowledge is a learned fact about one client.
// Subject discriminates several entries under the same key, e.g. the account code of a
// typical_account entry. Keys that hold a single value per client use an empty subject.
type ClientKnowledge struct {
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	ID        string          `json:"id"`
	ClientID  string          `json:"client_id"`
	Key       KnowledgeKey    `json:"key"`
	Subject   string          `json:"subject"`
	Value     json.RawMessage `json:"value"`
	Confirmed bool            `json:"confirmed"`
}

// Identity returns the (client, key, subject) triple used for duplicate detection.
func (k ClientKnowledge) Identity() string {
	return k.ClientID + "/" + string(k.Key) + "/" + k.Subject
}

// DecodeValue unmarshals the structured value into v.
func (k ClientKnowledge) DecodeValue(v any) error {
	if len(k.Value) == 0 {
		return fmt.Errorf("knowledge %s has no value", k.Identity())
	}
	if err := json.Unmarshal(k.Value, v); err != nil {
		return fmt.Errorf("failed to decode %s value: %w", k.Key, err)
	}
	return nil
}

// NewClientKnowledge builds an unconfirmed knowledge entry with an encoded value.
func NewClientKnowledge(clientID string, key KnowledgeKey, subject string, value any) (ClientKnowledge, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return ClientKnowledge{}, fmt.Errorf("failed to encode %s value: %w", key, err)
	}
	return ClientKnowledge{
		ClientID: clientID,
		Key:      key,
		Subject:  subject,
		Value:    raw,
	}, nil
}

// ColumnPreference is the value of a column_preference entry.
// DocumentType empty means the preference applies to every tax document type.
type ColumnPreference struct {
	ColumnName   string       `json:"column_name,omitempty"`
	DocumentType DocumentType `json:"document_type,omitempty"`
	Column       int          `json:"column"`
}

// TypicalAccount is the value of a typical_account entry.
type TypicalAccount struct {
	Account       string       `json:"account"`
	Class         BalanceClass `json:"class,omitempty"`
	DocumentCount int          `json:"document_count"`
}

// AnomalyPattern is the value of an anomaly_pattern entry: a fixed offset that keeps
// showing up between tax and ledger totals.
type AnomalyPattern struct {
	Offset      decimal.Decimal `json:"offset"`
	Rules       []string        `json:"rules"`
	Occurrences int             `json:"occurrences"`
}

// SuggestionStatus is the moderation state of a learning suggestion.
type SuggestionStatus string

// Suggestion status constants.
const (
	SuggestionPending  SuggestionStatus = "pending"
	SuggestionAccepted SuggestionStatus = "accepted"
	SuggestionRejected SuggestionStatus = "rejected"
)

// LearningSuggestion proposes a knowledge entry that only becomes effective once confirmed.
type LearningSuggestion struct {
	CreatedAt   time.Time        `json:"created_at"`
	ResolvedAt  *time.Time       `json:"resolved_at,omitempty"`
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Status      SuggestionStatus `json:"status"`
	Knowledge   ClientKnowledge  `json:"knowledge"`
}

// Validate ensures the suggestion can be registered.
func (s *LearningSuggestion) Validate() error {
	if s.Knowledge.ClientID == "" {
		return fmt.Errorf("client id is required")
	}
	if !s.Knowledge.Key.Valid() {
		return fmt.Errorf("unknown knowledge key %q", s.Knowledge.Key)
	}
	if len(s.Knowledge.Value) == 0 {
		return fmt.Errorf("knowledge value is required")
	}
	if s.Knowledge.Confirmed {
		return fmt.Errorf("proposed knowledge must not be confirmed")
	}
	if s.Title == "" {
		return fmt.Errorf("title is required")
	}
	return nil
}
