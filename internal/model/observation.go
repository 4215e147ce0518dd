package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ObservationKind names the learning signal an observation feeds.
type ObservationKind string

// Observation kind constants.
const (
	ObservationLedgerAccount ObservationKind = "ledger_account"
	ObservationDefaultColumn ObservationKind = "default_column"
	ObservationMismatch      ObservationKind = "mismatch"
)

// Observation is evidence from one run that learning counts across runs.
// Source identifies what was observed: a document id, or the documents behind a
// result. Recording the same (client, kind, source, subject) again replaces the earlier
// observation, so re-running a batch does not inflate recurrence.
type Observation struct {
	RecordedAt time.Time       `json:"recorded_at"`
	Offset     decimal.Decimal `json:"offset"`
	ClientID   string          `json:"client_id"`
	Kind       ObservationKind `json:"kind"`
	Source     string          `json:"source"`
	Subject    string          `json:"subject"`
	ColumnName string          `json:"column_name,omitempty"`
	Class      BalanceClass    `json:"class,omitempty"`
	Tag        ItemTag         `json:"tag,omitempty"`
	Column     int             `json:"column,omitempty"`
}

// Identity returns the key under which the observation is stored.
func (o Observation) Identity() string {
	return o.ClientID + "/" + string(o.Kind) + "/" + o.Source + "/" + o.Subject
}
