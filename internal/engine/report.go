package engine

import (
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// Report is the outcome of one reconciliation run.
type Report struct {
	GeneratedAt time.Time                  `json:"generated_at" yaml:"generated_at"`
	ClientID    string                     `json:"client_id" yaml:"client_id"`
	Documents   []model.Document           `json:"documents" yaml:"documents"`
	Items       []model.ExtractedItem      `json:"items" yaml:"items"`
	Results     []model.AuditResult        `json:"results" yaml:"results"`
	Suggestions []model.LearningSuggestion `json:"suggestions,omitempty" yaml:"suggestions,omitempty"`
	Duration    time.Duration              `json:"duration" yaml:"duration"`
	Degraded    bool                       `json:"degraded,omitempty" yaml:"degraded,omitempty"`
}

// Summary counts results by status.
func (r *Report) Summary() map[model.AuditStatus]int {
	out := make(map[model.AuditStatus]int)
	for _, res := range r.Results {
		out[res.Status]++
	}
	return out
}

// IncompleteDocuments returns the documents whose items were dropped.
func (r *Report) IncompleteDocuments() []model.Document {
	var out []model.Document
	for _, d := range r.Documents {
		if d.Status == model.DocumentStatusIncomplete {
			out = append(out, d)
		}
	}
	return out
}

// Balanced reports whether no result is a MISMATCH.
func (r *Report) Balanced() bool {
	for _, res := range r.Results {
		if res.Status == model.AuditMismatch {
			return false
		}
	}
	return true
}
