// Package knowledge defines the client knowledge contract and its in-process adapters.
package knowledge

import (
	"context"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// Reader gives read access to confirmed client knowledge.
type Reader interface {
	// Lookup returns the confirmed entries for a client and key, ordered by subject.
	// An empty result with a nil error means nothing has been learned yet.
	Lookup(ctx context.Context, clientID string, key model.KnowledgeKey) ([]model.ClientKnowledge, error)
}

// ObservationLog keeps per-run learning evidence so that recurrence can span batches.
type ObservationLog interface {
	// RecordObservations stores observations for a client. An observation with the
	// same identity replaces the stored one.
	RecordObservations(ctx context.Context, clientID string, observations []model.Observation) error
	// Observations returns every stored observation of a client in recording order.
	Observations(ctx context.Context, clientID string) ([]model.Observation, error)
}

// Store is the read/write contract for client knowledge.
// Confirmed knowledge is written only through Confirm.
type Store interface {
	Reader
	ObservationLog
	// Propose registers a pending suggestion. It assigns ID, status and timestamps.
	Propose(ctx context.Context, suggestion *model.LearningSuggestion) error
	// Confirm accepts a pending suggestion and materializes it as confirmed knowledge.
	Confirm(ctx context.Context, suggestionID string) (*model.ClientKnowledge, error)
	// Reject marks a pending suggestion as rejected.
	Reject(ctx context.Context, suggestionID string) error
	// Suggestions lists a client's suggestions; an empty status lists all of them.
	Suggestions(ctx context.Context, clientID string, status model.SuggestionStatus) ([]model.LearningSuggestion, error)
}

// AllKeys lists every knowledge key in a stable order.
var AllKeys = []model.KnowledgeKey{
	model.KeyColumnPreference,
	model.KeyTypicalAccount,
	model.KeyAnomalyPattern,
	model.KeyDocumentFormat,
	model.KeyCustomRule,
}
