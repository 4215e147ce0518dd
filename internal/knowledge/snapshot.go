package knowledge

import (
	"context"
	"fmt"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// Ensure Snapshot implements Reader interface.
var _ Reader = (*Snapshot)(nil)

// Snapshot is a frozen view of one client's confirmed knowledge, taken once per batch
// so that every document in the batch sees the same facts.
type Snapshot struct {
	err      error
	entries  map[model.KnowledgeKey][]model.ClientKnowledge
	clientID string
}

// TakeSnapshot loads every confirmed key for a client. A nil reader yields an empty
// snapshot. When the reader keeps failing the snapshot is degraded: its lookups return
// common.ErrKnowledgeStoreUnavailable and callers fall back to defaults.
func TakeSnapshot(ctx context.Context, r Reader, clientID string, opts common.RetryOptions) *Snapshot {
	snap := &Snapshot{
		clientID: clientID,
		entries:  make(map[model.KnowledgeKey][]model.ClientKnowledge),
	}
	if r == nil {
		return snap
	}

	err := common.WithRetry(ctx, func() error {
		loaded := make(map[model.KnowledgeKey][]model.ClientKnowledge, len(AllKeys))
		for _, key := range AllKeys {
			entries, err := r.Lookup(ctx, clientID, key)
			if err != nil {
				return fmt.Errorf("lookup %s: %w", key, err)
			}
			loaded[key] = entries
		}
		snap.entries = loaded
		return nil
	}, opts)
	if err != nil {
		snap.err = fmt.Errorf("%w: %w", common.ErrKnowledgeStoreUnavailable, err)
		snap.entries = make(map[model.KnowledgeKey][]model.ClientKnowledge)
		common.LogError(err, "Knowledge snapshot unavailable, using defaults", common.Fields{
			"client_id": clientID,
		})
	}
	return snap
}

// NewSnapshot builds a snapshot from known entries. Unconfirmed entries are ignored.
func NewSnapshot(clientID string, entries ...model.ClientKnowledge) *Snapshot {
	snap := &Snapshot{
		clientID: clientID,
		entries:  make(map[model.KnowledgeKey][]model.ClientKnowledge),
	}
	for _, e := range entries {
		if e.ClientID != clientID || !e.Confirmed {
			continue
		}
		snap.entries[e.Key] = append(snap.entries[e.Key], e)
	}
	return snap
}

// DegradedSnapshot returns a snapshot whose lookups all fail.
func DegradedSnapshot(clientID string, cause error) *Snapshot {
	return &Snapshot{
		clientID: clientID,
		entries:  make(map[model.KnowledgeKey][]model.ClientKnowledge),
		err:      fmt.Errorf("%w: %w", common.ErrKnowledgeStoreUnavailable, cause),
	}
}

// Lookup returns the snapshot's entries for the key.
func (s *Snapshot) Lookup(_ context.Context, clientID string, key model.KnowledgeKey) ([]model.ClientKnowledge, error) {
	if s.err != nil {
		return nil, s.err
	}
	if clientID != s.clientID {
		return nil, nil
	}
	return cloneAll(s.entries[key]), nil
}

// Degraded reports whether the snapshot could not be loaded.
func (s *Snapshot) Degraded() bool {
	return s.err != nil
}

// Err returns the load error of a degraded snapshot.
func (s *Snapshot) Err() error {
	return s.err
}

// ClientID returns the client the snapshot was taken for.
func (s *Snapshot) ClientID() string {
	return s.clientID
}
