package knowledge

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/google/uuid"
)

// Ensure MemoryStore implements Store interface.
var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store. Readers never block each other and a
// confirmation only holds the write lock for the map update.
type MemoryStore struct {
	now         func() time.Time
	knowledge   map[string]model.ClientKnowledge
	suggestions map[string]*model.LearningSuggestion
	observed    map[string]model.Observation
	order       []string
	obsOrder    []string
	mu          sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:         time.Now,
		knowledge:   make(map[string]model.ClientKnowledge),
		suggestions: make(map[string]*model.LearningSuggestion),
		observed:    make(map[string]model.Observation),
	}
}

// Lookup returns the confirmed entries for a client and key.
func (m *MemoryStore) Lookup(_ context.Context, clientID string, key model.KnowledgeKey) ([]model.ClientKnowledge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.ClientKnowledge
	for _, k := range m.knowledge {
		if k.ClientID == clientID && k.Key == key && k.Confirmed {
			out = append(out, cloneKnowledge(k))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Subject < out[j].Subject })
	return out, nil
}

// Propose registers a pending suggestion.
func (m *MemoryStore) Propose(_ context.Context, suggestion *model.LearningSuggestion) error {
	if suggestion == nil {
		return fmt.Errorf("suggestion cannot be nil")
	}
	if err := suggestion.Validate(); err != nil {
		return fmt.Errorf("invalid suggestion: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	identity := suggestion.Knowledge.Identity()
	for _, existing := range m.suggestions {
		if existing.Status == model.SuggestionPending && existing.Knowledge.Identity() == identity {
			return fmt.Errorf("%w: pending suggestion for %s", common.ErrDuplicateEntry, identity)
		}
	}

	if suggestion.ID == "" {
		suggestion.ID = uuid.NewString()
	}
	if _, exists := m.suggestions[suggestion.ID]; exists {
		return fmt.Errorf("%w: suggestion %s", common.ErrDuplicateEntry, suggestion.ID)
	}
	suggestion.Status = model.SuggestionPending
	suggestion.CreatedAt = m.now()
	suggestion.ResolvedAt = nil

	stored := *suggestion
	stored.Knowledge = cloneKnowledge(suggestion.Knowledge)
	m.suggestions[stored.ID] = &stored
	m.order = append(m.order, stored.ID)
	return nil
}

// Confirm accepts a pending suggestion and stores its knowledge as confirmed.
func (m *MemoryStore) Confirm(_ context.Context, suggestionID string) (*model.ClientKnowledge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.pendingLocked(suggestionID)
	if err != nil {
		return nil, err
	}

	now := m.now()
	k := cloneKnowledge(s.Knowledge)
	identity := k.Identity()
	if existing, ok := m.knowledge[identity]; ok {
		k.ID = existing.ID
		k.CreatedAt = existing.CreatedAt
	} else {
		k.ID = uuid.NewString()
		k.CreatedAt = now
	}
	k.UpdatedAt = now
	k.Confirmed = true
	m.knowledge[identity] = k

	s.Status = model.SuggestionAccepted
	s.ResolvedAt = &now
	s.Knowledge = cloneKnowledge(k)

	result := cloneKnowledge(k)
	return &result, nil
}

// Reject marks a pending suggestion as rejected.
func (m *MemoryStore) Reject(_ context.Context, suggestionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.pendingLocked(suggestionID)
	if err != nil {
		return err
	}
	now := m.now()
	s.Status = model.SuggestionRejected
	s.ResolvedAt = &now
	return nil
}

// Suggestions lists a client's suggestions in proposal order.
func (m *MemoryStore) Suggestions(_ context.Context, clientID string, status model.SuggestionStatus) ([]model.LearningSuggestion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.LearningSuggestion
	for _, id := range m.order {
		s := m.suggestions[id]
		if s.Knowledge.ClientID != clientID {
			continue
		}
		if status != "" && s.Status != status {
			continue
		}
		c := *s
		c.Knowledge = cloneKnowledge(s.Knowledge)
		out = append(out, c)
	}
	return out, nil
}

// RecordObservations stores observations, replacing those with the same identity.
func (m *MemoryStore) RecordObservations(_ context.Context, clientID string, observations []model.Observation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for _, o := range observations {
		o.ClientID = clientID
		o.RecordedAt = now
		id := o.Identity()
		if _, seen := m.observed[id]; !seen {
			m.obsOrder = append(m.obsOrder, id)
		}
		m.observed[id] = o
	}
	return nil
}

// Observations returns a client's observations in first-recorded order.
func (m *MemoryStore) Observations(_ context.Context, clientID string) ([]model.Observation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Observation
	for _, id := range m.obsOrder {
		if o := m.observed[id]; o.ClientID == clientID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *MemoryStore) pendingLocked(id string) (*model.LearningSuggestion, error) {
	s, ok := m.suggestions[id]
	if !ok {
		return nil, fmt.Errorf("%w: suggestion %s", common.ErrNotFound, id)
	}
	if s.Status != model.SuggestionPending {
		return nil, fmt.Errorf("%w: suggestion %s is %s", common.ErrInvalidTransition, id, s.Status)
	}
	return s, nil
}

func cloneKnowledge(k model.ClientKnowledge) model.ClientKnowledge {
	if k.Value != nil {
		v := make([]byte, len(k.Value))
		copy(v, k.Value)
		k.Value = v
	}
	return k
}
