package knowledge

import (
	"context"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/patrickmn/go-cache"
)

// Ensure CachedStore implements Store interface.
var _ Store = (*CachedStore)(nil)

// CachedStore is a read-through cache in front of another Store.
// Confirmations invalidate the affected client and key.
type CachedStore struct {
	next  Store
	cache *cache.Cache
}

// NewCachedStore wraps next with a lookup cache.
func NewCachedStore(next Store, ttl, cleanup time.Duration) *CachedStore {
	return &CachedStore{
		next:  next,
		cache: cache.New(ttl, cleanup),
	}
}

func cacheKey(clientID string, key model.KnowledgeKey) string {
	return clientID + "|" + string(key)
}

// Lookup serves confirmed entries from cache when possible.
func (c *CachedStore) Lookup(ctx context.Context, clientID string, key model.KnowledgeKey) ([]model.ClientKnowledge, error) {
	ck := cacheKey(clientID, key)
	if cached, ok := c.cache.Get(ck); ok {
		entries, _ := cached.([]model.ClientKnowledge)
		return cloneAll(entries), nil
	}

	entries, err := c.next.Lookup(ctx, clientID, key)
	if err != nil {
		return nil, err
	}
	c.cache.Set(ck, cloneAll(entries), cache.DefaultExpiration)
	return entries, nil
}

// Propose delegates; pending suggestions are never cached.
func (c *CachedStore) Propose(ctx context.Context, suggestion *model.LearningSuggestion) error {
	return c.next.Propose(ctx, suggestion)
}

// Confirm delegates and drops the cached entries the confirmation changed.
func (c *CachedStore) Confirm(ctx context.Context, suggestionID string) (*model.ClientKnowledge, error) {
	k, err := c.next.Confirm(ctx, suggestionID)
	if err != nil {
		return nil, err
	}
	c.cache.Delete(cacheKey(k.ClientID, k.Key))
	return k, nil
}

// Reject delegates.
func (c *CachedStore) Reject(ctx context.Context, suggestionID string) error {
	return c.next.Reject(ctx, suggestionID)
}

// Suggestions delegates.
func (c *CachedStore) Suggestions(ctx context.Context, clientID string, status model.SuggestionStatus) ([]model.LearningSuggestion, error) {
	return c.next.Suggestions(ctx, clientID, status)
}

// RecordObservations delegates.
func (c *CachedStore) RecordObservations(ctx context.Context, clientID string, observations []model.Observation) error {
	return c.next.RecordObservations(ctx, clientID, observations)
}

// Observations delegates; observations change every run and are never cached.
func (c *CachedStore) Observations(ctx context.Context, clientID string) ([]model.Observation, error) {
	return c.next.Observations(ctx, clientID)
}

// Flush empties the cache.
func (c *CachedStore) Flush() {
	c.cache.Flush()
}

func cloneAll(entries []model.ClientKnowledge) []model.ClientKnowledge {
	if entries == nil {
		return nil
	}
	out := make([]model.ClientKnowledge, len(entries))
	for i, e := range entries {
		out[i] = cloneKnowledge(e)
	}
	return out
}
