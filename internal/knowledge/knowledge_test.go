package knowledge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
)

const clientID = "gemeinde-muster"

func accountSuggestion(t *testing.T, client, account string) *model.LearningSuggestion {
	t.Helper()
	k, err := model.NewClientKnowledge(client, model.KeyTypicalAccount, account, model.TypicalAccount{Account: account})
	require.NoError(t, err)
	return &model.LearningSuggestion{Title: "Typical account " + account, Knowledge: k}
}

func confirmAccount(t *testing.T, s Store, account string) model.ClientKnowledge {
	t.Helper()
	sug := accountSuggestion(t, clientID, account)
	require.NoError(t, s.Propose(context.Background(), sug))
	k, err := s.Confirm(context.Background(), sug.ID)
	require.NoError(t, err)
	return *k
}

func TestMemoryStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	s := accountSuggestion(t, clientID, "1012.00")
	require.NoError(t, store.Propose(ctx, s))
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, model.SuggestionPending, s.Status)

	err := store.Propose(ctx, accountSuggestion(t, clientID, "1012.00"))
	require.ErrorIs(t, err, common.ErrDuplicateEntry)

	entries, err := store.Lookup(ctx, clientID, model.KeyTypicalAccount)
	require.NoError(t, err)
	assert.Empty(t, entries)

	k, err := store.Confirm(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, k.Confirmed)

	_, err = store.Confirm(ctx, s.ID)
	require.ErrorIs(t, err, common.ErrInvalidTransition)
	require.ErrorIs(t, store.Reject(ctx, s.ID), common.ErrInvalidTransition)
	require.ErrorIs(t, store.Reject(ctx, "missing"), common.ErrNotFound)

	entries, err = store.Lookup(ctx, clientID, model.KeyTypicalAccount)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, k.ID, entries[0].ID)

	// Re-confirming the same identity keeps the entry id.
	again := confirmAccount(t, store, "1012.00")
	assert.Equal(t, k.ID, again.ID)

	accepted, err := store.Suggestions(ctx, clientID, model.SuggestionAccepted)
	require.NoError(t, err)
	assert.Len(t, accepted, 2)

	other, err := store.Suggestions(ctx, "other", "")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestMemoryStore_LookupSortedAndCopied(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	confirmAccount(t, store, "2002.00")
	confirmAccount(t, store, "1012.00")

	entries, err := store.Lookup(ctx, clientID, model.KeyTypicalAccount)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "1012.00", entries[0].Subject)
	assert.Equal(t, "2002.00", entries[1].Subject)

	entries[0].Value[0] = 'X'
	fresh, err := store.Lookup(ctx, clientID, model.KeyTypicalAccount)
	require.NoError(t, err)
	assert.Equal(t, byte('{'), fresh[0].Value[0])
}

func TestMemoryStore_Invalid(t *testing.T) {
	store := NewMemoryStore()
	require.Error(t, store.Propose(context.Background(), nil))

	s := accountSuggestion(t, clientID, "1012.00")
	s.Knowledge.Key = "unknown"
	require.Error(t, store.Propose(context.Background(), s))
}

func TestMemoryStore_ConcurrentReaders(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	confirmAccount(t, store, "1012.00")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				entries, err := store.Lookup(ctx, clientID, model.KeyTypicalAccount)
				assert.NoError(t, err)
				assert.NotEmpty(t, entries)
			}
		}()
	}
	confirmAccount(t, store, "2002.00")
	wg.Wait()
}

type countingReader struct {
	err   error
	calls int
	mu    sync.Mutex
}

func (c *countingReader) Lookup(context.Context, string, model.KnowledgeKey) ([]model.ClientKnowledge, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return nil, c.err
}

func TestCachedStore(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	cached := NewCachedStore(mem, time.Minute, time.Minute)

	entries, err := cached.Lookup(ctx, clientID, model.KeyTypicalAccount)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Confirming through the cache invalidates the cached key.
	confirmAccount(t, cached, "1012.00")
	entries, err = cached.Lookup(ctx, clientID, model.KeyTypicalAccount)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	// Writes that bypass the cache are only seen after a flush.
	confirmAccount(t, mem, "2002.00")
	entries, err = cached.Lookup(ctx, clientID, model.KeyTypicalAccount)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	cached.Flush()
	entries, err = cached.Lookup(ctx, clientID, model.KeyTypicalAccount)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	pending, err := cached.Suggestions(ctx, clientID, model.SuggestionPending)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestMemoryStore_Observations(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	var s Store = NewCachedStore(mem, time.Minute, time.Minute)

	ledger := model.Observation{Kind: model.ObservationLedgerAccount, Source: "fibu-2023", Subject: "1012.00"}
	column := model.Observation{Kind: model.ObservationDefaultColumn, Source: "ja-2023", Subject: "3", Column: 3}
	require.NoError(t, s.RecordObservations(ctx, clientID, []model.Observation{ledger, column}))

	ledger.Class = model.ClassAsset
	require.NoError(t, s.RecordObservations(ctx, clientID, []model.Observation{ledger}))
	require.NoError(t, s.RecordObservations(ctx, "other-client", []model.Observation{column}))

	got, err := s.Observations(ctx, clientID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.ObservationLedgerAccount, got[0].Kind)
	assert.Equal(t, model.ClassAsset, got[0].Class)
	assert.Equal(t, clientID, got[0].ClientID)
	assert.Equal(t, model.ObservationDefaultColumn, got[1].Kind)

	other, err := mem.Observations(ctx, "other-client")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestTakeSnapshot(t *testing.T) {
	ctx := context.Background()
	fast := common.RetryOptions{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}

	t.Run("frozen view", func(t *testing.T) {
		store := NewMemoryStore()
		confirmAccount(t, store, "1012.00")

		snap := TakeSnapshot(ctx, store, clientID, fast)
		require.False(t, snap.Degraded())
		assert.Equal(t, clientID, snap.ClientID())

		confirmAccount(t, store, "2002.00")
		entries, err := snap.Lookup(ctx, clientID, model.KeyTypicalAccount)
		require.NoError(t, err)
		assert.Len(t, entries, 1)

		other, err := snap.Lookup(ctx, "other", model.KeyTypicalAccount)
		require.NoError(t, err)
		assert.Empty(t, other)
	})

	t.Run("nil reader", func(t *testing.T) {
		snap := TakeSnapshot(ctx, nil, clientID, fast)
		assert.False(t, snap.Degraded())
		entries, err := snap.Lookup(ctx, clientID, model.KeyColumnPreference)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("unavailable reader degrades", func(t *testing.T) {
		reader := &countingReader{err: errors.New("database is locked")}
		snap := TakeSnapshot(ctx, reader, clientID, fast)

		require.True(t, snap.Degraded())
		require.ErrorIs(t, snap.Err(), common.ErrKnowledgeStoreUnavailable)
		assert.Equal(t, 2, reader.calls)

		_, err := snap.Lookup(ctx, clientID, model.KeyTypicalAccount)
		require.ErrorIs(t, err, common.ErrKnowledgeStoreUnavailable)
	})
}

func TestNewSnapshot_IgnoresUnconfirmed(t *testing.T) {
	confirmed, err := model.NewClientKnowledge(clientID, model.KeyTypicalAccount, "1012.00", model.TypicalAccount{Account: "1012.00"})
	require.NoError(t, err)
	confirmed.Confirmed = true
	pending := confirmed
	pending.Subject = "2002.00"
	pending.Confirmed = false
	foreign := confirmed
	foreign.ClientID = "other"

	snap := NewSnapshot(clientID, confirmed, pending, foreign)
	entries, err := snap.Lookup(context.Background(), clientID, model.KeyTypicalAccount)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "1012.00", entries[0].Subject)

	degraded := DegradedSnapshot(clientID, errors.New("boom"))
	assert.True(t, degraded.Degraded())
}
