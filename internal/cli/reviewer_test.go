package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-books-must-balance/internal/knowledge"
	"github.com/Veraticus/the-books-must-balance/internal/model"
)

const clientID = "gemeinde-muster"

func proposeAccount(t *testing.T, store knowledge.Store, account string) string {
	t.Helper()
	k, err := model.NewClientKnowledge(clientID, model.KeyTypicalAccount, account,
		model.TypicalAccount{Account: account, DocumentCount: 2})
	require.NoError(t, err)
	s := &model.LearningSuggestion{Knowledge: k, Title: "Typical account " + account}
	require.NoError(t, store.Propose(context.Background(), s))
	return s.ID
}

func TestReviewer_Review(t *testing.T) {
	ctx := context.Background()
	store := knowledge.NewMemoryStore()
	proposeAccount(t, store, "1012.00")
	proposeAccount(t, store, "2002.00")
	proposeAccount(t, store, "1099.00")

	var out bytes.Buffer
	rv := NewReviewer(store, strings.NewReader("maybe\na\nr\ns\n"), &out)

	stats, err := rv.Review(ctx, clientID)
	require.NoError(t, err)
	assert.Equal(t, ReviewStats{Accepted: 1, Rejected: 1, Skipped: 1}, stats)
	assert.Contains(t, out.String(), "Please answer")

	confirmed, err := store.Lookup(ctx, clientID, model.KeyTypicalAccount)
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, "1012.00", confirmed[0].Subject)

	pending, err := store.Suggestions(ctx, clientID, model.SuggestionPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestReviewer_EndOfInputQuits(t *testing.T) {
	store := knowledge.NewMemoryStore()
	proposeAccount(t, store, "1012.00")
	proposeAccount(t, store, "2002.00")

	rv := NewReviewer(store, strings.NewReader(""), &bytes.Buffer{})

	stats, err := rv.Review(context.Background(), clientID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Skipped)
	assert.Zero(t, stats.Accepted)
}

func TestReviewer_NothingPending(t *testing.T) {
	var out bytes.Buffer
	rv := NewReviewer(knowledge.NewMemoryStore(), strings.NewReader(""), &out)

	_, err := rv.Review(context.Background(), clientID)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "No pending suggestions")
}

func TestParseDecision(t *testing.T) {
	tests := []struct {
		input string
		want  Decision
		ok    bool
	}{
		{input: "a", want: DecisionAccept, ok: true},
		{input: " YES ", want: DecisionAccept, ok: true},
		{input: "r", want: DecisionReject, ok: true},
		{input: "", want: DecisionSkip, ok: true},
		{input: "q", want: DecisionQuit, ok: true},
		{input: "later", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := parseDecision(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
