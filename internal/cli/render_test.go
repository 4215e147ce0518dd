package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-books-must-balance/internal/engine"
	"github.com/Veraticus/the-books-must-balance/internal/model"
)

func TestRenderReport(t *testing.T) {
	tax := decimal.NewFromInt(17500)
	fibu := decimal.NewFromInt(17450)
	report := &engine.Report{
		ClientID: clientID,
		Documents: []model.Document{
			{ID: "ja", Filename: "JA_2024.txt", Status: model.DocumentStatusOK},
			{ID: "fibu", Filename: "FiBu.txt", Status: model.DocumentStatusIncomplete},
			{ID: "qst", Filename: "QST.txt", Status: model.DocumentStatusExcluded},
		},
		Results: []model.AuditResult{
			{
				RuleID:     "R805",
				Status:     model.AuditMismatch,
				TaxTotal:   &tax,
				FibuTotal:  &fibu,
				Difference: decimal.NewFromInt(50),
				Hint:       "Differenz von CHF 50.00",
				TaxItems: []model.ExtractedItem{{
					Filename: "JA_2024.txt",
					Tag:      model.TagCurrentYearTotal,
					Label:    "Total Restanzen",
					Amount:   tax,
				}},
			},
			{RuleID: "R806", Status: model.AuditNoData},
		},
		Suggestions: []model.LearningSuggestion{{ID: "s1", Title: "Prefer column 5"}},
		Degraded:    true,
	}

	var out bytes.Buffer
	require.NoError(t, RenderReport(&out, report, true))

	s := out.String()
	assert.Contains(t, s, "R805")
	assert.Contains(t, s, "MISMATCH")
	assert.Contains(t, s, "CHF 17'500.00")
	assert.Contains(t, s, "Differenz von CHF 50.00")
	assert.Contains(t, s, "1 excluded, 1 incomplete")
	assert.Contains(t, s, "Incomplete: FiBu.txt")
	assert.Contains(t, s, "Total Restanzen")
	assert.Contains(t, s, "balance suggestions review")
	assert.Contains(t, s, "defaults were used")
}

func TestRenderSuggestionsAndKnowledge(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, RenderSuggestions(&out, nil))
	assert.Contains(t, out.String(), "No suggestions")

	out.Reset()
	require.NoError(t, RenderSuggestions(&out, []model.LearningSuggestion{{
		ID:        "abc",
		Title:     "Typical account 1012.00",
		Status:    model.SuggestionPending,
		CreatedAt: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
		Knowledge: model.ClientKnowledge{Key: model.KeyTypicalAccount},
	}}))
	assert.Contains(t, out.String(), "Typical account 1012.00")
	assert.Contains(t, out.String(), "2024-03-01 09:30")

	out.Reset()
	require.NoError(t, RenderKnowledge(&out, []model.ClientKnowledge{{
		Key:     model.KeyColumnPreference,
		Subject: "JA",
		Value:   []byte(`{"column":5}`),
	}}))
	assert.Contains(t, out.String(), `{"column":5}`)
}
