// Package learning turns repeated observations across reconciliation runs into
// knowledge suggestions that a person has to confirm before they take effect.
package learning

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/knowledge"
	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// MinOccurrences is how often an observation must repeat before it is suggested.
const MinOccurrences = 2

// Input is the material of one or more runs for a single client.
type Input struct {
	Documents []model.Document
	Items     []model.ExtractedItem
	Results   []model.AuditResult
}

// Generator proposes knowledge suggestions.
type Generator struct {
	store knowledge.Store
}

// NewGenerator creates a generator that registers its proposals in store.
func NewGenerator(store knowledge.Store) *Generator {
	return &Generator{store: store}
}

// Generate records the batch's observations, then proposes every candidate over this
// and earlier runs that has no confirmed knowledge and no pending suggestion yet. It
// returns the suggestions that were registered. Individual proposal failures are logged
// and skipped.
func (g *Generator) Generate(ctx context.Context, clientID string, in Input) ([]model.LearningSuggestion, error) {
	existing, err := g.existingIdentities(ctx, clientID)
	if err != nil {
		return nil, err
	}

	var proposed []model.LearningSuggestion
	for _, s := range Candidates(clientID, g.evidence(ctx, clientID, in)) {
		if err := ctx.Err(); err != nil {
			return proposed, err
		}
		identity := s.Knowledge.Identity()
		if existing[identity] {
			continue
		}

		if err := g.store.Propose(ctx, &s); err != nil {
			if errors.Is(err, common.ErrDuplicateEntry) {
				common.LogDebug("Suggestion already pending", common.Fields{"identity": identity})
				continue
			}
			common.LogError(err, "Failed to propose suggestion", common.Fields{
				"client_id": clientID,
				"identity":  identity,
			})
			continue
		}
		existing[identity] = true
		proposed = append(proposed, s)
	}
	return proposed, nil
}

// evidence merges the batch with the observations of earlier runs. When the log
// cannot be written or read, learning falls back to the batch alone.
func (g *Generator) evidence(ctx context.Context, clientID string, in Input) Input {
	current := Observe(in)
	if err := g.store.RecordObservations(ctx, clientID, current); err != nil {
		common.LogWarn("Failed to record observations", common.Fields{
			"client_id": clientID,
			"error":     err.Error(),
		})
		return in
	}

	stored, err := g.store.Observations(ctx, clientID)
	if err != nil {
		common.LogWarn("Earlier runs unavailable, learning from this batch only", common.Fields{
			"client_id": clientID,
			"error":     err.Error(),
		})
		return in
	}
	return withEarlierRuns(in, current, stored)
}

func (g *Generator) existingIdentities(ctx context.Context, clientID string) (map[string]bool, error) {
	seen := make(map[string]bool)
	for _, key := range knowledge.AllKeys {
		entries, err := g.store.Lookup(ctx, clientID, key)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s knowledge: %w", key, err)
		}
		for _, e := range entries {
			seen[e.Identity()] = true
		}
	}

	pending, err := g.store.Suggestions(ctx, clientID, model.SuggestionPending)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending suggestions: %w", err)
	}
	for _, s := range pending {
		seen[s.Knowledge.Identity()] = true
	}
	return seen, nil
}

// Candidates derives suggestions from the input without consulting any store.
// The result is ordered by key and subject and contains each identity once.
func Candidates(clientID string, in Input) []model.LearningSuggestion {
	var out []model.LearningSuggestion
	out = append(out, typicalAccounts(clientID, in.Items)...)
	out = append(out, columnPreferences(clientID, in.Items)...)
	out = append(out, anomalyPatterns(clientID, in.Results)...)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Knowledge, out[j].Knowledge
		if a.Key != b.Key {
			return a.Key < b.Key
		}
		return a.Subject < b.Subject
	})

	seen := make(map[string]bool, len(out))
	deduped := out[:0]
	for _, s := range out {
		if seen[s.Knowledge.Identity()] {
			continue
		}
		seen[s.Knowledge.Identity()] = true
		deduped = append(deduped, s)
	}
	return deduped
}

func typicalAccounts(clientID string, items []model.ExtractedItem) []model.LearningSuggestion {
	docs := make(map[string]map[string]bool)
	classes := make(map[string]model.BalanceClass)
	for _, it := range items {
		if it.Side != model.SideFibu || it.Account == "" {
			continue
		}
		if docs[it.Account] == nil {
			docs[it.Account] = make(map[string]bool)
		}
		docs[it.Account][it.DocumentID] = true
		classes[it.Account] = it.Class
	}

	var out []model.LearningSuggestion
	for _, account := range sortedKeys(docs) {
		count := len(docs[account])
		if count < MinOccurrences {
			continue
		}
		value := model.TypicalAccount{Account: account, Class: classes[account], DocumentCount: count}
		s, ok := newSuggestion(clientID, model.KeyTypicalAccount, account, value,
			fmt.Sprintf("Typical account %s", account),
			fmt.Sprintf("Account %s appeared in %d ledger documents", account, count))
		if ok {
			out = append(out, s)
		}
	}
	return out
}

type columnUse struct {
	name      string
	types     map[model.DocumentType]bool
	documents map[string]bool
	column    int
}

// columnPreferences suggests a column that the defaults picked in several documents.
// When every such document has the same type the preference is scoped to that type.
func columnPreferences(clientID string, items []model.ExtractedItem) []model.LearningSuggestion {
	uses := make(map[int]*columnUse)
	for _, it := range items {
		if it.Side != model.SideTax || !it.ColumnSource.IsDefault() || it.Column < 1 {
			continue
		}
		u := uses[it.Column]
		if u == nil {
			u = &columnUse{
				column:    it.Column,
				types:     make(map[model.DocumentType]bool),
				documents: make(map[string]bool),
			}
			uses[it.Column] = u
		}
		u.documents[it.DocumentID] = true
		if t := documentTypeOf(it); t != "" {
			u.types[t] = true
		}
		if u.name == "" {
			u.name = it.ColumnName
		}
	}

	ranked := make([]*columnUse, 0, len(uses))
	for _, u := range uses {
		if len(u.documents) >= MinOccurrences {
			ranked = append(ranked, u)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if len(ranked[i].documents) != len(ranked[j].documents) {
			return len(ranked[i].documents) > len(ranked[j].documents)
		}
		return ranked[i].column < ranked[j].column
	})

	var out []model.LearningSuggestion
	for _, u := range ranked {
		value := model.ColumnPreference{Column: u.column, ColumnName: u.name}
		if len(u.types) == 1 {
			for t := range u.types {
				value.DocumentType = t
			}
		}

		label := "column " + strconv.Itoa(u.column)
		if u.name != "" {
			label = fmt.Sprintf("column %d (%s)", u.column, u.name)
		}
		s, ok := newSuggestion(clientID, model.KeyColumnPreference, string(value.DocumentType), value,
			"Prefer "+label,
			fmt.Sprintf("Amounts were read from %s in %d documents", label, len(u.documents)))
		if ok {
			out = append(out, s)
		}
	}
	return out
}

// documentTypeOf infers the tax document type from the item tag.
func documentTypeOf(it model.ExtractedItem) model.DocumentType {
	switch it.Tag {
	case model.TagCurrentYearTotal, model.TagAssessmentTotal:
		return model.DocumentTypeJA
	case model.TagPriorYearReversal, model.TagPriorYearNewBooking:
		return model.DocumentTypeSR
	case model.TagNachsteuerTotal:
		return model.DocumentTypeNAST
	}
	return ""
}

func anomalyPatterns(clientID string, results []model.AuditResult) []model.LearningSuggestion {
	type offset struct {
		value decimal.Decimal
		rules map[string]bool
		count int
	}
	offsets := make(map[string]*offset)
	for _, r := range results {
		if r.Status != model.AuditMismatch {
			continue
		}
		abs := r.Difference.Abs()
		key := abs.StringFixed(2)
		o := offsets[key]
		if o == nil {
			o = &offset{value: abs.Round(2), rules: make(map[string]bool)}
			offsets[key] = o
		}
		o.count++
		o.rules[r.RuleID] = true
	}

	var out []model.LearningSuggestion
	for _, key := range sortedKeys(offsets) {
		o := offsets[key]
		if o.count < MinOccurrences {
			continue
		}
		value := model.AnomalyPattern{Offset: o.value, Rules: sortedKeys(o.rules), Occurrences: o.count}
		s, ok := newSuggestion(clientID, model.KeyAnomalyPattern, key, value,
			fmt.Sprintf("Recurring difference of %s", common.FormatCHF(o.value)),
			fmt.Sprintf("The same difference showed up in %d mismatched results", o.count))
		if ok {
			out = append(out, s)
		}
	}
	return out
}

func newSuggestion(clientID string, key model.KnowledgeKey, subject string, value any, title, description string) (model.LearningSuggestion, bool) {
	k, err := model.NewClientKnowledge(clientID, key, subject, value)
	if err != nil {
		common.LogError(err, "Failed to encode suggestion", common.Fields{"key": key, "subject": subject})
		return model.LearningSuggestion{}, false
	}
	return model.LearningSuggestion{
		Knowledge:   k,
		Title:       title,
		Description: description,
		Status:      model.SuggestionPending,
	}, true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
