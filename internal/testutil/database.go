// Package testutil provides test fixtures for reconciliation tests: a migrated
// knowledge database and builders for statement and ledger texts.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/storage"
)

// TestDB represents a test knowledge database with associated helpers.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a new in-memory knowledge database.
// It automatically handles migrations and cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
//	db.MustConfirm("gemeinde-muster", model.KeyColumnPreference, "", model.ColumnPreference{Column: 4})
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{
		Storage: store,
		t:       t,
	}
}

// MustConfirm proposes a knowledge entry and confirms it right away.
func (db *TestDB) MustConfirm(clientID string, key model.KnowledgeKey, subject string, value any) model.ClientKnowledge {
	db.t.Helper()
	ctx := context.Background()

	k, err := model.NewClientKnowledge(clientID, key, subject, value)
	if err != nil {
		db.t.Fatalf("failed to build knowledge: %v", err)
	}
	s := &model.LearningSuggestion{
		Title:     "fixture " + string(key) + " " + subject,
		Knowledge: k,
	}
	if err := db.Storage.Propose(ctx, s); err != nil {
		db.t.Fatalf("failed to propose %s: %v", k.Identity(), err)
	}
	confirmed, err := db.Storage.Confirm(ctx, s.ID)
	if err != nil {
		db.t.Fatalf("failed to confirm %s: %v", k.Identity(), err)
	}
	return *confirmed
}

// Pending returns the client's pending suggestions or fails the test.
func (db *TestDB) Pending(clientID string) []model.LearningSuggestion {
	db.t.Helper()
	pending, err := db.Storage.Suggestions(context.Background(), clientID, model.SuggestionPending)
	if err != nil {
		db.t.Fatalf("failed to list suggestions: %v", err)
	}
	return pending
}
