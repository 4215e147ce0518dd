package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

const suggestionColumns = `id, client_id, key, subject, value, title, description, status, created_at, resolved_at`

// Propose registers a pending suggestion.
func (s *SQLiteStorage) Propose(ctx context.Context, suggestion *model.LearningSuggestion) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSuggestion(suggestion); err != nil {
		return err
	}

	if suggestion.ID == "" {
		suggestion.ID = uuid.NewString()
	}
	suggestion.Status = model.SuggestionPending
	suggestion.CreatedAt = time.Now().UTC()
	suggestion.ResolvedAt = nil

	k := suggestion.Knowledge
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO learning_suggestions (`+suggestionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
		suggestion.ID, k.ClientID, string(k.Key), k.Subject, string(k.Value),
		suggestion.Title, suggestion.Description, string(suggestion.Status), suggestion.CreatedAt,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return fmt.Errorf("%w: pending suggestion for %s", common.ErrDuplicateEntry, k.Identity())
		}
		return fmt.Errorf("failed to propose suggestion: %w", err)
	}
	return nil
}

// Confirm accepts a pending suggestion and materializes its knowledge.
func (s *SQLiteStorage) Confirm(ctx context.Context, suggestionID string) (*model.ClientKnowledge, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(suggestionID, "suggestionID"); err != nil {
		return nil, err
	}

	var confirmed model.ClientKnowledge
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		suggestion, err := pendingSuggestionTx(ctx, tx, suggestionID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		confirmed = suggestion.Knowledge
		confirmed.ID = uuid.NewString()
		confirmed.CreatedAt = now
		confirmed.UpdatedAt = now
		confirmed.Confirmed = true
		if err := upsertKnowledgeTx(ctx, tx, &confirmed); err != nil {
			return err
		}

		return resolveSuggestionTx(ctx, tx, suggestionID, model.SuggestionAccepted, now)
	})
	if err != nil {
		return nil, err
	}
	return &confirmed, nil
}

// Reject marks a pending suggestion as rejected.
func (s *SQLiteStorage) Reject(ctx context.Context, suggestionID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(suggestionID, "suggestionID"); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := pendingSuggestionTx(ctx, tx, suggestionID); err != nil {
			return err
		}
		return resolveSuggestionTx(ctx, tx, suggestionID, model.SuggestionRejected, time.Now().UTC())
	})
}

// Suggestions lists a client's suggestions, oldest first.
func (s *SQLiteStorage) Suggestions(ctx context.Context, clientID string, status model.SuggestionStatus) ([]model.LearningSuggestion, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(clientID, "clientID"); err != nil {
		return nil, err
	}
	if err := validateStatusFilter(status); err != nil {
		return nil, err
	}

	query := `SELECT ` + suggestionColumns + `
		FROM learning_suggestions
		WHERE client_id = ? AND (? = '' OR status = ?)
		ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, clientID, string(status), string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list suggestions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.LearningSuggestion
	for rows.Next() {
		suggestion, err := scanSuggestion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan suggestion: %w", err)
		}
		out = append(out, suggestion)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating suggestions: %w", err)
	}
	return out, nil
}

// GetSuggestion retrieves one suggestion by id.
func (s *SQLiteStorage) GetSuggestion(ctx context.Context, id string) (*model.LearningSuggestion, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+suggestionColumns+` FROM learning_suggestions WHERE id = ?`, id)
	suggestion, err := scanSuggestion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: suggestion %s", common.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get suggestion: %w", err)
	}
	return &suggestion, nil
}

func pendingSuggestionTx(ctx context.Context, tx *sql.Tx, id string) (*model.LearningSuggestion, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+suggestionColumns+` FROM learning_suggestions WHERE id = ?`, id)
	suggestion, err := scanSuggestion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: suggestion %s", common.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get suggestion: %w", err)
	}
	if suggestion.Status != model.SuggestionPending {
		return nil, fmt.Errorf("%w: suggestion %s is %s", common.ErrInvalidTransition, id, suggestion.Status)
	}
	return &suggestion, nil
}

func resolveSuggestionTx(ctx context.Context, tx *sql.Tx, id string, status model.SuggestionStatus, at time.Time) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE learning_suggestions SET status = ?, resolved_at = ? WHERE id = ? AND status = 'pending'`,
		string(status), at, id)
	if err != nil {
		return fmt.Errorf("failed to resolve suggestion: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: suggestion %s", common.ErrInvalidTransition, id)
	}
	return nil
}

func scanSuggestion(row rowScanner) (model.LearningSuggestion, error) {
	var s model.LearningSuggestion
	var key, value, status string
	var resolvedAt sql.NullTime
	err := row.Scan(
		&s.ID, &s.Knowledge.ClientID, &key, &s.Knowledge.Subject, &value,
		&s.Title, &s.Description, &status, &s.CreatedAt, &resolvedAt,
	)
	if err != nil {
		return model.LearningSuggestion{}, err
	}
	s.Knowledge.Key = model.KnowledgeKey(key)
	s.Knowledge.Value = []byte(value)
	s.Status = model.SuggestionStatus(status)
	if resolvedAt.Valid {
		t := resolvedAt.Time
		s.ResolvedAt = &t
	}
	return s, nil
}
