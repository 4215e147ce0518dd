package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

const knowledgeColumns = `id, client_id, key, subject, value, confirmed, created_at, updated_at`

// Lookup returns the confirmed entries for a client and key.
func (s *SQLiteStorage) Lookup(ctx context.Context, clientID string, key model.KnowledgeKey) ([]model.ClientKnowledge, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(clientID, "clientID"); err != nil {
		return nil, err
	}
	if err := validateKey(key); err != nil {
		return nil, err
	}

	query := `SELECT ` + knowledgeColumns + `
		FROM client_knowledge
		WHERE client_id = ? AND key = ? AND confirmed = 1
		ORDER BY subject ASC`

	rows, err := s.db.QueryContext(ctx, query, clientID, string(key))
	if err != nil {
		return nil, fmt.Errorf("failed to look up knowledge: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanKnowledgeRows(rows)
}

// ListKnowledge returns every confirmed entry of a client.
func (s *SQLiteStorage) ListKnowledge(ctx context.Context, clientID string) ([]model.ClientKnowledge, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(clientID, "clientID"); err != nil {
		return nil, err
	}

	query := `SELECT ` + knowledgeColumns + `
		FROM client_knowledge
		WHERE client_id = ? AND confirmed = 1
		ORDER BY key ASC, subject ASC`

	rows, err := s.db.QueryContext(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanKnowledgeRows(rows)
}

// upsertKnowledgeTx stores confirmed knowledge, replacing the value of an existing
// (client, key, subject) entry while keeping its id and creation time.
func upsertKnowledgeTx(ctx context.Context, tx *sql.Tx, k *model.ClientKnowledge) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO client_knowledge (`+knowledgeColumns+`)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT (client_id, key, subject) DO UPDATE SET
			value = excluded.value,
			confirmed = 1,
			updated_at = excluded.updated_at`,
		k.ID, k.ClientID, string(k.Key), k.Subject, string(k.Value), k.CreatedAt, k.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store knowledge: %w", err)
	}

	row := tx.QueryRowContext(ctx, `SELECT `+knowledgeColumns+`
		FROM client_knowledge
		WHERE client_id = ? AND key = ? AND subject = ?`,
		k.ClientID, string(k.Key), k.Subject)
	stored, err := scanKnowledge(row)
	if err != nil {
		return fmt.Errorf("failed to reload knowledge: %w", err)
	}
	*k = stored
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanKnowledge(row rowScanner) (model.ClientKnowledge, error) {
	var k model.ClientKnowledge
	var key, value string
	if err := row.Scan(&k.ID, &k.ClientID, &key, &k.Subject, &value, &k.Confirmed, &k.CreatedAt, &k.UpdatedAt); err != nil {
		return model.ClientKnowledge{}, err
	}
	k.Key = model.KnowledgeKey(key)
	k.Value = []byte(value)
	return k, nil
}

func scanKnowledgeRows(rows *sql.Rows) ([]model.ClientKnowledge, error) {
	var out []model.ClientKnowledge
	for rows.Next() {
		k, err := scanKnowledge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan knowledge: %w", err)
		}
		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating knowledge: %w", err)
	}
	return out, nil
}
