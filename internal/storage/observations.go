package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

const observationColumns = `client_id, kind, source, subject, column_name, class, tag, column_index, amount, recorded_at`

// RecordObservations stores a run's learning evidence. An observation with the same
// (client, kind, source, subject) is updated in place and keeps its position.
func (s *SQLiteStorage) RecordObservations(ctx context.Context, clientID string, observations []model.Observation) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(clientID, "clientID"); err != nil {
		return err
	}
	if len(observations) == 0 {
		return nil
	}

	now := time.Now().UTC()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO learning_observations (`+observationColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (client_id, kind, source, subject) DO UPDATE SET
				column_name = excluded.column_name,
				class = excluded.class,
				tag = excluded.tag,
				column_index = excluded.column_index,
				amount = excluded.amount,
				recorded_at = excluded.recorded_at`)
		if err != nil {
			return fmt.Errorf("failed to prepare observation insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, o := range observations {
			o.ClientID = clientID
			if err := validateObservation(o); err != nil {
				return err
			}
			_, err := stmt.ExecContext(ctx,
				clientID, string(o.Kind), o.Source, o.Subject, o.ColumnName,
				string(o.Class), string(o.Tag), o.Column, o.Offset.String(), now,
			)
			if err != nil {
				return fmt.Errorf("failed to record observation %s: %w", o.Identity(), err)
			}
		}
		return nil
	})
}

// Observations returns a client's observations in first-recorded order.
func (s *SQLiteStorage) Observations(ctx context.Context, clientID string) ([]model.Observation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(clientID, "clientID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+observationColumns+`
		FROM learning_observations
		WHERE client_id = ?
		ORDER BY rowid ASC`, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list observations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Observation
	for rows.Next() {
		var o model.Observation
		var kind, class, tag, amount string
		if err := rows.Scan(&o.ClientID, &kind, &o.Source, &o.Subject, &o.ColumnName,
			&class, &tag, &o.Column, &amount, &o.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		o.Kind = model.ObservationKind(kind)
		o.Class = model.BalanceClass(class)
		o.Tag = model.ItemTag(tag)
		if o.Offset, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("failed to parse observation amount %q: %w", amount, err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating observations: %w", err)
	}
	return out, nil
}
