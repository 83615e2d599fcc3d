package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ledgerlens/ledgerlens/internal/model"
)

// SaveFeedback appends a feedback record. Feedback is append-only.
func (s *SQLiteStore) SaveFeedback(ctx context.Context, feedback *model.Feedback) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if feedback == nil {
		return fmt.Errorf("%w: feedback", ErrNilParameter)
	}
	if err := validateString(feedback.TransactionHash, "transactionHash"); err != nil {
		return err
	}
	if feedback.ID == "" {
		feedback.ID = uuid.NewString()
	}

	original, err := json.Marshal(feedback.Original)
	if err != nil {
		return fmt.Errorf("failed to marshal original transaction: %w", err)
	}
	corrections, err := json.Marshal(feedback.Corrections)
	if err != nil {
		return fmt.Errorf("failed to marshal corrections: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO feedback (id, transaction_hash, pattern_hash, original, corrections, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		feedback.ID, feedback.TransactionHash, feedback.PatternHash,
		string(original), string(corrections), feedback.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}
	return nil
}

// GetRecentFeedback returns the most recent feedback records, newest first.
func (s *SQLiteStore) GetRecentFeedback(ctx context.Context, limit int) ([]model.Feedback, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, transaction_hash, pattern_hash, original, corrections, timestamp
		FROM feedback ORDER BY timestamp DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.Feedback
	for rows.Next() {
		var fb model.Feedback
		var original, corrections string
		if err := rows.Scan(&fb.ID, &fb.TransactionHash, &fb.PatternHash, &original, &corrections, &fb.Timestamp); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(original), &fb.Original); err != nil {
			return nil, fmt.Errorf("failed to unmarshal original transaction: %w", err)
		}
		if err := json.Unmarshal([]byte(corrections), &fb.Corrections); err != nil {
			return nil, fmt.Errorf("failed to unmarshal corrections: %w", err)
		}
		records = append(records, fb)
	}
	return records, rows.Err()
}

// CountFeedback returns the number of feedback records.
func (s *SQLiteStore) CountFeedback(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM feedback`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count feedback: %w", err)
	}
	return count, nil
}

// SaveModelState persists a serialized training window keyed by predictor
// name.
func (s *SQLiteStore) SaveModelState(ctx context.Context, name string, state []byte) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(name, "name"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO models (name, state, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET state = excluded.state, updated_at = CURRENT_TIMESTAMP`,
		name, state)
	if err != nil {
		return fmt.Errorf("failed to save model state: %w", err)
	}
	return nil
}

// GetModelState loads a serialized training window. Returns nil when the
// model has never been saved.
func (s *SQLiteStore) GetModelState(ctx context.Context, name string) ([]byte, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	var state []byte
	err := s.db.QueryRowContext(ctx, `SELECT state FROM models WHERE name = ?`, name).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get model state: %w", err)
	}
	return state, nil
}

// IncrementStat adds delta to a named statistics counter.
func (s *SQLiteStore) IncrementStat(ctx context.Context, name string, delta int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(name, "name"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO statistics (name, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET value = value + excluded.value, updated_at = CURRENT_TIMESTAMP`,
		name, delta)
	if err != nil {
		return fmt.Errorf("failed to increment stat: %w", err)
	}
	return nil
}

// GetStats returns all statistics counters.
func (s *SQLiteStore) GetStats(ctx context.Context) (map[string]int, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT name, value FROM statistics`)
	if err != nil {
		return nil, fmt.Errorf("failed to query statistics: %w", err)
	}
	defer func() { _ = rows.Close() }()

	stats := make(map[string]int)
	for rows.Next() {
		var name string
		var value int
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		stats[name] = value
	}
	return stats, rows.Err()
}
