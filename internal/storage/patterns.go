package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/model"
)

// SavePattern inserts or updates a learned pattern keyed by signature hash.
func (s *SQLiteStore) SavePattern(ctx context.Context, pattern *model.LearnedPattern) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if pattern == nil {
		return fmt.Errorf("%w: pattern", ErrNilParameter)
	}
	if err := validateString(pattern.SignatureHash, "signatureHash"); err != nil {
		return err
	}

	features, err := json.Marshal(pattern.Features)
	if err != nil {
		return fmt.Errorf("failed to marshal features: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO patterns (signature_hash, bank_id, sample_text, features, accuracy, usage_count, created_at, last_used_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(signature_hash) DO UPDATE SET
			bank_id = excluded.bank_id,
			accuracy = excluded.accuracy,
			usage_count = excluded.usage_count,
			last_used_at = excluded.last_used_at`,
		pattern.SignatureHash, pattern.BankID, pattern.SampleText, string(features),
		pattern.Accuracy, pattern.UsageCount, pattern.CreatedAt, pattern.LastUsedAt)
	if err != nil {
		return fmt.Errorf("failed to save pattern: %w", err)
	}
	return nil
}

// GetPattern fetches a learned pattern by signature hash.
func (s *SQLiteStore) GetPattern(ctx context.Context, signatureHash string) (*model.LearnedPattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(signatureHash, "signatureHash"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT signature_hash, bank_id, sample_text, features, accuracy, usage_count, created_at, last_used_at
		FROM patterns WHERE signature_hash = ?`, signatureHash)

	pattern, err := scanPattern(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: pattern %s", common.ErrNotFound, signatureHash)
	}
	return pattern, err
}

// GetAllPatterns returns every learned pattern.
func (s *SQLiteStore) GetAllPatterns(ctx context.Context) ([]model.LearnedPattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT signature_hash, bank_id, sample_text, features, accuracy, usage_count, created_at, last_used_at
		FROM patterns ORDER BY last_used_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query patterns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var patterns []model.LearnedPattern
	for rows.Next() {
		pattern, err := scanPattern(rows)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, *pattern)
	}
	return patterns, rows.Err()
}

// CountPatterns returns the number of learned patterns.
func (s *SQLiteStore) CountPatterns(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM patterns`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count patterns: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPattern(row rowScanner) (*model.LearnedPattern, error) {
	var pattern model.LearnedPattern
	var features string
	err := row.Scan(&pattern.SignatureHash, &pattern.BankID, &pattern.SampleText,
		&features, &pattern.Accuracy, &pattern.UsageCount, &pattern.CreatedAt, &pattern.LastUsedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(features), &pattern.Features); err != nil {
		return nil, fmt.Errorf("failed to unmarshal features: %w", err)
	}
	return &pattern, nil
}
