package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/model"
)

// SaveMerchant inserts or updates a merchant record keyed by its normalized
// name.
func (s *SQLiteStore) SaveMerchant(ctx context.Context, merchant *model.Merchant) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if merchant == nil {
		return fmt.Errorf("%w: merchant", ErrNilParameter)
	}
	if err := validateString(merchant.Normalized, "normalized"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO merchants (normalized, name, category, use_count, last_seen_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(normalized) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			use_count = excluded.use_count,
			last_seen_at = excluded.last_seen_at`,
		merchant.Normalized, merchant.Name, merchant.Category, merchant.UseCount, merchant.LastSeenAt)
	if err != nil {
		return fmt.Errorf("failed to save merchant: %w", err)
	}
	return nil
}

// GetMerchant fetches a merchant by normalized name.
func (s *SQLiteStore) GetMerchant(ctx context.Context, normalized string) (*model.Merchant, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(normalized, "normalized"); err != nil {
		return nil, err
	}

	var merchant model.Merchant
	var category sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT normalized, name, category, use_count, last_seen_at
		FROM merchants WHERE normalized = ?`, normalized).
		Scan(&merchant.Normalized, &merchant.Name, &category, &merchant.UseCount, &merchant.LastSeenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: merchant %s", common.ErrNotFound, normalized)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get merchant: %w", err)
	}
	merchant.Category = category.String
	return &merchant, nil
}

// GetAllMerchants returns every known merchant, most used first.
func (s *SQLiteStore) GetAllMerchants(ctx context.Context) ([]model.Merchant, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT normalized, name, category, use_count, last_seen_at
		FROM merchants ORDER BY use_count DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query merchants: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var merchants []model.Merchant
	for rows.Next() {
		var merchant model.Merchant
		var category sql.NullString
		if err := rows.Scan(&merchant.Normalized, &merchant.Name, &category,
			&merchant.UseCount, &merchant.LastSeenAt); err != nil {
			return nil, err
		}
		merchant.Category = category.String
		merchants = append(merchants, merchant)
	}
	return merchants, rows.Err()
}
