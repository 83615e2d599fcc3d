package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/model"
)

// SaveTransactions persists fused transactions. Transactions are unique on
// their content hash; duplicates are skipped. Returns the number of rows
// actually inserted. The processed timestamp is assigned here.
func (s *SQLiteStore) SaveTransactions(ctx context.Context, transactions []model.Transaction) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if len(transactions) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	inserted := 0
	now := time.Now().UTC()
	for i := range transactions {
		txn := &transactions[i]
		if txn.Hash == "" {
			txn.Hash = txn.GenerateHash()
		}

		predictions, err := json.Marshal(txn.Predictions)
		if err != nil {
			return inserted, fmt.Errorf("failed to marshal predictions: %w", err)
		}

		result, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO transactions
				(hash, date, amount, description, merchant, merchant_confidence,
				 category, category_confidence, overall_confidence, ml_enhanced, predictions, processed)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			txn.Hash, txn.Date, txn.Amount, txn.Description, txn.Merchant, txn.MerchantConfidence,
			txn.Category, txn.CategoryConfidence, txn.OverallConfidence, txn.MLEnhanced,
			string(predictions), now)
		if err != nil {
			return inserted, fmt.Errorf("failed to save transaction: %w", err)
		}
		if rows, _ := result.RowsAffected(); rows > 0 {
			txn.Processed = now
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("failed to commit transactions: %w", err)
	}
	return inserted, nil
}

// GetTransactionByHash fetches a persisted transaction.
func (s *SQLiteStore) GetTransactionByHash(ctx context.Context, hash string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(hash, "hash"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT hash, date, amount, description, merchant, merchant_confidence,
		       category, category_confidence, overall_confidence, ml_enhanced, predictions, processed
		FROM transactions WHERE hash = ?`, hash)

	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: transaction %s", common.ErrNotFound, hash)
	}
	return txn, err
}

// GetTransactions returns the most recently processed transactions.
func (s *SQLiteStore) GetTransactions(ctx context.Context, limit int) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT hash, date, amount, description, merchant, merchant_confidence,
		       category, category_confidence, overall_confidence, ml_enhanced, predictions, processed
		FROM transactions ORDER BY processed DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *txn)
	}
	return transactions, rows.Err()
}

// CountTransactions returns the number of persisted transactions.
func (s *SQLiteStore) CountTransactions(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var txn model.Transaction
	var merchant, category, predictions sql.NullString
	err := row.Scan(&txn.Hash, &txn.Date, &txn.Amount, &txn.Description,
		&merchant, &txn.MerchantConfidence, &category, &txn.CategoryConfidence,
		&txn.OverallConfidence, &txn.MLEnhanced, &predictions, &txn.Processed)
	if err != nil {
		return nil, err
	}
	txn.Merchant = merchant.String
	txn.Category = category.String
	if predictions.Valid && predictions.String != "" && predictions.String != "null" {
		if err := json.Unmarshal([]byte(predictions.String), &txn.Predictions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal predictions: %w", err)
		}
	}
	return &txn, nil
}
