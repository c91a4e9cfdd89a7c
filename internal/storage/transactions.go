package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/cinnamon/internal/common"
	"github.com/Veraticus/cinnamon/internal/model"
)

// SaveTransactions inserts or updates multiple transactions. An existing
// row keyed by id has its categorization fields refreshed.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Inserts ignore duplicates (same id, or same hash from a re-import);
	// the follow-up update refreshes categorization fields by id.
	insert, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO transactions (
			id, hash, date, description, amount, currency,
			category, subcategory, original_category, confidence,
			manually_edited, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = insert.Close() }()

	update, err := tx.PrepareContext(ctx, `
		UPDATE transactions SET
			category = ?,
			subcategory = ?,
			original_category = ?,
			confidence = ?,
			manually_edited = ?,
			metadata = ?
		WHERE id = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare update: %w", err)
	}
	defer func() { _ = update.Close() }()

	for _, txn := range transactions {
		if txn.ID == "" {
			return fmt.Errorf("transaction missing id (description %q)", txn.Description)
		}
		if txn.Hash == "" {
			txn.Hash = txn.GenerateHash()
		}

		metadataJSON := sql.NullString{}
		if len(txn.Metadata) > 0 {
			raw, marshalErr := json.Marshal(txn.Metadata)
			if marshalErr != nil {
				return fmt.Errorf("failed to marshal metadata for %s: %w", txn.ID, marshalErr)
			}
			metadataJSON = sql.NullString{String: string(raw), Valid: true}
		}

		if _, err := insert.ExecContext(ctx,
			txn.ID,
			txn.Hash,
			txn.Date,
			txn.Description,
			txn.Amount,
			txn.Currency,
			txn.Category,
			txn.Subcategory,
			txn.OriginalCategory,
			txn.Confidence,
			txn.IsManuallyEdited,
			metadataJSON,
		); err != nil {
			return fmt.Errorf("failed to save transaction %s: %w", txn.ID, err)
		}

		if _, err := update.ExecContext(ctx,
			txn.Category,
			txn.Subcategory,
			txn.OriginalCategory,
			txn.Confidence,
			txn.IsManuallyEdited,
			metadataJSON,
			txn.ID,
		); err != nil {
			return fmt.Errorf("failed to update transaction %s: %w", txn.ID, err)
		}
	}

	return tx.Commit()
}

// GetTransactions returns all transactions ordered by date, then id.
func (s *SQLiteStorage) GetTransactions(ctx context.Context) ([]model.Transaction, error) {
	return s.queryTransactions(ctx, `
		SELECT id, hash, date, description, amount, currency,
		       category, subcategory, original_category, confidence,
		       manually_edited, metadata
		FROM transactions
		ORDER BY date, id
	`)
}

// GetLabeledTransactions returns transactions that already carry a
// category, in date order. These form the historical reference set and the
// classifier's training data.
func (s *SQLiteStorage) GetLabeledTransactions(ctx context.Context) ([]model.Transaction, error) {
	return s.queryTransactions(ctx, `
		SELECT id, hash, date, description, amount, currency,
		       category, subcategory, original_category, confidence,
		       manually_edited, metadata
		FROM transactions
		WHERE category != ''
		ORDER BY date, id
	`)
}

// GetTransactionByID returns a single transaction or common.ErrNotFound.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, hash, date, description, amount, currency,
		       category, subcategory, original_category, confidence,
		       manually_edited, metadata
		FROM transactions
		WHERE id = ?
	`, id)

	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *SQLiteStorage) queryTransactions(ctx context.Context, query string) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return transactions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var txn model.Transaction
	var date time.Time
	var metadataJSON sql.NullString

	if err := row.Scan(
		&txn.ID,
		&txn.Hash,
		&date,
		&txn.Description,
		&txn.Amount,
		&txn.Currency,
		&txn.Category,
		&txn.Subcategory,
		&txn.OriginalCategory,
		&txn.Confidence,
		&txn.IsManuallyEdited,
		&metadataJSON,
	); err != nil {
		return nil, err
	}
	txn.Date = date

	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &txn.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata for %s: %w", txn.ID, err)
		}
	}

	return &txn, nil
}
