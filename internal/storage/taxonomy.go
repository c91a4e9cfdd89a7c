package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Veraticus/cinnamon/internal/model"
)

// SaveTaxonomy replaces the stored taxonomy with the given revision.
func (s *SQLiteStorage) SaveTaxonomy(ctx context.Context, taxonomy model.Taxonomy) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM taxonomy`); err != nil {
		return fmt.Errorf("failed to clear taxonomy: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO taxonomy (category, subcategories, position) VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for position, category := range taxonomy.Categories() {
		subsJSON, marshalErr := json.Marshal(taxonomy[category])
		if marshalErr != nil {
			return fmt.Errorf("failed to marshal subcategories for %s: %w", category, marshalErr)
		}
		if _, err := stmt.ExecContext(ctx, category, string(subsJSON), position); err != nil {
			return fmt.Errorf("failed to save category %s: %w", category, err)
		}
	}

	return tx.Commit()
}

// GetTaxonomy returns the stored taxonomy. An empty database yields an
// empty taxonomy, not an error.
func (s *SQLiteStorage) GetTaxonomy(ctx context.Context) (model.Taxonomy, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, subcategories FROM taxonomy ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query taxonomy: %w", err)
	}
	defer func() { _ = rows.Close() }()

	taxonomy := make(model.Taxonomy)
	for rows.Next() {
		var category, subsJSON string
		if err := rows.Scan(&category, &subsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan taxonomy row: %w", err)
		}
		var subs []string
		if err := json.Unmarshal([]byte(subsJSON), &subs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal subcategories for %s: %w", category, err)
		}
		taxonomy[category] = subs
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate taxonomy: %w", err)
	}

	return taxonomy, nil
}
