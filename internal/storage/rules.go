package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Veraticus/cinnamon/internal/model"
)

// SaveKeywordRules upserts keyword rules keyed by (category, subcategory).
func (s *SQLiteStorage) SaveKeywordRules(ctx context.Context, rules []model.KeywordRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO keyword_rules (category, subcategory, keywords, priority, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(category, subcategory) DO UPDATE SET
			keywords = excluded.keywords,
			priority = excluded.priority,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, rule := range rules {
		keywordsJSON, marshalErr := json.Marshal(rule.Keywords)
		if marshalErr != nil {
			return fmt.Errorf("failed to marshal keywords for rule %s/%s: %w",
				rule.Category, rule.Subcategory, marshalErr)
		}
		if _, err := stmt.ExecContext(ctx, rule.Category, rule.Subcategory, string(keywordsJSON), rule.Priority); err != nil {
			return fmt.Errorf("failed to save rule %s/%s: %w", rule.Category, rule.Subcategory, err)
		}
	}

	return tx.Commit()
}

// GetKeywordRules returns all stored keyword rules, highest priority first.
func (s *SQLiteStorage) GetKeywordRules(ctx context.Context) ([]model.KeywordRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, subcategory, keywords, priority
		FROM keyword_rules
		ORDER BY priority DESC, category, subcategory
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query keyword rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.KeywordRule
	for rows.Next() {
		var rule model.KeywordRule
		var keywordsJSON string
		if err := rows.Scan(&rule.Category, &rule.Subcategory, &keywordsJSON, &rule.Priority); err != nil {
			return nil, fmt.Errorf("failed to scan keyword rule: %w", err)
		}
		if err := json.Unmarshal([]byte(keywordsJSON), &rule.Keywords); err != nil {
			return nil, fmt.Errorf("failed to unmarshal keywords for rule %s/%s: %w",
				rule.Category, rule.Subcategory, err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate keyword rules: %w", err)
	}

	return rules, nil
}
