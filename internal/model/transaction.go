// Package model defines the core domain models used throughout the application.
package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// Transaction represents a single financial transaction from any source.
// A categorization run never mutates a Transaction in place; it produces a
// new record with the suggestion applied.
type Transaction struct {
	Date             time.Time
	Metadata         map[string]string
	ID               string
	Description      string // Raw merchant/description text, the primary classification signal
	Currency         string
	Category         string
	Subcategory      string
	OriginalCategory string // Category as first assigned by the engine
	Hash             string
	Amount           float64
	Confidence       float64 // In [0,1]; meaningful only when Category is set
	IsManuallyEdited bool
}

// HasCategory reports whether the transaction already carries a category.
// Transactions with a category form the historical reference set.
func (t *Transaction) HasCategory() bool {
	return t.Category != ""
}

// GenerateHash creates a unique hash for duplicate detection.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%.2f:%s:%s",
		t.Date.Format("2006-01-02"),
		t.Amount,
		t.Description,
		t.Currency)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
