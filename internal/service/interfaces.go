// Package service defines the interfaces for all application services.
package service

import (
	"context"

	"github.com/Veraticus/cinnamon/internal/model"
)

// Storage defines the contract for the persistence layer consumed by the
// CLI. The engine itself never touches storage.
type Storage interface {
	// Transaction operations
	SaveTransactions(ctx context.Context, transactions []model.Transaction) error
	GetTransactions(ctx context.Context) ([]model.Transaction, error)
	GetLabeledTransactions(ctx context.Context) ([]model.Transaction, error)
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)

	// Keyword rule operations
	SaveKeywordRules(ctx context.Context, rules []model.KeywordRule) error
	GetKeywordRules(ctx context.Context) ([]model.KeywordRule, error)

	// Taxonomy operations
	SaveTaxonomy(ctx context.Context, taxonomy model.Taxonomy) error
	GetTaxonomy(ctx context.Context) (model.Taxonomy, error)

	// Model metrics operations
	SaveModelMetrics(ctx context.Context, metrics *model.ModelMetrics) error
	GetModelMetrics(ctx context.Context) (*model.ModelMetrics, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}
