package engine

import (
	"context"

	"github.com/Veraticus/cinnamon/internal/model"
)

// Matcher is the single match capability every cascade strategy exposes.
// A nil suggestion with a nil error means no match.
type Matcher interface {
	Method() model.SuggestionMethod
	Match(ctx context.Context, description string, history []model.Transaction) (*model.CategorySuggestion, error)
}

// Predictor is the trained-model capability consumed by the final phase.
// Implementations must be safe for concurrent read-only inference.
type Predictor interface {
	IsTrained() bool
	Predict(ctx context.Context, description string) (*model.CategorySuggestion, error)
}
