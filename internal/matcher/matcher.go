// Package matcher implements the matching strategies that make up the
// categorization cascade: exact description lookup, keyword rules, fuzzy
// string similarity, and TF-IDF cosine similarity.
package matcher

import (
	"context"
	"strings"
	"unicode"

	"github.com/Veraticus/cinnamon/internal/model"
)

// Matcher is the single capability shared by every matching strategy.
// A nil suggestion with a nil error means the strategy found no match;
// malformed input (an empty description) is handled the same way.
type Matcher interface {
	Method() model.SuggestionMethod
	Match(ctx context.Context, description string, history []model.Transaction) (*model.CategorySuggestion, error)
}

// Normalize case-folds a description and collapses interior whitespace.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Tokenize splits a description into lowercase alphanumeric tokens.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func clampConfidence(confidence float64) float64 {
	if confidence < 0 {
		return 0
	}
	if confidence > 100 {
		return 100
	}
	return confidence
}
