package matcher

import (
	"context"
	"fmt"

	"github.com/Veraticus/cinnamon/internal/model"
	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// DefaultFuzzyThreshold is the minimum similarity ratio for a fuzzy match.
const DefaultFuzzyThreshold = 0.8

// FuzzyMatcher scores the description against every historical description
// with a normalized edit-distance ratio and keeps the single best hit.
type FuzzyMatcher struct {
	threshold float64
}

// NewFuzzyMatcher creates a fuzzy matcher. A non-positive threshold falls
// back to DefaultFuzzyThreshold.
func NewFuzzyMatcher(threshold float64) *FuzzyMatcher {
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}
	return &FuzzyMatcher{threshold: threshold}
}

// Method returns the suggestion method for this matcher.
func (m *FuzzyMatcher) Method() model.SuggestionMethod {
	return model.MethodFuzzyMatch
}

// Match returns the best-scoring historical transaction above the
// threshold. Ties keep the first historical transaction in input order.
func (m *FuzzyMatcher) Match(_ context.Context, description string, history []model.Transaction) (*model.CategorySuggestion, error) {
	normalized := Normalize(description)
	if normalized == "" {
		return nil, nil
	}

	var best *model.Transaction
	bestScore := 0.0
	for i := range history {
		candidate := Normalize(history[i].Description)
		if candidate == "" {
			continue
		}
		if score := similarityRatio(normalized, candidate); score > bestScore {
			bestScore = score
			best = &history[i]
		}
	}

	if best == nil || bestScore < m.threshold {
		return nil, nil
	}

	return &model.CategorySuggestion{
		Category:    best.Category,
		Subcategory: best.Subcategory,
		Confidence:  clampConfidence(bestScore * 100),
		Reason:      fmt.Sprintf("%.0f%% similar to %q", bestScore*100, best.Description),
		Method:      model.MethodFuzzyMatch,
	}, nil
}

// similarityRatio converts Levenshtein distance into a [0,1] ratio.
func similarityRatio(a, b string) float64 {
	if a == b {
		return 1
	}

	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 0
	}

	distance := levenshtein.DistanceForStrings(ra, rb, levenshtein.DefaultOptions)
	return 1 - float64(distance)/float64(longest)
}
