package matcher

import (
	"context"
	"fmt"
	"math"

	"github.com/Veraticus/cinnamon/internal/model"
)

// ExactMatcher finds historical transactions with an identical normalized
// description. It is side-effect-free.
type ExactMatcher struct{}

// NewExactMatcher creates a new exact description matcher.
func NewExactMatcher() *ExactMatcher {
	return &ExactMatcher{}
}

// Method returns the suggestion method for this matcher.
func (m *ExactMatcher) Method() model.SuggestionMethod {
	return model.MethodExactMatch
}

// Match looks up the description among the historical reference set.
// Manually edited matches outvote automatic ones; among the remaining
// candidates the most frequent category wins.
func (m *ExactMatcher) Match(_ context.Context, description string, history []model.Transaction) (*model.CategorySuggestion, error) {
	normalized := Normalize(description)
	if normalized == "" {
		return nil, nil
	}

	var matches []model.Transaction
	for _, h := range history {
		if Normalize(h.Description) == normalized {
			matches = append(matches, h)
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}

	// A category a human confirmed beats any number of automatic ones.
	pool := matches
	var manual []model.Transaction
	for _, match := range matches {
		if match.IsManuallyEdited {
			manual = append(manual, match)
		}
	}
	if len(manual) > 0 {
		pool = manual
	}

	winner, winnerVotes := majorityCategory(pool)

	subcategory := ""
	for _, match := range pool {
		if match.Category == winner {
			subcategory = match.Subcategory
			break
		}
	}

	agreement := float64(winnerVotes) / float64(len(pool))
	count := len(pool)
	if count > 3 {
		count = 3
	}
	confidence := math.Min(100, 85*agreement+5*float64(count))

	return &model.CategorySuggestion{
		Category:    winner,
		Subcategory: subcategory,
		Confidence:  confidence,
		Reason:      fmt.Sprintf("identical to %d previous transaction(s)", len(matches)),
		Method:      model.MethodExactMatch,
	}, nil
}

// majorityCategory returns the most frequent category in the pool.
// Frequency ties go to the category encountered first.
func majorityCategory(pool []model.Transaction) (string, int) {
	votes := make(map[string]int)
	var order []string
	for _, txn := range pool {
		if votes[txn.Category] == 0 {
			order = append(order, txn.Category)
		}
		votes[txn.Category]++
	}

	winner := order[0]
	for _, category := range order {
		if votes[category] > votes[winner] {
			winner = category
		}
	}
	return winner, votes[winner]
}
