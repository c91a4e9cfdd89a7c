package matcher

import (
	"context"
	"testing"

	"github.com/Veraticus/cinnamon/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuzzyMatcher_Match(t *testing.T) {
	history := []model.Transaction{
		labeledTxn("STARBUCKS STORE #1234", "Food & Dining", "Coffee Shops", false),
		labeledTxn("SHELL OIL 57442", "Transportation", "Gas & Fuel", false),
	}

	tests := []struct {
		name         string
		description  string
		wantCategory string
		threshold    float64
		wantMatch    bool
	}{
		{
			name:         "near identical description",
			description:  "STARBUCKS STORE #1235",
			threshold:    DefaultFuzzyThreshold,
			wantMatch:    true,
			wantCategory: "Food & Dining",
		},
		{
			name:        "unrelated description below threshold",
			description: "WHOLE FOODS MARKET",
			threshold:   DefaultFuzzyThreshold,
			wantMatch:   false,
		},
		{
			name:         "lower threshold admits weaker hits",
			description:  "SHELL 57",
			threshold:    0.3,
			wantMatch:    true,
			wantCategory: "Transportation",
		},
		{
			name:        "empty description",
			description: "",
			threshold:   DefaultFuzzyThreshold,
			wantMatch:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewFuzzyMatcher(tt.threshold)
			suggestion, err := m.Match(context.Background(), tt.description, history)
			require.NoError(t, err)

			if !tt.wantMatch {
				assert.Nil(t, suggestion)
				return
			}

			require.NotNil(t, suggestion)
			assert.Equal(t, tt.wantCategory, suggestion.Category)
			assert.Equal(t, model.MethodFuzzyMatch, suggestion.Method)
			assert.GreaterOrEqual(t, suggestion.Confidence, tt.threshold*100)
			assert.LessOrEqual(t, suggestion.Confidence, 100.0)
		})
	}
}

func TestFuzzyMatcher_TieKeepsFirst(t *testing.T) {
	// Two candidates at the identical edit distance from the query.
	history := []model.Transaction{
		labeledTxn("MARKET A", "Food & Dining", "Groceries", false),
		labeledTxn("MARKET B", "Shopping", "Home", false),
	}

	m := NewFuzzyMatcher(0.5)
	suggestion, err := m.Match(context.Background(), "MARKET C", history)
	require.NoError(t, err)
	require.NotNil(t, suggestion)
	assert.Equal(t, "Food & Dining", suggestion.Category)
}

func TestFuzzyMatcher_EmptyHistory(t *testing.T) {
	m := NewFuzzyMatcher(DefaultFuzzyThreshold)
	suggestion, err := m.Match(context.Background(), "ANYTHING", nil)
	require.NoError(t, err)
	assert.Nil(t, suggestion)
}

func TestNewFuzzyMatcher_ThresholdFallback(t *testing.T) {
	m := NewFuzzyMatcher(0)
	assert.Equal(t, DefaultFuzzyThreshold, m.threshold)

	m = NewFuzzyMatcher(-1)
	assert.Equal(t, DefaultFuzzyThreshold, m.threshold)
}

func TestSimilarityRatio(t *testing.T) {
	assert.Equal(t, 1.0, similarityRatio("same", "same"))
	assert.Equal(t, 0.0, similarityRatio("", "abcd"))
	assert.InDelta(t, 0.75, similarityRatio("abcd", "abcx"), 1e-9)

	// Symmetric.
	assert.Equal(t, similarityRatio("kitten", "sitting"), similarityRatio("sitting", "kitten"))
}
