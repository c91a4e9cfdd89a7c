package matcher

import (
	"context"
	"testing"

	"github.com/Veraticus/cinnamon/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labeledTxn(description, category, subcategory string, manual bool) model.Transaction {
	return model.Transaction{
		Description:      description,
		Category:         category,
		Subcategory:      subcategory,
		IsManuallyEdited: manual,
	}
}

func TestExactMatcher_Match(t *testing.T) {
	tests := []struct {
		name            string
		description     string
		wantCategory    string
		wantSubcategory string
		history         []model.Transaction
		wantMatch       bool
	}{
		{
			name:        "single history hit",
			description: "STARBUCKS STORE #1234",
			history: []model.Transaction{
				labeledTxn("STARBUCKS STORE #1234", "Food & Dining", "Coffee Shops", false),
			},
			wantMatch:       true,
			wantCategory:    "Food & Dining",
			wantSubcategory: "Coffee Shops",
		},
		{
			name:        "case and whitespace insensitive",
			description: "  starbucks   store #1234 ",
			history: []model.Transaction{
				labeledTxn("STARBUCKS STORE #1234", "Food & Dining", "Coffee Shops", false),
			},
			wantMatch:    true,
			wantCategory: "Food & Dining",
		},
		{
			name:        "no identical description",
			description: "STARBUCKS STORE #9999",
			history: []model.Transaction{
				labeledTxn("STARBUCKS STORE #1234", "Food & Dining", "Coffee Shops", false),
			},
			wantMatch: false,
		},
		{
			name:        "majority category wins",
			description: "AMAZON MKTPLACE",
			history: []model.Transaction{
				labeledTxn("AMAZON MKTPLACE", "Shopping", "Online", false),
				labeledTxn("AMAZON MKTPLACE", "Shopping", "Online", false),
				labeledTxn("AMAZON MKTPLACE", "Entertainment", "Games", false),
			},
			wantMatch:       true,
			wantCategory:    "Shopping",
			wantSubcategory: "Online",
		},
		{
			name:        "manual edit outvotes automatic majority",
			description: "AMAZON MKTPLACE",
			history: []model.Transaction{
				labeledTxn("AMAZON MKTPLACE", "Shopping", "Online", false),
				labeledTxn("AMAZON MKTPLACE", "Shopping", "Online", false),
				labeledTxn("AMAZON MKTPLACE", "Entertainment", "Games", true),
			},
			wantMatch:    true,
			wantCategory: "Entertainment",
		},
		{
			name:        "frequency tie keeps first encountered",
			description: "COSTCO",
			history: []model.Transaction{
				labeledTxn("COSTCO", "Shopping", "Home", false),
				labeledTxn("COSTCO", "Food & Dining", "Groceries", false),
			},
			wantMatch:    true,
			wantCategory: "Shopping",
		},
		{
			name:        "empty description never matches",
			description: "   ",
			history: []model.Transaction{
				labeledTxn("", "Other", "", false),
			},
			wantMatch: false,
		},
		{
			name:        "empty history",
			description: "STARBUCKS",
			wantMatch:   false,
		},
	}

	m := NewExactMatcher()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			suggestion, err := m.Match(context.Background(), tt.description, tt.history)
			require.NoError(t, err)

			if !tt.wantMatch {
				assert.Nil(t, suggestion)
				return
			}

			require.NotNil(t, suggestion)
			assert.Equal(t, tt.wantCategory, suggestion.Category)
			if tt.wantSubcategory != "" {
				assert.Equal(t, tt.wantSubcategory, suggestion.Subcategory)
			}
			assert.Equal(t, model.MethodExactMatch, suggestion.Method)
			assert.GreaterOrEqual(t, suggestion.Confidence, 0.0)
			assert.LessOrEqual(t, suggestion.Confidence, 100.0)
		})
	}
}

func TestExactMatcher_ConfidenceGrowsWithAgreement(t *testing.T) {
	m := NewExactMatcher()
	ctx := context.Background()

	one, err := m.Match(ctx, "NETFLIX.COM", []model.Transaction{
		labeledTxn("NETFLIX.COM", "Entertainment", "Streaming", false),
	})
	require.NoError(t, err)
	require.NotNil(t, one)

	three, err := m.Match(ctx, "NETFLIX.COM", []model.Transaction{
		labeledTxn("NETFLIX.COM", "Entertainment", "Streaming", false),
		labeledTxn("NETFLIX.COM", "Entertainment", "Streaming", false),
		labeledTxn("NETFLIX.COM", "Entertainment", "Streaming", false),
	})
	require.NoError(t, err)
	require.NotNil(t, three)

	split, err := m.Match(ctx, "NETFLIX.COM", []model.Transaction{
		labeledTxn("NETFLIX.COM", "Entertainment", "Streaming", false),
		labeledTxn("NETFLIX.COM", "Entertainment", "Streaming", false),
		labeledTxn("NETFLIX.COM", "Bills & Utilities", "Internet", false),
	})
	require.NoError(t, err)
	require.NotNil(t, split)

	// More unanimous matches raise confidence; disagreement lowers it.
	assert.Greater(t, three.Confidence, one.Confidence)
	assert.Greater(t, three.Confidence, split.Confidence)
	assert.Equal(t, 100.0, three.Confidence)
}
