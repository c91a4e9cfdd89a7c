package matcher

import (
	"testing"

	"github.com/Veraticus/cinnamon/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLearnRuleFromTransaction(t *testing.T) {
	tests := []struct {
		name         string
		txn          model.Transaction
		wantKeywords []string
		wantNil      bool
	}{
		{
			name: "keywords from description tokens",
			txn: model.Transaction{
				Description: "TRADER JOES #55 OAKLAND",
				Category:    "Food & Dining",
				Subcategory: "Groceries",
			},
			wantKeywords: []string{"trader", "joes", "oakland"},
		},
		{
			name: "short tokens dropped",
			txn: model.Transaction{
				Description: "BP GAS 42",
				Category:    "Transportation",
			},
			wantKeywords: []string{"gas"},
		},
		{
			name: "duplicate tokens collapsed",
			txn: model.Transaction{
				Description: "TOLL TOLL BRIDGE",
				Category:    "Transportation",
			},
			wantKeywords: []string{"toll", "bridge"},
		},
		{
			name:    "uncategorized transaction learns nothing",
			txn:     model.Transaction{Description: "STARBUCKS"},
			wantNil: true,
		},
		{
			name: "no usable tokens",
			txn: model.Transaction{
				Description: "A1 B2",
				Category:    "Other",
			},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := LearnRuleFromTransaction(tt.txn)
			if tt.wantNil {
				assert.Nil(t, rule)
				return
			}

			require.NotNil(t, rule)
			assert.Equal(t, tt.txn.Category, rule.Category)
			assert.Equal(t, tt.txn.Subcategory, rule.Subcategory)
			assert.Equal(t, tt.wantKeywords, rule.Keywords)
			assert.Equal(t, defaultLearnedPriority, rule.Priority)
		})
	}
}

func TestMergeRules(t *testing.T) {
	existing := []model.KeywordRule{
		{Category: "Food & Dining", Subcategory: "Restaurants", Priority: 3, Keywords: []string{"pizza"}},
	}
	incoming := []model.KeywordRule{
		{Category: "Food & Dining", Subcategory: "Restaurants", Priority: 2, Keywords: []string{"pizza", "burger"}},
		{Category: "Transportation", Subcategory: "Parking", Priority: 5, Keywords: []string{"garage"}},
	}

	merged := MergeRules(existing, incoming)
	require.Len(t, merged, 2)

	// Same key: keyword union, higher priority kept.
	assert.Equal(t, []string{"pizza", "burger"}, merged[0].Keywords)
	assert.Equal(t, 3, merged[0].Priority)

	// New key appended.
	assert.Equal(t, "Transportation", merged[1].Category)
	assert.Equal(t, []string{"garage"}, merged[1].Keywords)
}

func TestMergeRules_DoesNotAliasInputs(t *testing.T) {
	existing := []model.KeywordRule{
		{Category: "Shopping", Priority: 1, Keywords: []string{"amazon"}},
	}
	merged := MergeRules(existing, []model.KeywordRule{
		{Category: "Shopping", Priority: 1, Keywords: []string{"ebay"}},
	})

	merged[0].Keywords[0] = "mutated"
	assert.Equal(t, []string{"amazon"}, existing[0].Keywords)
}

func TestMergeRules_PriorityUpgrades(t *testing.T) {
	merged := MergeRules(
		[]model.KeywordRule{{Category: "Travel", Priority: 2, Keywords: []string{"hotel"}}},
		[]model.KeywordRule{{Category: "Travel", Priority: 8, Keywords: []string{"hostel"}}},
	)
	require.Len(t, merged, 1)
	assert.Equal(t, 8, merged[0].Priority)
}

func TestDefaultRulesAlignWithDefaultTaxonomy(t *testing.T) {
	taxonomy := model.DefaultTaxonomy()
	for _, rule := range DefaultRules() {
		assert.True(t, taxonomy.Contains(rule.Category), "category %q missing from default taxonomy", rule.Category)
	}
}
