package matcher

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Veraticus/cinnamon/internal/model"
)

// Keyword confidence scoring. An exact whole-word keyword is worth more
// than a wildcard prefix hit, and a multi-token keyword is worth more than
// a single token.
const (
	keywordBaseConfidence = 60.0
	exactWordBonus        = 15.0
	multiTokenBonus       = 20.0
)

// KeywordMatcher evaluates an ordered keyword rule list against a
// description. Custom rules are evaluated before the built-in defaults;
// within that order, higher priority wins.
type KeywordMatcher struct {
	taxonomy model.Taxonomy
	rules    []model.KeywordRule
}

// NewKeywordMatcher creates a keyword matcher from custom rules plus the
// built-in defaults.
func NewKeywordMatcher(taxonomy model.Taxonomy, customRules []model.KeywordRule) *KeywordMatcher {
	rules := make([]model.KeywordRule, 0, len(customRules)+len(defaultRules))
	rules = append(rules, customRules...)
	rules = append(rules, defaultRules...)

	// Stable sort keeps custom rules ahead of defaults at equal priority.
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority > rules[j].Priority
	})

	return &KeywordMatcher{
		taxonomy: taxonomy,
		rules:    rules,
	}
}

// Method returns the suggestion method for this matcher.
func (m *KeywordMatcher) Method() model.SuggestionMethod {
	return model.MethodKeywordRule
}

// Match returns the first rule whose keywords hit the description.
func (m *KeywordMatcher) Match(_ context.Context, description string, _ []model.Transaction) (*model.CategorySuggestion, error) {
	if Normalize(description) == "" {
		return nil, nil
	}

	tokens := Tokenize(description)
	padded := " " + strings.Join(tokens, " ") + " "

	for _, rule := range m.rules {
		for _, keyword := range rule.Keywords {
			if !matchKeyword(padded, tokens, keyword) {
				continue
			}

			if !m.taxonomy.Contains(rule.Category) {
				// Unknown categories pass through unvalidated.
				slog.Debug("keyword rule category not in taxonomy",
					"category", rule.Category,
					"keyword", keyword)
			}

			return &model.CategorySuggestion{
				Category:    rule.Category,
				Subcategory: rule.Subcategory,
				Confidence:  keywordConfidence(keyword),
				Reason:      fmt.Sprintf("matched keyword %q", keyword),
				Method:      model.MethodKeywordRule,
			}, nil
		}
	}

	return nil, nil
}

// matchKeyword checks a single keyword against the tokenized description.
// A trailing '*' makes the keyword a prefix wildcard over individual
// tokens; anything else must appear as a whole word (or whole word
// sequence) in the description.
func matchKeyword(padded string, tokens []string, keyword string) bool {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return false
	}

	if strings.HasSuffix(keyword, "*") {
		prefix := strings.TrimSuffix(keyword, "*")
		if prefix == "" {
			return false
		}
		for _, token := range tokens {
			if strings.HasPrefix(token, prefix) {
				return true
			}
		}
		return false
	}

	keywordTokens := Tokenize(keyword)
	if len(keywordTokens) == 0 {
		return false
	}
	return strings.Contains(padded, " "+strings.Join(keywordTokens, " ")+" ")
}

// keywordConfidence scores a keyword hit on the 0-100 scale.
func keywordConfidence(keyword string) float64 {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	confidence := keywordBaseConfidence

	wildcard := strings.HasSuffix(keyword, "*")
	if !wildcard {
		confidence += exactWordBonus
	}
	if len(Tokenize(strings.TrimSuffix(keyword, "*"))) > 1 {
		confidence += multiTokenBonus
	}

	return clampConfidence(confidence)
}
