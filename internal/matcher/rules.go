package matcher

import (
	"github.com/Veraticus/cinnamon/internal/model"
)

// Rules learned from transactions get a middling priority so that
// hand-written custom rules can outrank them.
const defaultLearnedPriority = 5

// minKeywordLength filters out stop-short tokens when learning rules.
const minKeywordLength = 3

// defaultRules are the built-in keyword rules, evaluated after any custom
// rules. Categories line up with model.DefaultTaxonomy.
var defaultRules = []model.KeywordRule{
	{Category: "Food & Dining", Subcategory: "Groceries", Priority: 10,
		Keywords: []string{"grocery", "supermarket", "whole foods", "trader joe*", "safeway", "kroger", "aldi", "lidl", "migros", "coop"}},
	{Category: "Food & Dining", Subcategory: "Coffee Shops", Priority: 10,
		Keywords: []string{"starbucks", "coffee", "espresso", "cafe"}},
	{Category: "Food & Dining", Subcategory: "Restaurants", Priority: 9,
		Keywords: []string{"restaurant", "pizzeria", "pizza", "sushi", "burger", "mcdonald*", "chipotle", "taqueria"}},
	{Category: "Food & Dining", Subcategory: "Delivery", Priority: 9,
		Keywords: []string{"doordash", "grubhub", "uber eats", "deliveroo"}},
	{Category: "Transportation", Subcategory: "Ride Sharing", Priority: 10,
		Keywords: []string{"uber", "lyft", "taxi"}},
	{Category: "Transportation", Subcategory: "Gas & Fuel", Priority: 9,
		Keywords: []string{"shell", "chevron", "exxon", "gas station", "fuel"}},
	{Category: "Transportation", Subcategory: "Public Transit", Priority: 8,
		Keywords: []string{"transit", "metro", "amtrak", "railway"}},
	{Category: "Shopping", Subcategory: "Online", Priority: 9,
		Keywords: []string{"amazon", "ebay", "etsy", "aliexpress"}},
	{Category: "Entertainment", Subcategory: "Streaming", Priority: 10,
		Keywords: []string{"netflix", "spotify", "hulu", "disney plus", "hbo"}},
	{Category: "Bills & Utilities", Subcategory: "Internet", Priority: 8,
		Keywords: []string{"comcast", "internet", "broadband"}},
	{Category: "Bills & Utilities", Subcategory: "Mobile Phone", Priority: 8,
		Keywords: []string{"verizon", "tmobile", "vodafone", "wireless"}},
	{Category: "Bills & Utilities", Subcategory: "Electricity", Priority: 7,
		Keywords: []string{"electric*", "utility", "energy"}},
	{Category: "Health & Fitness", Subcategory: "Pharmacy", Priority: 9,
		Keywords: []string{"pharmacy", "walgreens", "cvs"}},
	{Category: "Health & Fitness", Subcategory: "Gym", Priority: 8,
		Keywords: []string{"gym", "fitness", "peloton"}},
	{Category: "Travel", Subcategory: "Lodging", Priority: 9,
		Keywords: []string{"hotel", "airbnb", "marriott", "hilton"}},
	{Category: "Travel", Subcategory: "Air Travel", Priority: 9,
		Keywords: []string{"airline*", "airways", "delta air", "lufthansa"}},
	{Category: "Income", Subcategory: "Salary", Priority: 10,
		Keywords: []string{"payroll", "salary", "direct deposit", "paycheck"}},
	{Category: "Fees & Charges", Subcategory: "Bank Fees", Priority: 7,
		Keywords: []string{"overdraft", "service charge", "monthly fee", "atm fee"}},
	{Category: "Cash & ATM", Priority: 6,
		Keywords: []string{"atm", "cash withdrawal", "withdrawal"}},
}

// DefaultRules returns a copy of the built-in keyword rules.
func DefaultRules() []model.KeywordRule {
	rules := make([]model.KeywordRule, len(defaultRules))
	copy(rules, defaultRules)
	return rules
}

// LearnRuleFromTransaction derives a keyword rule from a labeled
// transaction: every token of the description long enough to carry signal
// becomes a keyword. Returns nil when the transaction is unlabeled or no
// usable tokens remain.
func LearnRuleFromTransaction(txn model.Transaction) *model.KeywordRule {
	if !txn.HasCategory() {
		return nil
	}

	seen := make(map[string]bool)
	var keywords []string
	for _, token := range Tokenize(txn.Description) {
		if len([]rune(token)) < minKeywordLength || seen[token] {
			continue
		}
		seen[token] = true
		keywords = append(keywords, token)
	}
	if len(keywords) == 0 {
		return nil
	}

	return &model.KeywordRule{
		Category:    txn.Category,
		Subcategory: txn.Subcategory,
		Keywords:    keywords,
		Priority:    defaultLearnedPriority,
	}
}

// MergeRules merges incoming rules into existing ones. Rules sharing a
// (category, subcategory) key have their keyword sets unioned and take the
// higher of the two priorities; everything else is concatenated in order.
func MergeRules(existing, incoming []model.KeywordRule) []model.KeywordRule {
	merged := make([]model.KeywordRule, len(existing))
	index := make(map[string]int, len(existing))
	for i, rule := range existing {
		merged[i] = rule
		merged[i].Keywords = append([]string(nil), rule.Keywords...)
		index[rule.Key()] = i
	}

	for _, rule := range incoming {
		i, ok := index[rule.Key()]
		if !ok {
			added := rule
			added.Keywords = append([]string(nil), rule.Keywords...)
			index[rule.Key()] = len(merged)
			merged = append(merged, added)
			continue
		}

		merged[i].Keywords = unionKeywords(merged[i].Keywords, rule.Keywords)
		if rule.Priority > merged[i].Priority {
			merged[i].Priority = rule.Priority
		}
	}

	return merged
}

func unionKeywords(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	out := make([]string, 0, len(a)+len(b))
	for _, kw := range a {
		if !seen[kw] {
			seen[kw] = true
			out = append(out, kw)
		}
	}
	for _, kw := range b {
		if !seen[kw] {
			seen[kw] = true
			out = append(out, kw)
		}
	}
	return out
}
