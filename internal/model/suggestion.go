package model

// SuggestionMethod identifies which matching strategy produced a suggestion.
type SuggestionMethod string

// Suggestion method constants.
const (
	MethodExactMatch      SuggestionMethod = "exact-match"
	MethodFuzzyMatch      SuggestionMethod = "fuzzy-match"
	MethodKeywordRule     SuggestionMethod = "keyword-rule"
	MethodTFIDFSimilarity SuggestionMethod = "tfidf-similarity"
	MethodMLClassifier    SuggestionMethod = "ml-classifier"
)

// CategorySuggestion is the transient output of a single matcher.
// Confidence is on the raw 0-100 scale; the orchestrator rescales it to
// [0,1] when writing it onto a Transaction.
type CategorySuggestion struct {
	Category    string
	Subcategory string
	Reason      string
	Method      SuggestionMethod
	Confidence  float64
}
