package model

// KeywordRule maps lexical tokens to a category/subcategory pair.
// Keywords are matched as whole words; a trailing '*' marks a prefix
// wildcard. Rules with the same (category, subcategory) pair are considered
// the same rule for merging purposes.
type KeywordRule struct {
	Category    string
	Subcategory string
	Keywords    []string
	Priority    int
}

// Key returns the merge key for the rule. Two rules with equal keys are
// merged by unioning their keyword sets.
func (r KeywordRule) Key() string {
	return r.Category + "\x00" + r.Subcategory
}
