package model

import "sort"

// MaxLearnedSubcategories bounds how many subcategories a single unseen
// category may pick up from one batch of imported transactions. Noisy
// imports would otherwise grow the taxonomy without limit.
const MaxLearnedSubcategories = 5

// Taxonomy maps a category to its ordered list of permitted subcategories.
// The engine reads from it; it never owns its persistence.
type Taxonomy map[string][]string

// TaxonomyDiff records what Extend added relative to the original taxonomy.
type TaxonomyDiff struct {
	AddedSubcategories map[string][]string
	AddedCategories    []string
}

// Empty reports whether the diff contains no additions.
func (d TaxonomyDiff) Empty() bool {
	return len(d.AddedCategories) == 0 && len(d.AddedSubcategories) == 0
}

// Categories returns the category names in sorted order.
func (t Taxonomy) Categories() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Contains reports whether the category exists in the taxonomy.
func (t Taxonomy) Contains(category string) bool {
	_, ok := t[category]
	return ok
}

// ContainsSubcategory reports whether the subcategory is permitted for the category.
func (t Taxonomy) ContainsSubcategory(category, subcategory string) bool {
	for _, sub := range t[category] {
		if sub == subcategory {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the taxonomy.
func (t Taxonomy) Clone() Taxonomy {
	clone := make(Taxonomy, len(t))
	for category, subs := range t {
		clone[category] = append([]string(nil), subs...)
	}
	return clone
}

// Extend returns a new taxonomy that includes every category and
// subcategory observed on the given transactions, plus a diff of what was
// added. The receiver is never modified. Categories not previously in the
// taxonomy accept at most MaxLearnedSubcategories new subcategories.
func (t Taxonomy) Extend(txns []Transaction) (Taxonomy, TaxonomyDiff) {
	out := t.Clone()
	diff := TaxonomyDiff{AddedSubcategories: make(map[string][]string)}
	learned := make(map[string]int)

	for _, txn := range txns {
		if txn.Category == "" {
			continue
		}

		if !out.Contains(txn.Category) {
			out[txn.Category] = []string{}
			diff.AddedCategories = append(diff.AddedCategories, txn.Category)
			learned[txn.Category] = 0
		}

		if txn.Subcategory == "" || out.ContainsSubcategory(txn.Category, txn.Subcategory) {
			continue
		}

		if count, isNew := learned[txn.Category]; isNew {
			if count >= MaxLearnedSubcategories {
				continue
			}
			learned[txn.Category] = count + 1
		}

		out[txn.Category] = append(out[txn.Category], txn.Subcategory)
		diff.AddedSubcategories[txn.Category] = append(diff.AddedSubcategories[txn.Category], txn.Subcategory)
	}

	if len(diff.AddedSubcategories) == 0 {
		diff.AddedSubcategories = nil
	}

	return out, diff
}

// DefaultTaxonomy returns the built-in category taxonomy used when no
// taxonomy has been persisted yet.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		"Food & Dining":     {"Groceries", "Restaurants", "Coffee Shops", "Delivery"},
		"Transportation":    {"Ride Sharing", "Public Transit", "Gas & Fuel", "Parking"},
		"Shopping":          {"Online", "Clothing", "Electronics", "Home"},
		"Entertainment":     {"Streaming", "Movies", "Music", "Games"},
		"Bills & Utilities": {"Electricity", "Water", "Internet", "Mobile Phone"},
		"Health & Fitness":  {"Pharmacy", "Doctor", "Gym"},
		"Travel":            {"Air Travel", "Lodging", "Rental Car"},
		"Income":            {"Salary", "Interest", "Refunds"},
		"Fees & Charges":    {"Bank Fees", "Service Fees"},
		"Cash & ATM":        {},
		"Other":             {},
	}
}
