package matcher

import (
	"context"
	"fmt"
	"math"

	"github.com/Veraticus/cinnamon/internal/model"
)

// DefaultTFIDFThreshold is the minimum cosine similarity for a TF-IDF match.
const DefaultTFIDFThreshold = 0.3

// TFIDFMatcher vectorizes the historical corpus with term-frequency /
// inverse-document-frequency weights and ranks historical transactions by
// cosine similarity to the query description.
//
// The vector space is rebuilt on every call from the currently available
// history. Reference sets are small enough for that to be cheap; a caller
// with a large corpus should cache the index keyed by a corpus fingerprint.
type TFIDFMatcher struct {
	threshold float64
}

// NewTFIDFMatcher creates a TF-IDF matcher. A non-positive threshold falls
// back to DefaultTFIDFThreshold.
func NewTFIDFMatcher(threshold float64) *TFIDFMatcher {
	if threshold <= 0 {
		threshold = DefaultTFIDFThreshold
	}
	return &TFIDFMatcher{threshold: threshold}
}

// Method returns the suggestion method for this matcher.
func (m *TFIDFMatcher) Method() model.SuggestionMethod {
	return model.MethodTFIDFSimilarity
}

// Match vectorizes the query with the corpus vocabulary and returns the
// most similar historical transaction above the threshold. Query tokens
// outside the vocabulary contribute zero weight.
func (m *TFIDFMatcher) Match(_ context.Context, description string, history []model.Transaction) (*model.CategorySuggestion, error) {
	queryTokens := Tokenize(description)
	if len(queryTokens) == 0 {
		return nil, nil
	}

	type document struct {
		txn    *model.Transaction
		tokens []string
	}
	var docs []document
	for i := range history {
		tokens := Tokenize(history[i].Description)
		if len(tokens) == 0 {
			continue
		}
		docs = append(docs, document{txn: &history[i], tokens: tokens})
	}
	if len(docs) == 0 {
		return nil, nil
	}

	// Smoothed inverse document frequency over the historical corpus.
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]bool, len(doc.tokens))
		for _, token := range doc.tokens {
			if !seen[token] {
				seen[token] = true
				df[token]++
			}
		}
	}
	n := float64(len(docs))
	idf := make(map[string]float64, len(df))
	for term, count := range df {
		idf[term] = math.Log((1+n)/float64(1+count)) + 1
	}

	queryVec := vectorize(queryTokens, idf)
	if len(queryVec) == 0 {
		return nil, nil
	}

	var best *model.Transaction
	bestScore := 0.0
	for _, doc := range docs {
		if score := cosineSimilarity(queryVec, vectorize(doc.tokens, idf)); score > bestScore {
			bestScore = score
			best = doc.txn
		}
	}

	if best == nil || bestScore < m.threshold {
		return nil, nil
	}

	return &model.CategorySuggestion{
		Category:    best.Category,
		Subcategory: best.Subcategory,
		Confidence:  clampConfidence(bestScore * 100),
		Reason:      fmt.Sprintf("cosine similarity %.2f to %q", bestScore, best.Description),
		Method:      model.MethodTFIDFSimilarity,
	}, nil
}

// vectorize builds a sparse TF-IDF vector. Terms missing from the
// vocabulary are dropped.
func vectorize(tokens []string, idf map[string]float64) map[string]float64 {
	counts := make(map[string]int, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}

	vec := make(map[string]float64, len(counts))
	total := float64(len(tokens))
	for term, count := range counts {
		weight, ok := idf[term]
		if !ok {
			continue
		}
		vec[term] = float64(count) / total * weight
	}
	return vec
}

func cosineSimilarity(a, b map[string]float64) float64 {
	var dot, normA, normB float64
	for term, weight := range a {
		normA += weight * weight
		if other, ok := b[term]; ok {
			dot += weight * other
		}
	}
	for _, weight := range b {
		normB += weight * weight
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
