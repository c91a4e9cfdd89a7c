// Package engine orchestrates the categorization cascade: exact matching,
// pattern matching, and model prediction, in that fixed order.
package engine

import (
	"context"
	"log/slog"

	"github.com/Veraticus/cinnamon/internal/matcher"
	"github.com/Veraticus/cinnamon/internal/model"
)

// Phase identifies a stage of the cascade.
type Phase int

// Cascade phases, always attempted in ascending order.
const (
	PhaseExactMatch   Phase = 1
	PhasePatternMatch Phase = 2
	PhaseModelPredict Phase = 3
)

// PatternMethod identifies a sub-method of the pattern-matching phase.
type PatternMethod string

// Pattern-matching sub-methods, always attempted in the order keyword,
// fuzzy, tfidf.
const (
	PatternKeyword PatternMethod = "keyword"
	PatternFuzzy   PatternMethod = "fuzzy"
	PatternTFIDF   PatternMethod = "tfidf"
)

// Config holds tuning knobs for the matching strategies.
type Config struct {
	FuzzyThreshold float64
	TFIDFThreshold float64
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		FuzzyThreshold: matcher.DefaultFuzzyThreshold,
		TFIDFThreshold: matcher.DefaultTFIDFThreshold,
	}
}

// Options selects which phases and pattern sub-methods run for a
// categorization call. The order phases are listed in is irrelevant; the
// cascade order is fixed.
type Options struct {
	Progress       func(processed int)
	CustomRules    []model.KeywordRule
	Phases         []Phase
	PatternMethods []PatternMethod
}

// DefaultOptions enables every phase and every pattern sub-method.
func DefaultOptions() Options {
	return Options{
		Phases:         []Phase{PhaseExactMatch, PhasePatternMatch, PhaseModelPredict},
		PatternMethods: []PatternMethod{PatternKeyword, PatternFuzzy, PatternTFIDF},
	}
}

// Engine sequences the enabled matching strategies over a transaction
// batch. It performs no I/O and never mutates its input.
type Engine struct {
	predictor Predictor
	taxonomy  model.Taxonomy
	config    Config
}

// New creates an engine with the default configuration. The predictor may
// be nil when model prediction will never be enabled.
func New(taxonomy model.Taxonomy, predictor Predictor) *Engine {
	return NewWithConfig(taxonomy, predictor, DefaultConfig())
}

// NewWithConfig creates an engine with a custom configuration.
func NewWithConfig(taxonomy model.Taxonomy, predictor Predictor, config Config) *Engine {
	return &Engine{
		taxonomy:  taxonomy,
		predictor: predictor,
		config:    config,
	}
}

// step is one entry of the resolved cascade.
type step struct {
	matcher Matcher
	phase   Phase
}

// buildCascade resolves the enabled phases into an ordered strategy list.
// The fixed order 1 -> 2 (keyword -> fuzzy -> tfidf) -> 3 holds no matter
// how the options list them.
func (e *Engine) buildCascade(opts Options) []step {
	phases := make(map[Phase]bool, len(opts.Phases))
	for _, p := range opts.Phases {
		phases[p] = true
	}
	methods := make(map[PatternMethod]bool, len(opts.PatternMethods))
	for _, m := range opts.PatternMethods {
		methods[m] = true
	}

	var cascade []step
	if phases[PhaseExactMatch] {
		cascade = append(cascade, step{phase: PhaseExactMatch, matcher: matcher.NewExactMatcher()})
	}
	if phases[PhasePatternMatch] {
		if methods[PatternKeyword] {
			cascade = append(cascade, step{phase: PhasePatternMatch, matcher: matcher.NewKeywordMatcher(e.taxonomy, opts.CustomRules)})
		}
		if methods[PatternFuzzy] {
			cascade = append(cascade, step{phase: PhasePatternMatch, matcher: matcher.NewFuzzyMatcher(e.config.FuzzyThreshold)})
		}
		if methods[PatternTFIDF] {
			cascade = append(cascade, step{phase: PhasePatternMatch, matcher: matcher.NewTFIDFMatcher(e.config.TFIDFThreshold)})
		}
	}
	if phases[PhaseModelPredict] && e.predictor != nil {
		cascade = append(cascade, step{phase: PhaseModelPredict, matcher: &predictorMatcher{predictor: e.predictor}})
	}

	return cascade
}

// Categorize runs the cascade over the batch and returns a new transaction
// list of the same length and order. Transactions that already carry a
// category pass through untouched and double as the historical reference
// set for the whole run.
func (e *Engine) Categorize(ctx context.Context, txns []model.Transaction, opts Options) ([]model.Transaction, error) {
	cascade := e.buildCascade(opts)
	history := historyOf(txns)

	slog.Info("Starting categorization",
		"transactions", len(txns),
		"history", len(history),
		"strategies", len(cascade))

	out := make([]model.Transaction, len(txns))
	categorized := 0
	for i, txn := range txns {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		out[i] = txn
		if !txn.HasCategory() {
			if suggestion := e.suggest(ctx, txn, history, cascade); suggestion != nil {
				out[i] = applySuggestion(txn, suggestion)
				categorized++
			}
		}

		if opts.Progress != nil {
			opts.Progress(i + 1)
		}
	}

	slog.Info("Categorization complete",
		"transactions", len(txns),
		"newly_categorized", categorized)

	return out, nil
}

// suggest folds the cascade left to right and returns the first non-nil
// suggestion. An untrained model skips the prediction step; a prediction
// error is logged and treated as no suggestion.
func (e *Engine) suggest(ctx context.Context, txn model.Transaction, history []model.Transaction, cascade []step) *model.CategorySuggestion {
	for _, s := range cascade {
		if s.phase == PhaseModelPredict && !e.predictor.IsTrained() {
			slog.Debug("Skipping model prediction, model not trained", "transaction_id", txn.ID)
			continue
		}

		suggestion, err := s.matcher.Match(ctx, txn.Description, history)
		if err != nil {
			slog.Warn("Matcher failed, continuing cascade",
				"transaction_id", txn.ID,
				"method", s.matcher.Method(),
				"error", err)
			continue
		}
		if suggestion != nil {
			return suggestion
		}
	}
	return nil
}

// applySuggestion writes a suggestion into a fresh copy of the
// transaction, rescaling confidence from 0-100 to [0,1].
func applySuggestion(txn model.Transaction, suggestion *model.CategorySuggestion) model.Transaction {
	out := txn
	out.Category = suggestion.Category
	out.Subcategory = suggestion.Subcategory
	out.Confidence = clamp(suggestion.Confidence, 0, 100) / 100
	out.OriginalCategory = suggestion.Category
	out.IsManuallyEdited = false
	return out
}

// historyOf extracts the historical reference set: every transaction in
// the batch that already carries a category. It is computed once per run,
// so a transaction categorized during a run only becomes history for the
// next one.
func historyOf(txns []model.Transaction) []model.Transaction {
	var history []model.Transaction
	for _, txn := range txns {
		if txn.HasCategory() {
			history = append(history, txn)
		}
	}
	return history
}

func clamp(v, low, high float64) float64 {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

// predictorMatcher adapts a Predictor to the Matcher capability so the
// cascade stays a uniform strategy list.
type predictorMatcher struct {
	predictor Predictor
}

func (p *predictorMatcher) Method() model.SuggestionMethod {
	return model.MethodMLClassifier
}

func (p *predictorMatcher) Match(ctx context.Context, description string, _ []model.Transaction) (*model.CategorySuggestion, error) {
	return p.predictor.Predict(ctx, description)
}
