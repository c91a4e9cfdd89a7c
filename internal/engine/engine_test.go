package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/cinnamon/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubPredictor is a canned Predictor for cascade tests.
type stubPredictor struct {
	suggestion *model.CategorySuggestion
	err        error
	trained    bool
	calls      int
}

func (p *stubPredictor) IsTrained() bool { return p.trained }

func (p *stubPredictor) Predict(_ context.Context, _ string) (*model.CategorySuggestion, error) {
	p.calls++
	return p.suggestion, p.err
}

func uncategorized(id, description string) model.Transaction {
	return model.Transaction{
		ID:          id,
		Date:        time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		Description: description,
		Amount:      -12.50,
		Currency:    "USD",
	}
}

func categorized(id, description, category, subcategory string) model.Transaction {
	txn := uncategorized(id, description)
	txn.Category = category
	txn.Subcategory = subcategory
	return txn
}

func modelSuggestion(category string) *model.CategorySuggestion {
	return &model.CategorySuggestion{
		Category:   category,
		Confidence: 90,
		Method:     model.MethodMLClassifier,
		Reason:     "classifier probability 0.90",
	}
}

func TestEngine_Categorize_ExactBeatsLaterPhases(t *testing.T) {
	predictor := &stubPredictor{trained: true, suggestion: modelSuggestion("Other")}
	eng := New(model.DefaultTaxonomy(), predictor)

	batch := []model.Transaction{
		categorized("t1", "STARBUCKS STORE #1234", "Food & Dining", "Coffee Shops"),
		uncategorized("t2", "STARBUCKS STORE #1234"),
	}

	out, err := eng.Categorize(context.Background(), batch, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, "Food & Dining", out[1].Category)
	assert.Equal(t, "Coffee Shops", out[1].Subcategory)
	assert.Zero(t, predictor.calls, "exact match must short-circuit the cascade")
}

func TestEngine_Categorize_PhaseOrderIsFixed(t *testing.T) {
	predictor := &stubPredictor{trained: true, suggestion: modelSuggestion("Other")}
	eng := New(model.DefaultTaxonomy(), predictor)

	batch := []model.Transaction{
		categorized("t1", "STARBUCKS STORE #1234", "Food & Dining", "Coffee Shops"),
		uncategorized("t2", "STARBUCKS STORE #1234"),
	}

	// Supplying the phases backwards changes nothing.
	opts := DefaultOptions()
	opts.Phases = []Phase{PhaseModelPredict, PhasePatternMatch, PhaseExactMatch}
	opts.PatternMethods = []PatternMethod{PatternTFIDF, PatternFuzzy, PatternKeyword}

	out, err := eng.Categorize(context.Background(), batch, opts)
	require.NoError(t, err)
	assert.Equal(t, "Food & Dining", out[1].Category)
	assert.Zero(t, predictor.calls)
}

func TestEngine_Categorize_FallsThroughToModel(t *testing.T) {
	predictor := &stubPredictor{trained: true, suggestion: modelSuggestion("Other")}
	eng := New(model.DefaultTaxonomy(), predictor)

	batch := []model.Transaction{uncategorized("t1", "ZGLORB QUUX 77")}

	out, err := eng.Categorize(context.Background(), batch, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "Other", out[0].Category)
	assert.Equal(t, 1, predictor.calls)
	assert.InDelta(t, 0.9, out[0].Confidence, 1e-9)
	assert.Equal(t, "Other", out[0].OriginalCategory)
	assert.False(t, out[0].IsManuallyEdited)
}

func TestEngine_Categorize_UntrainedModelSkipped(t *testing.T) {
	predictor := &stubPredictor{trained: false, suggestion: modelSuggestion("Other")}
	eng := New(model.DefaultTaxonomy(), predictor)

	batch := []model.Transaction{uncategorized("t1", "ZGLORB QUUX 77")}

	out, err := eng.Categorize(context.Background(), batch, DefaultOptions())
	require.NoError(t, err)

	assert.False(t, out[0].HasCategory())
	assert.Zero(t, predictor.calls)
}

func TestEngine_Categorize_PredictionErrorSwallowed(t *testing.T) {
	predictor := &stubPredictor{trained: true, err: errors.New("model exploded")}
	eng := New(model.DefaultTaxonomy(), predictor)

	batch := []model.Transaction{uncategorized("t1", "ZGLORB QUUX 77")}

	out, err := eng.Categorize(context.Background(), batch, DefaultOptions())
	require.NoError(t, err)
	assert.False(t, out[0].HasCategory())
	assert.Equal(t, 1, predictor.calls)
}

func TestEngine_Categorize_NilPredictor(t *testing.T) {
	eng := New(model.DefaultTaxonomy(), nil)

	batch := []model.Transaction{uncategorized("t1", "ZGLORB QUUX 77")}

	out, err := eng.Categorize(context.Background(), batch, DefaultOptions())
	require.NoError(t, err)
	assert.False(t, out[0].HasCategory())
}

func TestEngine_Categorize_DoesNotMutateInput(t *testing.T) {
	eng := New(model.DefaultTaxonomy(), nil)

	batch := []model.Transaction{
		categorized("t1", "STARBUCKS STORE #1234", "Food & Dining", "Coffee Shops"),
		uncategorized("t2", "STARBUCKS STORE #1234"),
	}

	out, err := eng.Categorize(context.Background(), batch, DefaultOptions())
	require.NoError(t, err)

	assert.True(t, out[1].HasCategory())
	assert.False(t, batch[1].HasCategory(), "input batch must stay untouched")
}

func TestEngine_Categorize_AlreadyCategorizedPassThrough(t *testing.T) {
	eng := New(model.DefaultTaxonomy(), nil)

	original := categorized("t1", "STARBUCKS", "Travel", "Lodging")
	original.Confidence = 0.42
	original.IsManuallyEdited = true

	out, err := eng.Categorize(context.Background(), []model.Transaction{original}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, original, out[0])
}

func TestEngine_Categorize_HistoryFixedPerRun(t *testing.T) {
	eng := New(model.DefaultTaxonomy(), nil)
	ctx := context.Background()

	// Only pattern-free exact matching, so the only way t2 and t3 get a
	// category is via history.
	opts := Options{Phases: []Phase{PhaseExactMatch}}

	batch := []model.Transaction{
		categorized("t1", "ZGLORB QUUX", "Other", ""),
		uncategorized("t2", "ZGLORB QUUX"),
		uncategorized("t3", "zglorb quux"),
	}

	run1, err := eng.Categorize(ctx, batch, opts)
	require.NoError(t, err)

	// Both resolve against t1; t2's fresh categorization is not yet
	// history within the same run.
	assert.True(t, run1[1].HasCategory())
	assert.True(t, run1[2].HasCategory())

	run1Conf := run1[2].Confidence

	// A second run sees the run-1 assignments as history and leaves them
	// stable.
	run2, err := eng.Categorize(ctx, run1, opts)
	require.NoError(t, err)
	assert.Equal(t, run1[1].Category, run2[1].Category)
	assert.GreaterOrEqual(t, run2[2].Confidence, run1Conf)
}

func TestEngine_Categorize_Idempotent(t *testing.T) {
	eng := New(model.DefaultTaxonomy(), nil)
	ctx := context.Background()

	batch := []model.Transaction{
		categorized("t1", "STARBUCKS STORE #1234", "Food & Dining", "Coffee Shops"),
		uncategorized("t2", "STARBUCKS STORE #1234"),
		uncategorized("t3", "SHELL OIL 57442"),
	}

	once, err := eng.Categorize(ctx, batch, DefaultOptions())
	require.NoError(t, err)
	twice, err := eng.Categorize(ctx, once, DefaultOptions())
	require.NoError(t, err)

	for i := range once {
		assert.Equal(t, once[i].Category, twice[i].Category)
		assert.Equal(t, once[i].Subcategory, twice[i].Subcategory)
	}
}

func TestEngine_Categorize_ConfidenceWithinUnitInterval(t *testing.T) {
	predictor := &stubPredictor{trained: true, suggestion: &model.CategorySuggestion{
		Category:   "Other",
		Confidence: 250, // malformed, must clamp
		Method:     model.MethodMLClassifier,
	}}
	eng := New(model.DefaultTaxonomy(), predictor)

	batch := []model.Transaction{uncategorized("t1", "ZGLORB QUUX 77")}
	out, err := eng.Categorize(context.Background(), batch, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 1.0, out[0].Confidence)
}

func TestEngine_Categorize_MetadataCarriedThrough(t *testing.T) {
	eng := New(model.DefaultTaxonomy(), nil)

	txn := uncategorized("t1", "STARBUCKS STORE #1234")
	txn.Metadata = map[string]string{"account": "checking"}

	batch := []model.Transaction{
		categorized("t0", "STARBUCKS STORE #1234", "Food & Dining", "Coffee Shops"),
		txn,
	}

	out, err := eng.Categorize(context.Background(), batch, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"account": "checking"}, out[1].Metadata)
}

func TestEngine_Categorize_ProgressCallback(t *testing.T) {
	eng := New(model.DefaultTaxonomy(), nil)

	var seen []int
	opts := DefaultOptions()
	opts.Progress = func(processed int) { seen = append(seen, processed) }

	batch := []model.Transaction{
		uncategorized("t1", "A"),
		uncategorized("t2", "B"),
		uncategorized("t3", "C"),
	}

	_, err := eng.Categorize(context.Background(), batch, opts)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestEngine_Categorize_ContextCancellation(t *testing.T) {
	eng := New(model.DefaultTaxonomy(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := eng.Categorize(ctx, []model.Transaction{uncategorized("t1", "A")}, DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_Categorize_EmptyBatch(t *testing.T) {
	eng := New(model.DefaultTaxonomy(), nil)

	out, err := eng.Categorize(context.Background(), nil, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestEngine_Categorize_CustomRulesApply(t *testing.T) {
	eng := New(model.DefaultTaxonomy(), nil)

	opts := Options{
		Phases:         []Phase{PhasePatternMatch},
		PatternMethods: []PatternMethod{PatternKeyword},
		CustomRules: []model.KeywordRule{
			{Category: "Health & Fitness", Subcategory: "Gym", Priority: 50, Keywords: []string{"climbing"}},
		},
	}

	batch := []model.Transaction{uncategorized("t1", "TOUCHSTONE CLIMBING OAKLAND")}
	out, err := eng.Categorize(context.Background(), batch, opts)
	require.NoError(t, err)

	assert.Equal(t, "Health & Fitness", out[0].Category)
	assert.Equal(t, "Gym", out[0].Subcategory)
}

func TestEngine_BuildCascade_Order(t *testing.T) {
	predictor := &stubPredictor{trained: true}
	eng := New(model.DefaultTaxonomy(), predictor)

	opts := DefaultOptions()
	opts.Phases = []Phase{PhaseModelPredict, PhaseExactMatch, PhasePatternMatch}
	opts.PatternMethods = []PatternMethod{PatternTFIDF, PatternKeyword, PatternFuzzy}

	cascade := eng.buildCascade(opts)
	require.Len(t, cascade, 5)

	wantPhases := []Phase{PhaseExactMatch, PhasePatternMatch, PhasePatternMatch, PhasePatternMatch, PhaseModelPredict}
	wantMethods := []model.SuggestionMethod{
		model.MethodExactMatch,
		model.MethodKeywordRule,
		model.MethodFuzzyMatch,
		model.MethodTFIDFSimilarity,
		model.MethodMLClassifier,
	}
	for i, s := range cascade {
		assert.Equal(t, wantPhases[i], s.phase, "step %d", i)
		assert.Equal(t, wantMethods[i], s.matcher.Method(), "step %d", i)
	}
}

func TestEngine_Explain(t *testing.T) {
	predictor := &stubPredictor{trained: false}
	eng := New(model.DefaultTaxonomy(), predictor)

	batch := []model.Transaction{
		categorized("t1", "SHELL OIL 57442", "Transportation", "Gas & Fuel"),
		uncategorized("t2", "ZGLORB QUUX 77"),
	}

	trace, err := eng.Explain(context.Background(), batch[1], batch, DefaultOptions())
	require.NoError(t, err)

	require.NotNil(t, trace)
	assert.Equal(t, "t2", trace.TransactionID)
	assert.Nil(t, trace.Suggestion)
	require.Len(t, trace.Steps, 5)

	last := trace.Steps[len(trace.Steps)-1]
	assert.Equal(t, PhaseModelPredict, last.Phase)
	assert.False(t, last.Attempted)
	assert.Equal(t, "model not trained", last.Detail)
}

func TestEngine_Explain_StopsAtFirstMatch(t *testing.T) {
	predictor := &stubPredictor{trained: true, suggestion: modelSuggestion("Other")}
	eng := New(model.DefaultTaxonomy(), predictor)

	batch := []model.Transaction{
		categorized("t1", "STARBUCKS STORE #1234", "Food & Dining", "Coffee Shops"),
		uncategorized("t2", "STARBUCKS STORE #1234"),
	}

	trace, err := eng.Explain(context.Background(), batch[1], batch, DefaultOptions())
	require.NoError(t, err)

	require.NotNil(t, trace.Suggestion)
	assert.Equal(t, model.MethodExactMatch, trace.Suggestion.Method)
	require.Len(t, trace.Steps, 1)
	assert.True(t, trace.Steps[0].Matched)
	assert.Zero(t, predictor.calls)
}

func TestEngine_Explain_AlreadyCategorized(t *testing.T) {
	eng := New(model.DefaultTaxonomy(), nil)

	txn := categorized("t1", "STARBUCKS", "Food & Dining", "Coffee Shops")
	trace, err := eng.Explain(context.Background(), txn, []model.Transaction{txn}, DefaultOptions())
	require.NoError(t, err)

	assert.True(t, trace.AlreadyCategorized)
	assert.Empty(t, trace.Steps)
}
