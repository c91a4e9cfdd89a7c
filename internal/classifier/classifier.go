// Package classifier implements the trainable description classifier used
// as the final phase of the categorization cascade. It wraps a TF-IDF
// weighted naive Bayes model keyed by category.
package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/Veraticus/cinnamon/internal/common"
	"github.com/Veraticus/cinnamon/internal/matcher"
	"github.com/Veraticus/cinnamon/internal/model"
	"github.com/jbrukh/bayesian"
)

// State describes the classifier lifecycle.
type State string

// Lifecycle states.
const (
	StateUninitialized State = "uninitialized"
	StateInitialized   State = "initialized"
	StateTrained       State = "trained"
)

// Training requires at least this many labeled samples across at least two
// distinct categories; naive Bayes is meaningless below that.
const (
	minTrainingSamples = 4
	minTrainingClasses = 2
)

// TrainingConfig controls a training run.
type TrainingConfig struct {
	Epochs          int
	BatchSize       int
	ValidationSplit float64
}

// DefaultTrainingConfig returns the default training configuration.
func DefaultTrainingConfig() TrainingConfig {
	return TrainingConfig{
		Epochs:          5,
		BatchSize:       32,
		ValidationSplit: 0.2,
	}
}

// Classifier is an explicit, caller-owned model context. Inference is safe
// for concurrent use; training takes exclusive access and must not overlap
// with in-flight predictions.
type Classifier struct {
	metrics          *model.ModelMetrics
	model            *bayesian.Classifier
	subcategoryByCat map[string]string
	state            State
	classes          []bayesian.Class
	mu               sync.RWMutex
}

// New creates an uninitialized classifier.
func New() *Classifier {
	return &Classifier{state: StateUninitialized}
}

// Initialize constructs a fresh model context and discards any stored
// metrics.
func (c *Classifier) Initialize() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateInitialized
	c.model = nil
	c.classes = nil
	c.subcategoryByCat = nil
	c.metrics = nil
}

// Reset returns the classifier to the uninitialized state.
func (c *Classifier) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateUninitialized
	c.model = nil
	c.classes = nil
	c.subcategoryByCat = nil
	c.metrics = nil
}

// State returns the current lifecycle state.
func (c *Classifier) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsTrained reports whether the model has completed a training run.
func (c *Classifier) IsTrained() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state == StateTrained
}

// Metrics returns the metrics of the last successful training run.
func (c *Classifier) Metrics() (*model.ModelMetrics, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.metrics == nil {
		return nil, common.ErrNoModelMetrics
	}
	metrics := *c.metrics
	return &metrics, nil
}

type trainingSample struct {
	category    string
	subcategory string
	tokens      []string
}

// Train fits the model on the labeled transactions and returns the
// resulting metrics. Failure to train (for example, too little labeled
// data) is recoverable: a previously trained model stays usable.
func (c *Classifier) Train(ctx context.Context, labeled []model.Transaction, cfg TrainingConfig) (*model.ModelMetrics, error) {
	defaults := DefaultTrainingConfig()
	if cfg.Epochs <= 0 {
		cfg.Epochs = defaults.Epochs
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.ValidationSplit < 0 || cfg.ValidationSplit >= 1 {
		cfg.ValidationSplit = defaults.ValidationSplit
	}

	samples := collectSamples(labeled)
	if len(samples) < minTrainingSamples {
		return nil, fmt.Errorf("%w: have %d labeled samples, need at least %d",
			common.ErrInsufficientTrainingData, len(samples), minTrainingSamples)
	}

	train, validation := splitSamples(samples, cfg.ValidationSplit)
	classes := distinctClasses(train)
	if len(classes) < minTrainingClasses {
		return nil, fmt.Errorf("%w: have %d categories, need at least %d",
			common.ErrInsufficientTrainingData, len(classes), minTrainingClasses)
	}

	slog.Info("Training classifier",
		"training_samples", len(train),
		"validation_samples", len(validation),
		"categories", len(classes),
		"epochs", cfg.Epochs)

	fitted := bayesian.NewClassifierTfIdf(classes...)
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		for start := 0; start < len(train); start += cfg.BatchSize {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}

			end := start + cfg.BatchSize
			if end > len(train) {
				end = len(train)
			}
			for _, sample := range train[start:end] {
				fitted.Learn(sample.tokens, bayesian.Class(sample.category))
			}
		}
	}
	fitted.ConvertTermsFreqToTfIdf()

	evalSet := validation
	if len(evalSet) == 0 {
		evalSet = train
	}
	accuracy, loss := evaluate(fitted, classes, evalSet)

	metrics := &model.ModelMetrics{
		Accuracy:          accuracy,
		Loss:              loss,
		TrainingSamples:   len(train),
		ValidationSamples: len(validation),
		LastTrainedAt:     time.Now(),
	}

	c.mu.Lock()
	c.model = fitted
	c.classes = classes
	c.subcategoryByCat = majoritySubcategories(train)
	c.metrics = metrics
	c.state = StateTrained
	c.mu.Unlock()

	out := *metrics
	return &out, nil
}

// Predict returns a category suggestion for the description, or an error
// if the model has not been trained. Callers should check IsTrained first.
func (c *Classifier) Predict(_ context.Context, description string) (*model.CategorySuggestion, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.state != StateTrained || c.model == nil {
		return nil, common.ErrModelNotTrained
	}

	tokens := matcher.Tokenize(description)
	if len(tokens) == 0 {
		return nil, nil
	}

	scores, _, _ := c.model.LogScores(tokens)
	best, probability := bestScore(scores)
	category := string(c.classes[best])

	return &model.CategorySuggestion{
		Category:    category,
		Subcategory: c.subcategoryByCat[category],
		Confidence:  math.Min(100, probability*100),
		Reason:      fmt.Sprintf("classifier probability %.2f", probability),
		Method:      model.MethodMLClassifier,
	}, nil
}

func collectSamples(labeled []model.Transaction) []trainingSample {
	samples := make([]trainingSample, 0, len(labeled))
	for _, txn := range labeled {
		if !txn.HasCategory() {
			continue
		}
		tokens := matcher.Tokenize(txn.Description)
		if len(tokens) == 0 {
			continue
		}
		samples = append(samples, trainingSample{
			tokens:      tokens,
			category:    txn.Category,
			subcategory: txn.Subcategory,
		})
	}
	return samples
}

// splitSamples holds out the tail of the sample list for validation. The
// split is deterministic so training runs are reproducible.
func splitSamples(samples []trainingSample, split float64) (train, validation []trainingSample) {
	held := int(float64(len(samples)) * split)
	if len(samples)-held < minTrainingSamples {
		held = len(samples) - minTrainingSamples
		if held < 0 {
			held = 0
		}
	}
	cut := len(samples) - held
	return samples[:cut], samples[cut:]
}

func distinctClasses(samples []trainingSample) []bayesian.Class {
	seen := make(map[string]bool)
	var names []string
	for _, sample := range samples {
		if !seen[sample.category] {
			seen[sample.category] = true
			names = append(names, sample.category)
		}
	}
	sort.Strings(names)

	classes := make([]bayesian.Class, len(names))
	for i, name := range names {
		classes[i] = bayesian.Class(name)
	}
	return classes
}

func majoritySubcategories(samples []trainingSample) map[string]string {
	votes := make(map[string]map[string]int)
	for _, sample := range samples {
		if sample.subcategory == "" {
			continue
		}
		if votes[sample.category] == nil {
			votes[sample.category] = make(map[string]int)
		}
		votes[sample.category][sample.subcategory]++
	}

	out := make(map[string]string, len(votes))
	for category, subs := range votes {
		best, bestCount := "", 0
		names := make([]string, 0, len(subs))
		for sub := range subs {
			names = append(names, sub)
		}
		sort.Strings(names)
		for _, sub := range names {
			if subs[sub] > bestCount {
				best, bestCount = sub, subs[sub]
			}
		}
		out[category] = best
	}
	return out
}

// evaluate computes accuracy and mean cross-entropy loss over a sample set.
func evaluate(fitted *bayesian.Classifier, classes []bayesian.Class, samples []trainingSample) (accuracy, loss float64) {
	if len(samples) == 0 {
		return 0, 0
	}

	classIndex := make(map[string]int, len(classes))
	for i, class := range classes {
		classIndex[string(class)] = i
	}

	correct := 0
	for _, sample := range samples {
		scores, _, _ := fitted.LogScores(sample.tokens)
		best, _ := bestScore(scores)
		if string(classes[best]) == sample.category {
			correct++
		}

		probabilities := softmax(scores)
		trueProb := 1e-12
		if i, ok := classIndex[sample.category]; ok && probabilities[i] > trueProb {
			trueProb = probabilities[i]
		}
		loss += -math.Log(trueProb)
	}

	return float64(correct) / float64(len(samples)), loss / float64(len(samples))
}

// bestScore returns the argmax of the log scores and its softmax
// probability.
func bestScore(scores []float64) (int, float64) {
	best := 0
	for i, score := range scores {
		if score > scores[best] {
			best = i
		}
	}
	return best, softmax(scores)[best]
}

func softmax(scores []float64) []float64 {
	maxScore := scores[0]
	for _, score := range scores {
		if score > maxScore {
			maxScore = score
		}
	}

	out := make([]float64, len(scores))
	var sum float64
	for i, score := range scores {
		out[i] = math.Exp(score - maxScore)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
