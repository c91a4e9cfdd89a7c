package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Veraticus/cinnamon/internal/classifier"
	"github.com/Veraticus/cinnamon/internal/common"
	"github.com/Veraticus/cinnamon/internal/engine"
	"github.com/Veraticus/cinnamon/internal/matcher"
	"github.com/Veraticus/cinnamon/internal/model"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func categorizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categorize",
		Short: "Categorize imported transactions",
		Long: `Run the categorization cascade over every uncategorized transaction in
the database. Already categorized transactions serve as the historical
reference set and are never modified.`,
		RunE: runCategorize,
	}

	cmd.Flags().StringSlice("phases", []string{"exact", "pattern", "model"}, "cascade phases to run (exact, pattern, model)")
	cmd.Flags().StringSlice("methods", []string{"keyword", "fuzzy", "tfidf"}, "pattern sub-methods to run (keyword, fuzzy, tfidf)")
	cmd.Flags().Float64("fuzzy-threshold", matcher.DefaultFuzzyThreshold, "minimum similarity ratio for fuzzy matching")
	cmd.Flags().Float64("tfidf-threshold", matcher.DefaultTFIDFThreshold, "minimum cosine similarity for TF-IDF matching")
	cmd.Flags().Bool("learn", false, "learn keyword rules from manually edited transactions")

	return cmd
}

func runCategorize(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	phases, err := parsePhases(mustStringSlice(cmd, "phases"))
	if err != nil {
		return err
	}
	methods, err := parsePatternMethods(mustStringSlice(cmd, "methods"))
	if err != nil {
		return err
	}
	fuzzyThreshold, _ := cmd.Flags().GetFloat64("fuzzy-threshold")
	tfidfThreshold, _ := cmd.Flags().GetFloat64("tfidf-threshold")
	learn, _ := cmd.Flags().GetBool("learn")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	transactions, err := store.GetTransactions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load transactions: %w", err)
	}
	if len(transactions) == 0 {
		fmt.Println("No transactions imported yet. Run 'cinnamon import' first.")
		return nil
	}

	taxonomy, err := loadTaxonomy(ctx, store)
	if err != nil {
		return err
	}

	rules, err := store.GetKeywordRules(ctx)
	if err != nil {
		return fmt.Errorf("failed to load keyword rules: %w", err)
	}

	if learn {
		merged, learned := learnRules(transactions, rules)
		if learned > 0 {
			rules = merged
			if err := store.SaveKeywordRules(ctx, rules); err != nil {
				return fmt.Errorf("failed to save learned rules: %w", err)
			}
		}
	}

	clf := classifier.New()
	if hasModelPhase(phases) {
		trainModel(ctx, clf, transactions)
	}

	eng := engine.NewWithConfig(taxonomy, clf, engine.Config{
		FuzzyThreshold: fuzzyThreshold,
		TFIDFThreshold: tfidfThreshold,
	})

	bar := progressbar.NewOptions(len(transactions),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Categorizing transactions..."),
	)

	opts := engine.Options{
		Phases:         phases,
		PatternMethods: methods,
		CustomRules:    rules,
		Progress:       func(processed int) { _ = bar.Set(processed) },
	}

	categorized, err := eng.Categorize(ctx, transactions, opts)
	if err != nil {
		return fmt.Errorf("categorization failed: %w", err)
	}
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)

	if err := store.SaveTransactions(ctx, categorized); err != nil {
		return fmt.Errorf("failed to save categorized transactions: %w", err)
	}

	newly := 0
	for i := range transactions {
		if !transactions[i].HasCategory() && categorized[i].HasCategory() {
			newly++
		}
	}
	fmt.Printf("Categorized %d of %d transactions\n", newly, len(transactions))
	return nil
}

// trainModel fits the classifier on the labeled slice of the batch. Too
// little labeled data is not fatal; the cascade just skips the model phase.
func trainModel(ctx context.Context, c *classifier.Classifier, transactions []model.Transaction) {
	var labeled []model.Transaction
	for _, txn := range transactions {
		if txn.HasCategory() {
			labeled = append(labeled, txn)
		}
	}

	cfg := classifier.TrainingConfig{
		Epochs:          viper.GetInt("training.epochs"),
		BatchSize:       viper.GetInt("training.batch_size"),
		ValidationSplit: viper.GetFloat64("training.validation_split"),
	}

	if _, err := c.Train(ctx, labeled, cfg); err != nil {
		if errors.Is(err, common.ErrInsufficientTrainingData) {
			slog.Warn("Not enough labeled data to train classifier, model phase will be skipped", "error", err)
			return
		}
		slog.Warn("Classifier training failed, model phase will be skipped", "error", err)
	}
}

// learnRules derives keyword rules from manually edited transactions and
// merges them into the existing rule set. The second return value is the
// number of rules learned.
func learnRules(transactions []model.Transaction, existing []model.KeywordRule) ([]model.KeywordRule, int) {
	var incoming []model.KeywordRule
	for _, txn := range transactions {
		if !txn.IsManuallyEdited {
			continue
		}
		if rule := matcher.LearnRuleFromTransaction(txn); rule != nil {
			incoming = append(incoming, *rule)
		}
	}

	if len(incoming) == 0 {
		return existing, 0
	}
	slog.Info("Learned keyword rules from manual edits", "rules", len(incoming))
	return matcher.MergeRules(existing, incoming), len(incoming)
}

func hasModelPhase(phases []engine.Phase) bool {
	for _, p := range phases {
		if p == engine.PhaseModelPredict {
			return true
		}
	}
	return false
}

func parsePhases(names []string) ([]engine.Phase, error) {
	var phases []engine.Phase
	for _, name := range names {
		switch name {
		case "exact":
			phases = append(phases, engine.PhaseExactMatch)
		case "pattern":
			phases = append(phases, engine.PhasePatternMatch)
		case "model":
			phases = append(phases, engine.PhaseModelPredict)
		default:
			return nil, fmt.Errorf("unknown phase %q (want exact, pattern, or model)", name)
		}
	}
	return phases, nil
}

func parsePatternMethods(names []string) ([]engine.PatternMethod, error) {
	var methods []engine.PatternMethod
	for _, name := range names {
		switch engine.PatternMethod(name) {
		case engine.PatternKeyword, engine.PatternFuzzy, engine.PatternTFIDF:
			methods = append(methods, engine.PatternMethod(name))
		default:
			return nil, fmt.Errorf("unknown pattern method %q (want keyword, fuzzy, or tfidf)", name)
		}
	}
	return methods, nil
}

func mustStringSlice(cmd *cobra.Command, name string) []string {
	values, _ := cmd.Flags().GetStringSlice(name)
	return values
}
