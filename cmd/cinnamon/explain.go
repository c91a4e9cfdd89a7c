package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/Veraticus/cinnamon/internal/classifier"
	"github.com/Veraticus/cinnamon/internal/engine"
	"github.com/spf13/cobra"
)

func explainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explain <transaction-id>",
		Short: "Show what every cascade strategy did for one transaction",
		Long: `Run the categorization cascade for a single transaction and print a
phase-by-phase trace of which strategies were attempted, skipped, and
matched.`,
		Args: cobra.ExactArgs(1),
		RunE: runExplain,
	}
}

func runExplain(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	txn, err := store.GetTransactionByID(ctx, args[0])
	if err != nil {
		return err
	}

	batch, err := store.GetTransactions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load transactions: %w", err)
	}

	taxonomy, err := loadTaxonomy(ctx, store)
	if err != nil {
		return err
	}

	rules, err := store.GetKeywordRules(ctx)
	if err != nil {
		return fmt.Errorf("failed to load keyword rules: %w", err)
	}

	clf := classifier.New()
	trainModel(ctx, clf, batch)

	eng := engine.New(taxonomy, clf)
	opts := engine.DefaultOptions()
	opts.CustomRules = rules

	trace, err := eng.Explain(ctx, *txn, batch, opts)
	if err != nil {
		return fmt.Errorf("explain failed: %w", err)
	}

	fmt.Printf("Transaction %s: %q\n", trace.TransactionID, trace.Description)
	if trace.AlreadyCategorized {
		fmt.Printf("Already categorized as %s / %s\n", txn.Category, txn.Subcategory)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PHASE\tMETHOD\tATTEMPTED\tMATCHED\tCONFIDENCE\tDETAIL")
	for _, step := range trace.Steps {
		fmt.Fprintf(w, "%d\t%s\t%t\t%t\t%.0f\t%s\n",
			step.Phase, step.Method, step.Attempted, step.Matched, step.Confidence, step.Detail)
	}
	_ = w.Flush()

	if trace.Suggestion != nil {
		fmt.Printf("\nSuggestion: %s / %s (%s, confidence %.0f)\n",
			trace.Suggestion.Category, trace.Suggestion.Subcategory,
			trace.Suggestion.Method, trace.Suggestion.Confidence)
	} else {
		fmt.Println("\nNo strategy produced a suggestion")
	}
	return nil
}
