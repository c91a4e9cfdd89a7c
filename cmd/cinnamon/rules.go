package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/Veraticus/cinnamon/internal/matcher"
	"github.com/Veraticus/cinnamon/internal/model"
	"github.com/spf13/cobra"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage keyword rules",
		Long:  `List, add, and learn the keyword rules used by the pattern-matching phase.`,
	}

	cmd.AddCommand(listRulesCmd())
	cmd.AddCommand(addRuleCmd())
	cmd.AddCommand(learnRulesCmd())

	return cmd
}

func listRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List custom keyword rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			rules, err := store.GetKeywordRules(ctx)
			if err != nil {
				return fmt.Errorf("failed to load keyword rules: %w", err)
			}

			if len(rules) == 0 {
				fmt.Println("No custom rules. Built-in rules still apply; add one with 'cinnamon rules add'.")
				return nil
			}

			printRules(rules)
			return nil
		},
	}
}

func addRuleCmd() *cobra.Command {
	var subcategory string
	var priority int

	cmd := &cobra.Command{
		Use:   "add <category> <keyword> [keywords...]",
		Short: "Add a custom keyword rule",
		Long: `Create a keyword rule mapping one or more keywords to a category. A
trailing * on a keyword matches any token with that prefix.

Examples:
  cinnamon rules add "Food & Dining" bakery --subcategory Restaurants
  cinnamon rules add Transportation "scooter*" --priority 8`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			existing, err := store.GetKeywordRules(ctx)
			if err != nil {
				return fmt.Errorf("failed to load keyword rules: %w", err)
			}

			rule := model.KeywordRule{
				Category:    args[0],
				Subcategory: subcategory,
				Keywords:    args[1:],
				Priority:    priority,
			}
			merged := matcher.MergeRules(existing, []model.KeywordRule{rule})

			if err := store.SaveKeywordRules(ctx, merged); err != nil {
				return fmt.Errorf("failed to save keyword rules: %w", err)
			}

			fmt.Printf("Saved rule for %s with %d keywords\n", args[0], len(rule.Keywords))
			return nil
		},
	}

	cmd.Flags().StringVar(&subcategory, "subcategory", "", "subcategory the rule assigns")
	cmd.Flags().IntVar(&priority, "priority", 10, "rule priority, higher wins")

	return cmd
}

func learnRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "learn",
		Short: "Learn keyword rules from manually edited transactions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			transactions, err := store.GetTransactions(ctx)
			if err != nil {
				return fmt.Errorf("failed to load transactions: %w", err)
			}

			existing, err := store.GetKeywordRules(ctx)
			if err != nil {
				return fmt.Errorf("failed to load keyword rules: %w", err)
			}

			merged, learned := learnRules(transactions, existing)
			if learned == 0 {
				fmt.Println("No manually edited transactions to learn from.")
				return nil
			}

			if err := store.SaveKeywordRules(ctx, merged); err != nil {
				return fmt.Errorf("failed to save keyword rules: %w", err)
			}

			fmt.Printf("Learned from %d transactions; rule set now has %d rules (was %d)\n",
				learned, len(merged), len(existing))
			return nil
		},
	}
}

func printRules(rules []model.KeywordRule) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRIORITY\tCATEGORY\tSUBCATEGORY\tKEYWORDS")
	for _, rule := range rules {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			strconv.Itoa(rule.Priority), rule.Category, rule.Subcategory,
			strings.Join(rule.Keywords, ", "))
	}
	_ = w.Flush()
}
