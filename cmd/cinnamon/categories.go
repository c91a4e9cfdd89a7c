package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage the category taxonomy",
		Long:  `List the category taxonomy or extend it from labeled transactions.`,
	}

	cmd.AddCommand(listCategoriesCmd())
	cmd.AddCommand(syncCategoriesCmd())

	return cmd
}

func listCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all categories and subcategories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			taxonomy, err := loadTaxonomy(ctx, store)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CATEGORY\tSUBCATEGORIES")
			for _, category := range taxonomy.Categories() {
				fmt.Fprintf(w, "%s\t%s\n", category, strings.Join(taxonomy[category], ", "))
			}
			return w.Flush()
		},
	}
}

func syncCategoriesCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Extend the taxonomy from labeled transactions",
		Long: `Fold every category and subcategory observed on labeled transactions
into the taxonomy and report what was added. Unknown categories accept a
bounded number of new subcategories per sync.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			taxonomy, err := loadTaxonomy(ctx, store)
			if err != nil {
				return err
			}

			labeled, err := store.GetLabeledTransactions(ctx)
			if err != nil {
				return fmt.Errorf("failed to load labeled transactions: %w", err)
			}

			extended, diff := taxonomy.Extend(labeled)
			if diff.Empty() {
				fmt.Println("Taxonomy already covers every labeled transaction.")
				return nil
			}

			for _, category := range diff.AddedCategories {
				fmt.Printf("+ category %s\n", category)
			}
			for category, subs := range diff.AddedSubcategories {
				fmt.Printf("+ %s: %s\n", category, strings.Join(subs, ", "))
			}

			if dryRun {
				fmt.Println("Dry run: taxonomy not saved")
				return nil
			}

			if err := store.SaveTaxonomy(ctx, extended); err != nil {
				return fmt.Errorf("failed to save taxonomy: %w", err)
			}
			fmt.Println("Taxonomy updated")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "d", false, "show additions without saving")

	return cmd
}
