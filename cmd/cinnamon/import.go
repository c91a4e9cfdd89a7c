package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/cinnamon/internal/importer"
	"github.com/Veraticus/cinnamon/internal/model"
	"github.com/spf13/cobra"
)

// fileImporter parses one transaction export format.
type fileImporter interface {
	ParseFile(ctx context.Context, reader io.Reader) ([]model.Transaction, error)
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Import transactions from CSV or OFX/QFX files",
		Long: `Import bank transactions from CSV, OFX, or QFX exports. The format is
chosen by file extension.

Examples:
  # Import a single CSV export
  cinnamon import ~/Downloads/checking_jan_2026.csv

  # Import every QFX file in a directory
  cinnamon import ~/Downloads/*.qfx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImport,
	}

	cmd.Flags().BoolP("dry-run", "d", false, "Preview import without saving")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	ctx := cmd.Context()

	// Expand globs and collect all files
	var allFiles []string
	for _, pattern := range args {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			// If no glob matches, check if it's a direct file
			if _, err := os.Stat(pattern); err == nil {
				allFiles = append(allFiles, pattern)
			} else {
				slog.Warn("No files found matching pattern", "pattern", pattern)
			}
		} else {
			allFiles = append(allFiles, matches...)
		}
	}

	if len(allFiles) == 0 {
		return fmt.Errorf("no files found to import")
	}

	slog.Info("Importing transaction files",
		"file_count", len(allFiles),
		"dry_run", dryRun)

	var allTransactions []model.Transaction
	seenHashes := make(map[string]bool)

	for _, filePath := range allFiles {
		parser, err := importerFor(filePath)
		if err != nil {
			slog.Error("Skipping file", "file", filePath, "error", err)
			continue
		}

		f, err := os.Open(filePath)
		if err != nil {
			slog.Error("Failed to open file", "file", filePath, "error", err)
			continue
		}

		transactions, err := parser.ParseFile(ctx, f)
		_ = f.Close()
		if err != nil {
			slog.Error("Failed to parse file", "file", filePath, "error", err)
			continue
		}

		added := 0
		for _, txn := range transactions {
			if seenHashes[txn.Hash] {
				continue
			}
			seenHashes[txn.Hash] = true
			allTransactions = append(allTransactions, txn)
			added++
		}

		slog.Info("Processed file",
			"file", filepath.Base(filePath),
			"transactions", len(transactions),
			"added", added)
	}

	if len(allTransactions) == 0 {
		return fmt.Errorf("no transactions found in any file")
	}

	if dryRun {
		fmt.Printf("Dry run: would import %d transactions\n", len(allTransactions))
		return nil
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.SaveTransactions(ctx, allTransactions); err != nil {
		return fmt.Errorf("failed to save transactions: %w", err)
	}

	fmt.Printf("Imported %d transactions from %d files\n", len(allTransactions), len(allFiles))
	return nil
}

// importerFor picks a parser by file extension.
func importerFor(path string) (fileImporter, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return importer.NewCSVImporter(), nil
	case ".ofx", ".qfx":
		return importer.NewOFXImporter(), nil
	default:
		return nil, fmt.Errorf("unsupported file extension %q", filepath.Ext(path))
	}
}
