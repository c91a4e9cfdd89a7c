// Package importer parses transaction files (CSV and OFX/QFX) into the
// domain model. Parsing stays outside the engine; the engine only ever
// sees fully formed transactions.
package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/cinnamon/internal/model"
	"github.com/google/uuid"
)

// Date layouts tried in order when parsing CSV date cells.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"02.01.2006",
	"2006/01/02",
	time.RFC3339,
}

// Column name variants recognized during header detection.
var columnAliases = map[string][]string{
	"id":          {"id", "transaction id", "transaction_id", "reference"},
	"date":        {"date", "transaction date", "posted", "booking date"},
	"description": {"description", "payee", "merchant", "name", "details", "memo"},
	"amount":      {"amount", "value", "debit/credit"},
	"currency":    {"currency", "ccy"},
	"category":    {"category"},
	"subcategory": {"subcategory", "sub-category", "sub category"},
}

// CSVImporter parses bank-export CSV files.
type CSVImporter struct{}

// NewCSVImporter creates a new CSV importer.
func NewCSVImporter() *CSVImporter {
	return &CSVImporter{}
}

// ParseFile reads a CSV export and returns transactions. The first row is
// treated as a header when recognizable column names are present;
// otherwise columns are assumed to be date, description, amount.
// Unrecognized header columns are preserved as transaction metadata.
func (i *CSVImporter) ParseFile(ctx context.Context, reader io.Reader) ([]model.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r := csv.NewReader(reader)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	columns, extra, hasHeader := detectColumns(records[0])
	rows := records
	if hasHeader {
		rows = records[1:]
	}

	var transactions []model.Transaction
	var skipped int
	for lineNo, row := range rows {
		txn, err := parseRow(row, records[0], columns, extra)
		if err != nil {
			skipped++
			slog.Warn("Skipping unparsable CSV row", "line", lineNo+1, "error", err)
			continue
		}
		transactions = append(transactions, txn)
	}

	slog.Info("Parsed CSV file",
		"total_transactions", len(transactions),
		"skipped_rows", skipped,
		"header_detected", hasHeader)

	return transactions, nil
}

// detectColumns maps logical fields to column indexes from the header
// row. A row without a recognizable date column is treated as data with
// positional columns.
func detectColumns(header []string) (columns map[string]int, extra []int, hasHeader bool) {
	columns = make(map[string]int)
	claimed := make(map[int]bool)

	for field, aliases := range columnAliases {
		for idx, name := range header {
			normalized := strings.ToLower(strings.TrimSpace(name))
			for _, alias := range aliases {
				if normalized == alias {
					columns[field] = idx
					claimed[idx] = true
					break
				}
			}
			if _, ok := columns[field]; ok {
				break
			}
		}
	}

	if _, ok := columns["date"]; !ok {
		// Positional fallback: date, description, amount.
		return map[string]int{"date": 0, "description": 1, "amount": 2}, nil, false
	}

	for idx := range header {
		if !claimed[idx] {
			extra = append(extra, idx)
		}
	}
	return columns, extra, true
}

func parseRow(row, header []string, columns map[string]int, extra []int) (model.Transaction, error) {
	cell := func(field string) string {
		idx, ok := columns[field]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	date, err := parseDate(cell("date"))
	if err != nil {
		return model.Transaction{}, err
	}

	description := cell("description")
	if description == "" {
		return model.Transaction{}, fmt.Errorf("empty description")
	}

	amount, err := parseAmount(cell("amount"))
	if err != nil {
		return model.Transaction{}, err
	}

	currency := cell("currency")
	if currency == "" {
		currency = "USD"
	}

	id := cell("id")
	if id == "" {
		id = uuid.NewString()
	}

	var metadata map[string]string
	for _, idx := range extra {
		if idx >= len(row) || strings.TrimSpace(row[idx]) == "" {
			continue
		}
		if metadata == nil {
			metadata = make(map[string]string)
		}
		metadata[strings.TrimSpace(header[idx])] = strings.TrimSpace(row[idx])
	}

	txn := model.Transaction{
		ID:          id,
		Date:        date,
		Description: description,
		Amount:      amount,
		Currency:    currency,
		Category:    cell("category"),
		Subcategory: cell("subcategory"),
		Metadata:    metadata,
	}
	txn.Hash = txn.GenerateHash()
	return txn, nil
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

func parseAmount(value string) (float64, error) {
	cleaned := strings.NewReplacer("$", "", "€", "", "£", "", ",", "", " ", "").Replace(value)
	if cleaned == "" {
		return 0, fmt.Errorf("empty amount")
	}
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("unparsable amount %q: %w", value, err)
	}
	return amount, nil
}
