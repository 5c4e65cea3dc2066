package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/ledgercore/internal/models"
)

// CSVWriter serializes an ExtractionResult's ledger to CSV format.
type CSVWriter struct {
	IncludeHeader bool
}

// WriteToFile writes the result to a CSV file at the given path.
func (w *CSVWriter) WriteToFile(path string, res *models.ExtractionResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	defer f.Close()

	return w.Write(f, res)
}

// Write writes the result in CSV format to the given writer.
func (w *CSVWriter) Write(out io.Writer, res *models.ExtractionResult) error {
	writer := csv.NewWriter(out)
	defer writer.Flush()

	// Write metadata as comments (CSV header rows)
	if w.IncludeHeader {
		if res.Bank != "" {
			writer.Write([]string{"# Bank", res.Bank})
		}
		if res.AccountInfo.AccountHolder != "" {
			writer.Write([]string{"# Account Holder", res.AccountInfo.AccountHolder})
		}
		if res.AccountInfo.AccountNumber != "" {
			writer.Write([]string{"# Account Number", res.AccountInfo.AccountNumber})
		}
		if res.AccountInfo.StatementPeriod != "" {
			writer.Write([]string{"# Statement Period", res.AccountInfo.StatementPeriod})
		}
		writer.Write([]string{"# Extraction Method", string(res.ExtractionMethod)})
		writer.Write([]string{"# Accuracy", strconv.FormatFloat(res.Accuracy.OverallScore, 'f', 1, 64) + " (" + res.Accuracy.Grade + ")"})
	}

	// Write column headers
	header := []string{"Date", "Description", "Type", "Amount", "Balance", "Currency", "Section", "Channel", "Category"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	// Write transaction rows
	for _, txn := range res.Transactions {
		row := []string{
			txn.Date,
			txn.Description,
			string(txn.TransactionType),
			txn.Amount.StringFixed(2),
			formatBalance(txn.Balance),
			txn.Currency,
			strconv.Itoa(txn.AccountSection),
			txn.Channel,
			txn.Category,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	return nil
}

func formatBalance(balance *decimal.Decimal) string {
	if balance == nil {
		return ""
	}
	return balance.StringFixed(2)
}
