// Package tabletier implements the Tier-1 table extractor: ruled tables
// are parsed via the fixed header-alias map, producing Transactions
// directly. It is the cheapest tier and runs first; an empty result hands
// the document to the word-geometry tier.
package tabletier

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/ledgercore/internal/aliasmaps"
	"github.com/insightdelivered/ledgercore/internal/models"
	"github.com/insightdelivered/ledgercore/internal/normalize"
	"github.com/insightdelivered/ledgercore/internal/pdfaccess"
)

// Result carries everything Tier 1 recovers from the document: the
// transaction rows plus any account metadata found in a key-value table.
type Result struct {
	Transactions []models.Transaction
	AccountInfo  models.AccountInfo
}

// Extract walks every table on every page. Tables whose headers resolve to
// at least one amount column and a balance column produce Transactions;
// account-info tables fill Result.AccountInfo; everything else is skipped.
// An empty Transactions slice means Tier 1 found nothing usable and the
// caller should fall through to Tier 2.
func Extract(tables []pdfaccess.Table, bank string) Result {
	var res Result

	if bank != "" && bank != "unknown" {
		res.AccountInfo.Bank = bank
	}

	for pageIdx, table := range tables {
		if len(table) == 0 {
			continue
		}

		cols, ok := mapHeaders(table[0])
		if !ok {
			// Only a table with no transaction header can be an
			// account-info table; "Opening Balance" also shows up as a
			// data row in real transaction tables.
			if isAccountInfoTable(table) {
				parseAccountInfo(table, &res.AccountInfo)
			}
			continue
		}

		for _, row := range table[1:] {
			if txn, ok := parseRow(row, cols, pageIdx+1); ok {
				res.Transactions = append(res.Transactions, txn)
			}
		}
	}

	return res
}

// mapHeaders canonicalizes the first row through the table-path alias map.
// The table is rejected unless the mapped headers include an amount column
// (withdrawal or deposit) and a balance column.
func mapHeaders(headerRow []string) (map[int]string, bool) {
	cols := make(map[int]string)
	for i, cell := range headerRow {
		// Multi-line header cells collapse to one lookup key.
		cell = strings.ReplaceAll(cell, "\n", " ")
		if canon := aliasmaps.LookupTableColumn(cell); canon != "" {
			if _, taken := cols[i]; !taken {
				cols[i] = canon
			}
		}
	}

	hasAmount, hasBalance := false, false
	for _, canon := range cols {
		switch canon {
		case models.ColWithdrawal, models.ColDeposit:
			hasAmount = true
		case models.ColBalance:
			hasBalance = true
		}
	}
	if !hasAmount || !hasBalance {
		return nil, false
	}
	return cols, true
}

// isAccountInfoTable reports whether any cell marks the table as account
// metadata rather than transactions.
func isAccountInfoTable(table pdfaccess.Table) bool {
	for _, row := range table {
		for _, cell := range row {
			lower := strings.ToLower(cell)
			for _, marker := range aliasmaps.AccountInfoMarkers {
				if strings.Contains(lower, marker) {
					return true
				}
			}
		}
	}
	return false
}

// parseAccountInfo reads a key-value table: each row's first cell is the
// key, the remainder the value. Only the fields AccountInfo models are
// kept; unrecognized keys are ignored.
func parseAccountInfo(table pdfaccess.Table, info *models.AccountInfo) {
	for _, row := range table {
		if len(row) < 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(row[0]))
		val := strings.TrimSpace(strings.Join(row[1:], " "))
		if val == "" {
			continue
		}
		switch {
		case strings.Contains(key, "account number"):
			info.AccountNumber = val
		case strings.Contains(key, "account holder"), strings.Contains(key, "account name"):
			info.AccountHolder = val
		case strings.Contains(key, "account type"):
			info.AccountType = val
		case strings.Contains(key, "currency"):
			info.Currency = val
		case strings.Contains(key, "statement period"), strings.Contains(key, "period"):
			info.StatementPeriod = val
		case strings.Contains(key, "bank"):
			info.Bank = val
		}
	}
}

// parseRow converts one data row into a Transaction. Rows without a
// parseable date are only accepted as opening/closing balance rows; rows
// with neither an amount nor a balance are dropped.
func parseRow(row []string, cols map[int]string, pageNumber int) (models.Transaction, bool) {
	var (
		dateRaw, desc, reference, chequeNo string
		withdrawal, deposit                *decimal.Decimal
		balance                            *decimal.Decimal
	)

	for i, cell := range row {
		canon, mapped := cols[i]
		if !mapped {
			continue
		}
		cell = strings.TrimSpace(strings.ReplaceAll(cell, "\n", " "))
		switch canon {
		case models.ColTransactionDate:
			dateRaw = cell
		case models.ColDescription:
			desc = cell
		case models.ColReference:
			reference = cell
		case models.ColCheque:
			chequeNo = cell
		case models.ColWithdrawal:
			if d, ok := normalize.ParseAmount(cell, false); ok {
				withdrawal = &d
			}
		case models.ColDeposit:
			if d, ok := normalize.ParseAmount(cell, false); ok {
				deposit = &d
			}
		case models.ColBalance:
			if d, ok := normalize.ParseAmount(cell, false); ok {
				balance = &d
			}
		}
	}

	date, dateOK := normalize.NormalizeDate(dateRaw)

	if typ, ok := balanceRowType(desc); ok && balance != nil {
		txn := models.Transaction{
			Date:            date,
			Description:     desc,
			TransactionType: typ,
			Amount:          balance.Abs(),
			Balance:         balance,
			PageNumber:      pageNumber,
		}
		return txn, true
	}

	if !dateOK {
		return models.Transaction{}, false
	}
	if withdrawal == nil && deposit == nil {
		return models.Transaction{}, false
	}

	txn := models.Transaction{
		Date:        date,
		Description: desc,
		Reference:   reference,
		Balance:     balance,
		PageNumber:  pageNumber,
	}
	if chequeNo != "" {
		txn.IsCheque = true
		if txn.Reference == "" {
			txn.Reference = chequeNo
		}
	}

	if withdrawal != nil && !withdrawal.IsZero() {
		txn.TransactionType = models.Debit
		txn.Amount = withdrawal.Abs()
	} else if deposit != nil && !deposit.IsZero() {
		txn.TransactionType = models.Credit
		txn.Amount = deposit.Abs()
	} else {
		return models.Transaction{}, false
	}

	return txn, true
}

// balanceRowType classifies opening/closing balance rows by description
// keyword.
func balanceRowType(desc string) (models.TransactionType, bool) {
	switch {
	case aliasmaps.IsBroughtForward(desc):
		return models.OpeningBalance, true
	case aliasmaps.IsCarriedForward(desc):
		return models.ClosingBalance, true
	}
	lower := strings.ToLower(desc)
	switch {
	case strings.Contains(lower, "opening balance"):
		return models.OpeningBalance, true
	case strings.Contains(lower, "closing balance"):
		return models.ClosingBalance, true
	}
	return "", false
}
