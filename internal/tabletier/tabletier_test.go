package tabletier

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/ledgercore/internal/models"
	"github.com/insightdelivered/ledgercore/internal/pdfaccess"
)

func TestExtractRuledTable(t *testing.T) {
	tables := []pdfaccess.Table{
		{
			{"Date", "Description", "Withdrawal", "Deposit", "Balance"},
			{"01 Sep 2025", "BALANCE BROUGHT FORWARD", "", "", "5,000.00"},
			{"02 Sep 2025", "FAST TRANSFER ACME PTE LTD", "", "1,200.00", "6,200.00"},
			{"03 Sep 2025", "GIRO PAYMENT\nUTILITIES BOARD", "150.50", "", "6,049.50"},
			{"30 Sep 2025", "BALANCE CARRIED FORWARD", "", "", "6,049.50"},
		},
	}

	res := Extract(tables, "DBS")
	if got := len(res.Transactions); got != 4 {
		t.Fatalf("expected 4 transactions, got %d", got)
	}

	opening := res.Transactions[0]
	if opening.TransactionType != models.OpeningBalance {
		t.Errorf("row 0: expected opening_balance, got %s", opening.TransactionType)
	}
	if opening.Balance == nil || !opening.Balance.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("row 0: wrong opening balance: %v", opening.Balance)
	}

	credit := res.Transactions[1]
	if credit.TransactionType != models.Credit {
		t.Errorf("row 1: expected credit, got %s", credit.TransactionType)
	}
	if credit.Date != "02 SEP" {
		t.Errorf("row 1: expected date 02 SEP, got %q", credit.Date)
	}
	if !credit.Amount.Equal(decimal.NewFromInt(1200)) {
		t.Errorf("row 1: wrong amount: %s", credit.Amount)
	}

	debit := res.Transactions[2]
	if debit.TransactionType != models.Debit {
		t.Errorf("row 2: expected debit, got %s", debit.TransactionType)
	}
	if debit.Description != "GIRO PAYMENT UTILITIES BOARD" {
		t.Errorf("row 2: multi-line cell not joined: %q", debit.Description)
	}

	closing := res.Transactions[3]
	if closing.TransactionType != models.ClosingBalance {
		t.Errorf("row 3: expected closing_balance, got %s", closing.TransactionType)
	}
}

func TestExtractRejectsTableWithoutAmountOrBalance(t *testing.T) {
	tables := []pdfaccess.Table{
		{
			{"Date", "Description", "Reference"},
			{"01 Sep 2025", "Something", "R1"},
		},
		{
			{"Date", "Description", "Withdrawal", "Deposit"},
			{"01 Sep 2025", "No balance column", "10.00", ""},
		},
	}

	res := Extract(tables, "")
	if len(res.Transactions) != 0 {
		t.Fatalf("expected no transactions from unusable tables, got %d", len(res.Transactions))
	}
}

func TestExtractHeadersOnlyTableIsEmpty(t *testing.T) {
	tables := []pdfaccess.Table{
		{{"Date", "Description", "Debit", "Credit", "Balance"}},
	}

	res := Extract(tables, "")
	if len(res.Transactions) != 0 {
		t.Fatalf("expected empty result for headers-only table, got %d", len(res.Transactions))
	}
}

func TestExtractAccountInfoTable(t *testing.T) {
	tables := []pdfaccess.Table{
		{
			{"Account Holder", "ACME TRADING PTE LTD"},
			{"Account Number", "123-456789-0"},
			{"Currency", "SGD"},
			{"Statement Period", "01 Sep 2025 to 30 Sep 2025"},
		},
	}

	res := Extract(tables, "OCBC")
	if res.AccountInfo.AccountNumber != "123-456789-0" {
		t.Errorf("account number: got %q", res.AccountInfo.AccountNumber)
	}
	if res.AccountInfo.AccountHolder != "ACME TRADING PTE LTD" {
		t.Errorf("account holder: got %q", res.AccountInfo.AccountHolder)
	}
	if res.AccountInfo.Currency != "SGD" {
		t.Errorf("currency: got %q", res.AccountInfo.Currency)
	}
	if res.AccountInfo.Bank != "OCBC" {
		t.Errorf("bank: got %q", res.AccountInfo.Bank)
	}
	if len(res.Transactions) != 0 {
		t.Errorf("account-info table must not produce transactions, got %d", len(res.Transactions))
	}
}

func TestParseRowParenthesesNegative(t *testing.T) {
	tables := []pdfaccess.Table{
		{
			{"Date", "Description", "Debit", "Credit", "Balance"},
			{"05/09/2025", "REVERSAL", "(25.00)", "", "975.00"},
		},
	}

	res := Extract(tables, "")
	if len(res.Transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(res.Transactions))
	}
	txn := res.Transactions[0]
	if txn.Date != "05 SEP" {
		t.Errorf("slash date not normalized: %q", txn.Date)
	}
	if !txn.Amount.Equal(decimal.NewFromInt(25)) {
		t.Errorf("parenthesized amount should parse to magnitude 25, got %s", txn.Amount)
	}
	if txn.TransactionType != models.Debit {
		t.Errorf("expected debit, got %s", txn.TransactionType)
	}
}
