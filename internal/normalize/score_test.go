package normalize

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/ledgercore/internal/models"
)

func openingRow(balance string) models.Transaction {
	return models.Transaction{
		TransactionType: models.OpeningBalance,
		Amount:          decimal.RequireFromString(balance).Abs(),
		Balance:         dec(balance),
	}
}

func closingRow(balance string) models.Transaction {
	return models.Transaction{
		TransactionType: models.ClosingBalance,
		Amount:          decimal.RequireFromString(balance).Abs(),
		Balance:         dec(balance),
	}
}

func TestScorePerfectStatement(t *testing.T) {
	txns := ledger(
		openingRow("1000.00"),
		credit("500.00", "1500.00", 0),
		debit("200.00", "1300.00", 0),
		debit("100.00", "1200.00", 0),
		closingRow("1200.00"),
	)
	chain := ValidateBalanceChain(txns)
	rep := Score(txns, chain)

	if rep.OverallScore != 100 {
		t.Errorf("expected 100, got %v (breakdown %v)", rep.OverallScore, rep.Breakdown)
	}
	if rep.Grade != "A+" {
		t.Errorf("expected A+, got %s", rep.Grade)
	}
}

// A single transaction with opening/closing rows still scores >= 80.
func TestScoreSingleTransactionStatement(t *testing.T) {
	txns := ledger(
		openingRow("1000.00"),
		credit("500.00", "1500.00", 0),
		closingRow("1500.00"),
	)
	chain := ValidateBalanceChain(txns)
	rep := Score(txns, chain)
	if rep.OverallScore < 80 {
		t.Errorf("expected >= 80, got %v (breakdown %v)", rep.OverallScore, rep.Breakdown)
	}
}

func TestScoreBrokenChainDegrades(t *testing.T) {
	// One amount mis-read by $100: one broken link, score below 90, no
	// error anywhere.
	txns := ledger(
		openingRow("1000.00"),
		credit("500.00", "1500.00", 0),
		debit("300.00", "1300.00", 0), // should be 200.00
		debit("100.00", "1200.00", 0),
		closingRow("1200.00"),
	)
	chain := ValidateBalanceChain(txns)
	if chain.ChainAccuracyPct >= 100 {
		t.Fatalf("chain should be broken, got %v%%", chain.ChainAccuracyPct)
	}
	if len(chain.Breaks) == 0 {
		t.Fatal("expected at least one break entry")
	}

	rep := Score(txns, chain)
	if rep.OverallScore >= 90 {
		t.Errorf("expected below 90, got %v", rep.OverallScore)
	}
	if rep.OverallScore <= 0 {
		t.Errorf("a broken chain is not a failure, got %v", rep.OverallScore)
	}
}

func TestScoreOpeningClosingComponent(t *testing.T) {
	both := ledger(openingRow("100.00"), credit("10.00", "110.00", 0), closingRow("110.00"))
	one := ledger(openingRow("100.00"), credit("10.00", "110.00", 0))
	none := ledger(credit("10.00", "110.00", 0))

	if got := Score(both, ValidateBalanceChain(both)).Breakdown["opening_closing"]; got != 100 {
		t.Errorf("both rows: expected 100, got %v", got)
	}
	if got := Score(one, ValidateBalanceChain(one)).Breakdown["opening_closing"]; got != 50 {
		t.Errorf("one row: expected 50, got %v", got)
	}
	if got := Score(none, ValidateBalanceChain(none)).Breakdown["opening_closing"]; got != 0 {
		t.Errorf("no rows: expected 0, got %v", got)
	}
}

func TestScoreEquationOverride(t *testing.T) {
	// The accounting equation fails badly (closing inconsistent), but a
	// fully continuous chain forces the component to 100.
	txns := ledger(
		openingRow("1000.00"),
		credit("500.00", "1500.00", 0),
		debit("200.00", "1300.00", 0),
		closingRow("9999.00"),
	)
	chain := ValidateBalanceChain(txns)
	if chain.ChainAccuracyPct != 100 {
		t.Fatalf("precondition: chain should be 100%%, got %v", chain.ChainAccuracyPct)
	}
	rep := Score(txns, chain)
	if got := rep.Breakdown["accounting_equation"]; got != 100 {
		t.Errorf("override should force equation to 100, got %v", got)
	}
}

// Every component and the overall score stay within [0,100].
func TestScoreBounds(t *testing.T) {
	cases := [][]models.Transaction{
		nil,
		ledger(credit("10.00", "10.00", 0)),
		ledger(
			models.Transaction{TransactionType: models.Debit, Amount: decimal.Zero},
			models.Transaction{TransactionType: models.Credit, Amount: decimal.Zero},
		),
		ledger(openingRow("100.00"), closingRow("-50.00")),
	}

	for i, txns := range cases {
		rep := Score(txns, ValidateBalanceChain(txns))
		if rep.OverallScore < 0 || rep.OverallScore > 100 {
			t.Errorf("case %d: overall %v out of bounds", i, rep.OverallScore)
		}
		for name, v := range rep.Breakdown {
			if v < 0 || v > 100 {
				t.Errorf("case %d: component %s = %v out of bounds", i, name, v)
			}
		}
	}
}
