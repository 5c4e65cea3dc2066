package normalize

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestComputeMetrics(t *testing.T) {
	txns := ledger(
		openingRow("1000.00"),
		credit("500.00", "1500.00", 0),
		debit("200.00", "1300.00", 0),
		debit("100.00", "1200.00", 0),
		closingRow("1200.00"),
	)
	txns[2].IsCash = true
	txns[3].Category = "fees_charges"

	m := ComputeMetrics(txns)

	if m.OpeningBalance == nil || !m.OpeningBalance.Equal(decimal.RequireFromString("1000.00")) {
		t.Errorf("opening: %v", m.OpeningBalance)
	}
	if m.ClosingBalance == nil || !m.ClosingBalance.Equal(decimal.RequireFromString("1200.00")) {
		t.Errorf("closing: %v", m.ClosingBalance)
	}
	if m.CreditCount != 1 || !m.CreditSum.Equal(decimal.RequireFromString("500.00")) {
		t.Errorf("credits: %d / %s", m.CreditCount, m.CreditSum)
	}
	if m.DebitCount != 2 || !m.DebitSum.Equal(decimal.RequireFromString("300.00")) {
		t.Errorf("debits: %d / %s", m.DebitCount, m.DebitSum)
	}
	if !m.DebitAvg.Equal(decimal.RequireFromString("150.00")) {
		t.Errorf("debit avg: %s", m.DebitAvg)
	}
	if !m.MaxDebit.Equal(decimal.RequireFromString("200.00")) {
		t.Errorf("max debit: %s", m.MaxDebit)
	}
	if m.CashWithdrawalCount != 1 || !m.CashWithdrawalSum.Equal(decimal.RequireFromString("200.00")) {
		t.Errorf("cash withdrawals: %d / %s", m.CashWithdrawalCount, m.CashWithdrawalSum)
	}
	if !m.TotalFeesCharged.Equal(decimal.RequireFromString("100.00")) {
		t.Errorf("fees: %s", m.TotalFeesCharged)
	}
	if m.MaxEODBalance == nil || !m.MaxEODBalance.Equal(decimal.RequireFromString("1500.00")) {
		t.Errorf("max eod: %v", m.MaxEODBalance)
	}
	if m.MinEODBalance == nil || !m.MinEODBalance.Equal(decimal.RequireFromString("1200.00")) {
		t.Errorf("min eod: %v", m.MinEODBalance)
	}
	if m.PerCurrency != nil {
		t.Errorf("single-currency ledger must not carry a per-currency breakdown")
	}
}

func TestComputeMetricsPerCurrency(t *testing.T) {
	sgdCredit := credit("1000.00", "1000.00", 0)
	sgdCredit.Currency = "SGD"
	usdCredit := credit("2000.00", "2000.00", 1)
	usdCredit.Currency = "USD"
	usdDebit := debit("500.00", "1500.00", 1)
	usdDebit.Currency = "USD"

	m := ComputeMetrics(ledger(sgdCredit, usdCredit, usdDebit))

	if len(m.PerCurrency) != 2 {
		t.Fatalf("expected 2 currency breakdowns, got %d", len(m.PerCurrency))
	}
	if m.PerCurrency["USD"].DebitCount != 1 {
		t.Errorf("USD debit count: %d", m.PerCurrency["USD"].DebitCount)
	}
	if m.PerCurrency["SGD"].CreditCount != 1 {
		t.Errorf("SGD credit count: %d", m.PerCurrency["SGD"].CreditCount)
	}
}

func TestCurrenciesFirstSeenOrder(t *testing.T) {
	a := credit("1.00", "1.00", 0)
	a.Currency = "SGD"
	b := credit("1.00", "1.00", 1)
	b.Currency = "USD"
	c := credit("1.00", "1.00", 1)
	c.Currency = "USD"

	got := Currencies(ledger(a, b, c))
	if len(got) != 2 || got[0] != "SGD" || got[1] != "USD" {
		t.Errorf("currencies: %v", got)
	}
}
