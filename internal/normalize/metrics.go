package normalize

import (
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/ledgercore/internal/models"
)

// ComputeMetrics derives StatementMetrics from the normalized ledger.
// When the ledger spans more than one currency, a per-currency breakdown
// is attached alongside the overall figures.
func ComputeMetrics(txns []models.Transaction) models.StatementMetrics {
	m := computeMetrics(txns)

	currencies := map[string][]models.Transaction{}
	for _, t := range txns {
		currencies[t.Currency] = append(currencies[t.Currency], t)
	}
	if len(currencies) > 1 {
		m.PerCurrency = make(map[string]*models.StatementMetrics, len(currencies))
		for cur, sub := range currencies {
			sm := computeMetrics(sub)
			m.PerCurrency[cur] = &sm
		}
	}
	return m
}

func computeMetrics(txns []models.Transaction) models.StatementMetrics {
	var m models.StatementMetrics

	var eodBalances []decimal.Decimal
	for i := range txns {
		t := &txns[i]

		switch t.TransactionType {
		case models.OpeningBalance:
			if m.OpeningBalance == nil {
				m.OpeningBalance = t.Balance
			}
		case models.ClosingBalance:
			m.ClosingBalance = t.Balance
		case models.Credit:
			m.CreditCount++
			m.CreditSum = m.CreditSum.Add(t.Amount)
			if t.Amount.GreaterThan(m.MaxCredit) {
				m.MaxCredit = t.Amount
			}
			if t.IsCash {
				m.CashDepositCount++
				m.CashDepositSum = m.CashDepositSum.Add(t.Amount)
			}
		case models.Debit:
			m.DebitCount++
			m.DebitSum = m.DebitSum.Add(t.Amount)
			if t.Amount.GreaterThan(m.MaxDebit) {
				m.MaxDebit = t.Amount
			}
			if t.IsCash {
				m.CashWithdrawalCount++
				m.CashWithdrawalSum = m.CashWithdrawalSum.Add(t.Amount)
			}
			if t.IsCheque {
				m.ChequeWithdrawalCount++
				m.ChequeWithdrawalSum = m.ChequeWithdrawalSum.Add(t.Amount)
			}
		}

		if t.Category == "fees_charges" && t.TransactionType == models.Debit {
			m.TotalFeesCharged = m.TotalFeesCharged.Add(t.Amount)
		}

		if t.Balance != nil && (t.TransactionType == models.Credit || t.TransactionType == models.Debit) {
			eodBalances = append(eodBalances, *t.Balance)
		}
	}

	if m.CreditCount > 0 {
		m.CreditAvg = m.CreditSum.DivRound(decimal.NewFromInt(int64(m.CreditCount)), 2)
	}
	if m.DebitCount > 0 {
		m.DebitAvg = m.DebitSum.DivRound(decimal.NewFromInt(int64(m.DebitCount)), 2)
	}

	if len(eodBalances) > 0 {
		max, min := eodBalances[0], eodBalances[0]
		sum := decimal.Zero
		for _, b := range eodBalances {
			if b.GreaterThan(max) {
				max = b
			}
			if b.LessThan(min) {
				min = b
			}
			sum = sum.Add(b)
		}
		avg := sum.DivRound(decimal.NewFromInt(int64(len(eodBalances))), 2)
		m.MaxEODBalance = &max
		m.MinEODBalance = &min
		m.AvgEODBalance = &avg
	}

	// Fall back to the first/last running balance when the statement has
	// no explicit opening/closing rows.
	if m.OpeningBalance == nil {
		for i := range txns {
			if txns[i].Balance != nil {
				m.OpeningBalance = txns[i].Balance
				break
			}
		}
	}
	if m.ClosingBalance == nil {
		for i := len(txns) - 1; i >= 0; i-- {
			if txns[i].Balance != nil {
				m.ClosingBalance = txns[i].Balance
				break
			}
		}
	}

	return m
}

// Currencies returns the distinct currencies in first-seen order.
func Currencies(txns []models.Transaction) []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range txns {
		if t.Currency == "" || seen[t.Currency] {
			continue
		}
		seen[t.Currency] = true
		out = append(out, t.Currency)
	}
	return out
}
