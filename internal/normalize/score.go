package normalize

import (
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/ledgercore/internal/models"
)

// Component weights of the accuracy composite.
const (
	weightChain       = 0.40
	weightOpenClose   = 0.20
	weightEquation    = 0.20
	weightAmountFull  = 0.10
	weightBalanceFull = 0.10

	// chainOverrideThreshold: a chain this continuous proves the ledger;
	// the accounting-equation component is forced to 100.
	chainOverrideThreshold = 99.9
)

// Score computes the weighted accuracy composite in [0,100] with a
// per-component breakdown, letter grade, and chain-continuity override.
func Score(txns []models.Transaction, chain models.BalanceChainReport) models.AccuracyReport {
	chainPct := clamp(chain.ChainAccuracyPct)
	openClose := openingClosingScore(txns)
	equation := equationScore(txns)
	if chainPct >= chainOverrideThreshold {
		equation = 100
	}
	amountFull := completenessScore(missingAmountPct(txns))
	balanceFull := completenessScore(nullBalancePct(txns))

	overall := clamp(weightChain*chainPct +
		weightOpenClose*openClose +
		weightEquation*equation +
		weightAmountFull*amountFull +
		weightBalanceFull*balanceFull)

	return models.AccuracyReport{
		OverallScore: overall,
		Grade:        grade(overall),
		Breakdown: map[string]float64{
			"balance_chain":        chainPct,
			"opening_closing":      openClose,
			"accounting_equation":  equation,
			"amount_completeness":  amountFull,
			"balance_completeness": balanceFull,
		},
	}
}

func grade(score float64) string {
	switch {
	case score >= 95:
		return "A+"
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 50:
		return "D"
	default:
		return "F"
	}
}

// openingClosingScore: 100 if both an opening and a closing balance row
// were recovered, 50 for one, 0 for none.
func openingClosingScore(txns []models.Transaction) float64 {
	hasOpening, hasClosing := false, false
	for _, t := range txns {
		switch t.TransactionType {
		case models.OpeningBalance:
			hasOpening = true
		case models.ClosingBalance:
			hasClosing = true
		}
	}
	switch {
	case hasOpening && hasClosing:
		return 100
	case hasOpening || hasClosing:
		return 50
	}
	return 0
}

// equationScore checks opening + credits - debits against closing with a
// 5%-of-closing tolerance; outside it, the score degrades proportionally.
func equationScore(txns []models.Transaction) float64 {
	var opening, closing *decimal.Decimal
	credits, debits := decimal.Zero, decimal.Zero

	for i := range txns {
		t := &txns[i]
		switch t.TransactionType {
		case models.OpeningBalance:
			if opening == nil {
				opening = t.Balance
			}
		case models.ClosingBalance:
			closing = t.Balance
		case models.Credit:
			credits = credits.Add(t.Amount)
		case models.Debit:
			debits = debits.Add(t.Amount)
		}
	}

	if opening == nil || closing == nil {
		return 0
	}

	expected := opening.Add(credits).Sub(debits)
	diff := expected.Sub(*closing).Abs()
	tolerance := closing.Abs().Mul(decimal.NewFromFloat(0.05))
	if diff.LessThanOrEqual(tolerance) {
		return 100
	}
	if closing.IsZero() {
		return 0
	}
	ratio, _ := diff.Div(closing.Abs()).Float64()
	return clamp(100 * (1 - ratio))
}

// completenessScore implements 100 - 5*pct_missing, floored at 0.
func completenessScore(missingPct float64) float64 {
	return clamp(100 - 5*missingPct)
}

func missingAmountPct(txns []models.Transaction) float64 {
	total, missing := 0, 0
	for _, t := range txns {
		if t.TransactionType != models.Credit && t.TransactionType != models.Debit {
			continue
		}
		total++
		if t.Amount.IsZero() {
			missing++
		}
	}
	return share(missing, total)
}

func nullBalancePct(txns []models.Transaction) float64 {
	total, missing := 0, 0
	for _, t := range txns {
		if t.TransactionType != models.Credit && t.TransactionType != models.Debit {
			continue
		}
		total++
		if t.Balance == nil {
			missing++
		}
	}
	return share(missing, total)
}

func share(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(n) / float64(total)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
