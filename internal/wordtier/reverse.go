package wordtier

import (
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/ledgercore/internal/models"
)

var chainTolerance = decimal.NewFromFloat(0.02)

// quickChainScore returns the percentage of consecutive credit/debit
// pairs (same section, both balances present) satisfying the balance
// identity prev + signed_amount == curr within tolerance. It is a cheap
// ordering signal, not the authoritative post-hoc validation.
func quickChainScore(txns []models.Transaction) float64 {
	links, valid := 0, 0
	var prev *models.Transaction
	for i := range txns {
		t := &txns[i]
		if t.TransactionType != models.Credit && t.TransactionType != models.Debit {
			prev = nil
			continue
		}
		if t.Balance == nil {
			prev = nil
			continue
		}
		if prev != nil && prev.AccountSection == t.AccountSection {
			links++
			expected := prev.Balance.Add(t.SignedAmount())
			if expected.Sub(*t.Balance).Abs().LessThanOrEqual(chainTolerance) {
				valid++
			}
		}
		prev = t
	}
	if links == 0 {
		return 0
	}
	return 100 * float64(valid) / float64(links)
}

// orientByChain reverses a newest-first statement: if the reversed
// list's quick chain score is strictly higher than the forward list's,
// the reversed list wins. Ties keep forward ordering.
func orientByChain(txns []models.Transaction) []models.Transaction {
	if len(txns) < 2 {
		return txns
	}
	reversed := make([]models.Transaction, len(txns))
	for i, t := range txns {
		reversed[len(txns)-1-i] = t
	}
	if quickChainScore(reversed) > quickChainScore(txns) {
		return reversed
	}
	return txns
}
