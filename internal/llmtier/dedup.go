package llmtier

import (
	"strings"

	"github.com/insightdelivered/ledgercore/internal/models"
)

// Deduplicate removes the doubles introduced by overlapping batches in two
// passes, preserving first-seen order. Pass 1 is exact;
// pass 2 keys on balance instead of description, catching the same
// transaction rendered with a slightly different description in two
// batches. Both passes are idempotent.
func Deduplicate(txns []models.Transaction) []models.Transaction {
	txns = dedupBy(txns, exactKey)
	return dedupBy(txns, fuzzyKey)
}

func dedupBy(txns []models.Transaction, key func(models.Transaction) string) []models.Transaction {
	seen := make(map[string]bool, len(txns))
	out := make([]models.Transaction, 0, len(txns))
	for _, t := range txns {
		k := key(t)
		if k != "" && seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, t)
	}
	return out
}

func exactKey(t models.Transaction) string {
	desc := t.Description
	if len(desc) > 60 {
		desc = desc[:60]
	}
	return strings.Join([]string{
		t.Date, desc, t.Amount.StringFixed(2), balanceKey(t), string(t.TransactionType),
	}, "|")
}

// fuzzyKey drops the description: two rows with the same date, balance,
// type, and amount are the same transaction even when the model rendered
// their descriptions differently across batches. Rows without a balance
// have no fuzzy identity and are never collapsed by this pass.
func fuzzyKey(t models.Transaction) string {
	if t.Balance == nil {
		return ""
	}
	return strings.Join([]string{
		t.Date, t.Balance.StringFixed(2), string(t.TransactionType), t.Amount.StringFixed(2),
	}, "|")
}

func balanceKey(t models.Transaction) string {
	if t.Balance == nil {
		return "nil"
	}
	return t.Balance.StringFixed(2)
}
