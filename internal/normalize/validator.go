package normalize

import (
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/ledgercore/internal/models"
)

// balanceTolerance is the ±0.02 slack a balance-chain link may carry.
var balanceTolerance = decimal.NewFromFloat(0.02)

const maxBreaksRecorded = 20

// ValidateBalanceChain walks each account_section independently, checking
// consecutive credit/debit transactions in source order against the
// signed-amount identity on the recorded balance. Opening/closing rows
// and any transaction with a nil balance break the chain — they are
// excluded from both numerator and denominator. No check ever crosses an
// account_section boundary.
func ValidateBalanceChain(txns []models.Transaction) models.BalanceChainReport {
	bySection := make(map[int][]int) // account_section -> indices into txns, in order
	order := []int{}
	for i, t := range txns {
		if _, seen := bySection[t.AccountSection]; !seen {
			order = append(order, t.AccountSection)
		}
		bySection[t.AccountSection] = append(bySection[t.AccountSection], i)
	}

	report := models.BalanceChainReport{}
	for _, section := range order {
		sr := validateSection(section, bySection[section], txns)
		report.Sections = append(report.Sections, sr)
		report.TotalLinks += sr.TotalLinks
		report.ValidLinks += sr.ValidLinks
		report.InvalidLinks += sr.InvalidLinks
		for _, b := range sr.Breaks {
			if len(report.Breaks) < maxBreaksRecorded {
				report.Breaks = append(report.Breaks, b)
			}
		}
	}

	report.ChainAccuracyPct = pct(report.ValidLinks, report.TotalLinks)
	return report
}

func validateSection(section int, idx []int, txns []models.Transaction) models.SectionChainReport {
	sr := models.SectionChainReport{AccountSection: section}

	var prev *models.Transaction
	for _, i := range idx {
		t := &txns[i]

		if t.TransactionType == models.OpeningBalance || t.TransactionType == models.ClosingBalance || t.Balance == nil {
			prev = nil
			continue
		}

		if prev == nil || prev.Balance == nil {
			prev = t
			continue
		}

		sr.TotalLinks++
		expected := prev.Balance.Add(t.SignedAmount())
		diff := expected.Sub(*t.Balance).Abs()
		if diff.LessThanOrEqual(balanceTolerance) {
			sr.ValidLinks++
		} else {
			sr.InvalidLinks++
			if len(sr.Breaks) < maxBreaksRecorded {
				sr.Breaks = append(sr.Breaks, models.BalanceBreak{
					RowIndex: i,
					Expected: expected,
					Actual:   *t.Balance,
				})
			}
		}
		prev = t
	}

	sr.ChainAccuracyPct = pct(sr.ValidLinks, sr.TotalLinks)
	return sr
}

// pct treats a chain with no checkable links as vacuously valid: nothing
// was broken, so a single-transaction statement still scores cleanly.
func pct(numerator, denominator int) float64 {
	if denominator == 0 {
		return 100
	}
	return 100 * float64(numerator) / float64(denominator)
}
