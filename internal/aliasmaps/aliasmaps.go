// Package aliasmaps holds the fixed header-alias tables, bank and
// currency sets, and the compiled regex caches the table and
// word-geometry tiers share. Everything here is initialized once at
// package load and never mutated afterward.
package aliasmaps

import (
	"regexp"
	"strings"

	"github.com/insightdelivered/ledgercore/internal/models"
)

// TableAliases is the table-path canonical map. Keys are canonical
// column names; values are the literal header cells (already lowercased,
// whitespace-collapsed) that map to them.
var TableAliases = map[string][]string{
	models.ColTransactionDate: {"date", "txn date", "trans date", "transaction date", "posting date", "value date"},
	models.ColValueDate:       {"value date", "posting date", "effective date"},
	models.ColDescription:     {"description", "particulars", "details", "narrative", "remarks", "transaction details"},
	models.ColWithdrawal:      {"debit", "withdrawal", "withdrawals", "dr", "debit amount", "payments"},
	models.ColDeposit:         {"credit", "deposit", "deposits", "cr", "credit amount", "receipts"},
	models.ColBalance:         {"balance", "running balance", "closing balance", "available balance", "ledger balance"},
	models.ColCheque:          {"cheque", "chq", "cheque no"},
	models.ColReference:       {"reference", "ref", "ref no"},
}

// WordAliases is the word-geometry alias map: a superset of
// TableAliases adding looser synonyms that only show up as isolated
// header words once multi-line headers are band-merged.
var WordAliases = func() map[string][]string {
	m := make(map[string][]string, len(TableAliases)+4)
	for k, v := range TableAliases {
		cp := make([]string, len(v))
		copy(cp, v)
		m[k] = cp
	}
	m[models.ColTransactionDate] = append(m[models.ColTransactionDate], "date & time", "date and time", "transaction", "trans")
	m[models.ColCounterparty] = []string{"payee", "beneficiary", "sender"}
	m[models.ColWithdrawal] = append(m[models.ColWithdrawal], "withdrawal amount")
	m[models.ColDeposit] = append(m[models.ColDeposit], "deposit amount")
	return m
}()

// tableReverse and wordReverse map a canonicalized header cell straight to
// its canonical column name, built once from the alias tables above.
var (
	tableReverse = buildReverse(TableAliases)
	wordReverse  = buildReverse(WordAliases)
)

// canonicalOrder fixes lookup priority for aliases claimed by more than
// one canonical column ("value date", "posting date" belong to both date
// columns; transaction_date wins).
var canonicalOrder = []string{
	models.ColTransactionDate, models.ColValueDate, models.ColDescription,
	models.ColCounterparty, models.ColCheque, models.ColReference,
	models.ColWithdrawal, models.ColDeposit, models.ColBalance,
}

func buildReverse(aliases map[string][]string) map[string]string {
	rev := make(map[string]string)
	for _, canon := range canonicalOrder {
		for _, v := range aliases[canon] {
			if _, taken := rev[v]; !taken {
				rev[v] = canon
			}
		}
	}
	return rev
}

var wsCollapse = regexp.MustCompile(`\s+`)

// Canonicalize lowercases and collapses whitespace in a header cell, the
// normalization every alias lookup requires.
func Canonicalize(cell string) string {
	cell = strings.ToLower(strings.TrimSpace(cell))
	cell = wsCollapse.ReplaceAllString(cell, " ")
	return cell
}

// LookupTableColumn resolves a raw table header cell to a canonical column
// name, or "" if unrecognized.
func LookupTableColumn(cell string) string {
	return tableReverse[Canonicalize(cell)]
}

// LookupWordColumn resolves a raw word-geometry header token to a
// canonical column name using the richer synonym list, or "" if
// unrecognized.
func LookupWordColumn(token string) string {
	return wordReverse[Canonicalize(token)]
}

// KnownBanks is the closed set used by the Bank Identifier.
var KnownBanks = []string{
	"OCBC", "DBS", "POSB", "UOB", "Standard Chartered", "HSBC", "Citibank",
	"Maybank", "CIMB", "Bank of China", "ICBC", "GXS", "Trust", "MariBank",
	"Revolut", "Wise", "Aspire", "Airwallex",
}

// ISOCurrencyCodes is the fixed set recognized for currency-section
// segmentation.
var ISOCurrencyCodes = map[string]bool{
	"SGD": true, "USD": true, "EUR": true, "GBP": true, "CNY": true,
	"JPY": true, "AUD": true, "HKD": true, "MYR": true, "IDR": true,
	"THB": true, "PHP": true, "INR": true, "KRW": true, "NZD": true,
	"CHF": true, "CAD": true, "TWD": true, "VND": true,
}

// Channels is the fixed vocabulary used by enrichment.
var Channels = []string{
	"FAST", "GIRO", "ATM", "DEBIT PURCHASE", "CHEQUE", "NETS", "PayNow",
	"PAYMENT/TRANSFER", "REMITTANCE",
}

// Categories is the fixed 15-category vocabulary used by enrichment.
var Categories = []string{
	"salary_payroll", "rent", "utilities", "food_beverage", "transport",
	"supplier_payment", "revenue", "loan", "tax_government", "insurance",
	"fees_charges", "transfer", "purchase", "other", "refund",
}

// summaryPattern matches summary rows that terminate a transaction section
// ("Total", "END OF STATEMENT", "ASAT").
var summaryPattern = regexp.MustCompile(`(?i)\b(total|end of statement|as\s*at)\b`)

// IsSummaryLine reports whether a line of text is a summary/footer row.
func IsSummaryLine(line string) bool {
	return summaryPattern.MatchString(line)
}

// bfPattern matches "BALANCE BROUGHT FORWARD" tolerant of concatenation
// (HSBC emits "BALANCEBROUGHTFORWARD") and of intervening whitespace.
var bfPattern = regexp.MustCompile(`(?i)BALANCE\s*BROUGHT\s*FORWARD`)
var cfPattern = regexp.MustCompile(`(?i)BALANCE\s*CARRIED\s*FORWARD`)

// IsBroughtForward reports whether the line marks a section's opening
// balance.
func IsBroughtForward(line string) bool { return bfPattern.MatchString(line) }

// IsCarriedForward reports whether the line marks a section's closing
// balance.
func IsCarriedForward(line string) bool { return cfPattern.MatchString(line) }

// AccountInfoMarkers are cell substrings that identify an account-info
// table rather than a transaction table.
var AccountInfoMarkers = []string{"account number", "opening balance"}
