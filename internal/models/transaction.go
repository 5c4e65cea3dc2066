// Package models holds the data types shared across every stage of the
// extraction pipeline: PDF access, bank identification, both extraction
// tiers, and the normalizer/validator.
package models

import "github.com/shopspring/decimal"

// TransactionType classifies a Transaction.
type TransactionType string

const (
	Credit         TransactionType = "credit"
	Debit          TransactionType = "debit"
	OpeningBalance TransactionType = "opening_balance"
	ClosingBalance TransactionType = "closing_balance"
)

// Transaction is the central entity produced by every tier and refined by
// the Normalizer. Amount and Balance are decimal to keep the balance-chain
// tolerance checks exact to the cent.
type Transaction struct {
	Date            string           `json:"date"` // normalized "DD MMM", or "" for an opening/closing row printed without a date
	Description     string           `json:"description"`
	TransactionType TransactionType  `json:"transaction_type"`
	Amount          decimal.Decimal  `json:"amount"`
	Balance         *decimal.Decimal `json:"balance"` // nil when the statement omits it

	Reference    string `json:"reference,omitempty"`
	Counterparty string `json:"counterparty,omitempty"`
	Channel      string `json:"channel,omitempty"`
	Category     string `json:"category,omitempty"`

	IsCash   bool `json:"is_cash"`
	IsCheque bool `json:"is_cheque"`

	PageNumber     int    `json:"page_number"`
	Currency       string `json:"currency"`
	AccountSection int    `json:"account_section"`
}

// SignedAmount returns Amount with the sign implied by TransactionType:
// positive for money in (credit, opening balance), negative for money out
// (debit). Closing balance carries no signed amount (it never links
// forward in the balance chain).
func (t Transaction) SignedAmount() decimal.Decimal {
	switch t.TransactionType {
	case Debit:
		return t.Amount.Neg()
	case Credit, OpeningBalance:
		return t.Amount
	default:
		return decimal.Zero
	}
}

// AccountInfo is extracted from the statement's header region.
type AccountInfo struct {
	AccountHolder   string `json:"account_holder,omitempty"`
	Bank            string `json:"bank,omitempty"`
	AccountNumber   string `json:"account_number,omitempty"`
	Currency        string `json:"currency,omitempty"`
	StatementPeriod string `json:"statement_period,omitempty"`
	AccountType     string `json:"account_type,omitempty"`
}

// DetectionSource records which cascade step in the Bank Identifier
// produced a BankLayout.
type DetectionSource string

const (
	SourceVision  DetectionSource = "vision"
	SourceProduct DetectionSource = "product"
	SourceKeyword DetectionSource = "keyword"
)

// BankLayout is the output of the Bank Identifier.
type BankLayout struct {
	Bank       string          `json:"bank"`
	Confidence float64         `json:"confidence"`
	Source     DetectionSource `json:"source"`
}

// Canonical column names used by both the table-path alias map and
// the word-geometry alias map.
const (
	ColTransactionDate = "transaction_date"
	ColValueDate       = "value_date"
	ColDescription     = "description"
	ColCounterparty    = "counterparty"
	ColCheque          = "cheque"
	ColReference       = "reference"
	ColWithdrawal      = "withdrawal"
	ColDeposit         = "deposit"
	ColBalance         = "balance"
)

// Interval is an inclusive [X0, X1] span in page coordinates.
type Interval struct {
	X0 float64 `json:"x0"`
	X1 float64 `json:"x1"`
}

// Contains reports whether x falls within the interval.
func (iv Interval) Contains(x float64) bool {
	return x >= iv.X0 && x <= iv.X1
}

// ColumnLayout is a per-page discovered mapping from canonical column name
// to its x-interval, plus the header row's y-band.
type ColumnLayout struct {
	Columns map[string]Interval `json:"columns"`
	YMin    float64             `json:"y_min"`
	YMax    float64             `json:"y_max"`
}

// HasAmountColumn reports whether at least one of withdrawal/deposit is
// present — required, together with HasBalanceColumn, for validity.
func (c ColumnLayout) HasAmountColumn() bool {
	_, w := c.Columns[ColWithdrawal]
	_, d := c.Columns[ColDeposit]
	return w || d
}

// HasBalanceColumn reports whether the balance column was discovered.
func (c ColumnLayout) HasBalanceColumn() bool {
	_, ok := c.Columns[ColBalance]
	return ok
}

// Valid reports whether the layout can drive row extraction: at least
// one amount column plus a balance column.
func (c ColumnLayout) Valid() bool {
	return c.HasAmountColumn() && c.HasBalanceColumn()
}

// ColumnAt returns the canonical column name whose interval contains x, or
// "" if no column claims it.
func (c ColumnLayout) ColumnAt(x float64) string {
	for name, iv := range c.Columns {
		if iv.Contains(x) {
			return name
		}
	}
	return ""
}

// BalanceBreak records one failed link in a balance chain.
type BalanceBreak struct {
	RowIndex int             `json:"row_index"`
	Expected decimal.Decimal `json:"expected"`
	Actual   decimal.Decimal `json:"actual"`
}

// SectionChainReport is the balance-chain outcome for a single
// account_section.
type SectionChainReport struct {
	AccountSection   int            `json:"account_section"`
	TotalLinks       int            `json:"total_links"`
	ValidLinks       int            `json:"valid_links"`
	InvalidLinks     int            `json:"invalid_links"`
	ChainAccuracyPct float64        `json:"chain_accuracy_pct"`
	Breaks           []BalanceBreak `json:"breaks"`
}

// BalanceChainReport aggregates balance-chain validation across every
// account_section plus an overall summary.
type BalanceChainReport struct {
	Sections         []SectionChainReport `json:"sections"`
	TotalLinks       int                  `json:"total_links"`
	ValidLinks       int                  `json:"valid_links"`
	InvalidLinks     int                  `json:"invalid_links"`
	ChainAccuracyPct float64              `json:"chain_accuracy_pct"`
	Breaks           []BalanceBreak       `json:"breaks"` // capped at 20
}

// AccuracyReport is the weighted composite extraction-accuracy score.
type AccuracyReport struct {
	OverallScore float64            `json:"overall_score"`
	Grade        string             `json:"grade"`
	Breakdown    map[string]float64 `json:"breakdown"`
}

// StatementMetrics is computed from the normalized ledger.
type StatementMetrics struct {
	OpeningBalance *decimal.Decimal `json:"opening_balance,omitempty"`
	ClosingBalance *decimal.Decimal `json:"closing_balance,omitempty"`
	MaxEODBalance  *decimal.Decimal `json:"max_eod_balance,omitempty"`
	MinEODBalance  *decimal.Decimal `json:"min_eod_balance,omitempty"`
	AvgEODBalance  *decimal.Decimal `json:"avg_eod_balance,omitempty"`

	CreditCount int             `json:"credit_count"`
	CreditSum   decimal.Decimal `json:"credit_sum"`
	CreditAvg   decimal.Decimal `json:"credit_avg"`
	MaxCredit   decimal.Decimal `json:"max_credit"`

	DebitCount int             `json:"debit_count"`
	DebitSum   decimal.Decimal `json:"debit_sum"`
	DebitAvg   decimal.Decimal `json:"debit_avg"`
	MaxDebit   decimal.Decimal `json:"max_debit"`

	CashDepositCount    int             `json:"cash_deposit_count"`
	CashDepositSum      decimal.Decimal `json:"cash_deposit_sum"`
	CashWithdrawalCount int             `json:"cash_withdrawal_count"`
	CashWithdrawalSum   decimal.Decimal `json:"cash_withdrawal_sum"`

	ChequeWithdrawalCount int             `json:"cheque_withdrawal_count"`
	ChequeWithdrawalSum   decimal.Decimal `json:"cheque_withdrawal_sum"`

	TotalFeesCharged decimal.Decimal `json:"total_fees_charged"`

	PerCurrency map[string]*StatementMetrics `json:"per_currency,omitempty"`
}

// ExtractionMethod records which tier (or combination) ultimately produced
// the transaction list.
type ExtractionMethod string

const (
	MethodTable  ExtractionMethod = "table"
	MethodWords  ExtractionMethod = "words"
	MethodLLM    ExtractionMethod = "llm"
	MethodLLMOCR ExtractionMethod = "llm+ocr"
)

// ExtractionResult is the single structured record the core returns.
type ExtractionResult struct {
	RunID            string              `json:"run_id"`
	Bank             string              `json:"bank"`
	AccountInfo      AccountInfo         `json:"account_info"`
	Transactions     []Transaction       `json:"transactions"`
	Metrics          StatementMetrics   `json:"metrics"`
	Accuracy         AccuracyReport     `json:"accuracy"`
	BalanceChain     BalanceChainReport `json:"balance_chain"`
	ExtractionMethod ExtractionMethod   `json:"extraction_method"`
	PagesProcessed   int                 `json:"pages_processed"`
	Currencies       []string            `json:"currencies"`
}
