package wordtier

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/ledgercore/internal/aliasmaps"
	"github.com/insightdelivered/ledgercore/internal/models"
	"github.com/insightdelivered/ledgercore/internal/normalize"
)

type state int

const (
	stateIdle state = iota
	stateInTxn
	statePastClosing
)

// row is one y-band's words distributed into layout columns.
// Words whose x-midpoint falls outside every column interval are kept
// aside: they never enter a cell, but currency-section detection still
// inspects them (an ANEXT "Currency" column has no canonical alias, so
// its values land here).
type row struct {
	cells      map[string]string
	unassigned []string
	text       string
	page       int
}

func buildRow(b band, layout models.ColumnLayout, page int) row {
	r := row{cells: make(map[string]string), page: page, text: b.text()}
	for _, w := range b.words {
		col := layout.ColumnAt(w.XMidpoint())
		if col == "" {
			r.unassigned = append(r.unassigned, w.Text)
			continue
		}
		if r.cells[col] == "" {
			r.cells[col] = w.Text
		} else {
			r.cells[col] += " " + w.Text
		}
	}
	return r
}

// builder accumulates one in-progress transaction across multiple rows.
type builder struct {
	date       string
	descParts  []string
	withdrawal *decimal.Decimal
	deposit    *decimal.Decimal
	balance    *decimal.Decimal
	reference  string
	cheque     string
	page       int
}

// assembler is the three-state row machine plus the currency-section
// tracker.
type assembler struct {
	bank string

	state state
	cur   *builder
	txns  []models.Transaction

	section        int
	currency       string
	sectionActive  bool // any row emitted into the current section yet
	pendingSection bool // a CARRIED FORWARD was seen; next BROUGHT FORWARD opens a new section
}

func newAssembler(bank string) *assembler {
	return &assembler{bank: bank, currency: "SGD"}
}

// amounts parsed from a row's cells. DR-suffix negation is accepted only
// on the balance column.
type rowAmounts struct {
	withdrawal *decimal.Decimal
	deposit    *decimal.Decimal
	balance    *decimal.Decimal
}

func (a rowAmounts) any() bool {
	return a.withdrawal != nil || a.deposit != nil || a.balance != nil
}

func parseAmounts(r row) rowAmounts {
	var out rowAmounts
	if d, ok := normalize.ParseAmount(r.cells[models.ColWithdrawal], false); ok {
		out.withdrawal = &d
	}
	if d, ok := normalize.ParseAmount(r.cells[models.ColDeposit], false); ok {
		out.deposit = &d
	}
	if d, ok := normalize.ParseAmount(r.cells[models.ColBalance], true); ok {
		out.balance = &d
	}
	return out
}

// feed processes one row through the state machine.
func (a *assembler) feed(r row) {
	if code, ok := standaloneCurrency(r); ok {
		a.currencySignal(code)
		return
	}

	switch {
	case aliasmaps.IsCarriedForward(r.text):
		a.carriedForward(r)
		return
	case aliasmaps.IsBroughtForward(r.text):
		a.broughtForward(r)
		return
	}

	if a.state == statePastClosing {
		return
	}

	if aliasmaps.IsSummaryLine(r.text) {
		if a.state == stateInTxn {
			a.flush()
			a.state = stateIdle
		}
		return
	}

	amounts := parseAmounts(r)
	date, hasDate := normalize.NormalizeDate(r.cells[models.ColTransactionDate])

	if amounts.any() {
		if code, ok := rowCurrency(r); ok && code != a.currency {
			a.currencySignal(code)
		}
	}

	switch {
	case hasDate:
		a.flush()
		a.startTxn(date, r, amounts)
		a.state = stateInTxn

	case amounts.any():
		if a.state != stateInTxn || a.cur == nil {
			return
		}
		if amounts.balance != nil && a.cur.balance != nil && !amounts.balance.Equal(*a.cur.balance) {
			// HSBC sub-transaction: same date, its own amount and balance.
			inherited := a.cur.date
			a.flush()
			a.startTxn(inherited, r, amounts)
			a.state = stateInTxn
			return
		}
		a.fill(r, amounts)

	default:
		if a.state == stateInTxn && a.cur != nil {
			if desc := strings.TrimSpace(r.cells[models.ColDescription]); desc != "" {
				a.cur.descParts = append(a.cur.descParts, desc)
			}
		}
	}
}

func (a *assembler) startTxn(date string, r row, amounts rowAmounts) {
	b := &builder{
		date:       date,
		withdrawal: amounts.withdrawal,
		deposit:    amounts.deposit,
		balance:    amounts.balance,
		reference:  strings.TrimSpace(r.cells[models.ColReference]),
		cheque:     strings.TrimSpace(r.cells[models.ColCheque]),
		page:       r.page,
	}
	if desc := strings.TrimSpace(r.cells[models.ColDescription]); desc != "" {
		b.descParts = append(b.descParts, desc)
	}
	if cp := strings.TrimSpace(r.cells[models.ColCounterparty]); cp != "" {
		b.descParts = append(b.descParts, cp)
	}
	a.cur = b
}

func (a *assembler) fill(r row, amounts rowAmounts) {
	if a.cur.withdrawal == nil {
		a.cur.withdrawal = amounts.withdrawal
	}
	if a.cur.deposit == nil {
		a.cur.deposit = amounts.deposit
	}
	if a.cur.balance == nil {
		a.cur.balance = amounts.balance
	}
	if desc := strings.TrimSpace(r.cells[models.ColDescription]); desc != "" {
		a.cur.descParts = append(a.cur.descParts, desc)
	}
}

// flush finalizes the current builder into a Transaction. Builders with no
// usable amount are dropped.
func (a *assembler) flush() {
	b := a.cur
	a.cur = nil
	if b == nil {
		return
	}

	txn := models.Transaction{
		Date:           b.date,
		Description:    strings.Join(b.descParts, " "),
		Balance:        b.balance,
		Reference:      b.reference,
		PageNumber:     b.page,
		Currency:       a.currency,
		AccountSection: a.section,
	}
	if b.cheque != "" {
		txn.IsCheque = true
		if txn.Reference == "" {
			txn.Reference = b.cheque
		}
	}

	switch {
	case b.withdrawal != nil && !b.withdrawal.IsZero():
		txn.TransactionType = models.Debit
		txn.Amount = b.withdrawal.Abs()
	case b.deposit != nil && !b.deposit.IsZero():
		txn.TransactionType = models.Credit
		txn.Amount = b.deposit.Abs()
	default:
		return
	}

	a.txns = append(a.txns, txn)
	a.sectionActive = true
}

func (a *assembler) broughtForward(r row) {
	a.flush()
	if a.pendingSection {
		a.newSection()
	}
	a.emitBalanceRow(models.OpeningBalance, r)
	a.state = stateInTxn
}

func (a *assembler) carriedForward(r row) {
	if a.state == statePastClosing {
		return
	}
	a.flush()
	a.emitBalanceRow(models.ClosingBalance, r)
	a.pendingSection = true
	a.state = statePastClosing
}

func (a *assembler) emitBalanceRow(typ models.TransactionType, r row) {
	amounts := parseAmounts(r)
	bal := amounts.balance
	if bal == nil {
		// Some layouts print the carried/brought amount in an amount
		// column instead of the balance column.
		if amounts.deposit != nil {
			bal = amounts.deposit
		} else if amounts.withdrawal != nil {
			bal = amounts.withdrawal
		}
	}
	if bal == nil {
		return
	}

	a.txns = append(a.txns, models.Transaction{
		Date:            firstDate(r),
		Description:     strings.TrimSpace(r.text),
		TransactionType: typ,
		Amount:          bal.Abs(),
		Balance:         bal,
		PageNumber:      r.page,
		Currency:        a.currency,
		AccountSection:  a.section,
	})
	a.sectionActive = true
}

func firstDate(r row) string {
	if d, ok := normalize.NormalizeDate(r.cells[models.ColTransactionDate]); ok {
		return d
	}
	return ""
}

// currencySignal relabels the current section when it is still empty,
// and opens a new section otherwise.
func (a *assembler) currencySignal(code string) {
	if a.sectionActive {
		a.flush()
		a.newSection()
	}
	a.currency = code
}

func (a *assembler) newSection() {
	a.section++
	a.sectionActive = false
	a.pendingSection = false
	a.state = stateIdle
}

// finish flushes any in-progress builder and returns the assembled list.
func (a *assembler) finish() []models.Transaction {
	a.flush()
	return a.txns
}

// standaloneCurrency reports whether the row is nothing but an ISO
// currency code.
func standaloneCurrency(r row) (string, bool) {
	t := strings.ToUpper(strings.TrimSpace(r.text))
	if aliasmaps.ISOCurrencyCodes[t] {
		return t, true
	}
	return "", false
}

// rowCurrency looks for an ISO code standing alone in a non-description
// cell or among unassigned words.
func rowCurrency(r row) (string, bool) {
	for col, cell := range r.cells {
		if col == models.ColDescription {
			continue
		}
		t := strings.ToUpper(strings.TrimSpace(cell))
		if aliasmaps.ISOCurrencyCodes[t] {
			return t, true
		}
	}
	for _, tok := range r.unassigned {
		t := strings.ToUpper(strings.TrimSpace(tok))
		if aliasmaps.ISOCurrencyCodes[t] {
			return t, true
		}
	}
	return "", false
}
