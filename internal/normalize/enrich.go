package normalize

import (
	"regexp"
	"strings"

	"github.com/insightdelivered/ledgercore/internal/models"
)

// channelKeywords maps description keywords to the fixed channel
// vocabulary. Order matters: the first match wins, so the more
// specific channels come before PAYMENT/TRANSFER.
var channelKeywords = []struct {
	channel  string
	keywords []string
}{
	{"FAST", []string{"FAST "}},
	{"GIRO", []string{"GIRO"}},
	{"ATM", []string{"ATM", "CASH WITHDRAWAL", "CASH DEPOSIT"}},
	{"DEBIT PURCHASE", []string{"DEBIT PURCHASE", "DEBIT CARD", "POS PURCHASE"}},
	{"CHEQUE", []string{"CHEQUE", "CHQ"}},
	{"NETS", []string{"NETS"}},
	{"PayNow", []string{"PAYNOW"}},
	{"REMITTANCE", []string{"REMITTANCE", "TT ", "TELEGRAPHIC"}},
	{"PAYMENT/TRANSFER", []string{"PAYMENT", "TRANSFER", "TRF"}},
}

// categoryKeywords maps description keywords to the fixed 15-category
// vocabulary. First match wins.
var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{"salary_payroll", []string{"SALARY", "PAYROLL", "WAGES", "CPF"}},
	{"rent", []string{"RENT", "RENTAL", "LEASE"}},
	{"utilities", []string{"UTILITIES", "SP SERVICES", "SINGTEL", "STARHUB", "ELECTRICITY", "WATER"}},
	{"food_beverage", []string{"RESTAURANT", "CAFE", "FOOD", "CATERING", "COFFEE"}},
	{"transport", []string{"GRAB", "TAXI", "TRANSPORT", "MRT", "COMFORTDELGRO", "PARKING"}},
	{"tax_government", []string{"IRAS", "TAX", "GST PAYMENT", "GOVT", "GOVERNMENT"}},
	{"insurance", []string{"INSURANCE", "PRUDENTIAL", "AIA ", "NTUC INCOME", "PREMIUM"}},
	{"loan", []string{"LOAN", "INSTALMENT", "INSTALLMENT", "REPAYMENT", "MORTGAGE"}},
	{"fees_charges", []string{"FEE", "CHARGE", "COMMISSION", "SERVICE CHG", "BANK CHARGES", "INTEREST CHARGED"}},
	{"refund", []string{"REFUND", "REVERSAL", "REBATE"}},
	{"supplier_payment", []string{"SUPPLIER", "INVOICE", "INV ", "PURCHASE ORDER"}},
	{"revenue", []string{"SALES", "REVENUE", "COLLECTION", "RECEIPT FROM"}},
	{"purchase", []string{"PURCHASE", "BUY"}},
	{"transfer", []string{"TRANSFER", "TRF", "REMITTANCE", "PAYNOW", "FAST"}},
}

var (
	cashKeywords   = []string{"CASH DEPOSIT", "CASH WITHDRAWAL", "ATM", "CDM", "CASH REBATE"}
	chequeKeywords = []string{"CHEQUE", "CHQ"}

	// refCodePattern strips trailing alphanumeric reference codes when
	// deriving the counterparty from a description.
	refCodePattern = regexp.MustCompile(`\b[A-Z0-9]{8,}\b|\b\d{6,}\b`)
)

// Enrich fills every derived attribute in a single pass:
// channel, counterparty, category, is_cash, is_cheque. Attributes already
// set by an earlier tier (Tier 3's model output carries channel and
// counterparty) are kept.
func Enrich(txns []models.Transaction) {
	for i := range txns {
		t := &txns[i]
		upper := strings.ToUpper(t.Description)

		if t.Channel == "" {
			t.Channel = detectChannel(upper)
		}
		if t.Category == "" {
			t.Category = detectCategory(upper, t.TransactionType)
		}
		if t.Counterparty == "" {
			t.Counterparty = deriveCounterparty(t.Description)
		}
		t.IsCash = containsAny(upper, cashKeywords)
		t.IsCheque = t.IsCheque || containsAny(upper, chequeKeywords)
	}
}

func detectChannel(upper string) string {
	for _, ck := range channelKeywords {
		if containsAny(upper, ck.keywords) {
			return ck.channel
		}
	}
	return ""
}

func detectCategory(upper string, typ models.TransactionType) string {
	for _, ck := range categoryKeywords {
		if containsAny(upper, ck.keywords) {
			return ck.category
		}
	}
	switch typ {
	case models.Credit, models.Debit:
		return "other"
	}
	return ""
}

// deriveCounterparty strips channel keywords and reference codes from the
// description, leaving the other party's name.
func deriveCounterparty(desc string) string {
	s := strings.ToUpper(desc)
	for _, ck := range channelKeywords {
		for _, kw := range ck.keywords {
			s = strings.ReplaceAll(s, strings.TrimSpace(kw), " ")
		}
	}
	s = refCodePattern.ReplaceAllString(s, " ")
	s = strings.Join(strings.Fields(s), " ")
	if len(s) < 3 {
		return ""
	}
	return s
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
