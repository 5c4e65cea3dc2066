// Package normalize implements the Normalizer & Validator: date and
// amount grammar normalization, currency-section segmentation, balance-
// chain validation, weighted accuracy scoring, and transaction enrichment.
//
// NormalizeDate and ParseAmount are also called directly by Tiers 1-3
// while they assemble transactions: both normalize a field already
// isolated by column or JSON structure rather than hunting through
// free text.
package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var monthsByIndex = [...]string{
	"JAN", "FEB", "MAR", "APR", "MAY", "JUN",
	"JUL", "AUG", "SEP", "OCT", "NOV", "DEC",
}

var monthSet = func() map[string]bool {
	m := make(map[string]bool, len(monthsByIndex))
	for _, mo := range monthsByIndex {
		m[mo] = true
	}
	return m
}()

// DateGrammar matches a normalized "DD MMM" date.
var DateGrammar = regexp.MustCompile(`^([0-3][0-9]) (JAN|FEB|MAR|APR|MAY|JUN|JUL|AUG|SEP|OCT|NOV|DEC)$`)

var (
	dashGrammar    = regexp.MustCompile(`(?i)^(\d{1,2})-([A-Za-z]{3,})-(\d{2,4})$`)
	spaceGrammar   = regexp.MustCompile(`(?i)^(\d{1,2})\s+([A-Za-z]{3,})\s+(\d{2,4})$`)
	slashGrammar   = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2,4})$`)
	compactGrammar = regexp.MustCompile(`(?i)^(\d{1,2})([A-Za-z]{3})(\d{4})$`)
	canonGrammar   = regexp.MustCompile(`(?i)^(\d{1,2})\s+([A-Za-z]{3})$`)
)

var numericMonthNames = [...]string{
	"", "JAN", "FEB", "MAR", "APR", "MAY", "JUN", "JUL", "AUG", "SEP", "OCT", "NOV", "DEC",
}

// NormalizeDate accepts the five supported date grammars and always
// emits the canonical "DD MMM" form (uppercase month, zero-padded day). It returns
// "", false for unparseable input — the row is retained by the caller only
// if another field identifies it as a dateless sub-transaction.
func NormalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}

	if m := canonGrammar.FindStringSubmatch(s); m != nil {
		day, mon := m[1], strings.ToUpper(m[2])
		if monthSet[mon] {
			return pad2(day) + " " + mon, true
		}
	}

	if m := dashGrammar.FindStringSubmatch(s); m != nil {
		return fromDayMonthName(m[1], m[2])
	}

	if m := spaceGrammar.FindStringSubmatch(s); m != nil {
		return fromDayMonthName(m[1], m[2])
	}

	if m := compactGrammar.FindStringSubmatch(s); m != nil {
		return fromDayMonthName(m[1], m[2])
	}

	if m := slashGrammar.FindStringSubmatch(s); m != nil {
		day, month := m[1], m[2]
		mi, err := strconv.Atoi(month)
		if err != nil || mi < 1 || mi > 12 {
			return "", false
		}
		return pad2(day) + " " + numericMonthNames[mi], true
	}

	return "", false
}

func fromDayMonthName(day, monthName string) (string, bool) {
	mon := strings.ToUpper(monthName)
	if len(mon) > 3 {
		mon = mon[:3]
	}
	if !monthSet[mon] {
		return "", false
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return "", false
	}
	return pad2(day) + " " + mon, true
}

func pad2(day string) string {
	d, err := strconv.Atoi(day)
	if err != nil {
		return day
	}
	return strconv.Itoa(100 + d)[1:]
}

var (
	amountCurrencyStrip = strings.NewReplacer(
		"£", "", "£", "", "$", "", "€", "", "€", "",
		",", "", " ", "", " ", "",
	)
	drSuffix = regexp.MustCompile(`(?i)DR$`)
)

// ParseAmount strips thousands-separator commas, treats parentheses as
// negation, treats a bare "-" as empty (Aspire convention, returning
// ok=false rather than zero), and — when allowDR is true, valid only for
// the balance column in word-geometry mode — accepts a trailing "DR"
// suffix and negates.
func ParseAmount(raw string, allowDR bool) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, false
	}
	if s == "-" || s == "–" {
		// Aspire convention: bare dash means "empty", not zero.
		return decimal.Zero, false
	}

	negative := false
	if allowDR && drSuffix.MatchString(s) {
		negative = true
		s = drSuffix.ReplaceAllString(s, "")
	}

	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	s = amountCurrencyStrip.Replace(s)
	if s == "" {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}
