// Package llmtier implements the Tier-3 language-model extractor:
// page filtering, bank-specific noise stripping, adaptive page batching,
// chat-model JSON extraction (with vision OCR for scanned documents), and
// two-pass deduplication of overlapping batch results.
package llmtier

import (
	"regexp"
	"strings"
)

// skipPatterns identify page regions that carry no transactions: legend /
// transaction-code sheets, terms & conditions, interest-rate schedules
//.
var skipPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)^.*(transaction codes?|code\s+description|legend|abbreviations?).*$`),
	regexp.MustCompile(`(?im)^.*(terms\s*(and|&)\s*conditions|important\s+not(e|ice)s?).*$`),
	regexp.MustCompile(`(?im)^.*interest\s+rates?\s*(schedule|table)?.*$`),
}

var (
	amountPattern = regexp.MustCompile(`\d[\d,]*\.\d{2}`)
	datePattern   = regexp.MustCompile(`(?i)\b\d{1,2}[\s/-]?(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec|\d{1,2}[/-]\d{2,4})`)
)

// skipDominanceRatio is the "dominant" threshold for the page filter: skip a
// page when skip-pattern lines cover more than this share of its text.
const skipDominanceRatio = 0.4

// shouldSkipPage reports whether a page carries no transactions: skipped when
// skip-pattern regions dominate it AND it contains no currency amounts
// and no date patterns.
func shouldSkipPage(text string) bool {
	if amountPattern.MatchString(text) || datePattern.MatchString(text) {
		return false
	}
	total := len(strings.TrimSpace(text))
	if total == 0 {
		return true
	}
	matched := 0
	for _, pat := range skipPatterns {
		for _, m := range pat.FindAllString(text, -1) {
			matched += len(m)
		}
	}
	return float64(matched) > skipDominanceRatio*float64(total)
}

// commonNoise strips boilerplate present across issuers: page numbers and
// deposit-insurance / regulatory footers.
var commonNoise = []*regexp.Regexp{
	regexp.MustCompile(`(?im)^\s*page\s+\d+(\s+of\s+\d+)?\s*$`),
	regexp.MustCompile(`(?im)^.*deposit insurance scheme.*$`),
	regexp.MustCompile(`(?im)^.*insured up to s?\$\d+.*$`),
	regexp.MustCompile(`(?im)^.*co\.?\s*reg\.?\s*no.*$`),
	regexp.MustCompile(`(?im)^.*gst\s*reg(istration)?\.?\s*no.*$`),
	regexp.MustCompile(`(?im)^.*this is a computer[- ]generated.*$`),
	regexp.MustCompile(`(?im)^.*please (examine|verify) this statement.*$`),
}

// bankNoise adds issuer-specific boilerplate on top of commonNoise.
var bankNoise = map[string][]*regexp.Regexp{
	"HSBC": {
		regexp.MustCompile(`(?im)^.*(withdrawals|deposits)\s+[\d,]+\.\d{2}(dr|cr)?\s*as\s*at\s*\S+.*$`),
		regexp.MustCompile(`(?im)^.*hsbc bank \(singapore\) limited.*$`),
	},
	"DBS": {
		regexp.MustCompile(`(?im)^.*dbs bank ltd.*$`),
		regexp.MustCompile(`(?im)^.*marina bay financial centre.*$`),
	},
	"OCBC": {
		regexp.MustCompile(`(?im)^.*oversea-chinese banking corporation.*$`),
	},
	"UOB": {
		regexp.MustCompile(`(?im)^.*united overseas bank limited.*$`),
	},
	"Standard Chartered": {
		regexp.MustCompile(`(?im)^.*standard chartered bank \(singapore\) limited.*$`),
	},
	"Aspire": {
		regexp.MustCompile(`(?im)^.*aspire ft pte\.? ltd.*$`),
	},
	"Airwallex": {
		regexp.MustCompile(`(?im)^.*anext bank pte\.? ltd.*$`),
	},
}

// stripNoise removes boilerplate lines before the page text reaches the
// model, reducing both token cost and hallucination surface.
func stripNoise(text, bank string) string {
	for _, pat := range commonNoise {
		text = pat.ReplaceAllString(text, "")
	}
	for _, pat := range bankNoise[bank] {
		text = pat.ReplaceAllString(text, "")
	}
	// Collapse the blank runs left behind by removed lines.
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
