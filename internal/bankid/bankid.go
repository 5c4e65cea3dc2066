// Package bankid implements the Bank Identifier: a three-step
// cascade — vision logo detection, product-name literal matching, keyword
// matching — that stops at the first confident result.
package bankid

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/insightdelivered/ledgercore/internal/aliasmaps"
	"github.com/insightdelivered/ledgercore/internal/modelclient"
	"github.com/insightdelivered/ledgercore/internal/models"
)

// productNames maps a literal product-line string to the bank that issues
// it.
var productNames = map[string]string{
	"AUTOSAVE ACCOUNT":        "DBS",
	"MULTIPLIER ACCOUNT":      "DBS",
	"GLOBAL SAVINGS ACCOUNT":  "HSBC",
	"EVERYDAY PLUS ACCOUNT":   "OCBC",
	"ONE ACCOUNT":             "UOB",
	"ESAVER ACCOUNT":          "POSB",
	"UNLIMITED":               "CIMB",
	"FASTSAVER":               "Citibank",
	"SAVE UP ACCOUNT":         "Standard Chartered",
}

// keywords lists the literal tokens that identify each bank in body
// text. Short, collision-prone names are matched with word boundaries.
var keywords = map[string][]string{
	"OCBC":               {"OCBC", "Oversea-Chinese Banking"},
	"DBS":                {"DBS Bank", "DBS Ltd", "POSB/DBS"},
	"POSB":               {"POSB"},
	"UOB":                {"United Overseas Bank", "UOB"},
	"Standard Chartered":  {"Standard Chartered"},
	"HSBC":               {"HSBC"},
	"Citibank":           {"Citibank", "Citigroup"},
	"Maybank":            {"Maybank", "Malayan Banking"},
	"CIMB":               {"CIMB"},
	"Bank of China":      {"Bank of China"},
	"ICBC":               {"ICBC", "Industrial and Commercial Bank of China"},
	"GXS":                {"GXS Bank", "GXS"},
	"Trust":              {"Trust Bank"},
	"MariBank":           {"MariBank"},
	"Revolut":            {"Revolut"},
	"Wise":               {"Wise", "TransferWise"},
	"Aspire":             {"Aspire"},
	"Airwallex":          {"Airwallex", "ANEXT Bank", "ANEXT"},
}

// compiledKeywordPatterns holds a word-boundary regex per bank, built once
// at package load, so e.g. "OCBC" never matches inside "OCBCish" — a
// process-wide, read-only table.
var compiledKeywordPatterns = buildKeywordPatterns()

func buildKeywordPatterns() map[string][]*regexp.Regexp {
	out := make(map[string][]*regexp.Regexp, len(keywords))
	for bank, words := range keywords {
		pats := make([]*regexp.Regexp, 0, len(words))
		for _, w := range words {
			pats = append(pats, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(w)+`\b`))
		}
		out[bank] = pats
	}
	return out
}

const (
	visionConfidence  = 0.9
	productConfidence = 0.85
	keywordConfidence = 0.6

	// visionTimeout is the logo-detection call's own deadline.
	visionTimeout = 60 * time.Second
)

// Identify runs the three-step cascade. page1Image is the top-20%-cropped
// raster of page 1 (nil skips vision); firstThreePages is the joined text
// of pages 1-3 (product-name + keyword matching).
func Identify(ctx context.Context, vision modelclient.VisionClient, page1Image []byte, firstThreePages string) models.BankLayout {
	if vision != nil && page1Image != nil {
		if layout, ok := identifyByVision(ctx, vision, page1Image); ok {
			return layout
		}
	}

	if layout, ok := identifyByProduct(firstThreePages); ok {
		return layout
	}

	if layout, ok := identifyByKeyword(firstThreePages); ok {
		return layout
	}

	return models.BankLayout{Bank: "unknown", Confidence: 0, Source: models.SourceKeyword}
}

var visionPrompt = "You are looking at the top portion of a bank statement. " +
	"Identify the issuing bank from its logo or letterhead. Respond with exactly " +
	"one name from this list, and nothing else: " + strings.Join(aliasmaps.KnownBanks, ", ") + ", unknown."

func identifyByVision(ctx context.Context, vision modelclient.VisionClient, page1Image []byte) (models.BankLayout, bool) {
	callCtx, cancel := context.WithTimeout(ctx, visionTimeout)
	defer cancel()
	reply, err := vision.AnalyzeImage(callCtx, page1Image, visionPrompt)
	if err != nil {
		return models.BankLayout{}, false
	}
	reply = strings.TrimSpace(reply)
	for _, bank := range aliasmaps.KnownBanks {
		if strings.EqualFold(reply, bank) {
			return models.BankLayout{Bank: bank, Confidence: visionConfidence, Source: models.SourceVision}, true
		}
	}
	return models.BankLayout{}, false
}

func identifyByProduct(text string) (models.BankLayout, bool) {
	upper := strings.ToUpper(text)
	for product, bank := range productNames {
		if strings.Contains(upper, product) {
			return models.BankLayout{Bank: bank, Confidence: productConfidence, Source: models.SourceProduct}, true
		}
	}
	return models.BankLayout{}, false
}

func identifyByKeyword(text string) (models.BankLayout, bool) {
	for _, bank := range aliasmaps.KnownBanks {
		for _, pat := range compiledKeywordPatterns[bank] {
			if pat.MatchString(text) {
				return models.BankLayout{Bank: bank, Confidence: keywordConfidence, Source: models.SourceKeyword}, true
			}
		}
	}
	return models.BankLayout{}, false
}
