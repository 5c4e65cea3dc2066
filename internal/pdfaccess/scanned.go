package pdfaccess

import "strings"

// scannedCharThreshold is the mean extractable-character-count-per-page
// below which a document is treated as scanned.
const scannedCharThreshold = 20

// IsScanned reports whether the document is a scan: a document is scanned
// iff the mean extractable character count per page is below
// scannedCharThreshold. Scanned PDFs route directly to Tier 3 with vision
// OCR rather than through Tiers 1/2, which depend on a usable text/word
// layer.
func IsScanned(pagesText []string) bool {
	if len(pagesText) == 0 {
		return true
	}
	total := 0
	for _, p := range pagesText {
		total += len(strings.TrimSpace(p))
	}
	mean := float64(total) / float64(len(pagesText))
	return mean < scannedCharThreshold
}
