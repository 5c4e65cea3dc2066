package wordtier

import (
	"github.com/insightdelivered/ledgercore/internal/models"
	"github.com/insightdelivered/ledgercore/internal/pdfaccess"
)

// minTransactions is the abandonment criterion: fewer than this across
// all pages means Tier 2 returns empty and Tier 3 takes over.
const minTransactions = 3

// Extract runs column-layout discovery, word-to-column assignment, and row
// assembly over every page's words. Pages without a recognizable header
// row inherit the nearest preceding page's layout; pages before any layout
// has been discovered are skipped. Returns nil when fewer than three
// transactions were assembled.
func Extract(wordPages [][]pdfaccess.Word, bank string) []models.Transaction {
	asm := newAssembler(bank)

	var cached models.ColumnLayout
	haveLayout := false

	for pageIdx, words := range wordPages {
		if len(words) == 0 {
			continue
		}
		bands := bandWords(words)
		pageWidth := maxX1(words)

		layout, found := discoverLayout(bands, pageWidth)
		if found {
			cached = layout
			haveLayout = true
		}
		if !haveLayout {
			continue
		}

		for _, b := range bands {
			if found && b.yMax > cached.YMin-0.5 {
				// At or above the header span on the page that declared
				// it: column titles, bank letterhead, account header.
				continue
			}
			asm.feed(buildRow(b, cached, pageIdx+1))
		}
	}

	txns := asm.finish()
	if len(txns) < minTransactions {
		return nil
	}
	return orientByChain(txns)
}

func maxX1(words []pdfaccess.Word) float64 {
	max := 0.0
	for _, w := range words {
		if w.X1 > max {
			max = w.X1
		}
	}
	return max
}
