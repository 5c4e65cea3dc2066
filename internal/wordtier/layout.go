// Package wordtier implements the Tier-2 word-geometry extractor:
// it discovers a column layout from a header row, assigns words to columns
// by x-midpoint, and assembles rows with a small state machine. It is the
// tier of last resort before language-model fallback, and carries the
// per-bank quirks (HSBC date grammar and DR suffix, Aspire dash policy,
// bilingual header stripping) that make borderless statements readable.
package wordtier

import (
	"sort"
	"strings"

	"github.com/insightdelivered/ledgercore/internal/aliasmaps"
	"github.com/insightdelivered/ledgercore/internal/models"
	"github.com/insightdelivered/ledgercore/internal/pdfaccess"
)

const (
	// bandTolerance groups words into the same y-band.
	bandTolerance = 4.0

	// headerSpanLimit caps how far a header candidate may merge adjacent
	// bands, allowing multi-line headers like "Balance\n(SGD)".
	headerSpanLimit = 16.0

	// cellGap is the horizontal gap that separates two header cells
	// within a candidate band.
	cellGap = 12.0
)

// band is a group of words sharing a y-band. Y grows upward in page
// coordinates, so the first band is the top of the page.
type band struct {
	words []pdfaccess.Word
	yMin  float64 // bottom edge
	yMax  float64 // top edge
}

func (b band) text() string {
	parts := make([]string, 0, len(b.words))
	for _, w := range b.words {
		parts = append(parts, w.Text)
	}
	return strings.Join(parts, " ")
}

// bandWords groups a page's words (already in reading order) into y-bands
// with a 4-point tolerance.
func bandWords(words []pdfaccess.Word) []band {
	var bands []band
	var cur band

	for _, w := range words {
		y := w.YMidpoint()
		if len(cur.words) == 0 {
			cur = band{words: []pdfaccess.Word{w}, yMin: w.Bottom, yMax: w.Top}
			continue
		}
		curMid := (cur.yMin + cur.yMax) / 2
		if abs(y-curMid) <= bandTolerance {
			cur.words = append(cur.words, w)
			if w.Bottom < cur.yMin {
				cur.yMin = w.Bottom
			}
			if w.Top > cur.yMax {
				cur.yMax = w.Top
			}
			continue
		}
		bands = append(bands, sorted(cur))
		cur = band{words: []pdfaccess.Word{w}, yMin: w.Bottom, yMax: w.Top}
	}
	if len(cur.words) > 0 {
		bands = append(bands, sorted(cur))
	}
	return bands
}

func sorted(b band) band {
	sort.SliceStable(b.words, func(i, j int) bool {
		return b.words[i].X0 < b.words[j].X0
	})
	return b
}

// headerCell is one x-cluster of header words with its resolved canonical
// column name.
type headerCell struct {
	canon  string
	x0, x1 float64
}

// discoverLayout scores every header candidate on the page and returns the
// winning ColumnLayout, or ok=false when no valid candidate exists and the
// caller should inherit the nearest preceding page's layout.
func discoverLayout(bands []band, pageWidth float64) (models.ColumnLayout, bool) {
	best := models.ColumnLayout{}
	bestScore := 0

	for i := range bands {
		candidate := mergeBands(bands, i)
		cells, score := scoreCandidate(candidate)
		if score <= bestScore {
			continue
		}
		if !validCells(cells) {
			continue
		}
		best = buildLayout(cells, candidate, pageWidth)
		bestScore = score
	}

	return best, bestScore > 0
}

// mergeBands merges band i with following bands while each line's
// baseline stays within headerSpanLimit of band i's.
func mergeBands(bands []band, i int) band {
	merged := bands[i]
	anchor := bands[i].yMin
	for j := i + 1; j < len(bands); j++ {
		next := bands[j]
		if anchor-next.yMin > headerSpanLimit {
			break
		}
		merged = band{
			words: append(append([]pdfaccess.Word{}, merged.words...), next.words...),
			yMin:  next.yMin,
			yMax:  merged.yMax,
		}
	}
	return merged
}

// scoreCandidate clusters a candidate's words by x-overlap (so a two-line
// header like "Balance" over "(SGD)" lands in one cell), resolves each
// cluster through the word-geometry alias map, and scores +1 per
// recognized cluster. Non-ASCII characters (bilingual headers) are
// stripped before scoring, never during data capture.
func scoreCandidate(b band) ([]headerCell, int) {
	clusters := clusterByX(b.words)

	var cells []headerCell
	score := 0
	for _, cl := range clusters {
		text := stripNonASCII(cl.text())
		canon := aliasmaps.LookupWordColumn(text)
		if canon == "" {
			// A multi-line cell may only resolve via its first line
			// ("Balance" over "(SGD)").
			fields := strings.Fields(text)
			for _, f := range fields {
				if c := aliasmaps.LookupWordColumn(f); c != "" {
					canon = c
					break
				}
			}
		}
		if canon == "" {
			continue
		}
		score++
		cells = append(cells, headerCell{canon: canon, x0: cl.x0, x1: cl.x1})
	}
	return cells, score
}

type xCluster struct {
	words  []pdfaccess.Word
	x0, x1 float64
}

func (c xCluster) text() string {
	parts := make([]string, 0, len(c.words))
	for _, w := range c.words {
		parts = append(parts, w.Text)
	}
	return strings.Join(parts, " ")
}

// clusterByX groups words whose x-ranges overlap or sit within cellGap of
// each other, regardless of which merged band line they came from.
func clusterByX(words []pdfaccess.Word) []xCluster {
	if len(words) == 0 {
		return nil
	}
	ws := append([]pdfaccess.Word{}, words...)
	sort.SliceStable(ws, func(i, j int) bool { return ws[i].X0 < ws[j].X0 })

	var clusters []xCluster
	cur := xCluster{words: []pdfaccess.Word{ws[0]}, x0: ws[0].X0, x1: ws[0].X1}
	for _, w := range ws[1:] {
		if w.X0-cur.x1 <= cellGap {
			cur.words = append(cur.words, w)
			if w.X1 > cur.x1 {
				cur.x1 = w.X1
			}
			continue
		}
		clusters = append(clusters, cur)
		cur = xCluster{words: []pdfaccess.Word{w}, x0: w.X0, x1: w.X1}
	}
	clusters = append(clusters, cur)
	return clusters
}

// validCells enforces the ColumnLayout invariant: at least one amount
// column and a balance column.
func validCells(cells []headerCell) bool {
	hasAmount, hasBalance := false, false
	for _, c := range cells {
		switch c.canon {
		case models.ColWithdrawal, models.ColDeposit:
			hasAmount = true
		case models.ColBalance:
			hasBalance = true
		}
	}
	return hasAmount && hasBalance
}

// buildLayout converts header cells into column intervals: the boundary
// between adjacent columns is the midpoint of the gap between them, and
// the outermost intervals extend to the page margins.
func buildLayout(cells []headerCell, header band, pageWidth float64) models.ColumnLayout {
	sort.SliceStable(cells, func(i, j int) bool { return cells[i].x0 < cells[j].x0 })

	layout := models.ColumnLayout{
		Columns: make(map[string]models.Interval, len(cells)),
		YMin:    header.yMin,
		YMax:    header.yMax,
	}

	for i, c := range cells {
		iv := models.Interval{X0: 0, X1: pageWidth}
		if i > 0 {
			iv.X0 = (cells[i-1].x1 + c.x0) / 2
		}
		if i < len(cells)-1 {
			iv.X1 = (c.x1 + cells[i+1].x0) / 2
		}
		if _, taken := layout.Columns[c.canon]; !taken {
			layout.Columns[c.canon] = iv
		}
	}
	return layout
}

func stripNonASCII(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < 128 {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
