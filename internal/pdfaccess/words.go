package pdfaccess

import (
	"sort"
	"strings"
)

// Word is a single token with its page-coordinate geometry, the unit of
// work for the word-geometry extractor.
type Word struct {
	Text        string
	X0, X1      float64
	Top, Bottom float64
}

// PagesWords returns every page's words in natural reading order,
// indexed by 0-based page number, each word carrying its
// (x0,x1,top,bottom) box. Geometry comes from ledongthuc/pdf's low-level
// Content() stream, kept per-word rather than collapsed into lines so
// the word-geometry extractor can assign words to discovered columns by
// x-midpoint.
func (d *Document) PagesWords() ([][]Word, error) {
	numPages := d.reader.NumPage()
	pages := make([][]Word, 0, numPages)

	for i := 1; i <= numPages; i++ {
		page := d.reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, nil)
			continue
		}
		content := page.Content()

		words := make([]Word, 0, len(content.Text))
		for _, t := range content.Text {
			s := t.S
			if strings.TrimSpace(s) == "" {
				continue
			}
			fontSize := t.FontSize
			if fontSize <= 0 {
				fontSize = 10
			}
			width := t.W
			if width <= 0 {
				// Fall back to a character-count estimate when the
				// library doesn't report glyph width for this run.
				width = float64(len(s)) * fontSize * 0.5
			}
			words = append(words, Word{
				Text:   s,
				X0:     t.X,
				X1:     t.X + width,
				Top:    t.Y + fontSize,
				Bottom: t.Y,
			})
		}

		// Natural reading order: top-to-bottom (descending Y, since PDF Y
		// grows upward), then left-to-right within a row.
		sort.SliceStable(words, func(a, b int) bool {
			if words[a].Bottom != words[b].Bottom {
				return words[a].Bottom > words[b].Bottom
			}
			return words[a].X0 < words[b].X0
		})

		pages = append(pages, words)
	}

	return pages, nil
}

// YMidpoint returns the vertical center of the word's box.
func (w Word) YMidpoint() float64 {
	return (w.Top + w.Bottom) / 2
}

// XMidpoint returns the horizontal center of the word's box — the value
// column assignment tests against a discovered column interval.
func (w Word) XMidpoint() float64 {
	return (w.X0 + w.X1) / 2
}
