package pdfaccess

import "strings"

// Table is a grid of cell strings, one slice per row; rows may differ in
// length. Consumers accept cells with embedded newlines, but the grids
// PagesTables synthesizes never contain them: each word-geometry line
// becomes its own row.
type Table [][]string

// rowBandTolerance groups words into the same row when their vertical
// midpoints fall within this many points of each other.
const rowBandTolerance = 4.0

// columnGapThreshold is the minimum horizontal gap between two
// horizontally-adjacent words, in page points, before they are treated as
// belonging to different columns.
const columnGapThreshold = 12.0

// PagesTables returns each page's content as a rectangular grid. In the
// absence of explicit ruling information (the PDF libraries available in
// this stack do not expose vector line segments), a table is synthesized
// per page by banding words into rows and clustering each row into cells
// by horizontal gap — the same geometric reasoning Tier 2 uses to
// discover a ColumnLayout, but collapsed here into a plain string grid so
// Tier 1 can run its alias-map contract against it without depending on
// Tier 2's column-interval machinery.
func (d *Document) PagesTables() ([]Table, error) {
	wordPages, err := d.PagesWords()
	if err != nil {
		return nil, err
	}

	tables := make([]Table, len(wordPages))
	for i, words := range wordPages {
		tables[i] = synthesizeTable(words)
	}
	return tables, nil
}

func synthesizeTable(words []Word) Table {
	if len(words) == 0 {
		return nil
	}

	rows := bandIntoRows(words)
	table := make(Table, 0, len(rows))
	for _, row := range rows {
		table = append(table, clusterIntoCells(row))
	}
	return table
}

// bandIntoRows groups words sharing a y-band, preserving the top-to-bottom
// order PagesWords already sorted them into.
func bandIntoRows(words []Word) [][]Word {
	var rows [][]Word
	var current []Word
	var bandY float64

	for _, w := range words {
		y := w.YMidpoint()
		if len(current) == 0 {
			current = []Word{w}
			bandY = y
			continue
		}
		if abs(y-bandY) <= rowBandTolerance {
			current = append(current, w)
			// Recompute the band's running average to tolerate drift
			// across a wide row.
			bandY = (bandY*float64(len(current)-1) + y) / float64(len(current))
			continue
		}
		rows = append(rows, current)
		current = []Word{w}
		bandY = y
	}
	if len(current) > 0 {
		rows = append(rows, current)
	}
	return rows
}

// clusterIntoCells splits a single row of words (already left-to-right
// ordered by PagesWords) into cells at any gap exceeding
// columnGapThreshold.
func clusterIntoCells(row []Word) []string {
	if len(row) == 0 {
		return nil
	}

	var cells []string
	var cur []string
	prevX1 := row[0].X0

	for _, w := range row {
		if len(cur) > 0 && w.X0-prevX1 > columnGapThreshold {
			cells = append(cells, strings.Join(cur, " "))
			cur = nil
		}
		cur = append(cur, w.Text)
		prevX1 = w.X1
	}
	if len(cur) > 0 {
		cells = append(cells, strings.Join(cur, " "))
	}
	return cells
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
