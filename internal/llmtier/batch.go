package llmtier

import "strconv"

// pageBatch is a contiguous run of pages submitted to the model in one
// call. Start and End are 0-based positions in the filtered page list
// given to makeBatches (not document page indices), End exclusive.
type pageBatch struct {
	Start, End int
	Text       string
}

// batchSize adapts to text density: denser pages get smaller batches.
func batchSize(meanChars float64) int {
	switch {
	case meanChars > 1500:
		return 2
	case meanChars > 1000:
		return 3
	default:
		return 5
	}
}

// makeBatches slices the filtered pages into overlapping batches: each
// batch shares its first page with the previous batch's last, so a
// transaction split across a page boundary appears whole in at least one
// batch. Deduplication removes the resulting doubles.
func makeBatches(pages []string, pageIndices []int) []pageBatch {
	if len(pages) == 0 {
		return nil
	}

	total := 0
	for _, p := range pages {
		total += len(p)
	}
	size := batchSize(float64(total) / float64(len(pages)))

	var batches []pageBatch
	step := size - 1
	if step < 1 {
		step = 1
	}
	for start := 0; start < len(pages); start += step {
		end := start + size
		if end > len(pages) {
			end = len(pages)
		}
		text := ""
		for i := start; i < end; i++ {
			text += pageHeading(pageIndices[i]) + pages[i] + "\n"
		}
		batches = append(batches, pageBatch{Start: start, End: end, Text: text})
		if end == len(pages) {
			break
		}
	}
	return batches
}

func pageHeading(pageIdx int) string {
	return "--- PAGE " + strconv.Itoa(pageIdx+1) + " ---\n"
}
