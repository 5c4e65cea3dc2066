package pdfaccess

import (
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// PagesText returns every page's decoded text with preserved line
// breaks, indexed by 0-based page number. It tries the
// structured library first (best layout preservation), then falls back to
// raw content-stream parsing, then to the external pdftotext command —
// each rung only running when the previous one produced garbage.
func (d *Document) PagesText() ([]string, error) {
	if d.textCache != nil {
		return d.textCache, nil
	}

	pages, libErr := d.extractWithLibrary()
	if libErr == nil && isReadableText(pages) {
		d.textCache = pages
		return pages, nil
	}

	rawPages, rawErr := extractTextRaw(d.path)
	if rawErr == nil && isReadableText(rawPages) {
		d.textCache = rawPages
		return rawPages, nil
	}

	popplerPages, popplerErr := extractWithPdftotext(d.path)
	if popplerErr == nil && isReadableText(popplerPages) {
		d.textCache = popplerPages
		return popplerPages, nil
	}

	// All methods failed to produce readable text. This is not itself a
	// PdfUnreadable condition — the caller (pipeline orchestrator) treats
	// an empty/garbage text layer as a scanned-document signal and routes
	// to Tier 3 with vision OCR.
	if libErr != nil {
		return nil, fmt.Errorf("pdf text extraction produced no readable content: %w", libErr)
	}
	return pages, nil
}

// commonWords that appear in virtually all bank statements; used to
// reject binary garbage masquerading as text.
var commonWords = []string{
	"bank", "account", "balance", "date", "payment", "statement",
	"total", "amount", "credit", "debit", "transaction", "sort code",
	"money", "paid", "opening", "closing", "transfer", "direct",
	"number", "page", "period",
}

func containsCommonWords(pages []string) bool {
	combined := strings.ToLower(strings.Join(pages, " "))
	for _, word := range commonWords {
		if strings.Contains(combined, word) {
			return true
		}
	}
	return false
}

func textQuality(pages []string) float64 {
	total, readable := 0, 0
	for _, page := range pages {
		for _, r := range page {
			total++
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
				(r >= '0' && r <= '9') || unicode.IsSpace(r) ||
				r == '.' || r == ',' || r == '-' || r == '/' || r == ':' ||
				r == ';' || r == '(' || r == ')' || r == '\'' || r == '"' ||
				r == '£' || r == '$' || r == '€' || r == '%' || r == '&' ||
				r == '@' || r == '#' || r == '!' || r == '?' || r == '+' ||
				r == '=' || r == '*' || r == '\t' {
				readable++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(readable) / float64(total)
}

func totalTextLen(pages []string) int {
	n := 0
	for _, p := range pages {
		n += len(strings.TrimSpace(p))
	}
	return n
}

func isReadableText(pages []string) bool {
	if totalTextLen(pages) <= 50 {
		return false
	}
	if textQuality(pages) <= 0.6 {
		return false
	}
	return containsCommonWords(pages)
}

func extractWithPdftotext(filePath string) ([]string, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return nil, fmt.Errorf("pdftotext not available: %v", err)
	}

	numPages := 1
	if out, err := exec.Command("pdfinfo", filePath).Output(); err == nil {
		for _, line := range strings.Split(string(out), "\n") {
			if strings.HasPrefix(line, "Pages:") {
				if n, parseErr := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Pages:"))); parseErr == nil && n > 0 {
					numPages = n
				}
			}
		}
	}

	var pages []string
	for i := 1; i <= numPages; i++ {
		pageStr := strconv.Itoa(i)
		out, err := exec.Command("pdftotext", "-layout", "-f", pageStr, "-l", pageStr, filePath, "-").Output()
		if err != nil {
			continue
		}
		if text := strings.TrimSpace(string(out)); text != "" {
			pages = append(pages, text)
		}
	}

	if len(pages) == 0 {
		out, err := exec.Command("pdftotext", "-layout", filePath, "-").Output()
		if err != nil {
			return nil, fmt.Errorf("pdftotext failed: %v", err)
		}
		if text := strings.TrimSpace(string(out)); text != "" {
			return []string{text}, nil
		}
		return nil, fmt.Errorf("pdftotext produced no output")
	}

	return pages, nil
}

func (d *Document) extractWithLibrary() (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf library crashed: %v", r)
		}
	}()

	numPages := d.reader.NumPage()

	pages = d.extractByRow(numPages)
	if isReadableText(pages) {
		return pages, nil
	}

	pages = d.extractByPagePlainText(numPages)
	if isReadableText(pages) {
		return pages, nil
	}

	plainText := d.extractByReaderPlainText()
	if isReadableText([]string{plainText}) {
		return []string{plainText}, nil
	}

	return pages, nil
}

func (d *Document) extractByRow(numPages int) []string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := d.reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		var lines []string
		for _, row := range rows {
			var parts []string
			for _, word := range row.Content {
				parts = append(parts, word.S)
			}
			if line := strings.TrimSpace(strings.Join(parts, " ")); line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

func (d *Document) extractByPagePlainText(numPages int) []string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := d.reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		fontNames := page.Fonts()
		fonts := make(map[string]*pdf.Font)
		for _, name := range fontNames {
			f := page.Font(name)
			fonts[name] = &f
		}
		text, err := page.GetPlainText(fonts)
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}
	return pages
}

func (d *Document) extractByReaderPlainText() string {
	reader, err := d.reader.GetPlainText()
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
