package pdfaccess

import (
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"

	"github.com/insightdelivered/ledgercore/internal/models"
)

// Document is a single-owner handle on an open PDF. It exposes
// the four read-only page capabilities: text, words, tables, raster.
type Document struct {
	path   string
	file   *os.File
	reader *pdf.Reader

	textCache []string
}

// Open reads filePath and validates that it is a usable PDF container. It
// returns *models.PdfUnreadableError when the file is encrypted without the
// correct key, structurally corrupt, or has zero pages.
func Open(filePath string) (doc *Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = &models.PdfUnreadableError{Cause: fmt.Errorf("pdf library panicked: %v", r)}
		}
	}()

	if _, statErr := os.Stat(filePath); statErr != nil {
		return nil, &models.PdfUnreadableError{Cause: statErr}
	}

	f, r, openErr := pdf.Open(filePath)
	if openErr != nil {
		return nil, &models.PdfUnreadableError{Cause: openErr}
	}

	if r.NumPage() == 0 {
		f.Close()
		return nil, &models.PdfUnreadableError{Cause: fmt.Errorf("document has zero pages")}
	}

	return &Document{path: filePath, file: f, reader: r}, nil
}

// Close releases the underlying file handle.
func (d *Document) Close() error {
	if d.file == nil {
		return nil
	}
	return d.file.Close()
}

// NumPages returns the page count.
func (d *Document) NumPages() int {
	return d.reader.NumPage()
}

// Path returns the source file path.
func (d *Document) Path() string {
	return d.path
}
