package pdfaccess

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/insightdelivered/ledgercore/internal/models"
)

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.pdf"))
	if !errors.Is(err, models.ErrPdfUnreadable) {
		t.Fatalf("expected PdfUnreadable, got %v", err)
	}
}

func TestOpenCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.pdf")
	if err := os.WriteFile(path, []byte("this is not a pdf container"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Open(path)
	if !errors.Is(err, models.ErrPdfUnreadable) {
		t.Fatalf("expected PdfUnreadable, got %v", err)
	}
}
