// Package api is the demo HTTP surface over the extraction core. It is
// not part of the core itself: it exists to exercise the pipeline end to
// end, and persistence of the result remains the caller's concern.
package api

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/insightdelivered/ledgercore/internal/models"
	"github.com/insightdelivered/ledgercore/internal/pipeline"
)

// ExtractResponse is the JSON response from the /api/extract endpoint.
type ExtractResponse struct {
	Success bool                     `json:"success"`
	Error   string                   `json:"error,omitempty"`
	Result  *models.ExtractionResult `json:"result,omitempty"`
}

// Handler holds the HTTP handlers for the API.
type Handler struct {
	Pipeline *pipeline.Pipeline
	Log      *logrus.Logger
}

// RegisterRoutes sets up the API routes.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	apiGroup := app.Group("/api")
	apiGroup.Get("/health", HandleHealth)
	apiGroup.Post("/extract", h.HandleExtract)
}

// HandleHealth reports service liveness.
func HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"engine": "fiber",
	})
}

// HandleExtract accepts a multipart PDF upload, runs the extraction
// pipeline, and returns the full ExtractionResult as JSON.
func (h *Handler) HandleExtract(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ExtractResponse{
			Error: "missing file upload (field name: file)",
		})
	}
	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".pdf") {
		return c.Status(fiber.StatusBadRequest).JSON(ExtractResponse{
			Error: "expected a .pdf upload",
		})
	}

	tmp, err := os.CreateTemp("", "upload-*.pdf")
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ExtractResponse{
			Error: "failed to stage upload",
		})
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := c.SaveFile(fileHeader, tmpPath); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ExtractResponse{
			Error: "failed to save upload",
		})
	}

	result, err := h.Pipeline.Extract(c.UserContext(), tmpPath, bankHint(c.FormValue("bank")))
	if err != nil {
		status := fiber.StatusInternalServerError
		switch {
		case errors.Is(err, models.ErrPdfUnreadable):
			status = fiber.StatusUnprocessableEntity
		case errors.Is(err, models.ErrExtractionFailed):
			status = fiber.StatusUnprocessableEntity
		case errors.Is(err, models.ErrExtractionCancelled):
			status = fiber.StatusRequestTimeout
		}
		if h.Log != nil {
			h.Log.WithError(err).WithField("file", fileHeader.Filename).Warn("extraction failed")
		}
		return c.Status(status).JSON(ExtractResponse{Error: err.Error()})
	}

	return c.JSON(ExtractResponse{Success: true, Result: result})
}

// bankHint turns an optional "bank" form field into a confident layout
// hint, skipping bank identification.
func bankHint(bank string) *models.BankLayout {
	bank = strings.TrimSpace(bank)
	if bank == "" {
		return nil
	}
	return &models.BankLayout{Bank: bank, Confidence: 1.0, Source: models.SourceKeyword}
}
