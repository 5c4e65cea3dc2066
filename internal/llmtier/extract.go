package llmtier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/insightdelivered/ledgercore/internal/modelclient"
	"github.com/insightdelivered/ledgercore/internal/models"
	"github.com/insightdelivered/ledgercore/internal/normalize"
)

const (
	visionTimeout = 60 * time.Second
	chatTimeout   = 120 * time.Second

	// batchRetries is how many times a failed batch is retried before it
	// is marked failed and the remaining batches continue.
	batchRetries = 2

	renderDPI = 200
)

// PageRenderer rasterizes one page for the vision OCR path; satisfied by
// *pdfaccess.Document.
type PageRenderer interface {
	RenderPage(page int, dpi int) ([]byte, error)
}

// Input is everything Tier 3 needs from the earlier pipeline stages.
type Input struct {
	PagesText []string
	Scanned   bool
	Renderer  PageRenderer
	Bank      string
}

// BatchDiagnostic records one batch that failed after retries; surfaced to
// the caller for logging, never fatal while other batches succeed.
type BatchDiagnostic struct {
	Batch     int
	FirstPage int
	LastPage  int
	Err       error
}

// Result is the Tier-3 output: deduplicated transactions plus per-batch
// failure diagnostics.
type Result struct {
	Transactions []models.Transaction
	Diagnostics  []BatchDiagnostic
}

// Extractor drives the chat (and, for scanned documents, vision) model.
type Extractor struct {
	Chat   modelclient.ChatClient
	Vision modelclient.VisionClient
	Log    *logrus.Entry
}

// Extract runs the full fallback tier: OCR substitution for scanned
// documents, page filtering, noise stripping, adaptive overlapping
// batches, per-batch JSON extraction with bounded retries, and two-pass
// deduplication. Rows the model emits that fail the date grammar or the
// sign constraints are rejected: the model is an untrusted producer.
func (e *Extractor) Extract(ctx context.Context, in Input) (Result, error) {
	log := e.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	pages := in.PagesText
	if in.Scanned {
		ocr, err := e.ocrPages(ctx, in)
		if err != nil {
			return Result{}, err
		}
		pages = ocr
	}

	var (
		kept    []string
		indices []int
	)
	for i, p := range pages {
		if shouldSkipPage(p) {
			log.WithField("page", i+1).Debug("skipping non-transaction page")
			continue
		}
		kept = append(kept, stripNoise(p, in.Bank))
		indices = append(indices, i)
	}

	batches := makeBatches(kept, indices)
	if len(batches) == 0 {
		return Result{}, &models.ExtractionFailedError{}
	}

	var res Result
	succeeded := 0
	for bi, batch := range batches {
		txns, err := e.extractBatch(ctx, batch, in.Bank)
		if err != nil {
			if cancelled(ctx, err) {
				return Result{}, &models.ExtractionCancelledError{Stage: "llm batch", Cause: err}
			}
			log.WithFields(logrus.Fields{"batch": bi, "error": err}).Warn("batch failed after retries")
			res.Diagnostics = append(res.Diagnostics, BatchDiagnostic{
				Batch:     bi,
				FirstPage: indices[batch.Start] + 1,
				LastPage:  indices[batch.End-1] + 1,
				Err:       err,
			})
			continue
		}
		succeeded++
		res.Transactions = append(res.Transactions, txns...)
	}

	if succeeded == 0 {
		return Result{}, &models.ExtractionFailedError{}
	}

	res.Transactions = Deduplicate(res.Transactions)
	return res, nil
}

// ocrPages replaces each page's text with vision-OCR output.
func (e *Extractor) ocrPages(ctx context.Context, in Input) ([]string, error) {
	if e.Vision == nil || in.Renderer == nil {
		return nil, &models.ExtractionFailedError{}
	}

	out := make([]string, len(in.PagesText))
	for i := range in.PagesText {
		img, err := in.Renderer.RenderPage(i+1, renderDPI)
		if err != nil {
			return nil, fmt.Errorf("render page %d for OCR: %w", i+1, err)
		}

		callCtx, cancel := context.WithTimeout(ctx, visionTimeout)
		text, err := e.Vision.AnalyzeImage(callCtx, img, ocrPrompt)
		cancel()
		if err != nil {
			if cancelled(ctx, err) {
				return nil, &models.ExtractionCancelledError{Stage: "vision ocr", Cause: err}
			}
			return nil, fmt.Errorf("vision ocr page %d: %w", i+1, err)
		}
		out[i] = text
	}
	return out, nil
}

const ocrPrompt = `Transcribe all text on this bank statement page exactly as printed.
Preserve the line structure and keep each transaction row on its own line,
with date, description, amounts, and balance in their printed order.
Output plain text only.`

const extractionPrompt = `You are extracting transactions from bank statement text.
Return a JSON array only — no prose, no markdown fences. One object per transaction:
{
  "date": "DD MMM" (e.g. "05 SEP"; uppercase three-letter month),
  "description": string,
  "transaction_type": "credit" | "debit" | "opening_balance" | "closing_balance",
  "amount": number (non-negative),
  "balance": number or null (the running balance after this transaction; negative if overdrawn),
  "reference": string or null,
  "counterparty": string or null (the other party, with channel keywords and reference codes stripped),
  "channel": one of "FAST","GIRO","ATM","DEBIT PURCHASE","CHEQUE","NETS","PayNow","PAYMENT/TRANSFER","REMITTANCE" or null,
  "currency": ISO code, default "SGD",
  "page_number": integer from the --- PAGE N --- markers
}
Include BALANCE BROUGHT FORWARD rows as "opening_balance" and BALANCE CARRIED
FORWARD rows as "closing_balance", with the balance value in both "amount" and
"balance". Skip summary totals, legends, and boilerplate. Return [] if the text
contains no transactions.`

// extractBatch submits one batch with bounded retries and parses the reply.
func (e *Extractor) extractBatch(ctx context.Context, batch pageBatch, bank string) ([]models.Transaction, error) {
	messages := []modelclient.ChatMessage{
		{Role: "system", Content: extractionPrompt},
		{Role: "user", Content: "Bank: " + bank + "\n\n" + batch.Text},
	}

	var lastErr error
	for attempt := 0; attempt <= batchRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		callCtx, cancel := context.WithTimeout(ctx, chatTimeout)
		reply, err := e.Chat.Chat(callCtx, messages)
		cancel()
		if err != nil {
			lastErr = err
			if cancelled(ctx, err) {
				return nil, err
			}
			continue
		}

		txns, err := parseReply(reply)
		if err != nil {
			lastErr = err
			continue
		}
		return txns, nil
	}
	return nil, lastErr
}

func cancelled(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled)
}

// wireTransaction is the untrusted JSON shape the model emits. Absent
// fields adopt their zero defaults.
type wireTransaction struct {
	Date            string           `json:"date"`
	Description     string           `json:"description"`
	TransactionType string           `json:"transaction_type"`
	Amount          *decimal.Decimal `json:"amount"`
	Balance         *decimal.Decimal `json:"balance"`
	Reference       string           `json:"reference"`
	Counterparty    string           `json:"counterparty"`
	Channel         string           `json:"channel"`
	Currency        string           `json:"currency"`
	PageNumber      int              `json:"page_number"`
}

// parseReply decodes the model's reply strictly, repairing near-valid JSON
// (models routinely emit trailing commas or markdown fences) only when the
// strict decode fails, then validates every row against the schema
// constraints.
func parseReply(reply string) ([]models.Transaction, error) {
	raw := extractJSONArray(reply)
	if raw == "" {
		return nil, fmt.Errorf("no JSON array in model reply")
	}

	var wire []wireTransaction
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		repaired, repErr := jsonrepair.RepairJSON(raw)
		if repErr != nil {
			return nil, fmt.Errorf("unparseable model reply: %w", err)
		}
		if err := json.Unmarshal([]byte(repaired), &wire); err != nil {
			return nil, fmt.Errorf("unparseable model reply after repair: %w", err)
		}
	}

	txns := make([]models.Transaction, 0, len(wire))
	for _, w := range wire {
		if t, ok := validateWire(w); ok {
			txns = append(txns, t)
		}
	}
	return txns, nil
}

// extractJSONArray trims prose and markdown fences around the first
// top-level JSON array in the reply.
func extractJSONArray(reply string) string {
	start := strings.Index(reply, "[")
	end := strings.LastIndex(reply, "]")
	if start < 0 || end <= start {
		return ""
	}
	return reply[start : end+1]
}

// validateWire enforces the schema constraints on an untrusted row: the date
// must satisfy the DD MMM grammar (after normalization), the type must be
// one of the four known values, and the amount must be non-negative.
func validateWire(w wireTransaction) (models.Transaction, bool) {
	date, ok := normalize.NormalizeDate(w.Date)
	if !ok {
		return models.Transaction{}, false
	}

	var typ models.TransactionType
	switch strings.ToLower(strings.TrimSpace(w.TransactionType)) {
	case "credit":
		typ = models.Credit
	case "debit":
		typ = models.Debit
	case "opening_balance":
		typ = models.OpeningBalance
	case "closing_balance":
		typ = models.ClosingBalance
	default:
		return models.Transaction{}, false
	}

	if w.Amount == nil || w.Amount.IsNegative() {
		// Sign is encoded by transaction_type; a negative amount breaks
		// the non-negative constraint and the row is rejected.
		return models.Transaction{}, false
	}
	amount := *w.Amount

	currency := strings.ToUpper(strings.TrimSpace(w.Currency))
	if currency == "" {
		currency = "SGD"
	}

	return models.Transaction{
		Date:            date,
		Description:     strings.TrimSpace(w.Description),
		TransactionType: typ,
		Amount:          amount,
		Balance:         w.Balance,
		Reference:       strings.TrimSpace(w.Reference),
		Counterparty:    strings.TrimSpace(w.Counterparty),
		Channel:         strings.TrimSpace(w.Channel),
		Currency:        currency,
		PageNumber:      w.PageNumber,
	}, true
}
