// Package pipeline orchestrates the extraction core: bank
// identification, then the three-tier cascade (table → word-geometry →
// language model), and the final normalize/validate/score pass. The
// pipeline holds no mutable state across runs; a Pipeline value may serve
// many documents, each extraction owning its own PDF handle.
package pipeline

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/insightdelivered/ledgercore/internal/bankid"
	"github.com/insightdelivered/ledgercore/internal/llmtier"
	"github.com/insightdelivered/ledgercore/internal/modelclient"
	"github.com/insightdelivered/ledgercore/internal/models"
	"github.com/insightdelivered/ledgercore/internal/normalize"
	"github.com/insightdelivered/ledgercore/internal/pdfaccess"
	"github.com/insightdelivered/ledgercore/internal/tabletier"
	"github.com/insightdelivered/ledgercore/internal/wordtier"
)

// hintConfidenceFloor: an upstream BankLayout hint above this confidence
// skips bank identification entirely.
const hintConfidenceFloor = 0.7

// minTransactions is the tier-exhaustion threshold: fewer than this
// from every tier raises ExtractionFailed.
const minTransactions = 3

// document is the read-only PDF capability surface the pipeline consumes;
// satisfied by *pdfaccess.Document.
type document interface {
	NumPages() int
	PagesText() ([]string, error)
	PagesWords() ([][]pdfaccess.Word, error)
	PagesTables() ([]pdfaccess.Table, error)
	RenderPage(page int, dpi int) ([]byte, error)
}

// Pipeline wires the external model clients into the extraction core.
// Vision may be nil (logo detection is skipped, scanned documents fail
// over to ExtractionFailed); Chat may be nil only if Tier 3 is never
// reached.
type Pipeline struct {
	Vision modelclient.VisionClient
	Chat   modelclient.ChatClient
	Log    *logrus.Logger
}

// Extract runs the full cascade over the PDF at path and returns the
// single structured ExtractionResult.
func (p *Pipeline) Extract(ctx context.Context, path string, hint *models.BankLayout) (*models.ExtractionResult, error) {
	doc, err := pdfaccess.Open(path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()
	return p.extract(ctx, doc, hint)
}

func (p *Pipeline) extract(ctx context.Context, doc document, hint *models.BankLayout) (*models.ExtractionResult, error) {
	runID := uuid.NewString()
	log := p.logger().WithField("run_id", runID)

	pagesText, err := doc.PagesText()
	if err != nil {
		log.WithError(err).Warn("text layer unreadable, treating document as scanned")
		pagesText = make([]string, doc.NumPages())
	}
	scanned := pdfaccess.IsScanned(pagesText)

	layout := p.identifyBank(ctx, doc, pagesText, hint)
	if ctx.Err() != nil {
		return nil, &models.ExtractionCancelledError{Stage: "bank identification", Cause: ctx.Err()}
	}
	log.WithFields(logrus.Fields{
		"bank": layout.Bank, "source": layout.Source, "scanned": scanned,
	}).Info("bank identified")

	var (
		txns        []models.Transaction
		accountInfo models.AccountInfo
		method      models.ExtractionMethod
		diagnostics []llmtier.BatchDiagnostic
	)

	if scanned {
		method = models.MethodLLMOCR
	} else {
		if tables, err := doc.PagesTables(); err == nil {
			res := tabletier.Extract(tables, layout.Bank)
			txns = res.Transactions
			accountInfo = res.AccountInfo
			if len(txns) > 0 {
				method = models.MethodTable
			}
		}

		if len(txns) == 0 {
			if words, err := doc.PagesWords(); err == nil {
				txns = wordtier.Extract(words, layout.Bank)
				if len(txns) > 0 {
					method = models.MethodWords
				}
			}
		}
	}

	if len(txns) < minTransactions {
		log.WithField("count", len(txns)).Info("falling through to language-model extraction")
		ex := &llmtier.Extractor{Chat: p.Chat, Vision: p.Vision, Log: log}
		res, err := ex.Extract(ctx, llmtier.Input{
			PagesText: pagesText,
			Scanned:   scanned,
			Renderer:  doc,
			Bank:      layout.Bank,
		})
		if err != nil {
			return nil, err
		}
		txns = res.Transactions
		diagnostics = res.Diagnostics
		if scanned {
			method = models.MethodLLMOCR
		} else {
			method = models.MethodLLM
		}
		assignSectionsByCurrency(txns)
	}

	if len(txns) < minTransactions {
		return nil, &models.ExtractionFailedError{}
	}

	for _, d := range diagnostics {
		log.WithFields(logrus.Fields{
			"batch": d.Batch, "pages": []int{d.FirstPage, d.LastPage},
		}).WithError(d.Err).Warn("batch skipped")
	}

	finalize(txns, layout, &accountInfo)
	normalize.Enrich(txns)
	chain := normalize.ValidateBalanceChain(txns)
	accuracy := normalize.Score(txns, chain)
	metrics := normalize.ComputeMetrics(txns)

	log.WithFields(logrus.Fields{
		"method": method, "transactions": len(txns),
		"chain_pct": chain.ChainAccuracyPct, "score": accuracy.OverallScore,
	}).Info("extraction complete")

	return &models.ExtractionResult{
		RunID:            runID,
		Bank:             layout.Bank,
		AccountInfo:      accountInfo,
		Transactions:     txns,
		Metrics:          metrics,
		Accuracy:         accuracy,
		BalanceChain:     chain,
		ExtractionMethod: method,
		PagesProcessed:   doc.NumPages(),
		Currencies:       normalize.Currencies(txns),
	}, nil
}

// identifyBank applies the hint short-circuit or runs the detection
// cascade with the top band of page 1 as the vision input.
func (p *Pipeline) identifyBank(ctx context.Context, doc document, pagesText []string, hint *models.BankLayout) models.BankLayout {
	if hint != nil && hint.Confidence > hintConfidenceFloor {
		return *hint
	}

	var topBand []byte
	if p.Vision != nil {
		if img, err := renderTopBand(doc); err == nil {
			topBand = img
		}
	}

	firstThree := strings.Join(pagesText[:minInt(3, len(pagesText))], "\n")
	return bankid.Identify(ctx, p.Vision, topBand, firstThree)
}

// finalize fills the defaults every emitted transaction must carry and
// backfills account info from the detected bank.
func finalize(txns []models.Transaction, layout models.BankLayout, info *models.AccountInfo) {
	if info.Bank == "" && layout.Bank != "unknown" {
		info.Bank = layout.Bank
	}
	defaultCurrency := info.Currency
	if defaultCurrency == "" {
		defaultCurrency = "SGD"
	}
	for i := range txns {
		if txns[i].Currency == "" {
			txns[i].Currency = defaultCurrency
		}
	}
	if info.Currency == "" && len(txns) > 0 {
		info.Currency = txns[0].Currency
	}
}

// assignSectionsByCurrency partitions Tier-3 output into account sections:
// the model reports per-row currencies but no section numbering, so each
// change of currency in source order opens a new section.
func assignSectionsByCurrency(txns []models.Transaction) {
	section := 0
	for i := range txns {
		if txns[i].Currency == "" {
			txns[i].Currency = "SGD"
		}
		if i > 0 && txns[i].Currency != txns[i-1].Currency {
			section++
		}
		txns[i].AccountSection = section
	}
}

func (p *Pipeline) logger() *logrus.Logger {
	if p.Log != nil {
		return p.Log
	}
	return logrus.StandardLogger()
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
