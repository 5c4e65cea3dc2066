package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/insightdelivered/ledgercore/internal/api"
	"github.com/insightdelivered/ledgercore/internal/modelclient"
	"github.com/insightdelivered/ledgercore/internal/models"
	"github.com/insightdelivered/ledgercore/internal/pipeline"
	"github.com/insightdelivered/ledgercore/internal/writer"
)

const version = "1.0.0"

func main() {
	// Optional .env for model credentials; the core itself owns no
	// environment variables.
	_ = godotenv.Load()

	bankFlag := flag.String("bank", "", "Bank name hint (skips bank identification)")
	outputFlag := flag.String("output", "", "Output path (defaults to input filename with .csv extension, or .json with --json)")
	jsonFlag := flag.Bool("json", false, "Write the full ExtractionResult as JSON instead of CSV")
	headerFlag := flag.Bool("header", true, "Include account metadata header rows in CSV")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	helpFlag := flag.Bool("help", false, "Show usage help")
	serveFlag := flag.Bool("serve", false, "Start API server instead of CLI mode")
	portFlag := flag.String("port", "8080", "Port for API server (used with --serve)")
	staticFlag := flag.String("static", "", "Path to web UI build directory (used with --serve)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Bank Statement Extraction Core
by Insight Delivered

Extracts a normalized, balance-validated transaction ledger from bank
statement PDFs via a three-tier cascade: ruled tables, word geometry,
language-model fallback.

Usage:
  ledgercore [flags] <input.pdf> [input2.pdf ...]

  Server mode:
  ledgercore --serve [--port=8080] [--static=./web/dist]

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Auto-detect bank and extract to CSV
  ledgercore statement.pdf

  # Full result (transactions, metrics, accuracy) as JSON
  ledgercore --json --output=result.json statement.pdf

  # Skip bank identification
  ledgercore --bank=HSBC statement.pdf

  # Start the API server
  ledgercore --serve --port=3001

Model credentials (optional, enables vision logo detection, scanned-PDF
OCR, and the language-model fallback tier):
  GENAI_API_KEY    API key for the generative model
  GENAI_MODEL      Model name (default: gemini-1.5-flash)
`)
	}

	flag.Parse()

	if *versionFlag {
		fmt.Printf("ledgercore v%s\n", version)
		os.Exit(0)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	p, cleanup := buildPipeline(logger)
	defer cleanup()

	if *serveFlag {
		startServer(p, logger, *portFlag, *staticFlag)
		return
	}

	if *helpFlag || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}

	for _, inputPath := range flag.Args() {
		if err := processFile(p, inputPath, *bankFlag, *outputFlag, *jsonFlag, *headerFlag); err != nil {
			fmt.Fprintf(os.Stderr, "Error processing %s: %v\n", inputPath, err)
			os.Exit(1)
		}
	}
}

// buildPipeline wires the model clients from the environment; with no
// credentials the pipeline still runs Tiers 1-2 deterministically.
func buildPipeline(logger *logrus.Logger) (*pipeline.Pipeline, func()) {
	p := &pipeline.Pipeline{Log: logger}
	cleanup := func() {}

	apiKey := os.Getenv("GENAI_API_KEY")
	if apiKey == "" {
		logger.Info("no GENAI_API_KEY set: vision and language-model tiers disabled")
		p.Chat = modelclient.NoOp{}
		return p, cleanup
	}

	modelName := os.Getenv("GENAI_MODEL")
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	client, err := modelclient.NewGenAIClient(context.Background(), apiKey, modelName)
	if err != nil {
		logger.WithError(err).Warn("model client unavailable, continuing without it")
		p.Chat = modelclient.NoOp{}
		return p, cleanup
	}
	p.Vision = client
	p.Chat = client
	return p, func() { client.Close() }
}

func startServer(p *pipeline.Pipeline, logger *logrus.Logger, port, staticDir string) {
	app := fiber.New(fiber.Config{
		AppName:   "Ledger Core v" + version,
		BodyLimit: 32 * 1024 * 1024, // 32MB max upload
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))

	h := &api.Handler{Pipeline: p, Log: logger}
	h.RegisterRoutes(app)

	// Serve web UI static files (SPA)
	if staticDir != "" {
		app.Static("/", staticDir, fiber.Static{
			Index: "index.html",
		})
		// SPA fallback: serve index.html for any non-file, non-API route
		app.Get("/*", func(c *fiber.Ctx) error {
			path := c.Path()
			if strings.HasPrefix(path, "/api/") {
				return c.SendStatus(fiber.StatusNotFound)
			}
			fullPath := filepath.Join(staticDir, path)
			if _, err := os.Stat(fullPath); os.IsNotExist(err) {
				return c.SendFile(filepath.Join(staticDir, "index.html"))
			}
			return c.Next()
		})
	}

	addr := ":" + port
	fmt.Printf("Ledger Core v%s\n", version)
	fmt.Printf("Server starting on http://localhost%s\n", addr)
	if staticDir == "" {
		fmt.Printf("API-only mode (no --static dir specified)\n")
	}

	log.Fatal(app.Listen(addr))
}

func processFile(p *pipeline.Pipeline, inputPath, bank, outputPath string, asJSON, includeHeader bool) error {
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return fmt.Errorf("input file not found: %s", inputPath)
	}
	if ext := strings.ToLower(filepath.Ext(inputPath)); ext != ".pdf" {
		return fmt.Errorf("expected .pdf file, got %q", ext)
	}

	var hint *models.BankLayout
	if bank != "" {
		hint = &models.BankLayout{Bank: bank, Confidence: 1.0, Source: models.SourceKeyword}
	}

	fmt.Printf("Processing: %s\n", inputPath)
	result, err := p.Extract(context.Background(), inputPath, hint)
	if err != nil {
		return err
	}

	fmt.Printf("  Bank: %s\n", result.Bank)
	fmt.Printf("  Method: %s, %d transaction(s) across %d page(s)\n",
		result.ExtractionMethod, len(result.Transactions), result.PagesProcessed)
	fmt.Printf("  Balance chain: %.1f%%, accuracy %.1f (%s)\n",
		result.BalanceChain.ChainAccuracyPct, result.Accuracy.OverallScore, result.Accuracy.Grade)

	out := outputPath
	if out == "" {
		ext := ".csv"
		if asJSON {
			ext = ".json"
		}
		out = strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ext
	}

	if asJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %q: %w", out, err)
		}
	} else {
		w := &writer.CSVWriter{IncludeHeader: includeHeader}
		if err := w.WriteToFile(out, result); err != nil {
			return err
		}
	}

	fmt.Printf("  Wrote: %s\n", out)
	return nil
}
