package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/insightdelivered/ledgercore/internal/modelclient"
	"github.com/insightdelivered/ledgercore/internal/models"
	"github.com/insightdelivered/ledgercore/internal/pdfaccess"
)

// fakeDoc serves canned capability outputs in place of a real PDF.
type fakeDoc struct {
	pages  []string
	words  [][]pdfaccess.Word
	tables []pdfaccess.Table
}

func (f *fakeDoc) NumPages() int                          { return len(f.pages) }
func (f *fakeDoc) PagesText() ([]string, error)           { return f.pages, nil }
func (f *fakeDoc) PagesWords() ([][]pdfaccess.Word, error) { return f.words, nil }
func (f *fakeDoc) PagesTables() ([]pdfaccess.Table, error) { return f.tables, nil }
func (f *fakeDoc) RenderPage(page, dpi int) ([]byte, error) {
	return []byte("not-a-real-image"), nil
}

// countingChat fails the test if Tier 3 is ever reached.
type countingChat struct {
	t     *testing.T
	calls int
}

func (c *countingChat) Chat(ctx context.Context, messages []modelclient.ChatMessage) (string, error) {
	c.calls++
	if c.t != nil {
		c.t.Error("chat model must not be called on this path")
	}
	return "", errors.New("unexpected call")
}

type cannedChat struct{ reply string }

func (c cannedChat) Chat(ctx context.Context, messages []modelclient.ChatMessage) (string, error) {
	return c.reply, nil
}

type cannedVision struct{ reply string }

func (v cannedVision) AnalyzeImage(ctx context.Context, img []byte, prompt string) (string, error) {
	return v.reply, nil
}

const statementText = "DBS Bank Ltd\n01 SEP FAST TRANSFER 1,000.00 2,000.00\n02 SEP PAYMENT 500.00 1,500.00\n"

func goodTables() []pdfaccess.Table {
	return []pdfaccess.Table{
		{
			{"Date", "Description", "Withdrawal", "Deposit", "Balance"},
			{"01 Sep 2025", "OPENING BALANCE", "", "", "1,000.00"},
			{"02 Sep 2025", "FAST TRANSFER IN", "", "500.00", "1,500.00"},
			{"03 Sep 2025", "GIRO PAYMENT", "200.00", "", "1,300.00"},
			{"04 Sep 2025", "NETS PURCHASE", "100.00", "", "1,200.00"},
			{"05 Sep 2025", "CLOSING BALANCE", "", "", "1,200.00"},
		},
	}
}

func word(text string, x0, x1, y float64) pdfaccess.Word {
	return pdfaccess.Word{Text: text, X0: x0, X1: x1, Top: y + 10, Bottom: y}
}

func goodWords() [][]pdfaccess.Word {
	return [][]pdfaccess.Word{{
		word("Date", 40, 70, 700),
		word("Description", 120, 190, 700),
		word("Withdrawal", 300, 365, 700),
		word("Deposit", 400, 450, 700),
		word("Balance", 500, 550, 700),
		word("01 SEP", 40, 95, 680), word("SALARY", 120, 180, 680), word("2,000.00", 400, 455, 680), word("7,000.00", 500, 560, 680),
		word("02 SEP", 40, 95, 660), word("GIRO", 120, 160, 660), word("150.00", 300, 360, 660), word("6,850.00", 500, 560, 660),
		word("03 SEP", 40, 95, 640), word("TRANSFER", 120, 190, 640), word("500.00", 300, 360, 640), word("6,350.00", 500, 560, 640),
	}}
}

// A successful table tier means the word and model tiers never run.
func TestTierSelectionTableFirst(t *testing.T) {
	doc := &fakeDoc{pages: []string{statementText}, tables: goodTables(), words: goodWords()}
	chat := &countingChat{t: t}
	p := &Pipeline{Chat: chat}

	res, err := p.extract(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.ExtractionMethod != models.MethodTable {
		t.Errorf("expected method table, got %s", res.ExtractionMethod)
	}
	if len(res.Transactions) != 5 {
		t.Errorf("expected 5 transactions, got %d", len(res.Transactions))
	}
	if chat.calls != 0 {
		t.Errorf("tier 3 invoked despite tier 1 success")
	}
	if res.Bank != "DBS" {
		t.Errorf("bank: got %q", res.Bank)
	}
	if len(res.Currencies) != 1 || res.Currencies[0] != "SGD" {
		t.Errorf("currencies: %v", res.Currencies)
	}
	if res.Accuracy.OverallScore < 95 {
		t.Errorf("clean table statement should grade A+, got %v", res.Accuracy.OverallScore)
	}
}

func TestTierSelectionFallsToWords(t *testing.T) {
	doc := &fakeDoc{pages: []string{statementText}, words: goodWords()}
	p := &Pipeline{Chat: &countingChat{t: t}}

	res, err := p.extract(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.ExtractionMethod != models.MethodWords {
		t.Errorf("expected method words, got %s", res.ExtractionMethod)
	}
	if len(res.Transactions) != 3 {
		t.Errorf("expected 3 transactions, got %d", len(res.Transactions))
	}
}

const llmReply = `[
 {"date":"01 SEP","description":"TRANSFER IN","transaction_type":"credit","amount":1000.00,"balance":1000.00,"page_number":1},
 {"date":"02 SEP","description":"PAYMENT OUT","transaction_type":"debit","amount":400.00,"balance":600.00,"page_number":1},
 {"date":"03 SEP","description":"REFUND","transaction_type":"credit","amount":50.00,"balance":650.00,"page_number":1}
]`

func TestTierSelectionFallsToLLM(t *testing.T) {
	doc := &fakeDoc{pages: []string{statementText}}
	p := &Pipeline{Chat: cannedChat{reply: llmReply}}

	res, err := p.extract(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.ExtractionMethod != models.MethodLLM {
		t.Errorf("expected method llm, got %s", res.ExtractionMethod)
	}
	if len(res.Transactions) != 3 {
		t.Errorf("expected 3 transactions, got %d", len(res.Transactions))
	}
	if res.BalanceChain.ChainAccuracyPct != 100 {
		t.Errorf("chain: %v", res.BalanceChain.ChainAccuracyPct)
	}
}

func TestScannedDocumentRoutesToOCR(t *testing.T) {
	// Image-only pages: no extractable text at all.
	doc := &fakeDoc{pages: []string{"", "", ""}}
	p := &Pipeline{
		Chat:   cannedChat{reply: llmReply},
		Vision: cannedVision{reply: statementText},
	}

	res, err := p.extract(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.ExtractionMethod != models.MethodLLMOCR {
		t.Errorf("expected method llm+ocr, got %s", res.ExtractionMethod)
	}
	if len(res.Transactions) != 3 {
		t.Errorf("expected 3 transactions, got %d", len(res.Transactions))
	}
}

func TestTierExhaustionFails(t *testing.T) {
	doc := &fakeDoc{pages: []string{statementText}}
	p := &Pipeline{Chat: cannedChat{reply: "[]"}}

	_, err := p.extract(context.Background(), doc, nil)
	if !errors.Is(err, models.ErrExtractionFailed) {
		t.Fatalf("expected ExtractionFailed, got %v", err)
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc := &fakeDoc{pages: []string{statementText}}
	p := &Pipeline{Chat: cannedChat{reply: llmReply}}

	_, err := p.extract(ctx, doc, nil)
	if !errors.Is(err, models.ErrExtractionCancelled) {
		t.Fatalf("expected ExtractionCancelled, got %v", err)
	}
}

func TestBankHintShortCircuit(t *testing.T) {
	doc := &fakeDoc{pages: []string{statementText}, tables: goodTables()}
	p := &Pipeline{Chat: &countingChat{t: t}}
	hint := &models.BankLayout{Bank: "HSBC", Confidence: 0.95, Source: models.SourceVision}

	res, err := p.extract(context.Background(), doc, hint)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	// The text says DBS, but a confident upstream hint wins.
	if res.Bank != "HSBC" {
		t.Errorf("hint not honored: got %q", res.Bank)
	}
}

func TestMultiCurrencyLLMSections(t *testing.T) {
	reply := `[
	 {"date":"01 SEP","description":"A","transaction_type":"credit","amount":100.00,"balance":100.00,"currency":"SGD","page_number":1},
	 {"date":"02 SEP","description":"B","transaction_type":"debit","amount":50.00,"balance":50.00,"currency":"SGD","page_number":1},
	 {"date":"03 SEP","description":"C","transaction_type":"credit","amount":70.00,"balance":70.00,"currency":"USD","page_number":2},
	 {"date":"04 SEP","description":"D","transaction_type":"debit","amount":20.00,"balance":50.00,"currency":"USD","page_number":2}
	]`
	doc := &fakeDoc{pages: []string{statementText}}
	p := &Pipeline{Chat: cannedChat{reply: reply}}

	res, err := p.extract(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(res.Currencies) != 2 {
		t.Fatalf("currencies: %v", res.Currencies)
	}
	if res.Transactions[0].AccountSection != 0 || res.Transactions[2].AccountSection != 1 {
		t.Errorf("sections: %d then %d", res.Transactions[0].AccountSection, res.Transactions[2].AccountSection)
	}
	if res.Metrics.PerCurrency == nil {
		t.Error("multi-currency ledger should carry a per-currency metrics breakdown")
	}
	// No chain link crosses the section boundary, so both sections
	// validate independently and cleanly.
	if res.BalanceChain.InvalidLinks != 0 {
		t.Errorf("cross-section link leaked into validation: %+v", res.BalanceChain)
	}
}
