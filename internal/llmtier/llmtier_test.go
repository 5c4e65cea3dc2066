package llmtier

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/ledgercore/internal/modelclient"
	"github.com/insightdelivered/ledgercore/internal/models"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func txn(date, desc string, typ models.TransactionType, amount string, balance *decimal.Decimal) models.Transaction {
	return models.Transaction{
		Date: date, Description: desc, TransactionType: typ,
		Amount: decimal.RequireFromString(amount), Balance: balance,
	}
}

func TestDeduplicateExactAndFuzzy(t *testing.T) {
	txns := []models.Transaction{
		txn("01 SEP", "FAST TRANSFER ACME", models.Credit, "100.00", dec("1100.00")),
		// Exact double from the overlapping page.
		txn("01 SEP", "FAST TRANSFER ACME", models.Credit, "100.00", dec("1100.00")),
		// Same transaction, description rendered differently by the model.
		txn("01 SEP", "FAST TRF ACME PTE", models.Credit, "100.00", dec("1100.00")),
		// Genuinely distinct: different balance.
		txn("01 SEP", "FAST TRANSFER ACME", models.Credit, "100.00", dec("1200.00")),
	}

	got := Deduplicate(txns)
	if len(got) != 2 {
		t.Fatalf("expected 2 after dedup, got %d", len(got))
	}
	if got[0].Description != "FAST TRANSFER ACME" {
		t.Errorf("dedup must preserve first-seen order, got %q first", got[0].Description)
	}
}

func TestDeduplicateIdempotent(t *testing.T) {
	txns := []models.Transaction{
		txn("01 SEP", "A", models.Credit, "10.00", dec("10.00")),
		txn("01 SEP", "A", models.Credit, "10.00", dec("10.00")),
		txn("02 SEP", "B", models.Debit, "5.00", nil),
		txn("02 SEP", "B2", models.Debit, "5.00", nil),
	}
	once := Deduplicate(txns)
	twice := Deduplicate(once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("dedup must be idempotent:\nonce:  %v\ntwice: %v", once, twice)
	}
	// Rows without balances have no fuzzy identity and must survive.
	if len(once) != 3 {
		t.Fatalf("expected 3 (nil-balance rows kept), got %d", len(once))
	}
}

func TestBatchSize(t *testing.T) {
	cases := []struct {
		mean float64
		want int
	}{
		{2000, 2},
		{1200, 3},
		{800, 5},
		{100, 5},
	}
	for _, c := range cases {
		if got := batchSize(c.mean); got != c.want {
			t.Errorf("batchSize(%v) = %d, want %d", c.mean, got, c.want)
		}
	}
}

func TestMakeBatchesOverlapByOnePage(t *testing.T) {
	pages := []string{"a", "b", "c", "d", "e", "f", "g"}
	indices := []int{0, 1, 2, 3, 4, 5, 6}

	batches := makeBatches(pages, indices)
	// Short pages: size 5, step 4 -> [0,5) and [4,7).
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	if batches[0].Start != 0 || batches[0].End != 5 {
		t.Errorf("batch 0: [%d,%d)", batches[0].Start, batches[0].End)
	}
	if batches[1].Start != 4 || batches[1].End != 7 {
		t.Errorf("batch 1 must overlap by one page: [%d,%d)", batches[1].Start, batches[1].End)
	}
}

func TestShouldSkipPage(t *testing.T) {
	legend := strings.Repeat("TRANSACTION CODES\nGIRO Code Description Interbank GIRO\n", 5)
	if !shouldSkipPage(legend) {
		t.Error("legend page with no amounts or dates should be skipped")
	}

	txnPage := "01 SEP FAST TRANSFER 1,234.56 5,678.90\nTRANSACTION CODES legend below"
	if shouldSkipPage(txnPage) {
		t.Error("a page with amounts must never be skipped")
	}
}

func TestStripNoise(t *testing.T) {
	text := "01 SEP PAYMENT 100.00 900.00\n" +
		"Page 3 of 7\n" +
		"Deposit Insurance Scheme Singapore dollar deposits are insured\n" +
		"WITHDRAWALS 305,465.02DR ASAT 31OCT2025\n" +
		"02 SEP REFUND 50.00 950.00\n"

	got := stripNoise(text, "HSBC")
	if strings.Contains(got, "Page 3") || strings.Contains(got, "Insurance") || strings.Contains(got, "ASAT") {
		t.Errorf("noise survived stripping:\n%s", got)
	}
	if !strings.Contains(got, "01 SEP PAYMENT") || !strings.Contains(got, "02 SEP REFUND") {
		t.Errorf("transaction lines must survive stripping:\n%s", got)
	}
}

func TestParseReplyWithMarkdownFence(t *testing.T) {
	reply := "Here are the transactions:\n```json\n[\n" +
		`{"date":"05 SEP","description":"GIRO SALARY","transaction_type":"credit","amount":4200.00,"balance":9200.00,"page_number":1}` +
		"\n]\n```"

	txns, err := parseReply(reply)
	if err != nil {
		t.Fatalf("parseReply: %v", err)
	}
	if len(txns) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txns))
	}
	if txns[0].Date != "05 SEP" || txns[0].TransactionType != models.Credit {
		t.Errorf("got %+v", txns[0])
	}
	if txns[0].Currency != "SGD" {
		t.Errorf("absent currency must default to SGD, got %q", txns[0].Currency)
	}
}

func TestParseReplyRejectsBadRows(t *testing.T) {
	reply := `[
	  {"date":"not a date","description":"X","transaction_type":"debit","amount":1.00},
	  {"date":"05 SEP","description":"Y","transaction_type":"mystery","amount":1.00},
	  {"date":"05 SEP","description":"Z","transaction_type":"debit","amount":-25.00,"balance":100.00}
	]`

	txns, err := parseReply(reply)
	if err != nil {
		t.Fatalf("parseReply: %v", err)
	}
	for _, txn := range txns {
		if txn.Description == "Z" {
			t.Errorf("row with a negative amount must be rejected, got amount %s", txn.Amount)
		}
	}
	if len(txns) != 0 {
		t.Fatalf("expected every bad row rejected, got %d", len(txns))
	}
}

// scriptedChat replays canned replies; an entry of "" fails the call.
type scriptedChat struct {
	replies []string
	calls   int
}

func (s *scriptedChat) Chat(ctx context.Context, messages []modelclient.ChatMessage) (string, error) {
	if s.calls >= len(s.replies) {
		return "", errors.New("no more scripted replies")
	}
	reply := s.replies[s.calls]
	s.calls++
	if reply == "" {
		return "", errors.New("scripted failure")
	}
	return reply, nil
}

func TestExtractContinuesPastFailedBatch(t *testing.T) {
	// Two batches (dense pages force size 2, step 1): batch 0 fails all 3
	// attempts, batch 1 succeeds.
	pageA := strings.Repeat("01 SEP TRANSFER 1,000.00 2,000.00\n", 50)
	pageB := strings.Repeat("02 SEP PAYMENT 500.00 1,500.00\n", 50)
	pageC := strings.Repeat("03 SEP REFUND 100.00 1,600.00\n", 50)

	good := `[{"date":"03 SEP","description":"REFUND","transaction_type":"credit","amount":100.00,"balance":1600.00,"page_number":3}]`
	chat := &scriptedChat{replies: []string{"", "", "", good}}

	ex := &Extractor{Chat: chat}
	res, err := ex.Extract(context.Background(), Input{
		PagesText: []string{pageA, pageB, pageC},
		Bank:      "DBS",
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(res.Transactions) != 1 {
		t.Fatalf("expected 1 transaction from the surviving batch, got %d", len(res.Transactions))
	}
	if len(res.Diagnostics) != 1 {
		t.Fatalf("expected 1 batch diagnostic, got %d", len(res.Diagnostics))
	}
	if res.Diagnostics[0].Batch != 0 {
		t.Errorf("diagnostic should name batch 0, got %d", res.Diagnostics[0].Batch)
	}
}

func TestExtractTotalFailure(t *testing.T) {
	chat := &scriptedChat{replies: []string{"", "", ""}}
	ex := &Extractor{Chat: chat}
	_, err := ex.Extract(context.Background(), Input{
		PagesText: []string{"01 SEP PAYMENT 100.00 900.00"},
		Bank:      "DBS",
	})
	if !errors.Is(err, models.ErrExtractionFailed) {
		t.Fatalf("expected ExtractionFailed, got %v", err)
	}
}

func TestExtractCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	chat := &scriptedChat{replies: []string{""}}
	ex := &Extractor{Chat: chat}
	_, err := ex.Extract(ctx, Input{
		PagesText: []string{"01 SEP PAYMENT 100.00 900.00"},
		Bank:      "DBS",
	})
	if !errors.Is(err, models.ErrExtractionCancelled) {
		t.Fatalf("expected ExtractionCancelled, got %v", err)
	}
}
