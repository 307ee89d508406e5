package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/joseph-ayodele/bill-extractor/constants"
	"github.com/joseph-ayodele/bill-extractor/internal/common"
	"github.com/joseph-ayodele/bill-extractor/internal/document"
	"github.com/joseph-ayodele/bill-extractor/internal/entity"
	"github.com/joseph-ayodele/bill-extractor/internal/llm"
)

// fakeExtractor replays scripted replies in order.
type fakeExtractor struct {
	replies []llm.Reply
	errs    []error
	calls   []llm.Request
}

func (f *fakeExtractor) Generate(_ context.Context, req llm.Request) (llm.Reply, error) {
	i := len(f.calls)
	f.calls = append(f.calls, req)
	var reply llm.Reply
	if i < len(f.replies) {
		reply = f.replies[i]
	}
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return reply, err
}

const pageReply = `{
	"page_no": "1",
	"page_type": "Bill Detail",
	"bill_items": [
		{"item_name": "Consultation", "item_amount": 500, "item_rate": 500, "item_quantity": 1}
	]
}`

const documentReply = `{
	"pagewise_line_items": [
		{"page_no": "1", "page_type": "Bill Detail", "bill_items": [
			{"item_name": "Consultation", "item_amount": 500, "item_rate": 500, "item_quantity": 1}
		]},
		{"page_no": "2", "page_type": "Final Bill", "bill_items": [
			{"item_name": "Room charge", "item_amount": 1000, "item_rate": 500, "item_quantity": 2}
		]}
	]
}`

func TestExtractDocumentImage(t *testing.T) {
	fake := &fakeExtractor{
		replies: []llm.Reply{{
			Text:  pageReply,
			Usage: entity.TokenUsage{TotalTokens: 120, InputTokens: 100, OutputTokens: 20},
		}},
	}
	engine := NewEngine(fake, common.ExtractionConfig{}, nil)

	res, err := engine.ExtractDocument(context.Background(), document.Document{
		Content:   []byte("fake image"),
		Format:    constants.IMAGE,
		MimeType:  "image/png",
		PageCount: 1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Pages) != 1 {
		t.Fatalf("got %d pages, want 1", len(res.Pages))
	}
	page := res.Pages[0]
	if page.PageNo != "1" || page.PageType != entity.PageTypeBillDetail {
		t.Errorf("unexpected page metadata: %+v", page)
	}
	if len(page.BillItems) != 1 || page.BillItems[0].ItemName != "Consultation" || page.BillItems[0].ItemAmount != 500 {
		t.Errorf("unexpected items: %+v", page.BillItems)
	}
	if res.Usage.TotalTokens != 120 {
		t.Errorf("usage = %+v, want 120 total", res.Usage)
	}
	if len(fake.calls) != 1 || fake.calls[0].MimeType != "image/png" {
		t.Errorf("unexpected provider calls: %+v", fake.calls)
	}
}

func TestExtractDocumentImageFailureIsContained(t *testing.T) {
	fake := &fakeExtractor{
		replies: []llm.Reply{{Usage: entity.TokenUsage{TotalTokens: 50}}},
		errs:    []error{errors.New("provider unavailable")},
	}
	engine := NewEngine(fake, common.ExtractionConfig{}, nil)

	res, err := engine.ExtractDocument(context.Background(), document.Document{
		Content:  []byte("fake image"),
		Format:   constants.IMAGE,
		MimeType: "image/jpeg",
	})
	if err != nil {
		t.Fatalf("page failure should not surface as an error, got: %v", err)
	}
	if len(res.Pages) != 0 {
		t.Errorf("got %d pages, want 0", len(res.Pages))
	}
	// Tokens charged before the failure still count.
	if res.Usage.TotalTokens != 50 {
		t.Errorf("usage = %+v, want 50 total", res.Usage)
	}
}

func TestExtractDocumentDirect(t *testing.T) {
	fake := &fakeExtractor{
		replies: []llm.Reply{{
			Text:  documentReply,
			Usage: entity.TokenUsage{TotalTokens: 300, InputTokens: 200, OutputTokens: 100},
		}},
	}
	engine := NewEngine(fake, common.ExtractionConfig{DirectPageLimit: 8, ChunkSize: 3}, nil)

	res, err := engine.ExtractDocument(context.Background(), document.Document{
		Content:   []byte("%PDF-1.7 fake"),
		Format:    constants.PDF,
		MimeType:  constants.MimePDF,
		PageCount: 2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(res.Pages))
	}
	if res.Pages[1].PageType != entity.PageTypeFinalBill {
		t.Errorf("page 2 type = %q, want Final Bill", res.Pages[1].PageType)
	}
	if len(fake.calls) != 1 {
		t.Errorf("got %d provider calls, want 1 (direct strategy)", len(fake.calls))
	}
	if fake.calls[0].MimeType != constants.MimePDF {
		t.Errorf("mime type = %q, want %q", fake.calls[0].MimeType, constants.MimePDF)
	}
}

func TestExtractDocumentTruncatedFallsBackToChunked(t *testing.T) {
	// The direct reply is truncated; the engine retries chunked. The fake PDF
	// bytes cannot actually be cut, so every chunk is skipped, which is
	// exactly the partial-success accounting we want to observe.
	fake := &fakeExtractor{
		replies: []llm.Reply{{
			Text:      `{"pagewise_line_items": [`,
			Truncated: true,
			Usage:     entity.TokenUsage{TotalTokens: 4096},
		}},
	}
	engine := NewEngine(fake, common.ExtractionConfig{DirectPageLimit: 8, ChunkSize: 1}, nil)

	res, err := engine.ExtractDocument(context.Background(), document.Document{
		Content:   []byte("%PDF-1.7 fake"),
		Format:    constants.PDF,
		MimeType:  constants.MimePDF,
		PageCount: 2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fake.calls) != 1 {
		t.Errorf("got %d provider calls, want 1 (chunks never reached the provider)", len(fake.calls))
	}
	if res.SkippedChunks != 2 {
		t.Errorf("skipped chunks = %d, want 2", res.SkippedChunks)
	}
	if res.Usage.TotalTokens != 4096 {
		t.Errorf("usage = %+v, want the truncated call's tokens", res.Usage)
	}
}

func TestExtractDocumentMalformedFallsBackToChunked(t *testing.T) {
	fake := &fakeExtractor{
		replies: []llm.Reply{{
			Text:  "I am sorry, I cannot help with that.",
			Usage: entity.TokenUsage{TotalTokens: 30},
		}},
	}
	engine := NewEngine(fake, common.ExtractionConfig{DirectPageLimit: 8, ChunkSize: 3}, nil)

	res, err := engine.ExtractDocument(context.Background(), document.Document{
		Content:   []byte("%PDF-1.7 fake"),
		Format:    constants.PDF,
		PageCount: 3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.SkippedChunks != 1 {
		t.Errorf("skipped chunks = %d, want 1", res.SkippedChunks)
	}
}

func TestExtractDocumentOversizedGoesStraightToChunked(t *testing.T) {
	fake := &fakeExtractor{}
	engine := NewEngine(fake, common.ExtractionConfig{DirectPageLimit: 8, ChunkSize: 3}, nil)

	res, err := engine.ExtractDocument(context.Background(), document.Document{
		Content:   []byte("%PDF-1.7 fake"),
		Format:    constants.PDF,
		PageCount: 10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Fake bytes are uncuttable: all four windows (1-3, 4-6, 7-9, 10-10)
	// are skipped without a direct attempt.
	if len(fake.calls) != 0 {
		t.Errorf("got %d provider calls, want 0", len(fake.calls))
	}
	if res.SkippedChunks != 4 {
		t.Errorf("skipped chunks = %d, want 4", res.SkippedChunks)
	}
}

func TestRenumberPages(t *testing.T) {
	pages := []entity.PageWiseLineItem{
		{PageNo: "1"},
		{PageNo: "2"},
		{PageNo: "summary"},
	}
	renumberPages(pages, 3)
	if pages[0].PageNo != "4" || pages[1].PageNo != "5" {
		t.Errorf("numeric pages = %q, %q, want 4, 5", pages[0].PageNo, pages[1].PageNo)
	}
	if pages[2].PageNo != "summary" {
		t.Errorf("non-numeric page = %q, should be untouched", pages[2].PageNo)
	}
}
