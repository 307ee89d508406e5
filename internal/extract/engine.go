package extract

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/joseph-ayodele/bill-extractor/constants"
	"github.com/joseph-ayodele/bill-extractor/internal/common"
	"github.com/joseph-ayodele/bill-extractor/internal/document"
	"github.com/joseph-ayodele/bill-extractor/internal/entity"
	"github.com/joseph-ayodele/bill-extractor/internal/llm"
)

// Engine obtains page-structured line items from the vision model. Large
// PDFs are chunked into fixed page windows so a single reply stays under the
// provider's output-token limit.
type Engine struct {
	client llm.VisionExtractor
	cfg    common.ExtractionConfig
	logger *slog.Logger
}

func NewEngine(client llm.VisionExtractor, cfg common.ExtractionConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 3
	}
	if cfg.DirectPageLimit <= 0 {
		cfg.DirectPageLimit = 8
	}
	return &Engine{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

// Result is one document's extraction outcome plus its accounting.
type Result struct {
	Pages         []entity.PageWiseLineItem
	Usage         entity.TokenUsage
	SkippedItems  []llm.ItemSkip
	SkippedChunks int
}

// ExtractDocument runs the strategy for one classified document.
//
// Images get a single page extraction. PDFs within the direct page limit get
// one whole-document request, falling back to chunked processing exactly
// once if the reply is truncated or unparseable. PDFs over the limit go
// straight to chunked processing.
//
// Pages and chunks are processed strictly sequentially: prompts after the
// first carry the accumulated list of previously-seen item names, so later
// calls depend on earlier results.
func (e *Engine) ExtractDocument(ctx context.Context, doc document.Document) (Result, error) {
	res := Result{}

	if doc.Format == constants.IMAGE {
		page, skips, err := e.ExtractPage(ctx, &res.Usage, doc.Content, doc.MimeType, 1, nil)
		if err != nil {
			// Page-level failures are contained: the page is omitted,
			// whatever tokens were charged still count.
			e.logger.Error("extract.page.failed", "page", 1, "error", err)
			return res, nil
		}
		res.Pages = []entity.PageWiseLineItem{page}
		res.SkippedItems = skips
		return res, nil
	}

	if doc.PageCount > e.cfg.DirectPageLimit {
		e.logger.Info("extract.strategy.chunked", "pages", doc.PageCount, "chunk_size", e.cfg.ChunkSize)
		e.extractChunked(ctx, &res, doc.Content, doc.PageCount)
		return res, nil
	}

	e.logger.Info("extract.strategy.direct", "pages", doc.PageCount)
	pages, skips, err := e.extractWhole(ctx, &res.Usage, doc.Content, nil)
	if err == nil {
		res.Pages = pages
		res.SkippedItems = skips
		return res, nil
	}
	if errors.Is(err, common.ErrTruncated) || errors.Is(err, common.ErrMalformedReply) {
		// The reply was cut off or came back as garbage. Retry once with
		// smaller page windows; never loop.
		e.logger.Warn("extract.direct.fallback_to_chunked", "pages", doc.PageCount, "error", err)
		e.extractChunked(ctx, &res, doc.Content, doc.PageCount)
		return res, nil
	}
	return res, err
}

// ExtractPage extracts line items from a single page image. Pages after the
// first include previousItems in the prompt to discourage re-extraction.
func (e *Engine) ExtractPage(
	ctx context.Context,
	usage *entity.TokenUsage,
	image []byte,
	mimeType string,
	pageNum int,
	previousItems []string,
) (entity.PageWiseLineItem, []llm.ItemSkip, error) {
	start := time.Now()

	reply, err := e.client.Generate(ctx, llm.Request{
		Prompt:   llm.PagePrompt(pageNum, previousItems),
		Document: image,
		MimeType: mimeType,
	})
	usage.Add(reply.Usage)
	if err != nil {
		return entity.PageWiseLineItem{}, nil, common.WrapError(err, "page request")
	}

	record, err := llm.DecodeReply(reply.Text)
	if err != nil {
		return entity.PageWiseLineItem{}, nil, err
	}

	page, skips := llm.CoercePage(record)
	page.PageNo = strconv.Itoa(pageNum)

	e.logger.Info("extract.page.ok",
		"page", pageNum,
		"items", len(page.BillItems),
		"skipped_items", len(skips),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return page, skips, nil
}

// extractWhole issues one whole-document request and normalizes the reply.
func (e *Engine) extractWhole(
	ctx context.Context,
	usage *entity.TokenUsage,
	pdf []byte,
	previousItems []string,
) ([]entity.PageWiseLineItem, []llm.ItemSkip, error) {
	reply, err := e.client.Generate(ctx, llm.Request{
		Prompt:   llm.DocumentPrompt(previousItems),
		Document: pdf,
		MimeType: constants.MimePDF,
	})
	usage.Add(reply.Usage)
	if err != nil {
		return nil, nil, common.WrapError(err, "document request")
	}
	if reply.Truncated {
		return nil, nil, common.NewAppError("TRUNCATED",
			"reply stopped at the output token limit", common.ErrTruncated)
	}

	record, err := llm.DecodeReply(reply.Text)
	if err != nil {
		return nil, nil, err
	}

	// Schema gate: conforming replies decode strictly, the rest fall back
	// to the lenient coercion. A mismatch is a quality signal, not a failure.
	pages, skips, schemaErr := llm.DecodePages(record)
	if schemaErr != nil {
		e.logger.Warn("extract.reply.schema_mismatch", "error", schemaErr)
	}
	return pages, skips, nil
}

// extractChunked splits the PDF into fixed page windows and issues one
// whole-document-style request per window. A failed window is logged and
// skipped; the remaining windows still run.
func (e *Engine) extractChunked(ctx context.Context, res *Result, pdf []byte, pageCount int) {
	ranges := document.ChunkRanges(pageCount, e.cfg.ChunkSize)
	var previousItems []string

	for i, r := range ranges {
		chunk, err := document.CutPages(pdf, r)
		if err != nil {
			e.logger.Error("extract.chunk.cut_failed", "range", r.String(), "error", err)
			res.SkippedChunks++
			continue
		}

		pages, skips, err := e.extractWhole(ctx, &res.Usage, chunk, previousItems)
		if err != nil {
			e.logger.Error("extract.chunk.failed", "range", r.String(), "error", err)
			res.SkippedChunks++
			continue
		}

		// The model numbers pages within the chunk; shift back to
		// document-global numbering.
		renumberPages(pages, r.Start-1)
		for pi := range pages {
			for _, item := range pages[pi].BillItems {
				previousItems = append(previousItems, item.ItemName)
			}
		}
		res.Pages = append(res.Pages, pages...)
		res.SkippedItems = append(res.SkippedItems, skips...)

		e.logger.Info("extract.chunk.ok",
			"range", r.String(),
			"pages", len(pages),
			"total_tokens", res.Usage.TotalTokens,
		)

		// Courtesy throttle between sequential provider calls.
		if i < len(ranges)-1 {
			sleepCtx(ctx, e.cfg.ChunkDelay)
		}
	}
}

// renumberPages shifts chunk-local page numbers by offset. Non-numeric
// page numbers are left alone.
func renumberPages(pages []entity.PageWiseLineItem, offset int) {
	for i := range pages {
		if n, err := strconv.Atoi(pages[i].PageNo); err == nil {
			pages[i].PageNo = strconv.Itoa(n + offset)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
