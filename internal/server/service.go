package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/bill-extractor/internal/common"
	"github.com/joseph-ayodele/bill-extractor/internal/document"
	"github.com/joseph-ayodele/bill-extractor/internal/entity"
	"github.com/joseph-ayodele/bill-extractor/internal/extract"
	"github.com/joseph-ayodele/bill-extractor/internal/repository"
	"github.com/joseph-ayodele/bill-extractor/internal/validate"
)

// BillService runs the full pipeline for one request: intake, extraction,
// validation, dedup, accounting. It owns no per-request state; everything
// request-scoped travels through arguments and return values.
type BillService struct {
	engine  *extract.Engine
	logs    repository.ExtractionLogRepository // nil when no DB is configured
	logger  *slog.Logger
	timeout time.Duration
}

func NewBillService(engine *extract.Engine, logs repository.ExtractionLogRepository, timeout time.Duration, logger *slog.Logger) *BillService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BillService{engine: engine, logs: logs, logger: logger, timeout: timeout}
}

// ExtractFromURL downloads the document and runs the pipeline.
func (s *BillService) ExtractFromURL(ctx context.Context, url string) (entity.ExtractionResponse, error) {
	content, err := document.Download(ctx, url, s.timeout)
	if err != nil {
		return entity.ExtractionResponse{}, err
	}
	return s.ExtractFromBytes(ctx, content, "url")
}

// ExtractFromBytes classifies raw bytes, extracts line items, validates and
// deduplicates them, and returns the response payload.
func (s *BillService) ExtractFromBytes(ctx context.Context, content []byte, source string) (entity.ExtractionResponse, error) {
	rid := uuid.New().String()
	ctx = common.WithRequestID(ctx, rid)
	start := time.Now()

	doc, err := document.Process(content)
	if err != nil {
		s.logger.Warn("bill.extract.rejected", "req_id", rid, "source", source, "error", err)
		s.record(ctx, source, "", 0, entity.TokenUsage{}, 0, 0, false, start)
		return entity.ExtractionResponse{}, err
	}
	s.logger.Info("bill.extract.start",
		"req_id", rid,
		"source", source,
		"format", doc.Format,
		"pages", doc.PageCount,
		"bytes", len(content),
	)

	res, err := s.engine.ExtractDocument(ctx, doc)
	if err != nil {
		s.logger.Error("bill.extract.failed", "req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		s.record(ctx, source, doc.Format, doc.PageCount, res.Usage, 0, 0, false, start)
		return entity.ExtractionResponse{}, err
	}

	report := validate.ValidateAll(res.Pages)
	for _, w := range report.Warnings {
		s.logger.Warn("bill.validate.warning", "req_id", rid, "warning", w)
	}
	for _, skip := range res.SkippedItems {
		s.logger.Warn("bill.extract.item_skipped", "req_id", rid, "page", skip.PageNo, "reason", skip.Reason)
	}

	pages := res.Pages
	if len(report.Duplicates) > 0 {
		s.logger.Info("bill.validate.dedup", "req_id", rid, "duplicates", len(report.Duplicates))
		pages = validate.RemoveDuplicates(pages)
	}
	if pages == nil {
		pages = []entity.PageWiseLineItem{}
	}

	// Counts are recomputed after dedup so the response matches its payload.
	itemCount := validate.CountItems(pages)
	totalAmount := validate.CalculateTotal(pages)

	s.logger.Info("bill.extract.ok",
		"req_id", rid,
		"pages", len(pages),
		"items", itemCount,
		"total_amount", totalAmount,
		"skipped_chunks", res.SkippedChunks,
		"total_tokens", res.Usage.TotalTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	s.record(ctx, source, doc.Format, doc.PageCount, res.Usage, itemCount, totalAmount, true, start)

	return entity.ExtractionResponse{
		IsSuccess:  true,
		TokenUsage: res.Usage,
		Data: entity.ExtractionData{
			PagewiseLineItems: pages,
			TotalItemCount:    itemCount,
		},
	}, nil
}

// record persists the accounting row when a repository is configured.
// Failures are logged and swallowed: accounting never fails a request.
func (s *BillService) record(ctx context.Context, source, format string, pageCount int,
	usage entity.TokenUsage, itemCount int, totalAmount float64, success bool, start time.Time) {
	if s.logs == nil {
		return
	}
	row := repository.NewLogRow(source, format, pageCount, usage, itemCount, totalAmount, success, time.Since(start))
	if err := s.logs.Insert(ctx, row); err != nil {
		s.logger.Warn("bill.extract.log_row_failed", "error", err)
	}
}
