package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/bill-extractor/internal/entity"
)

// ExtractionLog is one row of request accounting: what was processed, what
// came out, and what it cost. Extraction itself never depends on it.
type ExtractionLog struct {
	ID           uuid.UUID
	Source       string // "url" or "upload"
	Format       string
	PageCount    int
	ItemCount    int
	TotalAmount  float64
	InputTokens  int
	OutputTokens int
	TotalTokens  int
	Success      bool
	DurationMS   int64
	CreatedAt    time.Time
}

// ExtractionLogRepository persists extraction accounting rows.
type ExtractionLogRepository interface {
	Insert(ctx context.Context, row ExtractionLog) error
	EnsureSchema(ctx context.Context) error
}

type extractionLogRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewExtractionLogRepository(pool *pgxpool.Pool, logger *slog.Logger) ExtractionLogRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &extractionLogRepo{pool: pool, logger: logger}
}

const createExtractionLogSQL = `
CREATE TABLE IF NOT EXISTS extraction_log (
	id            UUID PRIMARY KEY,
	source        TEXT NOT NULL,
	format        TEXT NOT NULL,
	page_count    INT NOT NULL,
	item_count    INT NOT NULL,
	total_amount  NUMERIC(14,2) NOT NULL,
	input_tokens  INT NOT NULL,
	output_tokens INT NOT NULL,
	total_tokens  INT NOT NULL,
	success       BOOLEAN NOT NULL,
	duration_ms   BIGINT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`

func (r *extractionLogRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, createExtractionLogSQL)
	return err
}

const insertExtractionLogSQL = `
INSERT INTO extraction_log
	(id, source, format, page_count, item_count, total_amount,
	 input_tokens, output_tokens, total_tokens, success, duration_ms)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

func (r *extractionLogRepo) Insert(ctx context.Context, row ExtractionLog) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, insertExtractionLogSQL,
		row.ID, row.Source, row.Format, row.PageCount, row.ItemCount,
		row.TotalAmount, row.InputTokens, row.OutputTokens, row.TotalTokens,
		row.Success, row.DurationMS,
	)
	if err != nil {
		r.logger.Error("repository.extraction_log.insert_failed", "id", row.ID.String(), "error", err)
		return err
	}
	return nil
}

// NewLogRow is a convenience constructor from an extraction outcome.
func NewLogRow(source, format string, pageCount int, usage entity.TokenUsage,
	itemCount int, totalAmount float64, success bool, elapsed time.Duration) ExtractionLog {
	return ExtractionLog{
		ID:           uuid.New(),
		Source:       source,
		Format:       format,
		PageCount:    pageCount,
		ItemCount:    itemCount,
		TotalAmount:  totalAmount,
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		TotalTokens:  usage.TotalTokens,
		Success:      success,
		DurationMS:   elapsed.Milliseconds(),
	}
}
