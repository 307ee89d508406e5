package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/bill-extractor/internal/entity"
)

// Service produces XLSX bytes for extraction results.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ItemizedXLSX returns a workbook with one row per extracted line item plus
// a trailing summary block (item count, total amount, token usage).
func (s *Service) ItemizedXLSX(data entity.ExtractionData, usage entity.TokenUsage) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Line Items"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		_, err := f.NewSheet(sheet)
		if err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Page No",
		"Page Type",
		"Item",
		"Rate",
		"Quantity",
		"Amount",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	write := func(col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}

	row := 2
	total := 0.0
	for _, page := range data.PagewiseLineItems {
		for _, item := range page.BillItems {
			write(1, row, page.PageNo)
			write(2, row, page.PageType)
			write(3, row, item.ItemName)
			write(4, row, item.ItemRate)
			write(5, row, item.ItemQuantity)
			write(6, row, item.ItemAmount)
			total += item.ItemAmount
			row++
		}
	}

	row++ // blank spacer before the summary block
	write(1, row, "Total Items")
	write(2, row, data.TotalItemCount)
	row++
	write(1, row, "Total Amount")
	write(2, row, fmt.Sprintf("%.2f", total))
	row++
	write(1, row, "Tokens (in/out/total)")
	write(2, row, fmt.Sprintf("%d / %d / %d", usage.InputTokens, usage.OutputTokens, usage.TotalTokens))

	_ = f.SetColWidth(sheet, "A", "A", 10) // page no
	_ = f.SetColWidth(sheet, "B", "B", 14) // page type
	_ = f.SetColWidth(sheet, "C", "C", 40) // item
	_ = f.SetColWidth(sheet, "D", "F", 12) // numbers

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", data.TotalItemCount,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
