package document

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageRange is an inclusive 1-indexed window of consecutive pages.
type PageRange struct {
	Start int
	End   int
}

func (r PageRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// ChunkRanges splits a page count into fixed consecutive windows. The last
// window may be shorter: 10 pages with size 3 yield 1-3, 4-6, 7-9, 10-10.
func ChunkRanges(pageCount, chunkSize int) []PageRange {
	if pageCount <= 0 || chunkSize <= 0 {
		return nil
	}
	ranges := make([]PageRange, 0, (pageCount+chunkSize-1)/chunkSize)
	for start := 1; start <= pageCount; start += chunkSize {
		end := start + chunkSize - 1
		if end > pageCount {
			end = pageCount
		}
		ranges = append(ranges, PageRange{Start: start, End: end})
	}
	return ranges
}

// CutPages produces a standalone PDF holding only the pages in r.
func CutPages(pdf []byte, r PageRange) ([]byte, error) {
	var buf bytes.Buffer
	conf := model.NewDefaultConfiguration()
	if err := api.Trim(bytes.NewReader(pdf), &buf, []string{r.String()}, conf); err != nil {
		return nil, fmt.Errorf("cut pages %s: %w", r, err)
	}
	return buf.Bytes(), nil
}
