package document

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/joseph-ayodele/bill-extractor/constants"
	"github.com/joseph-ayodele/bill-extractor/internal/common"
)

// Document is the classified result of intake: raw bytes plus the metadata
// the extraction engine needs to pick a strategy.
type Document struct {
	Content   []byte
	Format    string // constants.PDF or constants.IMAGE
	MimeType  string
	PageCount int
}

// Classify determines the document format from its byte signature: PDF by
// magic prefix, image by decode success, anything else is unsupported.
func Classify(content []byte) (string, string, error) {
	if len(content) >= len(constants.PDFMagic) &&
		bytes.HasPrefix(content, []byte(constants.PDFMagic)) {
		return constants.PDF, constants.MimePDF, nil
	}
	if format, ok := probeImage(content); ok {
		return constants.IMAGE, constants.MimeForImage(format), nil
	}
	return "", "", common.NewAppError("UNSUPPORTED_FORMAT",
		"only PDF and image documents are supported", common.ErrUnsupportedFormat)
}

func probeImage(content []byte) (string, bool) {
	_, format, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return "", false
	}
	return format, true
}

// PageCount counts the pages of a PDF. Parse failures fall back to 1 so a
// slightly off-spec PDF still gets a single extraction attempt.
func PageCount(pdf []byte) int {
	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(pdf), model.NewDefaultConfiguration())
	if err != nil || pdfCtx.PageCount == 0 {
		return 1
	}
	return pdfCtx.PageCount
}

// Process classifies raw bytes and fills in page metadata.
func Process(content []byte) (Document, error) {
	format, mime, err := Classify(content)
	if err != nil {
		return Document{}, err
	}
	doc := Document{Content: content, Format: format, MimeType: mime, PageCount: 1}
	if format == constants.PDF {
		doc.PageCount = PageCount(content)
	}
	return doc, nil
}

// Download fetches a document over HTTP. Transport errors and non-2xx
// statuses surface as ErrDownloadFailed, which the API maps to a 400.
func Download(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, common.NewAppError("INVALID_INPUT",
			"document must be an http(s) URL", common.ErrInvalidInput)
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, common.NewAppError("DOWNLOAD_FAILED", "build request", common.ErrDownloadFailed)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, common.NewAppError("DOWNLOAD_FAILED", err.Error(), common.ErrDownloadFailed)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			_ = cerr
		}
	}()

	if resp.StatusCode/100 != 2 {
		return nil, common.NewAppError("DOWNLOAD_FAILED",
			fmt.Sprintf("non-2xx status: %d", resp.StatusCode), common.ErrDownloadFailed)
	}
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, common.NewAppError("DOWNLOAD_FAILED", "read body", common.ErrDownloadFailed)
	}
	return content, nil
}
