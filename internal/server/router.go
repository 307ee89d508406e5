package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/bill-extractor/internal/common"
	"github.com/joseph-ayodele/bill-extractor/internal/entity"
	"github.com/joseph-ayodele/bill-extractor/internal/export"
)

const (
	ServiceName = "Bill Extraction API"
	Version     = "1.0.0"
)

// NewRouter wires the HTTP surface: health check, extraction, XLSX export.
func NewRouter(svc *BillService, exporter *export.Service, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.Default())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "online",
			"service": ServiceName,
			"version": Version,
		})
	})

	r.POST("/extract-bill-data", func(c *gin.Context) {
		resp, err := runExtraction(c, svc)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	})

	r.POST("/extract-bill-data/export", func(c *gin.Context) {
		resp, err := runExtraction(c, svc)
		if err != nil {
			writeError(c, err)
			return
		}
		workbook, err := exporter.ItemizedXLSX(resp.Data, resp.TokenUsage)
		if err != nil {
			writeError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="bill-items.xlsx"`)
		c.Data(http.StatusOK,
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", workbook)
	})

	return r
}

// runExtraction resolves the request input (exactly one of a document URL
// or an uploaded file) and runs the pipeline.
func runExtraction(c *gin.Context, svc *BillService) (entity.ExtractionResponse, error) {
	docURL, file, err := readInput(c)
	if err != nil {
		return entity.ExtractionResponse{}, err
	}
	if file != nil {
		content, rerr := readUpload(file)
		if rerr != nil {
			return entity.ExtractionResponse{}, rerr
		}
		return svc.ExtractFromBytes(c.Request.Context(), content, "upload")
	}
	return svc.ExtractFromURL(c.Request.Context(), docURL)
}

// readInput accepts either a multipart form (file upload or "document"
// field) or a JSON body {"document": "<url>"}. Supplying both or neither
// is an input error.
func readInput(c *gin.Context) (string, *multipart.FileHeader, error) {
	contentType := c.ContentType()

	if strings.HasPrefix(contentType, "multipart/") ||
		contentType == "application/x-www-form-urlencoded" {
		file, _ := c.FormFile("file")
		docURL := strings.TrimSpace(c.PostForm("document"))
		switch {
		case file != nil && docURL != "":
			return "", nil, common.NewAppError("INVALID_INPUT",
				"provide either a document URL or a file, not both", common.ErrInvalidInput)
		case file != nil:
			return "", file, nil
		case docURL != "":
			return docURL, nil, nil
		default:
			return "", nil, common.NewAppError("INVALID_INPUT",
				"missing document URL or file upload", common.ErrInvalidInput)
		}
	}

	var req struct {
		Document string `json:"document"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Document) == "" {
		return "", nil, common.NewAppError("INVALID_INPUT",
			"missing document URL or file upload", common.ErrInvalidInput)
	}
	return strings.TrimSpace(req.Document), nil, nil
}

func readUpload(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, common.NewAppError("INVALID_INPUT", "open upload", common.ErrInvalidInput)
	}
	defer func() {
		_ = f.Close()
	}()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, common.NewAppError("INVALID_INPUT", "read upload", common.ErrInvalidInput)
	}
	return content, nil
}

// writeError renders the uniform error shape with the status mapped from
// the error taxonomy.
func writeError(c *gin.Context, err error) {
	status := common.HTTPStatus(err)
	message := errorMessage(err)
	if status == http.StatusInternalServerError {
		message = fmt.Sprintf("Failed to process document. Internal server error occurred: %s", message)
	}
	c.JSON(status, entity.ErrorResponse{IsSuccess: false, Message: message})
}

func errorMessage(err error) string {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
