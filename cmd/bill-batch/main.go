package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/bill-extractor/internal/common"
	"github.com/joseph-ayodele/bill-extractor/internal/export"
	"github.com/joseph-ayodele/bill-extractor/internal/extract"
	"github.com/joseph-ayodele/bill-extractor/internal/ingest"
	"github.com/joseph-ayodele/bill-extractor/internal/llm/gemini"
	"github.com/joseph-ayodele/bill-extractor/internal/server"
)

// bill-batch processes bill documents from a folder: each PDF/image found
// (or dropped in, with -watch) is extracted and an XLSX breakdown is written
// next to the source file.
func main() {
	_ = godotenv.Load()

	var (
		root  = flag.String("root", ".", "directory to process")
		watch = flag.Bool("watch", false, "keep watching the directory for new files")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := gemini.NewClient(gemini.Config{
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
	}, logger)
	engine := extract.NewEngine(client, cfg.Extraction, logger)
	svc := server.NewBillService(engine, nil, cfg.LLM.Timeout, logger)
	exporter := export.NewService(logger)

	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{*root},
		InitialScan: true,
		Debounce:    500 * time.Millisecond,
	}, logger)
	if err != nil {
		logger.Error("watcher start failed", "error", err)
		os.Exit(1)
	}

	if !*watch {
		// One-shot mode: the initial scan has already queued everything;
		// drain until the queue goes quiet.
		drain(ctx, events, svc, exporter, logger)
		return
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("stopped")
			return
		case err, ok := <-errs:
			if ok {
				logger.Error("watch error", "error", err)
			}
		case path, ok := <-events:
			if !ok {
				return
			}
			processFile(ctx, path, svc, exporter, logger)
		}
	}
}

func drain(ctx context.Context, events <-chan string, svc *server.BillService, exporter *export.Service, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case path, ok := <-events:
			if !ok {
				return
			}
			processFile(ctx, path, svc, exporter, logger)
		case <-time.After(2 * time.Second):
			return
		}
	}
}

func processFile(ctx context.Context, path string, svc *server.BillService, exporter *export.Service, logger *slog.Logger) {
	content, err := os.ReadFile(path)
	if err != nil {
		logger.Error("batch.read_failed", "path", path, "error", err)
		return
	}

	resp, err := svc.ExtractFromBytes(ctx, content, "batch")
	if err != nil {
		logger.Error("batch.extract_failed", "path", path, "error", err)
		return
	}

	workbook, err := exporter.ItemizedXLSX(resp.Data, resp.TokenUsage)
	if err != nil {
		logger.Error("batch.export_failed", "path", path, "error", err)
		return
	}

	out := strings.TrimSuffix(path, filepath.Ext(path)) + ".items.xlsx"
	if err := os.WriteFile(out, workbook, 0o644); err != nil {
		logger.Error("batch.write_failed", "path", out, "error", err)
		return
	}
	logger.Info("batch.file_ok", "path", path, "out", out, "items", resp.Data.TotalItemCount)
}
