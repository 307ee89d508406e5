package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/bill-extractor/internal/common"
	"github.com/joseph-ayodele/bill-extractor/internal/export"
	"github.com/joseph-ayodele/bill-extractor/internal/extract"
	"github.com/joseph-ayodele/bill-extractor/internal/llm/gemini"
	"github.com/joseph-ayodele/bill-extractor/internal/repository"
	"github.com/joseph-ayodele/bill-extractor/internal/server"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Extraction log is optional: no DB_URL, no accounting.
	var logs repository.ExtractionLogRepository
	if cfg.Database.DSN != "" {
		pool, err := repository.Open(ctx, cfg.Database, logger)
		if err != nil {
			logger.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := repository.HealthCheck(ctx, pool, cfg.Database.DialTimeout); err != nil {
			logger.Error("database health check failed", "error", err)
			os.Exit(1)
		}
		logs = repository.NewExtractionLogRepository(pool, logger)
		if err := logs.EnsureSchema(ctx); err != nil {
			logger.Error("extraction log schema setup failed", "error", err)
			os.Exit(1)
		}
		logger.Info("extraction log enabled")
	}

	client := gemini.NewClient(gemini.Config{
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
	}, logger)

	engine := extract.NewEngine(client, cfg.Extraction, logger)
	svc := server.NewBillService(engine, logs, cfg.LLM.Timeout, logger)
	exporter := export.NewService(logger)
	router := server.NewRouter(svc, exporter, logger)

	addr := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		logger.Info("server starting", "addr", addr, "model", cfg.LLM.Model)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("stopped")
}
