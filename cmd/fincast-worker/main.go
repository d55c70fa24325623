package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"fincast/internal/amqp"
	"fincast/internal/config"
	"fincast/internal/log"
	"fincast/internal/report"
	"fincast/internal/report/google"
	"fincast/internal/storage"
	"fincast/internal/store"
	"fincast/internal/store/memory"
	"fincast/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	logger.Info("Starting fincast-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	var st store.Store
	switch cfg.DataBackend {
	case "sqlite":
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		st = repo
	default:
		mem, err := memory.NewFromDir(cfg.SeedDir)
		if err != nil {
			logger.Error("Failed to load seed data", log.FieldError, err, "dir", cfg.SeedDir)
			os.Exit(1)
		}
		st = mem
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Report export is optional; without a spreadsheet id the worker only
	// maintains derived state.
	var reporter report.Appender
	if cfg.ReportSpreadsheetID != "" {
		client, err := google.New(ctx, cfg.ReportSpreadsheetID, cfg.ReportSheetName)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets reporter", log.FieldError, err)
			os.Exit(1)
		}
		reporter = client
		logger.Info("Google Sheets reporter initialized", "spreadsheet_id", cfg.ReportSpreadsheetID, "sheet", cfg.ReportSheetName)
	} else {
		logger.Info("Report export disabled - no REPORT_SPREADSHEET_ID provided")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	w := worker.New(st, reporter, worker.Options{}, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := amqpClient.ConsumeRecompute(gctx, func(msg *amqp.RecomputeMessage) error {
			return w.Recompute(gctx, msg)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	// Periodic full sweep catches missed messages and ages installments
	// into overdue even without write traffic.
	g.Go(func() error {
		ticker := time.NewTicker(cfg.RecomputeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := w.Recompute(gctx, amqp.NewFullRecompute()); err != nil {
					logger.Error("Periodic recompute failed", log.FieldError, err)
				}
			}
		}
	})

	logger.Info("Worker running", "recompute_interval", cfg.RecomputeInterval.String())
	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
