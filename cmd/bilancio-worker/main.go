package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"bilancio/internal/amqp"
	"bilancio/internal/backend"
	"bilancio/internal/config"
	"bilancio/internal/log"
	"bilancio/internal/reports"
	gsheet "bilancio/internal/reports/google"
	repmem "bilancio/internal/reports/memory"
	"bilancio/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.Config{Component: log.ComponentWorker})
	log.SetDefault(logger)

	logger.Info("starting bilancio-worker", log.FieldOperation, log.OpStartup)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := backend.Open(ctx, cfg.DataBackend, cfg.SQLiteDBPath, cfg.PostgresDSN)
	if err != nil {
		logger.Error("storage initialization failed", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer store.Close()

	// Without a spreadsheet id the worker still consumes and snapshots, but
	// rows land in the in-process writer, useful for local runs.
	var writer reports.Writer
	if cfg.GoogleSpreadsheetID != "" {
		writer, err = gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsFile: cfg.GoogleCredentialsFile,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
		})
		if err != nil {
			logger.Error("google sheets initialization failed", log.FieldError, err)
			os.Exit(1)
		}
		logger.Info("google sheets writer initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		writer = repmem.New()
		logger.Info("google sheets disabled, using in-memory report writer")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("amqp initialization failed", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(store, writer, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := amqpClient.ConsumeReportSync(gctx, func(msg *amqp.ReportSyncMessage) error {
			return syncWorker.HandleSyncMessage(gctx, msg)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		c := cron.New()
		_, err := c.AddFunc(cfg.SnapshotSchedule, func() {
			if err := syncWorker.SnapshotPreviousMonth(gctx, time.Now()); err != nil {
				logger.Error("month snapshot failed", log.FieldError, err, log.FieldOperation, log.OpSnapshot)
			}
		})
		if err != nil {
			return err
		}
		c.Start()
		logger.Info("snapshot schedule armed", "schedule", cfg.SnapshotSchedule)
		<-gctx.Done()
		stopCtx := c.Stop()
		<-stopCtx.Done()
		return nil
	})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("shutdown signal received", "signal", sig.String(), log.FieldOperation, log.OpShutdown)
		cancel()
	}()

	if err := g.Wait(); err != nil {
		logger.Error("worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("worker shutdown complete")
}
