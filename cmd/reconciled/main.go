// reconciled is the long-running back-office daemon: it serves the HTTP API
// and, when WATCH_DIRS is set, ingests invoices dropped into inbox folders.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/vinodex/invoice-reconciler/internal/async"
	"github.com/vinodex/invoice-reconciler/internal/common"
	"github.com/vinodex/invoice-reconciler/internal/export"
	"github.com/vinodex/invoice-reconciler/internal/extract"
	"github.com/vinodex/invoice-reconciler/internal/ingest"
	"github.com/vinodex/invoice-reconciler/internal/ledger"
	"github.com/vinodex/invoice-reconciler/internal/parsers"
	"github.com/vinodex/invoice-reconciler/internal/pipeline"
	"github.com/vinodex/invoice-reconciler/internal/repository"
	"github.com/vinodex/invoice-reconciler/internal/server"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		DialTimeout:     cfg.Database.DialTimeout,
	}, logger)
	if err != nil {
		logger.Error("opening database", "err", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	tol, err := common.LoadTolerances(cfg.Pipeline.TolerancesPath)
	if err != nil {
		logger.Error("loading tolerances", "path", cfg.Pipeline.TolerancesPath, "err", err)
		os.Exit(1)
	}

	catalogRepo := repository.NewCatalogRepository(db, logger)
	documentRepo := repository.NewDocumentRepository(db, logger)
	unresolvedRepo := repository.NewUnresolvedRepository(db, logger)

	ledgerSvc := ledger.NewService(unresolvedRepo, logger)
	exportSvc := export.NewService(documentRepo, unresolvedRepo, logger)

	processor := pipeline.NewProcessor(
		logger,
		extract.NewPDFExtractor(logger),
		parsers.NewDefaultRegistry(logger),
		catalogRepo,
		documentRepo,
		ledgerSvc,
		tol,
	)

	srv := server.New(logger, db, documentRepo, ledgerSvc, exportSvc, processor,
		cfg.Pipeline.MaxUploadBytes)
	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var queue *async.IngestQueue
	if len(cfg.Pipeline.WatchDirs) > 0 {
		ingestor := ingest.NewDirectoryIngestor(processor, logger)
		ingestor.MoveFiles = cfg.Pipeline.MoveFiles
		queue = async.NewIngestQueue(ingestor, logger)

		events, errs, err := ingest.StartWatcher(ctx, logger, ingest.WatchConfig{
			Roots:       cfg.Pipeline.WatchDirs,
			InitialScan: true,
			Debounce:    2 * time.Second,
		})
		if err != nil {
			logger.Error("starting watcher", "dirs", cfg.Pipeline.WatchDirs, "err", err)
			os.Exit(1)
		}
		go func() {
			for path := range events {
				_ = queue.Enqueue(ctx, async.Job{Path: path, SubmittedAt: time.Now()})
			}
		}()
		go func() {
			for err := range errs {
				logger.Error("inbox watcher", "err", err)
			}
		}()
		logger.Info("watching inbox directories", "dirs", cfg.Pipeline.WatchDirs)
	}

	go func() {
		logger.Info("http serving", "addr", cfg.Server.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "err", err)
	}
	if queue != nil {
		queue.Shutdown(shutdownCtx)
	}
	logger.Info("stopped")
}
