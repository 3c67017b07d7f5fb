// invoice-batch processes a directory of invoice PDFs in one run and prints
// a summary. Intended for backfills and the nightly drop folder.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/vinodex/invoice-reconciler/internal/common"
	"github.com/vinodex/invoice-reconciler/internal/export"
	"github.com/vinodex/invoice-reconciler/internal/extract"
	"github.com/vinodex/invoice-reconciler/internal/ingest"
	"github.com/vinodex/invoice-reconciler/internal/ledger"
	"github.com/vinodex/invoice-reconciler/internal/parsers"
	"github.com/vinodex/invoice-reconciler/internal/pipeline"
	"github.com/vinodex/invoice-reconciler/internal/repository"
)

func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir        = flag.String("dir", "", "directory of invoice PDFs to process (required)")
		out        = flag.String("out", "", "write the review queue XLSX here after the run (optional)")
		keep       = flag.Bool("keep", false, "leave files in place instead of moving them to done/duplicate/failed")
		skipHidden = flag.Bool("skip-hidden", true, "skip hidden files and directories")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}

	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	ctx := context.Background()

	db, err := repository.Open(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		DialTimeout:     cfg.Database.DialTimeout,
	}, logger)
	if err != nil {
		printError("Error: opening database: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	tol, err := common.LoadTolerances(cfg.Pipeline.TolerancesPath)
	if err != nil {
		printError("Error: loading tolerances: %v\n", err)
		os.Exit(1)
	}

	catalogRepo := repository.NewCatalogRepository(db, logger)
	documentRepo := repository.NewDocumentRepository(db, logger)
	unresolvedRepo := repository.NewUnresolvedRepository(db, logger)
	ledgerSvc := ledger.NewService(unresolvedRepo, logger)

	processor := pipeline.NewProcessor(
		logger,
		extract.NewPDFExtractor(logger),
		parsers.NewDefaultRegistry(logger),
		catalogRepo,
		documentRepo,
		ledgerSvc,
		tol,
	)

	ingestor := ingest.NewDirectoryIngestor(processor, logger)
	ingestor.MoveFiles = !*keep

	results, stats, err := ingestor.IngestDirectory(ctx, *dir, *skipHidden)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	for _, res := range results {
		switch res.Outcome {
		case ingest.OutcomeFailed:
			fmt.Printf("FAIL      %s: %s\n", filepath.Base(res.Path), res.Err)
		case ingest.OutcomeDuplicate:
			fmt.Printf("DUPLICATE %s\n", filepath.Base(res.Path))
		case ingest.OutcomeReview:
			fmt.Printf("REVIEW    %s -> %s\n", filepath.Base(res.Path), res.DocumentID)
		default:
			fmt.Printf("OK        %s -> %s\n", filepath.Base(res.Path), res.DocumentID)
		}
	}
	fmt.Printf("\nscanned=%d matched=%d processed=%d review=%d duplicated=%d failed=%d\n",
		stats.Scanned, stats.Matched, stats.Processed, stats.Review, stats.Duplicated, stats.Failed)

	if *out != "" {
		exportSvc := export.NewService(documentRepo, unresolvedRepo, logger)
		data, err := exportSvc.ExportReviewQueueXLSX(ctx)
		if err != nil {
			printError("Error: exporting review queue: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*out, data, 0o644); err != nil {
			printError("Error: writing %s: %v\n", *out, err)
			os.Exit(1)
		}
		fmt.Printf("review queue written to %s\n", *out)
	}

	if stats.Failed > 0 {
		os.Exit(1)
	}
}
