// Package export produces XLSX workbooks for the back office: the review
// queue and the open unresolved-item ledger.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/vinodex/invoice-reconciler/internal/repository"
)

// Service is a thin façade over repositories that renders XLSX bytes.
type Service struct {
	documents  repository.DocumentRepository
	unresolved repository.UnresolvedRepository
	logger     *slog.Logger
}

func NewService(documents repository.DocumentRepository, unresolved repository.UnresolvedRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{documents: documents, unresolved: unresolved, logger: logger}
}

// ExportReviewQueueXLSX renders every document flagged for review, one row
// per flagged line, with the document's review reasons on its first row.
func (s *Service) ExportReviewQueueXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	summaries, err := s.documents.List(ctx, repository.ListFilter{ReviewOnly: true})
	if err != nil {
		return nil, fmt.Errorf("list review queue: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Review Queue"
	if err := prepareSheet(f, sheet); err != nil {
		return nil, err
	}
	writeHeaders(f, sheet, []string{
		"Document", "Provider", "Folio", "Review Reasons",
		"Line Description", "Qty", "Unit Price", "Line Total", "Findings",
	})

	row := 2
	for _, sum := range summaries {
		doc, err := s.documents.Get(ctx, sum.ID)
		if err != nil {
			return nil, fmt.Errorf("load document %s: %w", sum.ID, err)
		}
		reasons := ""
		for i, r := range doc.ReviewReasons {
			if i > 0 {
				reasons += "; "
			}
			reasons += r
		}
		wroteLine := false
		for _, line := range doc.Lines {
			if !line.RequiresReview {
				continue
			}
			findings := ""
			for i, fd := range line.Findings {
				if i > 0 {
					findings += "; "
				}
				findings += fd.String()
			}
			writeRow(f, sheet, row, []any{
				doc.Filename, doc.ProviderID, doc.Metadata.Folio, firstRowOnly(reasons, wroteLine),
				line.Description, decStr(line.Quantity), decStr(line.UnitPrice),
				decStr(line.LineTotal), findings,
			})
			wroteLine = true
			row++
		}
		if !wroteLine {
			// Document-level reasons with no flagged line still need a row.
			writeRow(f, sheet, row, []any{
				doc.Filename, doc.ProviderID, doc.Metadata.Folio, reasons,
				"", "", "", "", "",
			})
			row++
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 28)
	_ = f.SetColWidth(sheet, "B", "C", 16)
	_ = f.SetColWidth(sheet, "D", "D", 48)
	_ = f.SetColWidth(sheet, "E", "E", 40)
	_ = f.SetColWidth(sheet, "F", "H", 12)
	_ = f.SetColWidth(sheet, "I", "I", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("review queue exported",
		"documents", len(summaries),
		"elapsed_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}

// ExportDocumentsXLSX renders one row per processed document matching the
// filter, newest first.
func (s *Service) ExportDocumentsXLSX(ctx context.Context, filter repository.ListFilter) ([]byte, error) {
	start := time.Now()

	summaries, err := s.documents.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Documents"
	if err := prepareSheet(f, sheet); err != nil {
		return nil, err
	}
	writeHeaders(f, sheet, []string{
		"Document", "Provider", "Folio", "Lines", "Requires Review", "Processed At",
	})

	for i, sum := range summaries {
		writeRow(f, sheet, i+2, []any{
			sum.Filename, sum.ProviderID, sum.Folio, sum.LineCount,
			sum.RequiresReview, sum.CreatedAt.Format("2006-01-02 15:04"),
		})
	}

	_ = f.SetColWidth(sheet, "A", "A", 28)
	_ = f.SetColWidth(sheet, "B", "C", 16)
	_ = f.SetColWidth(sheet, "D", "E", 12)
	_ = f.SetColWidth(sheet, "F", "F", 18)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("documents exported",
		"rows", len(summaries),
		"elapsed_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}

// ExportUnresolvedXLSX renders the open ledger, oldest first.
func (s *Service) ExportUnresolvedXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	recs, err := s.unresolved.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Unresolved Items"
	if err := prepareSheet(f, sheet); err != nil {
		return nil, err
	}
	writeHeaders(f, sheet, []string{
		"ID", "Description", "Qty", "Unit Price", "Source Document", "First Seen", "Raw Snapshot",
	})

	for i, rec := range recs {
		writeRow(f, sheet, i+2, []any{
			rec.ID, rec.Description, decStr(rec.Quantity), decStr(rec.UnitPrice),
			rec.SourceDocumentID.String(), rec.CreatedAt.Format("2006-01-02"),
			truncate(rec.RawSnapshot, 140),
		})
	}

	_ = f.SetColWidth(sheet, "A", "A", 8)
	_ = f.SetColWidth(sheet, "B", "B", 44)
	_ = f.SetColWidth(sheet, "C", "D", 12)
	_ = f.SetColWidth(sheet, "E", "E", 38)
	_ = f.SetColWidth(sheet, "F", "F", 12)
	_ = f.SetColWidth(sheet, "G", "G", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("unresolved ledger exported",
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}

func prepareSheet(f *excelize.File, sheet string) error {
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
	}
	index, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(index)
	return nil
}

func writeHeaders(f *excelize.File, sheet string, headers []string) {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
}

func writeRow(f *excelize.File, sheet string, row int, values []any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func firstRowOnly(s string, alreadyWritten bool) string {
	if alreadyWritten {
		return ""
	}
	return s
}

func decStr(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
