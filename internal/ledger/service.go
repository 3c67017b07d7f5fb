// Package ledger manages the unresolved-item ledger: line items the catalog
// resolver could not uniquely match, parked for manual resolution.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vinodex/invoice-reconciler/internal/common"
	"github.com/vinodex/invoice-reconciler/internal/entity"
	"github.com/vinodex/invoice-reconciler/internal/repository"
)

// AlreadyResolvedError reports a resolve attempt on a terminal record.
type AlreadyResolvedError struct {
	RecordID int64
}

func (e *AlreadyResolvedError) Error() string {
	return fmt.Sprintf("unresolved item %d is already resolved", e.RecordID)
}

func (e *AlreadyResolvedError) Unwrap() error { return common.ErrAlreadyResolved }

// Service is the application layer over the ledger store.
type Service struct {
	repo   repository.UnresolvedRepository
	logger *slog.Logger
}

func NewService(repo repository.UnresolvedRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Record parks one unmatched line item. The snapshot keeps the parser's raw
// view so a reviewer sees what the extractor saw, not a normalized form.
func (s *Service) Record(ctx context.Context, docID uuid.UUID, item entity.DetectedLineItem) (int64, error) {
	rec := entity.UnresolvedItemRecord{
		Description:      item.Description,
		Quantity:         item.Quantity,
		UnitPrice:        item.UnitPrice,
		SourceDocumentID: docID,
		RawSnapshot:      item.RawSnapshot,
		CreatedAt:        time.Now().UTC(),
	}
	id, err := s.repo.Insert(ctx, rec)
	if err != nil {
		return 0, fmt.Errorf("record unresolved item: %w", err)
	}
	s.logger.Info("unresolved item recorded",
		"record_id", id,
		"document_id", docID,
		"description", item.Description)
	return id, nil
}

// ListPending returns the open ledger, oldest first.
func (s *Service) ListPending(ctx context.Context) ([]entity.UnresolvedItemRecord, error) {
	return s.repo.ListPending(ctx)
}

// Get returns one record regardless of state.
func (s *Service) Get(ctx context.Context, id int64) (*entity.UnresolvedItemRecord, error) {
	return s.repo.Get(ctx, id)
}

// Resolve assigns a catalog entry to a pending record. When createAlias is
// set, the record's description becomes an alias for the entry so the next
// invoice resolves automatically. Stock is adjusted exactly once per record
// even if the caller retries; a retry surfaces AlreadyResolvedError.
func (s *Service) Resolve(ctx context.Context, recordID, entryID int64, createAlias bool) (*entity.UnresolvedItemRecord, error) {
	if recordID <= 0 || entryID <= 0 {
		return nil, fmt.Errorf("record %d entry %d: %w", recordID, entryID, common.ErrInvalidInput)
	}
	rec, err := s.repo.Resolve(ctx, repository.ResolveParams{
		RecordID:    recordID,
		EntryID:     entryID,
		CreateAlias: createAlias,
		StockReason: fmt.Sprintf("ledger resolution %d", recordID),
	})
	if errors.Is(err, common.ErrAlreadyResolved) {
		return nil, &AlreadyResolvedError{RecordID: recordID}
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("unresolved item resolved",
		"record_id", recordID,
		"entry_id", entryID,
		"alias_created", createAlias)
	return rec, nil
}

// PurgeOrphaned drops pending records whose source document was deleted.
func (s *Service) PurgeOrphaned(ctx context.Context) (int64, error) {
	n, err := s.repo.PurgeOrphaned(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("orphaned ledger records purged", "count", n)
	}
	return n, nil
}
