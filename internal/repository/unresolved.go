package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vinodex/invoice-reconciler/internal/common"
	"github.com/vinodex/invoice-reconciler/internal/entity"
)

// ResolveParams carries one manual resolution of a ledger record.
type ResolveParams struct {
	RecordID    int64
	EntryID     int64
	CreateAlias bool
	StockReason string
}

// UnresolvedRepository is the persistence side of the unresolved-item ledger.
// Resolve is the only mutation of an existing record and runs in a single
// transaction so that the flag flip, the optional alias and the stock
// adjustment land together or not at all.
type UnresolvedRepository interface {
	Insert(ctx context.Context, rec entity.UnresolvedItemRecord) (int64, error)
	ListPending(ctx context.Context) ([]entity.UnresolvedItemRecord, error)
	Get(ctx context.Context, id int64) (*entity.UnresolvedItemRecord, error)
	Resolve(ctx context.Context, p ResolveParams) (*entity.UnresolvedItemRecord, error)
	PurgeOrphaned(ctx context.Context) (int64, error)
}

type unresolvedRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewUnresolvedRepository(db *sql.DB, logger *slog.Logger) UnresolvedRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &unresolvedRepository{db: db, logger: logger}
}

func (r *unresolvedRepository) Insert(ctx context.Context, rec entity.UnresolvedItemRecord) (int64, error) {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO unresolved_items
		 (description, quantity, unit_price, source_document_id, raw_snapshot, resolved, created_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?)`,
		rec.Description, nullableDecimal(rec.Quantity), nullableDecimal(rec.UnitPrice),
		rec.SourceDocumentID.String(), rec.RawSnapshot, createdAt)
	if err != nil {
		return 0, fmt.Errorf("insert unresolved item: %w", err)
	}
	return res.LastInsertId()
}

func (r *unresolvedRepository) ListPending(ctx context.Context) ([]entity.UnresolvedItemRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, description, quantity, unit_price, source_document_id, raw_snapshot,
		        resolved, resolved_entry_id, created_at, resolved_at
		 FROM unresolved_items WHERE resolved = 0 ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	defer rows.Close()

	var out []entity.UnresolvedItemRecord
	for rows.Next() {
		rec, err := scanUnresolved(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (r *unresolvedRepository) Get(ctx context.Context, id int64) (*entity.UnresolvedItemRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, description, quantity, unit_price, source_document_id, raw_snapshot,
		        resolved, resolved_entry_id, created_at, resolved_at
		 FROM unresolved_items WHERE id = ?`, id)
	rec, err := scanUnresolved(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get unresolved item %d: %w", id, err)
	}
	return rec, nil
}

// Resolve flips the record to resolved, optionally creates an alias from the
// ledger description, and adjusts the entry's stock by the recorded quantity.
// Resolving an already-resolved record returns common.ErrAlreadyResolved and
// leaves everything untouched.
func (r *unresolvedRepository) Resolve(ctx context.Context, p ResolveParams) (*entity.UnresolvedItemRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT id, description, quantity, unit_price, source_document_id, raw_snapshot,
		        resolved, resolved_entry_id, created_at, resolved_at
		 FROM unresolved_items WHERE id = ?`, p.RecordID)
	rec, err := scanUnresolved(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load record %d: %w", p.RecordID, err)
	}
	if rec.Resolved {
		return nil, fmt.Errorf("record %d: %w", p.RecordID, common.ErrAlreadyResolved)
	}

	// Target entry must exist before anything is written.
	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM catalog_entries WHERE id = ?`, p.EntryID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entry %d: %w", p.EntryID, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("check entry %d: %w", p.EntryID, err)
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE unresolved_items SET resolved = 1, resolved_entry_id = ?, resolved_at = ?
		 WHERE id = ? AND resolved = 0`, p.EntryID, now, p.RecordID); err != nil {
		return nil, fmt.Errorf("mark resolved: %w", err)
	}

	if p.CreateAlias {
		if err := checkAliasCollision(ctx, tx, rec.Description, p.EntryID); err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO catalog_aliases (alias_text, entry_id, created_at) VALUES (?, ?, ?)`,
			rec.Description, p.EntryID, now); err != nil {
			return nil, fmt.Errorf("create alias: %w", err)
		}
	}

	if rec.Quantity != nil && rec.Quantity.IsPositive() {
		delta := rec.Quantity.IntPart()
		if delta > 0 {
			if err := adjustStockTx(ctx, tx, p.EntryID, delta, p.StockReason); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	rec.Resolved = true
	rec.ResolvedEntryID = &p.EntryID
	rec.ResolvedAt = &now
	return rec, nil
}

// PurgeOrphaned removes pending records whose source document no longer
// exists. Resolved records are kept as history.
func (r *unresolvedRepository) PurgeOrphaned(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM unresolved_items
		 WHERE resolved = 0
		   AND source_document_id NOT IN (SELECT id FROM documents)`)
	if err != nil {
		return 0, fmt.Errorf("purge orphaned: %w", err)
	}
	return res.RowsAffected()
}

func scanUnresolved(scan func(dest ...any) error) (*entity.UnresolvedItemRecord, error) {
	var rec entity.UnresolvedItemRecord
	var qty, price sql.NullString
	var sourceID string
	var entryID sql.NullInt64
	var resolvedAt sql.NullTime
	err := scan(&rec.ID, &rec.Description, &qty, &price, &sourceID, &rec.RawSnapshot,
		&rec.Resolved, &entryID, &rec.CreatedAt, &resolvedAt)
	if err != nil {
		return nil, err
	}
	if rec.Quantity, err = scanDecimal(qty); err != nil {
		return nil, err
	}
	if rec.UnitPrice, err = scanDecimal(price); err != nil {
		return nil, err
	}
	if rec.SourceDocumentID, err = uuid.Parse(sourceID); err != nil {
		return nil, fmt.Errorf("source document id %q: %w", sourceID, err)
	}
	if entryID.Valid {
		v := entryID.Int64
		rec.ResolvedEntryID = &v
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		rec.ResolvedAt = &t
	}
	return &rec, nil
}
